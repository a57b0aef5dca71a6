package budget

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/record"
)

var ErrNotFound = errors.New("budget not found")

// Period is the budget's recurrence window.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Budget caps spending for a category over a period. Amount is in cents.
type Budget struct {
	ID          uuid.UUID
	Name        string
	Category    string
	Amount      int64
	Period      Period
	StartDate   time.Time
	IsActive    bool
	UpdatedAt   time.Time
	CreatedAt   time.Time
	SyncVersion int64
}

type fields struct {
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Amount    int64     `json:"amount"`
	Period    Period    `json:"period,omitempty"`
	StartDate time.Time `json:"startDate"`
}

func fromRecord(rec *record.Record) (*Budget, error) {
	var f fields
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &f); err != nil {
			return nil, fmt.Errorf("decoding budget %s: %w", rec.ID, err)
		}
	}

	return &Budget{
		ID:          rec.ID,
		Name:        f.Name,
		Category:    f.Category,
		Amount:      f.Amount,
		Period:      f.Period,
		StartDate:   f.StartDate,
		IsActive:    !rec.Deleted,
		UpdatedAt:   rec.UpdatedAt,
		CreatedAt:   rec.CreatedAt,
		SyncVersion: rec.Sync.SyncVersion,
	}, nil
}

func (b *Budget) encodeFields() ([]byte, error) {
	data, err := json.Marshal(fields{
		Name:      b.Name,
		Category:  b.Category,
		Amount:    b.Amount,
		Period:    b.Period,
		StartDate: b.StartDate,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding budget %s: %w", b.ID, err)
	}

	return data, nil
}
