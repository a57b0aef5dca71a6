package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/record"
)

// ErrNotFound is returned when an expense does not exist or has been
// deleted.
var ErrNotFound = errors.New("expense not found")

// Expense is a single recorded expense. Amount is in cents.
type Expense struct {
	ID          uuid.UUID
	Amount      int64
	Description string
	Category    string
	Notes       string
	Date        time.Time
	Tags        []string
	IsDeleted   bool
	UpdatedAt   time.Time
	CreatedAt   time.Time
	SyncVersion int64
}

// fields is the expense's slice of the record field bag.
type fields struct {
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Date        time.Time `json:"date"`
	Tags        []string  `json:"tags,omitempty"`
}

func fromRecord(rec *record.Record) (*Expense, error) {
	var f fields
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &f); err != nil {
			return nil, fmt.Errorf("decoding expense %s: %w", rec.ID, err)
		}
	}

	return &Expense{
		ID:          rec.ID,
		Amount:      f.Amount,
		Description: f.Description,
		Category:    f.Category,
		Notes:       f.Notes,
		Date:        f.Date,
		Tags:        f.Tags,
		IsDeleted:   rec.Deleted,
		UpdatedAt:   rec.UpdatedAt,
		CreatedAt:   rec.CreatedAt,
		SyncVersion: rec.Sync.SyncVersion,
	}, nil
}

func (e *Expense) encodeFields() ([]byte, error) {
	data, err := json.Marshal(fields{
		Amount:      e.Amount,
		Description: e.Description,
		Category:    e.Category,
		Notes:       e.Notes,
		Date:        e.Date,
		Tags:        e.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding expense %s: %w", e.ID, err)
	}

	return data, nil
}
