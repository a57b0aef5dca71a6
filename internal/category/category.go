package category

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/record"
)

var ErrNotFound = errors.New("category not found")

// Type says whether a category groups expenses or income.
type Type string

const (
	TypeExpense Type = "expense"
	TypeIncome  Type = "income"
)

type Category struct {
	ID          uuid.UUID
	Name        string
	Type        Type
	Color       string
	Icon        string
	Keywords    []string
	IsActive    bool
	UpdatedAt   time.Time
	CreatedAt   time.Time
	SyncVersion int64
}

type fields struct {
	Name     string   `json:"name"`
	Type     Type     `json:"type,omitempty"`
	Color    string   `json:"color,omitempty"`
	Icon     string   `json:"icon,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

func fromRecord(rec *record.Record) (*Category, error) {
	var f fields
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &f); err != nil {
			return nil, fmt.Errorf("decoding category %s: %w", rec.ID, err)
		}
	}

	return &Category{
		ID:          rec.ID,
		Name:        f.Name,
		Type:        f.Type,
		Color:       f.Color,
		Icon:        f.Icon,
		Keywords:    f.Keywords,
		IsActive:    !rec.Deleted,
		UpdatedAt:   rec.UpdatedAt,
		CreatedAt:   rec.CreatedAt,
		SyncVersion: rec.Sync.SyncVersion,
	}, nil
}

func (c *Category) encodeFields() ([]byte, error) {
	data, err := json.Marshal(fields{
		Name:     c.Name,
		Type:     c.Type,
		Color:    c.Color,
		Icon:     c.Icon,
		Keywords: c.Keywords,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding category %s: %w", c.ID, err)
	}

	return data, nil
}
