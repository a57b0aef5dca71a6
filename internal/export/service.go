package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centsible/centsible/internal/expense"
)

// ExpenseLister is the read surface the exporter needs.
type ExpenseLister interface {
	List(ctx context.Context, userID uuid.UUID, filter expense.ListFilter) ([]*expense.Expense, error)
}

// Service renders a user's expenses as CSV or JSON. The CSV layout is
// the same one the importer reads, so an export can be re-imported.
type Service struct {
	expenses ExpenseLister
}

func NewService(expenses ExpenseLister) *Service {
	return &Service{expenses: expenses}
}

var csvHeader = []string{"date", "amount", "description", "category", "notes", "tags"}

func (s *Service) WriteCSV(ctx context.Context, w io.Writer, userID uuid.UUID, filter expense.ListFilter) error {
	expenses, err := s.expenses.List(ctx, userID, filter)
	if err != nil {
		return fmt.Errorf("listing expenses: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, e := range expenses {
		row := []string{
			e.Date.Format(time.DateOnly),
			decimal.New(e.Amount, -2).StringFixed(2),
			e.Description,
			e.Category,
			e.Notes,
			strings.Join(e.Tags, ";"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing expense %s: %w", e.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

type jsonExpense struct {
	ID          uuid.UUID `json:"id"`
	Date        time.Time `json:"date"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

func (s *Service) WriteJSON(ctx context.Context, w io.Writer, userID uuid.UUID, filter expense.ListFilter) error {
	expenses, err := s.expenses.List(ctx, userID, filter)
	if err != nil {
		return fmt.Errorf("listing expenses: %w", err)
	}

	out := make([]jsonExpense, 0, len(expenses))

	for _, e := range expenses {
		out = append(out, jsonExpense{
			ID:          e.ID,
			Date:        e.Date,
			Amount:      e.Amount,
			Description: e.Description,
			Category:    e.Category,
			Notes:       e.Notes,
			Tags:        e.Tags,
		})
	}

	enc := json.NewEncoder(w)

	return enc.Encode(out)
}
