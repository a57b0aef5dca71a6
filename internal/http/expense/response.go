package expense

import (
	"time"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/expense"
)

type expenseResponse struct {
	ID          uuid.UUID `json:"id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Date        time.Time `json:"date"`
	Tags        []string  `json:"tags,omitempty"`
	SyncVersion int64     `json:"syncVersion"`
	UpdatedAt   time.Time `json:"updatedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toResponse(e *expense.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Amount:      e.Amount,
		Description: e.Description,
		Category:    e.Category,
		Notes:       e.Notes,
		Date:        e.Date,
		Tags:        e.Tags,
		SyncVersion: e.SyncVersion,
		UpdatedAt:   e.UpdatedAt,
		CreatedAt:   e.CreatedAt,
	}
}

func toResponseList(expenses []*expense.Expense) []expenseResponse {
	resp := make([]expenseResponse, len(expenses))
	for i, e := range expenses {
		resp[i] = toResponse(e)
	}

	return resp
}
