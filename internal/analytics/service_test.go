package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centsible/centsible/internal/analytics"
	"github.com/centsible/centsible/internal/budget"
	"github.com/centsible/centsible/internal/expense"
)

type stubExpenses struct {
	expenses []*expense.Expense
}

func (s stubExpenses) List(_ context.Context, _ uuid.UUID, _ expense.ListFilter) ([]*expense.Expense, error) {
	return s.expenses, nil
}

type stubBudgets struct {
	budgets []*budget.Budget
}

func (s stubBudgets) List(_ context.Context, _ uuid.UUID) ([]*budget.Budget, error) {
	return s.budgets, nil
}

func TestService_Summary(t *testing.T) {
	expenses := stubExpenses{expenses: []*expense.Expense{
		{Amount: 3000, Category: "food"},
		{Amount: 1500, Category: "food"},
		{Amount: 8000, Category: "travel"},
	}}
	budgets := stubBudgets{budgets: []*budget.Budget{
		{Name: "Eating out", Category: "food", Amount: 10000},
		{Name: "Trips", Category: "travel", Amount: 5000},
		{Name: "Hobbies", Category: "hobby", Amount: 2000},
	}}

	svc := analytics.NewService(expenses, budgets)

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	summary, err := svc.Summary(context.Background(), uuid.New(), from, to)
	require.NoError(t, err)

	assert.Equal(t, int64(12500), summary.TotalSpent)
	assert.Equal(t, 3, summary.Count)

	// Biggest spend first.
	require.Len(t, summary.Categories, 2)
	assert.Equal(t, "travel", summary.Categories[0].Category)
	assert.Equal(t, int64(8000), summary.Categories[0].Spent)
	assert.Equal(t, "food", summary.Categories[1].Category)
	assert.Equal(t, 2, summary.Categories[1].Count)

	require.Len(t, summary.Budgets, 3)

	food := summary.Budgets[0]
	assert.Equal(t, int64(4500), food.Spent)
	assert.Equal(t, "45", food.Percent.String())
	assert.False(t, food.Exceeded)

	travel := summary.Budgets[1]
	assert.Equal(t, "160", travel.Percent.String())
	assert.True(t, travel.Exceeded)

	hobby := summary.Budgets[2]
	assert.Equal(t, int64(0), hobby.Spent)
	assert.True(t, hobby.Percent.IsZero())
	assert.False(t, hobby.Exceeded)
}
