package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centsible/centsible/internal/budget"
	"github.com/centsible/centsible/internal/expense"
)

// ExpenseLister and BudgetLister are the read-only slices of the CRUD
// services this package aggregates over.
type ExpenseLister interface {
	List(ctx context.Context, userID uuid.UUID, filter expense.ListFilter) ([]*expense.Expense, error)
}

type BudgetLister interface {
	List(ctx context.Context, userID uuid.UUID) ([]*budget.Budget, error)
}

type Service struct {
	expenses ExpenseLister
	budgets  BudgetLister
}

func NewService(expenses ExpenseLister, budgets BudgetLister) *Service {
	return &Service{expenses: expenses, budgets: budgets}
}

// CategoryTotal is the spend in one category over the summary window.
type CategoryTotal struct {
	Category string
	Spent    int64
	Count    int
}

// BudgetUtilization reports how much of a budget's allocation the window
// consumed. Percent is allocated-relative with two decimal places.
type BudgetUtilization struct {
	Name      string
	Category  string
	Allocated int64
	Spent     int64
	Percent   decimal.Decimal
	Exceeded  bool
}

type Summary struct {
	From       time.Time
	To         time.Time
	TotalSpent int64
	Count      int
	Categories []CategoryTotal
	Budgets    []BudgetUtilization
}

// Summary aggregates the user's spending between from and to inclusive.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID, from, to time.Time) (*Summary, error) {
	filter := expense.ListFilter{}
	if !from.IsZero() {
		filter.StartDate = &from
	}

	if !to.IsZero() {
		filter.EndDate = &to
	}

	expenses, err := s.expenses.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}

	summary := &Summary{From: from, To: to, Count: len(expenses)}
	perCategory := make(map[string]*CategoryTotal)

	for _, e := range expenses {
		summary.TotalSpent += e.Amount

		ct := perCategory[e.Category]
		if ct == nil {
			ct = &CategoryTotal{Category: e.Category}
			perCategory[e.Category] = ct
		}

		ct.Spent += e.Amount
		ct.Count++
	}

	for _, ct := range perCategory {
		summary.Categories = append(summary.Categories, *ct)
	}

	sort.Slice(summary.Categories, func(i, j int) bool {
		if summary.Categories[i].Spent != summary.Categories[j].Spent {
			return summary.Categories[i].Spent > summary.Categories[j].Spent
		}

		return summary.Categories[i].Category < summary.Categories[j].Category
	})

	budgets, err := s.budgets.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}

	for _, b := range budgets {
		spent := int64(0)
		if ct, ok := perCategory[b.Category]; ok {
			spent = ct.Spent
		}

		summary.Budgets = append(summary.Budgets, BudgetUtilization{
			Name:      b.Name,
			Category:  b.Category,
			Allocated: b.Amount,
			Spent:     spent,
			Percent:   utilization(spent, b.Amount),
			Exceeded:  spent > b.Amount,
		})
	}

	return summary, nil
}

func utilization(spent, allocated int64) decimal.Decimal {
	if allocated == 0 {
		return decimal.Zero
	}

	return decimal.NewFromInt(spent).
		Div(decimal.NewFromInt(allocated)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}
