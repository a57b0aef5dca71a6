package expense

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/clock"
	"github.com/centsible/centsible/internal/record"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=expense

// Repository is the slice of the record store the expense service uses.
// Every write bumps the record's updated_at and sync version, which is
// what makes direct API edits visible to the sync change feed.
type Repository interface {
	Get(ctx context.Context, kind record.Kind, userID, id uuid.UUID) (*record.Record, error)
	List(ctx context.Context, kind record.Kind, userID uuid.UUID, includeDeleted bool) ([]*record.Record, error)
	Save(ctx context.Context, rec *record.Record) error
}

type Service struct {
	repo  Repository
	clock clock.Clock
}

func NewService(repo Repository, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System()
	}

	return &Service{repo: repo, clock: clk}
}

type CreateParams struct {
	Amount      int64
	Description string
	Category    string
	Notes       string
	Date        time.Time
	Tags        []string
}

type UpdateParams struct {
	Amount      *int64
	Description *string
	Category    *string
	Notes       *string
	Date        *time.Time
	Tags        []string
}

type ListFilter struct {
	Category  *string
	StartDate *time.Time
	EndDate   *time.Time
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Expense, error) {
	now := s.clock.Now()

	e := &Expense{
		ID:          uuid.New(),
		Amount:      params.Amount,
		Description: params.Description,
		Category:    params.Category,
		Notes:       params.Notes,
		Date:        params.Date,
		Tags:        params.Tags,
	}

	rec := &record.Record{
		ID:        e.ID,
		UserID:    userID,
		Kind:      record.KindExpense,
		UpdatedAt: now,
		CreatedAt: now,
	}

	data, err := e.encodeFields()
	if err != nil {
		return nil, err
	}

	rec.Data = data

	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	e.UpdatedAt = rec.UpdatedAt
	e.CreatedAt = rec.CreatedAt
	e.SyncVersion = rec.Sync.SyncVersion

	return e, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Expense, error) {
	rec, err := s.getActive(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	return fromRecord(rec)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Expense, error) {
	recs, err := s.repo.List(ctx, record.KindExpense, userID, false)
	if err != nil {
		return nil, err
	}

	expenses := make([]*Expense, 0, len(recs))

	for _, rec := range recs {
		e, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}

		if !filter.matches(e) {
			continue
		}

		expenses = append(expenses, e)
	}

	return expenses, nil
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, params UpdateParams) (*Expense, error) {
	rec, err := s.getActive(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	e, err := fromRecord(rec)
	if err != nil {
		return nil, err
	}

	if params.Amount != nil {
		e.Amount = *params.Amount
	}

	if params.Description != nil {
		e.Description = *params.Description
	}

	if params.Category != nil {
		e.Category = *params.Category
	}

	if params.Notes != nil {
		e.Notes = *params.Notes
	}

	if params.Date != nil {
		e.Date = *params.Date
	}

	if params.Tags != nil {
		e.Tags = params.Tags
	}

	data, err := e.encodeFields()
	if err != nil {
		return nil, err
	}

	rec.Data = data
	rec.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	e.UpdatedAt = rec.UpdatedAt
	e.SyncVersion = rec.Sync.SyncVersion

	return e, nil
}

// Delete soft-deletes the expense; the tombstone stays visible to sync
// consumers so the deletion propagates to other devices.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	rec, err := s.getActive(ctx, userID, id)
	if err != nil {
		return err
	}

	rec.Deleted = true
	rec.UpdatedAt = s.clock.Now()

	return s.repo.Save(ctx, rec)
}

func (s *Service) getActive(ctx context.Context, userID, id uuid.UUID) (*record.Record, error) {
	rec, err := s.repo.Get(ctx, record.KindExpense, userID, id)
	if errors.Is(err, record.ErrNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	if rec.Deleted {
		return nil, ErrNotFound
	}

	return rec, nil
}

func (f ListFilter) matches(e *Expense) bool {
	if f.Category != nil && e.Category != *f.Category {
		return false
	}

	if f.StartDate != nil && e.Date.Before(*f.StartDate) {
		return false
	}

	if f.EndDate != nil && e.Date.After(*f.EndDate) {
		return false
	}

	return true
}
