package budget

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/clock"
	"github.com/centsible/centsible/internal/record"
)

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
	Name      string
	Category  string
	Amount    int64
	Period    Period
	StartDate time.Time
}

type UpdateParams struct {
	Name      *string
	Category  *string
	Amount    *int64
	Period    *Period
	StartDate *time.Time
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Budget, error) {
	now := s.clock.Now()

	b := &Budget{
		ID:        uuid.New(),
		Name:      params.Name,
		Category:  params.Category,
		Amount:    params.Amount,
		Period:    params.Period,
		StartDate: params.StartDate,
		IsActive:  true,
	}

	rec := &record.Record{
		ID:        b.ID,
		UserID:    userID,
		Kind:      record.KindBudget,
		UpdatedAt: now,
		CreatedAt: now,
	}

	data, err := b.encodeFields()
	if err != nil {
		return nil, err
	}

	rec.Data = data

	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	b.UpdatedAt = rec.UpdatedAt
	b.CreatedAt = rec.CreatedAt
	b.SyncVersion = rec.Sync.SyncVersion

	return b, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Budget, error) {
	rec, err := s.getActive(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	return fromRecord(rec)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Budget, error) {
	recs, err := s.repo.List(ctx, record.KindBudget, userID, false)
	if err != nil {
		return nil, err
	}

	budgets := make([]*Budget, 0, len(recs))

	for _, rec := range recs {
		b, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}

		budgets = append(budgets, b)
	}

	return budgets, nil
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, params UpdateParams) (*Budget, error) {
	rec, err := s.getActive(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	b, err := fromRecord(rec)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		b.Name = *params.Name
	}

	if params.Category != nil {
		b.Category = *params.Category
	}

	if params.Amount != nil {
		b.Amount = *params.Amount
	}

	if params.Period != nil {
		b.Period = *params.Period
	}

	if params.StartDate != nil {
		b.StartDate = *params.StartDate
	}

	data, err := b.encodeFields()
	if err != nil {
		return nil, err
	}

	rec.Data = data
	rec.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	b.UpdatedAt = rec.UpdatedAt
	b.SyncVersion = rec.Sync.SyncVersion

	return b, nil
}

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
	rec, err := s.repo.Get(ctx, record.KindBudget, userID, id)
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
