package category

import (
	"context"
	"errors"

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
	Name     string
	Type     Type
	Color    string
	Icon     string
	Keywords []string
}

type UpdateParams struct {
	Name     *string
	Color    *string
	Icon     *string
	Keywords []string
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Category, error) {
	now := s.clock.Now()

	c := &Category{
		ID:       uuid.New(),
		Name:     params.Name,
		Type:     params.Type,
		Color:    params.Color,
		Icon:     params.Icon,
		Keywords: params.Keywords,
		IsActive: true,
	}

	rec := &record.Record{
		ID:        c.ID,
		UserID:    userID,
		Kind:      record.KindCategory,
		UpdatedAt: now,
		CreatedAt: now,
	}

	data, err := c.encodeFields()
	if err != nil {
		return nil, err
	}

	rec.Data = data

	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	c.UpdatedAt = rec.UpdatedAt
	c.CreatedAt = rec.CreatedAt
	c.SyncVersion = rec.Sync.SyncVersion

	return c, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Category, error) {
	rec, err := s.getActive(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	return fromRecord(rec)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Category, error) {
	recs, err := s.repo.List(ctx, record.KindCategory, userID, false)
	if err != nil {
		return nil, err
	}

	categories := make([]*Category, 0, len(recs))

	for _, rec := range recs {
		c, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}

		categories = append(categories, c)
	}

	return categories, nil
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, params UpdateParams) (*Category, error) {
	rec, err := s.getActive(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	c, err := fromRecord(rec)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		c.Name = *params.Name
	}

	if params.Color != nil {
		c.Color = *params.Color
	}

	if params.Icon != nil {
		c.Icon = *params.Icon
	}

	if params.Keywords != nil {
		c.Keywords = params.Keywords
	}

	data, err := c.encodeFields()
	if err != nil {
		return nil, err
	}

	rec.Data = data
	rec.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	c.UpdatedAt = rec.UpdatedAt
	c.SyncVersion = rec.Sync.SyncVersion

	return c, nil
}

// Delete deactivates the category. The record stays behind as a
// tombstone for sync propagation.
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
	rec, err := s.repo.Get(ctx, record.KindCategory, userID, id)
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
