package expense_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/centsible/centsible/internal/clock"
	"github.com/centsible/centsible/internal/expense"
	"github.com/centsible/centsible/internal/record"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func storedExpense(userID, id uuid.UUID) *record.Record {
	return &record.Record{
		ID:        id,
		UserID:    userID,
		Kind:      record.KindExpense,
		Data:      []byte(`{"amount":1250,"description":"Lunch","category":"food","date":"2024-04-30T00:00:00Z","tags":["work"]}`),
		UpdatedAt: baseTime.Add(-time.Hour),
		CreatedAt: baseTime.Add(-2 * time.Hour),
		Sync:      record.SyncMeta{SyncVersion: 2},
	}
}

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		setupMock func(m *expense.MockRepository)
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Success",
			setupMock: func(m *expense.MockRepository) {
				m.EXPECT().
					Save(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, rec *record.Record) error {
						rec.Sync.SyncVersion = 1
						return nil
					})
			},
		},
		{
			name: "RepoError",
			setupMock: func(m *expense.MockRepository) {
				m.EXPECT().
					Save(gomock.Any(), gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := expense.NewMockRepository(ctrl)
			tt.setupMock(repo)

			svc := expense.NewService(repo, clock.NewFake(baseTime))

			got, err := svc.Create(context.Background(), uuid.New(), expense.CreateParams{
				Amount:      1250,
				Description: "Lunch",
				Category:    "food",
				Date:        baseTime,
			})

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, got.ID)
			assert.Equal(t, int64(1250), got.Amount)
			assert.Equal(t, int64(1), got.SyncVersion)
			assert.Equal(t, baseTime, got.UpdatedAt)
		})
	}
}

func TestService_Get(t *testing.T) {
	userID := uuid.New()
	id := uuid.New()

	type testCase struct {
		name      string
		setupMock func(m *expense.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			setupMock: func(m *expense.MockRepository) {
				m.EXPECT().
					Get(gomock.Any(), record.KindExpense, userID, id).
					Return(storedExpense(userID, id), nil)
			},
		},
		{
			name: "NotFound",
			setupMock: func(m *expense.MockRepository) {
				m.EXPECT().
					Get(gomock.Any(), record.KindExpense, userID, id).
					Return(nil, record.ErrNotFound)
			},
			wantErr: expense.ErrNotFound,
		},
		{
			name: "DeletedReadsAsNotFound",
			setupMock: func(m *expense.MockRepository) {
				rec := storedExpense(userID, id)
				rec.Deleted = true
				m.EXPECT().
					Get(gomock.Any(), record.KindExpense, userID, id).
					Return(rec, nil)
			},
			wantErr: expense.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := expense.NewMockRepository(ctrl)
			tt.setupMock(repo)

			svc := expense.NewService(repo, clock.NewFake(baseTime))
			got, err := svc.Get(context.Background(), userID, id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Lunch", got.Description)
			assert.Equal(t, []string{"work"}, got.Tags)
		})
	}
}

func TestService_List_Filters(t *testing.T) {
	userID := uuid.New()

	food := storedExpense(userID, uuid.New())
	travel := storedExpense(userID, uuid.New())
	travel.Data = []byte(`{"amount":9000,"description":"Train","category":"travel","date":"2024-03-01T00:00:00Z"}`)

	ctrl := gomock.NewController(t)

	repo := expense.NewMockRepository(ctrl)
	repo.EXPECT().
		List(gomock.Any(), record.KindExpense, userID, false).
		Return([]*record.Record{food, travel}, nil)

	svc := expense.NewService(repo, clock.NewFake(baseTime))

	category := "travel"

	got, err := svc.List(context.Background(), userID, expense.ListFilter{Category: &category})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "Train", got[0].Description)
}

func TestService_Update(t *testing.T) {
	userID := uuid.New()
	id := uuid.New()

	ctrl := gomock.NewController(t)

	repo := expense.NewMockRepository(ctrl)
	repo.EXPECT().
		Get(gomock.Any(), record.KindExpense, userID, id).
		Return(storedExpense(userID, id), nil)

	var saved *record.Record

	repo.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *record.Record) error {
			rec.Sync.SyncVersion = 3
			saved = rec
			return nil
		})

	svc := expense.NewService(repo, clock.NewFake(baseTime))

	amount := int64(1500)

	got, err := svc.Update(context.Background(), userID, id, expense.UpdateParams{Amount: &amount})
	require.NoError(t, err)

	assert.Equal(t, int64(1500), got.Amount)
	// Untouched fields survive a partial update.
	assert.Equal(t, "Lunch", got.Description)
	assert.Equal(t, int64(3), got.SyncVersion)

	require.NotNil(t, saved)
	assert.Equal(t, baseTime, saved.UpdatedAt)
}

func TestService_Delete(t *testing.T) {
	userID := uuid.New()
	id := uuid.New()

	ctrl := gomock.NewController(t)

	repo := expense.NewMockRepository(ctrl)
	repo.EXPECT().
		Get(gomock.Any(), record.KindExpense, userID, id).
		Return(storedExpense(userID, id), nil)

	var saved *record.Record

	repo.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *record.Record) error {
			saved = rec
			return nil
		})

	svc := expense.NewService(repo, clock.NewFake(baseTime))

	require.NoError(t, svc.Delete(context.Background(), userID, id))

	// Soft delete: the record stays, flagged, with a fresh timestamp so
	// the deletion reaches other devices through the change feed.
	require.NotNil(t, saved)
	assert.True(t, saved.Deleted)
	assert.Equal(t, baseTime, saved.UpdatedAt)
}
