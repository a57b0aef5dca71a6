package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centsible/centsible/internal/record"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(db), mock
}

const saveQueryPattern = `(?s)INSERT INTO expenses.*ON CONFLICT \(id\) DO UPDATE SET.*WHERE expenses\.user_id = EXCLUDED\.user_id.*RETURNING sync_version, created_at`

func TestStore_Save_UpsertsOwnRecord(t *testing.T) {
	s, mock := newStoreWithMock(t)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := &record.Record{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Kind:      record.KindExpense,
		Data:      []byte(`{"amount":100}`),
		UpdatedAt: now,
		Sync: record.SyncMeta{
			DeviceID:     "device-a",
			LastSyncedAt: now,
		},
	}

	mock.ExpectQuery(saveQueryPattern).
		WithArgs(
			rec.ID, rec.UserID, rec.Data, false, now,
			"device-a", sqlmock.AnyArg(), false, nil,
		).
		WillReturnRows(sqlmock.NewRows([]string{"sync_version", "created_at"}).AddRow(int64(3), now))

	require.NoError(t, s.Save(context.Background(), rec))
	assert.Equal(t, int64(3), rec.Sync.SyncVersion)
	assert.Equal(t, now, rec.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A row with the same id but a different owner must be left alone: the
// guarded upsert matches no row and the write reports not-found instead
// of rewriting the other user's data.
func TestStore_Save_RefusesForeignRecord(t *testing.T) {
	s, mock := newStoreWithMock(t)

	rec := &record.Record{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Kind:      record.KindExpense,
		Data:      []byte(`{"amount":100}`),
		UpdatedAt: time.Now(),
	}

	mock.ExpectQuery(saveQueryPattern).
		WillReturnRows(sqlmock.NewRows([]string{"sync_version", "created_at"}))

	err := s.Save(context.Background(), rec)
	require.ErrorIs(t, err, record.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Save_DBError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	rec := &record.Record{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Kind:      record.KindExpense,
		Data:      []byte(`{}`),
		UpdatedAt: time.Now(),
	}

	mock.ExpectQuery(saveQueryPattern).
		WillReturnError(errors.New("connection reset"))

	err := s.Save(context.Background(), rec)
	require.Error(t, err)
	assert.NotErrorIs(t, err, record.ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestStore_Get_ScopesByUser(t *testing.T) {
	s, mock := newStoreWithMock(t)

	userID := uuid.New()
	id := uuid.New()

	mock.ExpectQuery(`(?s)SELECT.*FROM expenses WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, userID).
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), record.KindExpense, userID, id)
	require.ErrorIs(t, err, record.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
