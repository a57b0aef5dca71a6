package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/record"
	"github.com/centsible/centsible/internal/syncer"
)

// Store persists syncable records. The three entity kinds live in
// structurally identical tables; the kind picks the table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const recordColumns = `
	id, user_id, data, deleted, updated_at, created_at,
	device_id, sync_version, last_synced_at, has_conflict, resolved_at
`

func scanRecord(s scanner, kind record.Kind) (*record.Record, error) {
	var (
		rec          record.Record
		lastSyncedAt sql.NullTime
		resolvedAt   sql.NullTime
	)

	if err := s.Scan(
		&rec.ID, &rec.UserID, &rec.Data, &rec.Deleted, &rec.UpdatedAt, &rec.CreatedAt,
		&rec.Sync.DeviceID, &rec.Sync.SyncVersion, &lastSyncedAt, &rec.Sync.HasConflict, &resolvedAt,
	); err != nil {
		return nil, err
	}

	rec.Kind = kind
	rec.Sync.LastSyncedAt = lastSyncedAt.Time

	if resolvedAt.Valid {
		rec.Sync.ResolvedAt = &resolvedAt.Time
	}

	return &rec, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getRecord(ctx context.Context, q querier, kind record.Kind, userID, id uuid.UUID) (*record.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND user_id = $2`, recordColumns, kind.Table())

	rec, err := scanRecord(q.QueryRowContext(ctx, query, id, userID), kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting %s record: %w", kind, err)
	}

	return rec, nil
}

func (s *Store) Get(ctx context.Context, kind record.Kind, userID, id uuid.UUID) (*record.Record, error) {
	return getRecord(ctx, s.db, kind, userID, id)
}

// List returns the user's records of one kind. Tombstones are excluded
// unless includeDeleted is set.
func (s *Store) List(ctx context.Context, kind record.Kind, userID uuid.UUID, includeDeleted bool) ([]*record.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1`, recordColumns, kind.Table())

	if !includeDeleted {
		query += " AND NOT deleted"
	}

	query += " ORDER BY updated_at DESC, id"

	return s.queryRecords(ctx, kind, query, userID)
}

// ListChangedSince returns records changed strictly after since,
// tombstones included, ordered by updated_at with ties broken by id.
func (s *Store) ListChangedSince(ctx context.Context, kind record.Kind, userID uuid.UUID, since time.Time) ([]*record.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at ASC, id ASC`, recordColumns, kind.Table())

	return s.queryRecords(ctx, kind, query, userID, since)
}

func (s *Store) CountChangedSince(ctx context.Context, kind record.Kind, userID uuid.UUID, since time.Time) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1 AND updated_at > $2`, kind.Table())

	var n int
	if err := s.db.QueryRowContext(ctx, query, userID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting changed %s records: %w", kind, err)
	}

	return n, nil
}

func (s *Store) queryRecords(ctx context.Context, kind record.Kind, query string, args ...any) ([]*record.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s records: %w", kind, err)
	}
	defer rows.Close()

	var recs []*record.Record

	for rows.Next() {
		rec, err := scanRecord(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("scanning %s record: %w", kind, err)
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s records: %w", kind, err)
	}

	return recs, nil
}

// Save upserts the record, bumping the sync version (1 on create). The
// caller's UpdatedAt, conflict marks and field bag are persisted as
// given; SyncVersion and CreatedAt are filled from the row. A row with
// the same id owned by another user is never touched; the write reports
// record.ErrNotFound instead.
func (s *Store) Save(ctx context.Context, rec *record.Record) error {
	table := rec.Kind.Table()
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, user_id, data, deleted, updated_at, created_at,
			device_id, sync_version, last_synced_at, has_conflict, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $5, $6, 1, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			deleted = EXCLUDED.deleted,
			updated_at = EXCLUDED.updated_at,
			device_id = EXCLUDED.device_id,
			sync_version = %[1]s.sync_version + 1,
			last_synced_at = EXCLUDED.last_synced_at,
			has_conflict = EXCLUDED.has_conflict,
			resolved_at = EXCLUDED.resolved_at
		WHERE %[1]s.user_id = EXCLUDED.user_id
		RETURNING sync_version, created_at
	`, table)

	err := s.db.QueryRowContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Data,
		rec.Deleted,
		rec.UpdatedAt,
		rec.Sync.DeviceID,
		nullTime(rec.Sync.LastSyncedAt),
		rec.Sync.HasConflict,
		rec.Sync.ResolvedAt,
	).Scan(&rec.Sync.SyncVersion, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return record.ErrNotFound
	}

	if err != nil {
		return fmt.Errorf("saving %s record: %w", rec.Kind, err)
	}

	return nil
}

// PurgeTombstones physically removes tombstones last touched before
// olderThan, across all kinds.
func (s *Store) PurgeTombstones(ctx context.Context, userID uuid.UUID, olderThan time.Time) (int, error) {
	total := 0

	for _, kind := range record.Kinds() {
		query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND deleted AND updated_at < $2`, kind.Table())

		res, err := s.db.ExecContext(ctx, query, userID, olderThan)
		if err != nil {
			return total, fmt.Errorf("purging %s tombstones: %w", kind, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("purging %s tombstones: %w", kind, err)
		}

		total += int(n)
	}

	return total, nil
}

// Begin starts the transaction wrapping one push.
func (s *Store) Begin(ctx context.Context) (syncer.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning push tx: %w", err)
	}

	return &pushTx{tx: tx}, nil
}

type pushTx struct {
	tx *sql.Tx
}

func (p *pushTx) Commit() error   { return p.tx.Commit() }
func (p *pushTx) Rollback() error { return p.tx.Rollback() }

func (p *pushTx) Get(ctx context.Context, kind record.Kind, userID, id uuid.UUID) (*record.Record, error) {
	return getRecord(ctx, p.tx, kind, userID, id)
}

func (p *pushTx) Create(ctx context.Context, rec *record.Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, data, deleted, updated_at, created_at,
			device_id, sync_version, last_synced_at, has_conflict)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $7, $8, false)
	`, rec.Kind.Table())

	_, err := p.tx.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Data,
		rec.Deleted,
		rec.UpdatedAt,
		rec.Sync.DeviceID,
		rec.Sync.SyncVersion,
		nullTime(rec.Sync.LastSyncedAt),
	)
	if err != nil {
		return fmt.Errorf("creating %s record: %w", rec.Kind, err)
	}

	return nil
}

// Update is the conditional write that closes the read-then-write race:
// the row is only touched while its updated_at has not moved past
// notAfter, so a concurrent winner turns this into a reported conflict
// instead of a silent overwrite.
func (p *pushTx) Update(ctx context.Context, rec *record.Record, notAfter time.Time) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET data = $1, deleted = $2, updated_at = $3, device_id = $4,
			last_synced_at = $5, sync_version = sync_version + 1
		WHERE id = $6 AND user_id = $7 AND updated_at <= $8
		RETURNING sync_version
	`, rec.Kind.Table())

	err := p.tx.QueryRowContext(ctx, query,
		rec.Data,
		rec.Deleted,
		rec.UpdatedAt,
		rec.Sync.DeviceID,
		nullTime(rec.Sync.LastSyncedAt),
		rec.ID,
		rec.UserID,
		notAfter,
	).Scan(&rec.Sync.SyncVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("updating %s record: %w", rec.Kind, err)
	}

	return true, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
