package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/device"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const deviceColumns = `device_id, user_id, name, platform, last_sync_at, is_active, created_at`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*device.Device, error) {
	var (
		d          device.Device
		platform   string
		lastSyncAt sql.NullTime
	)

	if err := s.Scan(&d.DeviceID, &d.UserID, &d.Name, &platform, &lastSyncAt, &d.IsActive, &d.CreatedAt); err != nil {
		return nil, err
	}

	d.Platform = device.Platform(platform)

	if lastSyncAt.Valid {
		d.LastSyncAt = &lastSyncAt.Time
	}

	return &d, nil
}

func (s *Store) Get(ctx context.Context, userID uuid.UUID, deviceID string) (*device.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE user_id = $1 AND device_id = $2`

	d, err := scanDevice(s.db.QueryRowContext(ctx, query, userID, deviceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, device.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting device: %w", err)
	}

	return d, nil
}

func (s *Store) List(ctx context.Context, userID uuid.UUID) ([]*device.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE user_id = $1 ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var devices []*device.Device

	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}

		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// Upsert registers the device or refreshes an existing entry's name,
// platform and active flag, keeping its sync mark.
func (s *Store) Upsert(ctx context.Context, d *device.Device) error {
	query := `
		INSERT INTO devices (device_id, user_id, name, platform, last_sync_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			name = EXCLUDED.name,
			platform = EXCLUDED.platform,
			is_active = true
		RETURNING last_sync_at, created_at
	`

	var lastSyncAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query,
		d.DeviceID,
		d.UserID,
		d.Name,
		string(d.Platform),
		nullTime(d.LastSyncAt),
		d.IsActive,
		d.CreatedAt,
	).Scan(&lastSyncAt, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting device: %w", err)
	}

	if lastSyncAt.Valid {
		d.LastSyncAt = &lastSyncAt.Time
	}

	return nil
}

// SetLastSync advances the device's sync high-water mark. The mark never
// moves backwards.
func (s *Store) SetLastSync(ctx context.Context, userID uuid.UUID, deviceID string, at time.Time) error {
	query := `
		UPDATE devices
		SET last_sync_at = GREATEST(COALESCE(last_sync_at, $3), $3)
		WHERE user_id = $1 AND device_id = $2
	`

	res, err := s.db.ExecContext(ctx, query, userID, deviceID, at)
	if err != nil {
		return fmt.Errorf("updating device sync mark: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating device sync mark: %w", err)
	}

	if n == 0 {
		return device.ErrNotFound
	}

	return nil
}

// OldestLastSync returns the earliest sync mark across the user's active
// devices, or nil when any active device has never synced.
func (s *Store) OldestLastSync(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	query := `
		SELECT MIN(last_sync_at), COUNT(*) FILTER (WHERE last_sync_at IS NULL)
		FROM devices
		WHERE user_id = $1 AND is_active
	`

	var (
		oldest      sql.NullTime
		neverSynced int
	)

	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&oldest, &neverSynced); err != nil {
		return nil, fmt.Errorf("reading device sync marks: %w", err)
	}

	if neverSynced > 0 || !oldest.Valid {
		return nil, nil
	}

	return &oldest.Time, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}
