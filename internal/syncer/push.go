package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/device"
	"github.com/centsible/centsible/internal/notify"
	"github.com/centsible/centsible/internal/record"
)

// Push applies a batch of client changes as one atomic unit. Conflicting
// changes never block the rest of the batch; a storage failure rolls the
// whole push back. Changes are idempotent by id, so callers retry the
// entire batch on error.
func (s *Service) Push(ctx context.Context, userID uuid.UUID, deviceID string, batch Batch) (*PushResult, error) {
	if err := validatePush(deviceID, batch); err != nil {
		return nil, err
	}

	now := s.clock.Now()

	tx, err := s.records.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning push: %w", err)
	}
	defer tx.Rollback()

	result := &PushResult{Timestamp: now}

	var highWater time.Time

	for _, group := range batch.groups() {
		for _, ch := range group.Changes {
			applied, err := s.applyChange(ctx, tx, userID, deviceID, group.Kind, ch, now, result)
			if err != nil {
				return nil, err
			}

			if applied && now.After(highWater) {
				highWater = now
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing push: %w", err)
	}

	// The device's high-water mark is the newest server timestamp this
	// push actually wrote. A push that applied nothing still observed
	// server state at least as fresh as its own start time.
	mark := highWater
	if mark.IsZero() {
		mark = now
	}

	s.touchDevice(ctx, userID, deviceID, mark)
	s.purgeTombstones(ctx, userID, now)

	if s.notifier != nil && len(result.Processed) > 0 {
		s.notifier.Broadcast(userID, notify.Event{
			Type:      notify.EventSyncUpdate,
			DeviceID:  deviceID,
			Changes:   result.Processed,
			Timestamp: result.Timestamp,
		})
	}

	return result, nil
}

func validatePush(deviceID string, batch Batch) error {
	if deviceID == "" {
		return &ValidationError{Field: "deviceId", Msg: "must not be empty"}
	}

	for _, group := range batch.groups() {
		for i, ch := range group.Changes {
			if ch.ID == uuid.Nil {
				return &ValidationError{
					Field: fmt.Sprintf("changes.%s[%d].id", group.Kind, i),
					Msg:   "must not be empty",
				}
			}

			switch ch.Action {
			case record.ActionUpsert:
				if _, _, err := record.DecodePayload(group.Kind, ch.Data); err != nil {
					return &ValidationError{
						Field: fmt.Sprintf("changes.%s[%d].data", group.Kind, i),
						Msg:   "must be a JSON object",
					}
				}
			case record.ActionDelete:
			default:
				return &ValidationError{
					Field: fmt.Sprintf("changes.%s[%d].action", group.Kind, i),
					Msg:   fmt.Sprintf("unknown action %q", ch.Action),
				}
			}
		}
	}

	return nil
}

// applyChange processes one change. It reports whether server state was
// written; conflicts are appended to result and are not errors.
func (s *Service) applyChange(ctx context.Context, tx Tx, userID uuid.UUID, deviceID string, kind record.Kind, ch Change, now time.Time, result *PushResult) (bool, error) {
	if ch.Action == record.ActionDelete {
		return s.applyDelete(ctx, tx, userID, deviceID, kind, ch, now, result)
	}

	return s.applyUpsert(ctx, tx, userID, deviceID, kind, ch, now, result)
}

func (s *Service) applyDelete(ctx context.Context, tx Tx, userID uuid.UUID, deviceID string, kind record.Kind, ch Change, now time.Time, result *PushResult) (bool, error) {
	existing, err := tx.Get(ctx, kind, userID, ch.ID)
	if errors.Is(err, record.ErrNotFound) {
		// Already gone; deleting is a no-op but still acknowledged.
		result.Processed = append(result.Processed, Applied{ID: ch.ID, Kind: kind, Action: AppliedDeleted})
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("loading %s %s: %w", kind, ch.ID, err)
	}

	// Snapshot the server's view before mutating existing below: a refused
	// conditional update must still report the server's record, not the
	// tombstone we staged in memory.
	remote, err := existing.Payload()
	if err != nil {
		return false, err
	}

	if existing.UpdatedAt.After(ch.ClientTimestamp) {
		s.addConflict(result, kind, ch, ReasonNewerVersionExists, remote)
		return false, nil
	}

	existing.Deleted = true
	existing.UpdatedAt = now
	existing.Sync.DeviceID = deviceID
	existing.Sync.LastSyncedAt = now

	ok, err := tx.Update(ctx, existing, ch.ClientTimestamp)
	if err != nil {
		return false, fmt.Errorf("deleting %s %s: %w", kind, ch.ID, err)
	}

	if !ok {
		s.addConflict(result, kind, ch, ReasonNewerVersionExists, remote)
		return false, nil
	}

	result.Processed = append(result.Processed, Applied{
		ID:          ch.ID,
		Kind:        kind,
		Action:      AppliedDeleted,
		SyncVersion: existing.Sync.SyncVersion,
	})

	return true, nil
}

func (s *Service) applyUpsert(ctx context.Context, tx Tx, userID uuid.UUID, deviceID string, kind record.Kind, ch Change, now time.Time, result *PushResult) (bool, error) {
	fields, _, err := record.DecodePayload(kind, ch.Data)
	if err != nil {
		return false, err
	}

	existing, err := tx.Get(ctx, kind, userID, ch.ID)
	if errors.Is(err, record.ErrNotFound) {
		rec := &record.Record{
			ID:        ch.ID,
			UserID:    userID,
			Kind:      kind,
			UpdatedAt: now,
			CreatedAt: now,
			Sync: record.SyncMeta{
				DeviceID:     deviceID,
				SyncVersion:  1,
				LastSyncedAt: now,
			},
		}
		if err := rec.SetFields(fields); err != nil {
			return false, err
		}

		if err := tx.Create(ctx, rec); err != nil {
			return false, fmt.Errorf("creating %s %s: %w", kind, ch.ID, err)
		}

		result.Processed = append(result.Processed, Applied{
			ID:          ch.ID,
			Kind:        kind,
			Action:      AppliedCreated,
			SyncVersion: rec.Sync.SyncVersion,
		})

		return true, nil
	}

	if err != nil {
		return false, fmt.Errorf("loading %s %s: %w", kind, ch.ID, err)
	}

	// Snapshot the server's view before the merge rewrites existing: a
	// refused conditional update must still report the server's record,
	// not the client's own fields merged back at it.
	remote, err := existing.Payload()
	if err != nil {
		return false, err
	}

	if existing.UpdatedAt.After(ch.ClientTimestamp) {
		s.addConflict(result, kind, ch, ReasonConcurrentModification, remote)
		return false, nil
	}

	if err := existing.MergeFields(fields); err != nil {
		return false, err
	}

	// An accepted upsert asserts the record exists; a client basing its
	// edit on state newer than a remote delete wins over the tombstone.
	existing.Deleted = false
	existing.UpdatedAt = now
	existing.Sync.DeviceID = deviceID
	existing.Sync.LastSyncedAt = now

	ok, err := tx.Update(ctx, existing, ch.ClientTimestamp)
	if err != nil {
		return false, fmt.Errorf("updating %s %s: %w", kind, ch.ID, err)
	}

	if !ok {
		s.addConflict(result, kind, ch, ReasonConcurrentModification, remote)
		return false, nil
	}

	result.Processed = append(result.Processed, Applied{
		ID:          ch.ID,
		Kind:        kind,
		Action:      AppliedUpdated,
		SyncVersion: existing.Sync.SyncVersion,
	})

	return true, nil
}

func (s *Service) addConflict(result *PushResult, kind record.Kind, ch Change, reason Reason, remote map[string]any) {
	result.Conflicts = append(result.Conflicts, Conflict{
		ID:         ch.ID,
		Kind:       kind,
		Reason:     reason,
		LocalData:  ch.Data,
		RemoteData: remote,
	})
}

// touchDevice advances the device's high-water mark, registering the
// device on first contact. Best effort: a failure here only delays the
// next incremental sync, it never fails a committed push.
func (s *Service) touchDevice(ctx context.Context, userID uuid.UUID, deviceID string, mark time.Time) {
	err := s.devices.SetLastSync(ctx, userID, deviceID, mark)
	if errors.Is(err, device.ErrNotFound) {
		d := &device.Device{
			DeviceID:   deviceID,
			UserID:     userID,
			Platform:   device.PlatformWeb,
			LastSyncAt: &mark,
			IsActive:   true,
			CreatedAt:  s.clock.Now(),
		}
		err = s.devices.Upsert(ctx, d)
	}

	if err != nil {
		s.logger.Error("failed to update device sync mark", "error", err, "user_id", userID, "device_id", deviceID)
	}
}

// purgeTombstones drops soft-deleted records every active device has
// already synced past, bounded by a minimum retention age.
func (s *Service) purgeTombstones(ctx context.Context, userID uuid.UUID, now time.Time) {
	oldest, err := s.devices.OldestLastSync(ctx, userID)
	if err != nil {
		s.logger.Error("failed to read device sync marks", "error", err, "user_id", userID)
		return
	}

	if oldest == nil {
		// Some active device has never synced; keep every tombstone.
		return
	}

	cutoff := now.Add(-s.tombstoneMinAge)
	if oldest.Before(cutoff) {
		cutoff = *oldest
	}

	purged, err := s.records.PurgeTombstones(ctx, userID, cutoff)
	if err != nil {
		s.logger.Error("failed to purge tombstones", "error", err, "user_id", userID)
		return
	}

	if purged > 0 {
		s.logger.Info("purged tombstones", "user_id", userID, "count", purged)
	}
}
