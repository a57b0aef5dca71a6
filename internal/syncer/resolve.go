package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/record"
)

// Resolve applies the chosen strategy to each conflict and persists the
// outcome. Resolutions are committed independently: a storage failure on
// one aborts the call but leaves earlier resolutions in place. Every
// resolution is an upsert, so resolving with local data resurrects a
// record deleted on the server.
func (s *Service) Resolve(ctx context.Context, userID uuid.UUID, resolutions []ConflictResolution) ([]Resolved, error) {
	for i, res := range resolutions {
		if res.ID == uuid.Nil {
			return nil, &ValidationError{Field: fmt.Sprintf("conflicts[%d].id", i), Msg: "must not be empty"}
		}

		if !res.Kind.Valid() {
			return nil, &ValidationError{
				Field: fmt.Sprintf("conflicts[%d].type", i),
				Msg:   fmt.Sprintf("unknown entity type %q", res.Kind),
			}
		}

		if !res.Resolution.Valid() {
			return nil, &ValidationError{
				Field: fmt.Sprintf("conflicts[%d].resolution", i),
				Msg:   fmt.Sprintf("unknown resolution %q", res.Resolution),
			}
		}
	}

	resolved := make([]Resolved, 0, len(resolutions))

	for _, res := range resolutions {
		rec, err := s.resolveOne(ctx, userID, res)
		if err != nil {
			return nil, err
		}

		payload, err := rec.Payload()
		if err != nil {
			return nil, err
		}

		resolved = append(resolved, Resolved{ID: res.ID, Kind: res.Kind, Data: payload})
	}

	return resolved, nil
}

func (s *Service) resolveOne(ctx context.Context, userID uuid.UUID, res ConflictResolution) (*record.Record, error) {
	fields, deleted, err := s.finalState(res)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	// The resolution rewrites the row wholesale; keep the stored device
	// attribution instead of blanking it. A missing row is the
	// resurrection case and carries no attribution yet.
	deviceID := ""

	existing, err := s.records.Get(ctx, res.Kind, userID, res.ID)
	switch {
	case err == nil:
		deviceID = existing.Sync.DeviceID
	case !errors.Is(err, record.ErrNotFound):
		return nil, fmt.Errorf("loading %s %s: %w", res.Kind, res.ID, err)
	}

	rec := &record.Record{
		ID:        res.ID,
		UserID:    userID,
		Kind:      res.Kind,
		Deleted:   deleted,
		UpdatedAt: now,
		Sync: record.SyncMeta{
			DeviceID:     deviceID,
			LastSyncedAt: now,
			HasConflict:  false,
			ResolvedAt:   &now,
		},
	}
	if err := rec.SetFields(fields); err != nil {
		return nil, err
	}

	if err := s.records.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("persisting resolution for %s %s: %w", res.Kind, res.ID, err)
	}

	return rec, nil
}

// finalState computes the field bag and deleted flag the resolution
// persists.
func (s *Service) finalState(res ConflictResolution) (map[string]any, bool, error) {
	local, localDeleted, err := record.DecodePayload(res.Kind, res.LocalData)
	if err != nil {
		return nil, false, &ValidationError{Field: "localData", Msg: err.Error()}
	}

	remote, remoteDeleted, err := record.DecodePayload(res.Kind, res.RemoteData)
	if err != nil {
		return nil, false, &ValidationError{Field: "remoteData", Msg: err.Error()}
	}

	switch res.Resolution {
	case ResolutionLocal:
		return local, localDeleted, nil
	case ResolutionRemote:
		return remote, remoteDeleted, nil
	default:
		return mergeFields(local, remote), remoteDeleted, nil
	}
}
