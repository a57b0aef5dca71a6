package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/record"
)

// Changes returns every record of the user changed strictly after since,
// per kind, ordered by modification time with ties broken by id. Deleted
// records are reported as delete events with no data so remote deletions
// propagate. A nil since reads from the epoch, a full resync; devices
// doing incremental pulls pass the lastSyncAt they got from Status.
func (s *Service) Changes(ctx context.Context, userID uuid.UUID, deviceID string, since *time.Time) (*Changes, error) {
	if deviceID == "" {
		return nil, &ValidationError{Field: "deviceId", Msg: "must not be empty"}
	}

	from := time.Time{}
	if since != nil {
		from = *since
	}

	out := &Changes{Timestamp: s.clock.Now()}

	for _, kind := range record.Kinds() {
		events, err := s.changedEvents(ctx, kind, userID, from)
		if err != nil {
			return nil, err
		}

		switch kind {
		case record.KindExpense:
			out.Expenses = events
		case record.KindCategory:
			out.Categories = events
		case record.KindBudget:
			out.Budgets = events
		}
	}

	return out, nil
}

func (s *Service) changedEvents(ctx context.Context, kind record.Kind, userID uuid.UUID, since time.Time) ([]record.ChangeEvent, error) {
	recs, err := s.records.ListChangedSince(ctx, kind, userID, since)
	if err != nil {
		return nil, fmt.Errorf("listing changed %s records: %w", kind, err)
	}

	events := make([]record.ChangeEvent, 0, len(recs))

	for _, rec := range recs {
		ev, err := rec.ChangeEvent()
		if err != nil {
			return nil, err
		}

		events = append(events, ev)
	}

	return events, nil
}

// Status reports how far behind the device is: pending change counts per
// kind since its last successful sync.
func (s *Service) Status(ctx context.Context, userID uuid.UUID, deviceID string) (*Status, error) {
	if deviceID == "" {
		return nil, &ValidationError{Field: "deviceId", Msg: "must not be empty"}
	}

	d, err := s.devices.Get(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}

	since := time.Time{}
	if d.LastSyncAt != nil {
		since = *d.LastSyncAt
	}

	st := &Status{
		DeviceID:   deviceID,
		LastSyncAt: d.LastSyncAt,
	}

	for _, kind := range record.Kinds() {
		n, err := s.records.CountChangedSince(ctx, kind, userID, since)
		if err != nil {
			return nil, fmt.Errorf("counting changed %s records: %w", kind, err)
		}

		switch kind {
		case record.KindExpense:
			st.Pending.Expenses = n
		case record.KindCategory:
			st.Pending.Categories = n
		case record.KindBudget:
			st.Pending.Budgets = n
		}
	}

	st.NeedsSync = st.Pending.Any()

	return st, nil
}
