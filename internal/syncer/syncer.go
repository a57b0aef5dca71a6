// Package syncer implements multi-device synchronization for the three
// syncable entity kinds: expenses, categories and budgets. Devices push
// batches of offline edits, pull incremental change feeds, and resolve
// the conflicts the engine detects.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/clock"
	"github.com/centsible/centsible/internal/device"
	"github.com/centsible/centsible/internal/notify"
	"github.com/centsible/centsible/internal/record"
)

//go:generate mockgen -source=syncer.go -destination=repository_mock.go -package=syncer

// RecordRepository is the record store surface the engine needs.
type RecordRepository interface {
	Get(ctx context.Context, kind record.Kind, userID, id uuid.UUID) (*record.Record, error)
	ListChangedSince(ctx context.Context, kind record.Kind, userID uuid.UUID, since time.Time) ([]*record.Record, error)
	CountChangedSince(ctx context.Context, kind record.Kind, userID uuid.UUID, since time.Time) (int, error)

	// Save upserts the record unconditionally, incrementing its sync
	// version (to 1 on create) and filling rec.Sync.SyncVersion.
	Save(ctx context.Context, rec *record.Record) error

	Begin(ctx context.Context) (Tx, error)
	PurgeTombstones(ctx context.Context, userID uuid.UUID, olderThan time.Time) (int, error)
}

// Tx is one atomic push. Everything written through it commits or rolls
// back as a unit.
type Tx interface {
	Get(ctx context.Context, kind record.Kind, userID, id uuid.UUID) (*record.Record, error)
	Create(ctx context.Context, rec *record.Record) error

	// Update persists rec only while the stored row's updated_at is still
	// <= notAfter, incrementing the sync version and filling
	// rec.Sync.SyncVersion. Returns false without writing when the row has
	// moved past notAfter, which surfaces as a conflict even when a
	// concurrent push commits between our staleness check and the write.
	Update(ctx context.Context, rec *record.Record, notAfter time.Time) (bool, error)

	Commit() error
	Rollback() error
}

// DeviceRepository is the device registry surface the engine needs.
type DeviceRepository interface {
	Get(ctx context.Context, userID uuid.UUID, deviceID string) (*device.Device, error)
	List(ctx context.Context, userID uuid.UUID) ([]*device.Device, error)
	Upsert(ctx context.Context, d *device.Device) error
	SetLastSync(ctx context.Context, userID uuid.UUID, deviceID string, at time.Time) error

	// OldestLastSync returns the earliest high-water mark across the
	// user's active devices, or nil when some active device has never
	// completed a sync.
	OldestLastSync(ctx context.Context, userID uuid.UUID) (*time.Time, error)
}

// Notifier broadcasts post-push events to the user's other live sessions.
// Delivery is best effort and never affects push outcome.
type Notifier interface {
	Broadcast(userID uuid.UUID, event notify.Event)
}

// Change is one client-asserted edit. ClientTimestamp is the server time
// the client last saw for the record; it is the sole input to conflict
// detection.
type Change struct {
	ID              uuid.UUID
	Action          record.Action
	Data            json.RawMessage
	ClientTimestamp time.Time
}

// Batch groups a push's changes per entity kind. Kinds are processed in
// the order expenses, categories, budgets; changes within a kind in list
// order.
type Batch struct {
	Expenses   []Change
	Categories []Change
	Budgets    []Change
}

func (b *Batch) groups() []struct {
	Kind    record.Kind
	Changes []Change
} {
	return []struct {
		Kind    record.Kind
		Changes []Change
	}{
		{record.KindExpense, b.Expenses},
		{record.KindCategory, b.Categories},
		{record.KindBudget, b.Budgets},
	}
}

// Reason classifies why a change conflicted.
type Reason string

const (
	// ReasonConcurrentModification marks an upsert whose base state is
	// older than the server's current record.
	ReasonConcurrentModification Reason = "concurrent_modification"
	// ReasonNewerVersionExists marks a delete of a record the server has
	// updated since the client last saw it.
	ReasonNewerVersionExists Reason = "newer_version_exists"
)

// Conflict is a detected concurrent edit. It is a result value, not an
// error: the rest of the batch still commits.
type Conflict struct {
	ID         uuid.UUID
	Kind       record.Kind
	Reason     Reason
	LocalData  json.RawMessage
	RemoteData map[string]any
}

// Processed change actions.
const (
	AppliedCreated = "created"
	AppliedUpdated = "updated"
	AppliedDeleted = "deleted"
)

// Applied is one committed change of a push.
type Applied struct {
	ID          uuid.UUID
	Kind        record.Kind
	Action      string
	SyncVersion int64
}

// PushResult reports a push's partial success explicitly: every
// non-conflicting change in Processed committed, every entry in Conflicts
// left server state untouched.
type PushResult struct {
	Processed []Applied
	Conflicts []Conflict
	Timestamp time.Time
}

// Changes is an incremental change feed response, per kind.
type Changes struct {
	Expenses   []record.ChangeEvent
	Categories []record.ChangeEvent
	Budgets    []record.ChangeEvent
	Timestamp  time.Time
}

// PendingCounts counts records changed since a device's last sync.
type PendingCounts struct {
	Expenses   int
	Categories int
	Budgets    int
}

func (p PendingCounts) Any() bool {
	return p.Expenses > 0 || p.Categories > 0 || p.Budgets > 0
}

// Status is a device's sync position.
type Status struct {
	DeviceID   string
	LastSyncAt *time.Time
	Pending    PendingCounts
	NeedsSync  bool
}

// Resolution selects a conflict resolution strategy.
type Resolution string

const (
	ResolutionLocal  Resolution = "local"
	ResolutionRemote Resolution = "remote"
	ResolutionMerge  Resolution = "merge"
)

func (r Resolution) Valid() bool {
	switch r {
	case ResolutionLocal, ResolutionRemote, ResolutionMerge:
		return true
	}

	return false
}

// ConflictResolution is one conflict with the caller's chosen strategy
// and both sides' data.
type ConflictResolution struct {
	ID         uuid.UUID
	Kind       record.Kind
	Resolution Resolution
	LocalData  json.RawMessage
	RemoteData json.RawMessage
}

// Resolved is the final state persisted for one resolved conflict.
type Resolved struct {
	ID   uuid.UUID
	Kind record.Kind
	Data map[string]any
}

// ValidationError rejects a malformed request before any persistence.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

const defaultTombstoneMinAge = 30 * 24 * time.Hour

// Service is the sync engine.
type Service struct {
	records  RecordRepository
	devices  DeviceRepository
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger

	tombstoneMinAge time.Duration
}

func NewService(records RecordRepository, devices DeviceRepository, notifier Notifier, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.System()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		records:         records,
		devices:         devices,
		notifier:        notifier,
		clock:           clk,
		logger:          logger,
		tombstoneMinAge: defaultTombstoneMinAge,
	}
}

// RegisterDevice registers a device or refreshes an existing entry's
// name, platform and active flag.
func (s *Service) RegisterDevice(ctx context.Context, userID uuid.UUID, deviceID, name string, platform device.Platform) (*device.Device, error) {
	if deviceID == "" {
		return nil, &ValidationError{Field: "deviceId", Msg: "must not be empty"}
	}

	if !platform.Valid() {
		return nil, &ValidationError{Field: "platform", Msg: fmt.Sprintf("unknown platform %q", platform)}
	}

	d := &device.Device{
		DeviceID:  deviceID,
		UserID:    userID,
		Name:      name,
		Platform:  platform,
		IsActive:  true,
		CreatedAt: s.clock.Now(),
	}

	if err := s.devices.Upsert(ctx, d); err != nil {
		return nil, fmt.Errorf("registering device %s: %w", deviceID, err)
	}

	return d, nil
}

// Devices lists the user's registered devices.
func (s *Service) Devices(ctx context.Context, userID uuid.UUID) ([]*device.Device, error) {
	return s.devices.List(ctx, userID)
}
