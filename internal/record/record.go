package record

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist or is not visible
// to the caller.
var ErrNotFound = errors.New("record not found")

// Kind identifies one of the syncable entity kinds. It is a closed set:
// every kind the sync layer knows about is declared here, and each kind
// carries its own soft-delete convention.
type Kind string

const (
	KindExpense  Kind = "expense"
	KindCategory Kind = "category"
	KindBudget   Kind = "budget"
)

// Kinds lists all syncable kinds in the order they are processed in a push.
func Kinds() []Kind {
	return []Kind{KindExpense, KindCategory, KindBudget}
}

func (k Kind) Valid() bool {
	switch k {
	case KindExpense, KindCategory, KindBudget:
		return true
	}

	return false
}

// Table returns the storage table backing this kind.
func (k Kind) Table() string {
	switch k {
	case KindExpense:
		return "expenses"
	case KindCategory:
		return "categories"
	case KindBudget:
		return "budgets"
	}

	return ""
}

// DeleteFlag returns the JSON field name a client sees for this kind's
// soft-delete state. Expenses expose isDeleted; categories and budgets
// expose isActive with inverted polarity.
func (k Kind) DeleteFlag() string {
	if k == KindExpense {
		return "isDeleted"
	}

	return "isActive"
}

// DeleteFlagValue maps the internal deleted bit to the client-facing flag
// value for this kind.
func (k Kind) DeleteFlagValue(deleted bool) bool {
	if k == KindExpense {
		return deleted
	}

	return !deleted
}

// SyncMeta carries the per-record sync bookkeeping.
type SyncMeta struct {
	DeviceID     string
	SyncVersion  int64
	LastSyncedAt time.Time
	HasConflict  bool
	ResolvedAt   *time.Time
}

// Record is one syncable entity instance. Entity-specific fields live in
// the Data bag and are opaque to the sync layer; everything the engine
// reasons about is lifted into named fields.
type Record struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Kind      Kind
	Data      []byte // JSON object with the entity's own fields
	Deleted   bool
	UpdatedAt time.Time
	CreatedAt time.Time
	Sync      SyncMeta
}

// Action says what a change feed consumer should do with a record.
type Action string

const (
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
)

// ChangeEvent is one entry of the change feed. Deleted records carry no
// data so remote devices only learn that the record is gone.
type ChangeEvent struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Action    Action    `json:"action"`
	Data      any       `json:"data"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChangeEvent renders the record as a change feed entry.
func (r *Record) ChangeEvent() (ChangeEvent, error) {
	ev := ChangeEvent{
		ID:        r.ID,
		Kind:      r.Kind,
		Action:    ActionUpsert,
		UpdatedAt: r.UpdatedAt,
	}

	if r.Deleted {
		ev.Action = ActionDelete
		return ev, nil
	}

	payload, err := r.Payload()
	if err != nil {
		return ChangeEvent{}, err
	}

	ev.Data = payload

	return ev, nil
}

// Payload builds the full client-facing view of the record: the entity
// field bag plus id, the kind's soft-delete flag, timestamps and sync
// metadata.
func (r *Record) Payload() (map[string]any, error) {
	fields, err := r.Fields()
	if err != nil {
		return nil, err
	}

	fields["id"] = r.ID.String()
	fields["userId"] = r.UserID.String()
	fields[r.Kind.DeleteFlag()] = r.Kind.DeleteFlagValue(r.Deleted)
	fields["updatedAt"] = r.UpdatedAt
	fields["createdAt"] = r.CreatedAt

	sync := map[string]any{
		"deviceId":    r.Sync.DeviceID,
		"syncVersion": r.Sync.SyncVersion,
	}
	if !r.Sync.LastSyncedAt.IsZero() {
		sync["lastSyncedAt"] = r.Sync.LastSyncedAt
	}

	sync["conflictResolution"] = map[string]any{
		"hasConflict": r.Sync.HasConflict,
		"resolvedAt":  r.Sync.ResolvedAt,
	}
	fields["sync"] = sync

	return fields, nil
}
