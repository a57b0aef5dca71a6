package record_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centsible/centsible/internal/record"
)

func TestKind_DeleteFlag(t *testing.T) {
	type testCase struct {
		name        string
		kind        record.Kind
		wantFlag    string
		wantDeleted bool // flag value when deleted=true
		wantLive    bool // flag value when deleted=false
	}

	tests := []testCase{
		{name: "Expense", kind: record.KindExpense, wantFlag: "isDeleted", wantDeleted: true, wantLive: false},
		{name: "Category", kind: record.KindCategory, wantFlag: "isActive", wantDeleted: false, wantLive: true},
		{name: "Budget", kind: record.KindBudget, wantFlag: "isActive", wantDeleted: false, wantLive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantFlag, tt.kind.DeleteFlag())
			assert.Equal(t, tt.wantDeleted, tt.kind.DeleteFlagValue(true))
			assert.Equal(t, tt.wantLive, tt.kind.DeleteFlagValue(false))
		})
	}
}

func TestRecord_Payload(t *testing.T) {
	resolvedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rec := &record.Record{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Kind:      record.KindCategory,
		Data:      []byte(`{"name":"Transport","color":"#00ff00"}`),
		Deleted:   true,
		UpdatedAt: resolvedAt.Add(time.Hour),
		CreatedAt: resolvedAt.Add(-time.Hour),
		Sync: record.SyncMeta{
			DeviceID:     "device-a",
			SyncVersion:  4,
			LastSyncedAt: resolvedAt,
			ResolvedAt:   &resolvedAt,
		},
	}

	payload, err := rec.Payload()
	require.NoError(t, err)

	assert.Equal(t, rec.ID.String(), payload["id"])
	assert.Equal(t, rec.UserID.String(), payload["userId"])
	assert.Equal(t, "Transport", payload["name"])

	// A deleted category reads as inactive, not "isDeleted".
	assert.Equal(t, false, payload["isActive"])
	assert.NotContains(t, payload, "isDeleted")

	sync, ok := payload["sync"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "device-a", sync["deviceId"])
	assert.Equal(t, int64(4), sync["syncVersion"])

	cr, ok := sync["conflictResolution"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, cr["hasConflict"])
	assert.Equal(t, &resolvedAt, cr["resolvedAt"])
}

func TestRecord_ChangeEvent(t *testing.T) {
	rec := &record.Record{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Kind:      record.KindExpense,
		Data:      []byte(`{"amount":100}`),
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	ev, err := rec.ChangeEvent()
	require.NoError(t, err)
	assert.Equal(t, record.ActionUpsert, ev.Action)
	require.NotNil(t, ev.Data)

	rec.Deleted = true

	ev, err = rec.ChangeEvent()
	require.NoError(t, err)
	assert.Equal(t, record.ActionDelete, ev.Action)
	assert.Nil(t, ev.Data)
	assert.Equal(t, rec.UpdatedAt, ev.UpdatedAt)
}

func TestDecodePayload(t *testing.T) {
	type testCase struct {
		name        string
		kind        record.Kind
		data        string
		wantDeleted bool
		wantErr     bool
	}

	tests := []testCase{
		{
			name:        "ExpenseDeletedFlag",
			kind:        record.KindExpense,
			data:        `{"amount":10,"isDeleted":true}`,
			wantDeleted: true,
		},
		{
			name:        "CategoryInactiveMeansDeleted",
			kind:        record.KindCategory,
			data:        `{"name":"Food","isActive":false}`,
			wantDeleted: true,
		},
		{
			name:        "CategoryActive",
			kind:        record.KindCategory,
			data:        `{"name":"Food","isActive":true}`,
			wantDeleted: false,
		},
		{
			name:        "FlagAbsentDefaultsToLive",
			kind:        record.KindExpense,
			data:        `{"amount":10}`,
			wantDeleted: false,
		},
		{
			name:    "NotAnObject",
			kind:    record.KindExpense,
			data:    `[1,2,3]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, deleted, err := record.DecodePayload(tt.kind, []byte(tt.data))

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantDeleted, deleted)

			// Server-owned keys never reach the field bag.
			assert.NotContains(t, fields, "isDeleted")
			assert.NotContains(t, fields, "isActive")
			assert.NotContains(t, fields, "id")
		})
	}
}

func TestDecodePayload_StripsReservedKeys(t *testing.T) {
	data := `{"amount":10,"id":"x","userId":"y","sync":{"syncVersion":9},"updatedAt":"2024-05-01T00:00:00Z","createdAt":"2024-05-01T00:00:00Z"}`

	fields, _, err := record.DecodePayload(record.KindExpense, []byte(data))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"amount": float64(10)}, fields)
}
