package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	messages [][]byte
	writeErr error
	closed   bool
}

func (f *fakeSender) write(_ context.Context, p []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}

	f.messages = append(f.messages, p)

	return nil
}

func (f *fakeSender) close(string) { f.closed = true }

func TestHub_Broadcast_SkipsOriginDevice(t *testing.T) {
	hub := NewHub(nil)

	userID := uuid.New()
	origin := &fakeSender{}
	other := &fakeSender{}

	hub.add(userID, &session{send: origin, deviceID: "device-a"})
	hub.add(userID, &session{send: other, deviceID: "device-b"})

	event := Event{
		Type:      EventSyncUpdate,
		DeviceID:  "device-a",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	hub.Broadcast(userID, event)

	assert.Empty(t, origin.messages)
	require.Len(t, other.messages, 1)

	var got Event
	require.NoError(t, json.Unmarshal(other.messages[0], &got))
	assert.Equal(t, EventSyncUpdate, got.Type)
	assert.Equal(t, "device-a", got.DeviceID)
}

func TestHub_Broadcast_OnlyReachesOwner(t *testing.T) {
	hub := NewHub(nil)

	alice, bob := uuid.New(), uuid.New()
	aliceSess := &fakeSender{}
	bobSess := &fakeSender{}

	hub.add(alice, &session{send: aliceSess, deviceID: "device-a"})
	hub.add(bob, &session{send: bobSess, deviceID: "device-b"})

	hub.Broadcast(alice, Event{Type: EventSyncUpdate, DeviceID: "other"})

	assert.Len(t, aliceSess.messages, 1)
	assert.Empty(t, bobSess.messages)
}

func TestHub_Broadcast_DropsFailedSession(t *testing.T) {
	hub := NewHub(nil)

	userID := uuid.New()
	broken := &fakeSender{writeErr: errors.New("connection reset")}

	hub.add(userID, &session{send: broken, deviceID: "device-b"})
	hub.Broadcast(userID, Event{Type: EventSyncUpdate, DeviceID: "device-a"})

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Empty(t, hub.sessions[userID])
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(nil)

	userID := uuid.New()
	sess := &fakeSender{}

	hub.add(userID, &session{send: sess, deviceID: "device-a"})
	hub.Close()

	assert.True(t, sess.closed)
	assert.Empty(t, hub.sessions)
}
