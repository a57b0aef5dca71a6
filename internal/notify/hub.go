package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// EventSyncUpdate is broadcast to a user's live sessions after a push
// commits, so other devices can pull changes instead of polling.
const EventSyncUpdate = "sync-update"

// Event is the message sent to live sessions. DeviceID is the device that
// caused the event; that device's own sessions never receive it.
type Event struct {
	Type      string    `json:"type"`
	DeviceID  string    `json:"deviceId"`
	Changes   any       `json:"changes"`
	Timestamp time.Time `json:"timestamp"`
}

const writeTimeout = 5 * time.Second

// sender is the connection surface the hub needs; real sessions wrap a
// websocket connection.
type sender interface {
	write(ctx context.Context, p []byte) error
	close(reason string)
}

type wsSender struct {
	conn *websocket.Conn
}

func (s wsSender) write(ctx context.Context, p []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, p)
}

func (s wsSender) close(reason string) {
	_ = s.conn.Close(websocket.StatusGoingAway, reason)
}

type session struct {
	send     sender
	deviceID string
}

// Hub tracks a user's live sessions and fans sync events out to them.
// Delivery is fire-and-forget: a failed write drops the session and is
// never surfaced to the caller.
type Hub struct {
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]map[*session]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		logger:   logger,
		sessions: make(map[uuid.UUID]map[*session]struct{}),
	}
}

// Accept upgrades the request to a websocket and keeps the session
// registered until the peer disconnects. Blocks until the connection
// closes.
func (h *Hub) Accept(w http.ResponseWriter, r *http.Request, userID uuid.UUID, deviceID string) error {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return err
	}

	sess := &session{send: wsSender{conn: conn}, deviceID: deviceID}
	h.add(userID, sess)
	defer h.remove(userID, sess)

	h.logger.Debug("live session connected", "user_id", userID, "device_id", deviceID)

	// Read loop only detects disconnects; clients never send anything
	// meaningful on this channel.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return nil
		}
	}
}

// Broadcast delivers the event to every session of the user except those
// belonging to the originating device.
func (h *Hub) Broadcast(userID uuid.UUID, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode sync event", "error", err, "user_id", userID)
		return
	}

	h.mu.RLock()
	targets := make([]*session, 0, len(h.sessions[userID]))

	for sess := range h.sessions[userID] {
		if sess.deviceID == event.DeviceID {
			continue
		}

		targets = append(targets, sess)
	}
	h.mu.RUnlock()

	for _, sess := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := sess.send.write(ctx, data)

		cancel()

		if err != nil {
			h.logger.Debug("dropping live session", "error", err, "user_id", userID, "device_id", sess.deviceID)
			h.remove(userID, sess)
		}
	}
}

// Close disconnects every session.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, sessions := range h.sessions {
		for sess := range sessions {
			sess.send.close("server shutting down")
		}

		delete(h.sessions, userID)
	}
}

func (h *Hub) add(userID uuid.UUID, sess *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[userID] == nil {
		h.sessions[userID] = make(map[*session]struct{})
	}

	h.sessions[userID][sess] = struct{}{}
}

func (h *Hub) remove(userID uuid.UUID, sess *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions[userID], sess)

	if len(h.sessions[userID]) == 0 {
		delete(h.sessions, userID)
	}
}
