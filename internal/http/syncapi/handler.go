package syncapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/centsible/centsible/internal/auth"
	"github.com/centsible/centsible/internal/device"
	"github.com/centsible/centsible/internal/notify"
	"github.com/centsible/centsible/internal/record"
	"github.com/centsible/centsible/internal/syncer"
)

type Handler struct {
	svc *syncer.Service
	hub *notify.Hub
}

func NewHandler(svc *syncer.Service, hub *notify.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/status", h.status)
	r.Get("/changes", h.changes)
	r.Post("/push", h.push)
	r.Post("/resolve-conflicts", h.resolveConflicts)
	r.Post("/register-device", h.registerDevice)
	r.Get("/devices", h.devices)
	r.Get("/live", h.live)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		http.Error(w, "deviceId is required", http.StatusBadRequest)
		return
	}

	status, err := h.svc.Status(r.Context(), auth.UserID(r.Context()), deviceID)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			http.Error(w, "device not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(status))
}

func (h *Handler) changes(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		http.Error(w, "deviceId is required", http.StatusBadRequest)
		return
	}

	var since *time.Time

	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "since must be an RFC 3339 timestamp", http.StatusBadRequest)
			return
		}

		since = &t
	}

	changes, err := h.svc.Changes(r.Context(), auth.UserID(r.Context()), deviceID, since)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toChangesResponse(changes))
}

func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.svc.Push(r.Context(), auth.UserID(r.Context()), req.DeviceID, req.batch())
	if err != nil {
		var verr *syncer.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, toPushResponse(result))
}

func (h *Handler) resolveConflicts(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	resolutions, err := req.resolutions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resolved, err := h.svc.Resolve(r.Context(), auth.UserID(r.Context()), resolutions)
	if err != nil {
		var verr *syncer.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}

		if errors.Is(err, record.ErrNotFound) {
			http.Error(w, "record not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, toResolveResponse(resolved))
}

type registerDeviceRequest struct {
	DeviceID   string          `json:"deviceId"`
	DeviceName string          `json:"deviceName"`
	Platform   device.Platform `json:"platform"`
}

type registerDeviceResponse struct {
	Success  bool   `json:"success"`
	DeviceID string `json:"deviceId"`
}

func (h *Handler) registerDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	d, err := h.svc.RegisterDevice(r.Context(), auth.UserID(r.Context()), req.DeviceID, req.DeviceName, req.Platform)
	if err != nil {
		var verr *syncer.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, registerDeviceResponse{
		Success:  true,
		DeviceID: d.DeviceID,
	})
}

func (h *Handler) devices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.Devices(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toDevicesResponse(devices))
}

// live upgrades the request to a WebSocket carrying sync-update events
// from the user's other devices. The connection blocks until the client
// disconnects.
func (h *Handler) live(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		http.Error(w, "deviceId is required", http.StatusBadRequest)
		return
	}

	if err := h.hub.Accept(w, r, auth.UserID(r.Context()), deviceID); err != nil {
		slog.Error("websocket session ended with error", "deviceId", deviceID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
