package syncapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/device"
	"github.com/centsible/centsible/internal/record"
	"github.com/centsible/centsible/internal/syncer"
)

type changeDTO struct {
	ID              uuid.UUID       `json:"id"`
	Action          record.Action   `json:"action"`
	Data            json.RawMessage `json:"data,omitempty"`
	ClientTimestamp time.Time       `json:"clientTimestamp"`
}

type pushRequest struct {
	DeviceID string `json:"deviceId"`
	Changes  struct {
		Expenses   []changeDTO `json:"expenses"`
		Categories []changeDTO `json:"categories"`
		Budgets    []changeDTO `json:"budgets"`
	} `json:"changes"`
}

func (req *pushRequest) batch() syncer.Batch {
	return syncer.Batch{
		Expenses:   toChanges(req.Changes.Expenses),
		Categories: toChanges(req.Changes.Categories),
		Budgets:    toChanges(req.Changes.Budgets),
	}
}

func toChanges(dtos []changeDTO) []syncer.Change {
	changes := make([]syncer.Change, 0, len(dtos))
	for _, d := range dtos {
		changes = append(changes, syncer.Change{
			ID:              d.ID,
			Action:          d.Action,
			Data:            d.Data,
			ClientTimestamp: d.ClientTimestamp,
		})
	}

	return changes
}

type conflictResponse struct {
	ID         uuid.UUID       `json:"id"`
	Type       record.Kind     `json:"type"`
	Reason     syncer.Reason   `json:"reason"`
	LocalData  json.RawMessage `json:"localData"`
	RemoteData map[string]any  `json:"remoteData"`
}

type processedResponse struct {
	ID          uuid.UUID   `json:"id"`
	Type        record.Kind `json:"type"`
	Action      string      `json:"action"`
	SyncVersion int64       `json:"syncVersion"`
}

type pushResponse struct {
	Success   bool                `json:"success"`
	Conflicts []conflictResponse  `json:"conflicts"`
	Processed []processedResponse `json:"processed"`
	Timestamp time.Time           `json:"timestamp"`
}

func toPushResponse(result *syncer.PushResult) pushResponse {
	resp := pushResponse{
		Success:   true,
		Conflicts: make([]conflictResponse, 0, len(result.Conflicts)),
		Processed: make([]processedResponse, 0, len(result.Processed)),
		Timestamp: result.Timestamp,
	}

	for _, c := range result.Conflicts {
		resp.Conflicts = append(resp.Conflicts, conflictResponse{
			ID:         c.ID,
			Type:       c.Kind,
			Reason:     c.Reason,
			LocalData:  c.LocalData,
			RemoteData: c.RemoteData,
		})
	}

	for _, p := range result.Processed {
		resp.Processed = append(resp.Processed, processedResponse{
			ID:          p.ID,
			Type:        p.Kind,
			Action:      p.Action,
			SyncVersion: p.SyncVersion,
		})
	}

	return resp
}

type changesResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Changes   struct {
		Expenses   []record.ChangeEvent `json:"expenses"`
		Categories []record.ChangeEvent `json:"categories"`
		Budgets    []record.ChangeEvent `json:"budgets"`
	} `json:"changes"`
}

func toChangesResponse(changes *syncer.Changes) changesResponse {
	resp := changesResponse{Timestamp: changes.Timestamp}
	resp.Changes.Expenses = nonNil(changes.Expenses)
	resp.Changes.Categories = nonNil(changes.Categories)
	resp.Changes.Budgets = nonNil(changes.Budgets)

	return resp
}

func nonNil(events []record.ChangeEvent) []record.ChangeEvent {
	if events == nil {
		return []record.ChangeEvent{}
	}

	return events
}

type statusResponse struct {
	DeviceID       string     `json:"deviceId"`
	LastSyncAt     *time.Time `json:"lastSyncAt"`
	PendingChanges struct {
		Expenses   int `json:"expenses"`
		Categories int `json:"categories"`
		Budgets    int `json:"budgets"`
	} `json:"pendingChanges"`
	NeedsSync bool `json:"needsSync"`
}

func toStatusResponse(status *syncer.Status) statusResponse {
	resp := statusResponse{
		DeviceID:   status.DeviceID,
		LastSyncAt: status.LastSyncAt,
		NeedsSync:  status.NeedsSync,
	}
	resp.PendingChanges.Expenses = status.Pending.Expenses
	resp.PendingChanges.Categories = status.Pending.Categories
	resp.PendingChanges.Budgets = status.Pending.Budgets

	return resp
}

type resolveItemDTO struct {
	ID         uuid.UUID         `json:"id"`
	Type       record.Kind       `json:"type"`
	Resolution syncer.Resolution `json:"resolution"`
	LocalData  json.RawMessage   `json:"localData"`
	RemoteData json.RawMessage   `json:"remoteData"`
}

type resolveRequest struct {
	Conflicts []resolveItemDTO `json:"conflicts"`
}

func (req *resolveRequest) resolutions() ([]syncer.ConflictResolution, error) {
	if req.Conflicts == nil {
		return nil, fmt.Errorf("conflicts is required")
	}

	resolutions := make([]syncer.ConflictResolution, 0, len(req.Conflicts))
	for _, c := range req.Conflicts {
		resolutions = append(resolutions, syncer.ConflictResolution{
			ID:         c.ID,
			Kind:       c.Type,
			Resolution: c.Resolution,
			LocalData:  c.LocalData,
			RemoteData: c.RemoteData,
		})
	}

	return resolutions, nil
}

type resolvedResponse struct {
	ID   uuid.UUID      `json:"id"`
	Type record.Kind    `json:"type"`
	Data map[string]any `json:"data"`
}

type resolveResponse struct {
	Success  bool               `json:"success"`
	Resolved []resolvedResponse `json:"resolved"`
}

func toResolveResponse(resolved []syncer.Resolved) resolveResponse {
	resp := resolveResponse{
		Success:  true,
		Resolved: make([]resolvedResponse, 0, len(resolved)),
	}

	for _, r := range resolved {
		resp.Resolved = append(resp.Resolved, resolvedResponse{
			ID:   r.ID,
			Type: r.Kind,
			Data: r.Data,
		})
	}

	return resp
}

type deviceResponse struct {
	DeviceID   string          `json:"deviceId"`
	DeviceName string          `json:"deviceName"`
	Platform   device.Platform `json:"platform"`
	LastSyncAt *time.Time      `json:"lastSyncAt"`
	IsActive   bool            `json:"isActive"`
}

type devicesResponse struct {
	Devices []deviceResponse `json:"devices"`
}

func toDevicesResponse(devices []*device.Device) devicesResponse {
	resp := devicesResponse{Devices: make([]deviceResponse, 0, len(devices))}
	for _, d := range devices {
		resp.Devices = append(resp.Devices, deviceResponse{
			DeviceID:   d.DeviceID,
			DeviceName: d.Name,
			Platform:   d.Platform,
			LastSyncAt: d.LastSyncAt,
			IsActive:   d.IsActive,
		})
	}

	return resp
}
