package record

import (
	"encoding/json"
	"fmt"
)

// reservedKeys are payload keys owned by the server. Clients may echo them
// back in pushed data; they are stripped before the bag is persisted so a
// stale client copy can never clobber server bookkeeping.
var reservedKeys = []string{
	"id", "userId", "sync", "updatedAt", "createdAt",
	"isDeleted", "isActive",
}

// Fields decodes the entity field bag into a mutable map. A nil or empty
// bag decodes to an empty map.
func (r *Record) Fields() (map[string]any, error) {
	if len(r.Data) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := json.Unmarshal(r.Data, &fields); err != nil {
		return nil, fmt.Errorf("decoding record %s data: %w", r.ID, err)
	}

	return fields, nil
}

// SetFields replaces the entity field bag.
func (r *Record) SetFields(fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding record %s data: %w", r.ID, err)
	}

	r.Data = data

	return nil
}

// StripReserved decodes a client payload and drops the server-owned keys.
func StripReserved(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	for _, k := range reservedKeys {
		delete(fields, k)
	}

	return fields, nil
}

// DecodePayload decodes a client payload into an entity field bag plus
// the record's deleted state, read from the kind's soft-delete flag when
// the payload carries it. Server-owned keys are stripped from the bag.
func DecodePayload(kind Kind, data []byte) (map[string]any, bool, error) {
	if len(data) == 0 {
		return map[string]any{}, false, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("decoding payload: %w", err)
	}

	deleted := false
	if v, ok := raw[kind.DeleteFlag()].(bool); ok {
		deleted = v != kind.DeleteFlagValue(false)
	}

	for _, k := range reservedKeys {
		delete(raw, k)
	}

	return raw, deleted, nil
}

// MergeFields applies incoming on top of the record's current bag as a
// shallow field overwrite: every key present in incoming replaces the
// stored value, everything else is untouched.
func (r *Record) MergeFields(incoming map[string]any) error {
	fields, err := r.Fields()
	if err != nil {
		return err
	}

	for k, v := range incoming {
		fields[k] = v
	}

	return r.SetFields(fields)
}
