// Package snapshot decodes point-in-time captures of border checkpoint
// queue status, as produced by the upstream status service:
//
//	{"data": [{"id": 1, "title": "...", "wait_time": 7200, ...}, ...]}
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoData means the blob parsed as JSON but the top-level "data" list is absent.
var ErrNoData = errors.New("snapshot has no data field")

// Record is one checkpoint's status entry in a snapshot. Pointer fields are
// nullable upstream; VehicleInActiveQueuesCounts is carried through opaque.
type Record struct {
	ID                          int64           `json:"id"`
	Title                       string          `json:"title"`
	Tooltip                     *string         `json:"tooltip"`
	CountryID                   int64           `json:"country_id"`
	ForVehicleType              string          `json:"for_vehicle_type"`
	QueueFlow                   string          `json:"queue_flow"`
	Lng                         float64         `json:"lng"`
	Lat                         float64         `json:"lat"`
	IsPaused                    bool            `json:"is_paused"`
	CancelAfter                 *int64          `json:"cancel_after"`
	WaitTime                    *float64        `json:"wait_time"`
	VehicleInActiveQueuesCounts json.RawMessage `json:"vehicle_in_active_queues_counts"`
}

// Snapshot is the decoded envelope.
type Snapshot struct {
	Data []Record `json:"data"`
}

// Decode parses a snapshot blob. It fails on invalid JSON and on a missing
// "data" field; an empty data list is valid.
func Decode(raw []byte) (*Snapshot, error) {
	var envelope struct {
		Data *[]Record `json:"data"`
	}

	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("invalid snapshot JSON: %w", err)
	}
	if envelope.Data == nil {
		return nil, ErrNoData
	}

	return &Snapshot{Data: *envelope.Data}, nil
}
