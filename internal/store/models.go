package store

import (
	"encoding/json"
	"time"
)

// Checkpoint is the slowly-changing dimension row for a border crossing point.
// OrderID is a manual display ordering hint and is never written by ingestion.
type Checkpoint struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Tooltip        *string `json:"tooltip"`
	CountryID      int64   `json:"country_id"`
	ForVehicleType string  `json:"for_vehicle_type"`
	QueueFlow      string  `json:"queue_flow"`
	Lng            float64 `json:"lng"`
	Lat            float64 `json:"lat"`
	OrderID        *int64  `json:"order_id"`
}

// QueueMeasurement is one immutable observation of a checkpoint's queue state.
// WaitTime is nil when the queue length was unknown at measurement time.
type QueueMeasurement struct {
	CheckpointID                int64           `json:"checkpoint_id"`
	CreatedAt                   time.Time       `json:"created_at"`
	IsPaused                    bool            `json:"is_paused"`
	CancelAfter                 *int64          `json:"cancel_after"`
	WaitTime                    *float64        `json:"wait_time"`
	VehicleInActiveQueuesCounts json.RawMessage `json:"vehicle_in_active_queues_counts"`
}

// Country is a read-only dimension; rows are managed out-of-band.
type Country struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// LatestQueueStatus is one row of the latest_queue_status view: the most
// recent measurement per checkpoint joined with its dimension fields.
type LatestQueueStatus struct {
	CheckpointID int64     `json:"checkpoint_id"`
	Title        string    `json:"title"`
	CountryID    int64     `json:"country_id"`
	Lng          float64   `json:"lng"`
	Lat          float64   `json:"lat"`
	CreatedAt    time.Time `json:"created_at"`
	IsPaused     bool      `json:"is_paused"`
	CancelAfter  *int64    `json:"cancel_after"`
	WaitTime     *float64  `json:"wait_time"`
}
