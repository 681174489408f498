package store

import (
	"context"
	"time"
)

// Store is the narrow repository surface the ingestion pipeline and the
// aggregation query layer depend on. Postgres implements it for real;
// Memory implements it for tests.
type Store interface {
	// UpsertCheckpoints writes the dimension rows in one batched call,
	// replacing all mutable fields of an existing row by primary key.
	UpsertCheckpoints(ctx context.Context, checkpoints []Checkpoint) error

	// InsertMeasurements appends the fact rows in one batched call.
	// Facts are never updated or deleted.
	InsertMeasurements(ctx context.Context, measurements []QueueMeasurement) error

	// ListCheckpoints returns all checkpoints ordered by order_id ascending
	// with nulls last, ties broken by title descending.
	ListCheckpoints(ctx context.Context) ([]Checkpoint, error)

	// ListCountries returns the country dimension.
	ListCountries(ctx context.Context) ([]Country, error)

	// MeasurementsInRange returns a checkpoint's measurements with
	// created_at in [start, end), ordered by created_at ascending.
	MeasurementsInRange(ctx context.Context, checkpointID int64, start, end time.Time) ([]QueueMeasurement, error)

	// LatestStatus returns the most recent measurement per checkpoint.
	LatestStatus(ctx context.Context) ([]LatestQueueStatus, error)
}
