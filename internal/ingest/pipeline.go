package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okravets/border-queue-server/internal/queue"
	"github.com/okravets/border-queue-server/internal/snapshot"
	"github.com/okravets/border-queue-server/internal/store"
)

const (
	// DefaultMaxAge is the default freshness window for a snapshot.
	DefaultMaxAge = 900 * time.Second

	upsertAttempts = 3
	backoffStep    = 2 * time.Second
)

// EventPublisher publishes the measurements of a completed run downstream.
type EventPublisher interface {
	PublishIngest(ctx context.Context, events []queue.IngestEvent) error
}

// Report summarizes a completed ingestion run.
type Report struct {
	RunID                string
	MeasuredAt           time.Time
	CheckpointsUpserted  int
	MeasurementsInserted int
}

// Pipeline ingests one snapshot: freshness gate, parse, dimension upsert
// with retry, fact insert. One invocation is one linear run; overlapping
// runs must be serialized by the invoking scheduler.
type Pipeline struct {
	store     store.Store
	source    Source
	publisher EventPublisher // optional
	maxAge    time.Duration

	// Now and Sleep are swappable in tests.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// NewPipeline creates an ingestion pipeline. publisher may be nil to skip
// event publishing; maxAge <= 0 selects DefaultMaxAge.
func NewPipeline(st store.Store, source Source, publisher EventPublisher, maxAge time.Duration) *Pipeline {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Pipeline{
		store:     st,
		source:    source,
		publisher: publisher,
		maxAge:    maxAge,
		Now:       time.Now,
		Sleep:     time.Sleep,
	}
}

// Run executes one ingestion run. Any returned error is fatal for the run;
// nothing has been retried except the dimension upsert's backoff loop.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	runID := uuid.New().String()

	// Freshness gate, before any read or write
	modTime, err := p.source.ModTime()
	if err != nil {
		return nil, err
	}
	age := p.Now().Sub(modTime)
	if age > p.maxAge {
		return nil, fmt.Errorf("%w: %.0fs old (max %.0fs)",
			ErrStaleSource, age.Seconds(), p.maxAge.Seconds())
	}
	fmt.Printf("[%s] Snapshot is fresh (%.0fs old)\n", runID, age.Seconds())

	raw, err := p.source.ReadAll()
	if err != nil {
		return nil, err
	}

	snap, err := snapshot.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	fmt.Printf("[%s] Loaded %d border crossing entries\n", runID, len(snap.Data))

	// Every fact row of this run carries the snapshot's mtime, not the
	// processing time, so ingestion latency never skews the series.
	measuredAt := modTime.UTC()

	checkpoints := checkpointRows(snap.Data)
	if err := p.upsertWithRetry(ctx, checkpoints); err != nil {
		return nil, err
	}
	fmt.Printf("[%s] Upserted %d checkpoints\n", runID, len(checkpoints))

	measurements := measurementRows(snap.Data, measuredAt)
	if err := p.store.InsertMeasurements(ctx, measurements); err != nil {
		// No rollback of the dimension write: the upsert is idempotent
		// and safe to redo on the next successful run.
		return nil, &PersistenceError{Op: "measurement insert", Err: err}
	}
	fmt.Printf("[%s] Inserted %d queue measurements\n", runID, len(measurements))

	p.publishEvents(ctx, runID, snap.Data, measuredAt)

	return &Report{
		RunID:                runID,
		MeasuredAt:           measuredAt,
		CheckpointsUpserted:  len(checkpoints),
		MeasurementsInserted: len(measurements),
	}, nil
}

// upsertWithRetry retries the batched dimension upsert with linear backoff
// (2s, then 4s) before giving up.
func (p *Pipeline) upsertWithRetry(ctx context.Context, checkpoints []store.Checkpoint) error {
	var err error
	for attempt := 1; attempt <= upsertAttempts; attempt++ {
		err = p.store.UpsertCheckpoints(ctx, checkpoints)
		if err == nil {
			return nil
		}
		if attempt < upsertAttempts {
			wait := time.Duration(attempt) * backoffStep
			fmt.Printf("Retry %d/%d after %s due to: %v\n", attempt, upsertAttempts, wait, err)
			p.Sleep(wait)
		}
	}
	return &PersistenceError{Op: "checkpoint upsert", Err: err}
}

// publishEvents is best-effort: the run has already succeeded and the
// event stream is advisory, so a broker failure only logs a warning.
func (p *Pipeline) publishEvents(ctx context.Context, runID string, records []snapshot.Record, measuredAt time.Time) {
	if p.publisher == nil {
		return
	}

	events := make([]queue.IngestEvent, 0, len(records))
	for _, rec := range records {
		events = append(events, queue.IngestEvent{
			RunID:        runID,
			CheckpointID: rec.ID,
			Title:        rec.Title,
			CountryID:    rec.CountryID,
			Lng:          rec.Lng,
			Lat:          rec.Lat,
			MeasuredAt:   measuredAt,
			IsPaused:     rec.IsPaused,
			CancelAfter:  rec.CancelAfter,
			WaitTime:     rec.WaitTime,
		})
	}

	if err := p.publisher.PublishIngest(ctx, events); err != nil {
		fmt.Printf("[%s] Warning: failed to publish ingest events: %v\n", runID, err)
		return
	}
	fmt.Printf("[%s] Published %d ingest events\n", runID, len(events))
}

func checkpointRows(records []snapshot.Record) []store.Checkpoint {
	checkpoints := make([]store.Checkpoint, 0, len(records))
	for _, rec := range records {
		checkpoints = append(checkpoints, store.Checkpoint{
			ID:             rec.ID,
			Title:          rec.Title,
			Tooltip:        rec.Tooltip,
			CountryID:      rec.CountryID,
			ForVehicleType: rec.ForVehicleType,
			QueueFlow:      rec.QueueFlow,
			Lng:            rec.Lng,
			Lat:            rec.Lat,
		})
	}
	return checkpoints
}

func measurementRows(records []snapshot.Record, measuredAt time.Time) []store.QueueMeasurement {
	measurements := make([]store.QueueMeasurement, 0, len(records))
	for _, rec := range records {
		measurements = append(measurements, store.QueueMeasurement{
			CheckpointID:                rec.ID,
			CreatedAt:                   measuredAt,
			IsPaused:                    rec.IsPaused,
			CancelAfter:                 rec.CancelAfter,
			WaitTime:                    rec.WaitTime,
			VehicleInActiveQueuesCounts: rec.VehicleInActiveQueuesCounts,
		})
	}
	return measurements
}
