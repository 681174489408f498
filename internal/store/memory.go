package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory Store for tests. UpsertFailures and InsertErr let
// tests inject transient dimension-write failures and fatal fact-write
// failures without a database.
type Memory struct {
	mu           sync.Mutex
	checkpoints  map[int64]Checkpoint
	measurements []QueueMeasurement
	countries    []Country

	// UpsertFailures makes the next N UpsertCheckpoints calls fail.
	UpsertFailures int
	// UpsertErr is returned while UpsertFailures > 0.
	UpsertErr error
	// InsertErr, when set, makes InsertMeasurements fail.
	InsertErr error

	// UpsertCalls counts UpsertCheckpoints invocations, including failed ones.
	UpsertCalls int
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		checkpoints: make(map[int64]Checkpoint),
	}
}

// UpsertCheckpoints replaces rows by id, like ON CONFLICT DO UPDATE would.
// An existing row's OrderID is preserved since ingestion never writes it.
func (m *Memory) UpsertCheckpoints(ctx context.Context, checkpoints []Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpsertCalls++
	if m.UpsertFailures > 0 {
		m.UpsertFailures--
		if m.UpsertErr != nil {
			return m.UpsertErr
		}
		return errors.New("upsert failed")
	}

	for _, c := range checkpoints {
		if existing, ok := m.checkpoints[c.ID]; ok {
			c.OrderID = existing.OrderID
		}
		m.checkpoints[c.ID] = c
	}
	return nil
}

// InsertMeasurements appends fact rows
func (m *Memory) InsertMeasurements(ctx context.Context, measurements []QueueMeasurement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return m.InsertErr
	}

	m.measurements = append(m.measurements, measurements...)
	return nil
}

// ListCheckpoints returns checkpoints ordered by order_id ascending with
// nulls last, ties broken by title descending
func (m *Memory) ListCheckpoints(ctx context.Context) ([]Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	checkpoints := make([]Checkpoint, 0, len(m.checkpoints))
	for _, c := range m.checkpoints {
		checkpoints = append(checkpoints, c)
	}

	sort.Slice(checkpoints, func(i, j int) bool {
		a, b := checkpoints[i], checkpoints[j]
		switch {
		case a.OrderID == nil && b.OrderID == nil:
			return a.Title > b.Title
		case a.OrderID == nil:
			return false
		case b.OrderID == nil:
			return true
		case *a.OrderID != *b.OrderID:
			return *a.OrderID < *b.OrderID
		default:
			return a.Title > b.Title
		}
	})

	return checkpoints, nil
}

// ListCountries returns the seeded countries
func (m *Memory) ListCountries(ctx context.Context) ([]Country, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Country(nil), m.countries...), nil
}

// SeedCountries populates the read-only country dimension for tests
func (m *Memory) SeedCountries(countries []Country) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.countries = append([]Country(nil), countries...)
}

// MeasurementsInRange returns a checkpoint's measurements in [start, end)
// ordered by created_at ascending
func (m *Memory) MeasurementsInRange(ctx context.Context, checkpointID int64, start, end time.Time) ([]QueueMeasurement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []QueueMeasurement
	for _, qm := range m.measurements {
		if qm.CheckpointID != checkpointID {
			continue
		}
		if qm.CreatedAt.Before(start) || !qm.CreatedAt.Before(end) {
			continue
		}
		out = append(out, qm)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

// LatestStatus returns the most recent measurement per checkpoint joined
// with its dimension fields, mirroring the latest_queue_status view
func (m *Memory) LatestStatus(ctx context.Context) ([]LatestQueueStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	latest := make(map[int64]QueueMeasurement)
	for _, qm := range m.measurements {
		if cur, ok := latest[qm.CheckpointID]; !ok || qm.CreatedAt.After(cur.CreatedAt) {
			latest[qm.CheckpointID] = qm
		}
	}

	var statuses []LatestQueueStatus
	for id, qm := range latest {
		c, ok := m.checkpoints[id]
		if !ok {
			continue
		}
		statuses = append(statuses, LatestQueueStatus{
			CheckpointID: id,
			Title:        c.Title,
			CountryID:    c.CountryID,
			Lng:          c.Lng,
			Lat:          c.Lat,
			CreatedAt:    qm.CreatedAt,
			IsPaused:     qm.IsPaused,
			CancelAfter:  qm.CancelAfter,
			WaitTime:     qm.WaitTime,
		})
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].CheckpointID < statuses[j].CheckpointID
	})

	return statuses, nil
}

// Measurements returns a copy of all fact rows, for test assertions
func (m *Memory) Measurements() []QueueMeasurement {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]QueueMeasurement(nil), m.measurements...)
}

// Checkpoints returns a copy of all dimension rows keyed by id, for test assertions
func (m *Memory) Checkpoints() map[int64]Checkpoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64]Checkpoint, len(m.checkpoints))
	for id, c := range m.checkpoints {
		out[id] = c
	}
	return out
}
