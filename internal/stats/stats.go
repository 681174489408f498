// Package stats implements the timezone-aware query layer over the
// measurement series: day-window retrieval, week-over-week comparison, and
// the day-of-week by hour-of-day heatmap.
//
// All timezone offsets follow the JavaScript Date.getTimezoneOffset
// convention: minutes behind UTC, so UTC+2 is -120. Converting a local
// instant to UTC therefore adds the offset; converting UTC to local
// subtracts it.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okravets/border-queue-server/internal/store"
)

const heatmapLookbackDays = 30

// ErrBadDate marks a date that is not a YYYY-MM-DD calendar day.
var ErrBadDate = errors.New("invalid date")

// DayData is the day endpoint payload. PreviousWeek is only present when
// the week-over-week comparison was requested.
type DayData struct {
	Current      []store.QueueMeasurement `json:"current"`
	PreviousWeek []store.QueueMeasurement `json:"previous_week,omitempty"`
}

// HeatmapCell is one of the 168 (day-of-week, hour) buckets. AvgWaitTime is
// nil when the bucket has no qualifying samples; SampleSize is always set.
type HeatmapCell struct {
	DayOfWeek   int      `json:"day_of_week"` // Monday = 0 ... Sunday = 6
	Hour        int      `json:"hour"`
	AvgWaitTime *float64 `json:"avg_wait_time"`
	SampleSize  int      `json:"sample_size"`
}

// Service answers read-only aggregation queries. It holds no mutable state
// and is safe for unbounded concurrent use.
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService creates a new aggregation query service
func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// dayWindowUTC converts a local calendar day to its UTC instant range
// [start, start+24h). The local day is given as a naive midnight; adding
// the offset converts local to UTC (tzOffsetMinutes = -120 and 2024-03-10
// yield [2024-03-09T22:00Z, 2024-03-10T22:00Z)).
func dayWindowUTC(localMidnight time.Time, tzOffsetMinutes int) (time.Time, time.Time) {
	start := localMidnight.Add(time.Duration(tzOffsetMinutes) * time.Minute)
	return start, start.Add(24 * time.Hour)
}

// localTime converts a UTC instant to the caller's local time.
func localTime(utc time.Time, tzOffsetMinutes int) time.Time {
	return utc.UTC().Add(-time.Duration(tzOffsetMinutes) * time.Minute)
}

// DayMeasurements returns a checkpoint's measurements for one local
// calendar day, ordered by created_at ascending. With compare set it also
// fetches the window shifted exactly 7 days earlier; the two fetches are
// independent and either may be empty.
func (s *Service) DayMeasurements(ctx context.Context, checkpointID int64, date string, tzOffsetMinutes int, compare bool) (*DayData, error) {
	localMidnight, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("%w %q: expected YYYY-MM-DD", ErrBadDate, date)
	}

	start, end := dayWindowUTC(localMidnight, tzOffsetMinutes)

	current, err := s.store.MeasurementsInRange(ctx, checkpointID, start, end)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = []store.QueueMeasurement{}
	}

	data := &DayData{Current: current}

	if compare {
		prevStart := start.AddDate(0, 0, -7)
		prevEnd := end.AddDate(0, 0, -7)
		previous, err := s.store.MeasurementsInRange(ctx, checkpointID, prevStart, prevEnd)
		if err != nil {
			return nil, err
		}
		data.PreviousWeek = previous
	}

	return data, nil
}

// Heatmap aggregates the trailing 30 UTC days of a checkpoint's
// measurements into the full 168-cell grid. Consumers rely on every
// (day, hour) pair being present, including empty ones.
func (s *Service) Heatmap(ctx context.Context, checkpointID int64, tzOffsetMinutes int) ([]HeatmapCell, error) {
	end := s.now().UTC()
	start := end.AddDate(0, 0, -heatmapLookbackDays)

	measurements, err := s.store.MeasurementsInRange(ctx, checkpointID, start, end)
	if err != nil {
		return nil, err
	}

	var sums [7][24]float64
	var counts [7][24]int
	for _, m := range measurements {
		if m.WaitTime == nil {
			continue
		}
		local := localTime(m.CreatedAt, tzOffsetMinutes)
		dow := (int(local.Weekday()) + 6) % 7 // time.Weekday has Sunday = 0
		hour := local.Hour()
		sums[dow][hour] += *m.WaitTime
		counts[dow][hour]++
	}

	cells := make([]HeatmapCell, 0, 7*24)
	for dow := 0; dow < 7; dow++ {
		for hour := 0; hour < 24; hour++ {
			cell := HeatmapCell{
				DayOfWeek:  dow,
				Hour:       hour,
				SampleSize: counts[dow][hour],
			}
			if counts[dow][hour] > 0 {
				avg := sums[dow][hour] / float64(counts[dow][hour])
				cell.AvgWaitTime = &avg
			}
			cells = append(cells, cell)
		}
	}

	return cells, nil
}
