package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/okravets/border-queue-server/internal/stats"
	"github.com/okravets/border-queue-server/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(st store.Store) *gin.Engine {
	return NewServer(st, stats.NewService(st), nil).Router()
}

func doGet(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCheckpointsEndpoint(t *testing.T) {
	mem := store.NewMemory()
	if err := mem.UpsertCheckpoints(context.Background(), []store.Checkpoint{
		{ID: 1, Title: "Shehyni", CountryID: 2},
		{ID: 2, Title: "Yahodyn", CountryID: 2},
	}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	w := doGet(t, newTestRouter(mem), "/api/checkpoints")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var checkpoints []store.Checkpoint
	if err := json.Unmarshal(w.Body.Bytes(), &checkpoints); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(checkpoints) != 2 {
		t.Errorf("Expected 2 checkpoints, got %d", len(checkpoints))
	}
}

func TestCheckpointsEndpointEmpty(t *testing.T) {
	w := doGet(t, newTestRouter(store.NewMemory()), "/api/checkpoints")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != "[]" {
		t.Errorf("Expected empty JSON array, got %s", body)
	}
}

func TestDayEndpoint(t *testing.T) {
	mem := store.NewMemory()
	wt := 7200.0
	if err := mem.InsertMeasurements(context.Background(), []store.QueueMeasurement{
		{CheckpointID: 1, CreatedAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), WaitTime: &wt},
		{CheckpointID: 1, CreatedAt: time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC), WaitTime: &wt},
	}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	w := doGet(t, newTestRouter(mem), "/api/checkpoint/1/day/2024-03-10?tz_offset=-120&compare=true")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var data struct {
		Current      []store.QueueMeasurement `json:"current"`
		PreviousWeek []store.QueueMeasurement `json:"previous_week"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &data); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(data.Current) != 1 {
		t.Errorf("Expected 1 current measurement, got %d", len(data.Current))
	}
	if len(data.PreviousWeek) != 1 {
		t.Errorf("Expected 1 previous_week measurement, got %d", len(data.PreviousWeek))
	}
}

func TestDayEndpointBadParams(t *testing.T) {
	router := newTestRouter(store.NewMemory())

	for name, path := range map[string]string{
		"bad id":        "/api/checkpoint/abc/day/2024-03-10",
		"bad date":      "/api/checkpoint/1/day/March-10",
		"bad tz_offset": "/api/checkpoint/1/day/2024-03-10?tz_offset=oops",
	} {
		w := doGet(t, router, path)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, w.Code)
		}

		var payload map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
			t.Fatalf("%s: invalid JSON response: %v", name, err)
		}
		if payload["error"] == "" {
			t.Errorf("%s: expected error payload, got %s", name, w.Body.String())
		}
	}
}

func TestHeatmapEndpoint(t *testing.T) {
	w := doGet(t, newTestRouter(store.NewMemory()), "/api/checkpoint/1/heatmap?tz_offset=-120")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var cells []stats.HeatmapCell
	if err := json.Unmarshal(w.Body.Bytes(), &cells); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(cells) != 168 {
		t.Errorf("Expected the full 168-cell grid, got %d", len(cells))
	}
}

func TestLatestEndpoint(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	if err := mem.UpsertCheckpoints(ctx, []store.Checkpoint{{ID: 1, Title: "Shehyni", CountryID: 2}}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if err := mem.InsertMeasurements(ctx, []store.QueueMeasurement{
		{CheckpointID: 1, CreatedAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
	}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	w := doGet(t, newTestRouter(mem), "/api/latest")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var statuses []store.LatestQueueStatus
	if err := json.Unmarshal(w.Body.Bytes(), &statuses); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Title != "Shehyni" {
		t.Errorf("Unexpected latest payload: %+v", statuses)
	}
}

func TestCountriesEndpoint(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedCountries([]store.Country{
		{ID: 1, Name: "Ukraine", Code: "UA"},
		{ID: 2, Name: "Poland", Code: "PL"},
	})

	w := doGet(t, newTestRouter(mem), "/api/countries")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var countries []store.Country
	if err := json.Unmarshal(w.Body.Bytes(), &countries); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(countries) != 2 || countries[0].Code != "UA" {
		t.Errorf("Unexpected countries payload: %+v", countries)
	}
}

// failingStore simulates an unreachable backing store.
type failingStore struct{}

var errStoreDown = errors.New("store unreachable")

func (failingStore) UpsertCheckpoints(ctx context.Context, checkpoints []store.Checkpoint) error {
	return errStoreDown
}
func (failingStore) InsertMeasurements(ctx context.Context, measurements []store.QueueMeasurement) error {
	return errStoreDown
}
func (failingStore) ListCheckpoints(ctx context.Context) ([]store.Checkpoint, error) {
	return nil, errStoreDown
}
func (failingStore) ListCountries(ctx context.Context) ([]store.Country, error) {
	return nil, errStoreDown
}
func (failingStore) MeasurementsInRange(ctx context.Context, checkpointID int64, start, end time.Time) ([]store.QueueMeasurement, error) {
	return nil, errStoreDown
}
func (failingStore) LatestStatus(ctx context.Context) ([]store.LatestQueueStatus, error) {
	return nil, errStoreDown
}

func TestStoreFailuresReturnErrorPayload(t *testing.T) {
	router := newTestRouter(failingStore{})

	for _, path := range []string{
		"/api/checkpoints",
		"/api/checkpoint/1/day/2024-03-10",
		"/api/checkpoint/1/heatmap",
		"/api/latest",
		"/api/countries",
	} {
		w := doGet(t, router, path)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s: expected 500, got %d", path, w.Code)
		}

		var payload map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
			t.Fatalf("%s: invalid JSON response: %v", path, err)
		}
		if payload["error"] == "" {
			t.Errorf("%s: expected error payload, got %s", path, w.Body.String())
		}
	}
}
