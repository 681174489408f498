package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Postgres is the production Store backed by database/sql.
type Postgres struct {
	db *sql.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*Postgres, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &Postgres{db: db}, nil
}

// Close closes the underlying connection pool
func (s *Postgres) Close() error {
	return s.db.Close()
}

// RunMigrations executes all SQL migration files in order. Every file must
// be idempotent since the runner re-executes all of them on each start.
func (s *Postgres) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		fmt.Printf("Running migration: %s\n", filename)

		filePath := filepath.Join(migrationsDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	fmt.Println("All migrations completed successfully")
	return nil
}

// UpsertCheckpoints upserts all checkpoint rows in a single statement.
// order_id is left untouched: it is maintained by hand in the database and
// snapshots do not carry it.
func (s *Postgres) UpsertCheckpoints(ctx context.Context, checkpoints []Checkpoint) error {
	if len(checkpoints) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO checkpoints (id, title, tooltip, country_id, for_vehicle_type, queue_flow, lng, lat)
		VALUES `)

	args := make([]interface{}, 0, len(checkpoints)*8)
	for i, c := range checkpoints {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 8
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		args = append(args, c.ID, c.Title, c.Tooltip, c.CountryID,
			c.ForVehicleType, c.QueueFlow, c.Lng, c.Lat)
	}

	sb.WriteString(`
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    tooltip = EXCLUDED.tooltip,
		    country_id = EXCLUDED.country_id,
		    for_vehicle_type = EXCLUDED.for_vehicle_type,
		    queue_flow = EXCLUDED.queue_flow,
		    lng = EXCLUDED.lng,
		    lat = EXCLUDED.lat,
		    updated_at = CURRENT_TIMESTAMP`)

	_, err := s.db.ExecContext(ctx, sb.String(), args...)
	return err
}

// InsertMeasurements appends all measurement rows in a single statement.
func (s *Postgres) InsertMeasurements(ctx context.Context, measurements []QueueMeasurement) error {
	if len(measurements) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO queue_measurements (checkpoint_id, created_at, is_paused, cancel_after, wait_time, vehicle_in_active_queues_counts)
		VALUES `)

	args := make([]interface{}, 0, len(measurements)*6)
	for i, m := range measurements {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 6
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6)

		var payload interface{}
		if m.VehicleInActiveQueuesCounts != nil {
			payload = []byte(m.VehicleInActiveQueuesCounts)
		}
		args = append(args, m.CheckpointID, m.CreatedAt, m.IsPaused,
			m.CancelAfter, m.WaitTime, payload)
	}

	_, err := s.db.ExecContext(ctx, sb.String(), args...)
	return err
}

// ListCheckpoints retrieves all checkpoints in display order
func (s *Postgres) ListCheckpoints(ctx context.Context) ([]Checkpoint, error) {
	query := `
		SELECT id, title, tooltip, country_id, for_vehicle_type, queue_flow, lng, lat, order_id
		FROM checkpoints
		ORDER BY order_id ASC NULLS LAST, title DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkpoints []Checkpoint
	for rows.Next() {
		var c Checkpoint
		if err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.Tooltip,
			&c.CountryID,
			&c.ForVehicleType,
			&c.QueueFlow,
			&c.Lng,
			&c.Lat,
			&c.OrderID,
		); err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, c)
	}

	return checkpoints, rows.Err()
}

// ListCountries retrieves the country dimension
func (s *Postgres) ListCountries(ctx context.Context) ([]Country, error) {
	query := `
		SELECT id, name, COALESCE(code, '')
		FROM countries
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var countries []Country
	for rows.Next() {
		var c Country
		if err := rows.Scan(&c.ID, &c.Name, &c.Code); err != nil {
			return nil, err
		}
		countries = append(countries, c)
	}

	return countries, rows.Err()
}

// MeasurementsInRange retrieves a checkpoint's measurements in [start, end)
func (s *Postgres) MeasurementsInRange(ctx context.Context, checkpointID int64, start, end time.Time) ([]QueueMeasurement, error) {
	query := `
		SELECT checkpoint_id, created_at, is_paused, cancel_after, wait_time, vehicle_in_active_queues_counts
		FROM queue_measurements
		WHERE checkpoint_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, checkpointID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var measurements []QueueMeasurement
	for rows.Next() {
		var m QueueMeasurement
		var payload []byte
		if err := rows.Scan(
			&m.CheckpointID,
			&m.CreatedAt,
			&m.IsPaused,
			&m.CancelAfter,
			&m.WaitTime,
			&payload,
		); err != nil {
			return nil, err
		}
		if payload != nil {
			m.VehicleInActiveQueuesCounts = append([]byte(nil), payload...)
		}
		measurements = append(measurements, m)
	}

	return measurements, rows.Err()
}

// LatestStatus retrieves the latest_queue_status view
func (s *Postgres) LatestStatus(ctx context.Context) ([]LatestQueueStatus, error) {
	query := `
		SELECT checkpoint_id, title, country_id, lng, lat, created_at, is_paused, cancel_after, wait_time
		FROM latest_queue_status
		ORDER BY checkpoint_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []LatestQueueStatus
	for rows.Next() {
		var st LatestQueueStatus
		if err := rows.Scan(
			&st.CheckpointID,
			&st.Title,
			&st.CountryID,
			&st.Lng,
			&st.Lat,
			&st.CreatedAt,
			&st.IsPaused,
			&st.CancelAfter,
			&st.WaitTime,
		); err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}

	return statuses, rows.Err()
}
