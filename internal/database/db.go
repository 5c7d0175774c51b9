package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"monthweather/internal/metrics"
	"monthweather/internal/models"
	"monthweather/internal/weathercode"
)

// ErrNoRuns is returned when no run has been stored for a location
var ErrNoRuns = errors.New("no runs stored")

// ErrNoObservations is returned when a location has no stored observations
var ErrNoObservations = errors.New("no observations stored")

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema
// dsn format: "username:password@tcp(host:port)/dbname?parseTime=true"
// example: "user:pass@tcp(localhost:3306)/monthweather?parseTime=true"
func NewDB(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn}

	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// initSchema creates the necessary tables
func (db *DB) initSchema(ctx context.Context) error {
	// MySQL doesn't support multiple statements in one Exec, so we need to split them
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id CHAR(36) PRIMARY KEY,
			location VARCHAR(255) NOT NULL,
			observations INT NOT NULL,
			stored_at DATETIME(6) NOT NULL,
			INDEX idx_runs_location (location, stored_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS daily_observations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id CHAR(36) NOT NULL,
			location VARCHAR(255) NOT NULL,
			source_kind VARCHAR(20) NOT NULL,
			obs_date VARCHAR(32) NOT NULL,
			weather_code INT NULL,
			description VARCHAR(100) NOT NULL,
			max_temp DOUBLE NULL,
			min_temp DOUBLE NULL,
			precipitation_sum DOUBLE NULL,
			rain_sum DOUBLE NULL,
			precipitation_hours DOUBLE NULL,
			wind_speed_max DOUBLE NULL,
			fetched_at DATETIME(6) NOT NULL,
			UNIQUE KEY uq_daily_observations (location, source_kind, obs_date),
			INDEX idx_daily_observations_date (location, obs_date)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

const upsertObservation = `INSERT INTO daily_observations
	(run_id, location, source_kind, obs_date, weather_code, description,
	 max_temp, min_temp, precipitation_sum, rain_sum, precipitation_hours, wind_speed_max, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		run_id = VALUES(run_id),
		weather_code = VALUES(weather_code),
		description = VALUES(description),
		max_temp = VALUES(max_temp),
		min_temp = VALUES(min_temp),
		precipitation_sum = VALUES(precipitation_sum),
		rain_sum = VALUES(rain_sum),
		precipitation_hours = VALUES(precipitation_hours),
		wind_speed_max = VALUES(wind_speed_max),
		fetched_at = VALUES(fetched_at)`

// StoreObservations upserts a combined series for location in one
// transaction. A later run replaces the stored values of the same
// (location, source, date), so a day moves from forecast to history by
// gaining a Historical row.
func (db *DB) StoreObservations(ctx context.Context, runID uuid.UUID, location string, obs models.CombinedSeries) error {
	defer func() {
		stats := db.conn.Stats()
		metrics.UpdateDBConnectionStats(stats.OpenConnections, stats.InUse, stats.Idle)
	}()

	if len(obs) == 0 {
		log.Printf("No observations to store for %s", location)
		return nil
	}

	// Begin transaction for batch insert
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if committed

	now := time.Now().UTC()

	queryStart := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, location, observations, stored_at) VALUES (?, ?, ?, ?)`,
		runID, location, len(obs), now)
	metrics.RecordDBQuery("INSERT", "runs", time.Since(queryStart), err)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertObservation)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		queryStart := time.Now()
		_, err = stmt.ExecContext(ctx,
			runID, location, string(o.Source), o.Date, nullCode(o.WeatherCode), o.Description,
			nullFloat(o.MaxTemp), nullFloat(o.MinTemp), nullFloat(o.PrecipitationSum),
			nullFloat(o.RainSum), nullFloat(o.PrecipitationHours), nullFloat(o.WindSpeedMax),
			now)
		metrics.RecordDBQuery("UPSERT", "daily_observations", time.Since(queryStart), err)
		if err != nil {
			return fmt.Errorf("failed to store %s observation for %s: %w", o.Source, o.Date, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("✓ Stored %d observations for %s (run %s)", len(obs), location, runID)
	return nil
}

// GetObservations returns the stored rows of location with from <= date <= to
// (YYYY-MM-DD), historical rows first and each source in date order, which
// is the shape of a combined series.
func (db *DB) GetObservations(ctx context.Context, location, from, to string) (models.CombinedSeries, error) {
	query := `SELECT obs_date, source_kind, weather_code, description,
		max_temp, min_temp, precipitation_sum, rain_sum, precipitation_hours, wind_speed_max
		FROM daily_observations
		WHERE location = ? AND obs_date >= ? AND obs_date <= ?
		ORDER BY FIELD(source_kind, 'Historical', 'Forecast'), obs_date`

	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, location, from, to)
	metrics.RecordDBQuery("SELECT", "daily_observations", time.Since(queryStart), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var out models.CombinedSeries
	for rows.Next() {
		var o models.DailyObservation
		var source string
		var code sql.NullInt64
		var maxT, minT, precip, rain, hours, wind sql.NullFloat64
		if err := rows.Scan(&o.Date, &source, &code, &o.Description,
			&maxT, &minT, &precip, &rain, &hours, &wind); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}

		o.Source = models.SourceKind(source)
		o.WeatherCode = codeFrom(code)
		if o.Description == "" {
			o.Description = weathercode.Describe(o.WeatherCode)
		}
		o.MaxTemp = readingFrom(maxT)
		o.MinTemp = readingFrom(minT)
		o.PrecipitationSum = readingFrom(precip)
		o.RainSum = readingFrom(rain)
		o.PrecipitationHours = readingFrom(hours)
		o.WindSpeedMax = readingFrom(wind)
		o.Day, _ = models.ParseDay(o.Date)

		out = append(out, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observations: %w", err)
	}

	return out, nil
}

// LatestRunID returns the most recently stored run for location
func (db *DB) LatestRunID(ctx context.Context, location string) (uuid.UUID, error) {
	var id uuid.UUID
	row := db.conn.QueryRowContext(ctx,
		`SELECT id FROM runs WHERE location = ? ORDER BY stored_at DESC LIMIT 1`, location)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%s: %w", location, ErrNoRuns)
		}
		return uuid.Nil, fmt.Errorf("failed to scan run: %w", err)
	}
	return id, nil
}

// GetLocationsWithData returns a set of all locations that have data in the database
func (db *DB) GetLocationsWithData(ctx context.Context) (map[string]bool, error) {
	query := `SELECT DISTINCT location FROM daily_observations`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get locations with data: %w", err)
	}
	defer rows.Close()

	locations := make(map[string]bool)
	for rows.Next() {
		var location string
		if err := rows.Scan(&location); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations[location] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}

	return locations, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
