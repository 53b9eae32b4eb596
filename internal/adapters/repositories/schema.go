package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InitSchema creates every table the service uses. The DDL is portable
// between SQLite and Postgres.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS stops (
		stop_id TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		demand DOUBLE PRECISION NOT NULL,
		available BOOLEAN NOT NULL
	);
	`

	createDistanceCacheQuery := `
	CREATE TABLE IF NOT EXISTS distance_cache (
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		distance_meters DOUBLE PRECISION NOT NULL,
		duration_seconds DOUBLE PRECISION NOT NULL,
		source TEXT NOT NULL,
		PRIMARY KEY (origin, destination)
	);
	`

	createDistanceIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_distance_cache_destination_origin
	ON distance_cache(destination, origin);
	`

	createSolutionsQuery := `
	CREATE TABLE IF NOT EXISTS solutions (
		solution_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		depot_lat DOUBLE PRECISION NOT NULL,
		depot_lon DOUBLE PRECISION NOT NULL,
		total_distance_meters DOUBLE PRECISION NOT NULL,
		makespan_seconds DOUBLE PRECISION NOT NULL,
		feasible BOOLEAN NOT NULL,
		violations TEXT NOT NULL,
		vehicle_count INTEGER NOT NULL,
		stop_count INTEGER NOT NULL,
		pairs INTEGER NOT NULL,
		cached INTEGER NOT NULL,
		provider_resolved INTEGER NOT NULL,
		fallback_resolved INTEGER NOT NULL,
		failed_then_fallback INTEGER NOT NULL,
		batches INTEGER NOT NULL,
		construction_distance DOUBLE PRECISION NOT NULL,
		iterations INTEGER NOT NULL,
		improvements INTEGER NOT NULL,
		penalty_rounds INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		improvement_err TEXT NOT NULL
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS solution_routes (
		solution_id TEXT NOT NULL,
		route_index INTEGER NOT NULL,
		vehicle_id TEXT NOT NULL,
		capacity DOUBLE PRECISION NOT NULL,
		route_load DOUBLE PRECISION NOT NULL,
		distance_meters DOUBLE PRECISION NOT NULL,
		duration_seconds DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (solution_id, route_index)
	);
	`

	createRouteStopsQuery := `
	CREATE TABLE IF NOT EXISTS solution_route_stops (
		solution_id TEXT NOT NULL,
		route_index INTEGER NOT NULL,
		position INTEGER NOT NULL,
		stop_id TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		demand DOUBLE PRECISION NOT NULL,
		cumulative_load DOUBLE PRECISION NOT NULL,
		arrival_seconds DOUBLE PRECISION NOT NULL,
		distance_to_next DOUBLE PRECISION,
		duration_to_next DOUBLE PRECISION,
		PRIMARY KEY (solution_id, route_index, position)
	);
	`

	statements := []string{
		createStopsQuery,
		createDistanceCacheQuery,
		createDistanceIndexQuery,
		createSolutionsQuery,
		createRoutesQuery,
		createRouteStopsQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
