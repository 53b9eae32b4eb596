package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/db"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SQL-backed implementation of the StopRepository port.
type SQLStopRepository struct {
	DB     *sql.DB
	Driver string
}

func NewSQLStopRepository(conn *sql.DB, driver string) *SQLStopRepository {
	return &SQLStopRepository{DB: conn, Driver: driver}
}

// Return all stops stored in the database.
func (s *SQLStopRepository) ListStops(ctx context.Context) ([]domain.Stop, error) {
	if s.DB == nil {
		return nil, errors.New("stop repository: DB is nil")
	}

	query := `
	SELECT
		stop_id,
		lat,
		lon,
		demand,
		available
	FROM stops
	ORDER BY stop_id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stops: query stops table: %w", err)
	}
	defer rows.Close()

	stops := make([]domain.Stop, 0, 64)
	for rows.Next() {
		var st domain.Stop
		if err := rows.Scan(&st.StopID, &st.Location.Lat, &st.Location.Lon, &st.Demand, &st.Available); err != nil {
			return nil, fmt.Errorf("list stops: scan row: %w", err)
		}
		stops = append(stops, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stops: row iteration: %w", err)
	}

	return stops, nil
}

// UpsertStops inserts or replaces stops in one transaction.
func (s *SQLStopRepository) UpsertStops(ctx context.Context, stops []domain.Stop) error {
	if s.DB == nil {
		return errors.New("stop repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert stops: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := db.Rebind(s.Driver, `
	INSERT INTO stops (stop_id, lat, lon, demand, available)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (stop_id) DO UPDATE
	SET lat = EXCLUDED.lat,
		lon = EXCLUDED.lon,
		demand = EXCLUDED.demand,
		available = EXCLUDED.available;
	`)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("upsert stops: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stops {
		if _, err := stmt.ExecContext(ctx, st.StopID, st.Location.Lat, st.Location.Lon, st.Demand, st.Available); err != nil {
			return fmt.Errorf("upsert stops: insert stop_id=%s: %w", st.StopID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert stops: commit tx: %w", err)
	}

	return nil
}

type StopSeed struct {
	StopID    string  `json:"stop_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Demand    float64 `json:"demand"`
	Available *bool   `json:"available"`
}

// LoadStopSeeds reads and validates a JSON seed file. Missing "available"
// defaults to true.
func LoadStopSeeds(jsonPath string) ([]domain.Stop, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed stops: read %q: %w", jsonPath, err)
	}

	var data []StopSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("seed stops: parse json: %w", err)
	}

	seen := make(map[string]struct{}, len(data))
	stops := make([]domain.Stop, 0, len(data))
	for i, item := range data {
		id := strings.TrimSpace(item.StopID)
		if id == "" {
			return nil, fmt.Errorf("seed stops: item at index %d: stop_id cannot be empty", i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("seed stops: duplicate stop_id %q", id)
		}
		seen[id] = struct{}{}

		loc := domain.Coordinates{Lat: item.Lat, Lon: item.Lon}
		if err := loc.Validate(); err != nil {
			return nil, fmt.Errorf("seed stops: stop_id=%s: %w", id, err)
		}
		if item.Demand < 0 {
			return nil, fmt.Errorf("seed stops: stop_id=%s: negative demand %v", id, item.Demand)
		}

		available := true
		if item.Available != nil {
			available = *item.Available
		}
		stops = append(stops, domain.Stop{StopID: id, Location: loc, Demand: item.Demand, Available: available})
	}

	return stops, nil
}

// SeedFromJSON populates the stops table from a JSON file.
func SeedFromJSON(ctx context.Context, repo *SQLStopRepository, jsonPath string) (int, error) {
	stops, err := LoadStopSeeds(jsonPath)
	if err != nil {
		return 0, err
	}
	if err := repo.UpsertStops(ctx, stops); err != nil {
		return 0, fmt.Errorf("seed stops: %w", err)
	}
	return len(stops), nil
}
