package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/db"
	"collection-route-service/internal/platform/obs"
)

// Fixed-width UTC timestamps sort lexicographically.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// SQL-backed implementation of the SolutionStore port.
type SQLSolutionStore struct {
	DB     *sql.DB
	Driver string
}

func NewSQLSolutionStore(conn *sql.DB, driver string) *SQLSolutionStore {
	return &SQLSolutionStore{DB: conn, Driver: driver}
}

func (s *SQLSolutionStore) q(query string) string { return db.Rebind(s.Driver, query) }

// Save persists the solution and its routes in one transaction.
func (s *SQLSolutionStore) Save(ctx context.Context, sol *domain.Solution) (err error) {
	defer obs.Time(ctx, "solutions.Save")(&err)

	if s.DB == nil {
		return errors.New("solution store: DB is nil")
	}
	if sol == nil || sol.SolutionID == "" {
		return errors.New("save solution: solution id must not be empty")
	}

	violations, err := json.Marshal(nonNil(sol.Violations))
	if err != nil {
		return fmt.Errorf("save solution: encode violations: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save solution: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.q(`
	INSERT INTO solutions (
		solution_id, name, created_at, depot_lat, depot_lon,
		total_distance_meters, makespan_seconds, feasible, violations,
		vehicle_count, stop_count,
		pairs, cached, provider_resolved, fallback_resolved, failed_then_fallback, batches,
		construction_distance, iterations, improvements, penalty_rounds, elapsed_ms, improvement_err
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`),
		sol.SolutionID, sol.Name, sol.CreatedAt.UTC().Format(createdAtLayout), sol.Depot.Lat, sol.Depot.Lon,
		sol.TotalDistanceMeters, sol.MakespanSeconds, sol.Feasible, string(violations),
		sol.VehicleCount, sol.StopCount,
		sol.Acquisition.Pairs, sol.Acquisition.Cached, sol.Acquisition.ProviderResolved,
		sol.Acquisition.FallbackResolved, sol.Acquisition.FailedThenFallback, sol.Acquisition.Batches,
		sol.Optimizer.ConstructionDistance, sol.Optimizer.Iterations, sol.Optimizer.Improvements,
		sol.Optimizer.PenaltyRounds, sol.Optimizer.Elapsed.Milliseconds(), sol.Optimizer.ImprovementErr,
	)
	if err != nil {
		return fmt.Errorf("save solution: insert solution %s: %w", sol.SolutionID, err)
	}

	routeStmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO solution_routes (
		solution_id, route_index, vehicle_id, capacity, route_load, distance_meters, duration_seconds
	)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("save solution: prepare route insert: %w", err)
	}
	defer routeStmt.Close()

	stopStmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO solution_route_stops (
		solution_id, route_index, position, stop_id, lat, lon, demand,
		cumulative_load, arrival_seconds, distance_to_next, duration_to_next
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("save solution: prepare stop insert: %w", err)
	}
	defer stopStmt.Close()

	for ri, r := range sol.Routes {
		if _, err := routeStmt.ExecContext(ctx,
			sol.SolutionID, ri, r.VehicleID, r.Capacity, r.Load, r.DistanceMeters, r.DurationSeconds,
		); err != nil {
			return fmt.Errorf("save solution: insert route vehicle=%s: %w", r.VehicleID, err)
		}

		for _, st := range r.Stops {
			if _, err := stopStmt.ExecContext(ctx,
				sol.SolutionID, ri, st.Position, st.StopID, st.Location.Lat, st.Location.Lon, st.Demand,
				st.CumulativeLoad, st.ArrivalSeconds, nullFloat(st.DistanceToNext), nullFloat(st.DurationToNext),
			); err != nil {
				return fmt.Errorf("save solution: insert stop %s: %w", st.StopID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save solution: commit tx: %w", err)
	}

	return nil
}

const solutionColumns = `
	solution_id, name, created_at, depot_lat, depot_lon,
	total_distance_meters, makespan_seconds, feasible, violations,
	vehicle_count, stop_count,
	pairs, cached, provider_resolved, fallback_resolved, failed_then_fallback, batches,
	construction_distance, iterations, improvements, penalty_rounds, elapsed_ms, improvement_err
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSolution(row rowScanner) (*domain.Solution, error) {
	var (
		sol        domain.Solution
		createdAt  string
		violations string
		elapsedMS  int64
	)

	err := row.Scan(
		&sol.SolutionID, &sol.Name, &createdAt, &sol.Depot.Lat, &sol.Depot.Lon,
		&sol.TotalDistanceMeters, &sol.MakespanSeconds, &sol.Feasible, &violations,
		&sol.VehicleCount, &sol.StopCount,
		&sol.Acquisition.Pairs, &sol.Acquisition.Cached, &sol.Acquisition.ProviderResolved,
		&sol.Acquisition.FallbackResolved, &sol.Acquisition.FailedThenFallback, &sol.Acquisition.Batches,
		&sol.Optimizer.ConstructionDistance, &sol.Optimizer.Iterations, &sol.Optimizer.Improvements,
		&sol.Optimizer.PenaltyRounds, &elapsedMS, &sol.Optimizer.ImprovementErr,
	)
	if err != nil {
		return nil, err
	}

	sol.CreatedAt, err = time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if err := json.Unmarshal([]byte(violations), &sol.Violations); err != nil {
		return nil, fmt.Errorf("decode violations: %w", err)
	}
	sol.Optimizer.Elapsed = time.Duration(elapsedMS) * time.Millisecond

	return &sol, nil
}

// Get returns the solution with its routes, or ErrNotFound.
func (s *SQLSolutionStore) Get(ctx context.Context, solutionID string) (*domain.Solution, error) {
	if s.DB == nil {
		return nil, errors.New("solution store: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, s.q(`SELECT `+solutionColumns+` FROM solutions WHERE solution_id = ?;`), solutionID)
	sol, err := scanSolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get solution %s: %w", solutionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get solution %s: %w", solutionID, err)
	}

	routes, err := s.loadRoutes(ctx, solutionID)
	if err != nil {
		return nil, fmt.Errorf("get solution %s: %w", solutionID, err)
	}
	sol.Routes = routes

	return sol, nil
}

func (s *SQLSolutionStore) loadRoutes(ctx context.Context, solutionID string) ([]domain.Route, error) {
	rows, err := s.DB.QueryContext(ctx, s.q(`
	SELECT vehicle_id, capacity, route_load, distance_meters, duration_seconds
	FROM solution_routes
	WHERE solution_id = ?
	ORDER BY route_index;
	`), solutionID)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}

	routes := make([]domain.Route, 0, 8)
	for rows.Next() {
		var r domain.Route
		if err := rows.Scan(&r.VehicleID, &r.Capacity, &r.Load, &r.DistanceMeters, &r.DurationSeconds); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan route: %w", err)
		}
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("route iteration: %w", err)
	}
	rows.Close()

	stopRows, err := s.DB.QueryContext(ctx, s.q(`
	SELECT route_index, position, stop_id, lat, lon, demand,
		cumulative_load, arrival_seconds, distance_to_next, duration_to_next
	FROM solution_route_stops
	WHERE solution_id = ?
	ORDER BY route_index, position;
	`), solutionID)
	if err != nil {
		return nil, fmt.Errorf("query route stops: %w", err)
	}
	defer stopRows.Close()

	for stopRows.Next() {
		var (
			ri         int
			st         domain.RouteStop
			dist, dura sql.NullFloat64
		)
		if err := stopRows.Scan(
			&ri, &st.Position, &st.StopID, &st.Location.Lat, &st.Location.Lon, &st.Demand,
			&st.CumulativeLoad, &st.ArrivalSeconds, &dist, &dura,
		); err != nil {
			return nil, fmt.Errorf("scan route stop: %w", err)
		}
		if ri < 0 || ri >= len(routes) {
			return nil, fmt.Errorf("route stop %s references missing route %d", st.StopID, ri)
		}
		st.DistanceToNext = floatPtr(dist)
		st.DurationToNext = floatPtr(dura)
		routes[ri].Stops = append(routes[ri].Stops, st)
	}
	if err := stopRows.Err(); err != nil {
		return nil, fmt.Errorf("route stop iteration: %w", err)
	}

	return routes, nil
}

// List returns solution summaries without routes, newest first.
func (s *SQLSolutionStore) List(ctx context.Context) ([]*domain.Solution, error) {
	if s.DB == nil {
		return nil, errors.New("solution store: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+solutionColumns+` FROM solutions ORDER BY created_at DESC, solution_id;`)
	if err != nil {
		return nil, fmt.Errorf("list solutions: query solutions table: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Solution, 0, 16)
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, fmt.Errorf("list solutions: scan row: %w", err)
		}
		out = append(out, sol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list solutions: row iteration: %w", err)
	}

	return out, nil
}

// Delete removes a solution and its routes, or returns ErrNotFound.
func (s *SQLSolutionStore) Delete(ctx context.Context, solutionID string) error {
	if s.DB == nil {
		return errors.New("solution store: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete solution: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM solutions WHERE solution_id = ?;`), solutionID)
	if err != nil {
		return fmt.Errorf("delete solution %s: %w", solutionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete solution %s: rows affected: %w", solutionID, err)
	}
	if n == 0 {
		return fmt.Errorf("delete solution %s: %w", solutionID, ErrNotFound)
	}

	for _, table := range []string{"solution_routes", "solution_route_stops"} {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM `+table+` WHERE solution_id = ?;`), solutionID); err != nil {
			return fmt.Errorf("delete solution %s: clear %s: %w", solutionID, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete solution: commit tx: %w", err)
	}

	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
