package repositories

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, InitSchema(context.Background(), conn))
	return conn
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	conn := newTestDB(t)
	require.NoError(t, InitSchema(context.Background(), conn))
}

func TestSeedAndListStops(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewSQLStopRepository(conn, db.DriverSQLite)

	path := filepath.Join(t.TempDir(), "stops.json")
	body := `[
		{"stop_id": "bin-002", "lat": 48.86, "lon": 2.34, "demand": 40},
		{"stop_id": "bin-001", "lat": 48.85, "lon": 2.35, "demand": 30, "available": false}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	n, err := SeedFromJSON(ctx, repo, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stops, err := repo.ListStops(ctx)
	require.NoError(t, err)
	require.Len(t, stops, 2)

	assert.Equal(t, "bin-001", stops[0].StopID)
	assert.False(t, stops[0].Available)
	assert.Equal(t, 30.0, stops[0].Demand)
	assert.True(t, stops[1].Available)
	assert.Equal(t, domain.Coordinates{Lat: 48.86, Lon: 2.34}, stops[1].Location)

	// Reseeding updates in place.
	require.NoError(t, repo.UpsertStops(ctx, []domain.Stop{{StopID: "bin-001", Location: stops[0].Location, Demand: 55, Available: true}}))
	stops, err = repo.ListStops(ctx)
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, 55.0, stops[0].Demand)
}

func TestLoadStopSeedsRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty id":  `[{"stop_id": " ", "lat": 1, "lon": 1, "demand": 1}]`,
		"duplicate": `[{"stop_id": "a", "lat": 1, "lon": 1, "demand": 1}, {"stop_id": "a", "lat": 1, "lon": 1, "demand": 1}]`,
		"latitude":  `[{"stop_id": "a", "lat": 91, "lon": 1, "demand": 1}]`,
		"demand":    `[{"stop_id": "a", "lat": 1, "lon": 1, "demand": -1}]`,
		"json":      `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "stops.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := LoadStopSeeds(path)
			assert.Error(t, err)
		})
	}
}

func sampleSolution(id string, created time.Time) *domain.Solution {
	d := 812.5
	dur := 97.0
	return &domain.Solution{
		SolutionID:          id,
		Name:                "morning",
		CreatedAt:           created,
		Depot:               domain.Coordinates{Lat: 48.8566, Lon: 2.3522},
		TotalDistanceMeters: 4200,
		MakespanSeconds:     610,
		Feasible:            false,
		Violations:          []string{"truck-1: load 120 exceeds capacity 100"},
		VehicleCount:        1,
		StopCount:           2,
		Acquisition:         domain.AcquisitionStats{Pairs: 3, Cached: 1, ProviderResolved: 1, FallbackResolved: 1, Batches: 1},
		Optimizer:           domain.OptimizerStats{ConstructionDistance: 4300, Iterations: 10, Improvements: 2, Elapsed: 1500 * time.Millisecond},
		Routes: []domain.Route{{
			VehicleID: "truck-1", Capacity: 100, Load: 120, DistanceMeters: 4200, DurationSeconds: 610,
			Stops: []domain.RouteStop{
				{Position: 0, StopID: "bin-001", Location: domain.Coordinates{Lat: 48.85, Lon: 2.35}, Demand: 50, CumulativeLoad: 50, ArrivalSeconds: 200, DistanceToNext: &d, DurationToNext: &dur},
				{Position: 1, StopID: "bin-002", Location: domain.Coordinates{Lat: 48.86, Lon: 2.34}, Demand: 70, CumulativeLoad: 120, ArrivalSeconds: 297},
			},
		}},
	}
}

func TestSolutionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSQLSolutionStore(newTestDB(t), db.DriverSQLite)

	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	want := sampleSolution("sol-1", created)
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Get(ctx, "sol-1")
	require.NoError(t, err)

	assert.Equal(t, want.Name, got.Name)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Equal(t, want.Violations, got.Violations)
	assert.Equal(t, want.Acquisition, got.Acquisition)
	assert.Equal(t, want.Optimizer, got.Optimizer)
	assert.False(t, got.Feasible)
	require.Len(t, got.Routes, 1)
	require.Len(t, got.Routes[0].Stops, 2)
	assert.Equal(t, 812.5, *got.Routes[0].Stops[0].DistanceToNext)
	assert.Nil(t, got.Routes[0].Stops[1].DistanceToNext)
	assert.Equal(t, want.Routes[0].Stops[1], got.Routes[0].Stops[1])
}

func TestSolutionStoreListNewestFirstAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewSQLSolutionStore(newTestDB(t), db.DriverSQLite)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, sampleSolution("old", base)))
	require.NoError(t, store.Save(ctx, sampleSolution("new", base.Add(time.Hour))))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].SolutionID)
	assert.Empty(t, list[0].Routes)

	require.NoError(t, store.Delete(ctx, "old"))
	_, err = store.Get(ctx, "old")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = store.Delete(ctx, "old")
	assert.True(t, errors.Is(err, ErrNotFound))
}
