package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"collection-route-service/internal/adapters/cache"
	"collection-route-service/internal/adapters/distance"
	"collection-route-service/internal/adapters/repositories"
	"collection-route-service/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "app.db")
	cfg.SeedPath = filepath.Join(t.TempDir(), "stops.json")
	return cfg
}

func TestOpenDatabaseAndSeed(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.SeedPath, []byte(`[{"stop_id":"bin-1","lat":48.85,"lon":2.35,"demand":12}]`), 0o600))

	conn, err := OpenDatabase(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, SeedStops(ctx, cfg, conn))

	stops, err := repositories.NewSQLStopRepository(conn, cfg.DBDriver).ListStops(ctx)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.True(t, stops[0].Available)
}

func TestSeedStopsSkipsMissingFile(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	conn, err := OpenDatabase(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close()

	assert.NoError(t, SeedStops(ctx, cfg, conn))
}

func TestNewDistanceCacheBackends(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	conn, err := OpenDatabase(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close()

	c, closeFn, err := NewDistanceCache(ctx, cfg, conn)
	require.NoError(t, err)
	assert.IsType(t, &cache.SqliteDistanceCache{}, c)
	assert.NoError(t, closeFn())

	cfg.CacheBackend = "memory"
	c, _, err = NewDistanceCache(ctx, cfg, conn)
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryDistanceCache{}, c)

	mr := miniredis.RunT(t)
	cfg.CacheBackend = "redis"
	cfg.RedisURL = "redis://" + mr.Addr()
	c, closeFn, err = NewDistanceCache(ctx, cfg, conn)
	require.NoError(t, err)
	assert.IsType(t, &cache.RedisDistanceCache{}, c)
	assert.NoError(t, closeFn())

	cfg.CacheBackend = "etcd"
	_, _, err = NewDistanceCache(ctx, cfg, conn)
	assert.Error(t, err)
}

func TestNewProviderModes(t *testing.T) {
	cfg := config.Default()

	p, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &distance.OSRMDistanceProvider{}, p)

	cfg.OSRM.Mode = "table"
	p, err = NewProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &distance.OSRMTableProvider{}, p)

	cfg.OSRM.Mode = "matrix"
	_, err = NewProvider(cfg)
	assert.Error(t, err)
}

func TestSolverDefaultsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Solve.TimeBudget = 7 * time.Second

	d := SolverDefaults(cfg)
	assert.Equal(t, 7*time.Second, d.Config.TimeBudget)
	assert.Equal(t, cfg.Depot, d.Depot)
	assert.Equal(t, 0.2, d.Search.PenaltyAlpha)
}
