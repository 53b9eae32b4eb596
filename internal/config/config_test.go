package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 25, cfg.Solve.BatchSize)
	assert.Equal(t, 5, cfg.Solve.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Solve.TimeBudget)
	assert.Equal(t, 48.8566, cfg.Depot.Lat)
}

func TestLoadYAMLThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	body := `
port: "9090"
cache_backend: redis
osrm:
  mode: table
  max_plausible_meters: 20000
depot:
  lat: 45.764
  lon: 4.8357
solve:
  batch_size: 40
  time_budget: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("FETCH_CONCURRENCY", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, "table", cfg.OSRM.Mode)
	assert.Equal(t, 20000.0, cfg.OSRM.MaxPlausibleMeters)
	assert.Equal(t, 45.764, cfg.Depot.Lat)
	assert.Equal(t, 40, cfg.Solve.BatchSize)
	assert.Equal(t, 3, cfg.Solve.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Solve.TimeBudget)
	assert.Equal(t, time.Second, cfg.Solve.BatchDelay)
}

func TestLoadRejectsBadNumber(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("BATCH_SIZE", "many")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := Default()
	dsn, err := cfg.DSN()
	require.NoError(t, err)
	assert.Equal(t, "data/app.db", dsn)

	cfg.DBDriver = "pgx"
	_, err = cfg.DSN()
	assert.Error(t, err)

	cfg.DatabaseURL = "postgres://routes@localhost/routes"
	dsn, err = cfg.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://routes@localhost/routes", dsn)

	cfg.DBDriver = "mysql"
	_, err = cfg.DSN()
	assert.Error(t, err)
}
