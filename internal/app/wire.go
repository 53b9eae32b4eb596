// Package app assembles concrete adapters behind ports from a Config.
// It is shared by the server and the dbtool.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"collection-route-service/internal/adapters/cache"
	"collection-route-service/internal/adapters/distance"
	"collection-route-service/internal/adapters/repositories"
	"collection-route-service/internal/config"
	"collection-route-service/internal/platform/db"
	"collection-route-service/internal/ports"
	"collection-route-service/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// OpenDatabase connects and ensures the schema exists.
func OpenDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, err
	}

	if err := repositories.InitSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// SeedStops loads cfg.SeedPath into the stops table. A missing file is skipped.
func SeedStops(ctx context.Context, cfg config.Config, conn *sql.DB) error {
	if _, err := os.Stat(cfg.SeedPath); errors.Is(err, os.ErrNotExist) {
		log.Printf("seed file %q not found, skipping", cfg.SeedPath)
		return nil
	}

	repo := repositories.NewSQLStopRepository(conn, cfg.DBDriver)
	n, err := repositories.SeedFromJSON(ctx, repo, cfg.SeedPath)
	if err != nil {
		return err
	}
	log.Printf("seeded stops count=%d path=%s", n, cfg.SeedPath)
	return nil
}

// NewDistanceCache selects the cache backend. The returned closer releases
// backend resources and is never nil.
func NewDistanceCache(ctx context.Context, cfg config.Config, conn *sql.DB) (ports.DistanceCache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.CacheBackend {
	case "sql", "":
		if cfg.DBDriver == db.DriverPostgres {
			return cache.NewSQLDistanceCache(conn), noop, nil
		}
		return cache.NewSqliteDistanceCache(conn), noop, nil
	case "redis":
		rc, err := cache.NewRedisDistanceCacheFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return rc, rc.Close, nil
	case "memory":
		return cache.NewMemoryDistanceCache(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported CACHE_BACKEND %q (want sql, redis or memory)", cfg.CacheBackend)
	}
}

// NewProvider builds the OSRM provider for the configured mode.
func NewProvider(cfg config.Config) (ports.DistanceProvider, error) {
	opts := distance.OSRMOptions{
		BaseURL:            cfg.OSRM.BaseURL,
		Profile:            cfg.OSRM.Profile,
		MaxPlausibleMeters: cfg.OSRM.MaxPlausibleMeters,
		RequestsPerSecond:  cfg.OSRM.RequestsPerSecond,
	}

	switch cfg.OSRM.Mode {
	case "route", "":
		return distance.NewOSRMDistanceProvider(opts)
	case "table":
		return distance.NewOSRMTableProvider(opts)
	default:
		return nil, fmt.Errorf("unsupported OSRM_MODE %q (want route or table)", cfg.OSRM.Mode)
	}
}

// SolverDefaults maps configuration onto solver defaults.
func SolverDefaults(cfg config.Config) services.SolverDefaults {
	d := services.DefaultSolverDefaults()
	d.Depot = cfg.Depot
	d.Config = services.SolveConfig{
		BatchSize:        cfg.Solve.BatchSize,
		Concurrency:      cfg.Solve.Concurrency,
		ProviderTimeout:  cfg.Solve.ProviderTimeout,
		BatchDelay:       cfg.Solve.BatchDelay,
		TimeBudget:       cfg.Solve.TimeBudget,
		MaxRouteDuration: cfg.Solve.MaxRouteDuration,
	}
	return d
}
