package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collection-route-service/internal/adapters/distance"
	"collection-route-service/internal/adapters/repositories"
	"collection-route-service/internal/api"
	"collection-route-service/internal/app"
	"collection-route-service/internal/config"
	"collection-route-service/internal/platform/metrics"
	"collection-route-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (SQL store, distance cache, OSRM) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	// Seed demo stops on startup for local runs.
	if err := app.SeedStops(ctx, cfg, conn); err != nil {
		log.Fatal(err)
	}

	metrics.RegisterDefault()

	distanceCache, closeCache, err := app.NewDistanceCache(ctx, cfg, conn)
	if err != nil {
		log.Fatal(err)
	}
	defer closeCache()

	provider, err := app.NewProvider(cfg)
	if err != nil {
		log.Fatal(err)
	}

	builder := services.NewMatrixBuilder(distance.NewRoutingClient(provider), distanceCache)
	stops := repositories.NewSQLStopRepository(conn, cfg.DBDriver)
	store := repositories.NewSQLSolutionStore(conn, cfg.DBDriver)
	solver := services.NewSolver(builder, stops, store, app.SolverDefaults(cfg))

	router := api.NewRouter(stops, store, solver, conn)

	// A cold cache plus the search budget can keep a solve request open for a while.
	log.Printf("Server listening addr=:%s driver=%s cache=%s osrm_mode=%s", cfg.Port, cfg.DBDriver, cfg.CacheBackend, cfg.OSRM.Mode)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Solve.TimeBudget + 120*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown err=%v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}
