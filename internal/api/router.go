package api

import (
	"net/http"

	"collection-route-service/internal/api/handlers"
	"collection-route-service/internal/platform/metrics"
	"collection-route-service/internal/ports"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(
	stops ports.StopRepository,
	store ports.SolutionStore,
	solver handlers.Solver,
	db handlers.Pinger,
) http.Handler {
	mux := http.NewServeMux()

	healthHandler := &handlers.HealthHandler{DB: db}
	stopHandler := &handlers.StopHandler{Repo: stops}
	solutionHandler := &handlers.SolutionHandler{Solver: solver, Store: store}

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /stops", stopHandler.List)
	mux.HandleFunc("POST /solutions", solutionHandler.Create)
	mux.HandleFunc("GET /solutions", solutionHandler.List)
	mux.HandleFunc("GET /solutions/{id}", solutionHandler.Get)
	mux.HandleFunc("DELETE /solutions/{id}", solutionHandler.Delete)

	return loggingMiddleware(mux)
}
