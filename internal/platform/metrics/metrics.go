package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// PairsAcquired counts matrix pairs by how they were resolved.
	PairsAcquired = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matrix_pairs_total", Help: "Distance matrix pairs by resolution source."},
		[]string{"source"},
	)
	// BatchDuration records the wall time of one acquisition batch.
	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "matrix_batch_duration_seconds", Help: "Acquisition batch duration in seconds.", Buckets: prometheus.DefBuckets},
	)
	// ProviderRequests counts routing provider calls by outcome.
	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "routing_provider_requests_total", Help: "Routing provider requests by outcome."},
		[]string{"outcome"},
	)
	// SolvePhaseDuration records optimizer and builder phases in seconds.
	SolvePhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solve_phase_duration_seconds", Help: "Solve phase duration in seconds.", Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120}},
		[]string{"phase"},
	)
	// Solves counts finished solves by feasibility.
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solves_total", Help: "Finished solves by feasibility."},
		[]string{"feasible"},
	)
	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry. Safe to call more than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(PairsAcquired)
		Registry.MustRegister(BatchDuration)
		Registry.MustRegister(ProviderRequests)
		Registry.MustRegister(SolvePhaseDuration)
		Registry.MustRegister(Solves)
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
