package services

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/metrics"
	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/ports"

	"github.com/google/uuid"
)

// Off switches a duration knob off for one solve: no pause between batches,
// construction only, or no route duration cap.
const Off time.Duration = -1

// SolveConfig tunes one solve. Zero values take the solver defaults.
// BatchDelay, TimeBudget and MaxRouteDuration also accept Off.
type SolveConfig struct {
	BatchSize        int
	Concurrency      int
	ProviderTimeout  time.Duration
	BatchDelay       time.Duration
	TimeBudget       time.Duration
	MaxRouteDuration time.Duration
}

func (c SolveConfig) withDefaults(d SolveConfig) SolveConfig {
	if c.BatchSize == 0 {
		c.BatchSize = d.BatchSize
	}
	if c.Concurrency == 0 {
		c.Concurrency = d.Concurrency
	}
	if c.ProviderTimeout == 0 {
		c.ProviderTimeout = d.ProviderTimeout
	}
	if c.BatchDelay == 0 {
		c.BatchDelay = d.BatchDelay
	}
	if c.TimeBudget == 0 {
		c.TimeBudget = d.TimeBudget
	}
	if c.MaxRouteDuration == 0 {
		c.MaxRouteDuration = d.MaxRouteDuration
	}

	for _, v := range []*time.Duration{&c.BatchDelay, &c.TimeBudget, &c.MaxRouteDuration} {
		if *v == Off {
			*v = 0
		}
	}
	return c
}

func (c SolveConfig) validate() error {
	switch {
	case c.BatchSize < 0:
		return domain.NewValidationError("batch_size", "must be >= 0, got %d", c.BatchSize)
	case c.Concurrency < 0:
		return domain.NewValidationError("concurrency", "must be >= 0, got %d", c.Concurrency)
	case c.ProviderTimeout < 0:
		return domain.NewValidationError("provider_timeout", "must be >= 0, got %s", c.ProviderTimeout)
	case c.BatchDelay < 0 && c.BatchDelay != Off:
		return domain.NewValidationError("batch_delay", "must be >= 0, got %s", c.BatchDelay)
	case c.TimeBudget < 0 && c.TimeBudget != Off:
		return domain.NewValidationError("time_budget", "must be >= 0, got %s", c.TimeBudget)
	case c.MaxRouteDuration < 0 && c.MaxRouteDuration != Off:
		return domain.NewValidationError("max_route_duration", "must be >= 0, got %s", c.MaxRouteDuration)
	}
	return nil
}

// SolveRequest describes one routing problem. A nil Depot uses the solver's
// depot; nil Stops loads every stop from the repository.
type SolveRequest struct {
	Name           string
	Depot          *domain.Coordinates
	Stops          []domain.Stop
	Vehicles       []domain.Vehicle
	StopsToCollect int
	Config         SolveConfig
}

type SolverDefaults struct {
	Depot  domain.Coordinates
	Config SolveConfig
	Search OptimizerConfig
}

func DefaultSolverDefaults() SolverDefaults {
	b := DefaultBuildOptions()
	o := DefaultOptimizerConfig()
	return SolverDefaults{
		Depot: domain.Coordinates{Lat: 48.8566, Lon: 2.3522},
		Config: SolveConfig{
			BatchSize:       b.BatchSize,
			Concurrency:     b.Concurrency,
			ProviderTimeout: b.ProviderTimeout,
			BatchDelay:      b.BatchDelay,
			TimeBudget:      o.TimeBudget,
		},
		Search: o,
	}
}

// Solver runs the full pipeline: stop selection, matrix build,
// optimization, extraction and optional persistence.
type Solver struct {
	builder  *MatrixBuilder
	stops    ports.StopRepository
	store    ports.SolutionStore
	defaults SolverDefaults
	now      func() time.Time
}

// NewSolver returns a solver. stops and store may be nil.
func NewSolver(builder *MatrixBuilder, stops ports.StopRepository, store ports.SolutionStore, defaults SolverDefaults) *Solver {
	return &Solver{builder: builder, stops: stops, store: store, defaults: defaults, now: time.Now}
}

func (s *Solver) Solve(ctx context.Context, req SolveRequest) (_ *domain.Solution, err error) {
	defer obs.Time(ctx, "solver.Solve")(&err)

	if err := req.Config.validate(); err != nil {
		return nil, err
	}
	cfg := req.Config.withDefaults(s.defaults.Config)

	if err := validateVehicles(req.Vehicles); err != nil {
		return nil, err
	}

	depot := s.defaults.Depot
	if req.Depot != nil {
		depot = *req.Depot
	}
	if err := depot.Validate(); err != nil {
		return nil, domain.NewValidationError("depot", "%v", err)
	}

	all := req.Stops
	if all == nil && s.stops != nil {
		all, err = s.stops.ListStops(ctx)
		if err != nil {
			return nil, fmt.Errorf("solve: list stops: %w", err)
		}
	}
	if err := validateStops(all); err != nil {
		return nil, err
	}

	selected, err := selectStops(all, req.StopsToCollect)
	if err != nil {
		return nil, err
	}

	created := s.now().UTC()
	sol := domain.Solution{Depot: depot, Routes: []domain.Route{}, Violations: []string{}, Feasible: true}

	if len(selected) > 0 {
		sol, err = s.route(ctx, depot, selected, req.Vehicles, cfg)
		if err != nil {
			return nil, err
		}
	}

	sol.SolutionID = uuid.NewString()
	sol.CreatedAt = created
	sol.Name = strings.TrimSpace(req.Name)
	if sol.Name == "" {
		sol.Name = "solve-" + created.Format("20060102-150405")
	}

	metrics.Solves.WithLabelValues(strconv.FormatBool(sol.Feasible)).Inc()

	if s.store != nil {
		if err := s.store.Save(ctx, &sol); err != nil {
			return nil, fmt.Errorf("solve: save solution: %w", err)
		}
	}

	return &sol, nil
}

func (s *Solver) route(
	ctx context.Context,
	depot domain.Coordinates,
	stops []domain.Stop,
	vehicles []domain.Vehicle,
	cfg SolveConfig,
) (domain.Solution, error) {
	nodes := make([]domain.Coordinates, 0, len(stops)+1)
	demands := make([]float64, 0, len(stops)+1)
	nodes = append(nodes, depot)
	demands = append(demands, 0)
	for _, st := range stops {
		nodes = append(nodes, st.Location)
		demands = append(demands, st.Demand)
	}

	buildStart := time.Now()
	matrix, acq, err := s.builder.Build(ctx, nodes, BuildOptions{
		BatchSize:       cfg.BatchSize,
		Concurrency:     cfg.Concurrency,
		ProviderTimeout: cfg.ProviderTimeout,
		BatchDelay:      cfg.BatchDelay,
	})
	if err != nil {
		return domain.Solution{}, fmt.Errorf("solve: %w", err)
	}
	metrics.SolvePhaseDuration.WithLabelValues("matrix").Observe(time.Since(buildStart).Seconds())

	problem := Problem{
		Matrix:           matrix,
		Demands:          demands,
		Vehicles:         vehicles,
		MaxRouteDuration: cfg.MaxRouteDuration.Seconds(),
	}

	search := s.defaults.Search
	search.TimeBudget = cfg.TimeBudget

	plan, err := Optimize(ctx, problem, search)
	if err != nil {
		return domain.Solution{}, fmt.Errorf("solve: %w", err)
	}

	return ExtractSolution(ExtractInput{
		Depot:            depot,
		Stops:            stops,
		Vehicles:         vehicles,
		Matrix:           matrix,
		Routes:           plan.Routes,
		MaxRouteDuration: problem.MaxRouteDuration,
		Acquisition:      acq,
		Optimizer:        plan.Stats,
	}), nil
}

func validateVehicles(vehicles []domain.Vehicle) error {
	if len(vehicles) == 0 {
		return domain.NewValidationError("vehicles", "at least one vehicle is required")
	}
	seen := make(map[string]struct{}, len(vehicles))
	for i, v := range vehicles {
		id := strings.TrimSpace(v.VehicleID)
		if id == "" {
			return domain.NewValidationError("vehicles", "vehicle at index %d has an empty id", i)
		}
		if _, dup := seen[id]; dup {
			return domain.NewValidationError("vehicles", "duplicate vehicle id %q", id)
		}
		seen[id] = struct{}{}
		if !(v.Capacity > 0) || math.IsInf(v.Capacity, 0) {
			return domain.NewValidationError("vehicles", "vehicle %s capacity must be positive, got %v", id, v.Capacity)
		}
	}
	return nil
}

func validateStops(stops []domain.Stop) error {
	seen := make(map[string]struct{}, len(stops))
	for i, st := range stops {
		id := strings.TrimSpace(st.StopID)
		if id == "" {
			return domain.NewValidationError("stops", "stop at index %d has an empty id", i)
		}
		if _, dup := seen[id]; dup {
			return domain.NewValidationError("stops", "duplicate stop id %q", id)
		}
		seen[id] = struct{}{}
		if st.Demand < 0 || math.IsNaN(st.Demand) || math.IsInf(st.Demand, 0) {
			return domain.NewValidationError("stops", "stop %s demand must be >= 0, got %v", id, st.Demand)
		}
		if err := st.Location.Validate(); err != nil {
			return domain.NewValidationError("stops", "stop %s: %v", id, err)
		}
	}
	return nil
}

// selectStops keeps available stops. With n > 0 only the n highest-demand
// stops remain, ties broken by id.
func selectStops(stops []domain.Stop, n int) ([]domain.Stop, error) {
	if n < 0 {
		return nil, domain.NewValidationError("stops_to_collect", "must be >= 0, got %d", n)
	}

	available := make([]domain.Stop, 0, len(stops))
	for _, st := range stops {
		if st.Available {
			available = append(available, st)
		}
	}

	if n == 0 {
		return available, nil
	}
	if len(available) == 0 {
		return nil, domain.NewValidationError("stops_to_collect", "no available stop to collect")
	}

	slices.SortStableFunc(available, func(a, b domain.Stop) int {
		switch {
		case a.Demand > b.Demand:
			return -1
		case a.Demand < b.Demand:
			return 1
		default:
			return strings.Compare(a.StopID, b.StopID)
		}
	})

	return available[:min(n, len(available))], nil
}
