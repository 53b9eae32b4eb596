package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"collection-route-service/internal/adapters/repositories"
	"collection-route-service/internal/api/dto"
	"collection-route-service/internal/domain"
	"collection-route-service/internal/ports"
	"collection-route-service/internal/services"
)

const (
	defaultVehicleCount    = 3
	defaultVehicleCapacity = 1000.0
	maxVehicleCount        = 100
)

// Solver runs one routing solve.
type Solver interface {
	Solve(ctx context.Context, req services.SolveRequest) (*domain.Solution, error)
}

type SolutionHandler struct {
	Solver Solver
	Store  ports.SolutionStore
}

// Create solves a routing problem and returns the stored solution.
func (h *SolutionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.SolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	svcReq, err := toSolveRequest(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sol, err := h.Solver.Solve(r.Context(), svcReq)
	if err != nil {
		h.fail(w, r, "solve", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toSolutionResponse(sol, true))
}

// List returns stored solution summaries, newest first.
func (h *SolutionHandler) List(w http.ResponseWriter, r *http.Request) {
	sols, err := h.Store.List(r.Context())
	if err != nil {
		h.fail(w, r, "list solutions", err)
		return
	}

	res := dto.ListSolutionsResponse{Solutions: make([]dto.SolutionResponse, 0, len(sols))}
	for _, s := range sols {
		res.Solutions = append(res.Solutions, toSolutionResponse(s, false))
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *SolutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sol, err := h.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "get solution", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toSolutionResponse(sol, true))
}

func (h *SolutionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, "delete solution", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SolutionHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, repositories.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "solution not found")
	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("%s timed out: %v", op, err)
		writeError(w, r, http.StatusGatewayTimeout, "request timed out")
	default:
		log.Printf("%s failed: %v", op, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func toSolveRequest(req dto.SolveRequest) (services.SolveRequest, error) {
	out := services.SolveRequest{
		Name:           strings.TrimSpace(req.Name),
		StopsToCollect: req.StopsToCollect,
		Config: services.SolveConfig{
			BatchSize:        req.BatchSize,
			Concurrency:      req.Concurrency,
			ProviderTimeout:  time.Duration(req.ProviderTimeoutMS) * time.Millisecond,
			BatchDelay:       optionalMillis(req.BatchDelayMS),
			TimeBudget:       optionalMillis(req.TimeBudgetMS),
			MaxRouteDuration: optionalSeconds(req.MaxRouteDurationS),
		},
	}

	if req.Depot != nil {
		out.Depot = &domain.Coordinates{Lat: req.Depot.Lat, Lon: req.Depot.Lon}
	}

	if len(req.Vehicles) > 0 {
		out.Vehicles = make([]domain.Vehicle, 0, len(req.Vehicles))
		for _, v := range req.Vehicles {
			out.Vehicles = append(out.Vehicles, domain.Vehicle{VehicleID: strings.TrimSpace(v.VehicleID), Capacity: v.Capacity})
		}
	} else {
		count := req.VehicleCount
		if count == 0 {
			count = defaultVehicleCount
		}
		if count < 1 || count > maxVehicleCount {
			return services.SolveRequest{}, domain.NewValidationError("vehicle_count", "must be between 1 and %d", maxVehicleCount)
		}
		capacity := req.VehicleCapacity
		if capacity == 0 {
			capacity = defaultVehicleCapacity
		}
		out.Vehicles = domain.NewFleet(count, capacity)
	}

	if req.Stops != nil {
		out.Stops = make([]domain.Stop, 0, len(req.Stops))
		for _, s := range req.Stops {
			available := true
			if s.Available != nil {
				available = *s.Available
			}
			out.Stops = append(out.Stops, domain.Stop{
				StopID:    strings.TrimSpace(s.StopID),
				Location:  domain.Coordinates{Lat: s.Lat, Lon: s.Lon},
				Demand:    s.Demand,
				Available: available,
			})
		}
	}

	return out, nil
}

// optionalMillis maps an absent field to the default (0) and an explicit 0 to services.Off.
func optionalMillis(ms *int64) time.Duration {
	switch {
	case ms == nil:
		return 0
	case *ms == 0:
		return services.Off
	default:
		return time.Duration(*ms) * time.Millisecond
	}
}

func optionalSeconds(sec *float64) time.Duration {
	switch {
	case sec == nil:
		return 0
	case *sec == 0:
		return services.Off
	default:
		return time.Duration(*sec * float64(time.Second))
	}
}

func toSolutionResponse(s *domain.Solution, withRoutes bool) dto.SolutionResponse {
	res := dto.SolutionResponse{
		SolutionID:          s.SolutionID,
		Name:                s.Name,
		CreatedAt:           s.CreatedAt,
		Depot:               dto.CoordinatesDTO{Lat: s.Depot.Lat, Lon: s.Depot.Lon},
		Feasible:            s.Feasible,
		Violations:          s.Violations,
		TotalDistanceMeters: s.TotalDistanceMeters,
		MakespanSeconds:     s.MakespanSeconds,
		VehicleCount:        s.VehicleCount,
		StopCount:           s.StopCount,
		Acquisition: dto.AcquisitionResponse{
			Pairs:              s.Acquisition.Pairs,
			Cached:             s.Acquisition.Cached,
			ProviderResolved:   s.Acquisition.ProviderResolved,
			FallbackResolved:   s.Acquisition.FallbackResolved,
			FailedThenFallback: s.Acquisition.FailedThenFallback,
			Batches:            s.Acquisition.Batches,
		},
		Optimizer: dto.OptimizerResponse{
			ConstructionDistance: s.Optimizer.ConstructionDistance,
			Iterations:           s.Optimizer.Iterations,
			Improvements:         s.Optimizer.Improvements,
			PenaltyRounds:        s.Optimizer.PenaltyRounds,
			ElapsedMS:            s.Optimizer.Elapsed.Milliseconds(),
			ImprovementErr:       s.Optimizer.ImprovementErr,
		},
	}
	if res.Violations == nil {
		res.Violations = []string{}
	}

	if !withRoutes {
		return res
	}

	res.Routes = make([]dto.RouteResponse, 0, len(s.Routes))
	for _, rt := range s.Routes {
		stops := make([]dto.RouteStopResponse, 0, len(rt.Stops))
		for _, st := range rt.Stops {
			stops = append(stops, dto.RouteStopResponse{
				Position:       st.Position,
				StopID:         st.StopID,
				Lat:            st.Location.Lat,
				Lon:            st.Location.Lon,
				Demand:         st.Demand,
				CumulativeLoad: st.CumulativeLoad,
				ArrivalSeconds: st.ArrivalSeconds,
				DistanceToNext: st.DistanceToNext,
				DurationToNext: st.DurationToNext,
			})
		}
		res.Routes = append(res.Routes, dto.RouteResponse{
			VehicleID:       rt.VehicleID,
			Capacity:        rt.Capacity,
			Load:            rt.Load,
			DistanceMeters:  rt.DistanceMeters,
			DurationSeconds: rt.DurationSeconds,
			Stops:           stops,
		})
	}

	return res
}
