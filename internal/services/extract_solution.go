package services

import (
	"fmt"
	"math"
	"time"

	"collection-route-service/internal/domain"
)

// ExtractInput carries everything needed to turn a plan into a Solution.
// Stops[i] is matrix node i+1.
type ExtractInput struct {
	Depot            domain.Coordinates
	Stops            []domain.Stop
	Vehicles         []domain.Vehicle
	Matrix           *domain.DistanceMatrix
	Routes           [][]int
	MaxRouteDuration float64
	Acquisition      domain.AcquisitionStats
	Optimizer        domain.OptimizerStats
}

// ExtractSolution maps node indices back to stops and computes per-stop
// loads and arrival times, per-route totals, makespan and feasibility.
// Vehicles without stops are omitted.
func ExtractSolution(in ExtractInput) domain.Solution {
	sol := domain.Solution{
		Depot:       in.Depot,
		Routes:      make([]domain.Route, 0, len(in.Routes)),
		Violations:  []string{},
		StopCount:   len(in.Stops),
		Acquisition: in.Acquisition,
		Optimizer:   in.Optimizer,
	}

	seen := make([]int, len(in.Stops)+1)

	for v, seq := range in.Routes {
		if len(seq) == 0 || v >= len(in.Vehicles) {
			continue
		}
		veh := in.Vehicles[v]

		route := domain.Route{
			VehicleID: veh.VehicleID,
			Capacity:  veh.Capacity,
			Stops:     make([]domain.RouteStop, 0, len(seq)),
		}

		prev := domain.DepotIndex
		for pos, node := range seq {
			route.DistanceMeters += in.Matrix.Distance(prev, node)
			route.DurationSeconds += in.Matrix.Duration(prev, node)

			st := in.Stops[node-1]
			route.Load += st.Demand
			seen[node]++

			rs := domain.RouteStop{
				Position:       pos,
				StopID:         st.StopID,
				Location:       st.Location,
				Demand:         st.Demand,
				CumulativeLoad: route.Load,
				ArrivalSeconds: route.DurationSeconds,
			}
			if pos+1 < len(seq) {
				d := in.Matrix.Distance(node, seq[pos+1])
				t := in.Matrix.Duration(node, seq[pos+1])
				rs.DistanceToNext, rs.DurationToNext = &d, &t
			}
			route.Stops = append(route.Stops, rs)
			prev = node
		}
		route.DistanceMeters += in.Matrix.Distance(prev, domain.DepotIndex)
		route.DurationSeconds += in.Matrix.Duration(prev, domain.DepotIndex)

		if route.Load > veh.Capacity+1e-9 {
			sol.Violations = append(sol.Violations,
				fmt.Sprintf("%s: load %g exceeds capacity %g", veh.VehicleID, route.Load, veh.Capacity))
		}
		if in.MaxRouteDuration > 0 && route.DurationSeconds > in.MaxRouteDuration+1e-9 {
			sol.Violations = append(sol.Violations,
				fmt.Sprintf("%s: duration %s exceeds cap %s", veh.VehicleID, seconds(route.DurationSeconds), seconds(in.MaxRouteDuration)))
		}

		sol.TotalDistanceMeters += route.DistanceMeters
		sol.MakespanSeconds = math.Max(sol.MakespanSeconds, route.DurationSeconds)
		sol.Routes = append(sol.Routes, route)
	}

	for node := 1; node < len(seen); node++ {
		switch seen[node] {
		case 1:
		case 0:
			sol.Violations = append(sol.Violations, fmt.Sprintf("stop %s is not routed", in.Stops[node-1].StopID))
		default:
			sol.Violations = append(sol.Violations, fmt.Sprintf("stop %s is routed %d times", in.Stops[node-1].StopID, seen[node]))
		}
	}

	sol.VehicleCount = len(sol.Routes)
	sol.Feasible = len(sol.Violations) == 0
	return sol
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Second)
}
