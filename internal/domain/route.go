package domain

import "time"

// Represents a single stop in a collection route.
// Position is zero-based within the route. ArrivalSeconds and CumulativeLoad
// are measured from the depot departure. The leg to the next stop is nil for
// the last stop, whose vehicle returns to the depot.
type RouteStop struct {
	Position       int
	StopID         string
	Location       Coordinates
	Demand         float64
	CumulativeLoad float64
	ArrivalSeconds float64
	DistanceToNext *float64
	DurationToNext *float64
}

// Represents the planned route for a single vehicle.
// Distance and duration include the legs from and back to the depot.
type Route struct {
	VehicleID       string
	Capacity        float64
	Stops           []RouteStop
	Load            float64
	DistanceMeters  float64
	DurationSeconds float64
}

// AcquisitionStats counts how the pairs of a distance matrix were resolved.
type AcquisitionStats struct {
	Pairs              int
	Cached             int
	ProviderResolved   int
	FallbackResolved   int
	FailedThenFallback int
	Batches            int
}

// Fallbacks returns every pair whose cost came from the geometry estimator.
func (s AcquisitionStats) Fallbacks() int {
	return s.FallbackResolved + s.FailedThenFallback
}

// OptimizerStats summarizes one optimizer run.
type OptimizerStats struct {
	ConstructionDistance float64
	Iterations           int
	Improvements         int
	PenaltyRounds        int
	Elapsed              time.Duration
	ImprovementErr       string
}

// Solution is the outcome of one solve. Vehicles without stops are omitted.
// An infeasible solution still places every stop and lists its violations.
type Solution struct {
	SolutionID          string
	Name                string
	CreatedAt           time.Time
	Depot               Coordinates
	Routes              []Route
	TotalDistanceMeters float64
	MakespanSeconds     float64
	Feasible            bool
	Violations          []string
	VehicleCount        int
	StopCount           int
	Acquisition         AcquisitionStats
	Optimizer           OptimizerStats
}
