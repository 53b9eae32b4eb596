package dto

import "time"

type VehicleRequest struct {
	VehicleID string  `json:"vehicle_id"`
	Capacity  float64 `json:"capacity"`
}

type StopRequest struct {
	StopID    string  `json:"stop_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Demand    float64 `json:"demand"`
	Available *bool   `json:"available"`
}

// SolveRequest omits vehicles in favor of vehicle_count/vehicle_capacity,
// and omits stops to route every stored stop. Absent tuning fields take the
// server defaults. An explicit 0 for batch_delay_ms, time_budget_ms or
// max_route_duration_s turns that setting off; other zero knobs mean default.
type SolveRequest struct {
	Name              string           `json:"name"`
	Depot             *CoordinatesDTO  `json:"depot"`
	Vehicles          []VehicleRequest `json:"vehicles"`
	VehicleCount      int              `json:"vehicle_count"`
	VehicleCapacity   float64          `json:"vehicle_capacity"`
	Stops             []StopRequest    `json:"stops"`
	StopsToCollect    int              `json:"stops_to_collect"`
	BatchSize         int              `json:"batch_size"`
	Concurrency       int              `json:"concurrency"`
	ProviderTimeoutMS int64            `json:"provider_timeout_ms"`
	BatchDelayMS      *int64           `json:"batch_delay_ms"`
	TimeBudgetMS      *int64           `json:"time_budget_ms"`
	MaxRouteDurationS *float64         `json:"max_route_duration_s"`
}

type RouteStopResponse struct {
	Position       int      `json:"position"`
	StopID         string   `json:"stop_id"`
	Lat            float64  `json:"lat"`
	Lon            float64  `json:"lon"`
	Demand         float64  `json:"demand"`
	CumulativeLoad float64  `json:"cumulative_load"`
	ArrivalSeconds float64  `json:"arrival_seconds"`
	DistanceToNext *float64 `json:"distance_to_next_meters"`
	DurationToNext *float64 `json:"duration_to_next_seconds"`
}

type RouteResponse struct {
	VehicleID       string              `json:"vehicle_id"`
	Capacity        float64             `json:"capacity"`
	Load            float64             `json:"load"`
	DistanceMeters  float64             `json:"distance_meters"`
	DurationSeconds float64             `json:"duration_seconds"`
	Stops           []RouteStopResponse `json:"stops"`
}

type AcquisitionResponse struct {
	Pairs              int `json:"pairs"`
	Cached             int `json:"cached"`
	ProviderResolved   int `json:"provider_resolved"`
	FallbackResolved   int `json:"fallback_resolved"`
	FailedThenFallback int `json:"failed_then_fallback"`
	Batches            int `json:"batches"`
}

type OptimizerResponse struct {
	ConstructionDistance float64 `json:"construction_distance_meters"`
	Iterations           int     `json:"iterations"`
	Improvements         int     `json:"improvements"`
	PenaltyRounds        int     `json:"penalty_rounds"`
	ElapsedMS            int64   `json:"elapsed_ms"`
	ImprovementErr       string  `json:"improvement_error,omitempty"`
}

type SolutionResponse struct {
	SolutionID          string              `json:"solution_id"`
	Name                string              `json:"name"`
	CreatedAt           time.Time           `json:"created_at"`
	Depot               CoordinatesDTO      `json:"depot"`
	Feasible            bool                `json:"feasible"`
	Violations          []string            `json:"violations"`
	TotalDistanceMeters float64             `json:"total_distance_meters"`
	MakespanSeconds     float64             `json:"makespan_seconds"`
	VehicleCount        int                 `json:"vehicle_count"`
	StopCount           int                 `json:"stop_count"`
	Acquisition         AcquisitionResponse `json:"acquisition"`
	Optimizer           OptimizerResponse   `json:"optimizer"`
	Routes              []RouteResponse     `json:"routes,omitempty"`
}

type ListSolutionsResponse struct {
	Solutions []SolutionResponse `json:"solutions"`
}
