package domain

// Represents a single collection point handled by the system.
// A Stop has a unique identifier, a location and the weight to pick up there.
// Stops are read-only for the duration of a solve.
type Stop struct {
	StopID    string
	Location  Coordinates
	Demand    float64
	Available bool
}
