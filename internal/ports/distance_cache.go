package ports

import "context"

// CostEntry is one directional cached cost keyed by coordinate keys.
type CostEntry struct {
	Origin      string
	Destination string
	Result      DistanceResult
	Source      string
}

// Port: persistent store of resolved travel costs.
// Keys are expected to be normalized (domain.Coordinates.Key) by the caller.
type DistanceCache interface {
	// Return cached results for one origin and many destinations, keyed by destination.
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]DistanceResult, error)
	// Store entries atomically. Existing entries are overwritten.
	PutMany(ctx context.Context, entries []CostEntry) error
}
