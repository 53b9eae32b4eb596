package ports

import (
	"context"

	"collection-route-service/internal/domain"
)

// Distance and travel duration between two locations.
type DistanceResult struct {
	DistanceMeters  float64
	DurationSeconds float64
}

// Contract for retrieving travel distance and duration from an external routing service.
// Implementations issue one request per call and report every failure as an error.
type DistanceProvider interface {
	// Return travel distance and estimated duration from origin to destination.
	GetDistance(ctx context.Context, origin, destination domain.Coordinates) (DistanceResult, error)
}

// Optional extension of DistanceProvider that resolves both directions of a
// pair with a single request, preserving asymmetric road costs.
type BidirectionalProvider interface {
	DistanceProvider
	GetDistancePair(ctx context.Context, a, b domain.Coordinates) (forward, reverse DistanceResult, err error)
}
