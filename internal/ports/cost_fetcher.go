package ports

import (
	"context"
	"time"

	"collection-route-service/internal/domain"
)

// Quality tells where an acquired cost came from.
type Quality int

const (
	// QualityProvider marks a value measured by the routing provider.
	QualityProvider Quality = iota
	// QualityFallback marks a value computed by the geometry estimator.
	QualityFallback
)

func (q Quality) String() string {
	switch q {
	case QualityProvider:
		return "provider"
	case QualityFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Acquisition is the cost of one unordered pair. Reverse is set only when
// the provider measured the opposite direction separately.
type Acquisition struct {
	Forward DistanceResult
	Reverse *DistanceResult
	Quality Quality
}

// CostFetcher acquires the cost of a pair and never fails: provider errors
// are converted to estimates internally.
type CostFetcher interface {
	Fetch(ctx context.Context, from, to domain.Coordinates, timeout time.Duration) Acquisition
}
