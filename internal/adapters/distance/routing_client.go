package distance

import (
	"context"
	"errors"
	"log"
	"time"

	"collection-route-service/internal/domain"
	"collection-route-service/internal/geo"
	"collection-route-service/internal/platform/metrics"
	"collection-route-service/internal/ports"
)

// RoutingClient wraps a DistanceProvider with a per-call timeout and falls
// back to the geometry estimate whenever the provider cannot be trusted.
//
// Fetch never fails. When the provider also implements
// ports.BidirectionalProvider both directions are requested in one call.
type RoutingClient struct {
	provider ports.DistanceProvider
}

func NewRoutingClient(provider ports.DistanceProvider) *RoutingClient {
	return &RoutingClient{provider: provider}
}

// Fetch resolves the cost of the pair (from, to). A nil provider always
// yields the estimate.
func (c *RoutingClient) Fetch(
	ctx context.Context,
	from domain.Coordinates,
	to domain.Coordinates,
	timeout time.Duration,
) ports.Acquisition {
	if c.provider == nil {
		return estimate(from, to)
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if bp, ok := c.provider.(ports.BidirectionalProvider); ok {
		fwd, rev, err := bp.GetDistancePair(callCtx, from, to)
		if err != nil {
			return c.fallback(from, to, err)
		}
		metrics.ProviderRequests.WithLabelValues("ok").Inc()
		return ports.Acquisition{Forward: fwd, Reverse: &rev, Quality: ports.QualityProvider}
	}

	res, err := c.provider.GetDistance(callCtx, from, to)
	if err != nil {
		return c.fallback(from, to, err)
	}

	metrics.ProviderRequests.WithLabelValues("ok").Inc()
	return ports.Acquisition{Forward: res, Quality: ports.QualityProvider}
}

func (c *RoutingClient) fallback(from, to domain.Coordinates, err error) ports.Acquisition {
	outcome := "error"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	case errors.Is(err, ErrImplausibleDistance):
		outcome = "implausible"
	}
	metrics.ProviderRequests.WithLabelValues(outcome).Inc()

	log.Printf("routing fallback from=%s to=%s outcome=%s err=%v", from.Key(), to.Key(), outcome, err)
	return estimate(from, to)
}

func estimate(from, to domain.Coordinates) ports.Acquisition {
	meters, seconds := geo.Estimate(from, to)
	return ports.Acquisition{
		Forward: ports.DistanceResult{DistanceMeters: meters, DurationSeconds: seconds},
		Quality: ports.QualityFallback,
	}
}
