package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/ports"

	"golang.org/x/time/rate"
)

// ErrImplausibleDistance is returned when the provider answers with a distance
// outside the accepted range for an urban collection area.
var ErrImplausibleDistance = errors.New("implausible distance")

// DefaultMaxPlausibleMeters is the ceiling above which a provider answer is rejected.
const DefaultMaxPlausibleMeters = 12000.0

// OSRMDistanceProvider implements DistanceProvider using an OSRM server.
//
// Each call issues a single route (or table) request with retry on transient
// failures. It performs no caching and no fallback; see RoutingClient.
//
// The provider is safe for concurrent use.
type OSRMDistanceProvider struct {
	session      *http.Client
	baseURL      string
	profile      string
	maxPlausible float64
	limiter      *rate.Limiter
	maxAttempts  int
	retryBackoff time.Duration
}

type OSRMOptions struct {
	BaseURL string
	Profile string
	// MaxPlausibleMeters rejects longer answers; 0 disables the check.
	MaxPlausibleMeters float64
	// RequestsPerSecond throttles outgoing requests; 0 disables throttling.
	RequestsPerSecond float64
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

func NewOSRMDistanceProvider(opts OSRMOptions) (*OSRMDistanceProvider, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("OSRM base url is empty")
	}
	if opts.MaxPlausibleMeters < 0 {
		return nil, errors.New("OSRM max plausible meters must be >= 0")
	}

	profile := opts.Profile
	if profile == "" {
		profile = "driving"
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	provider := &OSRMDistanceProvider{
		session:      client,
		baseURL:      base,
		profile:      profile,
		maxPlausible: opts.MaxPlausibleMeters,
		maxAttempts:  4,
		retryBackoff: 200 * time.Millisecond,
	}

	if opts.RequestsPerSecond > 0 {
		burst := int(math.Ceil(opts.RequestsPerSecond))
		provider.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return provider, nil
}

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance *float64 `json:"distance"`
		Duration *float64 `json:"duration"`
	} `json:"routes"`
}

// GetDistance asks the OSRM route service for the driving cost from origin to destination.
func (o *OSRMDistanceProvider) GetDistance(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (_ ports.DistanceResult, err error) {
	defer obs.Time(ctx, "osrm.GetDistance")(&err)

	if err := origin.Validate(); err != nil {
		return ports.DistanceResult{}, fmt.Errorf("get OSRM distance: origin: %w", err)
	}
	if err := destination.Validate(); err != nil {
		return ports.DistanceResult{}, fmt.Errorf("get OSRM distance: destination: %w", err)
	}

	endpoint := fmt.Sprintf(
		"%s/route/v1/%s/%s;%s?overview=false&alternatives=false&steps=false",
		o.baseURL, o.profile, lonLat(origin), lonLat(destination),
	)

	resp, err := o.doWithRetry(ctx, endpoint)
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("route request failed: %w", err)
	}
	defer resp.Body.Close()

	var rr routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return ports.DistanceResult{}, fmt.Errorf("decode route response: %w", err)
	}

	if rr.Code != "Ok" {
		return ports.DistanceResult{}, fmt.Errorf("route response code %q: %s", rr.Code, rr.Message)
	}
	if len(rr.Routes) == 0 {
		return ports.DistanceResult{}, errors.New("route response has no routes")
	}

	first := rr.Routes[0]
	if first.Distance == nil || first.Duration == nil {
		return ports.DistanceResult{}, errors.New("route response is missing distance or duration")
	}

	return o.check(*first.Distance, *first.Duration)
}

// check validates one measured cost against the plausibility rules.
func (o *OSRMDistanceProvider) check(meters, seconds float64) (ports.DistanceResult, error) {
	if math.IsNaN(meters) || math.IsNaN(seconds) || meters < 0 || seconds < 0 {
		return ports.DistanceResult{}, fmt.Errorf("%w: distance=%v duration=%v", ErrImplausibleDistance, meters, seconds)
	}
	if o.maxPlausible > 0 && meters > o.maxPlausible {
		return ports.DistanceResult{}, fmt.Errorf(
			"%w: %.0f m exceeds %.0f m",
			ErrImplausibleDistance, meters, o.maxPlausible,
		)
	}

	return ports.DistanceResult{DistanceMeters: meters, DurationSeconds: seconds}, nil
}

// lonLat renders a coordinate in OSRM's "lon,lat" path order.
func lonLat(c domain.Coordinates) string {
	ll := c.CoordsToList()
	return fmt.Sprintf("%.6f,%.6f", ll[0], ll[1])
}
