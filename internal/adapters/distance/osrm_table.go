package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/ports"
)

type tableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// OSRMTableProvider resolves both directions of a pair with one request to
// the OSRM table service, so asymmetric road costs survive.
type OSRMTableProvider struct {
	*OSRMDistanceProvider
}

func NewOSRMTableProvider(opts OSRMOptions) (*OSRMTableProvider, error) {
	p, err := NewOSRMDistanceProvider(opts)
	if err != nil {
		return nil, err
	}
	return &OSRMTableProvider{OSRMDistanceProvider: p}, nil
}

// GetDistancePair returns the a->b and b->a costs from a 2x2 table.
func (o *OSRMTableProvider) GetDistancePair(
	ctx context.Context,
	a domain.Coordinates,
	b domain.Coordinates,
) (forward, reverse ports.DistanceResult, err error) {
	defer obs.Time(ctx, "osrm.GetDistancePair")(&err)

	if err := a.Validate(); err != nil {
		return forward, reverse, fmt.Errorf("get OSRM table: a: %w", err)
	}
	if err := b.Validate(); err != nil {
		return forward, reverse, fmt.Errorf("get OSRM table: b: %w", err)
	}

	endpoint := fmt.Sprintf(
		"%s/table/v1/%s/%s;%s?annotations=distance,duration",
		o.baseURL, o.profile, lonLat(a), lonLat(b),
	)

	resp, err := o.doWithRetry(ctx, endpoint)
	if err != nil {
		return forward, reverse, fmt.Errorf("table request failed: %w", err)
	}
	defer resp.Body.Close()

	var tr tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return forward, reverse, fmt.Errorf("decode table response: %w", err)
	}

	if tr.Code != "Ok" {
		return forward, reverse, fmt.Errorf("table response code %q: %s", tr.Code, tr.Message)
	}

	if len(tr.Distances) != 2 || len(tr.Durations) != 2 ||
		len(tr.Distances[0]) != 2 || len(tr.Distances[1]) != 2 ||
		len(tr.Durations[0]) != 2 || len(tr.Durations[1]) != 2 {
		return forward, reverse, errors.New("table response is not 2x2")
	}

	forward, err = o.cell(tr, 0, 1)
	if err != nil {
		return ports.DistanceResult{}, ports.DistanceResult{}, fmt.Errorf("forward: %w", err)
	}
	reverse, err = o.cell(tr, 1, 0)
	if err != nil {
		return ports.DistanceResult{}, ports.DistanceResult{}, fmt.Errorf("reverse: %w", err)
	}

	return forward, reverse, nil
}

func (o *OSRMTableProvider) cell(tr tableResponse, i, j int) (ports.DistanceResult, error) {
	meters := tr.Distances[i][j]
	seconds := tr.Durations[i][j]
	if meters == nil || seconds == nil {
		return ports.DistanceResult{}, errors.New("table returned no route")
	}
	return o.check(*meters, *seconds)
}
