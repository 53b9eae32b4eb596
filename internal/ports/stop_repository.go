package ports

import (
	"context"

	"collection-route-service/internal/domain"
)

// Port: a boundary for retrieving Stop entities from a data source.
type StopRepository interface {
	// Retrieve all known stops, available or not.
	ListStops(ctx context.Context) ([]domain.Stop, error)
}
