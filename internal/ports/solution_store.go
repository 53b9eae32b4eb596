package ports

import (
	"context"

	"collection-route-service/internal/domain"
)

// Port: append-only history of produced solutions.
type SolutionStore interface {
	Save(ctx context.Context, s *domain.Solution) error
	// Get returns the solution with its routes.
	Get(ctx context.Context, solutionID string) (*domain.Solution, error)
	// List returns summaries without routes, newest first.
	List(ctx context.Context) ([]*domain.Solution, error)
	Delete(ctx context.Context, solutionID string) error
}
