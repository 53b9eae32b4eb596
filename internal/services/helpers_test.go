package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"collection-route-service/internal/adapters/cache"
	"collection-route-service/internal/domain"
	"collection-route-service/internal/geo"
	"collection-route-service/internal/ports"
)

var paris = domain.Coordinates{Lat: 48.8566, Lon: 2.3522}

// parisNodes returns the depot followed by n distinct points around it.
func parisNodes(n int, seed int64) []domain.Coordinates {
	rng := rand.New(rand.NewSource(seed))
	nodes := []domain.Coordinates{paris}
	for i := 0; i < n; i++ {
		nodes = append(nodes, domain.Coordinates{
			Lat: paris.Lat + (rng.Float64()-0.5)*0.06,
			Lon: paris.Lon + (rng.Float64()-0.5)*0.08,
		})
	}
	return nodes
}

func estimateMatrix(nodes []domain.Coordinates) *domain.DistanceMatrix {
	m := domain.NewDistanceMatrix(len(nodes))
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			d, t := geo.Estimate(nodes[i], nodes[j])
			m.SetSymmetric(i, j, d, t)
		}
	}
	return m
}

// fakeFetcher returns 1.3x the estimate as a provider value and records
// concurrency. Pairs listed in panicOn make it panic.
type fakeFetcher struct {
	delay     time.Duration
	reverse   bool
	fallback  bool
	panicOn   map[string]bool
	calls     atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, from, to domain.Coordinates, timeout time.Duration) ports.Acquisition {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxFlight.Load()
		if cur <= prev || f.maxFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	if f.panicOn[from.Key()+"|"+to.Key()] {
		panic("fetch exploded")
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}

	d, t := geo.Estimate(from, to)
	acq := ports.Acquisition{
		Forward: ports.DistanceResult{DistanceMeters: d * 1.3, DurationSeconds: t * 1.3},
		Quality: ports.QualityProvider,
	}
	if f.reverse {
		acq.Reverse = &ports.DistanceResult{DistanceMeters: d * 1.5, DurationSeconds: t * 1.5}
	}
	if f.fallback {
		acq = ports.Acquisition{Forward: ports.DistanceResult{DistanceMeters: d, DurationSeconds: t}, Quality: ports.QualityFallback}
	}
	return acq
}

// flakyCache fails PutMany from the failOn-th call onward.
type flakyCache struct {
	*cache.MemoryDistanceCache
	failOn int

	mu    sync.Mutex
	calls int
}

func (c *flakyCache) PutMany(ctx context.Context, entries []ports.CostEntry) error {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()

	if n >= c.failOn {
		return fmt.Errorf("disk full")
	}
	return c.MemoryDistanceCache.PutMany(ctx, entries)
}

// memoryStore is an in-memory SolutionStore.
type memoryStore struct {
	mu    sync.Mutex
	saved []*domain.Solution
}

func (s *memoryStore) Save(ctx context.Context, sol *domain.Solution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, sol)
	return nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (*domain.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sol := range s.saved {
		if sol.SolutionID == id {
			return sol, nil
		}
	}
	return nil, fmt.Errorf("solution %s not found", id)
}

func (s *memoryStore) List(ctx context.Context) ([]*domain.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Solution(nil), s.saved...), nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error { return nil }
