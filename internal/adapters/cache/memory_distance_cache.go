package cache

import (
	"context"
	"errors"
	"sync"

	"collection-route-service/internal/ports"
)

// MemoryDistanceCache keeps costs in process memory. It is safe for
// concurrent use and forgets everything on restart.
type MemoryDistanceCache struct {
	mu sync.RWMutex
	m  map[string]map[string]ports.DistanceResult
}

func NewMemoryDistanceCache() *MemoryDistanceCache {
	return &MemoryDistanceCache{m: make(map[string]map[string]ports.DistanceResult)}
}

func (c *MemoryDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (map[string]ports.DistanceResult, error) {
	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	row := c.m[origin]
	out := make(map[string]ports.DistanceResult, len(destinations))
	for _, d := range destinations {
		if r, ok := row[d]; ok {
			out[d] = r
		}
	}
	return out, nil
}

func (c *MemoryDistanceCache) PutMany(ctx context.Context, entries []ports.CostEntry) error {
	if err := validateEntries(entries); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range entries {
		row, ok := c.m[e.Origin]
		if !ok {
			row = make(map[string]ports.DistanceResult)
			c.m[e.Origin] = row
		}
		row[e.Destination] = e.Result
	}
	return nil
}

// Len returns the number of stored directional entries.
func (c *MemoryDistanceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, row := range c.m {
		n += len(row)
	}
	return n
}
