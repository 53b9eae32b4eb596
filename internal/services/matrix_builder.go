package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"collection-route-service/internal/domain"
	"collection-route-service/internal/geo"
	"collection-route-service/internal/platform/metrics"
	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/ports"

	"golang.org/x/sync/errgroup"
)

// ErrCacheCommit is returned when a batch of resolved costs cannot be persisted.
var ErrCacheCommit = errors.New("distance cache commit failed")

const (
	sourceCache    = "cache"
	sourceProvider = "provider"
	sourceFallback = "fallback"
	sourceFailed   = "failed_fallback"
)

type BuildOptions struct {
	BatchSize       int
	Concurrency     int
	ProviderTimeout time.Duration
	BatchDelay      time.Duration
}

func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		BatchSize:       25,
		Concurrency:     5,
		ProviderTimeout: 5 * time.Second,
		BatchDelay:      time.Second,
	}
}

// MatrixBuilder fills a distance matrix for a node set, reusing cached costs
// and acquiring the rest in sequential batches of bounded concurrent fetches.
type MatrixBuilder struct {
	fetcher ports.CostFetcher
	cache   ports.DistanceCache
}

// NewMatrixBuilder returns a builder. cache may be nil.
func NewMatrixBuilder(fetcher ports.CostFetcher, cache ports.DistanceCache) *MatrixBuilder {
	return &MatrixBuilder{fetcher: fetcher, cache: cache}
}

// pairTask is one unordered pair of distinct coordinate keys (aKey < bKey)
// and every matrix cell pair that shares it. Each cell is stored as
// {node at aKey, node at bKey}, so forward always runs a -> b.
type pairTask struct {
	a, b       domain.Coordinates
	aKey, bKey string
	cells      [][2]int

	forward, reverse ports.DistanceResult
	source           string
}

// Build returns the complete matrix for nodes (index 0 is the depot).
func (b *MatrixBuilder) Build(
	ctx context.Context,
	nodes []domain.Coordinates,
	opts BuildOptions,
) (_ *domain.DistanceMatrix, stats domain.AcquisitionStats, err error) {
	defer obs.Time(ctx, "matrix.Build")(&err)

	if len(nodes) == 0 {
		return nil, stats, errors.New("build matrix: no nodes")
	}
	if opts.BatchSize <= 0 || opts.Concurrency <= 0 {
		return nil, stats, fmt.Errorf("build matrix: batch size %d and concurrency %d must be positive", opts.BatchSize, opts.Concurrency)
	}
	if b.fetcher == nil {
		return nil, stats, errors.New("build matrix: fetcher is nil")
	}

	m := domain.NewDistanceMatrix(len(nodes))
	tasks := b.enumerate(nodes, m)
	stats.Pairs = len(tasks)

	missing := b.fromCache(ctx, tasks, m, &stats)

	for start := 0; start < len(missing); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(missing))
		batch := missing[start:end]

		if err := b.runBatch(ctx, batch, opts); err != nil {
			return nil, stats, err
		}
		stats.Batches++

		entries := make([]ports.CostEntry, 0, 2*len(batch))
		for _, t := range batch {
			fill(m, t)
			entries = append(entries,
				ports.CostEntry{Origin: t.aKey, Destination: t.bKey, Result: t.forward, Source: t.source},
				ports.CostEntry{Origin: t.bKey, Destination: t.aKey, Result: t.reverse, Source: t.source},
			)

			switch t.source {
			case sourceProvider:
				stats.ProviderResolved++
			case sourceFallback:
				stats.FallbackResolved++
			case sourceFailed:
				stats.FailedThenFallback++
			}
			metrics.PairsAcquired.WithLabelValues(t.source).Inc()
		}

		if b.cache != nil {
			if err := b.cache.PutMany(ctx, entries); err != nil {
				return nil, stats, fmt.Errorf("build matrix: batch %d: %w: %w", stats.Batches, ErrCacheCommit, err)
			}
		}

		if end < len(missing) && opts.BatchDelay > 0 {
			if err := sleepCtx(ctx, opts.BatchDelay); err != nil {
				return nil, stats, err
			}
		}
	}

	if err := m.Complete(); err != nil {
		return nil, stats, fmt.Errorf("build matrix: %w", err)
	}

	if stats.Fallbacks() > 0 {
		log.Printf("req_id=%s matrix pairs=%d cached=%d provider=%d fallback=%d failed=%d",
			obs.RequestID(ctx), stats.Pairs, stats.Cached, stats.ProviderResolved, stats.FallbackResolved, stats.FailedThenFallback)
	}

	return m, stats, nil
}

// enumerate walks the upper triangle once. Coincident nodes get zero cost
// immediately; the remaining cells are grouped by unordered key pair.
func (b *MatrixBuilder) enumerate(nodes []domain.Coordinates, m *domain.DistanceMatrix) []*pairTask {
	keys := make([]string, len(nodes))
	for i, n := range nodes {
		keys[i] = n.Key()
	}

	byPair := make(map[[2]string]*pairTask)
	tasks := make([]*pairTask, 0, len(nodes)*(len(nodes)-1)/2)

	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if keys[i] == keys[j] {
				m.SetSymmetric(i, j, 0, 0)
				continue
			}

			a, bb := i, j
			if keys[j] < keys[i] {
				a, bb = j, i
			}
			pk := [2]string{keys[a], keys[bb]}

			t, ok := byPair[pk]
			if !ok {
				t = &pairTask{a: nodes[a], b: nodes[bb], aKey: keys[a], bKey: keys[bb]}
				byPair[pk] = t
				tasks = append(tasks, t)
			}
			t.cells = append(t.cells, [2]int{a, bb})
		}
	}

	return tasks
}

// fromCache fills every task whose both directions are cached and returns
// the rest. A failed cache read is logged and treated as a miss.
func (b *MatrixBuilder) fromCache(
	ctx context.Context,
	tasks []*pairTask,
	m *domain.DistanceMatrix,
	stats *domain.AcquisitionStats,
) []*pairTask {
	if b.cache == nil {
		return tasks
	}

	wanted := make(map[string][]string)
	origins := make([]string, 0)
	for _, t := range tasks {
		if _, ok := wanted[t.aKey]; !ok {
			origins = append(origins, t.aKey)
		}
		wanted[t.aKey] = append(wanted[t.aKey], t.bKey)
		if _, ok := wanted[t.bKey]; !ok {
			origins = append(origins, t.bKey)
		}
		wanted[t.bKey] = append(wanted[t.bKey], t.aKey)
	}

	hits := make(map[string]map[string]ports.DistanceResult, len(origins))
	for _, origin := range origins {
		row, err := b.cache.GetMany(ctx, origin, wanted[origin])
		if err != nil {
			log.Printf("req_id=%s distance cache read failed origin=%s err=%v", obs.RequestID(ctx), origin, err)
			continue
		}
		hits[origin] = row
	}

	missing := make([]*pairTask, 0, len(tasks))
	for _, t := range tasks {
		fwd, okF := hits[t.aKey][t.bKey]
		rev, okR := hits[t.bKey][t.aKey]
		if !okF || !okR {
			missing = append(missing, t)
			continue
		}
		t.forward, t.reverse, t.source = fwd, rev, sourceCache
		fill(m, t)
		stats.Cached++
		metrics.PairsAcquired.WithLabelValues(sourceCache).Inc()
	}

	return missing
}

// runBatch acquires every task of the batch with at most opts.Concurrency
// fetches in flight and returns once all of them are done.
func (b *MatrixBuilder) runBatch(ctx context.Context, batch []*pairTask, opts BuildOptions) error {
	start := time.Now()
	defer func() { metrics.BatchDuration.Observe(time.Since(start).Seconds()) }()

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)

	for _, t := range batch {
		g.Go(func() error {
			b.acquire(ctx, t, opts.ProviderTimeout)
			return nil
		})
	}
	_ = g.Wait()

	return ctx.Err()
}

// acquire resolves one task. A panicking fetcher is contained and the pair
// receives the geometry estimate.
func (b *MatrixBuilder) acquire(ctx context.Context, t *pairTask, timeout time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("req_id=%s acquisition failed from=%s to=%s panic=%v", obs.RequestID(ctx), t.aKey, t.bKey, r)
			meters, seconds := geo.Estimate(t.a, t.b)
			est := ports.DistanceResult{DistanceMeters: meters, DurationSeconds: seconds}
			t.forward, t.reverse, t.source = est, est, sourceFailed
		}
	}()

	acq := b.fetcher.Fetch(ctx, t.a, t.b, timeout)

	t.forward = acq.Forward
	t.reverse = acq.Forward
	if acq.Reverse != nil {
		t.reverse = *acq.Reverse
	}

	t.source = sourceProvider
	if acq.Quality == ports.QualityFallback {
		t.source = sourceFallback
	}
}

// fill writes a resolved task into every cell pair that shares its keys.
func fill(m *domain.DistanceMatrix, t *pairTask) {
	for _, c := range t.cells {
		m.Set(c[0], c[1], t.forward.DistanceMeters, t.forward.DurationSeconds)
		m.Set(c[1], c[0], t.reverse.DistanceMeters, t.reverse.DurationSeconds)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
