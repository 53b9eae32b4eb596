package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/metrics"
	"collection-route-service/internal/platform/obs"
)

// Phase is the lifecycle state of one optimizer run. Phases only move forward.
type Phase int

const (
	PhaseUnsolved Phase = iota
	PhaseConstructed
	PhaseImproving
	PhaseFinalized
)

func (p Phase) String() string {
	switch p {
	case PhaseUnsolved:
		return "unsolved"
	case PhaseConstructed:
		return "constructed"
	case PhaseImproving:
		return "improving"
	case PhaseFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type OptimizerConfig struct {
	// TimeBudget bounds the improvement phase. Construction always completes.
	TimeBudget time.Duration
	// PenaltyAlpha scales guided local search penalties; 0 disables them.
	PenaltyAlpha float64
	// MaxStall ends the search after this many penalty rounds without a new best; 0 means no limit.
	MaxStall int
}

func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		TimeBudget:   30 * time.Second,
		PenaltyAlpha: 0.2,
		MaxStall:     150,
	}
}

// Plan lists node indices per vehicle (same order as Problem.Vehicles),
// depot excluded at both ends.
type Plan struct {
	Routes [][]int
	Stats  domain.OptimizerStats
	Phase  Phase
}

const (
	violationEps = 1e-9
	costEps      = 1e-6
	checkEvery   = 128
)

type routeState struct {
	seq  []int
	load float64
	dist float64
	dur  float64
	aug  float64
}

type optimizer struct {
	p   Problem
	cfg OptimizerConfig
	n   int

	dist    []float64
	dur     []float64
	penalty []float64
	lambda  float64

	routes []routeState
	phase  Phase

	done     <-chan struct{}
	deadline time.Time
	evals    int
	stopped  bool

	best     [][]int
	bestViol float64
	bestDist float64

	bufA, bufB []int
	stats      domain.OptimizerStats
}

// Optimize builds an initial assignment and improves it until the time
// budget, cancellation, or stagnation. The result is never worse than the
// constructed solution and always places every stop.
func Optimize(ctx context.Context, p Problem, cfg OptimizerConfig) (_ *Plan, err error) {
	defer obs.Time(ctx, "optimizer.Optimize")(&err)

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	if cfg.TimeBudget < 0 || cfg.PenaltyAlpha < 0 || cfg.MaxStall < 0 {
		return nil, fmt.Errorf("optimize: invalid config %+v", cfg)
	}

	start := time.Now()
	o := newOptimizer(ctx, p, cfg, start.Add(cfg.TimeBudget))

	o.construct()
	o.stats.ConstructionDistance = o.totalDist()
	o.snapshotBest()
	metrics.SolvePhaseDuration.WithLabelValues("construct").Observe(time.Since(start).Seconds())

	improveStart := time.Now()
	o.improve()
	metrics.SolvePhaseDuration.WithLabelValues("improve").Observe(time.Since(improveStart).Seconds())

	o.setPhase(PhaseFinalized)
	o.stats.Elapsed = time.Since(start)

	routes := make([][]int, len(o.best))
	for i, r := range o.best {
		routes[i] = append([]int(nil), r...)
	}

	return &Plan{Routes: routes, Stats: o.stats, Phase: o.phase}, nil
}

func newOptimizer(ctx context.Context, p Problem, cfg OptimizerConfig, deadline time.Time) *optimizer {
	n := p.Matrix.Size()
	o := &optimizer{
		p:        p,
		cfg:      cfg,
		n:        n,
		dist:     make([]float64, n*n),
		dur:      make([]float64, n*n),
		penalty:  make([]float64, n*n),
		routes:   make([]routeState, len(p.Vehicles)),
		done:     ctx.Done(),
		deadline: deadline,
		bufA:     make([]int, 0, n),
		bufB:     make([]int, 0, n),
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			o.dist[i*n+j] = p.Matrix.Distance(i, j)
			o.dur[i*n+j] = p.Matrix.Duration(i, j)
		}
	}
	return o
}

func (o *optimizer) setPhase(next Phase) {
	if next <= o.phase {
		panic(fmt.Sprintf("optimizer: invalid phase transition %s -> %s", o.phase, next))
	}
	o.phase = next
}

// construct places stops in nearest-unassigned order starting from the depot.
func (o *optimizer) construct() {
	for _, s := range o.nearestOrder() {
		v := o.chooseVehicle(s)
		k := o.cheapestInsertion(o.routes[v].seq, s)
		o.routes[v].seq = insertAt(o.routes[v].seq, k, s)
		o.refresh(v)
	}
	o.setPhase(PhaseConstructed)
}

func (o *optimizer) nearestOrder() []int {
	stops := o.n - 1
	order := make([]int, 0, stops)
	visited := make([]bool, o.n)
	visited[domain.DepotIndex] = true

	cur := domain.DepotIndex
	for len(order) < stops {
		next := -1
		for j := 1; j < o.n; j++ {
			if visited[j] {
				continue
			}
			if next < 0 || o.dist[cur*o.n+j] < o.dist[cur*o.n+next] {
				next = j
			}
		}
		visited[next] = true
		order = append(order, next)
		cur = next
	}
	return order
}

// chooseVehicle picks the least-loaded vehicle with headroom, preferring
// those that stay within the duration cap, else the least overloaded one.
func (o *optimizer) chooseVehicle(s int) int {
	demand := o.p.Demands[s]

	fit, head, over := -1, -1, -1
	fitLoad, headLoad, overAmt := math.Inf(1), math.Inf(1), math.Inf(1)

	for v, veh := range o.p.Vehicles {
		load := o.routes[v].load
		if !veh.CanCarry(load, demand) {
			if amt := load + demand - veh.Capacity; amt < overAmt {
				over, overAmt = v, amt
			}
			continue
		}

		if load < headLoad {
			head, headLoad = v, load
		}
		if load < fitLoad && o.withinDurationAfterInsert(v, s) {
			fit, fitLoad = v, load
		}
	}

	switch {
	case fit >= 0:
		return fit
	case head >= 0:
		return head
	default:
		return over
	}
}

func (o *optimizer) withinDurationAfterInsert(v, s int) bool {
	if o.p.MaxRouteDuration <= 0 {
		return true
	}
	seq := o.routes[v].seq
	k := o.cheapestInsertion(seq, s)

	buf := append(o.bufA[:0], seq[:k]...)
	buf = append(buf, s)
	buf = append(buf, seq[k:]...)
	o.bufA = buf

	_, _, dur, _ := o.measure(buf)
	return dur <= o.p.MaxRouteDuration+violationEps
}

// cheapestInsertion returns the position in seq where s adds the least distance.
func (o *optimizer) cheapestInsertion(seq []int, s int) int {
	best, bestDelta := 0, math.Inf(1)
	for k := 0; k <= len(seq); k++ {
		prev, next := domain.DepotIndex, domain.DepotIndex
		if k > 0 {
			prev = seq[k-1]
		}
		if k < len(seq) {
			next = seq[k]
		}
		delta := o.dist[prev*o.n+s] + o.dist[s*o.n+next] - o.dist[prev*o.n+next]
		if delta < bestDelta-costEps {
			best, bestDelta = k, delta
		}
	}
	return best
}

// measure returns load, true distance, duration and penalty-augmented
// distance of a depot-to-depot route through seq.
func (o *optimizer) measure(seq []int) (load, dist, dur, aug float64) {
	var pen float64
	prev := domain.DepotIndex
	for _, s := range seq {
		k := prev*o.n + s
		load += o.p.Demands[s]
		dist += o.dist[k]
		dur += o.dur[k]
		pen += o.penalty[k]
		prev = s
	}
	k := prev*o.n + domain.DepotIndex
	dist += o.dist[k]
	dur += o.dur[k]
	pen += o.penalty[k]

	return load, dist, dur, dist + o.lambda*pen
}

func (o *optimizer) refresh(v int) {
	r := &o.routes[v]
	r.load, r.dist, r.dur, r.aug = o.measure(r.seq)
}

// violation is the relative capacity overload plus relative overtime.
func (o *optimizer) violation(v int, load, dur float64) float64 {
	capacity := o.p.Vehicles[v].Capacity
	viol := 0.0
	if load > capacity+violationEps {
		viol += (load - capacity) / capacity
	}
	if limit := o.p.MaxRouteDuration; limit > 0 && dur > limit+violationEps {
		viol += (dur - limit) / limit
	}
	return viol
}

func (o *optimizer) totalViolation() float64 {
	total := 0.0
	for v, r := range o.routes {
		total += o.violation(v, r.load, r.dur)
	}
	return total
}

func (o *optimizer) totalDist() float64 {
	total := 0.0
	for _, r := range o.routes {
		total += r.dist
	}
	return total
}

func (o *optimizer) snapshotBest() {
	if o.best == nil {
		o.best = make([][]int, len(o.routes))
	}
	for v, r := range o.routes {
		o.best[v] = append(o.best[v][:0], r.seq...)
	}
	o.bestViol = o.totalViolation()
	o.bestDist = o.totalDist()
}

// recordBest keeps the current solution when it beats the best by
// (violation, true distance) without exceeding the construction distance.
func (o *optimizer) recordBest() bool {
	viol, dist := o.totalViolation(), o.totalDist()
	if dist > o.stats.ConstructionDistance+costEps {
		return false
	}
	if viol < o.bestViol-violationEps || (viol <= o.bestViol+violationEps && dist < o.bestDist-costEps) {
		o.snapshotBest()
		return true
	}
	return false
}

// improve runs local search with guided penalties. A panic leaves the best
// solution found so far in place and is reported in the stats.
func (o *optimizer) improve() {
	defer func() {
		if r := recover(); r != nil {
			o.stats.ImprovementErr = fmt.Sprintf("improvement aborted: %v", r)
			log.Printf("optimizer improvement panic: %v", r)
		}
	}()

	o.setPhase(PhaseImproving)

	if o.expired() {
		return
	}

	stall := 0
	for {
		o.localSearch()

		if o.recordBest() {
			stall = 0
		} else {
			stall++
		}

		if o.stopped || o.cfg.PenaltyAlpha == 0 {
			return
		}
		if o.cfg.MaxStall > 0 && stall >= o.cfg.MaxStall {
			return
		}
		if !o.penalize() {
			return
		}
		o.stats.PenaltyRounds++
	}
}

func (o *optimizer) expired() bool {
	if o.stopped {
		return true
	}
	select {
	case <-o.done:
		o.stopped = true
	default:
		if !time.Now().Before(o.deadline) {
			o.stopped = true
		}
	}
	return o.stopped
}

// tick counts one move evaluation and periodically checks the deadline.
func (o *optimizer) tick() {
	o.evals++
	o.stats.Iterations++
	if o.evals%checkEvery == 0 {
		o.expired()
	}
}

func insertAt(seq []int, k, s int) []int {
	seq = append(seq, 0)
	copy(seq[k+1:], seq[k:])
	seq[k] = s
	return seq
}
