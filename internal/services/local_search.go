package services

import "collection-route-service/internal/domain"

// localSearch applies first-improvement moves until no neighborhood improves
// or the search is stopped.
func (o *optimizer) localSearch() {
	for !o.stopped {
		if o.twoOpt() || o.relocate() || o.swap() {
			continue
		}
		return
	}
}

// try replaces the sequence of route r1 (and r2 when r2 >= 0) and keeps the
// change when it is admissible, does not raise true distance, and strictly
// lowers (violation, augmented distance). seq1 and seq2 must not alias route storage.
func (o *optimizer) try(r1 int, seq1 []int, r2 int, seq2 []int) bool {
	o.tick()

	old1 := o.routes[r1]
	l1, d1, t1, a1 := o.measure(seq1)
	v1old, v1new := o.violation(r1, old1.load, old1.dur), o.violation(r1, l1, t1)
	if v1new > violationEps && v1new > v1old+violationEps {
		return false
	}
	dV := v1new - v1old
	dD := d1 - old1.dist
	dA := a1 - old1.aug

	var l2, d2, t2, a2 float64
	if r2 >= 0 {
		old2 := o.routes[r2]
		l2, d2, t2, a2 = o.measure(seq2)
		v2old, v2new := o.violation(r2, old2.load, old2.dur), o.violation(r2, l2, t2)
		if v2new > violationEps && v2new > v2old+violationEps {
			return false
		}
		dV += v2new - v2old
		dD += d2 - old2.dist
		dA += a2 - old2.aug
	}

	if dD > costEps {
		return false
	}
	if !(dV < -violationEps || (dV <= violationEps && dA < -costEps)) {
		return false
	}

	o.routes[r1] = routeState{seq: append(o.routes[r1].seq[:0], seq1...), load: l1, dist: d1, dur: t1, aug: a1}
	if r2 >= 0 {
		o.routes[r2] = routeState{seq: append(o.routes[r2].seq[:0], seq2...), load: l2, dist: d2, dur: t2, aug: a2}
	}
	o.stats.Improvements++
	return true
}

// twoOpt reverses a segment inside one route.
func (o *optimizer) twoOpt() bool {
	for r := range o.routes {
		seq := o.routes[r].seq
		for i := 0; i < len(seq)-1; i++ {
			for j := i + 1; j < len(seq); j++ {
				buf := append(o.bufA[:0], seq[:i]...)
				for k := j; k >= i; k-- {
					buf = append(buf, seq[k])
				}
				buf = append(buf, seq[j+1:]...)
				o.bufA = buf

				if o.try(r, buf, -1, nil) {
					return true
				}
				if o.stopped {
					return false
				}
			}
		}
	}
	return false
}

// relocate moves one stop to another position of the same or another route.
func (o *optimizer) relocate() bool {
	for r1 := range o.routes {
		src := o.routes[r1].seq
		for i, s := range src {
			rem := append(o.bufA[:0], src[:i]...)
			rem = append(rem, src[i+1:]...)
			o.bufA = rem

			for r2 := range o.routes {
				if r2 == r1 {
					for k := 0; k <= len(rem); k++ {
						if k == i {
							continue
						}
						o.bufB = splice(o.bufB[:0], rem, k, s)
						if o.try(r1, o.bufB, -1, nil) {
							return true
						}
						if o.stopped {
							return false
						}
					}
					continue
				}

				dst := o.routes[r2].seq
				for k := 0; k <= len(dst); k++ {
					o.bufB = splice(o.bufB[:0], dst, k, s)
					if o.try(r1, rem, r2, o.bufB) {
						return true
					}
					if o.stopped {
						return false
					}
				}
			}
		}
	}
	return false
}

// swap exchanges two stops, within one route or across two.
func (o *optimizer) swap() bool {
	for r1 := range o.routes {
		for r2 := r1; r2 < len(o.routes); r2++ {
			s1, s2 := o.routes[r1].seq, o.routes[r2].seq
			for i := range s1 {
				j0 := 0
				if r1 == r2 {
					j0 = i + 1
				}
				for j := j0; j < len(s2); j++ {
					var ok bool
					if r1 == r2 {
						c := append(o.bufA[:0], s1...)
						c[i], c[j] = c[j], c[i]
						o.bufA = c
						ok = o.try(r1, c, -1, nil)
					} else {
						c1 := append(o.bufA[:0], s1...)
						c2 := append(o.bufB[:0], s2...)
						c1[i], c2[j] = s2[j], s1[i]
						o.bufA, o.bufB = c1, c2
						ok = o.try(r1, c1, r2, c2)
					}
					if ok {
						return true
					}
					if o.stopped {
						return false
					}
				}
			}
		}
	}
	return false
}

// penalize raises the penalty of the maximum-utility arcs of the current
// solution, util = d / (1 + p). The first call fixes lambda from the local
// optimum. It reports false when no arc can be penalized usefully.
func (o *optimizer) penalize() bool {
	arcs := 0
	for _, r := range o.routes {
		if len(r.seq) > 0 {
			arcs += len(r.seq) + 1
		}
	}
	if arcs == 0 {
		return false
	}

	if o.lambda == 0 {
		total := o.totalDist()
		if total <= 0 {
			return false
		}
		o.lambda = o.cfg.PenaltyAlpha * total / float64(arcs)
	}

	maxUtil := 0.0
	o.eachArc(func(k int) {
		if u := o.dist[k] / (1 + o.penalty[k]); u > maxUtil {
			maxUtil = u
		}
	})
	if maxUtil <= 0 {
		return false
	}

	hit := make(map[int]struct{})
	o.eachArc(func(k int) {
		if o.dist[k]/(1+o.penalty[k]) >= maxUtil-costEps {
			from, to := k/o.n, k%o.n
			hit[k] = struct{}{}
			hit[to*o.n+from] = struct{}{}
		}
	})
	for k := range hit {
		o.penalty[k]++
	}

	for v := range o.routes {
		o.refresh(v)
	}
	return true
}

// eachArc visits the flat matrix index of every arc in the current routes.
func (o *optimizer) eachArc(fn func(k int)) {
	for _, r := range o.routes {
		if len(r.seq) == 0 {
			continue
		}
		prev := domain.DepotIndex
		for _, s := range r.seq {
			fn(prev*o.n + s)
			prev = s
		}
		fn(prev*o.n + domain.DepotIndex)
	}
}

// splice writes seq with s inserted at k into buf.
func splice(buf, seq []int, k, s int) []int {
	buf = append(buf, seq[:k]...)
	buf = append(buf, s)
	return append(buf, seq[k:]...)
}
