package router

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/verdantlabs/contentforge/internal/config"
	"github.com/verdantlabs/contentforge/internal/content"
)

// Strategy selects how the fallback chain is ordered.
type Strategy string

const (
	StrategyCostOptimized Strategy = "cost_optimized"
	StrategyQualityFirst  Strategy = "quality_first"
	StrategySpeedFirst    Strategy = "speed_first"
	StrategyBalanced      Strategy = "balanced"
	StrategyRoundRobin    Strategy = "round_robin"
)

// ErrNoProvidersAvailable is returned when no provider can accept the request.
var ErrNoProvidersAvailable = fmt.Errorf("no providers available")

// maxErrorRate is the trailing error rate above which cost_optimized drops a
// provider from consideration.
const maxErrorRate = 0.5

// Options tune the circuit breaker.
type Options struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// Router owns the provider profile table and produces ordered fallback
// chains. It is safe for concurrent use by many in-flight requests.
type Router struct {
	mu       sync.Mutex
	profiles map[string]*profile
	order    []string // configured order, stable tiebreak
	strategy Strategy
	opts     Options
	cursor   int // round_robin position

	now func() time.Time // injectable clock for tests
}

// New builds a router from the configured provider set.
func New(providers []config.Provider, strategy Strategy, opts Options) (*Router, error) {
	switch strategy {
	case StrategyCostOptimized, StrategyQualityFirst, StrategySpeedFirst, StrategyBalanced, StrategyRoundRobin:
	default:
		return nil, fmt.Errorf("unknown routing strategy: %q", strategy)
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 3
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 60 * time.Second
	}

	r := &Router{
		profiles: make(map[string]*profile, len(providers)),
		strategy: strategy,
		opts:     opts,
		now:      time.Now,
	}
	for _, pc := range providers {
		r.profiles[pc.ID] = &profile{
			id:          pc.ID,
			premium:     pc.Premium,
			costPer1K:   pc.CostPer1K,
			maxInFlight: pc.MaxInFlight,
			available:   true,
		}
		r.order = append(r.order, pc.ID)
	}
	return r, nil
}

// Plan returns the ordered provider chain for a request: the preferred
// provider first when it is eligible, then the strategy's ordering of the
// remaining eligible providers. Providers that are unavailable or at their
// in-flight cap are excluded outright.
func (r *Router) Plan(req *content.Request) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.profiles) == 0 {
		return nil, ErrNoProvidersAvailable
	}

	now := r.now()
	var candidates []*profile
	for _, id := range r.order {
		p := r.profiles[id]
		if !p.eligible(now, r.opts.Cooldown) {
			continue
		}
		if r.strategy == StrategyCostOptimized && p.errorRate > maxErrorRate {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return nil, ErrNoProvidersAvailable
	}

	var preferred *profile
	if req != nil && req.PreferredProvider != "" {
		for i, p := range candidates {
			if p.id == req.PreferredProvider {
				preferred = p
				candidates = append(candidates[:i], candidates[i+1:]...)
				break
			}
		}
	}

	r.orderByStrategy(candidates)

	chain := make([]string, 0, len(candidates)+1)
	if preferred != nil {
		chain = append(chain, preferred.id)
	}
	for _, p := range candidates {
		chain = append(chain, p.id)
	}
	return chain, nil
}

// orderByStrategy sorts candidates in place per the configured strategy.
// Caller holds the lock.
func (r *Router) orderByStrategy(candidates []*profile) {
	switch r.strategy {
	case StrategyCostOptimized:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].costPer1K < candidates[j].costPer1K
		})
	case StrategyQualityFirst:
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].premium != candidates[j].premium {
				return candidates[i].premium
			}
			return candidates[i].costPer1K < candidates[j].costPer1K
		})
	case StrategySpeedFirst:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].latencyOrDefault() < candidates[j].latencyOrDefault()
		})
	case StrategyBalanced:
		scores := balancedScores(candidates)
		sort.SliceStable(candidates, func(i, j int) bool {
			return scores[candidates[i].id] > scores[candidates[j].id]
		})
	case StrategyRoundRobin:
		if len(candidates) > 1 {
			offset := r.cursor % len(candidates)
			rotated := append(append([]*profile{}, candidates[offset:]...), candidates[:offset]...)
			copy(candidates, rotated)
		}
		r.cursor++
	}
}

// balancedScores computes the weighted score
// 0.4*norm(1/latency) + 0.3*norm(1/cost) + 0.3*norm(1-error_rate)
// normalized against the best candidate on each axis.
func balancedScores(candidates []*profile) map[string]float64 {
	var maxInvLat, maxInvCost, maxHealth float64
	invLat := make(map[string]float64, len(candidates))
	invCost := make(map[string]float64, len(candidates))
	health := make(map[string]float64, len(candidates))

	for _, p := range candidates {
		il := 1 / p.latencyOrDefault().Seconds()
		ic := 1 / (p.costPer1K + 0.01) // avoid div-by-zero for free local models
		h := 1 - p.errorRate
		invLat[p.id], invCost[p.id], health[p.id] = il, ic, h
		maxInvLat = max(maxInvLat, il)
		maxInvCost = max(maxInvCost, ic)
		maxHealth = max(maxHealth, h)
	}

	norm := func(v, maxV float64) float64 {
		if maxV == 0 {
			return 0
		}
		return v / maxV
	}

	scores := make(map[string]float64, len(candidates))
	for _, p := range candidates {
		scores[p.id] = 0.4*norm(invLat[p.id], maxInvLat) +
			0.3*norm(invCost[p.id], maxInvCost) +
			0.3*norm(health[p.id], maxHealth)
	}
	return scores
}

// Acquire claims an in-flight slot on a provider. It fails when the provider
// is at its cap, or unavailable with no probe admitted. For a circuit-open
// provider past its cooldown, exactly one caller wins the half-open probe.
func (r *Router) Acquire(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok || p.inFlight >= p.maxInFlight {
		return false
	}
	if !p.available {
		if p.probing || r.now().Sub(p.openedAt) < r.opts.Cooldown {
			return false
		}
		p.probing = true
	}
	p.inFlight++
	return true
}

// Release returns an in-flight slot.
func (r *Router) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok && p.inFlight > 0 {
		p.inFlight--
	}
}

// RecordSuccess folds a successful attempt into the provider's profile.
func (r *Router) RecordSuccess(id string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		p.recordSuccess(latency)
	}
}

// RecordFailure folds a failed attempt into the provider's profile.
func (r *Router) RecordFailure(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		p.recordFailure(r.now(), r.opts.FailureThreshold)
	}
}

// Profiles returns read-only snapshots of all provider profiles, in
// configured order.
func (r *Router) Profiles() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snaps := make([]Snapshot, 0, len(r.order))
	for _, id := range r.order {
		p := r.profiles[id]
		snaps = append(snaps, Snapshot{
			ID:          p.id,
			Premium:     p.premium,
			CostPer1K:   p.costPer1K,
			AvgLatency:  p.avgLatency,
			ErrorRate:   p.errorRate,
			InFlight:    p.inFlight,
			MaxInFlight: p.maxInFlight,
			Available:   p.available,
		})
	}
	return snaps
}
