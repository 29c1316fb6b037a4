package router

import (
	"testing"
	"time"

	"github.com/verdantlabs/contentforge/internal/config"
	"github.com/verdantlabs/contentforge/internal/content"
)

func testProviders() []config.Provider {
	return []config.Provider{
		{ID: "openai", Kind: "openai", CostPer1K: 0.6, MaxInFlight: 4, Premium: false},
		{ID: "anthropic", Kind: "anthropic", CostPer1K: 3.0, MaxInFlight: 4, Premium: true},
		{ID: "ollama", Kind: "ollama", CostPer1K: 0, MaxInFlight: 2, Premium: false},
	}
}

func newTestRouter(t *testing.T, strategy Strategy) *Router {
	t.Helper()
	r, err := New(testProviders(), strategy, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	if _, err := New(testProviders(), Strategy("cheapest"), Options{}); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestPlanCostOptimized(t *testing.T) {
	r := newTestRouter(t, StrategyCostOptimized)
	chain, err := r.Plan(nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	want := []string{"ollama", "openai", "anthropic"}
	assertChain(t, chain, want)
}

func TestPlanCostOptimizedExcludesHighErrorRate(t *testing.T) {
	r := newTestRouter(t, StrategyCostOptimized)
	r.profiles["ollama"].errorRate = 0.7

	chain, err := r.Plan(nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	assertChain(t, chain, []string{"openai", "anthropic"})
}

func TestPlanQualityFirst(t *testing.T) {
	r := newTestRouter(t, StrategyQualityFirst)
	chain, err := r.Plan(nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if chain[0] != "anthropic" {
		t.Errorf("expected premium provider first, got %v", chain)
	}
}

func TestPlanSpeedFirst(t *testing.T) {
	r := newTestRouter(t, StrategySpeedFirst)
	r.RecordSuccess("anthropic", 500*time.Millisecond)
	r.RecordSuccess("openai", 3*time.Second)
	// ollama has no history and keeps the 2s seed latency.

	chain, err := r.Plan(nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	assertChain(t, chain, []string{"anthropic", "ollama", "openai"})
}

func TestPlanBalancedPrefersHealthyCheapFast(t *testing.T) {
	r := newTestRouter(t, StrategyBalanced)
	// openai: fast, cheap, healthy. anthropic: slow, expensive, flaky.
	r.RecordSuccess("openai", 400*time.Millisecond)
	r.RecordSuccess("anthropic", 4*time.Second)
	r.profiles["anthropic"].errorRate = 0.4

	chain, err := r.Plan(nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if chain[0] != "openai" {
		t.Errorf("expected openai first, got %v", chain)
	}
	if chain[len(chain)-1] != "anthropic" {
		t.Errorf("expected anthropic last, got %v", chain)
	}
}

func TestPlanRoundRobinFairness(t *testing.T) {
	r := newTestRouter(t, StrategyRoundRobin)

	counts := make(map[string]int)
	for i := 0; i < 9; i++ {
		chain, err := r.Plan(nil)
		if err != nil {
			t.Fatalf("Plan failed: %v", err)
		}
		counts[chain[0]]++
	}
	for id, n := range counts {
		if n != 3 {
			t.Errorf("provider %s led %d of 9 plans, want 3", id, n)
		}
	}
}

func TestPlanPreferredProviderFirst(t *testing.T) {
	r := newTestRouter(t, StrategyCostOptimized)
	req := &content.Request{PreferredProvider: "anthropic"}

	chain, err := r.Plan(req)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	assertChain(t, chain, []string{"anthropic", "ollama", "openai"})
}

func TestPlanPreferredProviderIneligible(t *testing.T) {
	r := newTestRouter(t, StrategyCostOptimized)
	r.profiles["anthropic"].available = false
	r.profiles["anthropic"].openedAt = r.now()
	req := &content.Request{PreferredProvider: "anthropic"}

	chain, err := r.Plan(req)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	assertChain(t, chain, []string{"ollama", "openai"})
}

func TestPlanExcludesProvidersAtCap(t *testing.T) {
	r := newTestRouter(t, StrategyCostOptimized)
	if !r.Acquire("ollama") || !r.Acquire("ollama") {
		t.Fatal("expected to acquire ollama twice")
	}

	chain, err := r.Plan(nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	assertChain(t, chain, []string{"openai", "anthropic"})

	r.Release("ollama")
	chain, err = r.Plan(nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	assertChain(t, chain, []string{"ollama", "openai", "anthropic"})
}

func TestPlanNoProviders(t *testing.T) {
	r, err := New(nil, StrategyBalanced, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := r.Plan(nil); err != ErrNoProvidersAvailable {
		t.Errorf("expected ErrNoProvidersAvailable, got %v", err)
	}
}

func TestAcquireRespectsCap(t *testing.T) {
	r := newTestRouter(t, StrategyBalanced)
	for i := 0; i < 2; i++ {
		if !r.Acquire("ollama") {
			t.Fatalf("acquire %d should succeed", i)
		}
	}
	if r.Acquire("ollama") {
		t.Error("acquire past cap should fail")
	}
	if r.Acquire("nope") {
		t.Error("acquire of unknown provider should fail")
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	r := newTestRouter(t, StrategyCostOptimized)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	for i := 0; i < 2; i++ {
		r.RecordFailure("ollama")
	}
	if !r.profiles["ollama"].available {
		t.Fatal("circuit should stay closed below threshold")
	}
	r.RecordFailure("ollama")
	if r.profiles["ollama"].available {
		t.Fatal("circuit should open at threshold")
	}

	chain, err := r.Plan(nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	assertChain(t, chain, []string{"openai", "anthropic"})
}

func TestCircuitBreakerHalfOpenProbe(t *testing.T) {
	r := newTestRouter(t, StrategyCostOptimized)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		r.RecordFailure("ollama")
	}

	// Inside the cooldown the provider stays out of plans and acquires.
	clock = clock.Add(30 * time.Second)
	if chain, _ := r.Plan(nil); len(chain) != 2 {
		t.Fatalf("expected open circuit to exclude ollama, got %v", chain)
	}
	if r.Acquire("ollama") {
		t.Fatal("acquire during cooldown should fail")
	}

	// Past the cooldown the provider is plannable again, and exactly one
	// caller wins the half-open probe.
	clock = clock.Add(31 * time.Second)
	chain, err := r.Plan(nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	assertChain(t, chain, []string{"ollama", "openai", "anthropic"})

	if !r.Acquire("ollama") {
		t.Fatal("first acquire after cooldown should win the probe")
	}
	if r.Acquire("ollama") {
		t.Error("second acquire should lose while probe is in flight")
	}

	// Successful probe closes the circuit.
	r.RecordSuccess("ollama", time.Second)
	r.Release("ollama")
	if !r.profiles["ollama"].available {
		t.Error("successful probe should close the circuit")
	}
}

func TestCircuitBreakerFailedProbeRestartsCooldown(t *testing.T) {
	r := newTestRouter(t, StrategyCostOptimized)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		r.RecordFailure("ollama")
	}
	clock = clock.Add(61 * time.Second)
	if !r.Acquire("ollama") {
		t.Fatal("probe acquire should succeed after cooldown")
	}
	r.RecordFailure("ollama")
	r.Release("ollama")

	// The failed probe restarted the cooldown from now.
	clock = clock.Add(30 * time.Second)
	if r.Acquire("ollama") {
		t.Error("acquire should fail inside the restarted cooldown")
	}
	clock = clock.Add(31 * time.Second)
	if !r.Acquire("ollama") {
		t.Error("acquire should win a fresh probe after the restarted cooldown")
	}
}

func TestRecordSuccessUpdatesProfile(t *testing.T) {
	r := newTestRouter(t, StrategyBalanced)
	r.RecordSuccess("openai", time.Second)
	r.RecordSuccess("openai", 2*time.Second)

	p := r.profiles["openai"]
	// EWMA: 1s seeded, then 0.8*1s + 0.2*2s = 1.2s.
	want := 1200 * time.Millisecond
	if p.avgLatency != want {
		t.Errorf("expected avg latency %v, got %v", want, p.avgLatency)
	}
	if p.errorRate != 0 {
		t.Errorf("expected zero error rate, got %v", p.errorRate)
	}
}

func TestProfilesSnapshotOrder(t *testing.T) {
	r := newTestRouter(t, StrategyBalanced)
	snaps := r.Profiles()
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	if snaps[0].ID != "openai" || snaps[1].ID != "anthropic" || snaps[2].ID != "ollama" {
		t.Errorf("snapshots out of configured order: %+v", snaps)
	}
}

func assertChain(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("chain length %d, want %d (%v vs %v)", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chain %v, want %v", got, want)
		}
	}
}
