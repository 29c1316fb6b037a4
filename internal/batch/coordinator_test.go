package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/verdantlabs/contentforge/internal/config"
	"github.com/verdantlabs/contentforge/internal/content"
	"github.com/verdantlabs/contentforge/internal/orchestrate"
	"github.com/verdantlabs/contentforge/internal/provider"
	"github.com/verdantlabs/contentforge/internal/router"
	"github.com/verdantlabs/contentforge/internal/validate"
)

// topicAdapter fails any request whose topic contains "doomed" and can block
// in-flight calls until released, for cancellation tests.
type topicAdapter struct {
	id      string
	block   chan struct{}
	started chan struct{}
}

func (a *topicAdapter) ID() string { return a.id }

func (a *topicAdapter) Generate(_ context.Context, prompt string, _ provider.Params) (*provider.Response, error) {
	if a.started != nil {
		a.started <- struct{}{}
	}
	if a.block != nil {
		<-a.block
	}
	if strings.Contains(prompt, "doomed") {
		return nil, &provider.Error{Provider: a.id, Kind: provider.KindUnavailable, Err: errors.New("backend down")}
	}
	return &provider.Response{Text: "a fine draft", TokensUsed: 100}, nil
}

type passCheck struct{}

func (passCheck) Name() string { return "stub" }

func (passCheck) Run(context.Context, string, *content.Request) validate.CheckResult {
	return validate.CheckResult{Score: 0.9}
}

type captureStore struct {
	mu    sync.Mutex
	saved []Snapshot
}

func (s *captureStore) SaveJob(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, snap)
	return nil
}

func newTestCoordinator(t *testing.T, adapter *topicAdapter, store Store) *Coordinator {
	t.Helper()
	provs := []config.Provider{{ID: adapter.id, Kind: "openai", MaxInFlight: 8}}
	rt, err := router.New(provs, router.StrategyCostOptimized, router.Options{FailureThreshold: 100})
	if err != nil {
		t.Fatalf("router.New failed: %v", err)
	}
	pipeline := validate.NewPipeline([]validate.Check{passCheck{}}, map[string]float64{"stub": 1}, 0.7)
	orch := orchestrate.New(rt, map[string]provider.Adapter{adapter.id: adapter}, pipeline, provs, orchestrate.Options{})
	return NewCoordinator(orch, store)
}

func makeRequests(topics ...string) []*content.Request {
	reqs := make([]*content.Request, len(topics))
	for i, topic := range topics {
		reqs[i] = &content.Request{ContentType: content.TypeArticle, Topic: topic}
	}
	return reqs
}

func TestRunCompleted(t *testing.T) {
	c := newTestCoordinator(t, &topicAdapter{id: "p"}, nil)

	snap, err := c.Run(context.Background(), makeRequests("soil", "seeds", "compost", "mulch"), 2)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if snap.Status != StatusCompleted {
		t.Errorf("expected %s, got %s", StatusCompleted, snap.Status)
	}
	if len(snap.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(snap.Results))
	}
	for idx, res := range snap.Results {
		if !res.Accepted {
			t.Errorf("result %d not accepted: %+v", idx, res)
		}
	}
	if snap.CompletedAt == nil {
		t.Error("expected a completion timestamp")
	}
}

func TestRunPartialFailure(t *testing.T) {
	c := newTestCoordinator(t, &topicAdapter{id: "p"}, nil)

	snap, err := c.Run(context.Background(), makeRequests("soil", "seeds", "doomed topic", "compost", "mulch"), 2)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if snap.Status != StatusPartiallyFailed {
		t.Errorf("expected %s, got %s", StatusPartiallyFailed, snap.Status)
	}
	if len(snap.Results) != 5 {
		t.Fatalf("every request should get a result, got %d of 5", len(snap.Results))
	}
	failed := snap.Results[2]
	if failed.Accepted || failed.FailureKind != orchestrate.FailureAllProvidersExhausted {
		t.Errorf("expected request 2 to be exhausted, got %+v", failed)
	}
	for _, idx := range []int{0, 1, 3, 4} {
		if !snap.Results[idx].Accepted {
			t.Errorf("result %d should be accepted", idx)
		}
	}
}

func TestSubmitAndCancel(t *testing.T) {
	adapter := &topicAdapter{
		id:      "p",
		block:   make(chan struct{}),
		started: make(chan struct{}, 8),
	}
	c := newTestCoordinator(t, adapter, nil)

	snap, err := c.Submit(makeRequests("soil", "seeds", "compost", "mulch"), 1)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Wait for the first item to enter the provider call, then cancel while
	// it is in flight.
	<-adapter.started
	if err := c.Cancel(snap.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	close(adapter.block)

	c.mu.Lock()
	job := c.jobs[snap.ID]
	c.mu.Unlock()
	job.Wait()

	final := job.snapshot()
	if final.Status != StatusCancelled {
		t.Errorf("expected %s, got %s", StatusCancelled, final.Status)
	}
	if len(final.Results) == 0 || len(final.Results) >= 4 {
		t.Errorf("expected the in-flight item to finish and the rest to be skipped, got %d results", len(final.Results))
	}
	// The in-flight item was never interrupted.
	if res, ok := final.Results[0]; !ok || !res.Accepted {
		t.Errorf("in-flight result should be kept, got %+v", res)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	c := newTestCoordinator(t, &topicAdapter{id: "p"}, nil)
	snap, err := c.Run(context.Background(), makeRequests("soil"), 1)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := c.Cancel(snap.ID); err != nil {
		t.Fatalf("first Cancel failed: %v", err)
	}
	if err := c.Cancel(snap.ID); err != nil {
		t.Fatalf("second Cancel failed: %v", err)
	}
}

func TestCancelUnknownJob(t *testing.T) {
	c := newTestCoordinator(t, &topicAdapter{id: "p"}, nil)
	if err := c.Cancel("nope"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestSubmitRejectsBadBatches(t *testing.T) {
	c := newTestCoordinator(t, &topicAdapter{id: "p"}, nil)

	if _, err := c.Submit(nil, 2); err == nil {
		t.Error("expected error for empty batch")
	}
	bad := makeRequests("soil")
	bad = append(bad, &content.Request{ContentType: content.TypeArticle}) // no topic
	if _, err := c.Submit(bad, 2); err == nil {
		t.Error("expected error for invalid request in batch")
	}
}

func TestConcurrencyClamping(t *testing.T) {
	c := newTestCoordinator(t, &topicAdapter{id: "p"}, nil)

	snap, err := c.Run(context.Background(), makeRequests("soil", "seeds"), 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if snap.MaxConcurrency != 2 {
		t.Errorf("concurrency should clamp to batch size, got %d", snap.MaxConcurrency)
	}

	snap, err = c.Run(context.Background(), makeRequests("a", "b", "c", "d", "e"), 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if snap.MaxConcurrency != DefaultConcurrency {
		t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, snap.MaxConcurrency)
	}
}

func TestFinishedJobIsPersisted(t *testing.T) {
	store := &captureStore{}
	c := newTestCoordinator(t, &topicAdapter{id: "p"}, store)

	snap, err := c.Run(context.Background(), makeRequests("soil", "seeds"), 2)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.saved) != 1 {
		t.Fatalf("expected 1 saved snapshot, got %d", len(store.saved))
	}
	saved := store.saved[0]
	if saved.ID != snap.ID || saved.Status != StatusCompleted {
		t.Errorf("unexpected saved snapshot: %+v", saved)
	}
}
