package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyAdapter rate-limits the first N calls, then succeeds.
type flakyAdapter struct {
	id         string
	failures   int
	retryAfter time.Duration
	calls      int
}

func (f *flakyAdapter) ID() string { return f.id }

func (f *flakyAdapter) Generate(context.Context, string, Params) (*Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, &Error{Provider: f.id, Kind: KindRateLimited, RetryAfter: f.retryAfter, Err: errors.New("429")}
	}
	return &Response{Text: "ok", TokensUsed: 10}, nil
}

// fastThrottled builds a throttle whose bucket and backoff won't make the
// test sleep for real.
func fastThrottled(inner Adapter) *Throttled {
	t := NewThrottled(inner, 600000)
	t.backoff = time.Millisecond
	return t
}

func TestThrottledRetriesRateLimits(t *testing.T) {
	inner := &flakyAdapter{id: "p", failures: 2}
	th := fastThrottled(inner)

	resp, err := th.Generate(context.Background(), "prompt", Params{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestThrottledEscalatesToUnavailable(t *testing.T) {
	inner := &flakyAdapter{id: "p", failures: 100}
	th := fastThrottled(inner)

	_, err := th.Generate(context.Background(), "prompt", Params{})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	pe := AsError("p", err)
	if pe.Kind != KindUnavailable {
		t.Errorf("expected %s, got %s", KindUnavailable, pe.Kind)
	}
	if inner.calls != maxRateRetries+1 {
		t.Errorf("expected %d calls, got %d", maxRateRetries+1, inner.calls)
	}
}

func TestThrottledPassesThroughOtherErrors(t *testing.T) {
	authErr := &Error{Provider: "p", Kind: KindAuthFailure, Err: errors.New("bad key")}
	inner := &errAdapter{id: "p", err: authErr}
	th := fastThrottled(inner)

	_, err := th.Generate(context.Background(), "prompt", Params{})
	if !errors.Is(err, authErr) {
		t.Errorf("expected the auth error unchanged, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("auth failures should not be retried, got %d calls", inner.calls)
	}
}

func TestThrottledHonorsRetryAfterHint(t *testing.T) {
	inner := &flakyAdapter{id: "p", failures: 1, retryAfter: 60 * time.Millisecond}
	th := fastThrottled(inner)

	start := time.Now()
	if _, err := th.Generate(context.Background(), "prompt", Params{}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("expected the retry hint to be respected, waited only %v", elapsed)
	}
}

func TestThrottledStopsOnCancelledContext(t *testing.T) {
	inner := &flakyAdapter{id: "p", failures: 100, retryAfter: time.Hour}
	th := fastThrottled(inner)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := th.Generate(ctx, "prompt", Params{})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if inner.calls != 1 {
		t.Errorf("expected a single call before the backoff wait, got %d", inner.calls)
	}
}

type errAdapter struct {
	id    string
	err   error
	calls int
}

func (a *errAdapter) ID() string { return a.id }

func (a *errAdapter) Generate(context.Context, string, Params) (*Response, error) {
	a.calls++
	return nil, a.err
}
