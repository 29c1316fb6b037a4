package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	backoffStart   = 1 * time.Second
	backoffCap     = 30 * time.Second
	maxRateRetries = 3
)

// Throttled wraps an adapter with a token bucket sized to the provider's
// requests-per-minute budget, and absorbs RateLimited errors with exponential
// backoff before escalating to Unavailable. This throttle is independent of
// the router's in-flight cap: the router decides which provider receives
// load, the throttle bounds how fast that provider is actually hit.
type Throttled struct {
	inner   Adapter
	limiter *rate.Limiter

	// backoffStart is overridable so tests don't sleep for real.
	backoff time.Duration
}

// NewThrottled wraps an adapter with an rpm-sized token bucket.
func NewThrottled(inner Adapter, rpm int) *Throttled {
	return &Throttled{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		backoff: backoffStart,
	}
}

// ID returns the wrapped adapter's identifier.
func (t *Throttled) ID() string { return t.inner.ID() }

// Generate waits for a token, then delegates. Rate-limited responses are
// retried with backoff (honoring a Retry-After hint when present); after
// maxRateRetries the error escalates to Unavailable.
func (t *Throttled) Generate(ctx context.Context, prompt string, params Params) (*Response, error) {
	delay := t.backoff
	var lastErr *Error

	for attempt := 0; attempt <= maxRateRetries; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, AsError(t.inner.ID(), err)
		}

		resp, err := t.inner.Generate(ctx, prompt, params)
		if err == nil {
			return resp, nil
		}

		var pe *Error
		if !errors.As(err, &pe) || pe.Kind != KindRateLimited {
			return nil, err
		}
		lastErr = pe

		if attempt == maxRateRetries {
			break
		}

		wait := delay
		if pe.RetryAfter > 0 {
			wait = pe.RetryAfter
		}
		if wait > backoffCap {
			wait = backoffCap
		}
		logrus.Debugf("provider %s rate limited, backing off %s (attempt %d/%d)",
			t.inner.ID(), wait, attempt+1, maxRateRetries)

		select {
		case <-ctx.Done():
			return nil, AsError(t.inner.ID(), ctx.Err())
		case <-time.After(wait):
		}
		delay *= 2
	}

	return nil, &Error{
		Provider: t.inner.ID(),
		Kind:     KindUnavailable,
		Err:      fmt.Errorf("rate limit retries exhausted: %w", lastErr),
	}
}
