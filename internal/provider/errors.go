package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrorKind classifies a provider failure for routing decisions.
type ErrorKind string

const (
	KindRateLimited     ErrorKind = "rate_limited"
	KindTimeout         ErrorKind = "timeout"
	KindInvalidResponse ErrorKind = "invalid_response"
	KindAuthFailure     ErrorKind = "auth_failure"
	KindUnavailable     ErrorKind = "unavailable"
)

// Error is the typed failure every adapter returns. RetryAfter is only set
// for rate-limited errors where the backend supplied a hint.
type Error struct {
	Provider   string
	Kind       ErrorKind
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts a *Error from err, converting unknown errors to Unavailable
// so callers always see the taxonomy.
func AsError(id string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Provider: id, Kind: KindTimeout, Err: err}
	}
	return &Error{Provider: id, Kind: KindUnavailable, Err: err}
}

// classifyStatus maps an HTTP status code to an error kind.
func classifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuthFailure
	case code == http.StatusRequestTimeout:
		return KindTimeout
	case code >= 500:
		return KindUnavailable
	default:
		return KindInvalidResponse
	}
}

// statusError builds a typed error from a non-2xx response, honoring the
// Retry-After header on 429s.
func statusError(id string, resp *http.Response, body []byte) *Error {
	e := &Error{
		Provider: id,
		Kind:     classifyStatus(resp.StatusCode),
		Err:      fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)),
	}
	if e.Kind == KindRateLimited {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				e.RetryAfter = time.Duration(secs) * time.Second
			}
		}
	}
	return e
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
