package orchestrate

import (
	"time"

	"github.com/verdantlabs/contentforge/internal/provider"
	"github.com/verdantlabs/contentforge/internal/validate"
)

// FailureKind classifies a terminal generation failure.
type FailureKind string

const (
	FailureNoProviders           FailureKind = "no_providers_available"
	FailureAllProvidersExhausted FailureKind = "all_providers_exhausted"
	FailureQualityNotMet         FailureKind = "quality_threshold_not_met"
)

// Attempt records one provider try, successful or not. The ordered attempt
// history ships with every result so failures can be diagnosed without
// access to internal profile state.
type Attempt struct {
	Provider     string             `json:"provider"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
	ErrKind      provider.ErrorKind `json:"error_kind,omitempty"`
	ErrMessage   string             `json:"error,omitempty"`
	TokensUsed   int                `json:"tokens_used,omitempty"`
	CostEstimate float64            `json:"cost_estimate,omitempty"`
	Quality      *validate.Score    `json:"quality,omitempty"`

	// content is the raw generated text, held only until the request
	// resolves. It surfaces through Result.Content, never per attempt.
	content string
}

// Result is the terminal outcome of one content request. For
// quality_threshold_not_met failures, Content and Quality carry the
// best-scoring attempt so callers can explicitly choose to use a
// below-threshold draft.
type Result struct {
	Accepted     bool            `json:"accepted"`
	Content      string          `json:"content,omitempty"`
	Quality      *validate.Score `json:"quality,omitempty"`
	ProviderUsed string          `json:"provider_used,omitempty"`
	FailureKind  FailureKind     `json:"failure_kind,omitempty"`
	LastError    string          `json:"last_error,omitempty"`
	Attempts     []Attempt       `json:"attempts"`
}
