package orchestrate

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/verdantlabs/contentforge/internal/config"
	"github.com/verdantlabs/contentforge/internal/content"
	"github.com/verdantlabs/contentforge/internal/provider"
	"github.com/verdantlabs/contentforge/internal/router"
	"github.com/verdantlabs/contentforge/internal/validate"
)

// Options tune one orchestrator.
type Options struct {
	AttemptTimeout time.Duration // per provider call, default 30s
	QualityRetries int           // retries with a different provider after a failed quality gate
}

// Orchestrator drives one request end to end: route, generate, validate, then
// accept, retry with the next provider, or fail. Provider errors never escape;
// they become routing decisions. Only terminal outcomes reach the caller.
type Orchestrator struct {
	router   *router.Router
	adapters map[string]provider.Adapter
	pipeline *validate.Pipeline
	opts     Options

	costPer1K map[string]float64
}

// New creates an orchestrator over the given provider set.
func New(rt *router.Router, adapters map[string]provider.Adapter, pipeline *validate.Pipeline, providers []config.Provider, opts Options) *Orchestrator {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 30 * time.Second
	}
	if opts.QualityRetries < 0 {
		opts.QualityRetries = 0
	}

	costs := make(map[string]float64, len(providers))
	for _, pc := range providers {
		costs[pc.ID] = pc.CostPer1K
	}

	return &Orchestrator{
		router:    rt,
		adapters:  adapters,
		pipeline:  pipeline,
		opts:      opts,
		costPer1K: costs,
	}
}

// Generate runs one content request to a terminal result. The returned error
// is non-nil only for an invalid request; generation failures are reported
// inside the Result.
func (o *Orchestrator) Generate(ctx context.Context, req *content.Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	chain, err := o.router.Plan(req)
	if err != nil {
		logrus.Warnf("routing failed for %q: %v", req.Topic, err)
		return &Result{FailureKind: FailureNoProviders, LastError: err.Error()}, nil
	}
	logrus.Debugf("provider chain for %q: %v", req.Topic, chain)

	prompt := buildPrompt(req)
	params := provider.Params{
		MaxTokens:   req.MaxLength * 2, // rough words-to-tokens margin
		Temperature: 0.7,
	}

	result := &Result{}
	var lastErr string
	var best *Attempt
	qualityRetriesUsed := 0

	for _, id := range chain {
		if ctx.Err() != nil {
			break
		}

		adapter, ok := o.adapters[id]
		if !ok {
			continue
		}
		// Re-checked at call time: the plan snapshot may have raced another
		// request to the provider's last in-flight slot.
		if !o.router.Acquire(id) {
			continue
		}

		attempt := o.tryProvider(ctx, adapter, prompt, params)
		o.router.Release(id)

		if attempt.ErrKind != "" {
			o.router.RecordFailure(id)
			result.Attempts = append(result.Attempts, attempt)
			lastErr = attempt.ErrMessage
			logrus.Infof("provider %s failed (%s), trying next in chain", id, attempt.ErrKind)
			continue
		}

		o.router.RecordSuccess(id, attempt.FinishedAt.Sub(attempt.StartedAt))

		score := o.pipeline.Run(ctx, attempt.content, req)
		attempt.Quality = score
		result.Attempts = append(result.Attempts, attempt)

		if score.Passed {
			result.Accepted = true
			result.Content = attempt.content
			result.Quality = score
			result.ProviderUsed = id
			logrus.Infof("accepted %q from %s (score %.2f, %d attempt(s))",
				req.Topic, id, score.Overall, len(result.Attempts))
			return result, nil
		}

		if best == nil || score.Overall > best.Quality.Overall {
			b := attempt
			best = &b
		}

		if qualityRetriesUsed >= o.opts.QualityRetries {
			break
		}
		qualityRetriesUsed++
		logrus.Infof("quality gate failed for %q on %s (%.2f), retrying with next provider",
			req.Topic, id, score.Overall)
	}

	if best != nil {
		// Below threshold everywhere: surface the best draft so the caller
		// can explicitly choose to use it.
		result.FailureKind = FailureQualityNotMet
		result.Content = best.content
		result.Quality = best.Quality
		result.ProviderUsed = best.Provider
		logrus.Warnf("quality threshold not met for %q, best score %.2f", req.Topic, best.Quality.Overall)
		return result, nil
	}

	result.FailureKind = FailureAllProvidersExhausted
	result.LastError = lastErr
	logrus.Warnf("all providers exhausted for %q after %d attempt(s)", req.Topic, len(result.Attempts))
	return result, nil
}

// tryProvider executes a single bounded provider call and records it as an
// attempt. On failure the attempt carries the error taxonomy.
func (o *Orchestrator) tryProvider(ctx context.Context, adapter provider.Adapter, prompt string, params provider.Params) Attempt {
	attempt := Attempt{Provider: adapter.ID(), StartedAt: time.Now()}

	actx, cancel := context.WithTimeout(ctx, o.opts.AttemptTimeout)
	resp, err := adapter.Generate(actx, prompt, params)
	cancel()

	attempt.FinishedAt = time.Now()
	if err != nil {
		pe := provider.AsError(adapter.ID(), err)
		attempt.ErrKind = pe.Kind
		attempt.ErrMessage = pe.Error()
		return attempt
	}

	attempt.content = resp.Text
	attempt.TokensUsed = resp.TokensUsed
	attempt.CostEstimate = float64(resp.TokensUsed) / 1000 * o.costPer1K[adapter.ID()]
	return attempt
}
