package validate

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/verdantlabs/contentforge/internal/config"
	"github.com/verdantlabs/contentforge/internal/content"
)

// DefaultThreshold is the pass/fail quality gate when config leaves it unset.
const DefaultThreshold = 0.7

// neutralScore is what a check that could not execute contributes to the
// weighted sum. Skipped checks are always flagged, never silently dropped.
const neutralScore = 0.5

// CheckResult is the outcome of one validation check.
type CheckResult struct {
	Score   float64
	Issues  []string
	Skipped bool
}

// Check is one independent validation stage. Checks never short-circuit each
// other: every sub-score is needed for the diagnostic report.
type Check interface {
	Name() string
	Run(ctx context.Context, text string, req *content.Request) CheckResult
}

// Score is the combined validation result for one generated text.
type Score struct {
	Overall float64            `json:"overall"`
	Checks  map[string]float64 `json:"checks"`
	Issues  []string           `json:"issues,omitempty"`
	Passed  bool               `json:"passed"`
}

// Pipeline runs a fixed, ordered sequence of checks and combines the
// sub-scores into a weighted overall score.
type Pipeline struct {
	checks    []Check
	weights   map[string]float64
	threshold float64
}

// NewPipeline builds a pipeline from explicit checks and weights. Checks
// without a configured weight get weight zero and only appear in the report.
func NewPipeline(checks []Check, weights map[string]float64, threshold float64) *Pipeline {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Pipeline{checks: checks, weights: weights, threshold: threshold}
}

// Default builds the standard four-check pipeline: facts, brand voice,
// readability, SEO/structure.
func Default(kb KnowledgeBase, brand config.Brand, v config.Validation) *Pipeline {
	checks := []Check{
		NewFactCheck(kb),
		NewBrandCheck(brand),
		NewReadabilityCheck(),
		NewSEOCheck(),
	}
	weights := map[string]float64{
		"fact":        v.Weights.Fact,
		"brand":       v.Weights.Brand,
		"readability": v.Weights.Readability,
		"seo":         v.Weights.SEO,
	}
	return NewPipeline(checks, weights, v.Threshold)
}

// Run executes every check and combines the results. The overall score is the
// weight-normalized sum of sub-scores; Passed compares it to the threshold.
func (p *Pipeline) Run(ctx context.Context, text string, req *content.Request) *Score {
	s := &Score{Checks: make(map[string]float64, len(p.checks))}

	var weighted, totalWeight float64
	for _, check := range p.checks {
		res := check.Run(ctx, text, req)
		if res.Skipped {
			res.Score = neutralScore
			res.Issues = append(res.Issues, fmt.Sprintf("%s: check skipped", check.Name()))
			logrus.Warnf("validation check %s skipped", check.Name())
		}

		s.Checks[check.Name()] = res.Score
		s.Issues = append(s.Issues, res.Issues...)

		w := p.weights[check.Name()]
		weighted += w * res.Score
		totalWeight += w
	}

	if totalWeight > 0 {
		s.Overall = weighted / totalWeight
	}
	s.Passed = s.Overall >= p.threshold

	logrus.Debugf("validation: overall=%.2f passed=%v issues=%d", s.Overall, s.Passed, len(s.Issues))
	return s
}

// Threshold returns the configured pass/fail threshold.
func (p *Pipeline) Threshold() float64 { return p.threshold }
