package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/verdantlabs/contentforge/internal/content"
)

// Record is one knowledge-base entry: a plant, piece of equipment, or
// technique, with known facts and known-false claims about it.
type Record struct {
	Name           string
	Kind           string // plant, equipment, technique
	Aliases        []string
	Facts          []string
	Misconceptions []string
}

// KnowledgeBase matches records whose name or alias appears in a text.
type KnowledgeBase interface {
	Match(ctx context.Context, text string) ([]Record, error)
}

// misconceptionPenalty is the cost of each contradicted claim. Contradictions
// are penalized heavily; entities the knowledge base doesn't know are neutral.
const misconceptionPenalty = 0.3

// FactCheck cross-references generated text against the knowledge base.
type FactCheck struct {
	kb KnowledgeBase
}

// NewFactCheck creates the domain-fact check.
func NewFactCheck(kb KnowledgeBase) *FactCheck {
	return &FactCheck{kb: kb}
}

// Name returns the check identifier used in score reports.
func (c *FactCheck) Name() string { return "fact" }

// Run matches knowledge-base records in the text and penalizes every known
// misconception it repeats. A missing or failing knowledge base skips the
// check rather than guessing.
func (c *FactCheck) Run(ctx context.Context, text string, _ *content.Request) CheckResult {
	if c.kb == nil {
		return CheckResult{Skipped: true}
	}

	records, err := c.kb.Match(ctx, text)
	if err != nil {
		return CheckResult{Skipped: true, Issues: []string{fmt.Sprintf("fact: knowledge base unavailable: %v", err)}}
	}

	lower := strings.ToLower(text)
	res := CheckResult{Score: 1.0}
	for _, rec := range records {
		for _, claim := range rec.Misconceptions {
			if claim == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(claim)) {
				res.Score -= misconceptionPenalty
				res.Issues = append(res.Issues,
					fmt.Sprintf("fact: contradicts knowledge base on %s (%s): %q", rec.Name, rec.Kind, claim))
			}
		}
	}
	if res.Score < 0 {
		res.Score = 0
	}
	return res
}
