package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/verdantlabs/contentforge/internal/config"
	"github.com/verdantlabs/contentforge/internal/content"
)

const (
	bannedTermPenalty    = 0.2
	noPreferredPenalty   = 0.1
	shoutingPenalty      = 0.1
	shoutingWordMinCount = 3
)

// BrandCheck scores lexical consistency against the brand-voice descriptor:
// banned terminology, missing preferred vocabulary, and shouting.
type BrandCheck struct {
	voice          string
	bannedTerms    []string
	preferredTerms []string
}

// NewBrandCheck creates the brand-voice check from brand config.
func NewBrandCheck(brand config.Brand) *BrandCheck {
	return &BrandCheck{
		voice:          brand.Voice,
		bannedTerms:    brand.BannedTerms,
		preferredTerms: brand.PreferredTerms,
	}
}

// Name returns the check identifier used in score reports.
func (c *BrandCheck) Name() string { return "brand" }

// Run scores the text against the brand rules.
func (c *BrandCheck) Run(_ context.Context, text string, req *content.Request) CheckResult {
	lower := strings.ToLower(text)
	res := CheckResult{Score: 1.0}

	for _, term := range c.bannedTerms {
		if term == "" {
			continue
		}
		if n := strings.Count(lower, strings.ToLower(term)); n > 0 {
			res.Score -= bannedTermPenalty
			res.Issues = append(res.Issues, fmt.Sprintf("brand: banned term %q used %d time(s)", term, n))
		}
	}

	if len(c.preferredTerms) > 0 {
		found := false
		for _, term := range c.preferredTerms {
			if strings.Contains(lower, strings.ToLower(term)) {
				found = true
				break
			}
		}
		if !found {
			res.Score -= noPreferredPenalty
			res.Issues = append(res.Issues, "brand: none of the preferred terms appear")
		}
	}

	// Runs of all-caps words read as shouting, which fits no configured voice.
	if shoutingWords(text) >= shoutingWordMinCount {
		res.Score -= shoutingPenalty
		res.Issues = append(res.Issues, "brand: excessive all-caps wording")
	}

	if res.Score < 0 {
		res.Score = 0
	}
	return res
}

func shoutingWords(text string) int {
	count := 0
	for _, word := range strings.Fields(text) {
		letters := 0
		upper := 0
		for _, r := range word {
			if r >= 'a' && r <= 'z' {
				letters++
			} else if r >= 'A' && r <= 'Z' {
				letters++
				upper++
			}
		}
		if letters >= 3 && upper == letters {
			count++
		}
	}
	return count
}
