package validate

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/verdantlabs/contentforge/internal/content"
)

// Flesch reading-ease targets per audience. Beginners need easier text.
var easeTargets = map[content.Audience]float64{
	content.AudienceBeginner:     70,
	content.AudienceIntermediate: 50,
	content.AudienceAdvanced:     30,
}

// easeFalloff is the ease-point range over which the score decays from 1 to 0
// below the audience target.
const easeFalloff = 50.0

// ReadabilityCheck scores Flesch reading ease against the target audience.
type ReadabilityCheck struct{}

// NewReadabilityCheck creates the readability check.
func NewReadabilityCheck() *ReadabilityCheck { return &ReadabilityCheck{} }

// Name returns the check identifier used in score reports.
func (c *ReadabilityCheck) Name() string { return "readability" }

// Run computes reading ease and maps it to the audience band.
func (c *ReadabilityCheck) Run(_ context.Context, text string, req *content.Request) CheckResult {
	words, sentences, syllables := countText(text)
	if words == 0 || sentences == 0 {
		return CheckResult{Score: 0, Issues: []string{"readability: no scoreable text"}}
	}

	ease := 206.835 - 1.015*(float64(words)/float64(sentences)) - 84.6*(float64(syllables)/float64(words))

	target := easeTargets[req.Audience]
	if target == 0 {
		target = easeTargets[content.AudienceIntermediate]
	}

	res := CheckResult{Score: 1.0}
	if ease < target {
		res.Score = 1 - (target-ease)/easeFalloff
		if res.Score < 0 {
			res.Score = 0
		}
		res.Issues = append(res.Issues,
			fmt.Sprintf("readability: reading ease %.0f below the %s target of %.0f", ease, req.Audience, target))
	}
	return res
}

// countText tallies words, sentences, and syllables for the Flesch formula.
func countText(text string) (words, sentences, syllables int) {
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}

	for _, word := range strings.Fields(text) {
		word = strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
		if word == "" {
			continue
		}
		words++
		syllables += countSyllables(word)
	}

	if sentences == 0 && words > 0 {
		sentences = 1
	}
	return words, sentences, syllables
}

// countSyllables approximates syllables as vowel groups, discounting a
// trailing silent e. Good enough for relative scoring.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}
