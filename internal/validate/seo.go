package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/verdantlabs/contentforge/internal/content"
)

const (
	missingKeywordPenalty = 0.15
	densityPenalty        = 0.15
	structurePenalty      = 0.2
	lengthPenalty         = 0.2

	minKeywordDensity = 0.005
	maxKeywordDensity = 0.03
)

// requiredHeadings is the minimum markdown heading count per content type.
// Short-form types have no structural heading requirement.
var requiredHeadings = map[content.ContentType]int{
	content.TypeArticle:       2,
	content.TypeHowToGuide:    3,
	content.TypeProductReview: 2,
	content.TypeSEOPost:       2,
	content.TypeInterview:     2,
	content.TypeDigest:        1,
}

// SEOCheck verifies keyword presence and natural density plus the structural
// elements the content type calls for. Generated output is markdown, so the
// structure walk uses the goldmark AST rather than regexes.
type SEOCheck struct {
	md goldmark.Markdown
}

// NewSEOCheck creates the SEO/structure check.
func NewSEOCheck() *SEOCheck {
	return &SEOCheck{md: goldmark.New()}
}

// Name returns the check identifier used in score reports.
func (c *SEOCheck) Name() string { return "seo" }

// Run scores keywords and structure for the request's content type.
func (c *SEOCheck) Run(_ context.Context, text string, req *content.Request) CheckResult {
	res := CheckResult{Score: 1.0}
	lower := strings.ToLower(text)
	wordCount := len(strings.Fields(text))

	// Keywords: each must appear, and combined density must stay natural.
	if len(req.SEOKeywords) > 0 && wordCount > 0 {
		totalHits := 0
		for _, kw := range req.SEOKeywords {
			if kw == "" {
				continue
			}
			hits := strings.Count(lower, strings.ToLower(kw))
			if hits == 0 {
				res.Score -= missingKeywordPenalty
				res.Issues = append(res.Issues, fmt.Sprintf("seo: keyword %q missing", kw))
			}
			totalHits += hits
		}

		density := float64(totalHits) / float64(wordCount)
		if density > maxKeywordDensity {
			res.Score -= densityPenalty
			res.Issues = append(res.Issues, fmt.Sprintf("seo: keyword density %.1f%% reads as stuffing", density*100))
		} else if totalHits > 0 && density < minKeywordDensity {
			res.Score -= densityPenalty
			res.Issues = append(res.Issues, fmt.Sprintf("seo: keyword density %.2f%% is too thin", density*100))
		}
	}

	// Structure: headings per content type.
	headings := c.countHeadings([]byte(text))
	if need := requiredHeadings[req.ContentType]; headings < need {
		res.Score -= structurePenalty
		res.Issues = append(res.Issues,
			fmt.Sprintf("seo: %s needs at least %d heading(s), found %d", req.ContentType, need, headings))
	}

	// Length bounds against the request budget.
	if wordCount > req.MaxLength+req.MaxLength/5 {
		res.Score -= lengthPenalty
		res.Issues = append(res.Issues, fmt.Sprintf("seo: %d words exceeds the %d word budget", wordCount, req.MaxLength))
	}
	if minWords := minLengthFor(req); wordCount < minWords {
		res.Score -= lengthPenalty
		res.Issues = append(res.Issues, fmt.Sprintf("seo: %d words is under the %d word minimum", wordCount, minWords))
	}

	if res.Score < 0 {
		res.Score = 0
	}
	return res
}

// countHeadings parses the markdown and counts heading nodes.
func (c *SEOCheck) countHeadings(src []byte) int {
	doc := c.md.Parser().Parse(gmtext.NewReader(src))
	count := 0
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if _, ok := node.(*ast.Heading); ok {
			count++
		}
	}
	return count
}

// minLengthFor returns the minimum acceptable word count. Captions and
// community posts are allowed to be short.
func minLengthFor(req *content.Request) int {
	switch req.ContentType {
	case content.TypeSocialCaption, content.TypeCommunityPost:
		return 10
	default:
		return req.MaxLength / 4
	}
}
