package orchestrate

import (
	"fmt"
	"strings"

	"github.com/verdantlabs/contentforge/internal/content"
)

// Per-type writing instructions. Each template receives topic, audience,
// brand voice, and word budget through buildPrompt.
var typeInstructions = map[content.ContentType]string{
	content.TypeArticle: `Write an in-depth article in markdown. Open with a short hook, use at least two
"##" section headings, and close with a practical takeaway.`,
	content.TypeSocialCaption: `Write a short social media caption. One or two sentences, no headings, no
hashtag walls. It should make someone stop scrolling.`,
	content.TypeHowToGuide: `Write a step-by-step how-to guide in markdown. Use "##" headings for the
materials, the numbered steps, and a troubleshooting section.`,
	content.TypeProductReview: `Write an honest product review in markdown with "##" sections for what it does
well, where it falls short, and who should buy it. No affiliate language.`,
	content.TypeSEOPost: `Write a search-optimized blog post in markdown. Use "##" headings that a reader
would actually search for, and work the keywords in naturally.`,
	content.TypeCommunityPost: `Write a conversational community forum post. Warm, first-person, ends with a
question that invites replies. No headings needed.`,
	content.TypeDigest: `Write a digest in markdown that rounds up the topic into short themed sections
under "##" headings, each a paragraph at most.`,
	content.TypeInterview: `Write an interview-style piece in markdown with "##" headings framing each
question, followed by a flowing conversational answer.`,
}

const promptFrame = `You are a content writer for a gardening publication.

%s

Topic: %s
Audience: %s readers — match the depth and vocabulary to that level.
Brand voice: %s
Length: stay under %d words.
%s
Respond with ONLY the finished content in markdown. No preamble, no notes.`

const keywordBlock = `Keywords to work in naturally (never stuffed): %s.
`

const optimizeBlock = `Optimize for search: phrase headings the way people search, answer the likely
question early, and keep paragraphs scannable.
`

// buildPrompt assembles the provider prompt for a request.
func buildPrompt(req *content.Request) string {
	instructions := typeInstructions[req.ContentType]

	voice := req.BrandVoice
	if voice == "" {
		voice = "clear and practical"
	}

	var extras string
	if len(req.SEOKeywords) > 0 {
		extras += fmt.Sprintf(keywordBlock, strings.Join(req.SEOKeywords, ", "))
	}
	if req.Optimize {
		extras += optimizeBlock
	}

	return fmt.Sprintf(promptFrame, instructions, req.Topic, req.Audience, voice, req.MaxLength, extras)
}
