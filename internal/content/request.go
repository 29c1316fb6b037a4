package content

import "fmt"

// ContentType identifies the kind of content to generate.
type ContentType string

const (
	TypeArticle       ContentType = "article"
	TypeSocialCaption ContentType = "social_caption"
	TypeHowToGuide    ContentType = "how_to_guide"
	TypeProductReview ContentType = "product_review"
	TypeSEOPost       ContentType = "seo_post"
	TypeCommunityPost ContentType = "community_post"
	TypeDigest        ContentType = "digest"
	TypeInterview     ContentType = "interview"
)

// Audience is the target reader level for a piece of content.
type Audience string

const (
	AudienceBeginner     Audience = "beginner"
	AudienceIntermediate Audience = "intermediate"
	AudienceAdvanced     Audience = "advanced"
)

// DefaultMaxLength is the word budget applied when a request leaves MaxLength unset.
const DefaultMaxLength = 1200

var contentTypes = map[ContentType]bool{
	TypeArticle:       true,
	TypeSocialCaption: true,
	TypeHowToGuide:    true,
	TypeProductReview: true,
	TypeSEOPost:       true,
	TypeCommunityPost: true,
	TypeDigest:        true,
	TypeInterview:     true,
}

var audiences = map[Audience]bool{
	AudienceBeginner:     true,
	AudienceIntermediate: true,
	AudienceAdvanced:     true,
}

// Request describes one piece of content to generate. It is built once by the
// caller and treated as read-only by every component downstream.
type Request struct {
	ContentType       ContentType `json:"content_type" yaml:"content_type"`
	Topic             string      `json:"topic" yaml:"topic"`
	Audience          Audience    `json:"target_audience" yaml:"target_audience"`
	SEOKeywords       []string    `json:"seo_keywords,omitempty" yaml:"seo_keywords"`
	BrandVoice        string      `json:"brand_voice,omitempty" yaml:"brand_voice"`
	MaxLength         int         `json:"max_length,omitempty" yaml:"max_length"`
	PreferredProvider string      `json:"preferred_provider,omitempty" yaml:"preferred_provider"`
	Optimize          bool        `json:"optimize,omitempty" yaml:"optimize"`
}

// Validate checks the request and fills defaults for unset optional fields.
func (r *Request) Validate() error {
	if r.Topic == "" {
		return fmt.Errorf("topic must not be empty")
	}
	if !contentTypes[r.ContentType] {
		return fmt.Errorf("unknown content type: %q", r.ContentType)
	}
	if r.Audience == "" {
		r.Audience = AudienceIntermediate
	}
	if !audiences[r.Audience] {
		return fmt.Errorf("unknown target audience: %q", r.Audience)
	}
	if r.MaxLength < 0 {
		return fmt.Errorf("max_length must be positive, got %d", r.MaxLength)
	}
	if r.MaxLength == 0 {
		r.MaxLength = DefaultMaxLength
	}
	return nil
}
