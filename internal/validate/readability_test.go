package validate

import (
	"context"
	"testing"

	"github.com/verdantlabs/contentforge/internal/content"
)

func TestReadabilitySimpleTextForBeginners(t *testing.T) {
	c := NewReadabilityCheck()
	req := &content.Request{Audience: content.AudienceBeginner}
	res := c.Run(context.Background(), "The cat sat. The dog ran. We dig the soil.", req)
	if res.Score != 1.0 {
		t.Errorf("expected score 1.0 for simple text, got %v", res.Score)
	}
}

func TestReadabilityDenseTextForBeginners(t *testing.T) {
	c := NewReadabilityCheck()
	req := &content.Request{Audience: content.AudienceBeginner}
	text := "Horticultural considerations necessitate systematically evaluating photosynthetic functionality characteristics."
	res := c.Run(context.Background(), text, req)
	if res.Score != 0 {
		t.Errorf("expected score 0 for dense text, got %v", res.Score)
	}
	if len(res.Issues) == 0 {
		t.Error("expected a readability issue")
	}
}

func TestReadabilityAdvancedAudienceTolerance(t *testing.T) {
	c := NewReadabilityCheck()
	// The same moderately complex text passes for advanced readers but is
	// penalized for beginners.
	text := "Companion planting improves soil structure. Rotating crops prevents nutrient depletion over consecutive seasons."

	adv := c.Run(context.Background(), text, &content.Request{Audience: content.AudienceAdvanced})
	beg := c.Run(context.Background(), text, &content.Request{Audience: content.AudienceBeginner})
	if adv.Score <= beg.Score {
		t.Errorf("advanced score %v should exceed beginner score %v", adv.Score, beg.Score)
	}
}

func TestReadabilityEmptyText(t *testing.T) {
	c := NewReadabilityCheck()
	res := c.Run(context.Background(), "   ", &content.Request{Audience: content.AudienceIntermediate})
	if res.Score != 0 {
		t.Errorf("expected score 0 for empty text, got %v", res.Score)
	}
}

func TestCountSyllables(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"cat", 1},
		{"garden", 2},
		{"tomato", 3},
		{"prune", 1},
		{"rhythm", 1},
	}
	for _, tt := range tests {
		if got := countSyllables(tt.word); got != tt.want {
			t.Errorf("countSyllables(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}
}
