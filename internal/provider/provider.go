package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/verdantlabs/contentforge/internal/config"
)

// Params carries per-call generation parameters.
type Params struct {
	MaxTokens   int
	Temperature float64
}

// Response is the normalized result of one generation call.
type Response struct {
	Text       string
	TokensUsed int
}

// Adapter is the interface every generation backend implements. Adapters hold
// no content state; anything that spans requests lives in the router profile.
type Adapter interface {
	ID() string
	Generate(ctx context.Context, prompt string, params Params) (*Response, error)
}

// FromConfig builds the adapter set declared in config, keyed by provider ID.
// Every adapter is wrapped with its own token-bucket throttle.
func FromConfig(providers []config.Provider) (map[string]Adapter, error) {
	adapters := make(map[string]Adapter, len(providers))
	for _, pc := range providers {
		if _, dup := adapters[pc.ID]; dup {
			return nil, fmt.Errorf("duplicate provider id: %s", pc.ID)
		}

		var inner Adapter
		switch pc.Kind {
		case "openai":
			inner = NewOpenAIAdapter(pc.ID, pc.Model, pc.BaseURL, os.Getenv(pc.APIKeyEnv))
		case "anthropic":
			inner = NewAnthropicAdapter(pc.ID, pc.Model, pc.BaseURL, os.Getenv(pc.APIKeyEnv))
		case "ollama":
			inner = NewOllamaAdapter(pc.ID, pc.Model, pc.BaseURL)
		default:
			return nil, fmt.Errorf("provider %s: unknown kind %q", pc.ID, pc.Kind)
		}

		adapters[pc.ID] = NewThrottled(inner, pc.RPM)
	}
	return adapters, nil
}
