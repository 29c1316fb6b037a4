package config

import (
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse([]byte(""))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if cfg.Routing.Strategy != "balanced" {
		t.Errorf("expected balanced strategy, got %q", cfg.Routing.Strategy)
	}
	if cfg.Validation.Threshold != 0.7 {
		t.Errorf("expected threshold 0.7, got %v", cfg.Validation.Threshold)
	}
	if cfg.Validation.Weights.Fact != 0.35 {
		t.Errorf("expected fact weight 0.35, got %v", cfg.Validation.Weights.Fact)
	}
	if cfg.Routing.AttemptTimeoutSeconds != 30 {
		t.Errorf("expected 30s attempt timeout, got %d", cfg.Routing.AttemptTimeoutSeconds)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseProviderDefaults(t *testing.T) {
	data := []byte(`
providers:
  - id: openai
    kind: openai
    model: gpt-4o-mini
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(cfg.Providers) != 1 {
		t.Fatalf("expected 1 provider, got %d", len(cfg.Providers))
	}
	p := cfg.Providers[0]
	if p.RPM != 60 {
		t.Errorf("expected default rpm 60, got %d", p.RPM)
	}
	if p.MaxInFlight != 4 {
		t.Errorf("expected default max_in_flight 4, got %d", p.MaxInFlight)
	}
}

func TestParseProviderWithoutID(t *testing.T) {
	data := []byte(`
providers:
  - kind: openai
`)
	if _, err := parse(data); err == nil {
		t.Error("expected error for provider without id")
	}
}

func TestThresholdTenPointScaleConversion(t *testing.T) {
	data := []byte(`
validation:
  threshold: 8
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Validation.Threshold != 0.8 {
		t.Errorf("expected 10-point threshold folded to 0.8, got %v", cfg.Validation.Threshold)
	}
}

func TestDefaultConfigParses(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("embedded default config failed to parse: %v", err)
	}
	if len(cfg.Providers) == 0 {
		t.Error("expected default config to declare providers")
	}
	for _, p := range cfg.Providers {
		if p.Kind == "" {
			t.Errorf("provider %s has no kind", p.ID)
		}
	}
}
