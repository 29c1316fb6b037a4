package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Providers  []Provider `yaml:"providers"`
	Routing    Routing    `yaml:"routing"`
	Validation Validation `yaml:"validation"`
	Brand      Brand      `yaml:"brand"`
	Defaults   Defaults   `yaml:"defaults"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

// Provider configures one generation backend.
type Provider struct {
	ID          string  `yaml:"id"`
	Kind        string  `yaml:"kind"` // openai, anthropic, ollama
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	RPM         int     `yaml:"rpm"`
	MaxInFlight int     `yaml:"max_in_flight"`
	CostPer1K   float64 `yaml:"cost_per_1k_tokens"`
	Premium     bool    `yaml:"premium"`
}

type Routing struct {
	Strategy              string `yaml:"strategy"`
	QualityRetries        int    `yaml:"quality_retries"`
	AttemptTimeoutSeconds int    `yaml:"attempt_timeout_seconds"`
	FailureThreshold      int    `yaml:"failure_threshold"`
	CooldownSeconds       int    `yaml:"cooldown_seconds"`
}

type Validation struct {
	Threshold float64 `yaml:"threshold"`
	Weights   Weights `yaml:"weights"`
}

type Weights struct {
	Fact        float64 `yaml:"fact"`
	Brand       float64 `yaml:"brand"`
	Readability float64 `yaml:"readability"`
	SEO         float64 `yaml:"seo"`
}

type Brand struct {
	Voice          string   `yaml:"voice"`
	BannedTerms    []string `yaml:"banned_terms"`
	PreferredTerms []string `yaml:"preferred_terms"`
}

type Defaults struct {
	MaxLength int `yaml:"max_length"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for contentforge.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "contentforge")
}

// DataDir returns the XDG data directory for contentforge.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "contentforge")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/contentforge/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'contentforge init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Routing: Routing{
			Strategy:              "balanced",
			QualityRetries:        1,
			AttemptTimeoutSeconds: 30,
			FailureThreshold:      3,
			CooldownSeconds:       60,
		},
		Validation: Validation{
			Threshold: 0.7,
			Weights: Weights{
				Fact:        0.35,
				Brand:       0.25,
				Readability: 0.20,
				SEO:         0.20,
			},
		},
		Defaults: Defaults{MaxLength: 1200},
		Server:   Server{Port: 8000},
		Logging:  Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Legacy configs expressed the quality threshold on a 10-point scale.
	// Internally everything is 0..1, so fold the old scale down on load.
	if cfg.Validation.Threshold > 1 {
		cfg.Validation.Threshold /= 10
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.ID == "" {
			return nil, fmt.Errorf("provider %d: id is required", i)
		}
		if p.RPM <= 0 {
			p.RPM = 60
		}
		if p.MaxInFlight <= 0 {
			p.MaxInFlight = 4
		}
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
