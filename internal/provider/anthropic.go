package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
)

// AnthropicAdapter talks to the Anthropic messages API.
type AnthropicAdapter struct {
	id      string
	model   string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAnthropicAdapter creates a new Anthropic adapter.
func NewAnthropicAdapter(id, model, baseURL, apiKey string) *AnthropicAdapter {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &AnthropicAdapter{
		id:      id,
		model:   model,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// ID returns the configured provider identifier.
func (a *AnthropicAdapter) ID() string { return a.id }

// Generate sends a prompt to Anthropic and returns the normalized response.
func (a *AnthropicAdapter) Generate(ctx context.Context, prompt string, params Params) (*Response, error) {
	if a.apiKey == "" {
		return nil, &Error{Provider: a.id, Kind: KindAuthFailure, Err: fmt.Errorf("API key not configured")}
	}

	body := map[string]any{
		"model": a.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  params.MaxTokens,
		"temperature": params.Temperature,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Provider: a.id, Kind: KindInvalidResponse, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Provider: a.id, Kind: KindInvalidResponse, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, AsError(a.id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, statusError(a.id, resp, respBody)
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &Error{Provider: a.id, Kind: KindInvalidResponse, Err: fmt.Errorf("decoding response: %w", err)}
	}

	var text string
	for _, block := range result.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, &Error{Provider: a.id, Kind: KindInvalidResponse, Err: fmt.Errorf("no text content in response")}
	}

	return &Response{
		Text:       text,
		TokensUsed: result.Usage.InputTokens + result.Usage.OutputTokens,
	}, nil
}
