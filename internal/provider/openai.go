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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIAdapter talks to the OpenAI chat completions API.
type OpenAIAdapter struct {
	id      string
	model   string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(id, model, baseURL, apiKey string) *OpenAIAdapter {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIAdapter{
		id:      id,
		model:   model,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// ID returns the configured provider identifier.
func (o *OpenAIAdapter) ID() string { return o.id }

// Generate sends a prompt to OpenAI and returns the normalized response.
func (o *OpenAIAdapter) Generate(ctx context.Context, prompt string, params Params) (*Response, error) {
	if o.apiKey == "" {
		return nil, &Error{Provider: o.id, Kind: KindAuthFailure, Err: fmt.Errorf("API key not configured")}
	}

	body := map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  params.MaxTokens,
		"temperature": params.Temperature,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Provider: o.id, Kind: KindInvalidResponse, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Provider: o.id, Kind: KindInvalidResponse, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, AsError(o.id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, statusError(o.id, resp, respBody)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &Error{Provider: o.id, Kind: KindInvalidResponse, Err: fmt.Errorf("decoding response: %w", err)}
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return nil, &Error{Provider: o.id, Kind: KindInvalidResponse, Err: fmt.Errorf("no choices in response")}
	}

	return &Response{
		Text:       result.Choices[0].Message.Content,
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}
