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

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaAdapter talks to a local Ollama instance.
type OllamaAdapter struct {
	id      string
	model   string
	baseURL string
	client  *http.Client
}

// NewOllamaAdapter creates a new local model adapter.
func NewOllamaAdapter(id, model, baseURL string) *OllamaAdapter {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OllamaAdapter{
		id:      id,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// ID returns the configured provider identifier.
func (o *OllamaAdapter) ID() string { return o.id }

// Generate sends a prompt to Ollama and returns the normalized response.
func (o *OllamaAdapter) Generate(ctx context.Context, prompt string, params Params) (*Response, error) {
	body := map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream": false,
		"options": map[string]any{
			"num_predict": params.MaxTokens,
			"temperature": params.Temperature,
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Provider: o.id, Kind: KindInvalidResponse, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Provider: o.id, Kind: KindInvalidResponse, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

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
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		EvalCount       int `json:"eval_count"`
		PromptEvalCount int `json:"prompt_eval_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &Error{Provider: o.id, Kind: KindInvalidResponse, Err: fmt.Errorf("decoding response: %w", err)}
	}

	if result.Message.Content == "" {
		return nil, &Error{Provider: o.id, Kind: KindInvalidResponse, Err: fmt.Errorf("empty message in response")}
	}

	return &Response{
		Text:       result.Message.Content,
		TokensUsed: result.EvalCount + result.PromptEvalCount,
	}, nil
}
