// Package llm is the OpenAI-compatible chat-completions boundary. One POST
// per completion, bearer auth, no streaming. Rate limiting surfaces as
// neurorouter.ErrRateLimited so callers can defer work instead of hammering
// the provider.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/neurorouter"
)

// Config holds provider connection parameters.
type Config struct {
	APIURL    string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Options are per-request knobs.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Completion is one model response with its token accounting.
type Completion struct {
	Content    string
	TokensUsed int
}

// Client produces completions. The engine depends on this interface; tests
// substitute canned implementations.
type Client interface {
	Complete(ctx context.Context, system, user string, opts Options) (Completion, error)
}

// HTTPClient talks to an OpenAI-compatible chat-completions endpoint.
type HTTPClient struct {
	cfg Config
	hc  *http.Client
}

// New creates a client with config defaults applied.
func New(cfg Config) *HTTPClient {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &HTTPClient{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Complete sends one chat completion request and returns the raw content.
func (c *HTTPClient) Complete(ctx context.Context, system, user string, opts Options) (Completion, error) {
	maxTokens := c.cfg.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	messages := []map[string]string{
		{"role": "system", "content": system},
		{"role": "user", "content": user},
	}

	body, _ := json.Marshal(map[string]interface{}{
		"model":       c.cfg.Model,
		"messages":    messages,
		"max_tokens":  maxTokens,
		"temperature": opts.Temperature,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("create request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("completion request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return Completion{}, fmt.Errorf("completion HTTP 429: %w", neurorouter.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return Completion{}, fmt.Errorf("completion HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
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
	if err := json.Unmarshal(respBody, &result); err != nil || len(result.Choices) == 0 {
		return Completion{}, fmt.Errorf("empty completion response")
	}

	return Completion{
		Content:    strings.TrimSpace(result.Choices[0].Message.Content),
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}

// CleanJSON strips markdown fences and surrounding whitespace from a model
// response that should contain only JSON.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
