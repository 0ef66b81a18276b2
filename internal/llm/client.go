// Package llm talks to a language model over HTTP. It supports the Anthropic
// Messages API and Ollama's OpenAI-compatible chat endpoint, and builds the
// domain-specific calls (semantic relationship judging, table selection, SQL
// generation) on one shared completion primitive. All callers treat model
// output as untrusted text to be parsed defensively.
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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Provider names accepted in configuration.
const (
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

const (
	defaultMaxTokens = 1024
	// Low temperature keeps structured output (JSON, SQL) stable.
	defaultTemperature = 0.1
	defaultTimeout     = 120 * time.Second
)

// Config holds LLM connection parameters.
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string // Anthropic only
	Model    string
	Timeout  time.Duration
}

// Client is an HTTP client for a single configured provider.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a client for the configured provider.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Configured reports whether the client has enough settings to make calls.
func (c *Client) Configured() bool {
	switch c.cfg.Provider {
	case ProviderAnthropic:
		return c.cfg.APIKey != "" && c.cfg.Model != ""
	case ProviderOllama:
		return c.cfg.BaseURL != "" && c.cfg.Model != ""
	default:
		return false
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends a single-turn prompt and returns the raw text response.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	switch c.cfg.Provider {
	case ProviderAnthropic:
		return c.completeAnthropic(ctx, prompt)
	case ProviderOllama:
		return c.completeOllama(ctx, prompt)
	default:
		return "", fmt.Errorf("unsupported llm provider: %q", c.cfg.Provider)
	}
}

func (c *Client) completeAnthropic(ctx context.Context, prompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:       c.cfg.Model,
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	}

	body, err := c.post(ctx, c.baseURL("https://api.anthropic.com/v1")+"/messages", reqBody, func(req *http.Request) {
		req.Header.Set("x-api-key", c.cfg.APIKey)
		req.Header.Set("anthropic-version", "2023-06-01")
	})
	if err != nil {
		return "", err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode anthropic response: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("empty anthropic response")
	}
	return strings.TrimSpace(resp.Content[0].Text), nil
}

func (c *Client) completeOllama(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaRequest{
		Model:    c.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options:  ollamaOptions{Temperature: defaultTemperature},
	}

	body, err := c.post(ctx, c.baseURL("http://localhost:11434")+"/v1/chat/completions", reqBody, nil)
	if err != nil {
		return "", err
	}

	var resp ollamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty ollama response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) baseURL(fallback string) string {
	if c.cfg.BaseURL != "" {
		return strings.TrimRight(c.cfg.BaseURL, "/")
	}
	return fallback
}

func (c *Client) post(ctx context.Context, url string, payload any, decorate func(*http.Request)) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read llm response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm returned status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options,omitempty"`
}

type ollamaResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}
