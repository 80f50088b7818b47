// Package openrouter is the outbound client for the remote
// chat-completion provider used for OCR and Markdown structuring.
//
// Both operations share one request shape: a model identifier, a list of
// role-tagged messages (multimodal messages carry an inline base64 data
// URL), temperature and a max-token budget. The response is read from
// choices[0].message.content; any non-2xx status or malformed JSON is a
// failure. OCR retries across an ordered list of candidate models;
// structuring falls back to a local, network-free formatting heuristic.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config configures a Client.
type Config struct {
	// Endpoint is the provider base URL (default: https://openrouter.ai/api/v1).
	Endpoint string
	// APIKey is the bearer token. Empty means no credential is
	// configured; OCR fails fast and structuring uses the local heuristic.
	APIKey string
	// Timeout is the overall deadline for one OCR attempt, covering all
	// fallback models (default: 5 minutes).
	Timeout time.Duration
	// MaxFileBytes rejects larger OCR inputs before any network call
	// (default: 30 MB).
	MaxFileBytes int64
	// Referer and Title are provider attribution headers.
	Referer string
	Title   string
	// Logger for per-model attempt logging.
	Logger *slog.Logger
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

func (c *Config) defaults() {
	if c.Endpoint == "" {
		c.Endpoint = "https://openrouter.ai/api/v1"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = 30 << 20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
}

// Client talks to the chat-completions endpoint.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg, logger: cfg.Logger}
}

// Usage is the token accounting block of a completion response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string, or []contentPart for multimodal
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// complete issues one chat-completion request and returns the first
// choice's content.
func (c *Client) complete(ctx context.Context, req chatRequest) (string, *Usage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, fmt.Errorf("openrouter: marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.Endpoint, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		httpReq.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
		return "", nil, &ProviderError{Model: req.Model, Status: resp.StatusCode, Body: string(slurp)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", nil, &ProviderError{Model: req.Model, Status: resp.StatusCode, Body: "malformed JSON: " + err.Error()}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", nil, &ProviderError{Model: req.Model, Status: resp.StatusCode, Body: "empty completion"}
	}
	return parsed.Choices[0].Message.Content, &parsed.Usage, nil
}

// Ping issues a cheap models-listing request to verify the configured
// credential without spending tokens.
func (c *Client) Ping(ctx context.Context) error {
	url := strings.TrimRight(c.cfg.Endpoint, "/") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("openrouter: ping: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &ProviderError{Status: resp.StatusCode, Body: string(slurp)}
	}
	return nil
}
