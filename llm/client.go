// Package llm converts unstructured restaurant content into raw menu items
// using an OpenAI-compatible chat completions endpoint. The rest of the
// pipeline only sees item lists or failures; prompts and response parsing
// stay in here.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/istlunch/lunchpipe/menu"
)

// maxResponseSize caps the completion body read to guard against a
// misbehaving endpoint.
const maxResponseSize = 10 * 1024 * 1024

// Config holds the endpoint and model selection for menu extraction.
type Config struct {
	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `yaml:"base_url"`
	// TextModel extracts items from markdown page content.
	TextModel string `yaml:"text_model"`
	// VisionModel extracts items from screenshots.
	VisionModel string `yaml:"vision_model"`
	// Temperature for both models; menu extraction wants near-deterministic.
	Temperature float64 `yaml:"temperature"`
	// MaxTokens limits the completion length. 0 uses the endpoint default.
	MaxTokens int `yaml:"max_tokens"`
	// Timeout bounds a single API call.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the extraction defaults: a cheap text model and a
// vision-capable model on the OpenAI API.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.openai.com/v1",
		TextModel:   "gpt-4o-mini",
		VisionModel: "gpt-4o",
		Temperature: 0.1,
		MaxTokens:   2000,
		Timeout:     60 * time.Second,
	}
}

// RetryConfig controls retry behavior for transient API failures.
type RetryConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// Client calls the extraction models.
type Client struct {
	cfg        Config
	apiKey     string
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(rc RetryConfig) Option {
	return func(cl *Client) { cl.retry = rc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

// NewClient creates a menu extraction client.
func NewClient(cfg Config, apiKey string, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}
	c := &Client{
		cfg:        cfg,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		retry:      DefaultRetryConfig(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chat completions request/response wire types.

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
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

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// ExtractFromMarkdown asks the text model for menu items found in
// markdown-reduced page content.
func (c *Client) ExtractFromMarkdown(ctx context.Context, restaurantName, markdown string) ([]menu.RawItem, error) {
	req := chatRequest{
		Model: c.cfg.TextModel,
		Messages: []chatMessage{
			{Role: "user", Content: buildTextPrompt(restaurantName, markdown)},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	return c.complete(ctx, req)
}

// ExtractFromScreenshot asks the vision model for menu items visible in a
// PNG screenshot.
func (c *Client) ExtractFromScreenshot(ctx context.Context, restaurantName string, png []byte) ([]menu.RawItem, error) {
	encoded := base64.StdEncoding.EncodeToString(png)
	req := chatRequest{
		Model: c.cfg.VisionModel,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: buildVisionPrompt(restaurantName)},
					{
						Type: "image_url",
						ImageURL: &imageURL{
							URL:    "data:image/png;base64," + encoded,
							Detail: "high",
						},
					},
				},
			},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	return c.complete(ctx, req)
}

// complete sends a chat request with retry on transient failures and
// parses the item array out of the completion.
func (c *Client) complete(ctx context.Context, req chatRequest) ([]menu.RawItem, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		items, err := c.doRequest(ctx, req)
		if err == nil {
			return items, nil
		}
		lastErr = err

		if IsFatal(err) {
			return nil, err
		}
		if attempt < c.retry.MaxAttempts {
			backoff := c.backoff(attempt)
			c.logger.Debug("extraction request failed, retrying",
				"model", req.Model,
				"attempt", attempt,
				"backoff", backoff,
				"error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("extraction failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

// backoff computes exponential backoff with jitter to avoid synchronized
// retries across workers.
func (c *Client) backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.retry.BackoffMultiplier
	}
	backoff := time.Duration(float64(c.retry.BackoffBase) * multiplier)
	if backoff > c.retry.MaxBackoff {
		backoff = c.retry.MaxBackoff
	}
	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}

func (c *Client) doRequest(ctx context.Context, req chatRequest) ([]menu.RawItem, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("marshal request: %w", err))
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("request: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewTransientError(fmt.Errorf("parse completion: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return nil, NewTransientError(fmt.Errorf("completion has no choices"))
	}

	return parseItems(parsed.Choices[0].Message.Content)
}

// parseItems decodes the item array from completion text. A completion with
// no parseable array is treated as zero items found, not as an error: the
// model answering "no menu here" in prose is a legitimate outcome.
func parseItems(content string) ([]menu.RawItem, error) {
	raw := ExtractJSONArray(content)
	if raw == "" {
		return nil, nil
	}

	var items []menu.RawItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, nil
	}

	kept := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.Name) != "" {
			kept = append(kept, it)
		}
	}
	return kept, nil
}

// classifyHTTPError maps API status codes onto transient or fatal errors.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}
	err := fmt.Errorf("extraction API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case statusCode >= 500:
		return NewTransientError(err)
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return NewFatalError(err)
	case statusCode == http.StatusBadRequest:
		return NewFatalError(err)
	default:
		return NewFatalError(err)
	}
}
