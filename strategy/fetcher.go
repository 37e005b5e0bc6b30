package strategy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// FetchConfig bounds page fetching.
type FetchConfig struct {
	// Timeout bounds a single fetch including body read.
	Timeout time.Duration `yaml:"timeout"`
	// UserAgent sent on every request.
	UserAgent string `yaml:"user_agent"`
	// MaxContentSize caps the response body in bytes.
	MaxContentSize int64 `yaml:"max_content_size"`
	// ScraperAPIKey, when set, routes fetches through api.scraperapi.com
	// with JavaScript rendering enabled. Sites that need it anyway usually
	// end up on the vision path, so this is optional.
	ScraperAPIKey string `yaml:"-"`
}

// DefaultFetchConfig returns the standard fetch bounds.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Timeout:        30 * time.Second,
		UserAgent:      "lunchpipe/1.0 (+https://github.com/istlunch/lunchpipe)",
		MaxContentSize: 2 * 1024 * 1024,
	}
}

const scraperAPIEndpoint = "https://api.scraperapi.com/"

// Fetcher retrieves restaurant pages with timeouts and size limits.
type Fetcher struct {
	client         *http.Client
	userAgent      string
	maxContentSize int64
	scraperAPIKey  string
}

// NewFetcher creates a page fetcher.
func NewFetcher(cfg FetchConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultFetchConfig().Timeout
	}
	maxSize := cfg.MaxContentSize
	if maxSize == 0 {
		maxSize = DefaultFetchConfig().MaxContentSize
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		userAgent:      cfg.UserAgent,
		maxContentSize: maxSize,
		scraperAPIKey:  cfg.ScraperAPIKey,
	}
}

// Fetch retrieves the page at urlStr and returns its body.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) ([]byte, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	target := urlStr
	if f.scraperAPIKey != "" {
		target = proxyURL(f.scraperAPIKey, urlStr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "sv-SE,sv;q=0.8,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxContentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxContentSize {
		return nil, fmt.Errorf("content too large (exceeds %d bytes)", f.maxContentSize)
	}

	return body, nil
}

// proxyURL wraps a target URL in a ScraperAPI request with JS rendering and
// a Swedish exit node.
func proxyURL(apiKey, target string) string {
	q := url.Values{}
	q.Set("api_key", apiKey)
	q.Set("url", target)
	q.Set("render", "true")
	q.Set("country_code", "se")
	return scraperAPIEndpoint + "?" + q.Encode()
}
