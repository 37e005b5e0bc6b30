package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/istlunch/lunchpipe/menu"
	"github.com/istlunch/lunchpipe/registry"
)

// menuPaths are the URL suffixes tried in order against the restaurant
// website. Swedish restaurant sites overwhelmingly put their lunch menu on
// one of these.
var menuPaths = []string{"", "/meny", "/lunch", "/dagens-lunch"}

// minContentChars is the markdown length below which a page is considered
// empty (a JavaScript shell or a parked domain) and not worth a model call.
const minContentChars = 200

// Traditional fetches the restaurant website over plain HTTP, reduces it to
// markdown and asks the text model for menu items. Up to four URL variants
// are tried sequentially, stopping at the first that yields any items.
type Traditional struct {
	fetcher      *Fetcher
	converter    *Converter
	extractor    Extractor
	limiter      *OriginLimiter
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// NewTraditional creates the cheap extraction strategy.
func NewTraditional(fetcher *Fetcher, extractor Extractor, limiter *OriginLimiter, fetchTimeout time.Duration, logger *slog.Logger) *Traditional {
	if logger == nil {
		logger = slog.Default()
	}
	if fetchTimeout == 0 {
		fetchTimeout = DefaultFetchConfig().Timeout
	}
	return &Traditional{
		fetcher:      fetcher,
		converter:    NewConverter(),
		extractor:    extractor,
		limiter:      limiter,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// Kind identifies the strategy variant.
func (t *Traditional) Kind() Kind { return KindTraditional }

// Attempt tries each menu URL variant in order and returns the first
// non-empty item list. All-variant failure is reported as a single failure
// with the last error retained.
func (t *Traditional) Attempt(ctx context.Context, r registry.Restaurant) (*Result, error) {
	if r.Website == "" {
		return &Result{Failure: "no website"}, nil
	}

	base := strings.TrimSuffix(r.Website, "/")
	var lastErr error

	for _, path := range menuPaths {
		pageURL := base + path

		if err := t.limiter.Wait(ctx, pageURL); err != nil {
			return nil, fmt.Errorf("politeness wait: %w", err)
		}

		items, err := t.tryURL(ctx, r, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			t.logger.Debug("menu URL variant failed",
				"restaurant_id", r.ID,
				"url", pageURL,
				"error", err)
			lastErr = err
			continue
		}
		if len(items) > 0 {
			return &Result{Items: items}, nil
		}
		lastErr = fmt.Errorf("no items at %s", pageURL)
	}

	return &Result{Failure: fmt.Sprintf("no items from any menu URL: %v", lastErr)}, nil
}

// tryURL fetches one URL variant and runs extraction on its content.
func (t *Traditional) tryURL(ctx context.Context, r registry.Restaurant, pageURL string) ([]menu.RawItem, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, t.fetchTimeout)
	defer cancel()

	body, err := t.fetcher.Fetch(fetchCtx, pageURL)
	if err != nil {
		return nil, err
	}

	markdown, err := t.converter.Convert(body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	if len(markdown) < minContentChars {
		return nil, fmt.Errorf("page too thin (%d chars), likely JavaScript-rendered", len(markdown))
	}

	items, err := t.extractor.ExtractFromMarkdown(ctx, r.Name, markdown)
	if err != nil {
		// Model failures at this stage are indistinguishable from "no menu
		// on this page"; the next variant or the vision path may still work.
		return nil, fmt.Errorf("extract: %w", err)
	}
	return items, nil
}
