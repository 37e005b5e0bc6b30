package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/istlunch/lunchpipe/registry"
)

// Vision screenshots the rendered restaurant site with a headless browser
// and asks the vision model to read the menu. One navigation and capture
// cycle per restaurant per run; it is the fallback, so there is no retry
// behind it.
type Vision struct {
	browser   Browser
	extractor Extractor
	logger    *slog.Logger
}

// NewVision creates the expensive extraction strategy.
func NewVision(browser Browser, extractor Extractor, logger *slog.Logger) *Vision {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vision{
		browser:   browser,
		extractor: extractor,
		logger:    logger,
	}
}

// Kind identifies the strategy variant.
func (v *Vision) Kind() Kind { return KindVision }

// Attempt captures the site and extracts items from the screenshot.
func (v *Vision) Attempt(ctx context.Context, r registry.Restaurant) (*Result, error) {
	if r.Website == "" {
		return &Result{Failure: "no website"}, nil
	}

	screenshot, err := v.browser.CaptureMenu(ctx, r.Website)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &Result{Failure: fmt.Sprintf("screenshot capture failed: %v", err)}, nil
	}

	v.logger.Debug("captured screenshot",
		"restaurant_id", r.ID,
		"bytes", len(screenshot))

	items, err := v.extractor.ExtractFromScreenshot(ctx, r.Name, screenshot)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Treated the same as zero items: the page rendered but no menu
		// could be read out of it.
		return &Result{Failure: fmt.Sprintf("vision extraction failed: %v", err)}, nil
	}
	if len(items) == 0 {
		return &Result{Failure: "no items visible in screenshot"}, nil
	}

	return &Result{Items: items}, nil
}
