// Package strategy implements the two menu extraction strategies behind a
// single attempt contract: Traditional (fetch HTML, reduce to markdown, ask
// the text model) and Vision (screenshot the site, ask the vision model).
// The router escalates between them without knowing their internals.
package strategy

import (
	"context"

	"github.com/istlunch/lunchpipe/menu"
	"github.com/istlunch/lunchpipe/registry"
)

// Kind identifies a strategy variant.
type Kind string

const (
	KindTraditional Kind = "traditional"
	KindVision      Kind = "vision"
)

// Result is the outcome of one strategy attempt. Either Items is non-empty,
// or Failure names why nothing usable was produced. A strategy returning an
// error instead means something unexpected broke; structured "no menu
// found" outcomes always go through Failure.
type Result struct {
	Items   []menu.RawItem
	Failure string
}

// Succeeded reports whether the attempt produced any items.
func (r *Result) Succeeded() bool {
	return r != nil && len(r.Items) > 0
}

// Strategy is the uniform extraction contract. Implementations must be safe
// for concurrent use: the router runs one shared instance across its worker
// pool.
type Strategy interface {
	// Kind identifies the strategy variant.
	Kind() Kind

	// Attempt tries to extract raw menu items for the restaurant. The
	// context bounds all fetching, navigation and model calls.
	Attempt(ctx context.Context, r registry.Restaurant) (*Result, error)
}

// Extractor converts unstructured content into raw menu items. Satisfied by
// llm.Client; strategies never construct prompts or parse model output
// themselves.
type Extractor interface {
	ExtractFromMarkdown(ctx context.Context, restaurantName, markdown string) ([]menu.RawItem, error)
	ExtractFromScreenshot(ctx context.Context, restaurantName string, png []byte) ([]menu.RawItem, error)
}
