package strategy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istlunch/lunchpipe/menu"
	"github.com/istlunch/lunchpipe/registry"
)

// fakeExtractor returns canned items per markdown substring and records
// every call.
type fakeExtractor struct {
	mu       sync.Mutex
	calls    []string
	itemsFor func(markdown string) []menu.RawItem
	err      error
}

func (f *fakeExtractor) ExtractFromMarkdown(_ context.Context, _ string, markdown string) ([]menu.RawItem, error) {
	f.mu.Lock()
	f.calls = append(f.calls, markdown)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.itemsFor == nil {
		return nil, nil
	}
	return f.itemsFor(markdown), nil
}

func (f *fakeExtractor) ExtractFromScreenshot(_ context.Context, _ string, _ []byte) ([]menu.RawItem, error) {
	return nil, fmt.Errorf("not used in traditional tests")
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// menuPage wraps text in enough HTML filler to pass the thin-page check.
func menuPage(text string) string {
	return "<html><body><main><h1>Dagens lunch</h1><p>" + text + " " +
		strings.Repeat("Vi serverar husmanskost varje vardag mellan 11 och 14. ", 10) +
		"</p></main></body></html>"
}

func newTestTraditional(extractor Extractor) *Traditional {
	return NewTraditional(
		NewFetcher(DefaultFetchConfig()),
		extractor,
		NewOriginLimiter(0), // no politeness delay in tests
		5*time.Second,
		nil,
	)
}

func TestTraditionalStopsAtFirstURLWithItems(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		fmt.Fprint(w, menuPage("Köttbullar med potatismos 125 kr"))
	}))
	defer srv.Close()

	extractor := &fakeExtractor{itemsFor: func(string) []menu.RawItem {
		return []menu.RawItem{{Name: "Köttbullar", PriceText: "125"}}
	}}
	trad := newTestTraditional(extractor)

	result, err := trad.Attempt(context.Background(), registry.Restaurant{
		ID: "tre-broder", Name: "Tre Bröder", Website: srv.URL,
	})

	require.NoError(t, err)
	require.True(t, result.Succeeded())
	assert.Equal(t, []string{"/"}, paths, "first variant succeeded, no more fetches")
	assert.Equal(t, 1, extractor.callCount())
}

func TestTraditionalTriesAllVariantsBeforeFailing(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		fmt.Fprint(w, menuPage("Välkommen till vår restaurang"))
	}))
	defer srv.Close()

	extractor := &fakeExtractor{} // never finds items
	trad := newTestTraditional(extractor)

	result, err := trad.Attempt(context.Background(), registry.Restaurant{
		ID: "parma", Name: "Parma", Website: srv.URL,
	})

	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.NotEmpty(t, result.Failure)
	assert.Equal(t, []string{"/", "/meny", "/lunch", "/dagens-lunch"}, paths)
}

func TestTraditionalSkipsLaterVariantsOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/lunch" {
			fmt.Fprint(w, menuPage("Dagens lunch: Lax med dillsås 149 kr"))
			return
		}
		fmt.Fprint(w, menuPage("Om oss och vår historia"))
	}))
	defer srv.Close()

	extractor := &fakeExtractor{itemsFor: func(markdown string) []menu.RawItem {
		if strings.Contains(markdown, "Lax med dillsås") {
			return []menu.RawItem{{Name: "Lax med dillsås", PriceText: "149"}}
		}
		return nil
	}}
	trad := newTestTraditional(extractor)

	result, err := trad.Attempt(context.Background(), registry.Restaurant{
		ID: "fisk", Name: "Fisk & Co", Website: srv.URL,
	})

	require.NoError(t, err)
	require.True(t, result.Succeeded())
	assert.Equal(t, "Lax med dillsås", result.Items[0].Name)
	// Base page and /meny were tried and rejected, /lunch succeeded,
	// /dagens-lunch never fetched.
	assert.Equal(t, 3, extractor.callCount())
}

func TestTraditionalNoWebsite(t *testing.T) {
	trad := newTestTraditional(&fakeExtractor{})

	result, err := trad.Attempt(context.Background(), registry.Restaurant{ID: "x", Name: "X"})

	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.Equal(t, "no website", result.Failure)
}

func TestTraditionalSkipsThinPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><div id=\"app\"></div></body></html>")
	}))
	defer srv.Close()

	extractor := &fakeExtractor{}
	trad := newTestTraditional(extractor)

	result, err := trad.Attempt(context.Background(), registry.Restaurant{
		ID: "spa", Name: "SPA Site", Website: srv.URL,
	})

	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.Zero(t, extractor.callCount(), "JavaScript shells must not reach the model")
}

func TestOriginLimiterSpacesRequests(t *testing.T) {
	limiter := NewOriginLimiter(0.05)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "https://example.com/a"))
	require.NoError(t, limiter.Wait(ctx, "https://example.com/b"))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond, "same-origin requests must be spaced")

	// A different origin does not wait behind example.com.
	start = time.Now()
	require.NoError(t, limiter.Wait(ctx, "https://other.se/"))
	assert.Less(t, time.Since(start), 30*time.Millisecond)
}
