package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istlunch/lunchpipe/menu"
	"github.com/istlunch/lunchpipe/registry"
)

type fakeBrowser struct {
	png  []byte
	err  error
	urls []string
}

func (f *fakeBrowser) CaptureMenu(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.png, f.err
}

type fakeVisionExtractor struct {
	items []menu.RawItem
	err   error
	calls int
}

func (f *fakeVisionExtractor) ExtractFromMarkdown(context.Context, string, string) ([]menu.RawItem, error) {
	return nil, errors.New("not used in vision tests")
}

func (f *fakeVisionExtractor) ExtractFromScreenshot(context.Context, string, []byte) ([]menu.RawItem, error) {
	f.calls++
	return f.items, f.err
}

func TestVisionSuccess(t *testing.T) {
	browser := &fakeBrowser{png: []byte("fake-png")}
	extractor := &fakeVisionExtractor{items: []menu.RawItem{
		{Name: "Wok med kyckling", PriceText: "139"},
	}}
	vision := NewVision(browser, extractor, nil)

	result, err := vision.Attempt(context.Background(), registry.Restaurant{
		ID: "chopchop", Name: "ChopChop", Website: "https://chopchop.se",
	})

	require.NoError(t, err)
	require.True(t, result.Succeeded())
	assert.Equal(t, []string{"https://chopchop.se"}, browser.urls)
	assert.Equal(t, 1, extractor.calls)
}

func TestVisionCaptureFailureIsStructured(t *testing.T) {
	browser := &fakeBrowser{err: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	extractor := &fakeVisionExtractor{}
	vision := NewVision(browser, extractor, nil)

	result, err := vision.Attempt(context.Background(), registry.Restaurant{
		ID: "gone", Name: "Gone", Website: "https://gone.example",
	})

	require.NoError(t, err, "capture failure is a structured failure, not an error")
	assert.False(t, result.Succeeded())
	assert.Contains(t, result.Failure, "screenshot capture failed")
	assert.Zero(t, extractor.calls)
}

func TestVisionZeroItemsIsFailure(t *testing.T) {
	browser := &fakeBrowser{png: []byte("fake-png")}
	extractor := &fakeVisionExtractor{}
	vision := NewVision(browser, extractor, nil)

	result, err := vision.Attempt(context.Background(), registry.Restaurant{
		ID: "empty", Name: "Empty", Website: "https://empty.example",
	})

	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.Equal(t, "no items visible in screenshot", result.Failure)
}

func TestVisionNoWebsite(t *testing.T) {
	vision := NewVision(&fakeBrowser{}, &fakeVisionExtractor{}, nil)

	result, err := vision.Attempt(context.Background(), registry.Restaurant{ID: "x", Name: "X"})

	require.NoError(t, err)
	assert.Equal(t, "no website", result.Failure)
}
