package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser captures a rendered screenshot of a restaurant site. The vision
// strategy is tested with a fake; ChromeBrowser is the real thing.
type Browser interface {
	// CaptureMenu navigates to url, tries to surface the menu, and returns
	// a full-page PNG screenshot.
	CaptureMenu(ctx context.Context, url string) ([]byte, error)
}

// menuLinkTexts are link labels worth clicking before the screenshot, in
// preference order.
var menuLinkTexts = []string{"Meny", "Lunch", "Dagens lunch", "Menu", "Mat"}

// ChromeBrowser drives headless Chrome for menu capture.
type ChromeBrowser struct {
	settleDelay time.Duration
}

// NewChromeBrowser creates a headless-Chrome menu capturer.
func NewChromeBrowser() *ChromeBrowser {
	return &ChromeBrowser{settleDelay: 2 * time.Second}
}

// CaptureMenu navigates to the site, clicks a menu-labelled link when one
// exists, scrolls to trigger lazy content and captures a full-page PNG.
func (b *ChromeBrowser) CaptureMenu(ctx context.Context, url string) ([]byte, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("lang", "sv-SE"),
	)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.settleDelay),
	); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	// A menu link is clicked best-effort; the landing page often already
	// shows the lunch board.
	for _, label := range menuLinkTexts {
		clickCtx, cancelClick := context.WithTimeout(browserCtx, 3*time.Second)
		err := chromedp.Run(clickCtx,
			chromedp.Click(menuLinkSelector(label), chromedp.NodeVisible),
			chromedp.Sleep(time.Second),
		)
		cancelClick()
		if err == nil {
			break
		}
	}

	var screenshot []byte
	if err := chromedp.Run(browserCtx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
		chromedp.Sleep(time.Second),
		chromedp.FullScreenshot(&screenshot, 90),
	); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	return screenshot, nil
}

// menuLinkSelector builds a case-insensitive XPath match on link text.
func menuLinkSelector(label string) string {
	lowered := strings.ToLower(label)
	return fmt.Sprintf(
		`//a[contains(translate(normalize-space(.), 'ABCDEFGHIJKLMNOPQRSTUVWXYZÅÄÖ', 'abcdefghijklmnopqrstuvwxyzåäö'), %q)]`,
		lowered)
}
