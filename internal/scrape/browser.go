// Package scrape - browser.go drives the headless browser round trip.
package scrape

import (
	"context"

	"github.com/chromedp/chromedp"
)

// renderResult carries the rendered page plus whether the primary content
// marker appeared before its deadline.
type renderResult struct {
	html       string
	markerSeen bool
}

// primaryMarker is the selector whose presence means the profile content
// rendered. Profile pages put the person's name in the first h1.
const primaryMarker = "h1"

// browserRender loads url in an isolated headless browser context and
// returns the rendered HTML. Each call gets its own allocator so a wedged
// page cannot poison later fetches; all contexts are released on every exit
// path. Requires Chrome/Chromium on the host.
func browserRender(ctx context.Context, url string, opts Options) (renderResult, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, opts.PageTimeout)
	defer cancelTimeout()

	var result renderResult

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	); err != nil {
		return result, err
	}

	// Wait for the profile content marker, but only up to its own deadline;
	// a missing marker downgrades the result rather than failing it.
	markerCtx, cancelMarker := context.WithTimeout(browserCtx, opts.MarkerTimeout)
	if err := chromedp.Run(markerCtx, chromedp.WaitVisible(primaryMarker, chromedp.ByQuery)); err == nil {
		result.markerSeen = true
	}
	cancelMarker()

	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &result.html)); err != nil {
		return result, err
	}

	return result, nil
}
