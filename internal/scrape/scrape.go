// Package scrape retrieves best-effort structured profile data from public
// profile pages through a headless browser. The target is bot-defensive, so
// the contract is deliberately "best effort, never fail past this boundary":
// every call returns an ExternalProfile whose Status encodes what happened,
// and callers decide how much of the partial data to use.
package scrape

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathan/outreach-personalizer/internal/types"
)

// Client is the profile-fetching surface consumed by the job engine.
type Client interface {
	Fetch(ctx context.Context, url string) types.ExternalProfile
}

// Default timeouts. The page timeout bounds the whole browser round trip;
// the marker timeout bounds the wait for the primary content element.
const (
	DefaultPageTimeout   = 30 * time.Second
	DefaultMarkerTimeout = 10 * time.Second
)

// Options configures the fetcher.
type Options struct {
	PageTimeout   time.Duration
	MarkerTimeout time.Duration
	// RatePerSecond throttles outbound fetches across all workers. The
	// worker pool already bounds concurrency; this bounds sustained request
	// rate against the target's abuse defenses.
	RatePerSecond float64
	Verbose       bool
}

// DefaultOptions returns conservative defaults for an uncooperative target.
func DefaultOptions() *Options {
	return &Options{
		PageTimeout:   DefaultPageTimeout,
		MarkerTimeout: DefaultMarkerTimeout,
		RatePerSecond: 1,
	}
}

// Fetcher fetches profiles with a headless browser, one isolated browser
// context per call.
type Fetcher struct {
	opts    Options
	limiter *rate.Limiter

	// render is swapped out in tests; production uses the chromedp path.
	render func(ctx context.Context, url string, opts Options) (renderResult, error)
}

// NewFetcher creates a Fetcher. A nil opts uses DefaultOptions.
func NewFetcher(opts *Options) *Fetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = DefaultPageTimeout
	}
	if opts.MarkerTimeout <= 0 {
		opts.MarkerTimeout = DefaultMarkerTimeout
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}
	return &Fetcher{
		opts:    *opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		render:  browserRender,
	}
}

// Fetch retrieves a profile. It never returns a Go error: total navigation
// failure yields Status == FetchError, an expired deadline yields
// FetchTimeout with whatever fields were already extracted, and a detected
// bot wall yields FetchBlocked.
func (f *Fetcher) Fetch(ctx context.Context, url string) types.ExternalProfile {
	profile := types.ExternalProfile{SourceURL: url, Status: types.FetchError}

	if err := f.limiter.Wait(ctx); err != nil {
		profile.Status = types.FetchTimeout
		return profile
	}

	result, err := f.render(ctx, url, f.opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			profile.Status = types.FetchTimeout
		}
		if f.opts.Verbose {
			log.Printf("[SCRAPE] %s failed: %v", url, err)
		}
		// Partial HTML may still have been captured before the failure.
		if result.html != "" {
			extractInto(&profile, result.html)
		}
		return profile
	}

	extractInto(&profile, result.html)

	switch {
	case looksBlocked(result.html):
		profile.Status = types.FetchBlocked
	case result.markerSeen:
		profile.Status = types.FetchOK
	default:
		profile.Status = types.FetchPartial
	}

	if f.opts.Verbose {
		log.Printf("[SCRAPE] %s status=%s name=%q", url, profile.Status, profile.Name)
	}
	return profile
}
