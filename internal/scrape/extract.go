// Package scrape - extract.go pulls profile fields out of rendered HTML.
// Selector fragility is isolated here: every extraction is optional, and a
// selector that stops matching simply leaves its field empty.
package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/outreach-personalizer/internal/types"
)

// Field selectors for public profile pages, with fallbacks for the logged-out
// rendering.
var selectors = struct {
	name     []string
	headline []string
	location []string
	about    []string
}{
	name:     []string{"h1"},
	headline: []string{".text-body-medium.break-words", ".top-card-layout__headline", "h2"},
	location: []string{".text-body-small.inline.t-black--light.break-words", ".top-card-layout__first-subline .top-card__subline-item"},
	about:    []string{".core-section-container__content .break-words", "section.summary p"},
}

// blockedMarkers are phrases that indicate the target served a bot wall or
// auth wall instead of the profile.
var blockedMarkers = []string{
	"authwall",
	"sign in to continue",
	"join now to view",
	"captcha",
	"just a moment",
	"unusual activity from your network",
}

// extractInto populates profile fields from rendered HTML. Individual
// extraction failures are tolerated; only an unparseable document leaves the
// profile untouched.
func extractInto(profile *types.ExternalProfile, html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	profile.Name = firstText(doc, selectors.name)
	profile.Headline = firstText(doc, selectors.headline)
	profile.Location = firstText(doc, selectors.location)
	profile.About = firstText(doc, selectors.about)

	// Current position from the first experience entry.
	doc.Find("#experience-section li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title := strings.TrimSpace(s.Find(".t-14.t-black.t-bold").First().Text())
		company := strings.TrimSpace(s.Find(".t-14.t-black.t-normal").First().Text())
		if title == "" && company == "" {
			return true
		}
		profile.Title = title
		profile.Company = company
		return false
	})

	// Logged-out pages encode "Name - Headline - Company | LinkedIn" in the
	// og:title meta tag; use it to backfill missing fields.
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		backfillFromOGTitle(profile, og)
	}
}

// firstText returns the trimmed text of the first selector that matches.
func firstText(doc *goquery.Document, sels []string) string {
	for _, sel := range sels {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// backfillFromOGTitle fills empty Name/Headline fields from an og:title of
// the form "Name - Headline | LinkedIn".
func backfillFromOGTitle(profile *types.ExternalProfile, og string) {
	og = strings.TrimSpace(og)
	if i := strings.LastIndex(og, "|"); i >= 0 {
		og = strings.TrimSpace(og[:i])
	}
	parts := strings.SplitN(og, " - ", 2)
	if profile.Name == "" && len(parts) > 0 {
		profile.Name = strings.TrimSpace(parts[0])
	}
	if profile.Headline == "" && len(parts) > 1 {
		profile.Headline = strings.TrimSpace(parts[1])
	}
}

// looksBlocked reports whether the rendered page is a bot wall rather than
// profile content.
func looksBlocked(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range blockedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
