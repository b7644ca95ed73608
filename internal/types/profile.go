package types

// FetchStatus describes the outcome of an external profile fetch.
// Extraction is best effort, so every status except FetchError may still
// carry some populated fields.
type FetchStatus string

// Fetch status values.
const (
	// FetchOK means the page loaded and the primary content marker appeared.
	FetchOK FetchStatus = "ok"
	// FetchPartial means the page loaded but the primary marker never
	// appeared; only some fields could be extracted.
	FetchPartial FetchStatus = "partial"
	// FetchTimeout means the overall page-load deadline expired.
	FetchTimeout FetchStatus = "timeout"
	// FetchBlocked means the target served a bot wall or auth wall.
	FetchBlocked FetchStatus = "blocked"
	// FetchError means navigation failed outright; no fields are populated.
	FetchError FetchStatus = "error"
)

// ExternalProfile is best-effort structured data scraped from a public
// profile page. Every field except SourceURL and Status is optional.
type ExternalProfile struct {
	SourceURL string      `json:"source_url"`
	Status    FetchStatus `json:"status"`

	Name     string `json:"name,omitempty"`
	Headline string `json:"headline,omitempty"`
	Company  string `json:"company,omitempty"`
	Title    string `json:"title,omitempty"`
	Location string `json:"location,omitempty"`
	About    string `json:"about,omitempty"`
}

// Succeeded reports whether the fetch reached the page at all. Partial
// extractions still count; only timeouts, bot walls and navigation failures
// do not.
func (s FetchStatus) Succeeded() bool {
	return s == FetchOK || s == FetchPartial
}

// Enrichment bundles the scraped sources feeding one lead's generation. A
// zero-status profile means the lead carried no URL for that source.
type Enrichment struct {
	Profile ExternalProfile `json:"profile"`
	Company ExternalProfile `json:"company"`
}

// HasFields reports whether any profile field beyond the source URL was
// extracted.
func (p ExternalProfile) HasFields() bool {
	return p.Name != "" || p.Headline != "" || p.Company != "" ||
		p.Title != "" || p.Location != "" || p.About != ""
}

// Usable reports whether the profile should contribute to personalization.
func (p ExternalProfile) Usable() bool {
	return p.Status != FetchError && p.HasFields()
}
