package generate

import (
	"fmt"
	"strings"

	"github.com/jonathan/outreach-personalizer/internal/types"
)

// BuildPrompt assembles the generation prompt from the validated lead, the
// scraped enrichment and the campaign context. Profile and company sections
// are only included when the fetch produced usable data; with neither, the
// prompt instructs the model to personalize from the lead row alone.
func BuildPrompt(lead types.Lead, enrich types.Enrichment, c types.Campaign) string {
	var sb strings.Builder

	sb.WriteString("You are writing a cold outreach email sequence for a B2B campaign: one initial email and ")
	fmt.Fprintf(&sb, "%d follow-ups, each with its own subject line.\n\n", types.FollowUpCount)

	fmt.Fprintf(&sb, "Campaign: %s\n", c.Name)
	if c.ToneOfVoice != "" {
		fmt.Fprintf(&sb, "Tone of voice: %s\n", c.ToneOfVoice)
	}
	if c.Language != "" {
		fmt.Fprintf(&sb, "Language: %s\n", c.Language)
	}
	sb.WriteString("\n## Recipient\n")
	fmt.Fprintf(&sb, "Name: %s\n", lead.FullName())
	writeIfSet(&sb, "Title", lead.Title)
	writeIfSet(&sb, "Company", lead.Company)
	writeIfSet(&sb, "Location", lead.Location)

	hasEnrichment := false
	if enrich.Profile.Usable() {
		hasEnrichment = true
		sb.WriteString("\n## Scraped profile data (use for personalization)\n")
		writeIfSet(&sb, "Name", enrich.Profile.Name)
		writeIfSet(&sb, "Headline", enrich.Profile.Headline)
		writeIfSet(&sb, "Current title", enrich.Profile.Title)
		writeIfSet(&sb, "Current company", enrich.Profile.Company)
		writeIfSet(&sb, "Location", enrich.Profile.Location)
		writeIfSet(&sb, "About", enrich.Profile.About)
	}
	if enrich.Company.Usable() {
		hasEnrichment = true
		sb.WriteString("\n## Scraped company website data (use for personalization)\n")
		writeIfSet(&sb, "Company name", enrich.Company.Name)
		writeIfSet(&sb, "Tagline", enrich.Company.Headline)
		writeIfSet(&sb, "About", enrich.Company.About)
	}
	if !hasEnrichment {
		sb.WriteString("\nNo profile or company data could be retrieved. Personalize using only the recipient fields above; do not invent facts about the recipient.\n")
	}

	writePoints(&sb, "Pain points to speak to", c.PainPoints)
	writePoints(&sb, "Proof points to draw on", c.ProofPoints)

	if len(c.CoachingPoints) > 0 {
		sb.WriteString("\n## Writing guidance\n")
		for _, p := range c.CoachingPoints {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}
	if len(c.CallsToAction) > 0 {
		fmt.Fprintf(&sb, "\nClose with one of these calls to action: %s\n", strings.Join(c.CallsToAction, " / "))
	}
	if len(c.SignOffs) > 0 {
		fmt.Fprintf(&sb, "Sign off with one of: %s\n", strings.Join(c.SignOffs, " / "))
	}

	sb.WriteString(fmt.Sprintf(`
Each follow-up should reference the earlier emails without repeating them,
escalating gently from a nudge to a polite close-out.

Respond with a JSON object only, no surrounding prose:
{
  "subject": "<initial email subject line>",
  "body": "<initial email body>",
  "follow_ups": [
    {"subject": "<follow-up subject>", "body": "<follow-up body>"}
  ],
  "score": <integer 0-100, how deeply personalized the sequence is to this specific recipient>
}
The follow_ups array must contain exactly %d entries.
`, types.FollowUpCount))

	return sb.String()
}

func writeIfSet(sb *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(sb, "%s: %s\n", label, value)
	}
}

func writePoints(sb *strings.Builder, heading string, points []types.CampaignPoint) {
	if len(points) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n## %s\n", heading)
	for _, p := range points {
		if p.Description != "" {
			fmt.Fprintf(sb, "- %s: %s\n", p.Title, p.Description)
		} else {
			fmt.Fprintf(sb, "- %s\n", p.Title)
		}
	}
}
