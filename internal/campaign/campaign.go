// Package campaign holds the messaging context applied to every lead in a
// personalization job and validates caller-supplied custom context.
package campaign

import (
	"encoding/json"

	"github.com/jonathan/outreach-personalizer/internal/types"
)

// Default returns the campaign defaults applied when the caller supplies no
// custom context.
func Default(name string) types.Campaign {
	return types.Campaign{
		Name:        name,
		ToneOfVoice: "Professional",
		Language:    "English",
		CoachingPoints: []string{
			"Use professional tone and personalize with company information",
			"Keep subject lines under 50 characters for better open rates",
			"End with a single, clear call-to-action",
		},
		SignOffs: []string{"Best regards", "Thanks"},
		CallsToAction: []string{
			"Would you be interested in learning more?",
			"Are you available for a brief call to discuss this?",
		},
	}
}

// Merge overlays a caller-supplied custom context onto a base campaign.
// Scalar fields replace the base when set; list fields replace wholesale so
// the caller fully controls ordering.
func Merge(base types.Campaign, custom types.Campaign) types.Campaign {
	out := base
	if custom.ToneOfVoice != "" {
		out.ToneOfVoice = custom.ToneOfVoice
	}
	if custom.Language != "" {
		out.Language = custom.Language
	}
	if len(custom.PainPoints) > 0 {
		out.PainPoints = custom.PainPoints
	}
	if len(custom.ProofPoints) > 0 {
		out.ProofPoints = custom.ProofPoints
	}
	if len(custom.CoachingPoints) > 0 {
		out.CoachingPoints = custom.CoachingPoints
	}
	if len(custom.SignOffs) > 0 {
		out.SignOffs = custom.SignOffs
	}
	if len(custom.CallsToAction) > 0 {
		out.CallsToAction = custom.CallsToAction
	}
	return out
}

// Parse validates raw custom-context JSON against the schema and merges it
// onto the defaults for the named campaign.
func Parse(name string, raw []byte) (types.Campaign, error) {
	base := Default(name)
	if len(raw) == 0 {
		return base, nil
	}

	if err := ValidateCustomContext(raw); err != nil {
		return types.Campaign{}, err
	}

	var custom types.Campaign
	if err := json.Unmarshal(raw, &custom); err != nil {
		// Schema validation already checked syntax; this only fires on type
		// mismatches the schema does not express.
		return types.Campaign{}, &ContextError{Message: "failed to decode custom context", Cause: err}
	}

	merged := Merge(base, custom)
	if err := types.ValidateCampaign(merged); err != nil {
		return types.Campaign{}, &ContextError{Message: "custom context failed validation", Cause: err}
	}
	return merged, nil
}
