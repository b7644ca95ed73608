package types

// CampaignPoint is a titled talking point (pain point or proof point) that
// steers email generation.
type CampaignPoint struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
}

// Campaign is the messaging context applied to every lead in a job.
type Campaign struct {
	Name           string          `json:"name" validate:"required,min=1"`
	ToneOfVoice    string          `json:"tone_of_voice,omitempty"`
	Language       string          `json:"language,omitempty"`
	PainPoints     []CampaignPoint `json:"pain_points,omitempty" validate:"dive"`
	ProofPoints    []CampaignPoint `json:"proof_points,omitempty" validate:"dive"`
	CoachingPoints []string        `json:"coaching_points,omitempty"`
	SignOffs       []string        `json:"sign_offs,omitempty"`
	CallsToAction  []string        `json:"calls_to_action,omitempty"`
}

// ValidateCampaign checks struct-level constraints on a Campaign.
func ValidateCampaign(c Campaign) error {
	return leadValidator.Struct(c)
}
