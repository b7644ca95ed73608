// Package generate turns a validated lead, best-effort scraped enrichment
// and a campaign context into a personalized email sequence. Generation
// degrades gracefully when scraped data is absent and is bounded by its own
// timeout.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/outreach-personalizer/internal/llm"
	"github.com/jonathan/outreach-personalizer/internal/types"
)

// DefaultTimeout bounds one generation call.
const DefaultTimeout = 60 * time.Second

// Client is the generation surface consumed by the job engine.
type Client interface {
	Generate(ctx context.Context, lead types.Lead, enrich types.Enrichment, c types.Campaign) (types.Artifact, error)
}

// Generator generates email sequences through an LLM client.
type Generator struct {
	llm     llm.Client
	tier    llm.ModelTier
	timeout time.Duration
}

// New creates a Generator. A zero timeout uses DefaultTimeout.
func New(client llm.Client, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{
		llm:     client,
		tier:    llm.TierStandard,
		timeout: timeout,
	}
}

// sequenceResponse is the JSON shape the model is instructed to return: the
// initial email plus the full follow-up sequence in one call.
type sequenceResponse struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	FollowUps []struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	} `json:"follow_ups"`
	Score int `json:"score"`
}

// Generate produces the personalized sequence for one lead. It is a
// function of its three inputs only; failures surface as *Error and never
// panic or block past the timeout.
func (g *Generator) Generate(ctx context.Context, lead types.Lead, enrich types.Enrichment, c types.Campaign) (types.Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := BuildPrompt(lead, enrich, c)

	raw, err := g.llm.GenerateJSON(ctx, prompt, g.tier)
	if err != nil {
		return types.Artifact{}, &Error{Identity: lead.FullName(), Message: "model call failed", Cause: err}
	}

	var resp sequenceResponse
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &resp); err != nil {
		return types.Artifact{}, &Error{Identity: lead.FullName(), Message: "model returned malformed JSON", Cause: err}
	}

	resp.Subject = strings.TrimSpace(resp.Subject)
	resp.Body = strings.TrimSpace(resp.Body)
	if resp.Subject == "" || resp.Body == "" {
		return types.Artifact{}, &Error{Identity: lead.FullName(), Message: "model returned an empty subject or body"}
	}

	if len(resp.FollowUps) != types.FollowUpCount {
		return types.Artifact{}, &Error{
			Identity: lead.FullName(),
			Message:  fmt.Sprintf("model returned %d follow-ups, want %d", len(resp.FollowUps), types.FollowUpCount),
		}
	}
	followUps := make([]types.FollowUp, 0, types.FollowUpCount)
	for i, f := range resp.FollowUps {
		subject := strings.TrimSpace(f.Subject)
		body := strings.TrimSpace(f.Body)
		if subject == "" || body == "" {
			return types.Artifact{}, &Error{
				Identity: lead.FullName(),
				Message:  fmt.Sprintf("follow-up %d has an empty subject or body", i+1),
			}
		}
		followUps = append(followUps, types.FollowUp{Subject: subject, Body: body})
	}

	if resp.Score < 0 {
		resp.Score = 0
	}
	if resp.Score > 100 {
		resp.Score = 100
	}

	return types.Artifact{
		Subject:   resp.Subject,
		Body:      resp.Body,
		FollowUps: followUps,
		Score:     resp.Score,
	}, nil
}
