// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/outreach-personalizer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCampaign outputs a human-readable summary of the campaign context the
// batch will run with.
func (p *Printer) PrintCampaign(c types.Campaign) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Name:     %s\n", c.Name))
	sb.WriteString(fmt.Sprintf("Tone:     %s\n", c.ToneOfVoice))
	sb.WriteString(fmt.Sprintf("Language: %s\n", c.Language))

	if len(c.PainPoints) > 0 {
		sb.WriteString("\nPain points:\n")
		count := min(len(c.PainPoints), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", c.PainPoints[i].Title))
		}
		if len(c.PainPoints) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(c.PainPoints)-maxItemsToShow))
		}
	}

	if len(c.ProofPoints) > 0 {
		sb.WriteString("\nProof points:\n")
		count := min(len(c.ProofPoints), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", c.ProofPoints[i].Title))
		}
		if len(c.ProofPoints) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(c.ProofPoints)-3))
		}
	}

	p.printBox("CAMPAIGN CONTEXT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBatchSummary outputs the final result breakdown of a finished job.
func (p *Printer) PrintBatchSummary(job *types.Job) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:       %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("Processed: %d/%d", job.Processed, job.Total))

	if job.Summary != nil {
		sb.WriteString(fmt.Sprintf("\nSuccess:   %d\n", job.Summary.SuccessCount))
		sb.WriteString(fmt.Sprintf("Errors:    %d", job.Summary.ErrorCount))
		st := job.Summary.Scraping
		sb.WriteString(fmt.Sprintf("\nProfiles:  %d fetched, %d failed\n", st.ProfileSuccess, st.ProfileFailure))
		sb.WriteString(fmt.Sprintf("Websites:  %d fetched, %d failed", st.CompanySuccess, st.CompanyFailure))
	}

	if job.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("\nDuration:  %s", job.CompletedAt.Sub(job.StartedAt).Round(time.Second)))
	}

	p.printBox("BATCH SUMMARY", sb.String())
}

// PrintRecordErrors outputs the most recent failed records with their error
// kind, mirroring what the status endpoint reports to pollers.
func (p *Printer) PrintRecordErrors(job *types.Job) {
	if job == nil {
		return
	}

	failed := job.RecentErrors(maxItemsToShow)
	if len(failed) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Failed records: %d\n\n", job.ErrorCount()))

	for i, o := range failed {
		identity := o.Identity
		if identity == "" {
			identity = fmt.Sprintf("row %d", o.Index+1)
		}
		msg := o.ErrorMessage
		if len(msg) > 45 {
			msg = msg[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("⚠ %s [%s]\n", identity, o.ErrorKind))
		sb.WriteString(fmt.Sprintf("  %s", msg))
		if i < len(failed)-1 {
			sb.WriteString("\n\n")
		}
	}

	if job.ErrorCount() > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more", job.ErrorCount()-maxItemsToShow))
	}

	p.printBox("RECORD ERRORS", sb.String())
}

// PrintArtifactPreview outputs the subject lines of the first few generated
// emails so a verbose run shows what the batch produced.
func (p *Printer) PrintArtifactPreview(job *types.Job) {
	if job == nil {
		return
	}

	var sb strings.Builder
	shown := 0
	for _, o := range job.Outcomes {
		if o.Artifact == nil {
			continue
		}
		if shown == maxItemsToShow {
			sb.WriteString("...\n")
			break
		}
		subject := o.Artifact.Subject
		if len(subject) > 45 {
			subject = subject[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("• %s (score %d)\n", o.Identity, o.Artifact.Score))
		sb.WriteString(fmt.Sprintf("  %s\n", subject))
		shown++
	}
	if shown == 0 {
		return
	}

	p.printBox("GENERATED EMAILS (preview)", strings.TrimSuffix(sb.String(), "\n"))
}
