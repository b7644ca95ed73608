// Package export renders a job's accumulated outcomes into the downloadable
// CSV artifact and its summary statistics.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/jonathan/outreach-personalizer/internal/types"
)

// header is the export column layout: the lead columns from the upload,
// the generated sequence (initial email then each follow-up with its own
// subject), and the per-record status columns.
var header = []string{
	"First name",
	"Last name",
	"Email",
	"Title",
	"Company",
	"Location",
	"Email subject",
	"Email body",
	"Follow-up 1 subject",
	"Follow-up 1 body",
	"Follow-up 2 subject",
	"Follow-up 2 body",
	"Follow-up 3 subject",
	"Follow-up 3 body",
	"Follow-up 4 subject",
	"Follow-up 4 body",
	"Personalization score",
	"Profile status",
	"Company status",
	"Error",
}

// Column offsets into header for the generated and status fields.
const (
	colSubject       = 6
	colBody          = 7
	colFollowUps     = 8
	colScore         = 16
	colProfileStatus = 17
	colCompanyStatus = 18
	colError         = 19
)

// Assemble renders the export. Rows are ordered by original input index
// regardless of completion order, so the output is deterministic for a given
// outcome set.
func Assemble(outcomes []types.RecordOutcome) ([]byte, types.Summary, error) {
	ordered := make([]types.RecordOutcome, len(outcomes))
	copy(ordered, outcomes)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, types.Summary{}, fmt.Errorf("failed to write export header: %w", err)
	}

	var summary types.Summary
	for _, o := range ordered {
		row := make([]string, len(header))
		row[0] = o.Lead.FirstName
		row[1] = o.Lead.LastName
		row[2] = o.Lead.Email
		row[3] = o.Lead.Title
		row[4] = o.Lead.Company
		row[5] = o.Lead.Location
		row[colProfileStatus] = string(o.ProfileStatus)
		row[colCompanyStatus] = string(o.CompanyStatus)
		row[colError] = o.ErrorMessage

		if o.Artifact != nil {
			row[colSubject] = o.Artifact.Subject
			row[colBody] = o.Artifact.Body
			for i, f := range o.Artifact.FollowUps {
				col := colFollowUps + 2*i
				if col+1 >= colScore {
					break
				}
				row[col] = f.Subject
				row[col+1] = f.Body
			}
			row[colScore] = fmt.Sprintf("%d", o.Artifact.Score)
		}

		if o.Failed() {
			summary.ErrorCount++
		} else {
			summary.SuccessCount++
		}
		countFetch(o.ProfileStatus, &summary.Scraping.ProfileSuccess, &summary.Scraping.ProfileFailure)
		countFetch(o.CompanyStatus, &summary.Scraping.CompanySuccess, &summary.Scraping.CompanyFailure)

		if err := w.Write(row); err != nil {
			return nil, types.Summary{}, fmt.Errorf("failed to write export row %d: %w", o.Index, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, types.Summary{}, fmt.Errorf("failed to flush export: %w", err)
	}

	return buf.Bytes(), summary, nil
}

// countFetch tallies one fetch status. A zero status means no URL was
// supplied, which counts as neither success nor failure.
func countFetch(s types.FetchStatus, success, failure *int) {
	switch {
	case s == "":
	case s.Succeeded():
		*success++
	default:
		*failure++
	}
}
