package types

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a personalization job.
type JobStatus string

// Job lifecycle states. A job moves queued -> processing -> completed or
// failed; completed and failed are terminal.
const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ErrorKind classifies a record-level failure.
type ErrorKind string

// Record-level error kinds. None of these fail the enclosing job.
const (
	ErrorValidation ErrorKind = "validation"
	ErrorFetch      ErrorKind = "fetch"
	ErrorGeneration ErrorKind = "generation"
)

// FollowUp is one email in the follow-up sequence, with its own subject so
// each send can stand alone in a mail client.
type FollowUp struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// FollowUpCount is the number of follow-up emails generated after the
// initial email.
const FollowUpCount = 4

// Artifact is the generated personalization output for one lead: the
// initial email plus its follow-up sequence.
type Artifact struct {
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	FollowUps []FollowUp `json:"follow_ups,omitempty"`
	// Score is the model's self-reported personalization depth, 0-100.
	Score int `json:"score"`
}

// RecordOutcome is the terminal result for one input record. Exactly one of
// Artifact or ErrorKind is set.
type RecordOutcome struct {
	Index         int         `json:"index"`
	Identity      string      `json:"identity"`
	Lead          Lead        `json:"lead"`
	Artifact      *Artifact   `json:"artifact,omitempty"`
	ProfileStatus FetchStatus `json:"profile_status,omitempty"`
	CompanyStatus FetchStatus `json:"company_status,omitempty"`
	ErrorKind     ErrorKind   `json:"error_kind,omitempty"`
	ErrorMessage  string      `json:"error_message,omitempty"`
}

// Failed reports whether the record ended in an error.
func (o RecordOutcome) Failed() bool {
	return o.ErrorKind != ""
}

// ScrapingStats counts fetch outcomes per source across a job. Records
// without a URL for a source contribute to neither counter.
type ScrapingStats struct {
	ProfileSuccess int `json:"profile_success"`
	ProfileFailure int `json:"profile_failure"`
	CompanySuccess int `json:"company_success"`
	CompanyFailure int `json:"company_failure"`
}

// Summary is the aggregate result breakdown of a completed job.
type Summary struct {
	SuccessCount int           `json:"success_count"`
	ErrorCount   int           `json:"error_count"`
	Scraping     ScrapingStats `json:"scraping"`
}

// Job is one bulk personalization run over an uploaded batch of leads.
//
// Invariants maintained by the engine: len(Outcomes) == Processed,
// 0 <= Processed <= Total, Status == JobCompleted implies Processed == Total
// and Artifact is non-nil, and CompletedAt is set exactly once, on the
// transition into a terminal state.
type Job struct {
	ID           uuid.UUID       `json:"id"`
	CampaignName string          `json:"campaign_name"`
	Status       JobStatus       `json:"status"`
	Total        int             `json:"total"`
	Processed    int             `json:"processed"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Outcomes     []RecordOutcome `json:"outcomes"`

	// Artifact is the assembled CSV export; present only once Status is
	// JobCompleted.
	Artifact []byte   `json:"artifact,omitempty"`
	Summary  *Summary `json:"summary,omitempty"`

	// FailureReason is set when Status is JobFailed.
	FailureReason string `json:"failure_reason,omitempty"`
}

// ErrorCount returns the number of failed outcomes recorded so far.
func (j *Job) ErrorCount() int {
	n := 0
	for _, o := range j.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

// RecentErrors returns the last n failed outcomes in recording order.
func (j *Job) RecentErrors(n int) []RecordOutcome {
	var errs []RecordOutcome
	for _, o := range j.Outcomes {
		if o.Failed() {
			errs = append(errs, o)
		}
	}
	if len(errs) > n {
		errs = errs[len(errs)-n:]
	}
	return errs
}

// Clone returns a deep copy so store readers never share mutable state with
// the engine.
func (j *Job) Clone() *Job {
	cp := *j
	cp.Outcomes = make([]RecordOutcome, len(j.Outcomes))
	copy(cp.Outcomes, j.Outcomes)
	if j.Artifact != nil {
		cp.Artifact = make([]byte, len(j.Artifact))
		copy(cp.Artifact, j.Artifact)
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	if j.Summary != nil {
		s := *j.Summary
		cp.Summary = &s
	}
	return &cp
}
