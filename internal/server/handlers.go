package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-personalizer/internal/campaign"
	"github.com/jonathan/outreach-personalizer/internal/engine"
	"github.com/jonathan/outreach-personalizer/internal/export"
	"github.com/jonathan/outreach-personalizer/internal/leads"
	"github.com/jonathan/outreach-personalizer/internal/store"
	"github.com/jonathan/outreach-personalizer/internal/types"
)

// maxUploadBytes bounds the multipart form held in memory. A 5000 row lead
// CSV is well under 1MB, so 10MB leaves plenty of headroom.
const maxUploadBytes = 10 << 20

// recentErrorLimit is how many trailing record errors the status endpoint
// reports.
const recentErrorLimit = 3

// createJobResponse is returned from POST /jobs with 202 Accepted.
type createJobResponse struct {
	JobID                      string `json:"job_id"`
	RowCount                   int    `json:"row_count"`
	EstimatedCompletionSeconds int    `json:"estimated_completion_seconds"`
	StatusURL                  string `json:"status_url"`
}

// recordError is the status-endpoint view of one failed record.
type recordError struct {
	Index    int    `json:"index"`
	Identity string `json:"identity"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// statusResponse is returned from GET /jobs/{id}/status.
type statusResponse struct {
	JobID                     string         `json:"job_id"`
	CampaignName              string         `json:"campaign_name"`
	Status                    string         `json:"status"`
	Progress                  int            `json:"progress"`
	Processed                 int            `json:"processed"`
	Total                     int            `json:"total"`
	EstimatedRemainingSeconds int            `json:"estimated_remaining_seconds"`
	ErrorCount                int            `json:"error_count"`
	RecentErrors              []recordError  `json:"recent_errors,omitempty"`
	Summary                   *types.Summary `json:"summary,omitempty"`
	DownloadURL               string         `json:"download_url,omitempty"`
	FailureReason             string         `json:"failure_reason,omitempty"`
	StartedAt                 time.Time      `json:"started_at"`
	CompletedAt               *time.Time     `json:"completed_at,omitempty"`
}

// handleCreateJob accepts a multipart lead CSV upload and starts an
// asynchronous personalization job, responding 202 with the job id before
// any record is processed.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "request must be a multipart form upload")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.handlerError(w, &ErrValidation{Field: "file", Message: "a CSV file upload is required"})
		return
	}
	defer file.Close()

	campaignName := r.FormValue("campaign_name")
	if campaignName == "" {
		campaignName = "Default Outreach"
	}

	camp := campaign.Default(campaignName)
	if raw := r.FormValue("custom_context"); raw != "" {
		camp, err = campaign.Parse(campaignName, []byte(raw))
		if err != nil {
			s.handlerError(w, err)
			return
		}
	}

	rows, err := leads.ParseCSV(file)
	if err != nil {
		s.handlerError(w, err)
		return
	}

	jobID, err := s.engine.Create(r.Context(), rows, camp)
	if err != nil {
		if err == engine.ErrEmptyBatch {
			s.handlerError(w, &ErrValidation{Field: "file", Message: "the CSV contains no data rows"})
			return
		}
		s.handlerError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusAccepted, createJobResponse{
		JobID:                      jobID.String(),
		RowCount:                   len(rows),
		EstimatedCompletionSeconds: engine.EstimateCompletionSeconds(len(rows)),
		StatusURL:                  fmt.Sprintf("/jobs/%s/status", jobID),
	})
}

// handleJobStatus reports progress for one job. Polling a job whose state has
// not advanced returns an identical body.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	snap, err := s.engine.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = &ErrJobNotFound{JobID: jobID}
		}
		s.handlerError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, buildStatusResponse(snap))
}

// handleJobDownload streams the assembled CSV for a completed job. Incomplete
// and failed jobs respond 409 so pollers can distinguish "keep waiting" from
// "gone".
func (s *Server) handleJobDownload(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	snap, err := s.engine.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = &ErrJobNotFound{JobID: jobID}
		}
		s.handlerError(w, err)
		return
	}

	job := snap.Job
	switch job.Status {
	case types.JobFailed:
		s.jsonResponse(w, http.StatusConflict, map[string]any{
			"error":          "job_failed",
			"status":         string(job.Status),
			"failure_reason": job.FailureReason,
		})
		return
	case types.JobCompleted:
		// Fall through to the CSV below.
	default:
		s.jsonResponse(w, http.StatusConflict, map[string]any{
			"error":    "job_not_completed",
			"status":   string(job.Status),
			"progress": snap.ProgressPercent,
		})
		return
	}

	summary := job.Summary
	if summary == nil {
		summary = &types.Summary{}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(job)))
	w.Header().Set("X-Job-Id", job.ID.String())
	w.Header().Set("X-Success-Count", fmt.Sprintf("%d", summary.SuccessCount))
	w.Header().Set("X-Error-Count", fmt.Sprintf("%d", summary.ErrorCount))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(job.Artifact)
}

// handleSampleCSV serves a documented example of the expected upload schema.
func (s *Server) handleSampleCSV(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sample-leads.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.SampleCSV())
}

// jobIDFromPath parses the {id} path segment, writing a 400 on malformed ids.
func (s *Server) jobIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.handlerError(w, &ErrValidation{Field: "id", Message: "job id must be a UUID"})
		return uuid.Nil, false
	}
	return jobID, true
}

// handlerError maps a handler error to its HTTP status and writes the JSON
// error body.
func (s *Server) handlerError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		// Internal details stay in the log, not the response.
		log.Printf("[SERVER] internal error: %v", err)
	}
	s.errorResponse(w, status, errorMessage(err, status))
}

// errorMessage chooses the client-visible message for an error.
func errorMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

// buildStatusResponse projects an engine snapshot into the wire form.
func buildStatusResponse(snap engine.Snapshot) statusResponse {
	job := snap.Job

	resp := statusResponse{
		JobID:                     job.ID.String(),
		CampaignName:              job.CampaignName,
		Status:                    string(job.Status),
		Progress:                  snap.ProgressPercent,
		Processed:                 job.Processed,
		Total:                     job.Total,
		EstimatedRemainingSeconds: snap.EstimatedRemainingSeconds,
		ErrorCount:                job.ErrorCount(),
		FailureReason:             job.FailureReason,
		StartedAt:                 job.StartedAt,
		CompletedAt:               job.CompletedAt,
	}

	for _, o := range job.RecentErrors(recentErrorLimit) {
		resp.RecentErrors = append(resp.RecentErrors, recordError{
			Index:    o.Index,
			Identity: o.Identity,
			Kind:     string(o.ErrorKind),
			Message:  o.ErrorMessage,
		})
	}

	if job.Status == types.JobCompleted {
		resp.Summary = job.Summary
		resp.DownloadURL = fmt.Sprintf("/jobs/%s/download", job.ID)
	}

	return resp
}

// exportFilename names the downloaded CSV after the job id.
func exportFilename(job *types.Job) string {
	return fmt.Sprintf("personalized-emails-%s.csv", job.ID)
}
