package engine

import (
	"math"
	"time"

	"github.com/jonathan/outreach-personalizer/internal/types"
)

// Snapshot is the read-only job view served to pollers, with progress and
// remaining-time estimates derived from the persisted job.
type Snapshot struct {
	Job                       *types.Job
	ProgressPercent           int
	EstimatedRemainingSeconds int
}

// BuildSnapshot derives the polling view from a job at the given time. The
// estimate uses the mean observed per-record duration once at least one
// record has completed, and DefaultEstimatePerRecord before that.
func BuildSnapshot(job *types.Job, now time.Time) Snapshot {
	s := Snapshot{Job: job}

	if job.Total > 0 {
		s.ProgressPercent = int(math.Round(float64(job.Processed) / float64(job.Total) * 100))
	}

	if job.Status.Terminal() {
		return s
	}

	remaining := job.Total - job.Processed
	if job.Processed == 0 {
		s.EstimatedRemainingSeconds = int(math.Ceil(DefaultEstimatePerRecord.Seconds() * float64(remaining)))
		return s
	}

	elapsed := now.Sub(job.StartedAt)
	perRecord := elapsed / time.Duration(job.Processed)
	s.EstimatedRemainingSeconds = int(math.Ceil(perRecord.Seconds() * float64(remaining)))
	return s
}

// EstimateCompletionSeconds is the submission-time estimate for a fresh
// batch of n records.
func EstimateCompletionSeconds(n int) int {
	return int(math.Ceil(DefaultEstimatePerRecord.Seconds() * float64(n)))
}
