// Package engine owns the personalization job state machine. It enqueues
// per-record work on a shared bounded worker pool, drives the
// validate -> fetch -> generate pipeline for each record, aggregates
// outcomes, and assembles the export when the last record lands.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-personalizer/internal/export"
	"github.com/jonathan/outreach-personalizer/internal/generate"
	"github.com/jonathan/outreach-personalizer/internal/leads"
	"github.com/jonathan/outreach-personalizer/internal/scrape"
	"github.com/jonathan/outreach-personalizer/internal/store"
	"github.com/jonathan/outreach-personalizer/internal/types"
)

// DefaultEstimatePerRecord is the per-record duration assumed before any
// record has completed. It is a documented heuristic, not a measured value.
const DefaultEstimatePerRecord = 8 * time.Second

// DefaultRecordTimeout bounds one record's whole pipeline. It must exceed
// the fetch and generation timeouts it encloses.
const DefaultRecordTimeout = 2 * time.Minute

// ErrEmptyBatch is returned by Create for a batch with no records; no job is
// created.
var ErrEmptyBatch = errors.New("batch contains no records")

// Options tunes the engine.
type Options struct {
	// Workers caps concurrent record pipelines, and therefore concurrent
	// browser contexts held against the scrape target.
	Workers int
	// QueueDepth is the pending-task buffer of the shared pool.
	QueueDepth int
	// RecordTimeout bounds one record's validate+fetch+generate pipeline.
	RecordTimeout time.Duration
	Verbose       bool
}

// DefaultOptions sizes the pool for a bot-defensive scrape target.
func DefaultOptions() *Options {
	return &Options{
		Workers:       3,
		QueueDepth:    64,
		RecordTimeout: DefaultRecordTimeout,
	}
}

// Engine runs personalization jobs.
type Engine struct {
	store     store.Store
	scraper   scrape.Client
	generator generate.Client
	pool      *Pool
	opts      Options

	// mu guards the per-job cancellation table. Cancellation is checked
	// between record dispatches and before each record starts, so an added
	// cancel operation only has to flip the job's context.
	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

// New creates an Engine and starts its worker pool.
func New(st store.Store, sc scrape.Client, gen generate.Client, opts *Options) *Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = DefaultRecordTimeout
	}
	return &Engine{
		store:     st,
		scraper:   sc,
		generator: gen,
		pool:      NewPool(opts.Workers, opts.QueueDepth),
		opts:      *opts,
		cancels:   make(map[uuid.UUID]context.CancelFunc),
	}
}

// Close drains the pool. Call only after the HTTP surface has stopped
// accepting submissions.
func (e *Engine) Close() {
	e.pool.Close()
}

// Create allocates a job for the batch, persists it queued, schedules
// asynchronous processing and returns immediately with the job id. An empty
// batch is rejected before any job exists.
func (e *Engine) Create(ctx context.Context, rows []types.RawLead, c types.Campaign) (uuid.UUID, error) {
	if len(rows) == 0 {
		return uuid.Nil, ErrEmptyBatch
	}

	job := &types.Job{
		ID:           uuid.New(),
		CampaignName: c.Name,
		Status:       types.JobQueued,
		Total:        len(rows),
		StartedAt:    time.Now().UTC(),
		Outcomes:     []types.RecordOutcome{},
	}

	if err := e.store.Put(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to persist job: %w", err)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancels[job.ID] = cancel
	e.mu.Unlock()

	if e.opts.Verbose {
		log.Printf("[ENGINE] job %s created with %d records", job.ID, job.Total)
	}

	// Dispatch from a separate goroutine so Create stays non-blocking even
	// when the pool queue is full.
	go e.dispatch(jobCtx, job.ID, rows, c)

	return job.ID, nil
}

// Get returns the derived status snapshot for a job.
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	job, err := e.store.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return BuildSnapshot(job, time.Now().UTC()), nil
}

// dispatch feeds one job's records into the shared pool in input order,
// checking the job's cancellation flag between dispatches.
func (e *Engine) dispatch(jobCtx context.Context, jobID uuid.UUID, rows []types.RawLead, c types.Campaign) {
	for _, raw := range rows {
		if jobCtx.Err() != nil {
			return
		}
		raw := raw
		err := e.pool.Submit(func(poolCtx context.Context) {
			if jobCtx.Err() != nil || poolCtx.Err() != nil {
				return
			}
			e.processRecord(jobCtx, jobID, raw, c)
		})
		if err != nil {
			e.failJob(jobID, fmt.Errorf("worker pool unavailable: %w", err))
			return
		}
	}
}

// processRecord runs the validate -> fetch -> generate pipeline for one
// record and records its outcome. Record-level failures become error
// outcomes; only store failures escalate to the job.
func (e *Engine) processRecord(jobCtx context.Context, jobID uuid.UUID, raw types.RawLead, c types.Campaign) {
	ctx, cancel := context.WithTimeout(jobCtx, e.opts.RecordTimeout)
	defer cancel()

	lead, violations := leads.Validate(raw)
	outcome := types.RecordOutcome{
		Index:    raw.Index,
		Identity: lead.FullName(),
		Lead:     lead,
	}
	if outcome.Identity == "" {
		outcome.Identity = fmt.Sprintf("row %d", raw.Index+1)
	}

	if len(violations) > 0 {
		outcome.ErrorKind = types.ErrorValidation
		outcome.ErrorMessage = strings.Join(violations, "; ")
		e.record(jobID, outcome)
		return
	}

	var enrich types.Enrichment
	if lead.LinkedInURL != "" {
		enrich.Profile = e.scraper.Fetch(ctx, lead.LinkedInURL)
		outcome.ProfileStatus = enrich.Profile.Status
		if e.opts.Verbose {
			log.Printf("[ENGINE] job %s record %d profile fetch: %s", jobID, raw.Index, enrich.Profile.Status)
		}
	}
	if lead.CompanyWebsite != "" && ctx.Err() == nil {
		enrich.Company = e.scraper.Fetch(ctx, lead.CompanyWebsite)
		outcome.CompanyStatus = enrich.Company.Status
		if e.opts.Verbose {
			log.Printf("[ENGINE] job %s record %d company fetch: %s", jobID, raw.Index, enrich.Company.Status)
		}
	}

	// Fetches that consumed the whole record budget leave nothing for
	// generation; record a fetch failure rather than letting the generator
	// fail on a dead context.
	if ctx.Err() != nil {
		outcome.ErrorKind = types.ErrorFetch
		outcome.ErrorMessage = "enrichment fetches exceeded the record deadline"
		e.record(jobID, outcome)
		return
	}

	artifact, err := e.generator.Generate(ctx, lead, enrich, c)
	if err != nil {
		outcome.ErrorKind = types.ErrorGeneration
		outcome.ErrorMessage = err.Error()
		e.record(jobID, outcome)
		return
	}

	outcome.Artifact = &artifact
	e.record(jobID, outcome)
}

// record appends an outcome and advances the job atomically. The outcome and
// the processed counter always move together, and the completion transition
// (assembly included) happens inside the same update as the final outcome.
func (e *Engine) record(jobID uuid.UUID, outcome types.RecordOutcome) {
	_, err := e.store.Update(context.Background(), jobID, func(j *types.Job) error {
		if j.Status.Terminal() {
			// The job failed while this record was in flight; drop the
			// outcome so nothing is appended after a terminal transition.
			return nil
		}
		if j.Status == types.JobQueued {
			j.Status = types.JobProcessing
		}

		j.Outcomes = append(j.Outcomes, outcome)
		j.Processed = len(j.Outcomes)

		if j.Processed == j.Total {
			artifact, summary, err := export.Assemble(j.Outcomes)
			if err != nil {
				return fmt.Errorf("failed to assemble export: %w", err)
			}
			j.Artifact = artifact
			j.Summary = &summary
			now := time.Now().UTC()
			j.CompletedAt = &now
			j.Status = types.JobCompleted
		}
		return nil
	})
	if err != nil {
		e.failJob(jobID, err)
		return
	}

	e.finishIfTerminal(jobID)
}

// failJob transitions a job to failed after an infrastructure-level error
// and stops its remaining record work. Record-level errors never arrive
// here.
func (e *Engine) failJob(jobID uuid.UUID, cause error) {
	log.Printf("[ENGINE] job %s failed: %v", jobID, cause)

	_, err := e.store.Update(context.Background(), jobID, func(j *types.Job) error {
		if j.Status.Terminal() {
			return nil
		}
		j.Status = types.JobFailed
		j.FailureReason = cause.Error()
		now := time.Now().UTC()
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		// The store is unwritable; the job stays in its last persisted
		// state and pollers keep seeing that truth.
		log.Printf("[ENGINE] job %s could not be marked failed: %v", jobID, err)
	}

	e.cancelJob(jobID)
}

// finishIfTerminal releases the cancellation entry once a job reaches a
// terminal state.
func (e *Engine) finishIfTerminal(jobID uuid.UUID) {
	job, err := e.store.Get(context.Background(), jobID)
	if err != nil || !job.Status.Terminal() {
		return
	}
	if e.opts.Verbose && job.Status == types.JobCompleted {
		log.Printf("[ENGINE] job %s completed: %d processed, %d errors", jobID, job.Processed, job.ErrorCount())
	}
	e.cancelJob(jobID)
}

func (e *Engine) cancelJob(jobID uuid.UUID) {
	e.mu.Lock()
	cancel, ok := e.cancels[jobID]
	if ok {
		delete(e.cancels, jobID)
	}
	e.mu.Unlock()
	if ok {
		cancel()
	}
}
