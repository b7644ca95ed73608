package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/outreach-personalizer/internal/campaign"
	"github.com/jonathan/outreach-personalizer/internal/store"
	"github.com/jonathan/outreach-personalizer/internal/types"
)

// stubScraper returns a fixed profile per URL.
type stubScraper struct {
	mu       sync.Mutex
	profiles map[string]types.ExternalProfile
	calls    int
}

func (s *stubScraper) Fetch(_ context.Context, url string) types.ExternalProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if p, ok := s.profiles[url]; ok {
		p.SourceURL = url
		return p
	}
	return types.ExternalProfile{SourceURL: url, Status: types.FetchOK, Name: "Someone"}
}

// stubGenerator produces a deterministic artifact, or an error for leads
// whose first name is in failFor.
type stubGenerator struct {
	failFor map[string]bool
}

func (g *stubGenerator) Generate(_ context.Context, lead types.Lead, enrich types.Enrichment, _ types.Campaign) (types.Artifact, error) {
	if g.failFor[lead.FirstName] {
		return types.Artifact{}, errors.New("model unavailable")
	}
	score := 50
	if enrich.Profile.Usable() {
		score = 90
	}
	followUps := make([]types.FollowUp, types.FollowUpCount)
	for i := range followUps {
		followUps[i] = types.FollowUp{
			Subject: fmt.Sprintf("Checking in %d, %s", i+1, lead.FirstName),
			Body:    "Just following up",
		}
	}
	return types.Artifact{
		Subject:   "Hello " + lead.FirstName,
		Body:      "Hi " + lead.FullName(),
		FollowUps: followUps,
		Score:     score,
	}, nil
}

func testEngine(t *testing.T, st store.Store, sc *stubScraper, gen *stubGenerator) *Engine {
	t.Helper()
	if sc == nil {
		sc = &stubScraper{}
	}
	if gen == nil {
		gen = &stubGenerator{}
	}
	e := New(st, sc, gen, &Options{Workers: 3, QueueDepth: 16, RecordTimeout: 5 * time.Second})
	t.Cleanup(e.Close)
	return e
}

func validRows(n int) []types.RawLead {
	names := []string{"Ada", "Grace", "Katherine", "Margaret", "Radia"}
	rows := make([]types.RawLead, n)
	for i := range rows {
		rows[i] = types.RawLead{
			Index:       i,
			FirstName:   names[i%len(names)],
			LastName:    "Example",
			LinkedInURL: "https://www.linkedin.com/in/lead" + string(rune('a'+i)),
		}
	}
	return rows
}

func waitForTerminal(t *testing.T, st store.Store, id uuid.UUID) *types.Job {
	t.Helper()
	var job *types.Job
	require.Eventually(t, func() bool {
		j, err := st.Get(context.Background(), id)
		if err != nil {
			return false
		}
		job = j
		return j.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestCreate_RejectsEmptyBatch(t *testing.T) {
	st := store.NewMemory()
	e := testEngine(t, st, nil, nil)

	_, err := e.Create(context.Background(), nil, campaign.Default("Q3"))
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestCreate_ReturnsImmediatelyWithQueuedJob(t *testing.T) {
	st := store.NewMemory()
	e := testEngine(t, st, nil, nil)

	id, err := e.Create(context.Background(), validRows(3), campaign.Default("Q3"))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	// The job exists in the store as soon as Create returns.
	job, err := st.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3, job.Total)
	waitForTerminal(t, st, id)
}

func TestJob_AllRecordsSucceed(t *testing.T) {
	st := store.NewMemory()
	e := testEngine(t, st, nil, nil)

	id, err := e.Create(context.Background(), validRows(3), campaign.Default("Q3"))
	require.NoError(t, err)

	job := waitForTerminal(t, st, id)
	assert.Equal(t, types.JobCompleted, job.Status)
	assert.Equal(t, 3, job.Processed)
	assert.Len(t, job.Outcomes, 3)
	assert.Equal(t, 0, job.ErrorCount())
	require.NotNil(t, job.Summary)
	assert.Equal(t, 3, job.Summary.SuccessCount)
	require.NotNil(t, job.CompletedAt)
	require.NotEmpty(t, job.Artifact)

	rows, err := csv.NewReader(bytes.NewReader(job.Artifact)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 4) // header + 3
}

func TestJob_ValidationFailureStillAdvances(t *testing.T) {
	st := store.NewMemory()
	e := testEngine(t, st, nil, nil)

	rows := []types.RawLead{
		{Index: 0, FirstName: "Ada", LastName: "Lovelace"},
		{Index: 1, LastName: "Nameless"}, // missing first name
	}

	id, err := e.Create(context.Background(), rows, campaign.Default("Q3"))
	require.NoError(t, err)

	job := waitForTerminal(t, st, id)
	assert.Equal(t, types.JobCompleted, job.Status)
	assert.Equal(t, 2, job.Processed)
	assert.Equal(t, 1, job.ErrorCount())
	assert.Equal(t, 1, job.Summary.SuccessCount)
	assert.Equal(t, 1, job.Summary.ErrorCount)

	// The failing row's export entry carries the validation message and no
	// generated artifact.
	exportRows, err := csv.NewReader(bytes.NewReader(job.Artifact)).ReadAll()
	require.NoError(t, err)
	badRow := exportRows[2]
	assert.Contains(t, badRow[19], "first name is required")
	assert.Empty(t, badRow[6])
}

func TestJob_AllRecordsInvalidStillCompletes(t *testing.T) {
	st := store.NewMemory()
	e := testEngine(t, st, nil, nil)

	rows := []types.RawLead{
		{Index: 0},
		{Index: 1, Email: "nope"},
	}

	id, err := e.Create(context.Background(), rows, campaign.Default("Q3"))
	require.NoError(t, err)

	job := waitForTerminal(t, st, id)
	assert.Equal(t, types.JobCompleted, job.Status)
	assert.Equal(t, 0, job.Summary.SuccessCount)
	assert.Equal(t, 2, job.Summary.ErrorCount)
}

func TestJob_FetchTimeoutDegradesToLeadOnlyArtifact(t *testing.T) {
	st := store.NewMemory()
	sc := &stubScraper{profiles: map[string]types.ExternalProfile{
		"https://www.linkedin.com/in/leadb": {Status: types.FetchTimeout},
	}}
	e := testEngine(t, st, sc, nil)

	id, err := e.Create(context.Background(), validRows(3), campaign.Default("Q3"))
	require.NoError(t, err)

	job := waitForTerminal(t, st, id)
	assert.Equal(t, types.JobCompleted, job.Status)
	assert.Equal(t, 0, job.ErrorCount())

	var timedOut *types.RecordOutcome
	for i := range job.Outcomes {
		if job.Outcomes[i].Index == 1 {
			timedOut = &job.Outcomes[i]
		}
	}
	require.NotNil(t, timedOut)
	assert.Equal(t, types.FetchTimeout, timedOut.ProfileStatus)
	require.NotNil(t, timedOut.Artifact)
	assert.Equal(t, 50, timedOut.Artifact.Score) // generated without profile data
}

func TestJob_FetchesCompanyWebsiteAlongsideProfile(t *testing.T) {
	st := store.NewMemory()
	sc := &stubScraper{profiles: map[string]types.ExternalProfile{
		"https://analyticalengines.example.com": {Status: types.FetchOK, Name: "Analytical Engines", About: "Computation for everyone"},
		"https://grace.example.com":             {Status: types.FetchBlocked},
	}}
	e := testEngine(t, st, sc, nil)

	rows := []types.RawLead{
		{Index: 0, FirstName: "Ada", LastName: "Lovelace",
			LinkedInURL:    "https://www.linkedin.com/in/ada",
			CompanyWebsite: "https://analyticalengines.example.com"},
		{Index: 1, FirstName: "Grace", LastName: "Hopper",
			CompanyWebsite: "https://grace.example.com"},
		{Index: 2, FirstName: "Alan", LastName: "Turing"},
	}

	id, err := e.Create(context.Background(), rows, campaign.Default("Q3"))
	require.NoError(t, err)

	job := waitForTerminal(t, st, id)
	assert.Equal(t, types.JobCompleted, job.Status)
	// Ada's profile URL plus both company websites.
	assert.Equal(t, 3, sc.calls)

	byIndex := make(map[int]types.RecordOutcome)
	for _, o := range job.Outcomes {
		byIndex[o.Index] = o
	}
	assert.Equal(t, types.FetchOK, byIndex[0].ProfileStatus)
	assert.Equal(t, types.FetchOK, byIndex[0].CompanyStatus)
	assert.Equal(t, types.FetchStatus(""), byIndex[1].ProfileStatus)
	assert.Equal(t, types.FetchBlocked, byIndex[1].CompanyStatus)
	assert.Equal(t, types.FetchStatus(""), byIndex[2].CompanyStatus)

	require.NotNil(t, job.Summary)
	assert.Equal(t, types.ScrapingStats{
		ProfileSuccess: 1,
		CompanySuccess: 1,
		CompanyFailure: 1,
	}, job.Summary.Scraping)
}

func TestJob_GenerationFailureIsRecordLevel(t *testing.T) {
	st := store.NewMemory()
	gen := &stubGenerator{failFor: map[string]bool{"Grace": true}}
	e := testEngine(t, st, nil, gen)

	id, err := e.Create(context.Background(), validRows(3), campaign.Default("Q3"))
	require.NoError(t, err)

	job := waitForTerminal(t, st, id)
	assert.Equal(t, types.JobCompleted, job.Status)
	assert.Equal(t, 1, job.ErrorCount())

	errs := job.RecentErrors(3)
	require.Len(t, errs, 1)
	assert.Equal(t, types.ErrorGeneration, errs[0].ErrorKind)
	assert.Contains(t, errs[0].ErrorMessage, "model unavailable")
}

// failingStore fails the first n Update calls to simulate an unwritable
// store; failJob's own update then succeeds.
type failingStore struct {
	store.Store
	mu       sync.Mutex
	failures int
}

func (f *failingStore) Update(ctx context.Context, id uuid.UUID, mutate func(*types.Job) error) (*types.Job, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return nil, errors.New("connection refused")
	}
	f.mu.Unlock()
	return f.Store.Update(ctx, id, mutate)
}

func TestJob_InfrastructureFailureFailsJob(t *testing.T) {
	st := &failingStore{Store: store.NewMemory(), failures: 1}
	e := testEngine(t, st, nil, nil)

	id, err := e.Create(context.Background(), validRows(1), campaign.Default("Q3"))
	require.NoError(t, err)

	job := waitForTerminal(t, st, id)
	assert.Equal(t, types.JobFailed, job.Status)
	assert.Contains(t, job.FailureReason, "connection refused")
	require.NotNil(t, job.CompletedAt)
	assert.Nil(t, job.Artifact)
}

func TestJob_ProcessedNeverExceedsTotal(t *testing.T) {
	st := store.NewMemory()
	e := testEngine(t, st, nil, nil)

	id, err := e.Create(context.Background(), validRows(5), campaign.Default("Q3"))
	require.NoError(t, err)

	last := 0
	require.Eventually(t, func() bool {
		j, err := st.Get(context.Background(), id)
		if err != nil {
			return false
		}
		assert.GreaterOrEqual(t, j.Processed, last)
		assert.LessOrEqual(t, j.Processed, j.Total)
		assert.Len(t, j.Outcomes, j.Processed)
		last = j.Processed
		return j.Status.Terminal()
	}, 5*time.Second, time.Millisecond)
}

func TestJob_TwoJobsShareThePool(t *testing.T) {
	st := store.NewMemory()
	e := testEngine(t, st, nil, nil)

	big, err := e.Create(context.Background(), validRows(5), campaign.Default("big"))
	require.NoError(t, err)
	small, err := e.Create(context.Background(), validRows(2), campaign.Default("small"))
	require.NoError(t, err)

	bigJob := waitForTerminal(t, st, big)
	smallJob := waitForTerminal(t, st, small)
	assert.Equal(t, types.JobCompleted, bigJob.Status)
	assert.Equal(t, types.JobCompleted, smallJob.Status)
}

func TestGet_UnknownJob(t *testing.T) {
	st := store.NewMemory()
	e := testEngine(t, st, nil, nil)

	_, err := e.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGet_SnapshotIsStableWithoutProgress(t *testing.T) {
	st := store.NewMemory()
	e := testEngine(t, st, nil, nil)

	id, err := e.Create(context.Background(), validRows(2), campaign.Default("Q3"))
	require.NoError(t, err)
	waitForTerminal(t, st, id)

	first, err := e.Get(context.Background(), id)
	require.NoError(t, err)
	second, err := e.Get(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, first.ProgressPercent, second.ProgressPercent)
	assert.Equal(t, first.EstimatedRemainingSeconds, second.EstimatedRemainingSeconds)
	assert.Equal(t, first.Job.Outcomes, second.Job.Outcomes)
}
