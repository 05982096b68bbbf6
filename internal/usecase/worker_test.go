package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

const clinicHTML = `<html><head><title>Riverside Family Clinic</title>
<meta name="viewport" content="width=device-width"></head>
<body><h1>Riverside Family Clinic</h1>
<p>Call us at (555) 123-4567. Primary care and pediatrics.</p>
<address>12 River Rd, Springfield</address>
</body></html>`

type workerFixture struct {
	jobs       *fakeJobRepo
	queue      *fakeQueue
	events     *fakeEvents
	dispatcher *fakeDispatcher
	fetcher    *fakeFetcher
	renderer   *fakeFetcher
	pool       *WorkerPool
}

func newWorkerFixture(withRenderer bool) *workerFixture {
	f := &workerFixture{
		jobs:       newFakeJobRepo(),
		queue:      &fakeQueue{},
		events:     &fakeEvents{},
		dispatcher: &fakeDispatcher{},
		fetcher:    &fakeFetcher{page: &entity.Page{StatusCode: 200, HTML: clinicHTML}},
	}
	var renderer repository.PageFetcher
	if withRenderer {
		f.renderer = &fakeFetcher{page: &entity.Page{StatusCode: 200, HTML: clinicHTML}}
		renderer = f.renderer
	}
	f.pool = NewWorkerPool(f.jobs, f.queue, f.events, f.dispatcher, f.fetcher, renderer, 2, 10*time.Millisecond, testLogger)
	return f
}

func (f *workerFixture) enqueue(t *testing.T, scrapeType entity.ScrapeType) *entity.ScrapingJob {
	t.Helper()
	job := &entity.ScrapingJob{
		ID:         fmt.Sprintf("job-%d", len(f.jobs.jobs)+1),
		UserID:     "user-1",
		URL:        "https://riverside.example.com",
		ScrapeType: scrapeType,
		Status:     entity.JobStatusPending,
	}
	require.NoError(t, f.jobs.Create(context.Background(), job))
	require.NoError(t, f.queue.Push(context.Background(), job.ID))
	return job
}

func TestProcessNext_CompletesFacilityJob(t *testing.T) {
	f := newWorkerFixture(false)
	job := f.enqueue(t, entity.ScrapeTypeFacility)

	require.NoError(t, f.pool.ProcessNext(context.Background()))

	stored, err := f.jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, stored.Status)

	var facility entity.FacilityData
	require.NoError(t, json.Unmarshal(stored.Results, &facility))
	assert.Equal(t, "Riverside Family Clinic", facility.FacilityName)
	assert.Equal(t, []string{"(555) 123-4567"}, facility.Phones)

	assert.Equal(t, []string{"pending>processing", "processing>completed"}, f.events.transitions())
	assert.Equal(t, []string{entity.EventJobCompleted}, f.dispatcher.events())
}

func TestProcessNext_AuditJobStoresAudit(t *testing.T) {
	f := newWorkerFixture(false)
	job := f.enqueue(t, entity.ScrapeTypeAudit)

	require.NoError(t, f.pool.ProcessNext(context.Background()))

	stored, _ := f.jobs.Get(context.Background(), job.ID)
	var result entity.AuditResult
	require.NoError(t, json.Unmarshal(stored.Results, &result))
	require.NotNil(t, result.Facility)
	assert.Equal(t, "Riverside Family Clinic", result.Audit.FacilityName)
	assert.NotEmpty(t, result.Audit.Leaks)
}

func TestProcessNext_LeadJobStoresPrediction(t *testing.T) {
	f := newWorkerFixture(false)
	llm := &fakeLLM{reply: `{"lead_score": 82, "urgency": "high", "recommended_pitch": "Online booking"}`}
	f.pool.WithLeadPredictor(NewLeadScorer(llm, testLogger))
	job := f.enqueue(t, entity.ScrapeTypeLead)

	require.NoError(t, f.pool.ProcessNext(context.Background()))

	stored := f.jobs.job(job.ID)
	require.Equal(t, entity.JobStatusCompleted, stored.Status)
	var result entity.LeadResult
	require.NoError(t, json.Unmarshal(stored.Results, &result))
	require.NotNil(t, result.Facility)
	assert.Equal(t, "Riverside Family Clinic", result.Facility.FacilityName)
	assert.Equal(t, 82, result.Lead.LeadScore)
	assert.Equal(t, "ai", result.Lead.Source)
	assert.Equal(t, 1, llm.calls)
}

func TestProcessNext_LeadJobWithoutPredictorUsesHeuristic(t *testing.T) {
	f := newWorkerFixture(false)
	job := f.enqueue(t, entity.ScrapeTypeLead)

	require.NoError(t, f.pool.ProcessNext(context.Background()))

	var result entity.LeadResult
	require.NoError(t, json.Unmarshal(f.jobs.job(job.ID).Results, &result))
	assert.Equal(t, "heuristic", result.Lead.Source)
	assert.Positive(t, result.Lead.LeadScore)
}

func TestProcessNext_FailedFetchMarksJobFailed(t *testing.T) {
	f := newWorkerFixture(false)
	f.fetcher.err = fmt.Errorf("%w: after 30s", repository.ErrFetchTimeout)
	job := f.enqueue(t, entity.ScrapeTypeFacility)

	require.NoError(t, f.pool.ProcessNext(context.Background()))

	stored, _ := f.jobs.Get(context.Background(), job.ID)
	assert.Equal(t, entity.JobStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "timed out")
	assert.Equal(t, []string{"pending>processing", "processing>failed"}, f.events.transitions())
	assert.Equal(t, []string{entity.EventJobFailed}, f.dispatcher.events())
}

func TestProcessNext_RenderedJobsUseRenderer(t *testing.T) {
	f := newWorkerFixture(true)
	f.enqueue(t, entity.ScrapeTypeRendered)

	require.NoError(t, f.pool.ProcessNext(context.Background()))
	assert.Equal(t, 1, f.renderer.calls)
	assert.Equal(t, 0, f.fetcher.calls)
}

func TestProcessNext_RenderedFallsBackWithoutRenderer(t *testing.T) {
	f := newWorkerFixture(false)
	f.enqueue(t, entity.ScrapeTypeRendered)

	require.NoError(t, f.pool.ProcessNext(context.Background()))
	assert.Equal(t, 1, f.fetcher.calls)
}

func TestProcessNext_EmptyQueue(t *testing.T) {
	f := newWorkerFixture(false)
	assert.NoError(t, f.pool.ProcessNext(context.Background()))
	assert.Equal(t, 0, f.fetcher.calls)
}

func TestProcess_SkipsJobsNoLongerPending(t *testing.T) {
	f := newWorkerFixture(false)
	job := f.enqueue(t, entity.ScrapeTypeFacility)
	require.NoError(t, f.jobs.Transition(context.Background(), job.ID, entity.JobStatusPending, entity.JobStatusProcessing, nil, ""))

	require.NoError(t, f.pool.Process(context.Background(), job.ID))
	assert.Equal(t, 0, f.fetcher.calls)
	assert.Equal(t, entity.JobStatusProcessing, f.jobs.status(job.ID))
}

func TestProcess_MissingJob(t *testing.T) {
	f := newWorkerFixture(false)
	assert.NoError(t, f.pool.Process(context.Background(), "ghost"))
}

func TestRun_DrainsQueueUntilCancelled(t *testing.T) {
	f := newWorkerFixture(false)
	a := f.enqueue(t, entity.ScrapeTypeFacility)
	b := f.enqueue(t, entity.ScrapeTypeFacility)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.pool.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return f.jobs.status(a.ID) == entity.JobStatusCompleted && f.jobs.status(b.ID) == entity.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker pool did not stop")
	}
}

// blockingFetcher holds the fetch open until the worker's context is done.
type blockingFetcher struct {
	started chan struct{}
	once    sync.Once
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{started: make(chan struct{})}
}

func (b *blockingFetcher) Fetch(ctx context.Context, _ string) (*entity.Page, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, fmt.Errorf("%w: %v", repository.ErrFetchTimeout, ctx.Err())
}

// cancellingFetcher returns a good page but cancels the worker on the way out.
type cancellingFetcher struct {
	cancel context.CancelFunc
}

func (c *cancellingFetcher) Fetch(_ context.Context, url string) (*entity.Page, error) {
	c.cancel()
	return &entity.Page{URL: url, StatusCode: 200, HTML: clinicHTML}, nil
}

func TestRun_StopReleasesInFlightJob(t *testing.T) {
	f := newWorkerFixture(false)
	blocking := newBlockingFetcher()
	pool := NewWorkerPool(f.jobs, f.queue, f.events, f.dispatcher, blocking, nil, 2, 10*time.Millisecond, testLogger)
	job := f.enqueue(t, entity.ScrapeTypeFacility)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	select {
	case <-blocking.started:
	case <-time.After(2 * time.Second):
		t.Fatal("job was never picked up")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker pool did not stop")
	}

	assert.Equal(t, entity.JobStatusPending, f.jobs.status(job.ID), "a stopped worker must not leave the job in processing")
	assert.Equal(t, 1, f.queue.size())
	assert.Equal(t, []string{"pending>processing", "processing>pending"}, f.events.transitions())
	assert.Empty(t, f.dispatcher.events())

	require.NoError(t, f.pool.ProcessNext(context.Background()))
	assert.Equal(t, entity.JobStatusCompleted, f.jobs.status(job.ID))
	assert.Equal(t, []string{entity.EventJobCompleted}, f.dispatcher.events())
}

func TestProcess_RecordsCompletionAfterCancel(t *testing.T) {
	f := newWorkerFixture(false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool := NewWorkerPool(f.jobs, f.queue, f.events, f.dispatcher, &cancellingFetcher{cancel: cancel}, nil, 1, 10*time.Millisecond, testLogger)
	job := f.enqueue(t, entity.ScrapeTypeFacility)

	require.NoError(t, pool.Process(ctx, job.ID))

	assert.Equal(t, entity.JobStatusCompleted, f.jobs.status(job.ID))
	assert.NotEmpty(t, f.jobs.job(job.ID).Results)
	assert.Equal(t, []string{"pending>processing", "processing>completed"}, f.events.transitions())
	assert.Equal(t, []string{entity.EventJobCompleted}, f.dispatcher.events())
}

func TestProcess_CancelledBeforeClaimRequeues(t *testing.T) {
	f := newWorkerFixture(false)
	job := f.enqueue(t, entity.ScrapeTypeFacility)
	id, err := f.queue.Pop(context.Background(), time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, job.ID, id)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = f.pool.Process(ctx, job.ID)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, entity.JobStatusPending, f.jobs.status(job.ID))
	assert.Equal(t, 1, f.queue.size(), "popped id goes back on the queue")
	assert.Equal(t, 0, f.fetcher.calls)
}

func TestClassifyScrapeError(t *testing.T) {
	assert.Equal(t, "timeout", classifyScrapeError(repository.ErrFetchTimeout))
	assert.Equal(t, "restricted", classifyScrapeError(fmt.Errorf("%w: 403", repository.ErrContentRestricted)))
	assert.Equal(t, "navigation", classifyScrapeError(repository.ErrNavigationFailed))
	assert.Equal(t, "http_status", classifyScrapeError(repository.ErrUnexpectedStatus))
	assert.Equal(t, "unknown", classifyScrapeError(fmt.Errorf("boom")))
}
