package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scrapex-service/internal/entity"
)

type jobFixture struct {
	jobs      *fakeJobRepo
	queue     *fakeQueue
	dedup     *fakeDedup
	events    *fakeEvents
	scheduler *fakeScheduler
	uc        JobManager
}

func newJobFixture() *jobFixture {
	f := &jobFixture{
		jobs:      newFakeJobRepo(),
		queue:     &fakeQueue{},
		dedup:     newFakeDedup(),
		events:    &fakeEvents{},
		scheduler: &fakeScheduler{},
	}
	f.uc = NewJobManager(f.jobs, f.queue, f.dedup, f.events, f.scheduler, 48*time.Hour, testLogger)
	return f
}

func TestSubmit_QueuesPendingJob(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	job, err := f.uc.Submit(ctx, "user-1", SubmitJobInput{URL: "clinic.example.com/about"})
	require.NoError(t, err)

	assert.Equal(t, "https://clinic.example.com/about", job.URL)
	assert.Equal(t, entity.ScrapeTypeFacility, job.ScrapeType)
	assert.Equal(t, entity.JobStatusPending, job.Status)
	assert.Equal(t, []string{job.ID}, f.queue.ids)
	assert.Equal(t, 48*time.Hour, f.dedup.seen[job.URL])
	assert.Empty(t, f.scheduler.scheduled)
}

func TestSubmit_RejectsRecentlyScrapedUnlessForced(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	_, err := f.uc.Submit(ctx, "user-1", SubmitJobInput{URL: "https://clinic.example.com"})
	require.NoError(t, err)

	_, err = f.uc.Submit(ctx, "user-1", SubmitJobInput{URL: "https://clinic.example.com"})
	assert.ErrorIs(t, err, ErrURLRecentlyScraped)

	_, err = f.uc.Submit(ctx, "user-1", SubmitJobInput{URL: "https://clinic.example.com", Force: true})
	assert.NoError(t, err)
	assert.Len(t, f.queue.ids, 2)
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   SubmitJobInput
	}{
		{"empty url", SubmitJobInput{}},
		{"ftp scheme", SubmitJobInput{URL: "ftp://files.example.com"}},
		{"unknown scrape type", SubmitJobInput{URL: "https://a.example.com", ScrapeType: "pdf"}},
		{"bad schedule", SubmitJobInput{URL: "https://a.example.com", Schedule: "every tuesday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newJobFixture()
			_, err := f.uc.Submit(context.Background(), "user-1", tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, f.queue.ids)
		})
	}
}

func TestSubmit_RegistersSchedule(t *testing.T) {
	f := newJobFixture()
	job, err := f.uc.Submit(context.Background(), "user-1", SubmitJobInput{
		URL:        "https://clinic.example.com",
		ScrapeType: "audit",
		Schedule:   "0 6 * * 1",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ScrapeTypeAudit, job.ScrapeType)
	assert.Equal(t, []string{job.ID}, f.scheduler.scheduled)
}

func TestSubmit_QueueFailureFailsJobAndReleasesURL(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()
	f.queue.setErr(errors.New("redis down"))

	_, err := f.uc.Submit(ctx, "user-1", SubmitJobInput{URL: "https://clinic.example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidInput)

	stored, err := f.jobs.List(ctx, "user-1", "", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, entity.JobStatusFailed, stored[0].Status, "no job may sit in pending without a queue entry")
	assert.Contains(t, stored[0].Error, "enqueue failed")
	assert.Equal(t, []string{"pending>failed"}, f.events.transitions())
	assert.NotContains(t, f.dedup.seen, "https://clinic.example.com")

	f.queue.setErr(nil)
	rerun, err := f.uc.Rerun(ctx, "user-1", stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusPending, rerun.Status)
	assert.Equal(t, []string{stored[0].ID}, f.queue.ids)

	_, err = f.uc.Submit(ctx, "user-1", SubmitJobInput{URL: "https://clinic.example.com"})
	assert.NoError(t, err, "URL was released after the failed submit")
}

func TestSubmit_QueueFailureSurvivesCancelledRequest(t *testing.T) {
	f := newJobFixture()
	ctx, cancel := context.WithCancel(context.Background())
	q := &cancelOnPushQueue{fakeQueue: f.queue, cancel: cancel}
	f.uc = NewJobManager(f.jobs, q, f.dedup, f.events, f.scheduler, 48*time.Hour, testLogger)

	_, err := f.uc.Submit(ctx, "user-1", SubmitJobInput{URL: "https://clinic.example.com"})
	require.ErrorIs(t, err, context.Canceled)

	stored, err := f.jobs.List(context.Background(), "user-1", "", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, entity.JobStatusFailed, stored[0].Status)
	assert.Empty(t, f.dedup.seen)
}

// cancelOnPushQueue cancels the request just as the push is attempted.
type cancelOnPushQueue struct {
	*fakeQueue
	cancel context.CancelFunc
}

func (q *cancelOnPushQueue) Push(ctx context.Context, id string) error {
	q.cancel()
	return q.fakeQueue.Push(ctx, id)
}

func TestSubmit_ConcurrentSameURLQueuesOnce(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.Submit(ctx, "user-1", SubmitJobInput{URL: "https://clinic.example.com"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, ErrURLRecentlyScraped)
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, f.queue.size())
}

func TestSubmitBulk_ReportsRejected(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()
	_, err := f.uc.Submit(ctx, "user-1", SubmitJobInput{URL: "https://seen.example.com"})
	require.NoError(t, err)

	res, err := f.uc.SubmitBulk(ctx, "user-1", []string{
		"https://a.example.com",
		"https://seen.example.com",
		"ftp://files.example.com",
		"b.example.com",
	}, "")
	require.NoError(t, err)

	assert.Len(t, res.JobIDs, 2)
	require.Len(t, res.Rejected, 2)
	assert.Equal(t, "https://seen.example.com", res.Rejected[0].URL)
	assert.Equal(t, "ftp://files.example.com", res.Rejected[1].URL)

	_, err = f.uc.SubmitBulk(ctx, "user-1", nil, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGet_HidesOtherUsersJobs(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()
	job, err := f.uc.Submit(ctx, "user-1", SubmitJobInput{URL: "https://clinic.example.com"})
	require.NoError(t, err)

	got, err := f.uc.Get(ctx, "user-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = f.uc.Get(ctx, "user-2", job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestList_FiltersAndValidatesStatus(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()
	a, _ := f.uc.Submit(ctx, "user-1", SubmitJobInput{URL: "https://a.example.com"})
	_, _ = f.uc.Submit(ctx, "user-1", SubmitJobInput{URL: "https://b.example.com"})
	require.NoError(t, f.jobs.Transition(ctx, a.ID, entity.JobStatusPending, entity.JobStatusProcessing, nil, ""))

	all, err := f.uc.List(ctx, "user-1", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	processing, err := f.uc.List(ctx, "user-1", "processing", 10)
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, a.ID, processing[0].ID)

	_, err = f.uc.List(ctx, "user-1", "archived", 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRerun(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()
	job, err := f.uc.Submit(ctx, "user-1", SubmitJobInput{URL: "https://clinic.example.com"})
	require.NoError(t, err)

	_, err = f.uc.Rerun(ctx, "user-1", job.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "pending jobs cannot be re-run")

	require.NoError(t, f.jobs.Transition(ctx, job.ID, entity.JobStatusPending, entity.JobStatusProcessing, nil, ""))
	require.NoError(t, f.jobs.Transition(ctx, job.ID, entity.JobStatusProcessing, entity.JobStatusFailed, nil, "boom"))

	rerun, err := f.uc.Rerun(ctx, "user-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusPending, rerun.Status)
	assert.Empty(t, rerun.Error)
	assert.Equal(t, []string{job.ID, job.ID}, f.queue.ids)
	assert.Equal(t, []string{"failed>pending"}, f.events.transitions())

	_, err = f.uc.Rerun(ctx, "user-2", job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}
