package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/pkg/metrics"
	"github.com/user/scrapex-service/pkg/utils"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxBulkURLs      = 100
)

// JobScheduler registers recurring jobs with the cron runner.
type JobScheduler interface {
	Schedule(job *entity.ScrapingJob) error
}

// SubmitJobInput is a single scrape request.
type SubmitJobInput struct {
	URL        string
	ScrapeType string
	Schedule   string
	Force      bool
}

type RejectedURL struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

type BulkSubmitResult struct {
	JobIDs   []string      `json:"job_ids"`
	Rejected []RejectedURL `json:"rejected"`
}

// JobManager defines the interface for submitting and inspecting scraping jobs.
type JobManager interface {
	Submit(ctx context.Context, userID string, in SubmitJobInput) (*entity.ScrapingJob, error)
	SubmitBulk(ctx context.Context, userID string, urls []string, scrapeType string) (*BulkSubmitResult, error)
	Get(ctx context.Context, userID, id string) (*entity.ScrapingJob, error)
	List(ctx context.Context, userID, status string, limit int) ([]*entity.ScrapingJob, error)
	Rerun(ctx context.Context, userID, id string) (*entity.ScrapingJob, error)
}

type jobUseCase struct {
	jobs      repository.JobRepository
	queue     repository.QueueRepository
	dedup     repository.DedupRepository
	events    repository.EventPublisher
	scheduler JobScheduler
	window    time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewJobManager creates a JobManager. scheduler may be nil, in which case
// schedules are stored but never fired.
func NewJobManager(
	jobs repository.JobRepository,
	queue repository.QueueRepository,
	dedup repository.DedupRepository,
	events repository.EventPublisher,
	scheduler JobScheduler,
	dedupWindow time.Duration,
	logger *zap.Logger,
) JobManager {
	return &jobUseCase{
		jobs:      jobs,
		queue:     queue,
		dedup:     dedup,
		events:    events,
		scheduler: scheduler,
		window:    dedupWindow,
		logger:    logger,
		now:       time.Now,
	}
}

func (uc *jobUseCase) Submit(ctx context.Context, userID string, in SubmitJobInput) (*entity.ScrapingJob, error) {
	target, err := utils.NormalizeURL(in.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	scrapeType, ok := entity.ParseScrapeType(in.ScrapeType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown scrape_type %q", ErrInvalidInput, in.ScrapeType)
	}
	if in.Schedule != "" {
		if _, err := cron.ParseStandard(in.Schedule); err != nil {
			return nil, fmt.Errorf("%w: invalid schedule: %v", ErrInvalidInput, err)
		}
	}

	if in.Force {
		if err := uc.dedup.MarkScraped(ctx, target, uc.window); err != nil {
			uc.logger.Warn("Failed to mark URL as scraped", zap.String("url", target), zap.Error(err))
		}
	} else {
		claimed, err := uc.dedup.Claim(ctx, target, uc.window)
		if err != nil {
			return nil, fmt.Errorf("failed to check dedup state for %s: %w", target, err)
		}
		if !claimed {
			return nil, ErrURLRecentlyScraped
		}
	}

	now := uc.now().UTC()
	job := &entity.ScrapingJob{
		ID:         uuid.NewString(),
		UserID:     userID,
		URL:        target,
		ScrapeType: scrapeType,
		Status:     entity.JobStatusPending,
		Schedule:   in.Schedule,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		uc.releaseClaim(ctx, target)
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	if err := uc.queue.Push(ctx, job.ID); err != nil {
		uc.abandon(ctx, job, err)
		return nil, fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	metrics.JobsInQueue.Inc()

	if job.Schedule != "" && uc.scheduler != nil {
		if err := uc.scheduler.Schedule(job); err != nil {
			uc.logger.Warn("Failed to register job schedule", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	uc.logger.Info("Job submitted",
		zap.String("job_id", job.ID),
		zap.String("url", target),
		zap.String("scrape_type", string(scrapeType)),
	)
	return job, nil
}

// abandon fails a job whose id never reached the queue so it does not sit in
// pending forever, and frees the URL for the next submit.
func (uc *jobUseCase) abandon(ctx context.Context, job *entity.ScrapingJob, cause error) {
	dctx, cancel := detach(ctx)
	defer cancel()

	msg := fmt.Sprintf("enqueue failed: %v", cause)
	if err := uc.jobs.Transition(dctx, job.ID, entity.JobStatusPending, entity.JobStatusFailed, nil, msg); err != nil {
		uc.logger.Error("Failed to mark unqueued job as failed", zap.String("job_id", job.ID), zap.Error(err))
	} else {
		publishTransition(dctx, uc.events, job, entity.JobStatusPending, entity.JobStatusFailed)
	}
	uc.releaseClaim(dctx, job.URL)
}

func (uc *jobUseCase) releaseClaim(ctx context.Context, url string) {
	dctx, cancel := detach(ctx)
	defer cancel()
	if err := uc.dedup.Forget(dctx, url); err != nil {
		uc.logger.Warn("Failed to release dedup claim", zap.String("url", url), zap.Error(err))
	}
}

// SubmitBulk creates one job per URL. URLs that fail validation or were
// scraped recently are reported back instead of failing the batch.
func (uc *jobUseCase) SubmitBulk(ctx context.Context, userID string, urls []string, scrapeType string) (*BulkSubmitResult, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: urls must not be empty", ErrInvalidInput)
	}
	if len(urls) > maxBulkURLs {
		return nil, fmt.Errorf("%w: at most %d urls per request", ErrInvalidInput, maxBulkURLs)
	}

	result := &BulkSubmitResult{JobIDs: []string{}, Rejected: []RejectedURL{}}
	for _, u := range urls {
		job, err := uc.Submit(ctx, userID, SubmitJobInput{URL: u, ScrapeType: scrapeType})
		switch {
		case err == nil:
			result.JobIDs = append(result.JobIDs, job.ID)
		case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrURLRecentlyScraped):
			result.Rejected = append(result.Rejected, RejectedURL{URL: u, Reason: err.Error()})
		default:
			return nil, err
		}
	}
	return result, nil
}

func (uc *jobUseCase) Get(ctx context.Context, userID, id string) (*entity.ScrapingJob, error) {
	job, err := uc.jobs.GetForUser(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	return job, nil
}

func (uc *jobUseCase) List(ctx context.Context, userID, status string, limit int) ([]*entity.ScrapingJob, error) {
	var st entity.JobStatus
	if status != "" {
		parsed, ok := entity.ParseJobStatus(status)
		if !ok {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
		}
		st = parsed
	}
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	jobs, err := uc.jobs.List(ctx, userID, st, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func (uc *jobUseCase) Rerun(ctx context.Context, userID, id string) (*entity.ScrapingJob, error) {
	job, err := uc.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := requeueJob(ctx, uc.jobs, uc.queue, uc.events, job); err != nil {
		return nil, err
	}
	return uc.Get(ctx, userID, id)
}

// requeueJob moves a finished job back to pending and pushes it on the queue.
// Shared by manual re-runs and cron ticks.
func requeueJob(
	ctx context.Context,
	jobs repository.JobRepository,
	queue repository.QueueRepository,
	events repository.EventPublisher,
	job *entity.ScrapingJob,
) error {
	from := job.Status
	if !from.Finished() || !entity.CanTransition(from, entity.JobStatusPending) {
		return fmt.Errorf("%w: job %s is %s", ErrInvalidTransition, job.ID, from)
	}
	if err := jobs.Transition(ctx, job.ID, from, entity.JobStatusPending, nil, ""); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) || errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: job %s changed state", ErrInvalidTransition, job.ID)
		}
		return fmt.Errorf("failed to reset job %s: %w", job.ID, err)
	}
	if err := queue.Push(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	metrics.JobsInQueue.Inc()

	publishTransition(ctx, events, job, from, entity.JobStatusPending)
	return nil
}

// finalizeTimeout bounds writes that must land even after the caller's
// context is cancelled.
const finalizeTimeout = 10 * time.Second

// detach keeps ctx values but drops its cancellation.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}

func publishTransition(ctx context.Context, events repository.EventPublisher, job *entity.ScrapingJob, from, to entity.JobStatus) {
	if events == nil {
		return
	}
	err := events.PublishJobEvent(ctx, entity.JobEvent{
		JobID:  job.ID,
		UserID: job.UserID,
		URL:    job.URL,
		From:   from,
		To:     to,
		At:     time.Now().UTC(),
	})
	if err != nil {
		zap.L().Warn("Failed to publish job event", zap.String("job_id", job.ID), zap.Error(err))
	}
}
