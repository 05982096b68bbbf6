package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/extractor"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/internal/scoring"
	"github.com/user/scrapex-service/pkg/metrics"
	"github.com/user/scrapex-service/pkg/utils"
)

// WorkerPool consumes job ids from the queue and runs the scrape pipeline.
type WorkerPool struct {
	jobs        repository.JobRepository
	queue       repository.QueueRepository
	events      repository.EventPublisher
	dispatcher  EventDispatcher
	fetcher     repository.PageFetcher
	renderer    repository.PageFetcher
	leads       LeadPredictor
	workers     int
	pollTimeout time.Duration
	logger      *zap.Logger
}

// NewWorkerPool creates a pool of n workers. renderer serves rendered jobs
// and may be nil, in which case they fall back to the plain fetcher.
func NewWorkerPool(
	jobs repository.JobRepository,
	queue repository.QueueRepository,
	events repository.EventPublisher,
	dispatcher EventDispatcher,
	fetcher repository.PageFetcher,
	renderer repository.PageFetcher,
	workers int,
	pollTimeout time.Duration,
	logger *zap.Logger,
) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		jobs:        jobs,
		queue:       queue,
		events:      events,
		dispatcher:  dispatcher,
		fetcher:     fetcher,
		renderer:    renderer,
		workers:     workers,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// LeadPredictor scores an extracted facility for lead jobs.
type LeadPredictor interface {
	Predict(ctx context.Context, f *entity.FacilityData) (entity.LeadPrediction, error)
}

// WithLeadPredictor sets the scorer used by lead jobs. Without one they use
// the heuristic score.
func (p *WorkerPool) WithLeadPredictor(leads LeadPredictor) *WorkerPool {
	p.leads = leads
	return p
}

// Run blocks until ctx is cancelled and every worker has returned.
func (p *WorkerPool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	p.logger.Info("Scrape workers started", zap.Int("workers", p.workers))
	wg.Wait()
	p.logger.Info("Scrape workers stopped")
}

func (p *WorkerPool) loop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := p.ProcessNext(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("Worker failed to process job", zap.Int("worker", id), zap.Error(err))
			// Back off so a broken Redis connection doesn't spin the loop.
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollTimeout):
			}
		}
	}
}

// ProcessNext pops one job id and processes it. An empty queue is not an error.
func (p *WorkerPool) ProcessNext(ctx context.Context) error {
	jobID, err := p.queue.Pop(ctx, p.pollTimeout)
	if err != nil {
		if errors.Is(err, repository.ErrQueueEmpty) {
			return nil
		}
		return fmt.Errorf("failed to pop job from queue: %w", err)
	}
	metrics.JobsInQueue.Dec()
	return p.Process(ctx, jobID)
}

// Process runs a single job through fetch, extraction and, for audit and
// lead jobs, the revenue audit or lead analysis. Jobs no longer pending are
// skipped.
func (p *WorkerPool) Process(ctx context.Context, jobID string) error {
	job, err := p.jobs.Get(ctx, jobID)
	if errors.Is(err, repository.ErrNotFound) {
		p.logger.Warn("Queued job no longer exists", zap.String("job_id", jobID))
		return nil
	}
	if err != nil {
		if ctx.Err() != nil {
			p.requeue(ctx, jobID)
		}
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	err = p.jobs.Transition(ctx, job.ID, entity.JobStatusPending, entity.JobStatusProcessing, nil, "")
	if errors.Is(err, repository.ErrStaleStatus) {
		p.logger.Info("Skipping job that is no longer pending", zap.String("job_id", job.ID), zap.String("status", string(job.Status)))
		return nil
	}
	if err != nil {
		if ctx.Err() != nil {
			p.requeue(ctx, job.ID)
		}
		return fmt.Errorf("failed to claim job %s: %w", job.ID, err)
	}
	publishTransition(ctx, p.events, job, entity.JobStatusPending, entity.JobStatusProcessing)

	p.logger.Info("Processing job", zap.String("job_id", job.ID), zap.String("url", job.URL))
	start := time.Now()
	results, scrapeErr := p.scrape(ctx, job)
	metrics.ScrapeDuration.WithLabelValues(utils.Domain(job.URL)).Observe(time.Since(start).Seconds())

	// Outcome writes outlive a cancelled worker context.
	fctx, cancel := detach(ctx)
	defer cancel()
	switch {
	case scrapeErr != nil && ctx.Err() != nil:
		return p.release(fctx, job, scrapeErr)
	case scrapeErr != nil:
		return p.fail(fctx, job, scrapeErr)
	}
	return p.complete(fctx, job, results, time.Since(start))
}

// release hands a job interrupted by shutdown back to the queue so another
// worker, or the next process, runs it from the start.
func (p *WorkerPool) release(ctx context.Context, job *entity.ScrapingJob, cause error) error {
	err := p.jobs.Transition(ctx, job.ID, entity.JobStatusProcessing, entity.JobStatusPending, nil, "")
	if err != nil {
		return fmt.Errorf("failed to release job %s: %w", job.ID, err)
	}
	publishTransition(ctx, p.events, job, entity.JobStatusProcessing, entity.JobStatusPending)

	if err := p.queue.Push(ctx, job.ID); err != nil {
		p.logger.Error("Failed to requeue released job", zap.String("job_id", job.ID), zap.Error(err))
		if ferr := p.jobs.Transition(ctx, job.ID, entity.JobStatusPending, entity.JobStatusFailed, nil, fmt.Sprintf("enqueue failed: %v", err)); ferr != nil {
			return fmt.Errorf("failed to mark job %s as failed: %w", job.ID, ferr)
		}
		publishTransition(ctx, p.events, job, entity.JobStatusPending, entity.JobStatusFailed)
		return nil
	}
	metrics.JobsInQueue.Inc()
	p.logger.Info("Job released back to queue", zap.String("job_id", job.ID), zap.NamedError("cause", cause))
	return nil
}

// requeue puts back an id that was popped but never claimed.
func (p *WorkerPool) requeue(ctx context.Context, jobID string) {
	dctx, cancel := detach(ctx)
	defer cancel()
	if err := p.queue.Push(dctx, jobID); err != nil {
		p.logger.Error("Failed to requeue unclaimed job", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	metrics.JobsInQueue.Inc()
}

func (p *WorkerPool) scrape(ctx context.Context, job *entity.ScrapingJob) (json.RawMessage, error) {
	fetcher := p.fetcher
	if job.ScrapeType == entity.ScrapeTypeRendered && p.renderer != nil {
		fetcher = p.renderer
	}

	page, err := fetcher.Fetch(ctx, job.URL)
	if err != nil {
		return nil, err
	}
	pageURL := page.FinalURL
	if pageURL == "" {
		pageURL = job.URL
	}
	facility, err := extractor.ExtractFacility(pageURL, page.HTML)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errExtraction, err)
	}

	var out any = facility
	switch job.ScrapeType {
	case entity.ScrapeTypeAudit:
		out = entity.AuditResult{Facility: facility, Audit: scoring.AuditRevenue(facility)}
	case entity.ScrapeTypeLead:
		lead, err := p.predictLead(ctx, facility)
		if err != nil {
			return nil, err
		}
		out = entity.LeadResult{Facility: facility, Lead: lead}
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errExtraction, err)
	}
	return raw, nil
}

var errExtraction = errors.New("extraction failed")

func (p *WorkerPool) predictLead(ctx context.Context, f *entity.FacilityData) (entity.LeadPrediction, error) {
	if p.leads == nil {
		return scoring.HeuristicLeadScore(f), nil
	}
	return p.leads.Predict(ctx, f)
}

func (p *WorkerPool) complete(ctx context.Context, job *entity.ScrapingJob, results json.RawMessage, took time.Duration) error {
	err := p.jobs.Transition(ctx, job.ID, entity.JobStatusProcessing, entity.JobStatusCompleted, results, "")
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", job.ID, err)
	}
	metrics.ScrapesTotal.WithLabelValues("success", "").Inc()
	publishTransition(ctx, p.events, job, entity.JobStatusProcessing, entity.JobStatusCompleted)
	p.logger.Info("Job completed", zap.String("job_id", job.ID), zap.Int64("duration_ms", took.Milliseconds()))

	p.notify(ctx, job, entity.EventJobCompleted, map[string]any{
		"job_id":      job.ID,
		"url":         job.URL,
		"scrape_type": job.ScrapeType,
		"status":      entity.JobStatusCompleted,
		"results":     results,
	})
	return nil
}

func (p *WorkerPool) fail(ctx context.Context, job *entity.ScrapingJob, scrapeErr error) error {
	errorType := classifyScrapeError(scrapeErr)
	metrics.ScrapesTotal.WithLabelValues("failure", errorType).Inc()
	p.logger.Error("Scrape failed", zap.String("job_id", job.ID), zap.String("url", job.URL), zap.String("error_type", errorType), zap.Error(scrapeErr))

	err := p.jobs.Transition(ctx, job.ID, entity.JobStatusProcessing, entity.JobStatusFailed, nil, scrapeErr.Error())
	if err != nil {
		return fmt.Errorf("failed to mark job %s as failed: %w", job.ID, err)
	}
	publishTransition(ctx, p.events, job, entity.JobStatusProcessing, entity.JobStatusFailed)

	p.notify(ctx, job, entity.EventJobFailed, map[string]any{
		"job_id":      job.ID,
		"url":         job.URL,
		"scrape_type": job.ScrapeType,
		"status":      entity.JobStatusFailed,
		"error":       scrapeErr.Error(),
	})
	return nil
}

func (p *WorkerPool) notify(ctx context.Context, job *entity.ScrapingJob, event string, data map[string]any) {
	if p.dispatcher == nil {
		return
	}
	if _, err := p.dispatcher.Dispatch(ctx, job.UserID, event, data); err != nil {
		p.logger.Warn("Failed to dispatch job webhook", zap.String("job_id", job.ID), zap.String("event", event), zap.Error(err))
	}
}

func classifyScrapeError(err error) string {
	switch {
	case errors.Is(err, repository.ErrFetchTimeout):
		return "timeout"
	case errors.Is(err, repository.ErrNavigationFailed):
		return "navigation"
	case errors.Is(err, repository.ErrContentRestricted):
		return "restricted"
	case errors.Is(err, repository.ErrUnexpectedStatus):
		return "http_status"
	case errors.Is(err, errExtraction):
		return "extraction"
	}
	return "unknown"
}
