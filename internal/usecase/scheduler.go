package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

const tickTimeout = 30 * time.Second

// Scheduler wraps robfig/cron and re-queues jobs that carry a schedule.
type Scheduler struct {
	cron    *cron.Cron
	jobs    repository.JobRepository
	queue   repository.QueueRepository
	events  repository.EventPublisher
	logger  *zap.Logger
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewScheduler(
	jobs repository.JobRepository,
	queue repository.QueueRepository,
	events repository.EventPublisher,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		jobs:    jobs,
		queue:   queue,
		events:  events,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Start registers every stored schedule and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs, err := s.jobs.ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scheduled jobs: %w", err)
	}
	for _, job := range jobs {
		if err := s.Schedule(job); err != nil {
			s.logger.Warn("Skipping job with invalid schedule", zap.String("job_id", job.ID), zap.String("schedule", job.Schedule), zap.Error(err))
		}
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("scheduled_jobs", len(jobs)))
	return nil
}

// Stop halts the runner and returns a context that is done once running
// ticks have finished.
func (s *Scheduler) Stop() context.Context {
	ctx := s.cron.Stop()
	s.logger.Info("Scheduler stopped")
	return ctx
}

// Schedule (re)registers a job's cron spec, replacing any previous entry.
func (s *Scheduler) Schedule(job *entity.ScrapingJob) error {
	if job.Schedule == "" {
		return nil
	}
	jobID := job.ID

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.entries[jobID]; ok {
		s.cron.Remove(prev)
		delete(s.entries, jobID)
	}
	entryID, err := s.cron.AddFunc(job.Schedule, func() { s.tick(jobID) })
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.entries[jobID] = entryID

	if next := s.cron.Entry(entryID).Next; !next.IsZero() {
		s.recordNextRun(jobID, next)
	} else if sched, err := cron.ParseStandard(job.Schedule); err == nil {
		s.recordNextRun(jobID, sched.Next(time.Now()))
	}
	return nil
}

func (s *Scheduler) tick(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	if err := s.RunNow(ctx, jobID); err != nil {
		s.logger.Warn("Scheduled run skipped", zap.String("job_id", jobID), zap.Error(err))
	}

	s.mu.Lock()
	entryID, ok := s.entries[jobID]
	s.mu.Unlock()
	if ok {
		s.recordNextRun(jobID, s.cron.Entry(entryID).Next)
	}
}

// RunNow re-queues a scheduled job unless it is still pending or running.
func (s *Scheduler) RunNow(ctx context.Context, jobID string) error {
	job, err := s.jobs.Get(ctx, jobID)
	if errors.Is(err, repository.ErrNotFound) {
		s.unschedule(jobID)
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job.Status == entity.JobStatusPending || job.Status == entity.JobStatusProcessing {
		return fmt.Errorf("%w: previous run still %s", ErrInvalidTransition, job.Status)
	}
	if err := requeueJob(ctx, s.jobs, s.queue, s.events, job); err != nil {
		return err
	}
	s.logger.Info("Scheduled job re-queued", zap.String("job_id", jobID))
	return nil
}

func (s *Scheduler) unschedule(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[jobID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, jobID)
	}
}

func (s *Scheduler) recordNextRun(jobID string, next time.Time) {
	if next.IsZero() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.jobs.SetNextRun(ctx, jobID, next.UTC()); err != nil {
		s.logger.Warn("Failed to store next run time", zap.String("job_id", jobID), zap.Error(err))
	}
}
