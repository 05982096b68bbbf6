package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/user/scrapex-service/internal/entity"
)

// JobRepository stores scraping jobs.
type JobRepository interface {
	Create(ctx context.Context, job *entity.ScrapingJob) error
	// Get returns any job by id; used by workers.
	Get(ctx context.Context, id string) (*entity.ScrapingJob, error)
	// GetForUser returns ErrNotFound when the job belongs to someone else.
	GetForUser(ctx context.Context, userID, id string) (*entity.ScrapingJob, error)
	List(ctx context.Context, userID string, status entity.JobStatus, limit int) ([]*entity.ScrapingJob, error)
	// Transition moves a job from one status to another only if it is still
	// in `from`; otherwise ErrStaleStatus.
	Transition(ctx context.Context, id string, from, to entity.JobStatus, results json.RawMessage, errMsg string) error
	SetNextRun(ctx context.Context, id string, next time.Time) error
	ListScheduled(ctx context.Context) ([]*entity.ScrapingJob, error)
}
