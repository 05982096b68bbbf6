package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

const jobColumns = `id, user_id, url, scrape_type, status, results, error, schedule, last_run_at, next_run_at, created_at, updated_at`

// JobRepoImpl implements repository.JobRepository on PostgreSQL.
type JobRepoImpl struct {
	db *pgxpool.Pool
}

func NewJobRepo(db *pgxpool.Pool) *JobRepoImpl {
	return &JobRepoImpl{db: db}
}

func (r *JobRepoImpl) Create(ctx context.Context, job *entity.ScrapingJob) error {
	query := `
		INSERT INTO scraping_jobs (id, user_id, url, scrape_type, status, results, error, schedule, next_run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.db.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.URL,
		job.ScrapeType,
		job.Status,
		jsonParam(job.Results),
		job.Error,
		job.Schedule,
		job.NextRunAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

func (r *JobRepoImpl) Get(ctx context.Context, id string) (*entity.ScrapingJob, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM scraping_jobs WHERE id = $1;`, id)
	return scanJob(row)
}

func (r *JobRepoImpl) GetForUser(ctx context.Context, userID, id string) (*entity.ScrapingJob, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM scraping_jobs WHERE id = $1 AND user_id = $2;`, id, userID)
	return scanJob(row)
}

// List returns the newest jobs first. An empty status matches every status.
func (r *JobRepoImpl) List(ctx context.Context, userID string, status entity.JobStatus, limit int) ([]*entity.ScrapingJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM scraping_jobs
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3;
	`
	rows, err := r.db.Query(ctx, query, userID, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*entity.ScrapingJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Transition is a compare-and-set on status. Results are only overwritten
// when non-empty; entering processing stamps last_run_at.
func (r *JobRepoImpl) Transition(ctx context.Context, id string, from, to entity.JobStatus, results json.RawMessage, errMsg string) error {
	query := `
		UPDATE scraping_jobs SET
			status = $3,
			results = COALESCE($4::jsonb, results),
			error = $5,
			last_run_at = CASE WHEN $3 = 'processing' THEN NOW() ELSE last_run_at END,
			updated_at = NOW()
		WHERE id = $1 AND status = $2;
	`
	tag, err := r.db.Exec(ctx, query, id, string(from), string(to), jsonParam(results), errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM scraping_jobs WHERE id = $1);`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStaleStatus
}

func (r *JobRepoImpl) SetNextRun(ctx context.Context, id string, next time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE scraping_jobs SET next_run_at = $2, updated_at = NOW() WHERE id = $1;`, id, next)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *JobRepoImpl) ListScheduled(ctx context.Context) ([]*entity.ScrapingJob, error) {
	rows, err := r.db.Query(ctx, `SELECT `+jobColumns+` FROM scraping_jobs WHERE schedule <> '' ORDER BY created_at;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*entity.ScrapingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row rowScanner) (*entity.ScrapingJob, error) {
	var job entity.ScrapingJob
	var results []byte
	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.URL,
		&job.ScrapeType,
		&job.Status,
		&results,
		&job.Error,
		&job.Schedule,
		&job.LastRunAt,
		&job.NextRunAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if len(results) > 0 {
		job.Results = json.RawMessage(results)
	}
	return &job, nil
}
