package entity

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ScrapeType selects how a job fetches its page and what it stores as results.
type ScrapeType string

const (
	ScrapeTypeFacility ScrapeType = "facility" // plain HTTP fetch + extraction
	ScrapeTypeRendered ScrapeType = "rendered" // headless browser fetch + extraction
	ScrapeTypeAudit    ScrapeType = "audit"    // extraction + revenue audit
	ScrapeTypeLead     ScrapeType = "lead"     // extraction + lead analysis
)

// ParseScrapeType defaults an empty value to ScrapeTypeFacility.
func ParseScrapeType(s string) (ScrapeType, bool) {
	switch ScrapeType(s) {
	case "":
		return ScrapeTypeFacility, true
	case ScrapeTypeFacility, ScrapeTypeRendered, ScrapeTypeAudit, ScrapeTypeLead:
		return ScrapeType(s), true
	}
	return "", false
}

// ParseJobStatus converts a raw string to a JobStatus.
func ParseJobStatus(s string) (JobStatus, bool) {
	switch JobStatus(s) {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return JobStatus(s), true
	}
	return "", false
}

// validJobTransitions lists every allowed (from -> to) pair.
//
//	pending    ──► processing | failed (never reached the queue)
//	processing ──► completed | failed | pending (worker stopped mid-scrape)
//	completed  ──► pending (re-run / schedule)
//	failed     ──► pending (re-run / schedule)
var validJobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusProcessing, JobStatusFailed},
	JobStatusProcessing: {JobStatusCompleted, JobStatusFailed, JobStatusPending},
	JobStatusCompleted:  {JobStatusPending},
	JobStatusFailed:     {JobStatusPending},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to JobStatus) bool {
	for _, s := range validJobTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Finished reports whether the job has reached a terminal status and may be
// re-run.
func (s JobStatus) Finished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ScrapingJob mirrors the `scraping_jobs` PostgreSQL table schema.
type ScrapingJob struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	URL        string          `json:"url"`
	ScrapeType ScrapeType      `json:"scrape_type"`
	Status     JobStatus       `json:"status"`
	Results    json.RawMessage `json:"results,omitempty"` // JSONB, opaque to the store
	Error      string          `json:"error,omitempty"`
	Schedule   string          `json:"schedule,omitempty"` // cron spec
	LastRunAt  *time.Time      `json:"last_run_at,omitempty"`
	NextRunAt  *time.Time      `json:"next_run_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// JobEvent is published on the change feed whenever a job changes status.
type JobEvent struct {
	JobID  string    `json:"job_id"`
	UserID string    `json:"user_id"`
	URL    string    `json:"url"`
	From   JobStatus `json:"from"`
	To     JobStatus `json:"to"`
	At     time.Time `json:"at"`
}
