package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound reports a lookup by id or key that matched no job.
var ErrJobNotFound = errors.New("scheduler: job not found")

// Scheduler stores delayed jobs. The publishing engine uses it for SLA deadline
// watchers: one job per book and deadline kind, replaced on re-entry and cancelled
// when the book leaves the watched status.
type Scheduler interface {
	// Enqueue stores spec. A pending job with the same key is replaced.
	Enqueue(ctx context.Context, spec JobSpec) (*Job, error)
	// Cancel moves the job to canceled so ListDue skips it.
	Cancel(ctx context.Context, id string) error
	// CancelByKey cancels the job associated to the supplied unique key.
	CancelByKey(ctx context.Context, key string) error
	// Get returns the stored job by identifier.
	Get(ctx context.Context, id string) (*Job, error)
	// GetByKey returns the stored job that matches the supplied key.
	GetByKey(ctx context.Context, key string) (*Job, error)
	// ListDue returns up to limit jobs for which Job.DueAt(until) holds, earliest first.
	ListDue(ctx context.Context, until time.Time, limit int) ([]*Job, error)
	// MarkDone marks the job as successfully processed.
	MarkDone(ctx context.Context, id string) error
	// MarkFailed records a failed attempt. The job stays pending until MaxAttempts is reached.
	MarkFailed(ctx context.Context, id string, err error) error
}

// JobStatus describes the lifecycle of a scheduled job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCanceled  JobStatus = "canceled"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusCanceled, JobStatusFailed:
		return true
	default:
		return false
	}
}

// JobSpec describes a job to enqueue.
type JobSpec struct {
	// Key deduplicates jobs, e.g. publishing.sla.review:<book id>.
	Key string
	// Type selects the worker routine, e.g. publishing.sla.review_deadline.
	Type    string
	RunAt   time.Time
	Payload map[string]any
	// MaxAttempts bounds retries after MarkFailed. Zero takes the scheduler default.
	MaxAttempts int
}

// Job is a stored JobSpec plus scheduler bookkeeping.
type Job struct {
	JobSpec
	ID        string
	Attempt   int
	LastError string
	Status    JobStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DueAt reports whether the job is pending and scheduled at or before now.
func (j *Job) DueAt(now time.Time) bool {
	return j != nil && j.Status == JobStatusPending && !j.RunAt.After(now)
}
