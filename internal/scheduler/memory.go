package scheduler

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/goliatone/go-publishing/pkg/interfaces"
	"github.com/google/uuid"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Minute
)

// ErrRunAtRequired is returned when a job spec has no run time.
var ErrRunAtRequired = errors.New("scheduler: run_at is required")

// Option configures a MemoryScheduler.
type Option func(*MemoryScheduler)

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *MemoryScheduler) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithRetryDelay sets the base delay before a failed watcher runs again. The n-th
// failure pushes the job n delays past the time it failed. Zero retries on the next sweep.
func WithRetryDelay(delay time.Duration) Option {
	return func(s *MemoryScheduler) {
		if delay >= 0 {
			s.retryDelay = delay
		}
	}
}

// MemoryScheduler holds deadline watchers for the lifetime of the process. Each book has
// at most one live watcher per job key; enqueueing under a live key replaces it.
type MemoryScheduler struct {
	mu         sync.Mutex
	now        func() time.Time
	retryDelay time.Duration
	jobs       map[string]*interfaces.Job
	live       map[string]string
}

// NewInMemory creates an empty scheduler. Watchers are lost on restart.
func NewInMemory(opts ...Option) *MemoryScheduler {
	s := &MemoryScheduler{
		now:        time.Now,
		retryDelay: defaultRetryDelay,
		jobs:       make(map[string]*interfaces.Job),
		live:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryScheduler) Enqueue(_ context.Context, spec interfaces.JobSpec) (*interfaces.Job, error) {
	if spec.RunAt.IsZero() {
		return nil, ErrRunAtRequired
	}
	if spec.MaxAttempts <= 0 {
		spec.MaxAttempts = defaultMaxAttempts
	}
	spec.Payload = maps.Clone(spec.Payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	job := &interfaces.Job{
		ID:        uuid.NewString(),
		JobSpec:   spec,
		Status:    interfaces.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if spec.Key != "" {
		if previous, ok := s.live[spec.Key]; ok {
			delete(s.jobs, previous)
		}
		s.live[spec.Key] = job.ID
	}
	s.jobs[job.ID] = job
	return snapshot(job), nil
}

func (s *MemoryScheduler) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return interfaces.ErrJobNotFound
	}
	s.finish(job, interfaces.JobStatusCanceled)
	return nil
}

// CancelByKey cancels the live watcher under key. An empty key is a no-op.
func (s *MemoryScheduler) CancelByKey(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.byKey(key)
	if job == nil {
		return interfaces.ErrJobNotFound
	}
	s.finish(job, interfaces.JobStatusCanceled)
	return nil
}

func (s *MemoryScheduler) Get(_ context.Context, id string) (*interfaces.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	return snapshot(job), nil
}

// GetByKey returns the live watcher under key. Completed and canceled watchers no
// longer hold their key.
func (s *MemoryScheduler) GetByKey(_ context.Context, key string) (*interfaces.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.byKey(key)
	if job == nil {
		return nil, interfaces.ErrJobNotFound
	}
	return snapshot(job), nil
}

// ListDue returns pending jobs whose run time is not after until, earliest first.
// A non-positive limit returns all of them.
func (s *MemoryScheduler) ListDue(_ context.Context, until time.Time, limit int) ([]*interfaces.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.due(until, limit), nil
}

// MarkDone completes a job. A job canceled while its worker ran keeps the canceled status.
func (s *MemoryScheduler) MarkDone(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return interfaces.ErrJobNotFound
	}
	if !job.Status.Terminal() {
		s.finish(job, interfaces.JobStatusCompleted)
	}
	return nil
}

// MarkFailed records a failed attempt. The job is retried after the retry delay until
// MaxAttempts is reached, then it fails for good and releases its key.
func (s *MemoryScheduler) MarkFailed(_ context.Context, id string, failure error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return interfaces.ErrJobNotFound
	}
	if job.Status.Terminal() {
		return nil
	}

	job.Attempt++
	job.LastError = ""
	if failure != nil {
		job.LastError = failure.Error()
	}
	if job.Attempt >= job.MaxAttempts {
		s.finish(job, interfaces.JobStatusFailed)
		return nil
	}
	now := s.now()
	job.RunAt = now.Add(time.Duration(job.Attempt) * s.retryDelay)
	job.UpdatedAt = now
	return nil
}

// Pending returns every pending job, due or not, earliest first.
func (s *MemoryScheduler) Pending() []*interfaces.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.due(time.Time{}, 0)
}

// due expects s.mu to be held. A zero until matches every pending job.
func (s *MemoryScheduler) due(until time.Time, limit int) []*interfaces.Job {
	out := make([]*interfaces.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if (until.IsZero() && job.Status == interfaces.JobStatusPending) || job.DueAt(until) {
			out = append(out, snapshot(job))
		}
	}
	slices.SortStableFunc(out, func(a, b *interfaces.Job) int {
		if c := a.RunAt.Compare(b.RunAt); c != 0 {
			return c
		}
		return cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryScheduler) byKey(key string) *interfaces.Job {
	if key == "" {
		return nil
	}
	id, ok := s.live[key]
	if !ok {
		return nil
	}
	return s.jobs[id]
}

// finish moves job to a terminal status and frees its key for the next watcher.
func (s *MemoryScheduler) finish(job *interfaces.Job, status interfaces.JobStatus) {
	job.Status = status
	job.UpdatedAt = s.now()
	if job.Key != "" && s.live[job.Key] == job.ID {
		delete(s.live, job.Key)
	}
}

func snapshot(job *interfaces.Job) *interfaces.Job {
	clone := *job
	clone.Payload = maps.Clone(job.Payload)
	return &clone
}
