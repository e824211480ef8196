package scheduler

import (
	"context"
	"time"

	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// NewDisabled returns a scheduler for deployments that track deadlines only through
// overdue queries and reminder sweeps. Watchers are accepted and immediately canceled,
// so no violation is ever recorded from a job.
func NewDisabled() interfaces.Scheduler {
	return disabledScheduler{}
}

type disabledScheduler struct{}

func (disabledScheduler) Enqueue(_ context.Context, spec interfaces.JobSpec) (*interfaces.Job, error) {
	if spec.RunAt.IsZero() {
		return nil, ErrRunAtRequired
	}
	return &interfaces.Job{JobSpec: spec, Status: interfaces.JobStatusCanceled}, nil
}

func (disabledScheduler) Cancel(context.Context, string) error      { return nil }
func (disabledScheduler) CancelByKey(context.Context, string) error { return nil }

func (disabledScheduler) Get(context.Context, string) (*interfaces.Job, error) {
	return nil, interfaces.ErrJobNotFound
}

func (disabledScheduler) GetByKey(context.Context, string) (*interfaces.Job, error) {
	return nil, interfaces.ErrJobNotFound
}

func (disabledScheduler) ListDue(context.Context, time.Time, int) ([]*interfaces.Job, error) {
	return nil, nil
}

func (disabledScheduler) MarkDone(context.Context, string) error          { return nil }
func (disabledScheduler) MarkFailed(context.Context, string, error) error { return nil }
