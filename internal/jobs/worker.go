package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-publishing/internal/audit"
	"github.com/goliatone/go-publishing/internal/books"
	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/notifications"
	pubscheduler "github.com/goliatone/go-publishing/internal/scheduler"
	"github.com/goliatone/go-publishing/internal/storage"
	"github.com/goliatone/go-publishing/pkg/activity"
	"github.com/goliatone/go-publishing/pkg/interfaces"
	"github.com/google/uuid"
)

type BookReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*books.Book, error)
}

// ReminderDispatcher sends SLA reminders without blocking the worker.
type ReminderDispatcher interface {
	DispatchReminder(ctx context.Context, reminder interfaces.SLAReminder)
}

// Result summarises one Process run.
type Result struct {
	Processed  int `json:"processed"`
	Violations int `json:"violations"`
	Stale      int `json:"stale"`
	Failed     int `json:"failed"`
}

// Worker turns due SLA watcher jobs into SLA_VIOLATION audit events and reminders.
type Worker struct {
	scheduler       interfaces.Scheduler
	books           BookReader
	uow             storage.UnitOfWork
	ledger          *audit.Ledger
	reminders       ReminderDispatcher
	activity        *activity.Emitter
	escalationRoles []string
	logger          interfaces.Logger
	now             func() time.Time
	batchSize       int
}

type Option func(*Worker)

func WithReminderDispatcher(dispatcher ReminderDispatcher) Option {
	return func(w *Worker) {
		w.reminders = dispatcher
	}
}

func WithActivityEmitter(emitter *activity.Emitter) Option {
	return func(w *Worker) {
		if emitter != nil {
			w.activity = emitter
		}
	}
}

func WithEscalationRoles(roles []string) Option {
	return func(w *Worker) {
		w.escalationRoles = append([]string(nil), roles...)
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(w *Worker) {
		if clock != nil {
			w.now = clock
		}
	}
}

func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func NewWorker(scheduler interfaces.Scheduler, bookReader BookReader, uow storage.UnitOfWork, ledger *audit.Ledger, opts ...Option) *Worker {
	w := &Worker{
		scheduler: scheduler,
		books:     bookReader,
		uow:       uow,
		ledger:    ledger,
		logger:    logging.NoOp(),
		now:       time.Now,
		batchSize: 50,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process handles every job due at the current time. Individual job failures
// are recorded on the scheduler and do not stop the batch.
func (w *Worker) Process(ctx context.Context) (Result, error) {
	var result Result
	if w.scheduler == nil {
		return result, errors.New("jobs: scheduler is nil")
	}
	if w.books == nil || w.uow == nil || w.ledger == nil {
		return result, errors.New("jobs: worker dependencies are not configured")
	}
	jobs, err := w.scheduler.ListDue(ctx, w.now(), w.batchSize)
	if err != nil {
		return result, err
	}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		result.Processed++
		violated, err := w.handleJob(ctx, job)
		if err != nil {
			result.Failed++
			w.logger.Error("sla.job.failed", "job_id", job.ID, "job_type", job.Type, "error", err)
			_ = w.scheduler.MarkFailed(ctx, job.ID, err)
			continue
		}
		if violated {
			result.Violations++
		} else {
			result.Stale++
		}
		_ = w.scheduler.MarkDone(ctx, job.ID)
	}
	return result, nil
}

func (w *Worker) handleJob(ctx context.Context, job *interfaces.Job) (bool, error) {
	var (
		watched       domain.Status
		violationType string
	)
	switch job.Type {
	case pubscheduler.JobTypeReviewDeadline:
		watched, violationType = domain.StatusPending, audit.ViolationReviewOverdue
	case pubscheduler.JobTypeRevisionDeadline:
		watched, violationType = domain.StatusNeedsRevision, audit.ViolationRevisionOverdue
	default:
		return false, nil
	}

	watch, err := pubscheduler.ParseSLAWatch(job)
	if err != nil {
		return false, err
	}
	book, err := w.books.GetByID(ctx, watch.BookID)
	if err != nil {
		if books.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	// The watcher belongs to a status visit that has already ended, or to a
	// transition that never committed.
	if book.Status != watched || (watch.Version > 0 && book.Version != watch.Version) {
		w.logger.Debug("sla.job.stale", "book_id", book.ID, "job_type", job.Type, "status", book.Status)
		return false, nil
	}

	// The book may move between the read above and the transaction, so the
	// status and version are checked again under the row hold.
	var event *audit.Event
	err = w.uow.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Books().Hold(ctx, book.ID, watched, book.Version); err != nil {
			return err
		}
		var txErr error
		event, txErr = w.ledger.CreateSLAViolationEvent(ctx, tx.Audit(), book.ID, watched, violationType, watch.Deadline.Hours())
		return txErr
	})
	if errors.Is(err, books.ErrVersionConflict) || errors.Is(err, audit.ErrStaleStatus) {
		w.logger.Debug("sla.job.stale", "book_id", book.ID, "job_type", job.Type, "error", err)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	w.logger.Info("sla.violation.recorded", "book_id", book.ID, "violation", violationType, "audit_event_id", event.ID)
	w.dispatchReminder(ctx, book, job.Type, watch.Deadline)
	w.emitActivity(ctx, book, violationType, event)
	return true, nil
}

func (w *Worker) dispatchReminder(ctx context.Context, book *books.Book, jobType string, deadline time.Duration) {
	if w.reminders == nil {
		return
	}
	if jobType == pubscheduler.JobTypeReviewDeadline {
		w.reminders.DispatchReminder(ctx, notifications.ReviewOverdueReminder(book, deadline, w.escalationRoles))
		return
	}
	w.reminders.DispatchReminder(ctx, notifications.RevisionOverdueReminder(book, deadline))
}

func (w *Worker) emitActivity(ctx context.Context, book *books.Book, violationType string, event *audit.Event) {
	if w.activity == nil || !w.activity.Enabled() {
		return
	}
	_ = w.activity.Emit(ctx, activity.Event{
		Verb:       "sla_violation",
		ActorID:    audit.SystemActor,
		ObjectType: "book",
		ObjectID:   book.ID.String(),
		Metadata: map[string]any{
			"violationType":  violationType,
			"status":         string(book.Status),
			"audit_event_id": event.ID.String(),
		},
	})
}
