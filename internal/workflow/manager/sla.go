package manager

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/notifications"
	pubscheduler "github.com/goliatone/go-publishing/internal/scheduler"
	"github.com/goliatone/go-publishing/pkg/interfaces"
	"github.com/google/uuid"
)

// scheduleSLA registers the deadline watcher for the status being entered. It
// runs inside the transition transaction so a scheduling failure rolls the
// transition back. Watchers from transactions that later fail carry a version
// the book never reaches and are discarded by the job worker.
func (s *service) scheduleSLA(ctx context.Context, bookID uuid.UUID, target domain.Status, version int, now time.Time, actorID string) (bool, error) {
	watch := pubscheduler.SLAWatch{
		BookID:      bookID,
		Version:     version,
		Status:      string(target),
		EnteredAt:   now,
		ScheduledBy: actorID,
	}
	var spec interfaces.JobSpec
	switch target {
	case domain.StatusPending:
		if s.sla.ReviewDeadline <= 0 {
			return false, nil
		}
		watch.Deadline = s.sla.ReviewDeadline
		spec = pubscheduler.ReviewDeadlineSpec(watch)
	case domain.StatusNeedsRevision:
		if s.sla.RevisionDeadline <= 0 {
			return false, nil
		}
		watch.Deadline = s.sla.RevisionDeadline
		spec = pubscheduler.RevisionDeadlineSpec(watch)
	default:
		return false, nil
	}
	if _, err := s.scheduler.Enqueue(ctx, spec); err != nil {
		return false, err
	}
	return true, nil
}

// releaseSLA cancels the watcher of the status that was just left.
func (s *service) releaseSLA(ctx context.Context, bookID uuid.UUID, from, to domain.Status) {
	if from == to {
		return
	}
	var key string
	switch from {
	case domain.StatusPending:
		key = pubscheduler.ReviewDeadlineJobKey(bookID)
	case domain.StatusNeedsRevision:
		key = pubscheduler.RevisionDeadlineJobKey(bookID)
	default:
		return
	}
	if err := s.scheduler.CancelByKey(ctx, key); err != nil && !errors.Is(err, interfaces.ErrJobNotFound) {
		s.logger.Warn("workflow.sla.cancel_failed", "book_id", bookID, "key", key, "error", err)
	}
}

func (s *service) GetOverdueBooks(ctx context.Context) (OverdueBooks, error) {
	now := s.now().UTC()
	review, err := s.books.ListStale(ctx, domain.StatusPending, now.Add(-s.sla.ReviewDeadline))
	if err != nil {
		return OverdueBooks{}, err
	}
	revision, err := s.books.ListStale(ctx, domain.StatusNeedsRevision, now.Add(-s.sla.RevisionDeadline))
	if err != nil {
		return OverdueBooks{}, err
	}
	return OverdueBooks{ReviewOverdue: review, RevisionOverdue: revision}, nil
}

// SendSLAReminders notifies escalation roles about stuck reviews and authors
// about unanswered revision requests.
func (s *service) SendSLAReminders(ctx context.Context) (ReminderSummary, error) {
	overdue, err := s.GetOverdueBooks(ctx)
	if err != nil {
		return ReminderSummary{}, err
	}
	roles := s.sla.escalationRoles()
	for _, book := range overdue.ReviewOverdue {
		s.notifier.DispatchReminder(ctx, notifications.ReviewOverdueReminder(book, s.sla.ReviewDeadline, roles))
	}
	for _, book := range overdue.RevisionOverdue {
		s.notifier.DispatchReminder(ctx, notifications.RevisionOverdueReminder(book, s.sla.RevisionDeadline))
	}
	summary := ReminderSummary{
		ReviewReminders:   len(overdue.ReviewOverdue),
		RevisionReminders: len(overdue.RevisionOverdue),
	}
	s.logger.Info("workflow.sla.reminders_sent", "review", summary.ReviewReminders, "revision", summary.RevisionReminders)
	return summary, nil
}
