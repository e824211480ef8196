package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// Dispatcher sends notifications in the background. Delivery failures are
// logged and never reported to the caller.
type Dispatcher struct {
	gateway    interfaces.NotificationGateway
	logger     interfaces.Logger
	schedule   []time.Duration
	maxRetries int
	wg         sync.WaitGroup
}

// DispatcherOption customises the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchRetries retries sends that fail for reasons other than an exhausted
// webhook delivery. maxRetries follows the webhook convention: zero uses the whole
// schedule, negative disables retries.
func WithDispatchRetries(schedule []time.Duration, maxRetries int) DispatcherOption {
	return func(d *Dispatcher) {
		d.schedule = append([]time.Duration(nil), schedule...)
		d.maxRetries = maxRetries
	}
}

func NewDispatcher(gateway interfaces.NotificationGateway, logger interfaces.Logger, opts ...DispatcherOption) *Dispatcher {
	if gateway == nil {
		gateway = NoOp()
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	d := &Dispatcher{gateway: gateway, logger: logger, maxRetries: -1}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// DispatchTransition queues a transition notification and returns immediately.
func (d *Dispatcher) DispatchTransition(ctx context.Context, notification interfaces.TransitionNotification) {
	d.run(ctx, EventStatusChanged, notification.BookID.String(), func(ctx context.Context) error {
		return d.gateway.SendTransitionNotification(ctx, notification)
	})
}

// DispatchReminder queues an SLA reminder and returns immediately.
func (d *Dispatcher) DispatchReminder(ctx context.Context, reminder interfaces.SLAReminder) {
	d.run(ctx, EventSLAReminder, reminder.BookID.String(), func(ctx context.Context) error {
		return d.gateway.SendSLAReminder(ctx, reminder)
	})
}

// Wait blocks until every queued notification has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, event, bookID string, send func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.send(ctx, event, bookID, send); err != nil {
			logging.WithFields(d.logger, map[string]any{
				"event":   event,
				"book_id": bookID,
			}).Error("notifications.delivery.failed", "error", err)
			return
		}
		d.logger.Debug("notifications.delivery.sent", "event", event, "book_id", bookID)
	}()
}

func (d *Dispatcher) send(ctx context.Context, event, bookID string, send func(context.Context) error) error {
	if d.maxRetries < 0 || len(d.schedule) == 0 {
		return send(ctx)
	}
	operation := func() error {
		err := send(ctx)
		if err != nil && IsDeliveryError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		d.logger.Warn("notifications.delivery.retry",
			"event", event,
			"book_id", bookID,
			"delay", delay.String(),
			"error", err,
		)
	}
	return backoff.RetryNotify(operation, backoff.WithContext(boundedSchedule(d.schedule, d.maxRetries), ctx), notify)
}
