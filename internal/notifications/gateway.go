package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// Event names carried in webhook envelopes and activity definition codes.
const (
	EventStatusChanged = "book.status_changed"
	EventSLAReminder   = "book.sla_reminder"
)

// DefaultRetrySchedule is the delay applied before each redelivery attempt.
var DefaultRetrySchedule = []time.Duration{time.Second, 5 * time.Second, 15 * time.Second, 60 * time.Second}

// DeliveryError reports a notification that could not be delivered.
type DeliveryError struct {
	Gateway  string
	Event    string
	Target   string
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	target := e.Target
	if target == "" {
		target = e.Gateway
	}
	return fmt.Sprintf("notifications: %s delivery to %s failed after %d attempt(s): %v", e.Event, target, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsDeliveryError reports whether err carries a DeliveryError.
func IsDeliveryError(err error) bool {
	var target *DeliveryError
	return errors.As(err, &target)
}

type noopGateway struct{}

// NoOp returns a gateway that drops every notification.
func NoOp() interfaces.NotificationGateway {
	return noopGateway{}
}

func (noopGateway) SendTransitionNotification(context.Context, interfaces.TransitionNotification) error {
	return nil
}

func (noopGateway) SendSLAReminder(context.Context, interfaces.SLAReminder) error {
	return nil
}

// MultiGateway fans notifications out to every gateway and joins their errors.
type MultiGateway struct {
	gateways []interfaces.NotificationGateway
}

// Multi builds a fan-out gateway, skipping nil entries.
func Multi(gateways ...interfaces.NotificationGateway) *MultiGateway {
	filtered := make([]interfaces.NotificationGateway, 0, len(gateways))
	for _, gateway := range gateways {
		if gateway != nil {
			filtered = append(filtered, gateway)
		}
	}
	return &MultiGateway{gateways: filtered}
}

func (m *MultiGateway) SendTransitionNotification(ctx context.Context, notification interfaces.TransitionNotification) error {
	var errs []error
	for _, gateway := range m.gateways {
		if err := gateway.SendTransitionNotification(ctx, notification); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiGateway) SendSLAReminder(ctx context.Context, reminder interfaces.SLAReminder) error {
	var errs []error
	for _, gateway := range m.gateways {
		if err := gateway.SendSLAReminder(ctx, reminder); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordingGateway keeps notifications in memory.
type RecordingGateway struct {
	mu          sync.Mutex
	transitions []interfaces.TransitionNotification
	reminders   []interfaces.SLAReminder
	err         error
}

func NewRecordingGateway() *RecordingGateway {
	return &RecordingGateway{}
}

// Fail makes subsequent sends record the payload and return err.
func (r *RecordingGateway) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *RecordingGateway) SendTransitionNotification(_ context.Context, notification interfaces.TransitionNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, notification)
	return r.err
}

func (r *RecordingGateway) SendSLAReminder(_ context.Context, reminder interfaces.SLAReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reminder.Recipients.Roles = append([]string(nil), reminder.Recipients.Roles...)
	r.reminders = append(r.reminders, reminder)
	return r.err
}

func (r *RecordingGateway) Transitions() []interfaces.TransitionNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interfaces.TransitionNotification(nil), r.transitions...)
}

func (r *RecordingGateway) Reminders() []interfaces.SLAReminder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interfaces.SLAReminder(nil), r.reminders...)
}
