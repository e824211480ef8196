package notifications

import (
	"context"
	"strings"

	"github.com/goliatone/go-publishing/pkg/activity"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

const (
	activityObjectType = "book"
	systemActor        = "system"
)

// ActivityGateway turns notifications into activity events so transitions
// show up in the host's activity feed.
type ActivityGateway struct {
	emitter *activity.Emitter
}

var _ interfaces.NotificationGateway = (*ActivityGateway)(nil)

func NewActivityGateway(emitter *activity.Emitter) *ActivityGateway {
	return &ActivityGateway{emitter: emitter}
}

func (g *ActivityGateway) SendTransitionNotification(ctx context.Context, n interfaces.TransitionNotification) error {
	if !g.emitter.Enabled() {
		return nil
	}
	meta := map[string]any{
		"fromStatus": n.FromStatus,
		"toStatus":   n.ToStatus,
		"version":    n.Version,
		"actorRole":  n.ActorRole,
	}
	if n.Slug != "" {
		meta["slug"] = n.Slug
	}
	if n.Reason != "" {
		meta["reason"] = n.Reason
	}
	if n.TemplateID != "" {
		meta["templateId"] = n.TemplateID
	}
	var recipients []string
	if n.AuthorID != "" {
		recipients = []string{n.AuthorID}
	}
	return g.emit(ctx, activity.Event{
		Verb:           strings.ToLower(n.Action),
		ActorID:        n.ActorID,
		ObjectType:     activityObjectType,
		ObjectID:       n.BookID.String(),
		DefinitionCode: EventStatusChanged,
		Recipients:     recipients,
		Metadata:       meta,
		OccurredAt:     n.OccurredAt,
	})
}

func (g *ActivityGateway) SendSLAReminder(ctx context.Context, r interfaces.SLAReminder) error {
	if !g.emitter.Enabled() {
		return nil
	}
	recipients := append([]string(nil), r.Recipients.Roles...)
	if r.Recipients.AuthorID != "" {
		recipients = append(recipients, r.Recipients.AuthorID)
	}
	meta := map[string]any{
		"type":   r.Type,
		"status": r.Status,
		"since":  r.Since,
	}
	if r.DeadlineHours > 0 {
		meta["deadlineHours"] = r.DeadlineHours
	}
	if r.DeadlineDays > 0 {
		meta["deadlineDays"] = r.DeadlineDays
	}
	return g.emit(ctx, activity.Event{
		Verb:           "sla_reminder",
		ActorID:        systemActor,
		ObjectType:     activityObjectType,
		ObjectID:       r.BookID.String(),
		DefinitionCode: EventSLAReminder,
		Recipients:     recipients,
		Metadata:       meta,
	})
}

func (g *ActivityGateway) emit(ctx context.Context, event activity.Event) error {
	if err := g.emitter.Emit(ctx, event); err != nil {
		return &DeliveryError{Gateway: "activity", Event: event.DefinitionCode, Target: event.ObjectID, Attempts: 1, Err: err}
	}
	return nil
}
