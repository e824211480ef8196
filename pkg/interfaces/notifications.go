package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SLA reminder kinds.
const (
	ReminderReviewOverdue   = "REVIEW_OVERDUE"
	ReminderRevisionOverdue = "REVISION_OVERDUE"
)

// NotificationGateway delivers workflow notifications. Callers do not wait on
// delivery; gateways own their retry policy and must accept payloads that
// describe transitions committed some time ago.
type NotificationGateway interface {
	SendTransitionNotification(ctx context.Context, notification TransitionNotification) error
	SendSLAReminder(ctx context.Context, reminder SLAReminder) error
}

// TransitionNotification describes a committed status change.
type TransitionNotification struct {
	BookID     uuid.UUID `json:"bookId"`
	Slug       string    `json:"slug,omitempty"`
	Title      string    `json:"title,omitempty"`
	AuthorID   string    `json:"authorId,omitempty"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actorId"`
	ActorRole  string    `json:"actorRole"`
	Reason     string    `json:"reason,omitempty"`
	TemplateID string    `json:"templateId,omitempty"`
	Version    int       `json:"version"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ReminderRecipients addresses an SLA reminder either to escalation roles or to
// the book author.
type ReminderRecipients struct {
	Roles    []string `json:"roles,omitempty"`
	AuthorID string   `json:"authorId,omitempty"`
}

// SLAReminder flags a book that stayed too long in a watched status.
type SLAReminder struct {
	BookID        uuid.UUID          `json:"bookId"`
	Slug          string             `json:"slug,omitempty"`
	Title         string             `json:"title,omitempty"`
	Type          string             `json:"type"`
	Status        string             `json:"status"`
	DeadlineHours float64            `json:"deadlineHours,omitempty"`
	DeadlineDays  float64            `json:"deadlineDays,omitempty"`
	Recipients    ReminderRecipients `json:"recipients"`
	Since         time.Time          `json:"since"`
}
