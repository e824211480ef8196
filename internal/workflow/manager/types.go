package manager

import (
	"errors"
	"time"

	"github.com/goliatone/go-publishing/internal/books"
	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/google/uuid"
)

// ErrTransitionFailed wraps unexpected faults raised while executing a transition.
var ErrTransitionFailed = errors.New("workflow: transition failed")

// FailureCode classifies an unsuccessful TransitionResult.
type FailureCode string

const (
	FailureValidation      FailureCode = "VALIDATION_FAILED"
	FailureInvalidAction   FailureCode = "INVALID_ACTION"
	FailureNotFound        FailureCode = "NOT_FOUND"
	FailureVersionConflict FailureCode = "VERSION_CONFLICT"
	FailureInternal        FailureCode = "TRANSITION_FAILED"
)

// TransitionRequest asks the engine to apply action to a book on behalf of an actor.
// ActorRole is trusted as supplied; callers must authenticate role claims.
type TransitionRequest struct {
	BookID          uuid.UUID      `json:"bookId"`
	Action          domain.Action  `json:"action"`
	ActorID         string         `json:"actorId"`
	ActorRole       domain.Role    `json:"actorRole"`
	Reason          string         `json:"reason,omitempty"`
	TemplateID      string         `json:"templateId,omitempty"`
	IdempotencyKey  string         `json:"idempotencyKey,omitempty"`
	ExpectedVersion *int           `json:"expectedVersion,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// TransitionResult reports the outcome of a single transition.
type TransitionResult struct {
	Success           bool          `json:"success"`
	BookID            uuid.UUID     `json:"bookId"`
	NewStatus         domain.Status `json:"newStatus"`
	Version           int           `json:"version"`
	Errors            []string      `json:"errors"`
	Warnings          []string      `json:"warnings"`
	Failure           FailureCode   `json:"failure,omitempty"`
	AuditEventID      *uuid.UUID    `json:"auditEventId,omitempty"`
	SLAAlertTriggered bool          `json:"slaAlertTriggered"`
	DryRun            bool          `json:"dryRun,omitempty"`
}

// IsConflict reports whether the transition lost an optimistic concurrency race.
func (r TransitionResult) IsConflict() bool {
	return r.Failure == FailureVersionConflict
}

// BulkRequest runs several transitions. DryRun validates without writing.
type BulkRequest struct {
	Requests []TransitionRequest `json:"requests"`
	DryRun   bool                `json:"dryRun"`
	// ActorID is recorded on the bulk audit event. Defaults to the first request's actor.
	ActorID string `json:"actorId,omitempty"`
}

// BulkSummary aggregates bulk outcomes.
type BulkSummary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

// BulkResult holds one result per request, in request order.
type BulkResult struct {
	Results      []TransitionResult `json:"results"`
	Summary      BulkSummary        `json:"summary"`
	AuditEventID *uuid.UUID         `json:"auditEventId,omitempty"`
}

// OverdueBooks lists books that outstayed their SLA.
type OverdueBooks struct {
	ReviewOverdue   []*books.Book `json:"reviewOverdue"`
	RevisionOverdue []*books.Book `json:"revisionOverdue"`
}

// ReminderSummary counts reminders handed to the notification dispatcher.
type ReminderSummary struct {
	ReviewReminders   int `json:"reviewReminders"`
	RevisionReminders int `json:"revisionReminders"`
}

// SLAConfig holds the deadlines watched after a transition.
type SLAConfig struct {
	ReviewDeadline   time.Duration
	RevisionDeadline time.Duration
	EscalationRoles  []domain.Role
	ReminderInterval time.Duration
}

// DefaultSLAConfig returns 48h review, 7 day revision deadlines with admin escalation.
func DefaultSLAConfig() SLAConfig {
	return SLAConfig{
		ReviewDeadline:   48 * time.Hour,
		RevisionDeadline: 7 * 24 * time.Hour,
		EscalationRoles:  []domain.Role{domain.RoleContentAdmin, domain.RoleAdmin},
		ReminderInterval: 24 * time.Hour,
	}
}

func (c SLAConfig) escalationRoles() []string {
	out := make([]string, 0, len(c.EscalationRoles))
	for _, role := range c.EscalationRoles {
		out = append(out, string(role))
	}
	return out
}
