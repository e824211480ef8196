package workflowcmd

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/workflow/manager"
	"github.com/google/uuid"
)

const (
	transitionMessageType   = "publishing.workflow.transition"
	bulkMessageType         = "publishing.workflow.bulk"
	slaRemindersMessageType = "publishing.workflow.sla_reminders"
	slaJobsMessageType      = "publishing.workflow.sla_jobs"
)

// TransitionCommand requests a single workflow transition.
type TransitionCommand struct {
	BookID          uuid.UUID      `json:"book_id"`
	Action          string         `json:"action"`
	ActorID         string         `json:"actor_id"`
	ActorRole       string         `json:"actor_role"`
	Reason          string         `json:"reason,omitempty"`
	TemplateID      string         `json:"template_id,omitempty"`
	IdempotencyKey  string         `json:"idempotency_key,omitempty"`
	ExpectedVersion *int           `json:"expected_version,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Type implements command.Message.
func (TransitionCommand) Type() string { return transitionMessageType }

// Validate ensures identifiers are present and action and role are known.
func (m TransitionCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.BookID, validation.By(requireUUID)),
		validation.Field(&m.Action, validation.Required, validation.By(knownAction)),
		validation.Field(&m.ActorID, validation.Required),
		validation.Field(&m.ActorRole, validation.Required, validation.By(knownRole)),
		validation.Field(&m.ExpectedVersion, validation.By(positiveVersion)),
	)
}

// Request converts the message into an orchestrator request.
func (m TransitionCommand) Request() manager.TransitionRequest {
	action, _ := domain.ParseAction(m.Action)
	role, _ := domain.ParseRole(m.ActorRole)
	return manager.TransitionRequest{
		BookID:          m.BookID,
		Action:          action,
		ActorID:         strings.TrimSpace(m.ActorID),
		ActorRole:       role,
		Reason:          m.Reason,
		TemplateID:      m.TemplateID,
		IdempotencyKey:  m.IdempotencyKey,
		ExpectedVersion: m.ExpectedVersion,
		Metadata:        m.Metadata,
	}
}

// BulkTransitionCommand runs several transitions, optionally as a dry run.
type BulkTransitionCommand struct {
	Requests []TransitionCommand `json:"requests"`
	DryRun   bool                `json:"dry_run,omitempty"`
	ActorID  string              `json:"actor_id,omitempty"`
}

// Type implements command.Message.
func (BulkTransitionCommand) Type() string { return bulkMessageType }

// Validate requires at least one request and validates each of them.
func (m BulkTransitionCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Requests, validation.Required),
	)
}

// Request converts the message into an orchestrator bulk request.
func (m BulkTransitionCommand) Request() manager.BulkRequest {
	requests := make([]manager.TransitionRequest, 0, len(m.Requests))
	for _, item := range m.Requests {
		requests = append(requests, item.Request())
	}
	return manager.BulkRequest{
		Requests: requests,
		DryRun:   m.DryRun,
		ActorID:  strings.TrimSpace(m.ActorID),
	}
}

// SLARemindersCommand sends reminders for every overdue book.
type SLARemindersCommand struct{}

// Type implements command.Message.
func (SLARemindersCommand) Type() string { return slaRemindersMessageType }

// Validate satisfies command.Message.
func (SLARemindersCommand) Validate() error { return nil }

// SLAJobsCommand processes due SLA watcher jobs.
type SLAJobsCommand struct{}

// Type implements command.Message.
func (SLAJobsCommand) Type() string { return slaJobsMessageType }

// Validate satisfies command.Message.
func (SLAJobsCommand) Validate() error { return nil }

func requireUUID(value any) error {
	id, _ := value.(uuid.UUID)
	if id == uuid.Nil {
		return validation.NewError("publishing.workflow.book_id_required", "Book ID is required")
	}
	return nil
}

func knownAction(value any) error {
	raw, _ := value.(string)
	if _, ok := domain.ParseAction(raw); !ok {
		return validation.NewError("publishing.workflow.action_unknown", "unknown action "+raw)
	}
	return nil
}

func knownRole(value any) error {
	raw, _ := value.(string)
	if _, ok := domain.ParseRole(raw); !ok {
		return validation.NewError("publishing.workflow.role_unknown", "unknown role "+raw)
	}
	return nil
}

func positiveVersion(value any) error {
	version, _ := value.(*int)
	if version != nil && *version <= 0 {
		return validation.NewError("publishing.workflow.expected_version_invalid", "expected_version must be greater than zero")
	}
	return nil
}

// ErrServiceRequired indicates handler construction without an orchestrator.
var ErrServiceRequired = errors.New("workflow commands: service is nil")
