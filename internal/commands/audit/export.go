package auditcmd

import (
	"context"
	"io"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-publishing/internal/audit"
	"github.com/goliatone/go-publishing/internal/commands"
	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/pkg/interfaces"
	"github.com/google/uuid"
)

const exportAuditMessageType = "publishing.audit.export"

// Exporter streams matching ledger events.
type Exporter interface {
	ExportAuditEvents(ctx context.Context, filter audit.Filter, out io.Writer) (int, error)
}

// ExportAuditCommand exports ledger events as JSON lines.
type ExportAuditCommand struct {
	BookID    *uuid.UUID `json:"book_id,omitempty"`
	ActorID   string     `json:"actor_id,omitempty"`
	EventType string     `json:"event_type,omitempty"`
	ToStatus  string     `json:"to_status,omitempty"`
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`
}

// Type implements command.Message.
func (ExportAuditCommand) Type() string { return exportAuditMessageType }

// Validate ensures the command payload is well-formed.
func (m ExportAuditCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.EventType, validation.In(eventTypes()...)),
		validation.Field(&m.ToStatus, validation.By(func(value any) error {
			raw, _ := value.(string)
			if raw == "" {
				return nil
			}
			if _, ok := domain.ParseStatus(raw); !ok {
				return validation.NewError("publishing.audit.export.status_invalid", "to_status is not a known status")
			}
			return nil
		})),
		validation.Field(&m.To, validation.By(func(any) error {
			if m.From != nil && m.To != nil && m.To.Before(*m.From) {
				return validation.NewError("publishing.audit.export.range_invalid", "to must not precede from")
			}
			return nil
		})),
	)
}

// Filter converts the command into a ledger filter.
func (m ExportAuditCommand) Filter() audit.Filter {
	filter := audit.Filter{
		BookID:    m.BookID,
		ActorID:   strings.TrimSpace(m.ActorID),
		EventType: audit.EventType(m.EventType),
		FromDate:  m.From,
		ToDate:    m.To,
	}
	if status, ok := domain.ParseStatus(m.ToStatus); ok {
		filter.ToStatus = status
	}
	return filter
}

// ExportAuditHandler writes matching audit events to the configured writer.
type ExportAuditHandler struct {
	exporter Exporter
	out      io.Writer
	logger   interfaces.Logger
	timeout  time.Duration
}

// ExportHandlerOption customises the export handler.
type ExportHandlerOption func(*ExportAuditHandler)

// ExportWithTimeout overrides the default execution timeout.
func ExportWithTimeout(timeout time.Duration) ExportHandlerOption {
	return func(h *ExportAuditHandler) {
		h.timeout = timeout
	}
}

// NewExportAuditHandler constructs a handler wired to the provided exporter. A nil out discards output.
func NewExportAuditHandler(exporter Exporter, out io.Writer, logger interfaces.Logger, opts ...ExportHandlerOption) *ExportAuditHandler {
	if out == nil {
		out = io.Discard
	}
	handler := &ExportAuditHandler{
		exporter: exporter,
		out:      out,
		logger:   commands.EnsureLogger(logger),
		timeout:  commands.DefaultCommandTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}
	return handler
}

// Execute satisfies command.Commander[ExportAuditCommand].
func (h *ExportAuditHandler) Execute(ctx context.Context, msg ExportAuditCommand) error {
	if err := commands.WrapValidationError(command.ValidateMessage(msg)); err != nil {
		return err
	}
	ctx, cancel, err := commands.BeginCommand(ctx, h.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	written, err := h.exporter.ExportAuditEvents(ctx, msg.Filter(), h.out)
	if err != nil {
		if ctx.Err() != nil {
			return commands.WrapContextError(err)
		}
		return commands.WrapExecuteError(err)
	}

	logging.WithFields(h.logger, map[string]any{
		"operation": "audit.export",
		"exported":  written,
	}).Info("audit.command.export.completed")
	return nil
}

// CLIHandler satisfies command.CLICommand by returning the handler.
func (h *ExportAuditHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for audit export.
func (h *ExportAuditHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"audit", "export"},
		Group:       "audit",
		Description: "Export audit events as JSON lines",
	}
}

func eventTypes() []any {
	return []any{
		string(audit.EventStatusChange),
		string(audit.EventReviewAssigned),
		string(audit.EventFeedbackProvided),
		string(audit.EventSLAViolation),
		string(audit.EventBulkOperation),
		string(audit.EventSystemAction),
		string(audit.EventUserAction),
	}
}
