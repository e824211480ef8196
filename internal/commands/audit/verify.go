package auditcmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-publishing/internal/audit"
	"github.com/goliatone/go-publishing/internal/commands"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/pkg/interfaces"
	"github.com/google/uuid"
)

const verifyAuditMessageType = "publishing.audit.verify"

// ErrIntegrityViolation is returned when a book's audit chain fails verification.
var ErrIntegrityViolation = errors.New("audit: integrity violation")

// Verifier exposes chain verification.
type Verifier interface {
	VerifyAuditIntegrity(ctx context.Context, bookID uuid.UUID) (audit.IntegrityReport, error)
}

// VerifyAuditCommand verifies the checksum chain of a single book.
type VerifyAuditCommand struct {
	BookID uuid.UUID `json:"book_id"`
}

// Type implements command.Message.
func (VerifyAuditCommand) Type() string { return verifyAuditMessageType }

// Validate ensures the book id is present.
func (m VerifyAuditCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.BookID, validation.By(func(value any) error {
			if id, _ := value.(uuid.UUID); id == uuid.Nil {
				return validation.NewError("publishing.audit.verify.book_id_required", "book_id is required")
			}
			return nil
		})),
	)
}

// VerifyAuditHandler runs integrity verification and fails when issues are found.
type VerifyAuditHandler struct {
	inner *commands.Handler[VerifyAuditCommand]
}

// NewVerifyAuditHandler constructs a handler bound to verifier. observe, when set, receives every report.
func NewVerifyAuditHandler(verifier Verifier, logger interfaces.Logger, observe func(audit.IntegrityReport), opts ...commands.HandlerOption[VerifyAuditCommand]) *VerifyAuditHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg VerifyAuditCommand) error {
		report, err := verifier.VerifyAuditIntegrity(ctx, msg.BookID)
		if err != nil {
			return err
		}
		if observe != nil {
			observe(report)
		}
		entry := logging.WithFields(baseLogger, map[string]any{
			"book_id": msg.BookID,
			"events":  len(report.Events),
			"issues":  len(report.Issues),
		})
		if !report.Valid {
			entry.Warn("audit.command.verify.failed")
			return fmt.Errorf("%w: %s", ErrIntegrityViolation, strings.Join(report.Issues, "; "))
		}
		entry.Info("audit.command.verify.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[VerifyAuditCommand]{
		commands.WithLogger[VerifyAuditCommand](baseLogger),
		commands.WithOperation[VerifyAuditCommand]("audit.verify"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &VerifyAuditHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[VerifyAuditCommand].
func (h *VerifyAuditHandler) Execute(ctx context.Context, msg VerifyAuditCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CLIHandler exposes the handler to CLI integrations.
func (h *VerifyAuditHandler) CLIHandler() any { return h }

// CLIOptions describes the CLI metadata for audit verification.
func (h *VerifyAuditHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"audit", "verify"},
		Group:       "audit",
		Description: "Verify the audit checksum chain of a book",
	}
}
