package auditcmd

import (
	"errors"
	"io"

	"github.com/goliatone/go-publishing/internal/commands"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// Ledger groups the ledger operations exposed through commands.
type Ledger interface {
	Verifier
	Reporter
	Exporter
}

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// HandlerSet groups the audit handlers.
type HandlerSet struct {
	Verify *VerifyAuditHandler
	Report *ReportAuditHandler
	Export *ExportAuditHandler
}

// RegisterAuditCommands builds the audit handlers writing to out and registers them with reg.
func RegisterAuditCommands(reg CommandRegistry, ledger Ledger, out io.Writer, provider interfaces.LoggerProvider) (*HandlerSet, error) {
	if ledger == nil {
		return nil, errors.New("audit command registration: ledger is nil")
	}
	logger := commands.CommandLogger(provider, "audit")

	set := &HandlerSet{
		Verify: NewVerifyAuditHandler(ledger, logger, nil),
		Report: NewReportAuditHandler(ledger, out, logger),
		Export: NewExportAuditHandler(ledger, out, logger),
	}
	if reg != nil {
		for _, handler := range []any{set.Verify, set.Report, set.Export} {
			if err := reg.RegisterCommand(handler); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}
