package publishing

import (
	"context"

	"github.com/goliatone/go-publishing/internal/audit"
	"github.com/goliatone/go-publishing/internal/books"
	"github.com/goliatone/go-publishing/internal/di"
	"github.com/goliatone/go-publishing/internal/jobs"
	"github.com/goliatone/go-publishing/internal/workflow"
	"github.com/goliatone/go-publishing/internal/workflow/manager"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// WorkflowService exports the transition orchestrator contract.
type WorkflowService = manager.Service

// TransitionRequest exports the single transition request DTO.
type TransitionRequest = manager.TransitionRequest

// TransitionResult exports the single transition result DTO.
type TransitionResult = manager.TransitionResult

// BulkRequest exports the bulk transition request DTO.
type BulkRequest = manager.BulkRequest

// BulkResult exports the bulk transition result DTO.
type BulkResult = manager.BulkResult

// FailureCode exports the transition failure classification.
type FailureCode = manager.FailureCode

// OverdueBooks exports the overdue sweep result.
type OverdueBooks = manager.OverdueBooks

// ReminderSummary exports the reminder sweep result.
type ReminderSummary = manager.ReminderSummary

// Book exports the publishing record.
type Book = books.Book

// DraftInput exports the draft creation payload.
type DraftInput = books.DraftInput

// TransitionRule exports a catalog rule.
type TransitionRule = workflow.TransitionRule

// AuditEvent exports a ledger entry.
type AuditEvent = audit.Event

// AuditFilter exports the ledger query filter.
type AuditFilter = audit.Filter

// IntegrityReport exports the audit chain verification result.
type IntegrityReport = audit.IntegrityReport

// ComplianceReport exports the compliance report DTO.
type ComplianceReport = audit.ComplianceReport

// AnalyticsMetrics exports the analytics DTO.
type AnalyticsMetrics = audit.AnalyticsMetrics

// JobsResult exports the SLA worker run summary.
type JobsResult = jobs.Result

const (
	FailureValidation      = manager.FailureValidation
	FailureInvalidAction   = manager.FailureInvalidAction
	FailureNotFound        = manager.FailureNotFound
	FailureVersionConflict = manager.FailureVersionConflict
	FailureInternal        = manager.FailureInternal
)

// Module represents the top level publishing runtime façade.
type Module struct {
	container *di.Container
}

// New constructs a publishing module using the provided configuration and optional DI overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Workflow returns the transition orchestrator.
func (m *Module) Workflow() WorkflowService {
	return m.container.WorkflowService()
}

// Ledger returns the audit ledger used for queries, verification and reports.
func (m *Module) Ledger() *audit.Ledger {
	return m.container.Ledger()
}

// Catalog returns the active transition rule catalog.
func (m *Module) Catalog() *workflow.Catalog {
	return m.container.Catalog()
}

// Scheduler returns the scheduler holding SLA watcher jobs.
func (m *Module) Scheduler() interfaces.Scheduler {
	return m.container.Scheduler()
}

// ProcessSLAJobs records SLA violations for every due watcher job.
func (m *Module) ProcessSLAJobs(ctx context.Context) (JobsResult, error) {
	return m.container.Worker().Process(ctx)
}

// InitSchema creates the database tables. It is a no-op for in-memory storage.
func (m *Module) InitSchema(ctx context.Context) error {
	return m.container.InitSchema(ctx)
}

// Close flushes pending notifications and releases owned connections.
func (m *Module) Close() error {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Close()
}
