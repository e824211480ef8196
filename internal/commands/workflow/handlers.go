package workflowcmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-publishing/internal/commands"
	"github.com/goliatone/go-publishing/internal/jobs"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/workflow/manager"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// Worker exposes the SLA job processing used by the cron handler.
type Worker interface {
	Process(ctx context.Context) (jobs.Result, error)
}

// TransitionObserver receives every transition result produced by a handler.
type TransitionObserver func(manager.TransitionResult)

// TransitionHandler executes TransitionCommand messages against the orchestrator.
type TransitionHandler struct {
	inner *commands.Handler[TransitionCommand]
}

// NewTransitionHandler builds a handler that maps unsuccessful results onto categorised errors.
func NewTransitionHandler(service manager.Service, logger interfaces.Logger, observe TransitionObserver, opts ...commands.HandlerOption[TransitionCommand]) *TransitionHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg TransitionCommand) error {
		result, err := service.ExecuteTransition(ctx, msg.Request())
		if observe != nil {
			observe(result)
		}
		if err != nil {
			return err
		}
		return resultError(result)
	}

	handlerOpts := []commands.HandlerOption[TransitionCommand]{
		commands.WithLogger[TransitionCommand](baseLogger),
		commands.WithOperation[TransitionCommand]("workflow.transition"),
		commands.WithMessageFields(func(msg TransitionCommand) map[string]any {
			fields := map[string]any{
				"book_id":    msg.BookID,
				"action":     msg.Action,
				"actor_id":   msg.ActorID,
				"actor_role": msg.ActorRole,
			}
			if msg.IdempotencyKey != "" {
				fields["idempotency_key"] = msg.IdempotencyKey
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[TransitionCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &TransitionHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[TransitionCommand].
func (h *TransitionHandler) Execute(ctx context.Context, msg TransitionCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CLIHandler exposes the handler to CLI integrations.
func (h *TransitionHandler) CLIHandler() any { return h }

// CLIOptions describes the CLI metadata for single transitions.
func (h *TransitionHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"workflow", "transition"},
		Group:       "workflow",
		Description: "Apply a workflow action to a book",
	}
}

func resultError(result manager.TransitionResult) error {
	if result.Success {
		return nil
	}
	switch result.Failure {
	case manager.FailureNotFound:
		return commands.NotFoundError(strings.Join(result.Errors, "; "))
	case manager.FailureVersionConflict:
		return commands.ConflictError(strings.Join(result.Errors, "; "))
	default:
		return commands.RejectedError(result.Errors)
	}
}

// BulkObserver receives the aggregated bulk result.
type BulkObserver func(manager.BulkResult)

// BulkTransitionHandler executes BulkTransitionCommand messages.
type BulkTransitionHandler struct {
	inner *commands.Handler[BulkTransitionCommand]
}

// NewBulkTransitionHandler builds a handler for bulk transitions. Individual failures are reported
// through the summary and do not fail the command.
func NewBulkTransitionHandler(service manager.Service, logger interfaces.Logger, observe BulkObserver, opts ...commands.HandlerOption[BulkTransitionCommand]) *BulkTransitionHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg BulkTransitionCommand) error {
		result, err := service.ExecuteBulkTransitions(ctx, msg.Request())
		if err != nil {
			return err
		}
		if observe != nil {
			observe(result)
		}
		logging.WithFields(baseLogger, map[string]any{
			"total":      result.Summary.Total,
			"successful": result.Summary.Successful,
			"failed":     result.Summary.Failed,
			"dry_run":    msg.DryRun,
		}).Info("workflow.command.bulk.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[BulkTransitionCommand]{
		commands.WithLogger[BulkTransitionCommand](baseLogger),
		commands.WithOperation[BulkTransitionCommand]("workflow.bulk"),
		commands.WithMessageFields(func(msg BulkTransitionCommand) map[string]any {
			return map[string]any{
				"requests": len(msg.Requests),
				"dry_run":  msg.DryRun,
			}
		}),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &BulkTransitionHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[BulkTransitionCommand].
func (h *BulkTransitionHandler) Execute(ctx context.Context, msg BulkTransitionCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CLIHandler exposes the handler to CLI integrations.
func (h *BulkTransitionHandler) CLIHandler() any { return h }

// CLIOptions describes the CLI metadata for bulk transitions.
func (h *BulkTransitionHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"workflow", "bulk"},
		Group:       "workflow",
		Description: "Apply several workflow actions, optionally as a dry run",
	}
}

// SLARemindersHandler sends overdue reminders on a cron schedule.
type SLARemindersHandler struct {
	inner      *commands.Handler[SLARemindersCommand]
	cronConfig command.HandlerConfig
}

// NewSLARemindersHandler builds the reminder sweep handler. The cron expression defaults to the
// reminder interval.
func NewSLARemindersHandler(service manager.Service, logger interfaces.Logger, interval time.Duration, opts ...commands.HandlerOption[SLARemindersCommand]) *SLARemindersHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, _ SLARemindersCommand) error {
		summary, err := service.SendSLAReminders(ctx)
		if err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"review_reminders":   summary.ReviewReminders,
			"revision_reminders": summary.RevisionReminders,
		}).Info("workflow.command.sla_reminders.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[SLARemindersCommand]{
		commands.WithLogger[SLARemindersCommand](baseLogger),
		commands.WithOperation[SLARemindersCommand]("workflow.sla_reminders"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &SLARemindersHandler{
		inner:      commands.NewHandler(exec, handlerOpts...),
		cronConfig: command.HandlerConfig{Expression: everyExpression(interval, "@every 24h")},
	}
}

// Execute satisfies command.Commander[SLARemindersCommand].
func (h *SLARemindersHandler) Execute(ctx context.Context, msg SLARemindersCommand) error {
	return h.inner.Execute(ctx, msg)
}

// WithCronExpression overrides the schedule used by CronOptions.
func (h *SLARemindersHandler) WithCronExpression(expression string) *SLARemindersHandler {
	if trimmed := strings.TrimSpace(expression); trimmed != "" {
		h.cronConfig.Expression = trimmed
	}
	return h
}

// CronHandler satisfies command.CronCommand.
func (h *SLARemindersHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), SLARemindersCommand{})
	}
}

// CronOptions satisfies command.CronCommand.
func (h *SLARemindersHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

// CLIHandler exposes the handler to CLI integrations.
func (h *SLARemindersHandler) CLIHandler() any { return h }

// CLIOptions describes the CLI metadata for reminder sweeps.
func (h *SLARemindersHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"sla", "remind"},
		Group:       "sla",
		Description: "Send reminders for books that outstayed their review or revision SLA",
	}
}

// SLAJobsHandler drains due SLA watcher jobs on a cron schedule.
type SLAJobsHandler struct {
	inner      *commands.Handler[SLAJobsCommand]
	cronConfig command.HandlerConfig
}

// NewSLAJobsHandler builds the SLA watcher handler. The cron expression defaults to every minute.
func NewSLAJobsHandler(worker Worker, logger interfaces.Logger, opts ...commands.HandlerOption[SLAJobsCommand]) *SLAJobsHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, _ SLAJobsCommand) error {
		result, err := worker.Process(ctx)
		if err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"processed":  result.Processed,
			"violations": result.Violations,
			"stale":      result.Stale,
			"failed":     result.Failed,
		}).Info("workflow.command.sla_jobs.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[SLAJobsCommand]{
		commands.WithLogger[SLAJobsCommand](baseLogger),
		commands.WithOperation[SLAJobsCommand]("workflow.sla_jobs"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &SLAJobsHandler{
		inner:      commands.NewHandler(exec, handlerOpts...),
		cronConfig: command.HandlerConfig{Expression: "@every 1m"},
	}
}

// Execute satisfies command.Commander[SLAJobsCommand].
func (h *SLAJobsHandler) Execute(ctx context.Context, msg SLAJobsCommand) error {
	return h.inner.Execute(ctx, msg)
}

// WithCronExpression overrides the schedule used by CronOptions.
func (h *SLAJobsHandler) WithCronExpression(expression string) *SLAJobsHandler {
	if trimmed := strings.TrimSpace(expression); trimmed != "" {
		h.cronConfig.Expression = trimmed
	}
	return h
}

// CronHandler satisfies command.CronCommand.
func (h *SLAJobsHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), SLAJobsCommand{})
	}
}

// CronOptions satisfies command.CronCommand.
func (h *SLAJobsHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

// CLIHandler exposes the handler to CLI integrations.
func (h *SLAJobsHandler) CLIHandler() any { return h }

// CLIOptions describes the CLI metadata for SLA job processing.
func (h *SLAJobsHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"sla", "process"},
		Group:       "sla",
		Description: "Record SLA violations for due watcher jobs",
	}
}

func everyExpression(interval time.Duration, fallback string) string {
	if interval <= 0 {
		return fallback
	}
	return fmt.Sprintf("@every %s", interval)
}
