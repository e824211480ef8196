// Package logging names the publishing loggers and carries structured fields between
// them. Providers live in the console and gologger subpackages.
package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-publishing/pkg/interfaces"
)

const (
	rootModule          = "publishing"
	workflowModule      = "publishing.workflow"
	auditModule         = "publishing.audit"
	notificationsModule = "publishing.notifications"
	schedulerModule     = "publishing.scheduler"
	idempotencyModule   = "publishing.idempotency"
)

const (
	fieldModule = "module"
	fieldBookID = "book_id"
	fieldAction = "action"
	fieldActor  = "actor_id"
)

// ModuleLogger asks provider for the module's logger and tags every entry with the
// module name. A nil provider, or one returning nil, yields NoOp. An empty module
// means the root "publishing" logger.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module = strings.TrimSpace(module); module == "" {
		module = rootModule
	}
	var logger interfaces.Logger
	if provider != nil {
		logger = provider.GetLogger(module)
	}
	if logger == nil {
		logger = NoOp()
	}
	return WithFields(logger, map[string]any{fieldModule: module})
}

func WorkflowLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, workflowModule)
}

func AuditLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, auditModule)
}

func NotificationsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, notificationsModule)
}

// SchedulerLogger is shared by the scheduler and the SLA job worker.
func SchedulerLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, schedulerModule)
}

func IdempotencyLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, idempotencyModule)
}

// WithTransitionContext tags logger with the book, action and actor of a transition,
// skipping blank values.
func WithTransitionContext(logger interfaces.Logger, bookID, action, actorID string) interfaces.Logger {
	fields := make(map[string]any, 3)
	for key, value := range map[string]string{fieldBookID: bookID, fieldAction: action, fieldActor: actorID} {
		if value = strings.TrimSpace(value); value != "" {
			fields[key] = value
		}
	}
	return WithFields(logger, fields)
}

// NoOp discards everything.
func NoOp() interfaces.Logger {
	return discard{}
}

type discard struct{}

var _ interfaces.FieldsLogger = discard{}

func (discard) Trace(string, ...any) {}
func (discard) Debug(string, ...any) {}
func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}
func (discard) Fatal(string, ...any) {}

func (d discard) WithFields(map[string]any) interfaces.Logger   { return d }
func (d discard) WithContext(context.Context) interfaces.Logger { return d }
