package interfaces

import "context"

// Logger receives publishing log entries. The message is a dotted event key such as
// workflow.transition.committed and args alternate keys and values:
//
//	logger.Info("workflow.transition.committed", "to_status", "PENDING", "version", 2)
//
// A github.com/goliatone/go-logger logger satisfies it without an adapter.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// LoggerProvider returns the logger for a publishing module. Names are
// publishing.workflow, publishing.audit, publishing.notifications,
// publishing.scheduler, publishing.idempotency and publishing.commands.<group>.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// FieldsLogger binds fields such as book_id or actor_id to every later entry. Loggers
// without it still work; bound fields are dropped.
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}
