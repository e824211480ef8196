package commands

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// DefaultCommandTimeout covers a transition, its audit append and the notification fan-out.
// Bulk runs and exports usually override it.
const DefaultCommandTimeout = 30 * time.Second

// BeginCommand prepares the context a command runs under. A nil ctx is treated as
// background and a non-positive timeout leaves the deadline alone. The returned error is
// already categorised when ctx was canceled before the command started.
func BeginCommand(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	if err := ctx.Err(); err != nil {
		cancel()
		return ctx, func() {}, WrapContextError(err)
	}
	return ctx, cancel, nil
}

// EnsureLogger substitutes the no-op logger for nil.
func EnsureLogger(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return logging.NoOp()
	}
	return logger
}

// CommandLogger names the logger for a command group, e.g. publishing.commands.workflow.
// Entries carry the group so CLI and cron invocations can be told apart from service calls.
func CommandLogger(provider interfaces.LoggerProvider, group string) interfaces.Logger {
	group = strings.ToLower(strings.TrimSpace(group))
	if group == "" {
		group = "core"
	}
	return logging.WithFields(
		logging.ModuleLogger(provider, "publishing.commands."+group),
		map[string]any{"command_group": group},
	)
}
