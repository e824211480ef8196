package commands

import (
	"context"
	"errors"
	"time"

	command "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// TelemetryStatus classifies how a command ended. Rejected covers refused requests such
// as an illegal transition, a missing book or a stale expected version: the command ran
// correctly and said no.
type TelemetryStatus string

const (
	TelemetryStatusSuccess      TelemetryStatus = "success"
	TelemetryStatusRejected     TelemetryStatus = "rejected"
	TelemetryStatusFailed       TelemetryStatus = "failed"
	TelemetryStatusContextError TelemetryStatus = "context_error"
)

// TelemetryInfo is handed to telemetry callbacks once a command returns.
type TelemetryInfo struct {
	Command   string
	Operation string
	Fields    map[string]any
	Duration  time.Duration
	Error     error
	Status    TelemetryStatus
	Logger    interfaces.Logger
}

// Telemetry is invoked after every execution in place of the handler's own outcome logging.
type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)

// ClassifyOutcome maps an execution error onto a telemetry status.
func ClassifyOutcome(err error) TelemetryStatus {
	switch {
	case err == nil:
		return TelemetryStatusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return TelemetryStatusContextError
	case errors.Is(err, ErrRejected), errors.Is(err, ErrTargetNotFound), errors.Is(err, ErrVersionConflict):
		return TelemetryStatusRejected
	default:
		return TelemetryStatusFailed
	}
}

// DefaultTelemetry logs command outcomes. Rejections are warnings, everything else that
// went wrong is an error, and both carry the go-errors category and text code when present.
func DefaultTelemetry[T command.Message](logger interfaces.Logger) Telemetry[T] {
	logger = EnsureLogger(logger)
	return func(_ context.Context, _ T, info TelemetryInfo) {
		entry := logging.WithFields(logger, info.Fields)
		args := []any{"duration_ms", info.Duration.Milliseconds()}
		if info.Error != nil {
			args = append(args, errorAttributes(info.Error)...)
		}
		switch info.Status {
		case TelemetryStatusSuccess:
			entry.Info("publishing.command.completed", args...)
		case TelemetryStatusRejected:
			entry.Warn("publishing.command.rejected", args...)
		case TelemetryStatusContextError:
			entry.Error("publishing.command.interrupted", args...)
		default:
			entry.Error("publishing.command.failed", args...)
		}
	}
}

func errorAttributes(err error) []any {
	attrs := []any{"error", err.Error()}
	var categorised *goerrors.Error
	if errors.As(err, &categorised) {
		if categorised.TextCode != "" {
			attrs = append(attrs, "error_code", categorised.TextCode)
		}
		attrs = append(attrs, "error_category", string(categorised.Category))
	}
	return attrs
}
