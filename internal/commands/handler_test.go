package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

type testMessage struct{}

func (testMessage) Type() string { return "publishing.test.message" }

func (testMessage) Validate() error { return nil }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "publishing.test.invalid" }

func (invalidMessage) Validate() error {
	return validationError()
}

func validationError() error {
	return errors.New("invalid")
}

func TestHandlerExecuteSuccess(t *testing.T) {
	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !called {
		t.Fatal("expected handler to be invoked")
	}
}

func TestHandlerValidationShortCircuitsExecution(t *testing.T) {
	called := false
	h := NewHandler[invalidMessage](func(ctx context.Context, msg invalidMessage) error {
		called = true
		return nil
	})

	err := h.Execute(context.Background(), invalidMessage{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when validation fails")
	}
}

func TestHandlerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	err := h.Execute(ctx, testMessage{})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when context is cancelled")
	}
}

func TestHandlerWrapsExecutionError(t *testing.T) {
	execErr := errors.New("boom")
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return execErr
	})

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected wrapped execution error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if !goerrors.HasCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category to propagate, got %v", err)
	}
}

func TestHandlerHonoursTimeoutOption(t *testing.T) {
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return nil
		}
	}, WithTimeout[testMessage](10*time.Millisecond))

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category for timeout, got %v", err)
	}
}

func TestHandlerTelemetryReceivesOutcome(t *testing.T) {
	var infos []TelemetryInfo
	telemetry := func(_ context.Context, _ testMessage, info TelemetryInfo) {
		infos = append(infos, info)
	}
	failing := errors.New("boom")
	calls := 0
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		calls++
		if calls == 2 {
			return failing
		}
		return nil
	}, WithTelemetry[testMessage](telemetry), WithOperation[testMessage]("publishing.test"))

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("first execute: %v", err)
	}
	if err := h.Execute(context.Background(), testMessage{}); err == nil {
		t.Fatal("expected second execute to fail")
	}

	if len(infos) != 2 {
		t.Fatalf("expected two telemetry callbacks, got %d", len(infos))
	}
	if infos[0].Status != TelemetryStatusSuccess || infos[0].Command != "publishing.test.message" {
		t.Fatalf("unexpected success telemetry: %+v", infos[0])
	}
	if infos[1].Status != TelemetryStatusFailed || !errors.Is(infos[1].Error, failing) {
		t.Fatalf("unexpected failure telemetry: %+v", infos[1])
	}
	if infos[1].Operation != "publishing.test" {
		t.Fatalf("expected operation to be forwarded, got %q", infos[1].Operation)
	}
}

func TestOutcomeErrorsCarryCategories(t *testing.T) {
	if err := NotFoundError("Book with ID x not found"); !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Fatalf("expected not found category, got %v", err)
	}
	if err := ConflictError("Version mismatch detected"); !goerrors.IsCategory(err, goerrors.CategoryConflict) {
		t.Fatalf("expected conflict category, got %v", err)
	}
	err := RejectedError([]string{"Required field 'title' is missing or empty"})
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if WrapExecuteError(err) != err {
		t.Fatal("expected already categorised errors to pass through")
	}
}

func TestHandlerReturnsRejectionsWithTheirCategory(t *testing.T) {
	var infos []TelemetryInfo
	h := NewHandler[testMessage](func(context.Context, testMessage) error {
		return NotFoundError("Book with ID x not found")
	}, WithTelemetry[testMessage](func(_ context.Context, _ testMessage, info TelemetryInfo) {
		infos = append(infos, info)
	}))

	err := h.Execute(context.Background(), testMessage{})
	if !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Fatalf("expected not found category to survive, got %v", err)
	}
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected sentinel to be reachable, got %v", err)
	}
	if len(infos) != 1 || infos[0].Status != TelemetryStatusRejected {
		t.Fatalf("expected rejected telemetry, got %+v", infos)
	}
}

func TestClassifyOutcome(t *testing.T) {
	cases := map[string]struct {
		err  error
		want TelemetryStatus
	}{
		"nil":        {nil, TelemetryStatusSuccess},
		"canceled":   {context.Canceled, TelemetryStatusContextError},
		"deadline":   {context.DeadlineExceeded, TelemetryStatusContextError},
		"conflict":   {ConflictError("Version mismatch detected"), TelemetryStatusRejected},
		"rejected":   {RejectedError(nil), TelemetryStatusRejected},
		"unexpected": {errors.New("disk full"), TelemetryStatusFailed},
	}
	for name, tc := range cases {
		if got := ClassifyOutcome(tc.err); got != tc.want {
			t.Errorf("%s: expected %s, got %s", name, tc.want, got)
		}
	}
}

type captureLogger struct {
	entries []string
	fields  map[string]any
}

func (l *captureLogger) record(level, msg string) { l.entries = append(l.entries, level+" "+msg) }

func (l *captureLogger) Trace(msg string, _ ...any) { l.record("trace", msg) }
func (l *captureLogger) Debug(msg string, _ ...any) { l.record("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.record("info", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.record("warn", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.record("error", msg) }
func (l *captureLogger) Fatal(msg string, _ ...any) { l.record("fatal", msg) }

func (l *captureLogger) WithContext(context.Context) interfaces.Logger { return l }

func (l *captureLogger) WithFields(fields map[string]any) interfaces.Logger {
	l.fields = fields
	return l
}

func TestDefaultTelemetryLevels(t *testing.T) {
	logger := &captureLogger{}
	telemetry := DefaultTelemetry[testMessage](logger)

	telemetry(context.Background(), testMessage{}, TelemetryInfo{Status: TelemetryStatusSuccess, Fields: map[string]any{"book_id": "b-1"}})
	telemetry(context.Background(), testMessage{}, TelemetryInfo{Status: TelemetryStatusRejected, Error: RejectedError(nil)})
	telemetry(context.Background(), testMessage{}, TelemetryInfo{Status: TelemetryStatusFailed, Error: errors.New("disk full")})

	want := []string{
		"info publishing.command.completed",
		"warn publishing.command.rejected",
		"error publishing.command.failed",
	}
	if len(logger.entries) != len(want) {
		t.Fatalf("expected %v, got %v", want, logger.entries)
	}
	for i := range want {
		if logger.entries[i] != want[i] {
			t.Fatalf("entry %d: expected %q, got %q", i, want[i], logger.entries[i])
		}
	}
	if logger.fields["book_id"] != "b-1" {
		t.Fatalf("expected fields to be bound, got %v", logger.fields)
	}
}
