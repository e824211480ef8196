package di_test

import (
	"context"
	"maps"
	"sync"
	"testing"

	"github.com/goliatone/go-publishing/internal/di"
	"github.com/goliatone/go-publishing/internal/runtimeconfig"
	"github.com/goliatone/go-publishing/pkg/interfaces"
	"github.com/stretchr/testify/require"
)

func TestContainerLogsConfiguredProviders(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*runtimeconfig.Config)
		msg      string
		module   string
		provider string
	}{
		{"in-memory scheduler", nil, "scheduler.configured", "publishing.scheduler", "in-memory"},
		{"disabled scheduler", func(cfg *runtimeconfig.Config) { cfg.SLA.DisableWatchers = true }, "scheduler.configured", "publishing.scheduler", "disabled"},
		{"memory idempotency", nil, "idempotency.configured", "publishing.idempotency", "memory"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := runtimeconfig.DefaultConfig()
			cfg.Features.Logger = true
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			rec := &logRecorder{}

			container, err := di.NewContainer(cfg, di.WithLoggerProvider(rec))
			require.NoError(t, err)
			defer container.Close()

			entry, ok := rec.find(tc.msg)
			require.True(t, ok, "missing %s in %v", tc.msg, rec.messages())
			require.Equal(t, tc.module, entry.fields["module"])
			require.Equal(t, tc.provider, entry.fields["provider"])
		})
	}
}

func TestContainerTransitionLogsCarryBookContext(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Features.Logger = true
	rec := &logRecorder{}

	container, err := di.NewContainer(cfg, di.WithLoggerProvider(rec))
	require.NoError(t, err)
	defer container.Close()

	book := createAndSubmit(t, container.WorkflowService())

	var found bool
	for _, entry := range rec.snapshot() {
		if entry.fields["module"] == "publishing.workflow" && entry.fields["book_id"] == book.ID.String() {
			found = true
			break
		}
	}
	require.True(t, found, "expected a workflow entry tagged with book %s in %v", book.ID, rec.messages())
}

type logEntry struct {
	level  string
	msg    string
	fields map[string]any
}

type logRecorder struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *logRecorder) GetLogger(name string) interfaces.Logger {
	return &fieldLogger{rec: r, fields: map[string]any{"logger": name}}
}

func (r *logRecorder) snapshot() []logEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]logEntry(nil), r.entries...)
}

func (r *logRecorder) find(msg string) (logEntry, bool) {
	for _, entry := range r.snapshot() {
		if entry.msg == msg {
			return entry, true
		}
	}
	return logEntry{}, false
}

func (r *logRecorder) messages() []string {
	var out []string
	for _, entry := range r.snapshot() {
		out = append(out, entry.level+" "+entry.msg)
	}
	return out
}

type fieldLogger struct {
	rec    *logRecorder
	fields map[string]any
}

var _ interfaces.FieldsLogger = (*fieldLogger)(nil)

func (l *fieldLogger) Trace(msg string, args ...any) { l.log("trace", msg, args) }
func (l *fieldLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }
func (l *fieldLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *fieldLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *fieldLogger) Error(msg string, args ...any) { l.log("error", msg, args) }
func (l *fieldLogger) Fatal(msg string, args ...any) { l.log("fatal", msg, args) }

func (l *fieldLogger) WithContext(context.Context) interfaces.Logger { return l }

func (l *fieldLogger) WithFields(fields map[string]any) interfaces.Logger {
	merged := maps.Clone(l.fields)
	maps.Copy(merged, fields)
	return &fieldLogger{rec: l.rec, fields: merged}
}

func (l *fieldLogger) log(level, msg string, args []any) {
	fields := maps.Clone(l.fields)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok && key != "" {
			fields[key] = args[i+1]
		}
	}
	l.rec.mu.Lock()
	l.rec.entries = append(l.rec.entries, logEntry{level: level, msg: msg, fields: fields})
	l.rec.mu.Unlock()
}
