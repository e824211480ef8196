package activity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-publishing/pkg/activity"
)

type failingHook struct{ err error }

func (h failingHook) Notify(context.Context, activity.Event) error { return h.err }

func TestEmitterStampsChannelAndTime(t *testing.T) {
	hook := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{hook}, activity.Config{Enabled: true, Channel: "publishing"})

	if err := emitter.Emit(context.Background(), activity.Event{Verb: "submit", ObjectType: "book"}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	events := hook.Snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Channel != "publishing" {
		t.Fatalf("expected default channel, got %q", events[0].Channel)
	}
	if events[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be stamped")
	}
}

func TestEmitterDisabled(t *testing.T) {
	hook := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{hook}, activity.Config{Enabled: false})

	if emitter.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	_ = emitter.Emit(context.Background(), activity.Event{Verb: "submit"})
	if len(hook.Snapshot()) != 0 {
		t.Fatalf("disabled emitter should not notify hooks")
	}

	var nilEmitter *activity.Emitter
	if nilEmitter.Enabled() {
		t.Fatalf("nil emitter reports enabled")
	}
}

func TestEmitterJoinsHookErrors(t *testing.T) {
	boom := errors.New("boom")
	hook := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{failingHook{err: boom}, nil, hook}, activity.Config{Enabled: true})

	err := emitter.Emit(context.Background(), activity.Event{Verb: "approve"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined hook error, got %v", err)
	}
	if len(hook.Snapshot()) != 1 {
		t.Fatalf("later hooks should still be notified")
	}
}
