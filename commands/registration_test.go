package commands

import (
	"context"
	"errors"
	"testing"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-publishing/internal/books"
	auditcmd "github.com/goliatone/go-publishing/internal/commands/audit"
	workflowcmd "github.com/goliatone/go-publishing/internal/commands/workflow"
	"github.com/goliatone/go-publishing/internal/di"
	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/runtimeconfig"
	"github.com/stretchr/testify/require"
)

func newContainer(t *testing.T) *di.Container {
	t.Helper()
	container, err := di.NewContainer(runtimeconfig.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })
	return container
}

func TestRegisterContainerCommandsFeedsEveryIntegration(t *testing.T) {
	registry := &recordingRegistry{}
	subs := &recordingDispatcher{}
	cron := &recordingCron{}

	result, err := RegisterContainerCommands(newContainer(t), RegistrationOptions{
		Registry:        registry,
		Dispatcher:      subs,
		CronRegistrar:   cron.Registrar(),
		SLAReminderCron: "@weekly",
	})
	require.NoError(t, err)

	require.Len(t, result.Handlers, 7)
	require.Equal(t, result.Handlers, registry.handlers)
	require.Len(t, subs.subscriptions, 7)
	require.Len(t, cron.registrations, 2)
	require.Equal(t, "@weekly", cron.registrations[0].config.Expression)
	require.Equal(t, "@every 1m", cron.registrations[1].config.Expression)
	require.NotNil(t, cron.registrations[1].handler)
	require.NoError(t, cron.registrations[1].handler())

	result.Unsubscribe()
	for _, sub := range subs.subscriptions {
		require.True(t, sub.unsubscribed)
	}
}

func TestGoCommandDispatcherRunsTransitions(t *testing.T) {
	container := newContainer(t)
	result, err := RegisterContainerCommands(container, RegistrationOptions{
		Dispatcher: GoCommandDispatcher(runner.WithMaxRetries(0)),
	})
	require.NoError(t, err)
	t.Cleanup(result.Unsubscribe)
	require.Len(t, result.Subscriptions, 7)

	ctx := context.Background()
	book, err := container.WorkflowService().CreateDraft(ctx, books.DraftInput{
		AuthorID: "author-1",
		Fields: map[string]any{
			"title":      "The Lantern Keeper",
			"authorName": "Ama",
			"content":    "Every evening Kofi lit the lantern by the dock.",
		},
	})
	require.NoError(t, err)

	err = dispatcher.Dispatch(ctx, workflowcmd.TransitionCommand{
		BookID:    book.ID,
		Action:    "submit",
		ActorID:   "author-1",
		ActorRole: "LEARNER",
	})
	require.NoError(t, err)

	stored, err := container.WorkflowService().GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, stored.Status)

	require.NoError(t, dispatcher.Dispatch(ctx, auditcmd.VerifyAuditCommand{BookID: book.ID}))
}

func TestGoCommandDispatcherRejectsUnknownHandlers(t *testing.T) {
	_, err := GoCommandDispatcher().RegisterCommand(struct{}{})
	require.Error(t, err)
}

func TestRegisterContainerCommandsWithoutRegistrars(t *testing.T) {
	result, err := RegisterContainerCommands(newContainer(t), RegistrationOptions{})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}
	if len(result.Handlers) == 0 {
		t.Fatal("expected handlers to be built even without registrars")
	}
	if len(result.Subscriptions) != 0 {
		t.Fatalf("expected no dispatcher subscriptions without dispatcher, got %d", len(result.Subscriptions))
	}

	var hasTransition, hasVerify bool
	for _, handler := range result.Handlers {
		switch handler.(type) {
		case *workflowcmd.TransitionHandler:
			hasTransition = true
		case *auditcmd.VerifyAuditHandler:
			hasVerify = true
		}
	}
	if !hasTransition || !hasVerify {
		t.Fatalf("expected transition and verify handlers, got %#v", result.Handlers)
	}
}

func TestRegisterContainerCommandsJoinsDispatcherErrors(t *testing.T) {
	failure := errors.New("dispatcher offline")
	result, err := RegisterContainerCommands(newContainer(t), RegistrationOptions{
		Dispatcher: &recordingDispatcher{err: failure},
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected dispatcher error, got %v", err)
	}
	if len(result.Handlers) == 0 {
		t.Fatal("expected handlers to be returned alongside the error")
	}
}

func TestRegisterContainerCommandsNilContainer(t *testing.T) {
	result, err := RegisterContainerCommands(nil, RegistrationOptions{})
	if err != nil || len(result.Handlers) != 0 {
		t.Fatalf("expected empty result for nil container, got %v %v", result, err)
	}
}

type recordingRegistry struct {
	handlers []any
}

func (r *recordingRegistry) RegisterCommand(handler any) error {
	r.handlers = append(r.handlers, handler)
	return nil
}

type cronRegistration struct {
	config  command.HandlerConfig
	handler func() error
}

type recordingCron struct {
	registrations []cronRegistration
	err           error
}

func (c *recordingCron) Registrar() CronRegistrar {
	return func(cfg command.HandlerConfig, handler any) error {
		if c.err != nil {
			return c.err
		}
		var fn func() error
		if h, ok := handler.(func() error); ok {
			fn = h
		}
		c.registrations = append(c.registrations, cronRegistration{
			config:  cfg,
			handler: fn,
		})
		return nil
	}
}

type recordingDispatcher struct {
	handlers      []any
	subscriptions []*recordingSubscription
	err           error
}

func (d *recordingDispatcher) RegisterCommand(handler any) (CommandSubscription, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.handlers = append(d.handlers, handler)
	sub := &recordingSubscription{handler: handler}
	d.subscriptions = append(d.subscriptions, sub)
	return sub, nil
}

type recordingSubscription struct {
	handler      any
	unsubscribed bool
}

func (s *recordingSubscription) Unsubscribe() {
	s.unsubscribed = true
}
