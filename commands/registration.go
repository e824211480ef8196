// Package commands exposes the publishing command handlers to host applications. Hosts
// pass a container and pick the integrations they run: a go-command registry for CLI
// wiring, a dispatcher for message-driven execution, a cron registrar for SLA sweeps.
package commands

import (
	"errors"
	"io"
	"strings"

	command "github.com/goliatone/go-command"
	auditcmd "github.com/goliatone/go-publishing/internal/commands/audit"
	workflowcmd "github.com/goliatone/go-publishing/internal/commands/workflow"
	"github.com/goliatone/go-publishing/internal/di"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// ErrNoHandlers is returned when the container has neither a workflow service nor a ledger.
var ErrNoHandlers = errors.New("publishing commands: container exposes no workflow service or audit ledger")

// CommandRegistry is satisfied by *command.Registry.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CommandDispatcher subscribes handlers for message dispatch. See GoCommandDispatcher.
type CommandDispatcher interface {
	RegisterCommand(handler any) (CommandSubscription, error)
}

// CommandSubscription is released with Unsubscribe when the host shuts down.
type CommandSubscription interface {
	Unsubscribe()
}

// CronRegistrar registers a handler func under a cron expression.
type CronRegistrar func(command.HandlerConfig, any) error

// RegistrationOptions selects the integrations handlers are registered with. Every
// field is optional.
type RegistrationOptions struct {
	Registry       CommandRegistry
	Dispatcher     CommandDispatcher
	CronRegistrar  CronRegistrar
	LoggerProvider interfaces.LoggerProvider
	// Output receives audit reports and exports. Nil discards them.
	Output io.Writer
	// SLAReminderCron and SLAJobsCron override the container's sweep schedules.
	SLAReminderCron string
	SLAJobsCron     string
}

// RegistrationResult lists the handlers that were built, in registration order, and
// the dispatcher subscriptions the host owns.
type RegistrationResult struct {
	Handlers      []any
	Subscriptions []CommandSubscription
}

// Unsubscribe releases every dispatcher subscription.
func (r *RegistrationResult) Unsubscribe() {
	if r == nil {
		return
	}
	for _, sub := range r.Subscriptions {
		sub.Unsubscribe()
	}
	r.Subscriptions = nil
}

// RegisterContainerCommands builds the workflow and audit handlers for container and
// hands each one to the configured integrations. Integration failures are joined and
// returned with the handlers that were built.
func RegisterContainerCommands(container *di.Container, opts RegistrationOptions) (*RegistrationResult, error) {
	r := &registrar{opts: opts, result: &RegistrationResult{}}
	if container == nil {
		return r.result, nil
	}
	if opts.LoggerProvider == nil {
		r.opts.LoggerProvider = container.LoggerProvider()
	}
	if opts.Registry != nil && opts.CronRegistrar != nil {
		if reg, ok := opts.Registry.(interface {
			SetCronRegister(func(command.HandlerConfig, any) error) *command.Registry
		}); ok {
			reg.SetCronRegister(opts.CronRegistrar)
		}
	}

	r.workflow(container)
	r.audit(container)

	if len(r.result.Handlers) == 0 {
		return r.result, errors.Join(r.err, ErrNoHandlers)
	}
	return r.result, r.err
}

type registrar struct {
	opts   RegistrationOptions
	result *RegistrationResult
	err    error
}

func (r *registrar) fail(err error) {
	if err != nil {
		r.err = errors.Join(r.err, err)
	}
}

func (r *registrar) workflow(container *di.Container) {
	service := container.WorkflowService()
	if service == nil {
		return
	}
	cfg := container.Config
	set, err := workflowcmd.RegisterWorkflowCommands(nil, service, container.Worker(), r.opts.LoggerProvider,
		workflowcmd.WithReminderInterval(cfg.SLA.ReminderInterval),
		workflowcmd.WithCronExpressions(
			override(r.opts.SLAReminderCron, cfg.Commands.SLAReminderCron),
			override(r.opts.SLAJobsCron, cfg.Commands.SLAJobsCron),
		),
	)
	if err != nil {
		r.fail(err)
		return
	}
	r.add(set.Transition, set.Bulk, set.SLAReminders)
	if set.SLAJobs != nil {
		r.add(set.SLAJobs)
	}
}

func (r *registrar) audit(container *di.Container) {
	ledger := container.Ledger()
	if ledger == nil {
		return
	}
	set, err := auditcmd.RegisterAuditCommands(nil, ledger, r.opts.Output, r.opts.LoggerProvider)
	if err != nil {
		r.fail(err)
		return
	}
	r.add(set.Verify, set.Report, set.Export)
}

func (r *registrar) add(handlers ...any) {
	for _, handler := range handlers {
		r.result.Handlers = append(r.result.Handlers, handler)

		if r.opts.Registry != nil {
			r.fail(r.opts.Registry.RegisterCommand(handler))
		}
		if r.opts.Dispatcher != nil {
			sub, err := r.opts.Dispatcher.RegisterCommand(handler)
			r.fail(err)
			if err == nil && sub != nil {
				r.result.Subscriptions = append(r.result.Subscriptions, sub)
			}
		}
		if r.opts.CronRegistrar != nil {
			if cron, ok := handler.(command.CronCommand); ok {
				r.fail(r.opts.CronRegistrar(cron.CronOptions(), cron.CronHandler()))
			}
		}
	}
}

func override(preferred, fallback string) string {
	if value := strings.TrimSpace(preferred); value != "" {
		return value
	}
	return strings.TrimSpace(fallback)
}
