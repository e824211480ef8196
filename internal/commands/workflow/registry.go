package workflowcmd

import (
	"time"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-publishing/internal/commands"
	"github.com/goliatone/go-publishing/internal/workflow/manager"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CronRegistrar matches the function signature used by go-command registries.
type CronRegistrar func(command.HandlerConfig, any) error

// HandlerSet groups the handlers produced by RegisterWorkflowCommands.
type HandlerSet struct {
	Transition   *TransitionHandler
	Bulk         *BulkTransitionHandler
	SLAReminders *SLARemindersHandler
	SLAJobs      *SLAJobsHandler
}

// Option customises handler wiring during registration.
type Option func(*options)

type options struct {
	reminderInterval time.Duration
	reminderCron     string
	jobsCron         string
	observe          TransitionObserver
	transitionOpts   []commands.HandlerOption[TransitionCommand]
	bulkOpts         []commands.HandlerOption[BulkTransitionCommand]
}

// WithReminderInterval derives the reminder cron from the SLA reminder interval.
func WithReminderInterval(interval time.Duration) Option {
	return func(cfg *options) {
		cfg.reminderInterval = interval
	}
}

// WithCronExpressions overrides the reminder and job cron expressions. Blank values keep defaults.
func WithCronExpressions(reminders, jobs string) Option {
	return func(cfg *options) {
		cfg.reminderCron = reminders
		cfg.jobsCron = jobs
	}
}

// WithTransitionObserver forwards transition results to observe.
func WithTransitionObserver(observe TransitionObserver) Option {
	return func(cfg *options) {
		cfg.observe = observe
	}
}

// WithTransitionHandlerOptions forwards options to the TransitionHandler constructor.
func WithTransitionHandlerOptions(opts ...commands.HandlerOption[TransitionCommand]) Option {
	return func(cfg *options) {
		cfg.transitionOpts = append(cfg.transitionOpts, opts...)
	}
}

// WithBulkHandlerOptions forwards options to the BulkTransitionHandler constructor.
func WithBulkHandlerOptions(opts ...commands.HandlerOption[BulkTransitionCommand]) Option {
	return func(cfg *options) {
		cfg.bulkOpts = append(cfg.bulkOpts, opts...)
	}
}

// RegisterWorkflowCommands builds the workflow handlers and registers them with reg when supplied.
// The SLA jobs handler is only built when a worker is available.
func RegisterWorkflowCommands(reg CommandRegistry, service manager.Service, worker Worker, provider interfaces.LoggerProvider, opts ...Option) (*HandlerSet, error) {
	if service == nil {
		return nil, ErrServiceRequired
	}

	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	logger := commands.CommandLogger(provider, "workflow")

	set := &HandlerSet{
		Transition:   NewTransitionHandler(service, logger, cfg.observe, cfg.transitionOpts...),
		Bulk:         NewBulkTransitionHandler(service, logger, nil, cfg.bulkOpts...),
		SLAReminders: NewSLARemindersHandler(service, logger, cfg.reminderInterval).WithCronExpression(cfg.reminderCron),
	}
	if worker != nil {
		set.SLAJobs = NewSLAJobsHandler(worker, logger).WithCronExpression(cfg.jobsCron)
	}

	if reg != nil {
		for _, handler := range set.handlers() {
			if err := reg.RegisterCommand(handler); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}

// RegisterWorkflowCron wires the reminder and SLA job handlers into a cron registrar.
func RegisterWorkflowCron(reg CronRegistrar, set *HandlerSet) error {
	if reg == nil || set == nil {
		return nil
	}
	if set.SLAReminders != nil {
		if err := reg(set.SLAReminders.CronOptions(), set.SLAReminders.CronHandler()); err != nil {
			return err
		}
	}
	if set.SLAJobs != nil {
		if err := reg(set.SLAJobs.CronOptions(), set.SLAJobs.CronHandler()); err != nil {
			return err
		}
	}
	return nil
}

func (s *HandlerSet) handlers() []any {
	out := []any{s.Transition, s.Bulk, s.SLAReminders}
	if s.SLAJobs != nil {
		out = append(out, s.SLAJobs)
	}
	return out
}
