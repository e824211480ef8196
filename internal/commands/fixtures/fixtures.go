// Package fixtures records command and cron registrations so tests can inspect what a
// container or registry wired up.
package fixtures

import (
	"strings"

	command "github.com/goliatone/go-command"
)

// RecordingRegistry stands in for the go-command registry.
type RecordingRegistry struct {
	Handlers []any
}

func NewRecordingRegistry() *RecordingRegistry {
	return &RecordingRegistry{}
}

func (r *RecordingRegistry) RegisterCommand(handler any) error {
	r.Handlers = append(r.Handlers, handler)
	return nil
}

// Paths lists the CLI path of every recorded handler that exposes one, joined with
// spaces, e.g. "workflow transition".
func (r *RecordingRegistry) Paths() []string {
	var paths []string
	for _, handler := range r.Handlers {
		if cli, ok := handler.(interface{ CLIOptions() command.CLIConfig }); ok {
			paths = append(paths, strings.Join(cli.CLIOptions().Path, " "))
		}
	}
	return paths
}

// CronRegistration is one call made through CronRecorder.Registrar.
type CronRegistration struct {
	Config  command.HandlerConfig
	Handler any
}

// CronRecorder collects cron registrations and can be told to refuse them.
type CronRecorder struct {
	Registrations []CronRegistration
	err           error
}

func NewCronRecorder() *CronRecorder {
	return &CronRecorder{}
}

// Fail makes every later registration return err.
func (c *CronRecorder) Fail(err error) {
	c.err = err
}

// Expressions lists the recorded cron expressions in registration order.
func (c *CronRecorder) Expressions() []string {
	out := make([]string, 0, len(c.Registrations))
	for _, reg := range c.Registrations {
		out = append(out, reg.Config.Expression)
	}
	return out
}

// Registrar matches the cron registrar signature accepted by the command registries.
func (c *CronRecorder) Registrar() func(command.HandlerConfig, any) error {
	return func(cfg command.HandlerConfig, handler any) error {
		if c.err != nil {
			return c.err
		}
		c.Registrations = append(c.Registrations, CronRegistration{Config: cfg, Handler: handler})
		return nil
	}
}
