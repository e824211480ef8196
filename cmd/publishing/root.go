package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-publishing"
	"github.com/goliatone/go-publishing/internal/commands"
	"github.com/goliatone/go-publishing/internal/di"
	"github.com/goliatone/go-publishing/internal/logging/console"
	"github.com/goliatone/go-publishing/pkg/interfaces"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix  = "PUBLISHING"
	defaultDSN = "file:publishing.db?cache=shared&_fk=1"
)

type cli struct {
	out        io.Writer
	errOut     io.Writer
	v          *viper.Viper
	configFile string
	format     string
	module     *publishing.Module
}

// run executes the command line in args and releases the module even when a subcommand fails.
func run(args []string, out, errOut io.Writer) error {
	c := &cli{out: out, errOut: errOut, v: viper.New()}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	return errors.Join(err, c.close())
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "publishing",
		Short: "Manage the book publishing workflow",
		Long: `publishing drives books through the DRAFT to PUBLISHED lifecycle.

Every status change goes through the workflow orchestrator and lands in the
checksum-chained audit ledger. Configuration is read from --config, then
PUBLISHING_* environment variables, then flags.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return c.open(cmd.Context()) },
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "Path to a YAML or JSON config file")
	flags.String("storage", "bun", "Storage provider: bun, memory")
	flags.String("driver", "sqlite", "Database driver: sqlite, postgres")
	flags.String("dsn", defaultDSN, "Database DSN")
	flags.String("mode", "", "Workflow mode override: SIMPLE, STANDARD")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.StringVarP(&c.format, "output", "o", "json", "Output format: json, yaml")

	bindings := map[string]string{
		"storage.provider": "storage",
		"storage.driver":   "driver",
		"storage.dsn":      "dsn",
		"workflow.mode":    "mode",
		"logging.level":    "log-level",
	}
	for key, flag := range bindings {
		_ = c.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newDraftCmd(c),
		newTransitionCmd(c),
		newBulkCmd(c),
		newOverdueCmd(c),
		newActionsCmd(c),
		newSLACmd(c),
		newAuditCmd(c),
		newSchemaCmd(c),
	)
	return root
}

func (c *cli) open(ctx context.Context) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	opts := []di.Option{di.WithCommandOutput(c.out)}
	if strings.EqualFold(strings.TrimSpace(cfg.Logging.Provider), "console") {
		level, ok := console.ParseLevel(cfg.Logging.Level)
		if !ok {
			level = console.LevelWarn
		}
		opts = append(opts, di.WithLoggerProvider(console.NewProvider(console.Options{
			Writer:   c.errOut,
			MinLevel: &level,
		})))
	}

	module, err := moduleBuilder(cfg, opts...)
	if err != nil {
		return fmt.Errorf("initialise publishing module: %w", err)
	}
	c.module = module

	if err := module.InitSchema(ctx); err != nil {
		_ = c.close()
		return fmt.Errorf("initialise schema: %w", err)
	}
	return nil
}

func (c *cli) close() error {
	if c.module == nil {
		return nil
	}
	err := c.module.Close()
	c.module = nil
	return err
}

func (c *cli) logger(module string) interfaces.Logger {
	return commands.CommandLogger(c.module.Container().LoggerProvider(), module)
}

func (c *cli) loadConfig() (publishing.Config, error) {
	v := c.v
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := publishing.DefaultConfig()
	setDefaults(v, cfg)

	if path := strings.TrimSpace(c.configFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	cfg.Commands.Enabled = true
	return cfg, nil
}

// setDefaults registers every scalar key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper, cfg publishing.Config) {
	defaults := map[string]any{
		"workflow.mode":                   cfg.Workflow.Mode,
		"workflow.restoreroles":           cfg.Workflow.RestoreRoles,
		"workflow.rulesfile":              cfg.Workflow.RulesFile,
		"sla.reviewdeadline":              cfg.SLA.ReviewDeadline,
		"sla.revisiondeadline":            cfg.SLA.RevisionDeadline,
		"sla.escalationroles":             cfg.SLA.EscalationRoles,
		"sla.reminderinterval":            cfg.SLA.ReminderInterval,
		"sla.disablewatchers":             cfg.SLA.DisableWatchers,
		"idempotency.window":              cfg.Idempotency.Window,
		"idempotency.provider":            cfg.Idempotency.Provider,
		"idempotency.redis.addr":          cfg.Idempotency.Redis.Addr,
		"idempotency.redis.password":      cfg.Idempotency.Redis.Password,
		"idempotency.redis.db":            cfg.Idempotency.Redis.DB,
		"idempotency.redis.prefix":        cfg.Idempotency.Redis.Prefix,
		"storage.provider":                "bun",
		"storage.driver":                  cfg.Storage.Driver,
		"storage.dsn":                     defaultDSN,
		"storage.cachebooks":              cfg.Storage.CacheBooks,
		"notifications.retryschedule":     cfg.Notifications.RetrySchedule,
		"notifications.maxretries":        cfg.Notifications.MaxRetries,
		"notifications.webhookmaxretries": cfg.Notifications.WebhookMaxRetries,
		"notifications.timeout":           cfg.Notifications.Timeout,
		"features.logger":                 true,
		"features.activity":               cfg.Features.Activity,
		"features.notifications":          cfg.Features.Notifications,
		"logging.provider":                cfg.Logging.Provider,
		"logging.level":                   "warn",
		"logging.format":                  cfg.Logging.Format,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func (c *cli) print(value any) error {
	switch strings.ToLower(strings.TrimSpace(c.format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return err
		}
		return enc.Close()
	case "", "json":
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	default:
		return fmt.Errorf("unsupported output format %q", c.format)
	}
}
