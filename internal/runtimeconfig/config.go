package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-publishing/internal/domain"
)

var (
	// ErrWorkflowModeInvalid indicates an unknown workflow mode.
	ErrWorkflowModeInvalid = errors.New("publishing config: workflow mode is invalid")
	// ErrRestoreRoleInvalid indicates an unknown role in the restore role list.
	ErrRestoreRoleInvalid = errors.New("publishing config: restore role is invalid")
	// ErrEscalationRoleInvalid indicates an unknown role in the SLA escalation list.
	ErrEscalationRoleInvalid = errors.New("publishing config: escalation role is invalid")
	// ErrSLADeadlineInvalid indicates a zero or negative SLA deadline.
	ErrSLADeadlineInvalid = errors.New("publishing config: sla deadlines must be positive")
	// ErrIdempotencyWindowInvalid indicates a negative idempotency window.
	ErrIdempotencyWindowInvalid = errors.New("publishing config: idempotency window must be zero or positive")
	// ErrIdempotencyProviderUnknown indicates an unsupported idempotency store.
	ErrIdempotencyProviderUnknown = errors.New("publishing config: idempotency provider is invalid")
	// ErrRedisAddrRequired indicates the redis idempotency store was selected without an address.
	ErrRedisAddrRequired = errors.New("publishing config: redis address is required for the redis idempotency provider")
	// ErrStorageProviderUnknown indicates an unsupported storage provider.
	ErrStorageProviderUnknown = errors.New("publishing config: storage provider is invalid")
	// ErrStorageDriverUnknown indicates an unsupported bun driver.
	ErrStorageDriverUnknown = errors.New("publishing config: storage driver is invalid")
	// ErrStorageDSNRequired indicates the bun provider was selected without a DSN.
	ErrStorageDSNRequired = errors.New("publishing config: storage dsn is required for the bun provider")
	// ErrNotificationsFeatureRequired indicates webhooks were configured with notifications disabled.
	ErrNotificationsFeatureRequired = errors.New("publishing config: notifications feature must be enabled to configure webhooks")
	// ErrWebhookURLRequired indicates a webhook endpoint without a URL.
	ErrWebhookURLRequired = errors.New("publishing config: webhook url is required")
	// ErrRetryScheduleInvalid indicates a non-positive retry delay.
	ErrRetryScheduleInvalid = errors.New("publishing config: retry delays must be positive")
	// ErrCommandsCronRequiresCommands ensures cron wiring only runs with the command layer enabled.
	ErrCommandsCronRequiresCommands = errors.New("publishing config: command cron auto-registration requires commands to be enabled")

	ErrLoggingProviderRequired = errors.New("publishing config: logging provider is required when logging feature is enabled")
	ErrLoggingProviderUnknown  = errors.New("publishing config: logging provider is invalid")
	ErrLoggingLevelInvalid     = errors.New("publishing config: logging level is invalid")
	ErrLoggingFormatInvalid    = errors.New("publishing config: logging format is invalid")
)

// Config aggregates workflow, storage and delivery settings for the publishing module.
type Config struct {
	Workflow      WorkflowConfig
	SLA           SLAConfig
	Idempotency   IdempotencyConfig
	Storage       StorageConfig
	Notifications NotificationsConfig
	Commands      CommandsConfig
	Features      Features
	Logging       LoggingConfig
}

// WorkflowConfig selects the rule catalog and mode.
type WorkflowConfig struct {
	Mode string
	// RestoreRoles grants ARCHIVED -> DRAFT. Empty leaves archived books terminal.
	RestoreRoles []string
	// RulesFile points to a YAML or JSON rule catalog replacing the default table.
	RulesFile string
}

// SLAConfig captures review and revision deadlines.
type SLAConfig struct {
	ReviewDeadline   time.Duration
	RevisionDeadline time.Duration
	EscalationRoles  []string
	ReminderInterval time.Duration
	// DisableWatchers stops deadline jobs from being scheduled. Overdue queries and
	// reminder sweeps keep working from the book timestamps.
	DisableWatchers bool
}

// IdempotencyConfig controls transition result replay.
type IdempotencyConfig struct {
	Window   time.Duration
	Provider string
	Redis    RedisConfig
}

// RedisConfig configures the shared idempotency store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// StorageConfig selects the datastore.
type StorageConfig struct {
	Provider string
	Driver   string
	DSN      string
	// CacheBooks wraps book reads with go-repository-cache.
	CacheBooks bool
}

// NotificationsConfig lists delivery targets and retry behaviour.
type NotificationsConfig struct {
	Webhooks          []WebhookConfig
	RetrySchedule     []time.Duration
	MaxRetries        int
	WebhookMaxRetries int
	Timeout           time.Duration
}

// WebhookConfig describes a single webhook endpoint.
type WebhookConfig struct {
	Name    string
	URL     string
	Events  []string
	Headers map[string]string
}

// CommandsConfig captures optional command-layer behaviour.
type CommandsConfig struct {
	Enabled          bool
	AutoRegisterCron bool
	SLAReminderCron  string
	SLAJobsCron      string
}

// Features toggles optional module functionality.
type Features struct {
	Logger        bool
	Activity      bool
	Notifications bool
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// DefaultConfig returns the defaults used by the module and the CLI.
func DefaultConfig() Config {
	return Config{
		Workflow: WorkflowConfig{
			Mode: string(domain.WorkflowModeStandard),
		},
		SLA: SLAConfig{
			ReviewDeadline:   48 * time.Hour,
			RevisionDeadline: 168 * time.Hour,
			EscalationRoles:  []string{string(domain.RoleContentAdmin), string(domain.RoleAdmin)},
			ReminderInterval: 24 * time.Hour,
		},
		Idempotency: IdempotencyConfig{
			Window:   5 * time.Second,
			Provider: "memory",
			Redis: RedisConfig{
				Prefix: "publishing:idempotency:",
			},
		},
		Storage: StorageConfig{
			Provider: "memory",
			Driver:   "sqlite",
		},
		Notifications: NotificationsConfig{
			RetrySchedule:     []time.Duration{time.Second, 5 * time.Second, 15 * time.Second, time.Minute},
			MaxRetries:        3,
			WebhookMaxRetries: 4,
			Timeout:           10 * time.Second,
		},
		Commands: CommandsConfig{
			SLAReminderCron: "@every 24h",
			SLAJobsCron:     "@every 1m",
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if _, ok := domain.ParseWorkflowMode(cfg.Workflow.Mode); !ok {
		return fmt.Errorf("%w: %q", ErrWorkflowModeInvalid, cfg.Workflow.Mode)
	}
	if _, err := ParseRoles(cfg.Workflow.RestoreRoles); err != nil {
		return fmt.Errorf("%w: %v", ErrRestoreRoleInvalid, err)
	}
	if _, err := ParseRoles(cfg.SLA.EscalationRoles); err != nil {
		return fmt.Errorf("%w: %v", ErrEscalationRoleInvalid, err)
	}
	if cfg.SLA.ReviewDeadline <= 0 || cfg.SLA.RevisionDeadline <= 0 {
		return ErrSLADeadlineInvalid
	}
	if cfg.Idempotency.Window < 0 {
		return ErrIdempotencyWindowInvalid
	}
	switch normalize(cfg.Idempotency.Provider) {
	case "", "memory":
	case "redis":
		if strings.TrimSpace(cfg.Idempotency.Redis.Addr) == "" {
			return ErrRedisAddrRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrIdempotencyProviderUnknown, cfg.Idempotency.Provider)
	}
	switch normalize(cfg.Storage.Provider) {
	case "", "memory":
	case "bun":
		if !isSupportedDriver(normalize(cfg.Storage.Driver)) {
			return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, cfg.Storage.Driver)
		}
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return ErrStorageDSNRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageProviderUnknown, cfg.Storage.Provider)
	}
	if len(cfg.Notifications.Webhooks) > 0 && !cfg.Features.Notifications {
		return ErrNotificationsFeatureRequired
	}
	for idx, hook := range cfg.Notifications.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("%w: webhook %d", ErrWebhookURLRequired, idx)
		}
	}
	for _, delay := range cfg.Notifications.RetrySchedule {
		if delay <= 0 {
			return ErrRetryScheduleInvalid
		}
	}
	if cfg.Commands.AutoRegisterCron && !cfg.Commands.Enabled {
		return ErrCommandsCronRequiresCommands
	}
	if cfg.Features.Logger {
		provider := normalize(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if provider == "gologger" {
			if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
				return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
			}
		}
	}
	return nil
}

// ParseRoles converts configured role names, skipping blanks.
func ParseRoles(values []string) ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		role, ok := domain.ParseRole(value)
		if !ok {
			return nil, fmt.Errorf("unknown role %q", value)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedDriver(driver string) bool {
	switch driver {
	case "", "sqlite", "sqlite3", "postgres", "postgresql":
		return true
	default:
		return false
	}
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
