package runtimeconfig_test

import (
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/runtimeconfig"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
	if cfg.SLA.ReviewDeadline != 48*time.Hour || cfg.SLA.RevisionDeadline != 168*time.Hour {
		t.Fatalf("unexpected sla defaults: %+v", cfg.SLA)
	}
	if cfg.Idempotency.Window != 5*time.Second {
		t.Fatalf("expected 5s idempotency window, got %s", cfg.Idempotency.Window)
	}
	if len(cfg.Notifications.RetrySchedule) != 4 {
		t.Fatalf("expected four retry delays, got %v", cfg.Notifications.RetrySchedule)
	}
}

func TestConfigValidate_RejectsUnknownMode(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Workflow.Mode = "FAST"

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrWorkflowModeInvalid) {
		t.Fatalf("expected ErrWorkflowModeInvalid, got %v", err)
	}
}

func TestConfigValidate_AcceptsLowercaseMode(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Workflow.Mode = "simple"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected lowercase mode to validate, got %v", err)
	}
}

func TestConfigValidate_RejectsUnknownRoles(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Workflow.RestoreRoles = []string{"ADMIN", "JANITOR"}
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrRestoreRoleInvalid) {
		t.Fatalf("expected ErrRestoreRoleInvalid, got %v", err)
	}

	cfg = runtimeconfig.DefaultConfig()
	cfg.SLA.EscalationRoles = []string{"OWNER"}
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrEscalationRoleInvalid) {
		t.Fatalf("expected ErrEscalationRoleInvalid, got %v", err)
	}
}

func TestConfigValidate_RequiresPositiveDeadlines(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.SLA.RevisionDeadline = 0

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrSLADeadlineInvalid) {
		t.Fatalf("expected ErrSLADeadlineInvalid, got %v", err)
	}
}

func TestConfigValidate_RedisRequiresAddress(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Idempotency.Provider = "redis"

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrRedisAddrRequired) {
		t.Fatalf("expected ErrRedisAddrRequired, got %v", err)
	}

	cfg.Idempotency.Redis.Addr = "localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected redis config to validate, got %v", err)
	}
}

func TestConfigValidate_BunStorage(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Storage.Provider = "bun"

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrStorageDSNRequired) {
		t.Fatalf("expected ErrStorageDSNRequired, got %v", err)
	}

	cfg.Storage.DSN = "file::memory:?cache=shared"
	cfg.Storage.Driver = "mysql"
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrStorageDriverUnknown) {
		t.Fatalf("expected ErrStorageDriverUnknown, got %v", err)
	}

	cfg.Storage.Driver = "postgres"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected postgres config to validate, got %v", err)
	}
}

func TestConfigValidate_WebhooksRequireNotificationsFeature(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Notifications.Webhooks = []runtimeconfig.WebhookConfig{{Name: "ops", URL: "https://hooks.example.com"}}

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrNotificationsFeatureRequired) {
		t.Fatalf("expected ErrNotificationsFeatureRequired, got %v", err)
	}

	cfg.Features.Notifications = true
	cfg.Notifications.Webhooks = append(cfg.Notifications.Webhooks, runtimeconfig.WebhookConfig{Name: "blank"})
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrWebhookURLRequired) {
		t.Fatalf("expected ErrWebhookURLRequired, got %v", err)
	}
}

func TestConfigValidate_RejectsNonPositiveRetryDelay(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Notifications.RetrySchedule = []time.Duration{time.Second, 0}

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrRetryScheduleInvalid) {
		t.Fatalf("expected ErrRetryScheduleInvalid, got %v", err)
	}
}

func TestConfigValidate_CronRequiresCommands(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Commands.AutoRegisterCron = true

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrCommandsCronRequiresCommands) {
		t.Fatalf("expected ErrCommandsCronRequiresCommands, got %v", err)
	}
}

func TestConfigValidate_RequiresLoggingProviderWhenFeatureEnabled(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Features.Logger = true
	cfg.Logging.Provider = ""

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrLoggingProviderRequired) {
		t.Fatalf("expected ErrLoggingProviderRequired, got %v", err)
	}
}

func TestConfigValidate_RejectsUnknownLoggingProvider(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Features.Logger = true
	cfg.Logging.Provider = "syslog"

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrLoggingProviderUnknown) {
		t.Fatalf("expected ErrLoggingProviderUnknown, got %v", err)
	}
}

func TestConfigValidate_RejectsInvalidLoggingFormat(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Features.Logger = true
	cfg.Logging.Provider = "gologger"
	cfg.Logging.Format = "xml"

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrLoggingFormatInvalid) {
		t.Fatalf("expected ErrLoggingFormatInvalid, got %v", err)
	}
}

func TestParseRolesSkipsBlanks(t *testing.T) {
	roles, err := runtimeconfig.ParseRoles([]string{" admin ", "", "content_admin"})
	if err != nil {
		t.Fatalf("ParseRoles: %v", err)
	}
	if len(roles) != 2 || roles[0] != domain.RoleAdmin || roles[1] != domain.RoleContentAdmin {
		t.Fatalf("unexpected roles: %v", roles)
	}
}
