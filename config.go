package publishing

import "github.com/goliatone/go-publishing/internal/runtimeconfig"

var (
	ErrWorkflowModeInvalid          = runtimeconfig.ErrWorkflowModeInvalid
	ErrRestoreRoleInvalid           = runtimeconfig.ErrRestoreRoleInvalid
	ErrEscalationRoleInvalid        = runtimeconfig.ErrEscalationRoleInvalid
	ErrSLADeadlineInvalid           = runtimeconfig.ErrSLADeadlineInvalid
	ErrIdempotencyWindowInvalid     = runtimeconfig.ErrIdempotencyWindowInvalid
	ErrIdempotencyProviderUnknown   = runtimeconfig.ErrIdempotencyProviderUnknown
	ErrRedisAddrRequired            = runtimeconfig.ErrRedisAddrRequired
	ErrStorageProviderUnknown       = runtimeconfig.ErrStorageProviderUnknown
	ErrStorageDriverUnknown         = runtimeconfig.ErrStorageDriverUnknown
	ErrStorageDSNRequired           = runtimeconfig.ErrStorageDSNRequired
	ErrNotificationsFeatureRequired = runtimeconfig.ErrNotificationsFeatureRequired
	ErrWebhookURLRequired           = runtimeconfig.ErrWebhookURLRequired
	ErrRetryScheduleInvalid         = runtimeconfig.ErrRetryScheduleInvalid
	ErrCommandsCronRequiresCommands = runtimeconfig.ErrCommandsCronRequiresCommands
	ErrLoggingProviderRequired      = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown       = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid          = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid         = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config              = runtimeconfig.Config
	WorkflowConfig      = runtimeconfig.WorkflowConfig
	SLAConfig           = runtimeconfig.SLAConfig
	IdempotencyConfig   = runtimeconfig.IdempotencyConfig
	RedisConfig         = runtimeconfig.RedisConfig
	StorageConfig       = runtimeconfig.StorageConfig
	NotificationsConfig = runtimeconfig.NotificationsConfig
	WebhookConfig       = runtimeconfig.WebhookConfig
	CommandsConfig      = runtimeconfig.CommandsConfig
	Features            = runtimeconfig.Features
	LoggingConfig       = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}
