package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-publishing/internal/audit"
	"github.com/goliatone/go-publishing/internal/books"
	auditcmd "github.com/goliatone/go-publishing/internal/commands/audit"
	workflowcmd "github.com/goliatone/go-publishing/internal/commands/workflow"
	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/idempotency"
	"github.com/goliatone/go-publishing/internal/jobs"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/logging/console"
	"github.com/goliatone/go-publishing/internal/logging/gologger"
	"github.com/goliatone/go-publishing/internal/notifications"
	"github.com/goliatone/go-publishing/internal/runtimeconfig"
	"github.com/goliatone/go-publishing/internal/scheduler"
	"github.com/goliatone/go-publishing/internal/storage"
	"github.com/goliatone/go-publishing/internal/workflow"
	"github.com/goliatone/go-publishing/internal/workflow/manager"
	"github.com/goliatone/go-publishing/pkg/activity"
	"github.com/goliatone/go-publishing/pkg/activity/usersink"
	"github.com/goliatone/go-publishing/pkg/interfaces"
	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

const (
	bookCacheTTL    = time.Minute
	activityChannel = "publishing"
)

// Container wires the publishing services from a runtime configuration.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider

	bunDB  *bun.DB
	ownsDB bool

	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	bookRepo   books.Repository
	auditStore audit.Reader
	ledger     *audit.Ledger
	uow        storage.UnitOfWork

	memoryBooks *books.MemoryRepository
	memoryAudit *audit.MemoryStore

	scheduler   interfaces.Scheduler
	idemStore   idempotency.Store
	redisClient redis.Cmdable
	ownedRedis  *redis.Client

	activitySink  interfaces.ActivitySink
	activityHooks activity.Hooks
	emitter       *activity.Emitter

	gateway    interfaces.NotificationGateway
	dispatcher *notifications.Dispatcher
	httpClient *http.Client

	catalog     *workflow.Catalog
	workflowSvc manager.Service
	worker      *jobs.Worker

	commandRegistry  workflowcmd.CommandRegistry
	cronRegistrar    workflowcmd.CronRegistrar
	commandOutput    io.Writer
	workflowCommands *workflowcmd.HandlerSet
	auditCommands    *auditcmd.HandlerSet

	clock func() time.Time
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the provider built from the logging config.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithBunDB supplies an open database. The container does not close it.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache overrides the book read cache.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithScheduler overrides the SLA watcher scheduler.
func WithScheduler(s interfaces.Scheduler) Option {
	return func(c *Container) {
		c.scheduler = s
	}
}

// WithIdempotencyStore overrides the store used to replay transition results.
func WithIdempotencyStore(store idempotency.Store) Option {
	return func(c *Container) {
		c.idemStore = store
	}
}

// WithRedisClient reuses an existing client for the redis idempotency provider.
func WithRedisClient(client redis.Cmdable) Option {
	return func(c *Container) {
		c.redisClient = client
	}
}

// WithNotificationGateway replaces the gateways derived from the feature flags.
func WithNotificationGateway(gateway interfaces.NotificationGateway) Option {
	return func(c *Container) {
		c.gateway = gateway
	}
}

// WithActivitySink forwards activity events to a go-users sink.
func WithActivitySink(sink interfaces.ActivitySink) Option {
	return func(c *Container) {
		c.activitySink = sink
	}
}

// WithActivityHooks appends hooks to the activity emitter.
func WithActivityHooks(hooks ...activity.Hook) Option {
	return func(c *Container) {
		c.activityHooks = append(c.activityHooks, hooks...)
	}
}

// WithHTTPClient overrides the client used for webhook delivery.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Container) {
		c.httpClient = client
	}
}

// WithClock overrides the clock shared by the orchestrator, ledger and worker.
func WithClock(clock func() time.Time) Option {
	return func(c *Container) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithCommandRegistry registers command handlers with reg when commands are enabled.
func WithCommandRegistry(reg workflowcmd.CommandRegistry) Option {
	return func(c *Container) {
		c.commandRegistry = reg
	}
}

// WithCronRegistrar registers the SLA cron handlers when cron auto-registration is enabled.
func WithCronRegistrar(reg workflowcmd.CronRegistrar) Option {
	return func(c *Container) {
		c.cronRegistrar = reg
	}
}

// WithCommandOutput sets the writer used by report and export commands.
func WithCommandOutput(out io.Writer) Option {
	return func(c *Container) {
		c.commandOutput = out
	}
}

// NewContainer validates cfg and wires every service.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		Config: cfg,
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	steps := []func() error{
		c.configureLoggerProvider,
		c.configureStorage,
		c.configureCatalog,
		c.configureScheduler,
		c.configureIdempotency,
		c.configureNotifications,
		c.configureServices,
		c.configureCommands,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil {
		return nil
	}
	if !c.Config.Features.Logger {
		c.loggerProvider = noopProvider{}
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(c.Config.Logging.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     c.Config.Logging.Level,
			Format:    c.Config.Logging.Format,
			AddSource: c.Config.Logging.AddSource,
			Focus:     c.Config.Logging.Focus,
		})
		if err != nil {
			return fmt.Errorf("configure go-logger provider: %w", err)
		}
		c.loggerProvider = provider
	default:
		opts := console.Options{TimeFunc: c.clock}
		if level, ok := console.ParseLevel(c.Config.Logging.Level); ok {
			opts.MinLevel = &level
		}
		c.loggerProvider = console.NewProvider(opts)
	}
	return nil
}

func (c *Container) configureStorage() error {
	storageCfg := c.Config.Storage
	if c.bunDB == nil && strings.EqualFold(strings.TrimSpace(storageCfg.Provider), "bun") {
		db, err := storage.Open(storageCfg.Driver, storageCfg.DSN)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		c.bunDB = db
		c.ownsDB = true
	}

	if c.bunDB == nil {
		c.memoryBooks = books.NewMemoryRepository()
		c.memoryAudit = audit.NewMemoryStore()
		c.bookRepo = c.memoryBooks
		c.auditStore = c.memoryAudit
		c.uow = storage.NewMemoryUnitOfWork(c.memoryBooks, c.memoryAudit)
	} else {
		c.configureCacheDefaults()
		if c.cacheService != nil {
			c.bookRepo = books.NewBunRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
		} else {
			c.bookRepo = books.NewBunRepository(c.bunDB)
		}
		c.auditStore = audit.NewBunStore(c.bunDB)
		c.uow = storage.NewBunUnitOfWork(c.bunDB)
	}

	c.ledger = audit.NewLedger(c.auditStore,
		audit.WithClock(c.clock),
		audit.WithLogger(logging.AuditLogger(c.loggerProvider)),
	)
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Storage.CacheBooks {
		return
	}

	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		cfg.TTL = bookCacheTTL
		service, err := repocache.NewCacheService(cfg)
		if err == nil {
			c.cacheService = service
		}
	}

	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureCatalog() error {
	restoreRoles, err := runtimeconfig.ParseRoles(c.Config.Workflow.RestoreRoles)
	if err != nil {
		return err
	}

	if path := strings.TrimSpace(c.Config.Workflow.RulesFile); path != "" {
		catalog, err := workflow.LoadCatalogFile(path)
		if err != nil {
			return fmt.Errorf("load workflow rules: %w", err)
		}
		c.catalog = catalog
		return nil
	}

	catalog, err := workflow.NewCatalog(workflow.DefaultRules(restoreRoles...))
	if err != nil {
		return fmt.Errorf("build workflow rules: %w", err)
	}
	c.catalog = catalog
	return nil
}

func (c *Container) configureScheduler() error {
	logger := logging.SchedulerLogger(c.loggerProvider)
	provider := "custom"
	switch {
	case c.scheduler != nil:
	case c.Config.SLA.DisableWatchers:
		c.scheduler = scheduler.NewDisabled()
		provider = "disabled"
	default:
		c.scheduler = scheduler.NewInMemory(scheduler.WithClock(c.clock))
		provider = "in-memory"
	}
	logger.Info("scheduler.configured", "provider", provider)
	return nil
}

func (c *Container) configureIdempotency() error {
	logger := logging.IdempotencyLogger(c.loggerProvider)
	if c.idemStore != nil {
		logger.Info("idempotency.configured", "provider", "custom")
		return nil
	}

	idemCfg := c.Config.Idempotency
	switch strings.ToLower(strings.TrimSpace(idemCfg.Provider)) {
	case "redis":
		if c.redisClient == nil {
			c.ownedRedis = idempotency.NewRedisClient(idempotency.RedisOptions{
				Addr:     idemCfg.Redis.Addr,
				Password: idemCfg.Redis.Password,
				DB:       idemCfg.Redis.DB,
			})
			c.redisClient = c.ownedRedis
		}
		c.idemStore = idempotency.NewRedisStore(c.redisClient, idemCfg.Redis.Prefix)
		logger.Info("idempotency.configured", "provider", "redis", "addr", idemCfg.Redis.Addr)
	default:
		c.idemStore = idempotency.NewMemoryStore(idempotency.WithClock(c.clock))
		logger.Info("idempotency.configured", "provider", "memory")
	}
	return nil
}

func (c *Container) configureNotifications() error {
	logger := logging.NotificationsLogger(c.loggerProvider)
	features := c.Config.Features

	hooks := append(activity.Hooks{}, c.activityHooks...)
	if c.activitySink != nil {
		hooks = append(hooks, usersink.Hook{Sink: c.activitySink})
	}
	c.emitter = activity.NewEmitter(hooks, activity.Config{
		Enabled: features.Activity,
		Channel: activityChannel,
	})

	if c.gateway == nil {
		var gateways []interfaces.NotificationGateway
		if features.Notifications && len(c.Config.Notifications.Webhooks) > 0 {
			gateways = append(gateways, c.webhookGateway(logger))
		}
		if c.emitter.Enabled() {
			gateways = append(gateways, notifications.NewActivityGateway(c.emitter))
		}
		switch len(gateways) {
		case 0:
			c.gateway = notifications.NoOp()
		case 1:
			c.gateway = gateways[0]
		default:
			c.gateway = notifications.Multi(gateways...)
		}
	}

	c.dispatcher = notifications.NewDispatcher(c.gateway, logger,
		notifications.WithDispatchRetries(c.Config.Notifications.RetrySchedule, c.Config.Notifications.MaxRetries),
	)
	return nil
}

func (c *Container) webhookGateway(logger interfaces.Logger) *notifications.WebhookGateway {
	notifCfg := c.Config.Notifications
	endpoints := make([]notifications.WebhookEndpoint, 0, len(notifCfg.Webhooks))
	for _, hook := range notifCfg.Webhooks {
		endpoints = append(endpoints, notifications.WebhookEndpoint{
			Name:    hook.Name,
			URL:     hook.URL,
			Events:  hook.Events,
			Headers: hook.Headers,
		})
	}

	opts := []notifications.WebhookOption{
		notifications.WithWebhookLogger(logger),
		notifications.WithWebhookClock(c.clock),
	}
	if c.httpClient != nil {
		opts = append(opts, notifications.WithHTTPClient(c.httpClient))
	}
	return notifications.NewWebhookGateway(notifications.WebhookConfig{
		Endpoints:     endpoints,
		RetrySchedule: notifCfg.RetrySchedule,
		MaxRetries:    notifCfg.WebhookMaxRetries,
		Timeout:       notifCfg.Timeout,
	}, opts...)
}

func (c *Container) configureServices() error {
	mode, _ := domain.ParseWorkflowMode(c.Config.Workflow.Mode)
	escalation, err := runtimeconfig.ParseRoles(c.Config.SLA.EscalationRoles)
	if err != nil {
		return err
	}

	c.workflowSvc = manager.NewService(c.catalog, c.bookRepo, c.uow, c.ledger,
		manager.WithClock(c.clock),
		manager.WithMode(mode),
		manager.WithSLAConfig(manager.SLAConfig{
			ReviewDeadline:   c.Config.SLA.ReviewDeadline,
			RevisionDeadline: c.Config.SLA.RevisionDeadline,
			EscalationRoles:  escalation,
			ReminderInterval: c.Config.SLA.ReminderInterval,
		}),
		manager.WithScheduler(c.scheduler),
		manager.WithIdempotencyStore(c.idemStore, c.Config.Idempotency.Window),
		manager.WithNotifier(c.dispatcher),
		manager.WithLogger(logging.WorkflowLogger(c.loggerProvider)),
	)

	c.worker = jobs.NewWorker(c.scheduler, c.bookRepo, c.uow, c.ledger,
		jobs.WithReminderDispatcher(c.dispatcher),
		jobs.WithActivityEmitter(c.emitter),
		jobs.WithEscalationRoles(c.Config.SLA.EscalationRoles),
		jobs.WithLogger(logging.SchedulerLogger(c.loggerProvider)),
		jobs.WithClock(c.clock),
	)
	return nil
}

func (c *Container) configureCommands() error {
	cmdCfg := c.Config.Commands
	if !cmdCfg.Enabled {
		return nil
	}

	workflowSet, err := workflowcmd.RegisterWorkflowCommands(c.commandRegistry, c.workflowSvc, c.worker, c.loggerProvider,
		workflowcmd.WithReminderInterval(c.Config.SLA.ReminderInterval),
		workflowcmd.WithCronExpressions(cmdCfg.SLAReminderCron, cmdCfg.SLAJobsCron),
	)
	if err != nil {
		return fmt.Errorf("register workflow commands: %w", err)
	}
	c.workflowCommands = workflowSet

	auditSet, err := auditcmd.RegisterAuditCommands(c.commandRegistry, c.ledger, c.commandOutput, c.loggerProvider)
	if err != nil {
		return fmt.Errorf("register audit commands: %w", err)
	}
	c.auditCommands = auditSet

	if cmdCfg.AutoRegisterCron {
		if err := workflowcmd.RegisterWorkflowCron(c.cronRegistrar, workflowSet); err != nil {
			return fmt.Errorf("register workflow cron: %w", err)
		}
	}
	return nil
}

// InitSchema creates the tables when the container runs on bun.
func (c *Container) InitSchema(ctx context.Context) error {
	if c.bunDB == nil {
		return nil
	}
	return storage.CreateSchema(ctx, c.bunDB)
}

// Close waits for in-flight notifications and closes a database the container opened.
func (c *Container) Close() error {
	var errs []error
	if c.dispatcher != nil {
		c.dispatcher.Wait()
	}
	if c.ownedRedis != nil {
		if err := c.ownedRedis.Close(); err != nil {
			errs = append(errs, err)
		}
		c.ownedRedis = nil
	}
	if c.ownsDB && c.bunDB != nil {
		if err := c.bunDB.Close(); err != nil {
			errs = append(errs, err)
		}
		c.bunDB = nil
	}
	return errors.Join(errs...)
}

func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

func (c *Container) WorkflowService() manager.Service { return c.workflowSvc }

func (c *Container) Worker() *jobs.Worker { return c.worker }

func (c *Container) Ledger() *audit.Ledger { return c.ledger }

func (c *Container) Catalog() *workflow.Catalog { return c.catalog }

func (c *Container) BookRepository() books.Repository { return c.bookRepo }

func (c *Container) Scheduler() interfaces.Scheduler { return c.scheduler }

func (c *Container) Dispatcher() *notifications.Dispatcher { return c.dispatcher }

func (c *Container) ActivityEmitter() *activity.Emitter { return c.emitter }

func (c *Container) BunDB() *bun.DB { return c.bunDB }

// WorkflowCommands returns the registered workflow handlers, or nil when commands are disabled.
func (c *Container) WorkflowCommands() *workflowcmd.HandlerSet { return c.workflowCommands }

// AuditCommands returns the registered audit handlers, or nil when commands are disabled.
func (c *Container) AuditCommands() *auditcmd.HandlerSet { return c.auditCommands }

type noopProvider struct{}

func (noopProvider) GetLogger(string) interfaces.Logger { return logging.NoOp() }
