package di

import (
	"testing"

	"github.com/goliatone/go-publishing/internal/logging/gologger"
	"github.com/goliatone/go-publishing/internal/runtimeconfig"
)

func TestConfigureLoggerProviderUsesGoLoggerAdapter(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Features.Logger = true
	cfg.Logging.Provider = "gologger"
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"

	container, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	defer container.Close()

	provider, ok := container.loggerProvider.(*gologger.Provider)
	if !ok {
		t.Fatalf("expected go-logger provider, got %T", container.loggerProvider)
	}

	logger := provider.GetLogger("publishing.test")
	if logger == nil {
		t.Fatal("expected logger from go-logger provider, got nil")
	}
}

func TestConfigureLoggerProviderDefaultsToNoOp(t *testing.T) {
	container, err := NewContainer(runtimeconfig.DefaultConfig())
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	defer container.Close()

	if _, ok := container.loggerProvider.(noopProvider); !ok {
		t.Fatalf("expected no-op provider when logging is disabled, got %T", container.loggerProvider)
	}
}

func TestConfigureStorageWrapsBooksWithCache(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Storage.Provider = "bun"
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.DSN = "file:di_cache?mode=memory&cache=shared&_fk=1"
	cfg.Storage.CacheBooks = true

	container, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	defer container.Close()

	if container.cacheService == nil || container.keySerializer == nil {
		t.Fatal("expected cache service and key serializer when book caching is enabled")
	}
	if !container.ownsDB {
		t.Fatal("expected container to own the database it opened")
	}
}
