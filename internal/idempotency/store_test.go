package idempotency_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/goliatone/go-publishing/internal/idempotency"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExpiresAfterWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := idempotency.NewMemoryStore(idempotency.WithClock(func() time.Time { return now }))

	require.NoError(t, store.Set(ctx, "k", []byte(`{"success":true}`), 5*time.Second))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"success":true}`, string(value))

	now = now.Add(4 * time.Second)
	_, ok, _ = store.Get(ctx, "k")
	require.True(t, ok, "expected entry inside the window")

	now = now.Add(time.Second)
	_, ok, _ = store.Get(ctx, "k")
	require.False(t, ok, "expected entry to expire at the window edge")
}

func TestMemoryStorePurge(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := idempotency.NewMemoryStore(idempotency.WithClock(func() time.Time { return now }))
	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Minute))

	now = now.Add(2 * time.Second)
	require.Equal(t, 1, store.Purge())

	_, ok, _ := store.Get(ctx, "b")
	require.True(t, ok)
}

func TestMemoryStoreRejectsEmptyKey(t *testing.T) {
	err := idempotency.NewMemoryStore().Set(context.Background(), "", nil, time.Second)
	require.ErrorIs(t, err, idempotency.ErrKeyRequired)
}

func TestKeyNamespacesInput(t *testing.T) {
	first, err := idempotency.Key("req-1")
	require.NoError(t, err)
	second, err := idempotency.Key(" req-1 ")
	require.NoError(t, err)
	require.Equal(t, first, second)

	_, err = idempotency.Key("  ")
	require.ErrorIs(t, err, idempotency.ErrKeyRequired)
}

// TestRedisStore_Integration requires a running redis and skips otherwise.
func TestRedisStore_Integration(t *testing.T) {
	addr := os.Getenv("PUBLISHING_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := idempotency.NewRedisClient(idempotency.RedisOptions{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping redis integration test: redis not available")
	}

	store := idempotency.NewRedisStore(client, "publishing:test:")
	key := uuid.NewString()

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, key, []byte("cached"), time.Second))
	value, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "cached", string(value))
}
