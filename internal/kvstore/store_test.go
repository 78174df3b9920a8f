package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	store := New(Config{
		RedisURL:              "redis://" + mr.Addr(),
		MaxReconnectAttempts:  3,
		ReconnectInitialDelay: 10 * time.Millisecond,
		ReconnectMaxDelay:     50 * time.Millisecond,
	}, nil)

	return store, mr
}

func TestStore_RedisOperations(t *testing.T) {
	store, mr := setupRedisStore(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		ok := store.Set(ctx, "key1", "value1", 0)
		assert.True(t, ok)

		val, found := store.Get(ctx, "key1")
		assert.True(t, found)
		assert.Equal(t, "value1", val)
	})

	t.Run("get missing key", func(t *testing.T) {
		_, found := store.Get(ctx, "missing")
		assert.False(t, found)
	})

	t.Run("exists", func(t *testing.T) {
		store.Set(ctx, "key2", "value2", 0)
		assert.True(t, store.Exists(ctx, "key2"))
		assert.False(t, store.Exists(ctx, "nope"))
	})

	t.Run("delete", func(t *testing.T) {
		store.Set(ctx, "key3", "value3", 0)
		assert.True(t, store.Delete(ctx, "key3"))
		assert.False(t, store.Exists(ctx, "key3"))
	})

	t.Run("ttl expiry", func(t *testing.T) {
		store.Set(ctx, "transient", "value", 10*time.Second)
		_, found := store.Get(ctx, "transient")
		assert.True(t, found)

		mr.FastForward(11 * time.Second)

		_, found = store.Get(ctx, "transient")
		assert.False(t, found)
	})

	t.Run("healthy", func(t *testing.T) {
		health := store.Health(ctx)
		assert.Equal(t, StatusHealthy, health.Status)
		assert.Equal(t, TypeRedis, health.Type)
	})
}

func TestStore_MemoryMode(t *testing.T) {
	store := New(Config{RedisURL: ""}, nil)
	defer store.Close()

	ctx := context.Background()

	t.Run("reports degraded memory health", func(t *testing.T) {
		health := store.Health(ctx)
		assert.Equal(t, StatusDegraded, health.Status)
		assert.Equal(t, TypeMemory, health.Type)
	})

	t.Run("operations work in memory", func(t *testing.T) {
		assert.True(t, store.Set(ctx, "key", "value", 0))

		val, found := store.Get(ctx, "key")
		assert.True(t, found)
		assert.Equal(t, "value", val)

		assert.True(t, store.Exists(ctx, "key"))
		assert.True(t, store.Delete(ctx, "key"))
		assert.False(t, store.Exists(ctx, "key"))
	})

	t.Run("ttl honored in memory", func(t *testing.T) {
		store.Set(ctx, "transient", "value", 20*time.Millisecond)

		_, found := store.Get(ctx, "transient")
		assert.True(t, found)

		time.Sleep(50 * time.Millisecond)

		_, found = store.Get(ctx, "transient")
		assert.False(t, found)
	})
}

func TestStore_FallbackOnRedisFailure(t *testing.T) {
	store, mr := setupRedisStore(t)
	defer store.Close()

	ctx := context.Background()

	store.Set(ctx, "before", "value", 0)

	mr.Close()

	t.Run("writes land in fallback", func(t *testing.T) {
		assert.True(t, store.Set(ctx, "after", "value", 0))

		val, found := store.Get(ctx, "after")
		assert.True(t, found)
		assert.Equal(t, "value", val)
	})

	t.Run("health reports degraded", func(t *testing.T) {
		health := store.Health(ctx)
		assert.Equal(t, StatusDegraded, health.Status)
		assert.Equal(t, TypeMemory, health.Type)
		assert.NotEmpty(t, health.Error)
	})

	t.Run("redis-only data invisible from fallback", func(t *testing.T) {
		_, found := store.Get(ctx, "before")
		assert.False(t, found)
	})
}

func TestStore_Reconnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := New(Config{
		RedisURL:              "redis://" + mr.Addr(),
		MaxReconnectAttempts:  100,
		ReconnectInitialDelay: 10 * time.Millisecond,
		ReconnectMaxDelay:     20 * time.Millisecond,
	}, nil)
	defer store.Close()

	ctx := context.Background()

	mr.Close()
	store.Set(ctx, "key", "value", 0) // trigger degradation

	health := store.Health(ctx)
	require.Equal(t, StatusDegraded, health.Status)

	require.NoError(t, mr.Restart())

	assert.Eventually(t, func() bool {
		return store.Health(ctx).Status == StatusHealthy
	}, 2*time.Second, 20*time.Millisecond, "store should reconnect to redis")
}

func TestStore_InvalidRedisURL(t *testing.T) {
	store := New(Config{RedisURL: "not-a-url"}, nil)
	defer store.Close()

	health := store.Health(context.Background())
	assert.Equal(t, StatusDegraded, health.Status)
	assert.Equal(t, TypeMemory, health.Type)
}

func TestStore_SlidingWindowCount(t *testing.T) {
	t.Run("redis window", func(t *testing.T) {
		store, mr := setupRedisStore(t)
		defer mr.Close()
		defer store.Close()

		ctx := context.Background()

		for i := 0; i < 3; i++ {
			allowed, _ := store.SlidingWindowCount(ctx, "limit-key", 3, time.Minute)
			assert.True(t, allowed, "request %d should be allowed", i+1)
		}

		allowed, count := store.SlidingWindowCount(ctx, "limit-key", 3, time.Minute)
		assert.False(t, allowed)
		assert.Equal(t, 3, count)
	})

	t.Run("fallback window", func(t *testing.T) {
		store := New(Config{RedisURL: ""}, nil)
		defer store.Close()

		ctx := context.Background()

		for i := 0; i < 3; i++ {
			allowed, _ := store.SlidingWindowCount(ctx, "limit-key", 3, time.Minute)
			assert.True(t, allowed, "request %d should be allowed", i+1)
		}

		allowed, _ := store.SlidingWindowCount(ctx, "limit-key", 3, time.Minute)
		assert.False(t, allowed)
	})
}
