// Package kvstore provides a uniform key-value interface over Redis with a
// transparent in-process fallback. Callers never see backend errors from
// Get/Set/Delete/Exists: when Redis is unreachable the store degrades to an
// in-memory cache with the same TTL semantics and keeps serving.
package kvstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"

	"geo-redirector/internal/common/logging"
)

// Health status values reported by the store.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Backend type values reported by the store.
const (
	TypeRedis  = "redis"
	TypeMemory = "memory"
)

// Health describes the current state of the store backend.
type Health struct {
	Status string `json:"status"`
	Type   string `json:"type"`
	Error  string `json:"error,omitempty"`
}

// Config holds key-value store configuration.
type Config struct {
	// RedisURL is the connection string. Empty means permanent memory mode.
	RedisURL string
	// MaxReconnectAttempts bounds the background reconnect loop.
	MaxReconnectAttempts int
	// ReconnectInitialDelay is the delay before the first reconnect attempt.
	ReconnectInitialDelay time.Duration
	// ReconnectMaxDelay caps the exponential backoff between attempts.
	ReconnectMaxDelay time.Duration
}

// DefaultConfig returns default store configuration.
func DefaultConfig() Config {
	return Config{
		MaxReconnectAttempts:  10,
		ReconnectInitialDelay: 1 * time.Second,
		ReconnectMaxDelay:     30 * time.Second,
	}
}

// Store is the key-value adapter. It prefers Redis and silently falls back to
// an in-process cache on any backend error. Fallback data is not migrated back
// once Redis recovers; stale fallback entries simply expire.
type Store struct {
	rdb      *redis.Client
	fallback *gocache.Cache
	config   Config
	logger   logging.Logger

	mu           sync.RWMutex
	degraded     bool
	lastErr      error
	reconnecting bool
}

// New creates a store from the given configuration. A missing RedisURL is a
// valid configuration, not an error: the store runs purely in-process. An
// unreachable Redis at startup also degrades instead of failing.
func New(config Config, logger logging.Logger) *Store {
	if config.MaxReconnectAttempts == 0 {
		config.MaxReconnectAttempts = DefaultConfig().MaxReconnectAttempts
	}
	if config.ReconnectInitialDelay == 0 {
		config.ReconnectInitialDelay = DefaultConfig().ReconnectInitialDelay
	}
	if config.ReconnectMaxDelay == 0 {
		config.ReconnectMaxDelay = DefaultConfig().ReconnectMaxDelay
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Store{
		fallback: gocache.New(gocache.NoExpiration, 10*time.Minute),
		config:   config,
		logger:   logger,
	}

	if config.RedisURL == "" {
		s.degraded = true
		logger.Info("kvstore running in memory mode, no redis configured")
		return s
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		s.degraded = true
		s.lastErr = err
		logger.Warn("invalid redis url, kvstore running in memory mode",
			logging.String("error", err.Error()))
		return s
	}

	s.rdb = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.rdb.Ping(ctx).Err(); err != nil {
		s.markDegraded(err)
	} else {
		logger.Info("kvstore connected to redis", logging.String("addr", opts.Addr))
	}

	return s
}

// Close releases the Redis connection, if any.
func (s *Store) Close() error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// Get returns the value for key and whether it was found. Backend errors are
// absorbed: a Redis failure degrades the store and the fallback is consulted.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	if s.useRedis() {
		val, err := s.rdb.Get(ctx, key).Result()
		if err == nil {
			return val, true
		}
		if err == redis.Nil {
			return "", false
		}
		s.markDegraded(err)
	}

	if val, found := s.fallback.Get(key); found {
		return val.(string), true
	}
	return "", false
}

// Set stores value under key with the given TTL (0 means no expiry). It
// reports success, which in practice is always true: a failed Redis write
// degrades the store and lands in the fallback instead.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if s.useRedis() {
		err := s.rdb.Set(ctx, key, value, ttl).Err()
		if err == nil {
			return true
		}
		s.markDegraded(err)
	}

	s.fallback.Set(key, value, fallbackTTL(ttl))
	return true
}

// Delete removes key and reports success.
func (s *Store) Delete(ctx context.Context, key string) bool {
	if s.useRedis() {
		err := s.rdb.Del(ctx, key).Err()
		if err == nil {
			return true
		}
		s.markDegraded(err)
	}

	s.fallback.Delete(key)
	return true
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) bool {
	if s.useRedis() {
		count, err := s.rdb.Exists(ctx, key).Result()
		if err == nil {
			return count > 0
		}
		s.markDegraded(err)
	}

	_, found := s.fallback.Get(key)
	return found
}

// Health reports the backend state: healthy when Redis answers a ping,
// degraded while serving from the in-process fallback, unhealthy when the
// probe itself fails.
func (s *Store) Health(ctx context.Context) Health {
	s.mu.RLock()
	degraded := s.degraded
	lastErr := s.lastErr
	s.mu.RUnlock()

	if degraded {
		h := Health{Status: StatusDegraded, Type: TypeMemory}
		if lastErr != nil {
			h.Error = lastErr.Error()
		}
		return h
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.rdb.Ping(pingCtx).Err(); err != nil {
		s.markDegraded(err)
		return Health{Status: StatusUnhealthy, Type: TypeRedis, Error: err.Error()}
	}

	return Health{Status: StatusHealthy, Type: TypeRedis}
}

// useRedis reports whether calls should go to Redis right now.
func (s *Store) useRedis() bool {
	if s.rdb == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.degraded
}

// markDegraded flips the store to fallback mode and starts the bounded
// background reconnect loop. Subsequent calls while already degraded only
// record the error.
func (s *Store) markDegraded(err error) {
	s.mu.Lock()
	s.lastErr = err
	alreadyDegraded := s.degraded
	s.degraded = true
	startReconnect := s.rdb != nil && !s.reconnecting
	if startReconnect {
		s.reconnecting = true
	}
	s.mu.Unlock()

	if !alreadyDegraded {
		s.logger.Warn("kvstore degraded to memory fallback",
			logging.String("error", err.Error()))
	}

	if startReconnect {
		go s.reconnectLoop()
	}
}

// reconnectLoop pings Redis with exponential backoff until it answers or the
// bounded attempt count is exhausted. Fallback data is left in place either way.
func (s *Store) reconnectLoop() {
	delay := s.config.ReconnectInitialDelay

	for attempt := 1; attempt <= s.config.MaxReconnectAttempts; attempt++ {
		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.rdb.Ping(ctx).Err()
		cancel()

		if err == nil {
			s.mu.Lock()
			s.degraded = false
			s.lastErr = nil
			s.reconnecting = false
			s.mu.Unlock()
			s.logger.Info("kvstore reconnected to redis",
				logging.Int("attempt", attempt))
			return
		}

		s.logger.Debug("kvstore reconnect attempt failed",
			logging.Int("attempt", attempt),
			logging.String("error", err.Error()))

		delay *= 2
		if delay > s.config.ReconnectMaxDelay {
			delay = s.config.ReconnectMaxDelay
		}
	}

	s.mu.Lock()
	s.reconnecting = false
	s.mu.Unlock()
	s.logger.Error("kvstore reconnect attempts exhausted, staying on memory fallback",
		fmt.Errorf("gave up after %d attempts", s.config.MaxReconnectAttempts))
}

// fallbackTTL maps the store TTL convention (0 = no expiry) to go-cache's.
func fallbackTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}
