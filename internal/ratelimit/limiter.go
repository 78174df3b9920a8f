package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"geo-redirector/internal/kvstore"
)

// Limiter enforces a sliding-window rate limit backed by the key-value store.
// In fallback mode the window is kept in-process, which is per-instance but
// still bounds abuse.
type Limiter struct {
	store  *kvstore.Store
	config *Config
}

// Config holds rate limiter configuration.
type Config struct {
	DefaultLimit  int           `json:"default_limit"`
	DefaultWindow time.Duration `json:"default_window"`
	Enabled       bool          `json:"enabled"`
}

// Result describes the outcome of a limit check.
type Result struct {
	Allowed   bool          `json:"allowed"`
	Limit     int           `json:"limit"`
	Window    time.Duration `json:"window"`
	Remaining int           `json:"remaining"`
	ResetTime time.Time     `json:"reset_time"`
}

// NewLimiter creates a limiter over the given store.
func NewLimiter(store *kvstore.Store, config *Config) *Limiter {
	if config == nil {
		config = &Config{
			DefaultLimit:  60,
			DefaultWindow: time.Minute,
			Enabled:       true,
		}
	}
	return &Limiter{store: store, config: config}
}

// Check records a hit for key and returns the limit state.
func (l *Limiter) Check(ctx context.Context, key string) Result {
	limit := l.config.DefaultLimit
	window := l.config.DefaultWindow

	if !l.config.Enabled {
		return Result{Allowed: true, Limit: limit, Window: window, Remaining: limit, ResetTime: time.Now().Add(window)}
	}

	allowed, count := l.store.SlidingWindowCount(ctx, "rate_limit:"+key, limit, window)

	remaining := limit - count - 1
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   allowed,
		Limit:     limit,
		Window:    window,
		Remaining: remaining,
		ResetTime: time.Now().Add(window),
	}
}

// Middleware applies the limit per request key, setting the usual
// X-RateLimit headers and answering 429 when the window is exhausted.
func (l *Limiter) Middleware(keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result := l.Check(r.Context(), key)

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetTime.Unix()))

			if !result.Allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(result.Window.Seconds())))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
