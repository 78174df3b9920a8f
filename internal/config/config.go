// Package config provides configuration management for the geo redirect service.
// It handles loading configuration from environment variables with sensible defaults
// and validates the configuration to ensure the application starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Log file path (default: stdout)
//
// Cache Backend:
//   - REDIS_URL: Redis connection string (e.g. redis://:pass@host:6379/0).
//     Leaving it unset is valid and forces permanent in-memory fallback mode.
//   - REDIS_RECONNECT_MAX_ATTEMPTS: Bounded background reconnect attempts while
//     degraded (default: 10)
//
// Geo Resolution:
//   - GEO_CACHE_TTL: Per-IP country cache TTL in seconds (default: 86400)
//   - GEO_PROVIDER_TIMEOUT_MS: Per-provider lookup timeout in ms (default: 3000)
//   - IPINFO_TOKEN: ipinfo.io credential; also enables the self-lookup fallback
//   - GEOIP_DB_PATH: Optional local MMDB country database, tried before HTTP providers
//
// Runtime Configuration Defaults (the admin API can override these at runtime):
//   - DEFAULT_PHONE, TURKEY_PHONE: Destination numbers, digits only
//   - DEFAULT_CHANNEL, TURKEY_CHANNEL: Channel names
//   - DEFAULT_WEBSITE_URL, TURKEY_WEBSITE_URL: Website redirect targets
//   - DEFAULT_TEXT, TURKEY_TEXT: Prefill texts
//   - REDIRECT_MODE: immediate, delayed or custom (default: immediate)
//   - REDIRECT_DELAY_MS: Delay for delayed mode, 0-30000 (default: 3000)
//   - REDIRECT_MESSAGE: Message shown during a delayed redirect
//   - CONFIG_CACHE_TTL: In-process configuration cache freshness in seconds (default: 300)
//
// Security Configuration:
//   - ADMIN_TOKEN: Admin API token (required, minimum 16 characters)
//   - SESSION_SECRET: Session token signing secret; random per process when unset
//   - SESSION_TTL: Admin session lifetime (default: 24h)
//
// Rate Limiting:
//   - RATE_LIMIT_ENABLED: Enable rate limiting on admin endpoints (default: true)
//   - RATE_LIMIT_DEFAULT: Requests per window (default: 60)
//   - RATE_LIMIT_WINDOW: Rate limit time window (default: 60s)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the geo redirect service.
// All fields correspond to environment variables that can be set to
// override the default values.
//
// The configuration is loaded using the Load() function and should be
// validated using the Validate() method before use.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)

	// Cache backend
	RedisURL                  string // Redis connection string; empty forces memory mode
	RedisReconnectMaxAttempts int    // Bounded background reconnect attempts

	// Geo resolution
	GeoCacheTTL        time.Duration // Per-IP country cache TTL
	GeoProviderTimeout time.Duration // Per-provider lookup timeout
	IPInfoToken        string        // ipinfo.io credential
	GeoIPDBPath        string        // Optional local MMDB database path

	// Runtime configuration defaults
	DefaultPhone      string
	TurkeyPhone       string
	DefaultChannel    string
	TurkeyChannel     string
	DefaultWebsiteURL string
	TurkeyWebsiteURL  string
	DefaultText       string
	TurkeyText        string
	RedirectMode      string
	RedirectDelayMs   int
	RedirectMessage   string
	ConfigCacheTTL    time.Duration // In-process configuration cache freshness

	// Security
	AdminToken    string        // Admin API token (required)
	SessionSecret string        // Session token signing secret
	SessionTTL    time.Duration // Admin session lifetime

	// Rate limiting
	RateLimitEnabled bool
	RateLimitDefault int
	RateLimitWindow  time.Duration
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config to ensure all required values are properly set and valid.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RedisURL:                  getEnv("REDIS_URL", ""),
		RedisReconnectMaxAttempts: getIntEnv("REDIS_RECONNECT_MAX_ATTEMPTS", 10),

		GeoCacheTTL:        time.Duration(getIntEnv("GEO_CACHE_TTL", 86400)) * time.Second,
		GeoProviderTimeout: time.Duration(getIntEnv("GEO_PROVIDER_TIMEOUT_MS", 3000)) * time.Millisecond,
		IPInfoToken:        getEnv("IPINFO_TOKEN", ""),
		GeoIPDBPath:        getEnv("GEOIP_DB_PATH", ""),

		DefaultPhone:      getEnv("DEFAULT_PHONE", "905000000000"),
		TurkeyPhone:       getEnv("TURKEY_PHONE", "905000000000"),
		DefaultChannel:    getEnv("DEFAULT_CHANNEL", "defaultchannel"),
		TurkeyChannel:     getEnv("TURKEY_CHANNEL", "turkeychannel"),
		DefaultWebsiteURL: getEnv("DEFAULT_WEBSITE_URL", "https://example.com"),
		TurkeyWebsiteURL:  getEnv("TURKEY_WEBSITE_URL", "https://example.com.tr"),
		DefaultText:       getEnv("DEFAULT_TEXT", ""),
		TurkeyText:        getEnv("TURKEY_TEXT", ""),
		RedirectMode:      getEnv("REDIRECT_MODE", "immediate"),
		RedirectDelayMs:   getIntEnv("REDIRECT_DELAY_MS", 3000),
		RedirectMessage:   getEnv("REDIRECT_MESSAGE", ""),
		ConfigCacheTTL:    time.Duration(getIntEnv("CONFIG_CACHE_TTL", 300)) * time.Second,

		AdminToken:    getEnv("ADMIN_TOKEN", ""),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getDurationEnv("SESSION_TTL", 24*time.Hour),

		RateLimitEnabled: getBoolEnv("RATE_LIMIT_ENABLED", true),
		RateLimitDefault: getIntEnv("RATE_LIMIT_DEFAULT", 60),
		RateLimitWindow:  getDurationEnv("RATE_LIMIT_WINDOW", 60*time.Second),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves an integer environment variable value or returns a default value.
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a default value.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv retrieves a duration environment variable value or returns a default value.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate performs comprehensive validation on the configuration to ensure
// all required fields are present and all values are valid.
//
// A validation failure here is fatal: the process must not start with a
// malformed environment.
func (c *Config) Validate() error {
	if c.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN environment variable is required")
	}

	if len(c.AdminToken) < 16 {
		return fmt.Errorf("ADMIN_TOKEN must be at least 16 characters long")
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.GeoCacheTTL <= 0 {
		return fmt.Errorf("GEO_CACHE_TTL must be a positive number of seconds")
	}

	if c.GeoProviderTimeout <= 0 {
		return fmt.Errorf("GEO_PROVIDER_TIMEOUT_MS must be a positive number of milliseconds")
	}

	if c.ConfigCacheTTL <= 0 {
		return fmt.Errorf("CONFIG_CACHE_TTL must be a positive number of seconds")
	}

	if c.RedisReconnectMaxAttempts < 1 {
		return fmt.Errorf("REDIS_RECONNECT_MAX_ATTEMPTS must be a positive number")
	}

	switch c.RedirectMode {
	case "immediate", "delayed", "custom":
	default:
		return fmt.Errorf("REDIRECT_MODE must be 'immediate', 'delayed' or 'custom'")
	}

	if c.RedirectDelayMs < 0 || c.RedirectDelayMs > 30000 {
		return fmt.Errorf("REDIRECT_DELAY_MS must be between 0 and 30000")
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be a positive duration")
	}

	if c.RateLimitEnabled {
		if c.RateLimitDefault < 1 {
			return fmt.Errorf("RATE_LIMIT_DEFAULT must be a positive number")
		}
		if c.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be a valid duration (e.g., '60s', '1m')")
		}
	}

	return nil
}
