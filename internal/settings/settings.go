// Package settings holds the runtime routing-destination configuration: which
// numbers, channels and URLs visitors are sent to, and how the website
// redirect is presented. The record is persisted as JSON in the key-value
// store and served from a short-lived in-process snapshot.
package settings

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"geo-redirector/internal/common/errors"
	"geo-redirector/internal/common/logging"
	"geo-redirector/internal/config"
	"geo-redirector/internal/kvstore"
)

// StorageKey is the fixed key the serialized configuration record lives under.
const StorageKey = "redirect_config"

// Config is the routing-destination configuration record. It is always fully
// populated once stored; unset fields fall back to the process-wide defaults.
type Config struct {
	DefaultDestinationNumber string `json:"default_destination_number"`
	TurkeyDestinationNumber  string `json:"turkey_destination_number"`
	DefaultText              string `json:"default_text"`
	TurkeyText               string `json:"turkey_text"`
	DefaultChannelName       string `json:"default_channel_name"`
	TurkeyChannelName        string `json:"turkey_channel_name"`
	DefaultWebsiteURL        string `json:"default_website_url"`
	TurkeyWebsiteURL         string `json:"turkey_website_url"`
	RedirectPresentationMode string `json:"redirect_presentation_mode"`
	RedirectDelayMs          int    `json:"redirect_delay_ms"`
	RedirectMessage          string `json:"redirect_message"`
}

// Patch is a partial configuration update. Nil fields are left unchanged.
type Patch struct {
	DefaultDestinationNumber *string `json:"default_destination_number,omitempty"`
	TurkeyDestinationNumber  *string `json:"turkey_destination_number,omitempty"`
	DefaultText              *string `json:"default_text,omitempty"`
	TurkeyText               *string `json:"turkey_text,omitempty"`
	DefaultChannelName       *string `json:"default_channel_name,omitempty"`
	TurkeyChannelName        *string `json:"turkey_channel_name,omitempty"`
	DefaultWebsiteURL        *string `json:"default_website_url,omitempty"`
	TurkeyWebsiteURL         *string `json:"turkey_website_url,omitempty"`
	RedirectPresentationMode *string `json:"redirect_presentation_mode,omitempty"`
	RedirectDelayMs          *int    `json:"redirect_delay_ms,omitempty"`
	RedirectMessage          *string `json:"redirect_message,omitempty"`
}

// DefaultsFrom builds the built-in configuration record from process config.
func DefaultsFrom(cfg *config.Config) Config {
	return Config{
		DefaultDestinationNumber: cfg.DefaultPhone,
		TurkeyDestinationNumber:  cfg.TurkeyPhone,
		DefaultText:              cfg.DefaultText,
		TurkeyText:               cfg.TurkeyText,
		DefaultChannelName:       cfg.DefaultChannel,
		TurkeyChannelName:        cfg.TurkeyChannel,
		DefaultWebsiteURL:        cfg.DefaultWebsiteURL,
		TurkeyWebsiteURL:         cfg.TurkeyWebsiteURL,
		RedirectPresentationMode: cfg.RedirectMode,
		RedirectDelayMs:          cfg.RedirectDelayMs,
		RedirectMessage:          cfg.RedirectMessage,
	}
}

// Health describes the configuration subsystem state.
type Health struct {
	Status        string         `json:"status"`
	Storage       kvstore.Health `json:"storage"`
	ConfigPresent bool           `json:"config_present"`
	CacheFresh    bool           `json:"cache_fresh"`
}

// Store serves and mutates the configuration record. Reads go through an
// in-process snapshot refreshed after cacheTTL; writes validate the whole
// record, persist it, and swap the snapshot atomically.
//
// Concurrent admin updates are last-writer-wins: there is no conflict
// detection, the later Set simply overwrites the earlier one.
type Store struct {
	kv       *kvstore.Store
	defaults Config
	cacheTTL time.Duration
	logger   logging.Logger

	mu        sync.RWMutex
	snapshot  *Config
	fetchedAt time.Time
}

// NewStore creates a configuration store over the given key-value store.
func NewStore(kv *kvstore.Store, defaults Config, cacheTTL time.Duration, logger logging.Logger) *Store {
	if cacheTTL <= 0 {
		cacheTTL = 300 * time.Second
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Store{
		kv:       kv,
		defaults: defaults,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Get returns the current configuration. The in-process snapshot is served
// while fresh; otherwise the record is read from the key-value store, falling
// back to the built-in defaults on a miss or a malformed record.
func (s *Store) Get(ctx context.Context) Config {
	s.mu.RLock()
	if s.snapshot != nil && time.Since(s.fetchedAt) < s.cacheTTL {
		cfg := *s.snapshot
		s.mu.RUnlock()
		return cfg
	}
	s.mu.RUnlock()

	cfg := s.load(ctx)

	s.mu.Lock()
	s.snapshot = &cfg
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	return cfg
}

// load reads the record from the key-value store, defaulting on any failure.
func (s *Store) load(ctx context.Context) Config {
	raw, found := s.kv.Get(ctx, StorageKey)
	if !found {
		return s.defaults
	}

	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		s.logger.Warn("stored configuration is malformed, using defaults",
			logging.String("error", err.Error()))
		return s.defaults
	}

	return cfg.withDefaults(s.defaults)
}

// Set validates the entire record, persists it, updates the snapshot and
// returns the validated record. Validation failures list every violated
// field; the stored record is left untouched on any failure.
func (s *Store) Set(ctx context.Context, cfg Config) (Config, error) {
	cfg = cfg.withDefaults(s.defaults).normalized()

	if fields := Validate(cfg); len(fields) > 0 {
		return Config{}, errors.Validation(fields)
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return Config{}, errors.Storage("failed to serialize configuration", err)
	}

	s.kv.Set(ctx, StorageKey, string(data), 0)

	s.mu.Lock()
	s.snapshot = &cfg
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("configuration updated")
	return cfg, nil
}

// Update shallow-merges the patch over the current record and delegates to
// Set, so an invalid partial update is rejected as a whole and the previous
// record stays in place. An empty patch re-validates and re-persists the
// unchanged record.
func (s *Store) Update(ctx context.Context, patch Patch) (Config, error) {
	cfg := s.Get(ctx)
	patch.applyTo(&cfg)
	return s.Set(ctx, cfg)
}

// Replace builds a full record by applying the patch over the built-in
// defaults and delegates to Set. Fields absent from the patch take their
// default value, so an explicit zero delay is distinguishable from an
// omitted one.
func (s *Store) Replace(ctx context.Context, patch Patch) (Config, error) {
	cfg := s.defaults
	patch.applyTo(&cfg)
	return s.Set(ctx, cfg)
}

// Reset replaces the full record with the built-in defaults via Set.
func (s *Store) Reset(ctx context.Context) (Config, error) {
	return s.Set(ctx, s.defaults)
}

// Health reports the subsystem state, including whether a persisted record
// exists and whether the snapshot is fresh.
func (s *Store) Health(ctx context.Context) Health {
	storage := s.kv.Health(ctx)

	s.mu.RLock()
	fresh := s.snapshot != nil && time.Since(s.fetchedAt) < s.cacheTTL
	s.mu.RUnlock()

	status := "ok"
	if storage.Status == kvstore.StatusUnhealthy {
		status = "degraded"
	}

	return Health{
		Status:        status,
		Storage:       storage,
		ConfigPresent: s.kv.Exists(ctx, StorageKey),
		CacheFresh:    fresh,
	}
}

// withDefaults fills unset fields from the given defaults so the record is
// never partially populated. Texts and the redirect message legitimately
// default to empty and are left alone.
func (c Config) withDefaults(defaults Config) Config {
	if c.DefaultDestinationNumber == "" {
		c.DefaultDestinationNumber = defaults.DefaultDestinationNumber
	}
	if c.TurkeyDestinationNumber == "" {
		c.TurkeyDestinationNumber = defaults.TurkeyDestinationNumber
	}
	if c.DefaultChannelName == "" {
		c.DefaultChannelName = defaults.DefaultChannelName
	}
	if c.TurkeyChannelName == "" {
		c.TurkeyChannelName = defaults.TurkeyChannelName
	}
	if c.DefaultWebsiteURL == "" {
		c.DefaultWebsiteURL = defaults.DefaultWebsiteURL
	}
	if c.TurkeyWebsiteURL == "" {
		c.TurkeyWebsiteURL = defaults.TurkeyWebsiteURL
	}
	if c.RedirectPresentationMode == "" {
		c.RedirectPresentationMode = defaults.RedirectPresentationMode
	}
	return c
}

// applyTo shallow-merges the patch over the given record.
func (p Patch) applyTo(cfg *Config) {
	if p.DefaultDestinationNumber != nil {
		cfg.DefaultDestinationNumber = *p.DefaultDestinationNumber
	}
	if p.TurkeyDestinationNumber != nil {
		cfg.TurkeyDestinationNumber = *p.TurkeyDestinationNumber
	}
	if p.DefaultText != nil {
		cfg.DefaultText = *p.DefaultText
	}
	if p.TurkeyText != nil {
		cfg.TurkeyText = *p.TurkeyText
	}
	if p.DefaultChannelName != nil {
		cfg.DefaultChannelName = *p.DefaultChannelName
	}
	if p.TurkeyChannelName != nil {
		cfg.TurkeyChannelName = *p.TurkeyChannelName
	}
	if p.DefaultWebsiteURL != nil {
		cfg.DefaultWebsiteURL = *p.DefaultWebsiteURL
	}
	if p.TurkeyWebsiteURL != nil {
		cfg.TurkeyWebsiteURL = *p.TurkeyWebsiteURL
	}
	if p.RedirectPresentationMode != nil {
		cfg.RedirectPresentationMode = *p.RedirectPresentationMode
	}
	if p.RedirectDelayMs != nil {
		cfg.RedirectDelayMs = *p.RedirectDelayMs
	}
	if p.RedirectMessage != nil {
		cfg.RedirectMessage = *p.RedirectMessage
	}
}
