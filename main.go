package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"geo-redirector/internal/auth"
	"geo-redirector/internal/common/errors"
	"geo-redirector/internal/common/logging"
	"geo-redirector/internal/config"
	"geo-redirector/internal/geo"
	"geo-redirector/internal/handlers"
	"geo-redirector/internal/kvstore"
	"geo-redirector/internal/middleware"
	"geo-redirector/internal/ratelimit"
	"geo-redirector/internal/server"
	"geo-redirector/internal/settings"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// The destination defaults from the environment must satisfy the same
	// shape rules as any admin-supplied record, or every store miss would
	// serve a record that can never be written back.
	defaults := settings.DefaultsFrom(cfg)
	if fields := settings.Validate(defaults); len(fields) > 0 {
		log.Fatalf("Invalid destination defaults: %v", errors.Validation(fields))
	}

	if err := logging.InitGlobalLogger(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger := logging.GetGlobalLogger()

	// Key-value store: Redis when configured, in-process fallback otherwise.
	kv := kvstore.New(kvstore.Config{
		RedisURL:             cfg.RedisURL,
		MaxReconnectAttempts: cfg.RedisReconnectMaxAttempts,
	}, logger)
	defer kv.Close()

	settingsStore := settings.NewStore(kv, defaults, cfg.ConfigCacheTTL, logger)

	resolver := buildResolver(cfg, kv, logger)

	authSvc, err := auth.New(cfg.AdminToken, cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}

	limiter := ratelimit.NewLimiter(kv, &ratelimit.Config{
		DefaultLimit:  cfg.RateLimitDefault,
		DefaultWindow: cfg.RateLimitWindow,
		Enabled:       cfg.RateLimitEnabled,
	})

	h := handlers.New(kv, settingsStore, resolver, authSvc, logger)

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging)
	router.Use(middleware.BotDetect)

	// Public redirect endpoints
	router.HandleFunc("/", h.HandleMessagingRedirect).Methods("GET")
	router.HandleFunc("/channel", h.HandleChannelRedirect).Methods("GET")
	router.HandleFunc("/website", h.HandleWebsiteRedirect).Methods("GET")

	// Health check
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Admin API
	ipKey := func(r *http.Request) string { return "ip:" + middleware.ClientIP(r) }
	admin := router.PathPrefix("/api/admin").Subrouter()
	admin.Use(limiter.Middleware(ipKey))
	admin.HandleFunc("/login", h.HandleLogin).Methods("POST")

	protected := admin.NewRoute().Subrouter()
	protected.Use(authSvc.RequireAuth)
	protected.HandleFunc("/config", h.HandleGetConfig).Methods("GET")
	protected.HandleFunc("/config", h.HandleSetConfig).Methods("PUT")
	protected.HandleFunc("/config", h.HandleUpdateConfig).Methods("PATCH")
	protected.HandleFunc("/config/reset", h.HandleResetConfig).Methods("POST")

	srv := server.New(router, cfg.Port)
	errCh := srv.Start()
	logger.Info("server started", logging.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("server exited")
}

// buildResolver assembles the geo provider chain: optional local MMDB first,
// then the HTTP providers in failover order, each behind a circuit breaker.
func buildResolver(cfg *config.Config, kv *kvstore.Store, logger logging.Logger) *geo.Resolver {
	client := &http.Client{Timeout: cfg.GeoProviderTimeout}

	var providers []geo.Provider

	if cfg.GeoIPDBPath != "" {
		mmdb, err := geo.NewMMDBProvider(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn("failed to open geoip database, skipping local provider",
				logging.String("path", cfg.GeoIPDBPath),
				logging.String("error", err.Error()))
		} else {
			providers = append(providers, mmdb)
		}
	}

	ipinfo := geo.NewIPInfoProvider(client, cfg.IPInfoToken)

	providers = append(providers,
		geo.WithBreaker(geo.NewIPAPIProvider(client), logger),
		geo.WithBreaker(geo.NewIPWhoisProvider(client), logger),
		geo.WithBreaker(ipinfo, logger),
	)

	var self geo.SelfLookup
	if cfg.IPInfoToken != "" {
		self = ipinfo
	}

	return geo.NewResolver(kv, providers, self, cfg.GeoCacheTTL, cfg.GeoProviderTimeout, logger)
}
