// Package handlers wires the public redirect endpoints and the admin
// configuration API onto the core services.
package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"geo-redirector/internal/auth"
	"geo-redirector/internal/common/errors"
	"geo-redirector/internal/common/logging"
	"geo-redirector/internal/geo"
	"geo-redirector/internal/kvstore"
	"geo-redirector/internal/middleware"
	"geo-redirector/internal/routing"
	"geo-redirector/internal/settings"
)

// Handlers holds the service dependencies for all HTTP endpoints.
type Handlers struct {
	kv       *kvstore.Store
	settings *settings.Store
	resolver *geo.Resolver
	auth     *auth.Auth
	logger   logging.Logger
}

// New creates the handler set.
func New(kv *kvstore.Store, settingsStore *settings.Store, resolver *geo.Resolver, authSvc *auth.Auth, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		kv:       kv,
		settings: settingsStore,
		resolver: resolver,
		auth:     authSvc,
		logger:   logger,
	}
}

// decideRouting resolves the request's routing decision. Bots skip geo
// resolution entirely; a force override wins either way.
func (h *Handlers) decideRouting(r *http.Request) string {
	force := r.URL.Query().Get("force")

	if middleware.IsBot(r.Context()) {
		return geo.DetermineRouting("", force)
	}

	country := h.resolver.ResolveCountry(r.Context(), middleware.ClientIP(r))
	return geo.DetermineRouting(country, force)
}

// HandleMessagingRedirect sends the visitor to the configured messaging
// destination as a wa.me deep link, with the merged prefill text attached.
func (h *Handlers) HandleMessagingRedirect(w http.ResponseWriter, r *http.Request) {
	cfg := h.settings.Get(r.Context())
	dest := routing.Select(h.decideRouting(r), routing.KindMessaging, cfg, r.URL.Query().Get("text"))

	target := "https://wa.me/" + dest.Target
	if dest.Text != "" {
		target += "?text=" + url.QueryEscape(dest.Text)
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// HandleChannelRedirect sends the visitor to the configured channel as a
// t.me link.
func (h *Handlers) HandleChannelRedirect(w http.ResponseWriter, r *http.Request) {
	cfg := h.settings.Get(r.Context())
	dest := routing.Select(h.decideRouting(r), routing.KindChannel, cfg, "")

	http.Redirect(w, r, "https://t.me/"+dest.Target, http.StatusFound)
}

// websiteRedirectResponse is returned for the delayed and custom presentation
// modes; the front end renders the countdown from it.
type websiteRedirectResponse struct {
	URL     string `json:"url"`
	Mode    string `json:"mode"`
	DelayMs int    `json:"delay_ms"`
	Message string `json:"message,omitempty"`
	Routing string `json:"routing"`
}

// HandleWebsiteRedirect sends the visitor to the configured website. The
// immediate mode answers with a plain 302; delayed and custom modes answer
// with a JSON payload describing the redirect for the front end.
func (h *Handlers) HandleWebsiteRedirect(w http.ResponseWriter, r *http.Request) {
	cfg := h.settings.Get(r.Context())
	dest := routing.Select(h.decideRouting(r), routing.KindWebsite, cfg, "")

	if cfg.RedirectPresentationMode == "immediate" {
		http.Redirect(w, r, dest.Target, http.StatusFound)
		return
	}

	writeJSON(w, http.StatusOK, websiteRedirectResponse{
		URL:     dest.Target,
		Mode:    cfg.RedirectPresentationMode,
		DelayMs: cfg.RedirectDelayMs,
		Message: cfg.RedirectMessage,
		Routing: dest.Routing,
	})
}

// healthResponse aggregates the subsystem health reports.
type healthResponse struct {
	Status string          `json:"status"`
	Cache  kvstore.Health  `json:"cache"`
	Config settings.Health `json:"config"`
}

// HealthCheck reports cache-store and configuration subsystem health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	cacheHealth := h.kv.Health(r.Context())
	configHealth := h.settings.Health(r.Context())

	status := "ok"
	httpStatus := http.StatusOK
	if cacheHealth.Status != kvstore.StatusHealthy {
		status = "degraded"
	}
	if cacheHealth.Status == kvstore.StatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: status,
		Cache:  cacheHealth,
		Config: configHealth,
	})
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", err)
	}
}

// writeError translates an application error into an HTTP response.
// Validation errors carry the full list of violated fields.
func writeError(w http.ResponseWriter, err error) {
	switch errors.GetType(err) {
	case errors.ErrTypeValidation:
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": errors.ViolatedFields(err),
		})
	case errors.ErrTypeAuth:
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	case errors.ErrTypeStorage:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	if errors.GetType(err) != errors.ErrTypeValidation {
		logging.Error("request failed", err)
	}
}
