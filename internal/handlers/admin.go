package handlers

import (
	"encoding/json"
	"net/http"

	"geo-redirector/internal/settings"
)

// HandleLogin exchanges the admin token for a session token.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	session, err := h.auth.Login(body.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"session_token": session})
}

// HandleGetConfig returns the current configuration record.
func (h *Handlers) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Get(r.Context()))
}

// HandleSetConfig replaces the full configuration record. Omitted fields take
// their built-in defaults; the body is decoded into pointer fields so an
// explicit zero delay survives the replace.
func (h *Handlers) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	var body settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, err := h.settings.Replace(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// HandleUpdateConfig applies a partial configuration update. An invalid value
// anywhere in the patch rejects the whole update.
func (h *Handlers) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, err := h.settings.Update(r.Context(), patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// HandleResetConfig replaces the configuration with the built-in defaults.
func (h *Handlers) HandleResetConfig(w http.ResponseWriter, r *http.Request) {
	reset, err := h.settings.Reset(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reset)
}
