package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"oriontv/config"
)

// SettingsHandler reads and updates the persisted configuration.
type SettingsHandler struct {
	cfg *config.Manager
}

func NewSettingsHandler(cfg *config.Manager) *SettingsHandler {
	return &SettingsHandler{cfg: cfg}
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.cfg.Load()
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings config.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.cfg.Save(settings); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Printf("[settings] configuration updated (%d source overrides)", len(settings.Sources))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}
