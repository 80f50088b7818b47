package webapi

import (
	"encoding/json"
	"net/http"

	"github.com/mvillars/docuforge/events"
	"github.com/mvillars/docuforge/registry"
)

func (s *Service) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettingsMasked(r.Context())
	if err != nil {
		s.logger.Error("get settings", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	respond(w, http.StatusOK, settings)
}

// handleSettingsUpdate applies a partial settings update. Empty values
// and round-tripped masked API keys are ignored by the store.
func (s *Service) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for k := range updates {
		switch k {
		case registry.KeyAPIKey, registry.KeyOCRModel, registry.KeyTextModel:
		default:
			respondError(w, http.StatusBadRequest, "unknown setting: "+k)
			return
		}
	}

	if err := s.store.UpdateSettings(r.Context(), updates); err != nil {
		s.logger.Error("update settings", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	s.logEvent(r.Context(), events.TypeSettingsUpdated, "settings", "global", true)
	settings, err := s.store.GetSettingsMasked(r.Context())
	if err != nil {
		s.logger.Error("get settings", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	respond(w, http.StatusOK, settings)
}

// handleSettingsTest verifies the stored API key against the provider.
func (s *Service) handleSettingsTest(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("settings snapshot", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	if snap.APIKey == "" {
		respond(w, http.StatusOK, map[string]any{"ok": false, "error": "no API key configured"})
		return
	}

	if err := s.cfg.NewPinger(snap.APIKey).Ping(r.Context()); err != nil {
		respond(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]any{"ok": true})
}
