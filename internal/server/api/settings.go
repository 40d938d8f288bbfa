package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/keyflick/internal/config"
	"github.com/ayusman/keyflick/internal/store"
)

// SettingsHandler reads and replaces the live recognizer settings.
type SettingsHandler struct {
	settings *config.Holder
	store    *store.Store
	// baseline restores the settings that apply without API overrides.
	baseline func() (config.Settings, error)
	onChange func(config.Settings)
}

// NewSettingsHandler creates a SettingsHandler. When s is not nil, updates
// are persisted under config.StoreKey. baseline is consulted on reset and
// defaults to config.Default.
func NewSettingsHandler(h *config.Holder, s *store.Store, baseline func() (config.Settings, error)) *SettingsHandler {
	if baseline == nil {
		baseline = func() (config.Settings, error) { return config.Default(), nil }
	}
	return &SettingsHandler{settings: h, store: s, baseline: baseline}
}

// OnChange registers fn to run after every successful update or reset.
func (h *SettingsHandler) OnChange(fn func(config.Settings)) {
	h.onChange = fn
}

// Register adds the handler's routes to r.
func (h *SettingsHandler) Register(r *mux.Router) {
	r.HandleFunc("/settings", h.get).Methods(http.MethodGet)
	r.HandleFunc("/settings", h.update).Methods(http.MethodPut)
	r.HandleFunc("/settings", h.reset).Methods(http.MethodDelete)
}

// get handles GET /api/settings.
func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Load())
}

// update handles PUT /api/settings. The body is merged over the current
// settings, so fields may be omitted.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	next := h.settings.Load()
	if err := decodeJSON(w, r, &next, false); err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := h.settings.Store(next); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.store != nil {
		if err := h.store.Settings().SetJSON(config.StoreKey, next); err != nil {
			slog.Error("failed to persist settings", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to persist settings")
			return
		}
	}

	slog.Info("settings updated", "min_swipe_length", next.Thresholds.MinSwipeLength)
	h.changed(next)
	writeJSON(w, http.StatusOK, next)
}

// reset handles DELETE /api/settings, dropping any persisted override.
func (h *SettingsHandler) reset(w http.ResponseWriter, r *http.Request) {
	base, err := h.baseline()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.settings.Store(base); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.store != nil {
		if err := h.store.Settings().Delete(config.StoreKey); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to clear persisted settings")
			return
		}
	}

	slog.Info("settings reset")
	h.changed(base)
	writeJSON(w, http.StatusOK, base)
}

func (h *SettingsHandler) changed(s config.Settings) {
	if h.onChange != nil {
		h.onChange(s)
	}
}
