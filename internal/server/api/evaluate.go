package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/keyflick/internal/calibrate"
	"github.com/ayusman/keyflick/internal/config"
	"github.com/ayusman/keyflick/internal/store"
)

// EvaluateHandler scores the recognizer against every labeled trace.
type EvaluateHandler struct {
	store    *store.Store
	settings *config.Holder
}

// NewEvaluateHandler creates an EvaluateHandler.
func NewEvaluateHandler(s *store.Store, h *config.Holder) *EvaluateHandler {
	return &EvaluateHandler{store: s, settings: h}
}

// Register adds the handler's routes to r.
func (h *EvaluateHandler) Register(r *mux.Router) {
	r.HandleFunc("/evaluate", h.evaluate).Methods(http.MethodPost)
}

type evaluateRequest struct {
	// Settings, when present, are merged over the current settings for
	// this run only.
	Settings *config.Settings `json:"settings"`
}

// evaluate handles POST /api/evaluate. The body is optional.
func (h *EvaluateHandler) evaluate(w http.ResponseWriter, r *http.Request) {
	settings := h.settings.Load()
	req := evaluateRequest{Settings: &settings}
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Settings == nil {
		req.Settings = &settings
	}
	if err := req.Settings.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := h.store.Traces().ListLabeled()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list traces")
		return
	}

	traces := make([]calibrate.Trace, 0, len(stored))
	for _, t := range stored {
		tr, err := calibrate.FromStore(t)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		traces = append(traces, tr)
	}

	report, err := calibrate.Evaluate(r.Context(), traces, *req.Settings)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
