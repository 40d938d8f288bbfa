package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/keyflick/internal/config"
	"github.com/ayusman/keyflick/internal/gesture"
	"github.com/ayusman/keyflick/internal/session"
	"github.com/ayusman/keyflick/internal/store"
)

// TraceHandler handles HTTP requests for recorded traces.
type TraceHandler struct {
	store    *store.Store
	settings *config.Holder
	observer Observer
}

// NewTraceHandler creates a TraceHandler. observer may be nil.
func NewTraceHandler(s *store.Store, h *config.Holder, observer Observer) *TraceHandler {
	return &TraceHandler{store: s, settings: h, observer: observerOrNop(observer)}
}

// Register adds the handler's routes to r.
func (h *TraceHandler) Register(r *mux.Router) {
	r.HandleFunc("/traces", h.list).Methods(http.MethodGet)
	r.HandleFunc("/traces", h.create).Methods(http.MethodPost)
	r.HandleFunc("/traces/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/traces/{id}", h.delete).Methods(http.MethodDelete)
	r.HandleFunc("/traces/{id}/classify", h.classify).Methods(http.MethodPost)
	r.HandleFunc("/traces/{id}/classifications", h.classifications).Methods(http.MethodGet)
}

type createTraceRequest struct {
	ID          string          `json:"id"`
	Label       string          `json:"label"`
	Mode        string          `json:"mode"`
	AspectRatio float64         `json:"aspect_ratio"`
	Points      []gesture.Point `json:"points"`
}

func (req createTraceRequest) validate() error {
	if len(req.Points) == 0 {
		return errNoPoints
	}
	if req.AspectRatio < 0 {
		return fmt.Errorf("aspect_ratio must be positive, got %v", req.AspectRatio)
	}
	if _, err := session.ParseMode(req.Mode); err != nil {
		return err
	}
	if req.Label != "" {
		if _, err := gesture.ParseResult(req.Label); err != nil {
			return fmt.Errorf("invalid label: %w", err)
		}
	}
	return nil
}

type listTracesResponse struct {
	Traces []*store.Trace `json:"traces"`
}

type listClassificationsResponse struct {
	Classifications []store.Classification `json:"classifications"`
}

// list handles GET /api/traces. ?labeled=true restricts the list to
// labeled traces.
func (h *TraceHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		traces []*store.Trace
		err    error
	)
	if r.URL.Query().Get("labeled") == "true" {
		traces, err = h.store.Traces().ListLabeled()
	} else {
		traces, err = h.store.Traces().List()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list traces")
		return
	}

	if traces == nil {
		traces = []*store.Trace{}
	}
	writeJSON(w, http.StatusOK, listTracesResponse{Traces: traces})
}

// create handles POST /api/traces.
func (h *TraceHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createTraceRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ID != "" {
		if _, err := h.store.Traces().GetByID(req.ID); err == nil {
			writeError(w, http.StatusConflict, "trace already exists")
			return
		}
	}

	t := &store.Trace{
		ID:          req.ID,
		Label:       req.Label,
		Mode:        req.Mode,
		AspectRatio: req.AspectRatio,
		Points:      req.Points,
	}
	if err := h.store.Traces().Create(t); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create trace")
		return
	}

	slog.Debug("trace created", "id", t.ID, "label", t.Label, "points", len(t.Points))
	writeJSON(w, http.StatusCreated, t)
}

// get handles GET /api/traces/{id}.
func (h *TraceHandler) get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// delete handles DELETE /api/traces/{id}.
func (h *TraceHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Traces().Delete(mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trace not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete trace")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// classify handles POST /api/traces/{id}/classify. The trace is replayed
// with the current settings and the result is recorded.
func (h *TraceHandler) classify(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	mode, err := session.ParseMode(t.Mode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out, err := classifyPoints(r.Context(), h.settings.Load(), mode, t.AspectRatio, t.Points)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c := &store.Classification{TraceID: t.ID, Result: out.Result, Features: out.Features}
	if err := h.store.Classifications().Create(c); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record classification")
		return
	}

	h.observer.Observe(store.SourceTrace, out)
	writeJSON(w, http.StatusCreated, c)
}

// classifications handles GET /api/traces/{id}/classifications.
func (h *TraceHandler) classifications(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	cs, err := h.store.Classifications().GetByTraceID(t.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list classifications")
		return
	}
	if cs == nil {
		cs = []store.Classification{}
	}
	writeJSON(w, http.StatusOK, listClassificationsResponse{Classifications: cs})
}

func (h *TraceHandler) lookup(w http.ResponseWriter, id string) (*store.Trace, bool) {
	t, err := h.store.Traces().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trace not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to get trace")
		return nil, false
	}
	return t, true
}
