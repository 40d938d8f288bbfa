package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/keyflick/internal/capture"
	"github.com/ayusman/keyflick/internal/config"
	"github.com/ayusman/keyflick/internal/gesture"
	"github.com/ayusman/keyflick/internal/session"
	"github.com/ayusman/keyflick/internal/store"
)

var errNoPoints = errors.New("points must not be empty")

// ClassifyHandler classifies ad hoc paths without storing them.
type ClassifyHandler struct {
	settings *config.Holder
	observer Observer
}

// NewClassifyHandler creates a ClassifyHandler reading the current
// settings from h. observer may be nil.
func NewClassifyHandler(h *config.Holder, observer Observer) *ClassifyHandler {
	return &ClassifyHandler{settings: h, observer: observerOrNop(observer)}
}

// Register adds the handler's routes to r.
func (h *ClassifyHandler) Register(r *mux.Router) {
	r.HandleFunc("/classify", h.classify).Methods(http.MethodPost)
}

type classifyRequest struct {
	Mode        session.Mode    `json:"mode"`
	AspectRatio float64         `json:"aspect_ratio"`
	Points      []gesture.Point `json:"points"`
}

// classify handles POST /api/classify.
func (h *ClassifyHandler) classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.AspectRatio < 0 {
		writeError(w, http.StatusBadRequest, "aspect_ratio must be positive")
		return
	}

	out, err := classifyPoints(r.Context(), h.settings.Load(), req.Mode, req.AspectRatio, req.Points)
	if err != nil {
		if errors.Is(err, errNoPoints) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.observer.Observe(store.SourceClassify, out)
	writeJSON(w, http.StatusOK, out)
}

// classifyPoints replays points as a single touch through a fresh session.
func classifyPoints(ctx context.Context, settings config.Settings, mode session.Mode, aspect float64, points []gesture.Point) (session.Outcome, error) {
	if len(points) == 0 {
		return session.Outcome{}, errNoPoints
	}

	sess := session.New(settings, aspect, mode)
	outcomes, err := capture.Replay(ctx, capture.NewTraceSource(points), sess, 0)
	if err != nil {
		return session.Outcome{}, err
	}
	return outcomes[0], nil
}
