package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/keyflick/internal/gesture"
	"github.com/ayusman/keyflick/internal/plugin"
	"github.com/ayusman/keyflick/internal/store"
)

// BindingHandler handles HTTP requests for gesture bindings.
type BindingHandler struct {
	store   *store.Store
	plugins *plugin.Manager
}

// NewBindingHandler creates a BindingHandler. When plugins is not nil,
// new bindings must name a discovered plugin and one of its actions.
func NewBindingHandler(s *store.Store, plugins *plugin.Manager) *BindingHandler {
	return &BindingHandler{store: s, plugins: plugins}
}

// Register adds the handler's routes to r.
func (h *BindingHandler) Register(r *mux.Router) {
	r.HandleFunc("/bindings", h.list).Methods(http.MethodGet)
	r.HandleFunc("/bindings", h.create).Methods(http.MethodPost)
	r.HandleFunc("/bindings/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/bindings/{id}", h.update).Methods(http.MethodPatch)
	r.HandleFunc("/bindings/{id}", h.delete).Methods(http.MethodDelete)
}

type createBindingRequest struct {
	Gesture string          `json:"gesture"`
	Source  string          `json:"source"`
	Plugin  string          `json:"plugin"`
	Action  string          `json:"action"`
	Params  json.RawMessage `json:"params"`
	Enabled *bool           `json:"enabled"`
}

type updateBindingRequest struct {
	Enabled *bool `json:"enabled"`
}

type listBindingsResponse struct {
	Bindings []*store.Binding `json:"bindings"`
}

// validate checks req and returns the canonical gesture label.
func (h *BindingHandler) validate(req *createBindingRequest) (string, error) {
	result, err := gesture.ParseResult(req.Gesture)
	if err != nil {
		return "", fmt.Errorf("invalid gesture: %w", err)
	}

	if !store.ValidSource(req.Source) {
		return "", fmt.Errorf("unknown source %q", req.Source)
	}

	if req.Plugin == "" {
		return "", errors.New("plugin is required")
	}
	if req.Action == "" {
		return "", errors.New("action is required")
	}
	if len(req.Params) > 0 && !bytes.HasPrefix(bytes.TrimSpace(req.Params), []byte("{")) {
		return "", errors.New("params must be a JSON object")
	}

	if h.plugins != nil {
		p, err := h.plugins.Get(req.Plugin)
		if err != nil {
			return "", fmt.Errorf("unknown plugin %q", req.Plugin)
		}
		if !p.Manifest.HasAction(req.Action) {
			return "", fmt.Errorf("plugin %s has no action %q", req.Plugin, req.Action)
		}
	}
	return result.String(), nil
}

// list handles GET /api/bindings. ?gesture= restricts the list to the
// enabled bindings for one result.
func (h *BindingHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		bindings []*store.Binding
		err      error
	)
	if label := r.URL.Query().Get("gesture"); label != "" {
		bindings, err = h.store.Bindings().ListByGesture(label)
	} else {
		bindings, err = h.store.Bindings().List()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list bindings")
		return
	}

	if bindings == nil {
		bindings = []*store.Binding{}
	}
	writeJSON(w, http.StatusOK, listBindingsResponse{Bindings: bindings})
}

// create handles POST /api/bindings.
func (h *BindingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createBindingRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}

	label, err := h.validate(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b := &store.Binding{
		Gesture: label,
		Source:  req.Source,
		Plugin:  req.Plugin,
		Action:  req.Action,
		Params:  req.Params,
		Enabled: req.Enabled == nil || *req.Enabled,
	}
	if err := h.store.Bindings().Create(b); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create binding")
		return
	}

	slog.Info("binding created", "id", b.ID, "gesture", b.Gesture, "plugin", b.Plugin, "action", b.Action)
	writeJSON(w, http.StatusCreated, b)
}

// get handles GET /api/bindings/{id}.
func (h *BindingHandler) get(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.Bindings().GetByID(mux.Vars(r)["id"])
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// update handles PATCH /api/bindings/{id}. Only enabled can change.
func (h *BindingHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateBindingRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.store.Bindings().SetEnabled(id, *req.Enabled); err != nil {
		h.storeError(w, err)
		return
	}

	b, err := h.store.Bindings().GetByID(id)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// delete handles DELETE /api/bindings/{id}.
func (h *BindingHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Bindings().Delete(mux.Vars(r)["id"]); err != nil {
		h.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BindingHandler) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "binding not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "binding lookup failed")
}

// PluginHandler lists the discovered plugins.
type PluginHandler struct {
	plugins *plugin.Manager
}

// NewPluginHandler creates a PluginHandler.
func NewPluginHandler(m *plugin.Manager) *PluginHandler {
	return &PluginHandler{plugins: m}
}

// Register adds the handler's routes to r.
func (h *PluginHandler) Register(r *mux.Router) {
	r.HandleFunc("/plugins", h.list).Methods(http.MethodGet)
	r.HandleFunc("/plugins/rescan", h.rescan).Methods(http.MethodPost)
}

type listPluginsResponse struct {
	Dir     string            `json:"dir"`
	Plugins []plugin.Manifest `json:"plugins"`
}

func (h *PluginHandler) response() listPluginsResponse {
	resp := listPluginsResponse{Dir: h.plugins.Dir(), Plugins: []plugin.Manifest{}}
	for _, p := range h.plugins.List() {
		resp.Plugins = append(resp.Plugins, p.Manifest)
	}
	return resp
}

// list handles GET /api/plugins.
func (h *PluginHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.response())
}

// rescan handles POST /api/plugins/rescan.
func (h *PluginHandler) rescan(w http.ResponseWriter, r *http.Request) {
	if err := h.plugins.Discover(); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to scan plugins: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, h.response())
}
