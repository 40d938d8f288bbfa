package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/keyflick/internal/capture"
	"github.com/ayusman/keyflick/internal/config"
	"github.com/ayusman/keyflick/internal/session"
	"github.com/ayusman/keyflick/internal/store"
)

// SessionHandler runs one touch session per websocket. The client sends
// capture.Event frames; the server answers every move with an "update"
// frame and every end with a "result" frame. Settings are read once when
// the connection opens.
//
// Query parameters: aspect (key width/height, default 1) and mode
// ("features" or "offset").
type SessionHandler struct {
	settings *config.Holder
	observe  func(source string, out session.Outcome)
	metrics  *Metrics

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewSessionHandler creates a SessionHandler. observe and metrics may be
// nil.
func NewSessionHandler(h *config.Holder, observe func(string, session.Outcome), metrics *Metrics) *SessionHandler {
	return &SessionHandler{
		settings: h,
		observe:  observe,
		metrics:  metrics,
		conns:    make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	aspect, mode, err := sessionParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(sessionReadLimit)

	h.track(conn, true)
	defer h.track(conn, false)

	sess := session.New(h.settings.Load(), aspect, mode)
	src := &connSource{conn: conn}

	player := capture.Player{
		Discard: true,
		OnUpdate: func(_ capture.Event, u session.Update) {
			src.send(message{Type: "update", Update: &u})
		},
		OnOutcome: func(out session.Outcome) {
			src.send(message{Type: "result", Outcome: &out})
			if h.observe != nil {
				h.observe(store.SourceSession, out)
			}
		},
	}

	slog.Debug("session opened", "aspect", aspect, "mode", mode)
	if _, err := player.Play(r.Context(), src, sess); err != nil {
		slog.Debug("session closed", "error", err)
	}
}

// Close disconnects every open session.
func (h *SessionHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
	}
}

func (h *SessionHandler) track(conn *websocket.Conn, open bool) {
	h.mu.Lock()
	if open {
		h.conns[conn] = true
	} else {
		delete(h.conns, conn)
	}
	h.mu.Unlock()

	if h.metrics == nil {
		return
	}
	if open {
		h.metrics.sessions.Inc()
	} else {
		h.metrics.sessions.Dec()
	}
}

func sessionParams(r *http.Request) (float64, session.Mode, error) {
	q := r.URL.Query()

	aspect := 1.0
	if v := q.Get("aspect"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || !(parsed > 0) {
			return 0, 0, errors.New("aspect must be a positive number")
		}
		aspect = parsed
	}

	mode, err := session.ParseMode(q.Get("mode"))
	if err != nil {
		return 0, 0, err
	}
	return aspect, mode, nil
}

// connSource reads touch events from a websocket. Frames that do not
// decode are answered with an "error" frame and skipped.
type connSource struct {
	conn *websocket.Conn
}

func (s *connSource) Next() (capture.Event, error) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) || errors.Is(err, net.ErrClosed) {
				return capture.Event{}, io.EOF
			}
			return capture.Event{}, err
		}

		var e capture.Event
		if err := json.Unmarshal(data, &e); err != nil {
			s.send(message{Type: "error", Error: err.Error()})
			continue
		}
		return e, nil
	}
}

func (s *connSource) send(msg message) {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		slog.Debug("websocket write failed", "error", err)
	}
}
