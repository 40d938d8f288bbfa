package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/keyflick/internal/session"
)

const (
	writeWait = 5 * time.Second

	// sessionReadLimit bounds one touch event frame.
	sessionReadLimit = 64 << 10
	// feedReadLimit bounds the frames a feed client may send; the feed
	// only reads to notice disconnects.
	feedReadLimit = 512
	// feedBuffer is the number of results queued per feed client before
	// the client is dropped.
	feedBuffer = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: sameOrigin,
}

// sameOrigin accepts requests without an Origin header (non-browser
// clients) and browser requests from pages served by this host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// requireSameOrigin rejects state-changing requests sent by pages from
// another origin.
func requireSameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if !sameOrigin(r) {
				slog.Warn("rejected cross-origin request", "method", r.Method, "path", r.URL.Path, "origin", r.Header.Get("Origin"))
				http.Error(w, "cross-origin request rejected", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// message is the envelope for every websocket frame the server sends.
type message struct {
	Type    string           `json:"type"`
	Source  string           `json:"source,omitempty"`
	Update  *session.Update  `json:"update,omitempty"`
	Outcome *session.Outcome `json:"outcome,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan message
}

// writeLoop drains the client's queue until it is closed or a write
// fails.
func (c *feedClient) writeLoop() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			slog.Debug("feed write failed", "error", err)
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

// FeedHandler broadcasts every classified touch to its websocket clients.
// Each client has its own queue and writer, so a slow client never delays
// Publish.
type FeedHandler struct {
	clients map[*feedClient]struct{}
	mu      sync.Mutex
	metrics *Metrics
}

// NewFeedHandler creates a FeedHandler. metrics may be nil.
func NewFeedHandler(metrics *Metrics) *FeedHandler {
	return &FeedHandler{
		clients: make(map[*feedClient]struct{}),
		metrics: metrics,
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(feedReadLimit)

	c := &feedClient{conn: conn, send: make(chan message, feedBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.feedClients.Inc()
	}
	go c.writeLoop()
	defer h.remove(c)

	// Reading notices the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// remove unregisters c and stops its writer. It is a no-op for a client
// that was already removed.
func (h *FeedHandler) remove(c *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *FeedHandler) removeLocked(c *feedClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if h.metrics != nil {
		h.metrics.feedClients.Dec()
	}
}

// Clients returns the number of connected clients.
func (h *FeedHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish queues out for every connected client without blocking. Clients
// whose queue is full are dropped.
func (h *FeedHandler) Publish(source string, out session.Outcome) {
	msg := message{Type: "result", Source: source, Outcome: &out}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slog.Debug("dropping slow feed client")
			h.removeLocked(c)
			c.conn.Close()
		}
	}
}

// Close disconnects every client.
func (h *FeedHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}
