// Package server provides the HTTP server for the keyflick recognizer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ayusman/keyflick/internal/config"
	"github.com/ayusman/keyflick/internal/plugin"
	"github.com/ayusman/keyflick/internal/server/api"
	"github.com/ayusman/keyflick/internal/session"
	"github.com/ayusman/keyflick/internal/store"
)

// Config holds the server configuration.
type Config struct {
	// Settings is the live recognizer configuration. Defaults are used
	// when nil.
	Settings *config.Holder
	// Store enables the trace and evaluation endpoints.
	Store *store.Store
	// Metrics is created when nil.
	Metrics *Metrics
	// Baseline returns the settings that apply without API overrides.
	Baseline func() (config.Settings, error)
	// StaticDir, if set, is served at the root.
	StaticDir string
	// Plugins enables the plugin endpoints. Together with Store it also
	// enables running bound plugin actions.
	Plugins *plugin.Manager
	// Runner executes plugin actions. A plugin.Executor with the default
	// timeout is used when nil.
	Runner plugin.Runner
}

// Server represents the HTTP server for the keyflick application.
type Server struct {
	config     Config
	router     *mux.Router
	start      time.Time
	metrics    *Metrics
	feed       *FeedHandler
	sessions   *SessionHandler
	dispatcher *plugin.Dispatcher
	http       *http.Server
}

// New creates a new Server with the given configuration.
func New(cfg Config) *Server {
	if cfg.Settings == nil {
		cfg.Settings = config.NewHolder(config.Default())
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}

	s := &Server{
		config:  cfg,
		router:  mux.NewRouter(),
		start:   time.Now(),
		metrics: cfg.Metrics,
	}
	s.http = &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}
	s.feed = NewFeedHandler(s.metrics)
	s.sessions = NewSessionHandler(cfg.Settings, s.Observe, s.metrics)
	if cfg.Store != nil && cfg.Plugins != nil {
		runner := cfg.Runner
		if runner == nil {
			runner = plugin.NewExecutor(plugin.DefaultTimeout)
		}
		s.dispatcher = plugin.NewDispatcher(cfg.Plugins, cfg.Store.Bindings(), runner)
		s.dispatcher.OnRun(s.metrics.PluginRun)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", s.metrics.Handler())
	s.router.Handle("/ws/session", s.sessions)
	s.router.Handle("/ws/feed", s.feed)

	r := s.router.PathPrefix("/api").Subrouter()
	r.Use(s.metrics.Middleware, requireSameOrigin)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	observer := api.ObserverFunc(s.Observe)
	api.NewClassifyHandler(s.config.Settings, observer).Register(r)

	settings := api.NewSettingsHandler(s.config.Settings, s.config.Store, s.config.Baseline)
	settings.OnChange(func(config.Settings) { s.metrics.SettingsChanged("api") })
	settings.Register(r)

	// Register trace API handlers if Store is configured
	if s.config.Store != nil {
		api.NewTraceHandler(s.config.Store, s.config.Settings, observer).Register(r)
		api.NewEvaluateHandler(s.config.Store, s.config.Settings).Register(r)
		api.NewBindingHandler(s.config.Store, s.config.Plugins).Register(r)
	}
	if s.config.Plugins != nil {
		api.NewPluginHandler(s.config.Plugins).Register(r)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.StaticDir))).Methods(http.MethodGet, http.MethodHead)
	}
}

// Observe counts a finished touch and broadcasts it on the feed.
func (s *Server) Observe(source string, out session.Outcome) {
	s.metrics.ObserveOutcome(source, out)
	s.feed.Publish(source, out)
	if s.dispatcher != nil {
		s.dispatcher.Observe(source, out)
	}
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":        "ok",
		"uptime":        time.Since(s.start).String(),
		"feed_clients":  s.feed.Clients(),
		"traces_stored": s.config.Store != nil,
		"plugins":       s.pluginCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

func (s *Server) pluginCount() int {
	if s.config.Plugins == nil {
		return 0
	}
	return len(s.config.Plugins.List())
}

// ListenAndServe starts the HTTP server on the given address. It returns
// nil after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every websocket and waits for
// in-flight requests and queued plugin runs until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.Close()
	s.feed.Close()
	return errors.Join(s.http.Shutdown(ctx), s.Close(ctx))
}

// Close waits for queued plugin runs until ctx expires. It is safe to call
// more than once and does not stop the HTTP server.
func (s *Server) Close(ctx context.Context) error {
	if s.dispatcher == nil {
		return nil
	}
	return s.dispatcher.Close(ctx)
}
