package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/keyflick/internal/gesture"
	"github.com/ayusman/keyflick/internal/plugin"
	"github.com/ayusman/keyflick/internal/session"
)

const namespace = "keyflick"

// Metrics holds the Prometheus collectors exported on /metrics. Each
// Metrics owns its registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	gestures        *prometheus.CounterVec
	liveCircles     *prometheus.CounterVec
	sessions        prometheus.Gauge
	feedClients     prometheus.Gauge
	settingsChanges *prometheus.CounterVec
	pluginRuns      *prometheus.CounterVec
	pluginDuration  *prometheus.HistogramVec
}

// NewMetrics registers the keyflick collectors plus the Go and process
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		gestures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gestures_total",
			Help:      "Classified gestures by source and kind.",
		}, []string{"source", "kind"}),
		liveCircles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_circular_total",
			Help:      "Touches on which the live circular detector fired, by sense.",
		}, []string{"sense"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_open",
			Help:      "Open touch session websockets.",
		}),
		feedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_clients",
			Help:      "Connected outcome feed websockets.",
		}),
		settingsChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_changes_total",
			Help:      "Settings replacements by origin.",
		}, []string{"origin"}),
		pluginRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_runs_total",
			Help:      "Bound plugin actions by plugin and status.",
		}, []string{"plugin", "status"}),
		pluginDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plugin_run_duration_seconds",
			Help:      "Plugin run latency by plugin.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"plugin"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.gestures,
		m.liveCircles,
		m.sessions,
		m.feedClients,
		m.settingsChanges,
		m.pluginRuns,
		m.pluginDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOutcome counts a finished touch.
func (m *Metrics) ObserveOutcome(source string, out session.Outcome) {
	m.gestures.WithLabelValues(source, out.Result.Kind.String()).Inc()
	if out.LiveCircular != gesture.NoSense {
		m.liveCircles.WithLabelValues(out.LiveCircular.String()).Inc()
	}
}

// SettingsChanged counts a settings replacement. origin is "api" or
// "reload".
func (m *Metrics) SettingsChanged(origin string) {
	m.settingsChanges.WithLabelValues(origin).Inc()
}

// PluginRun counts a dispatched binding. Rejected runs never started and
// carry no duration.
func (m *Metrics) PluginRun(r plugin.Run) {
	status := "ok"
	switch {
	case r.Err != nil && r.Duration == 0:
		status = "rejected"
	case r.Err != nil:
		status = "failed"
	}
	m.pluginRuns.WithLabelValues(r.Binding.Plugin, status).Inc()
	if r.Duration > 0 {
		m.pluginDuration.WithLabelValues(r.Binding.Plugin).Observe(r.Duration.Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records the count and latency of every request routed by
// mux, labeled with the route template rather than the raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
