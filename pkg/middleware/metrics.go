// Package middleware provides optional HTTP middleware for boardsync
// servers: Prometheus metrics and OpenTelemetry tracing.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lernhub/boardsync/pkg/room"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "boardsync").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "boardsync",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus instruments for a boardsync server.
type Metrics struct {
	config MetricsConfig

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	roomsCreated      prometheus.Counter
	roomsReaped       prometheus.Counter
	diffsApplied      prometheus.Counter
	broadcastsDropped prometheus.Counter
}

// NewMetrics creates the Prometheus instruments and registers them
// with the configured registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		config: config,

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests handled",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		roomsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "rooms_created_total",
			Help:        "Total number of rooms created",
			ConstLabels: config.ConstLabels,
		}),

		roomsReaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "rooms_reaped_total",
			Help:        "Total number of idle rooms reaped",
			ConstLabels: config.ConstLabels,
		}),

		diffsApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "diffs_applied_total",
			Help:        "Total number of diffs accepted into room state",
			ConstLabels: config.ConstLabels,
		}),

		broadcastsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "broadcasts_dropped_total",
			Help:        "Total number of broadcasts dropped on slow connections",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Hooks returns room manager hooks that feed the engine counters.
// Pass the result as Config.Hooks when building the manager.
func (m *Metrics) Hooks() room.Hooks {
	return room.Hooks{
		OnRoomCreate:    func(string) { m.roomsCreated.Inc() },
		OnRoomReap:      func(string) { m.roomsReaped.Inc() },
		OnDiffApplied:   func(string) { m.diffsApplied.Inc() },
		OnBroadcastDrop: func(string, string) { m.broadcastsDropped.Inc() },
	}
}

// ObserveManager registers gauges that read live room and session
// counts from the manager on every scrape.
func (m *Metrics) ObserveManager(mgr *room.Manager) {
	factory := promauto.With(m.config.Registry)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   m.config.Namespace,
		Subsystem:   m.config.Subsystem,
		Name:        "active_rooms",
		Help:        "Number of live rooms",
		ConstLabels: m.config.ConstLabels,
	}, func() float64 { return float64(mgr.RoomCount()) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   m.config.Namespace,
		Subsystem:   m.config.Subsystem,
		Name:        "active_sessions",
		Help:        "Number of connected sessions",
		ConstLabels: m.config.ConstLabels,
	}, func() float64 { return float64(mgr.SessionCount()) })
}

// Handler is chi middleware that records request counts and duration
// per route pattern.
func (m *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
