package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/weblisk-dev/weblisk/pkg/protocol"
	"github.com/weblisk-dev/weblisk/pkg/server"
)

// MetricsConfig configures the Prometheus dispatch metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "weblisk").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to register with.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus dispatch metrics.
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

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "weblisk",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus instruments for event dispatch. Construct
// one per server and register its middleware; there is no package-level
// instance, so two servers in one process keep separate registries apart.
type Metrics struct {
	eventsTotal   *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	eventErrors   *prometheus.CounterVec
}

// NewMetrics creates dispatch instruments and registers them with the
// configured registry.
//
// Metrics collected:
//   - weblisk_events_total: counter of dispatched events by scope, event and status
//   - weblisk_event_duration_seconds: histogram of dispatch duration by scope and event
//   - weblisk_event_errors_total: counter of failures by scope and category
//
// Scope is "route" for route-scoped events and the component name
// otherwise. Both scope and event name come from registration tables, so
// label cardinality stays bounded by application code.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Total number of dispatched events",
			ConstLabels: config.ConstLabels,
		}, []string{"scope", "event", "status"}),

		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_duration_seconds",
			Help:        "Event dispatch duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"scope", "event"}),

		eventErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_errors_total",
			Help:        "Total number of failed dispatches",
			ConstLabels: config.ConstLabels,
		}, []string{"scope", "category"}),
	}
}

// Middleware returns dispatch middleware that times every invocation and
// counts outcomes.
func (m *Metrics) Middleware() server.Middleware {
	return func(next server.InvokeFunc) server.InvokeFunc {
		return func(ctx context.Context, payload any, conn *server.Connection) (any, error) {
			scope, event := invocationLabels(ctx)

			start := time.Now()
			result, err := next(ctx, payload, conn)
			m.eventDuration.WithLabelValues(scope, event).Observe(time.Since(start).Seconds())

			status := "success"
			if err != nil {
				status = "error"
				m.eventErrors.WithLabelValues(scope, errorCategory(err)).Inc()
			}
			m.eventsTotal.WithLabelValues(scope, event, status).Inc()

			return result, err
		}
	}
}

// invocationLabels derives the scope and event labels for the current
// dispatch.
func invocationLabels(ctx context.Context) (scope, event string) {
	inv, ok := server.InvocationFromContext(ctx)
	if !ok {
		return "unknown", "unknown"
	}
	if inv.Target.Kind == protocol.TargetComponent {
		return inv.Target.Component, inv.Event
	}
	return "route", inv.Event
}

// errorCategory maps a dispatch error to a bounded label value. Error
// messages never become labels.
func errorCategory(err error) string {
	var herr *server.HandlerError
	switch {
	case errors.As(err, &herr):
		return "panic"
	case errors.Is(err, server.ErrHandlerTimeout):
		return "timeout"
	case errors.Is(err, server.ErrHandlerNotFound):
		return "not_found"
	default:
		return "handler"
	}
}

// ServerCollector exposes a server's registry and dispatch counters as
// Prometheus metrics, read at scrape time. Register it alongside the
// dispatch middleware:
//
//	prometheus.MustRegister(middleware.NewServerCollector(srv))
type ServerCollector struct {
	srv *server.Server

	activeConnections *prometheus.Desc
	activeSessions    *prometheus.Desc
	totalConnections  *prometheus.Desc
	peakConnections   *prometheus.Desc
	messagesReceived  *prometheus.Desc
	messagesSent      *prometheus.Desc
	broadcastsSent    *prometheus.Desc
	transportErrors   *prometheus.Desc
	protocolErrors    *prometheus.Desc
}

// NewServerCollector creates a collector over srv. Options other than
// WithNamespace, WithSubsystem and WithConstLabels are ignored.
func NewServerCollector(srv *server.Server, opts ...MetricsOption) *ServerCollector {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	name := func(suffix string) string {
		return prometheus.BuildFQName(config.Namespace, config.Subsystem, suffix)
	}

	return &ServerCollector{
		srv: srv,

		activeConnections: prometheus.NewDesc(name("active_connections"),
			"Number of currently registered connections", nil, config.ConstLabels),
		activeSessions: prometheus.NewDesc(name("active_sessions"),
			"Number of sessions with at least one live connection", nil, config.ConstLabels),
		totalConnections: prometheus.NewDesc(name("connections_total"),
			"Total connections registered since start", nil, config.ConstLabels),
		peakConnections: prometheus.NewDesc(name("peak_connections"),
			"Largest number of simultaneously registered connections", nil, config.ConstLabels),
		messagesReceived: prometheus.NewDesc(name("messages_received_total"),
			"Total inbound frames handed to the dispatcher", nil, config.ConstLabels),
		messagesSent: prometheus.NewDesc(name("messages_sent_total"),
			"Total outbound frames written to connections", nil, config.ConstLabels),
		broadcastsSent: prometheus.NewDesc(name("broadcasts_total"),
			"Total session and server-wide broadcast calls", nil, config.ConstLabels),
		transportErrors: prometheus.NewDesc(name("transport_errors_total"),
			"Total abnormal websocket transport errors", nil, config.ConstLabels),
		protocolErrors: prometheus.NewDesc(name("protocol_errors_total"),
			"Total frames rejected by the protocol parser", nil, config.ConstLabels),
	}
}

// Describe implements prometheus.Collector.
func (c *ServerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeConnections
	ch <- c.activeSessions
	ch <- c.totalConnections
	ch <- c.peakConnections
	ch <- c.messagesReceived
	ch <- c.messagesSent
	ch <- c.broadcastsSent
	ch <- c.transportErrors
	ch <- c.protocolErrors
}

// Collect implements prometheus.Collector.
func (c *ServerCollector) Collect(ch chan<- prometheus.Metric) {
	m := c.srv.Metrics()

	gauge := func(desc *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(v))
	}
	counter := func(desc *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v))
	}

	gauge(c.activeConnections, m.ActiveConnections)
	gauge(c.activeSessions, m.ActiveSessions)
	counter(c.totalConnections, m.TotalConnections)
	gauge(c.peakConnections, m.PeakConnections)
	counter(c.messagesReceived, m.MessagesReceived)
	counter(c.messagesSent, m.MessagesSent)
	counter(c.broadcastsSent, m.BroadcastsSent)
	counter(c.transportErrors, m.TransportErrors)
	counter(c.protocolErrors, m.ProtocolErrors)
}
