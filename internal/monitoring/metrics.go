// Package monitoring exposes Prometheus metrics for preview engines and the
// server that hosts them.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so engines can run without a registry.
type Metrics struct {
	registry *prometheus.Registry

	// Engine metrics
	Edits                *prometheus.CounterVec
	Recomputes           prometheus.Counter
	Renders              prometheus.Counter
	RenderFailures       prometheus.Counter
	DroppedAfterTeardown prometheus.Counter
	ComposeDuration      prometheus.Histogram
	DocumentBytes        prometheus.Histogram
	EnginesActive        prometheus.Gauge

	// Transport metrics
	WSConnections  prometheus.Gauge
	WSMessages     *prometheus.CounterVec
	EditsThrottled prometheus.Counter
}

// NewMetrics registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Edits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livepane_edits_total",
				Help: "Buffer edits applied, by buffer kind",
			},
			[]string{"kind"},
		),
		Recomputes: factory.NewCounter(prometheus.CounterOpts{
			Name: "livepane_recomputes_total",
			Help: "Completed debounce cycles",
		}),
		Renders: factory.NewCounter(prometheus.CounterOpts{
			Name: "livepane_renders_total",
			Help: "Composite documents handed to a surface",
		}),
		RenderFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "livepane_render_failures_total",
			Help: "Frames a surface refused",
		}),
		DroppedAfterTeardown: factory.NewCounter(prometheus.CounterOpts{
			Name: "livepane_recomputes_dropped_total",
			Help: "Recomputes that reached a torn down engine and were dropped",
		}),
		ComposeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "livepane_compose_duration_seconds",
			Help:    "Time spent composing and rendering one document",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		DocumentBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "livepane_document_bytes",
			Help:    "Size of composite documents",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		}),
		EnginesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "livepane_engines_active",
			Help: "Engines started and not yet torn down",
		}),

		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "livepane_ws_connections",
			Help: "Open preview websocket connections",
		}),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livepane_ws_messages_total",
				Help: "Websocket messages by direction and type",
			},
			[]string{"direction", "type"},
		),
		EditsThrottled: factory.NewCounter(prometheus.CounterOpts{
			Name: "livepane_edits_throttled_total",
			Help: "Edits rejected by the per-connection rate limit",
		}),
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) EditApplied(kind string) {
	if m == nil {
		return
	}
	m.Edits.WithLabelValues(kind).Inc()
}

func (m *Metrics) Rendered(started time.Time, bytes int) {
	if m == nil {
		return
	}
	m.Recomputes.Inc()
	m.Renders.Inc()
	m.ComposeDuration.Observe(time.Since(started).Seconds())
	m.DocumentBytes.Observe(float64(bytes))
}

func (m *Metrics) RenderFailed() {
	if m == nil {
		return
	}
	m.RenderFailures.Inc()
}

func (m *Metrics) RecomputeDropped() {
	if m == nil {
		return
	}
	m.DroppedAfterTeardown.Inc()
}

func (m *Metrics) EngineStarted() {
	if m == nil {
		return
	}
	m.EnginesActive.Inc()
}

func (m *Metrics) EngineStopped() {
	if m == nil {
		return
	}
	m.EnginesActive.Dec()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

func (m *Metrics) Message(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

func (m *Metrics) EditThrottled() {
	if m == nil {
		return
	}
	m.EditsThrottled.Inc()
}
