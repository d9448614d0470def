// Package metrics holds the Prometheus collectors for the tarot service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tarot"

// Collector owns a private registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	drawsStarted   *prometheus.CounterVec
	drawsCompleted *prometheus.CounterVec
	assignRejected *prometheus.CounterVec
	activeDraws    prometheus.Gauge

	interpretations       *prometheus.CounterVec
	interpretationLatency prometheus.Histogram
}

func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})
	c.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "path", "status"})
	c.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
	}, []string{"method", "path"})

	c.drawsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "draw",
		Name:      "started_total",
		Help:      "Draw sessions started, by spread.",
	}, []string{"spread"})
	c.drawsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "draw",
		Name:      "completed_total",
		Help:      "Draw sessions that filled every position, by spread.",
	}, []string{"spread"})
	c.assignRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "draw",
		Name:      "assign_rejected_total",
		Help:      "Rejected card assignments, by reason.",
	}, []string{"reason"})
	c.activeDraws = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "draw",
		Name:      "active_sessions",
		Help:      "Draw sessions currently held in memory.",
	})

	c.interpretations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "interpretation",
		Name:      "requests_total",
		Help:      "Interpretation handoffs, by outcome.",
	}, []string{"outcome"})
	c.interpretationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "interpretation",
		Name:      "duration_seconds",
		Help:      "Time spent waiting for the interpreter.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
	})

	c.registry.MustRegister(
		c.httpInFlight,
		c.httpRequests,
		c.httpDuration,
		c.drawsStarted,
		c.drawsCompleted,
		c.assignRejected,
		c.activeDraws,
		c.interpretations,
		c.interpretationLatency,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registered metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) HTTPStarted() { c.httpInFlight.Inc() }

// HTTPFinished records one request. path should be the route template, not
// the raw URL, to keep label cardinality bounded.
func (c *Collector) HTTPFinished(method, path string, status int, d time.Duration) {
	c.httpInFlight.Dec()
	method = strings.ToUpper(method)
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (c *Collector) DrawStarted(spreadID string) {
	c.drawsStarted.WithLabelValues(spreadID).Inc()
}

func (c *Collector) DrawCompleted(spreadID string) {
	c.drawsCompleted.WithLabelValues(spreadID).Inc()
}

func (c *Collector) AssignRejected(reason string) {
	c.assignRejected.WithLabelValues(reason).Inc()
}

func (c *Collector) SetActiveDraws(n int) {
	c.activeDraws.Set(float64(n))
}

// InterpretationFinished records a handoff outcome ("ok" or "failed").
func (c *Collector) InterpretationFinished(outcome string, d time.Duration) {
	c.interpretations.WithLabelValues(outcome).Inc()
	c.interpretationLatency.Observe(d.Seconds())
}
