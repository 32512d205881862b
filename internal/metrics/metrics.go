// Package metrics exposes Prometheus instrumentation for the friendship service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered by the service.
type Metrics struct {
	operations      *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	gatherer        prometheus.Gatherer
}

// New registers the service collectors on a fresh registry that also carries
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "communiconnect",
			Subsystem: "friendships",
			Name:      "operations_total",
			Help:      "Friendship store operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "communiconnect",
			Subsystem: "friendships",
			Name:      "event_publish_failures_total",
			Help:      "Friendship events that could not be delivered.",
		}, []string{"type"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "communiconnect",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
		gatherer: gatherer,
	}
	reg.MustRegister(m.operations, m.publishFailures, m.httpDuration)
	return m
}

// ObserveOperation counts one store operation.
func (m *Metrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// ObservePublishFailure counts one undelivered event.
func (m *Metrics) ObservePublishFailure(eventType string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(eventType).Inc()
}

// ObserveRequest records the latency of one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
