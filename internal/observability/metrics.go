package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "contact_center"

// Metrics holds the Prometheus collectors of the worker and its ops surface.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestErrors   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	events          *prometheus.CounterVec
	classifications *prometheus.CounterVec
	processing      prometheus.Histogram
	queueRetries    *prometheus.CounterVec
	rebalanceMoves  *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Ops HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_request_errors_total",
			Help:      "Ops HTTP errors by path, method and error code.",
		}, []string{"path", "method", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Ops HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Inbound email events by processing outcome.",
		}, []string{"outcome"}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classified_events_total",
			Help:      "Inbound email events by matched classifier case.",
		}, []string{"case"}),
		processing: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_processing_seconds",
			Help:      "Time spent routing one inbound event.",
			Buckets:   prometheus.DefBuckets,
		}),
		queueRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_retries_total",
			Help:      "Queue entries requeued or dropped after a failed attempt.",
		}, []string{"result"}),
		rebalanceMoves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebalance_moves_total",
			Help:      "Ticket ownership changes applied by the rebalance pass.",
		}, []string{"reason"}),
	}
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(path, method, code).Inc()
}

// RecordEvent counts one processed inbound event.
func (m *Metrics) RecordEvent(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
	m.processing.Observe(duration.Seconds())
}

// RecordClassification counts the case an event matched; "none" for new contacts.
func (m *Metrics) RecordClassification(caseName string) {
	if m == nil {
		return
	}
	if caseName == "" {
		caseName = "none"
	}
	m.classifications.WithLabelValues(caseName).Inc()
}

// RecordRetry counts a queue retry decision ("requeued" or "dropped").
func (m *Metrics) RecordRetry(result string) {
	if m == nil {
		return
	}
	m.queueRetries.WithLabelValues(result).Inc()
}

// RecordRebalanceMove counts one applied rebalance move.
func (m *Metrics) RecordRebalanceMove(reason string) {
	if m == nil {
		return
	}
	m.rebalanceMoves.WithLabelValues(reason).Inc()
}
