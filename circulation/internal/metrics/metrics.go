package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/pkg/circuit_breaker"
)

const namespace = "library"

type Metrics struct {
	registry *prometheus.Registry

	operations    *prometheus.CounterVec
	opDuration    *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	overdueLoans  prometheus.Gauge
	eventsDropped prometheus.Counter
	breakerState  prometheus.Gauge
	breakerTrips  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "circulation",
				Name:      "operations_total",
				Help:      "Circulation operations by outcome.",
			},
			[]string{"operation", "result"},
		),
		opDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "circulation",
				Name:      "operation_duration_seconds",
				Help:      "Duration of circulation operations.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"operation"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "path"},
		),
		overdueLoans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "circulation",
				Name:      "overdue_loans",
				Help:      "Outstanding loans past their due date at the last scan.",
			},
		),
		eventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "publish_failures_total",
				Help:      "Circulation events that could not be published.",
			},
		),
		breakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "breaker_state",
				Help:      "Event publisher breaker state: 1 closed, 2 open, 3 half open.",
			},
		),
		breakerTrips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "breaker_transitions_total",
				Help:      "Event publisher breaker transitions by target state.",
			},
			[]string{"to"},
		),
	}
	m.breakerState.Set(float64(circuit_breaker.Closed))
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations,
		m.opDuration,
		m.httpRequests,
		m.httpDuration,
		m.overdueLoans,
		m.eventsDropped,
		m.breakerState,
		m.breakerTrips,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveOperation(operation string, started time.Time, err error) {
	m.operations.WithLabelValues(operation, result(err)).Inc()
	m.opDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveHTTP(method, path string, status int, latency time.Duration) {
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(latency.Seconds())
}

func (m *Metrics) SetOverdueLoans(n int) {
	m.overdueLoans.Set(float64(n))
}

func (m *Metrics) EventDropped() {
	m.eventsDropped.Inc()
}

func (m *Metrics) BreakerStateChanged(_, to circuit_breaker.Status) {
	m.breakerState.Set(float64(to))
	m.breakerTrips.WithLabelValues(to.String()).Inc()
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	switch kind := errs.Kind(err); {
	case errors.Is(kind, errs.ErrNotFound):
		return "not_found"
	case errors.Is(kind, errs.ErrStateConflict):
		return "conflict"
	case errors.Is(kind, errs.ErrValidation):
		return "invalid"
	}
	return "error"
}
