package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for the service.
type Metrics struct {
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	sweepCount      prometheus.Counter
	staleTickets    prometheus.Gauge
}

// NewMetrics registers collectors on the given registerer. Passing nil uses
// the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		requestCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "helpdesk",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "helpdesk",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		errorCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "helpdesk",
				Name:      "request_errors_total",
				Help:      "Total number of failed HTTP requests by error code",
			},
			[]string{"path", "method", "code"},
		),
		sweepCount: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "helpdesk",
				Name:      "stale_sweeps_total",
				Help:      "Total number of stale ticket sweeps executed",
			},
		),
		staleTickets: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "helpdesk",
				Name:      "stale_tickets_last_sweep",
				Help:      "Stale tickets found by the most recent sweep",
			},
		),
	}
}

// RecordRequest tracks a completed HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError tracks a request that failed with a domain error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordSweep tracks a stale monitor pass and how many tickets it found.
func (m *Metrics) RecordSweep(found int) {
	if m == nil {
		return
	}
	m.sweepCount.Inc()
	m.staleTickets.Set(float64(found))
}
