package worker

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatch outcomes recorded by Metrics.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeTimeout = "timeout"
)

// Metrics holds the worker's Prometheus collectors on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration prometheus.Histogram
	pollCycles       *prometheus.CounterVec
	queueErrors      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskrelay",
				Name:      "dispatch_total",
				Help:      "Dispatch attempts by outcome.",
			},
			[]string{"outcome"},
		),
		dispatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "taskrelay",
				Name:      "dispatch_duration_seconds",
				Help:      "Wall time of each dispatch attempt.",
				Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
			},
		),
		pollCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskrelay",
				Name:      "poll_cycles_total",
				Help:      "Poll cycles by result.",
			},
			[]string{"result"},
		),
		queueErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskrelay",
				Name:      "queue_errors_total",
				Help:      "Failed task queue writes by operation.",
			},
			[]string{"op"},
		),
	}
	m.registry.MustRegister(m.dispatchTotal, m.dispatchDuration, m.pollCycles, m.queueErrors)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observeDispatch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(outcome).Inc()
	m.dispatchDuration.Observe(d.Seconds())
}

func (m *Metrics) cycle(result string) {
	if m == nil {
		return
	}
	m.pollCycles.WithLabelValues(result).Inc()
}

func (m *Metrics) queueError(op string) {
	if m == nil {
		return
	}
	m.queueErrors.WithLabelValues(op).Inc()
}
