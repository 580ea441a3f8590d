package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus instruments used by the reflect pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ReflectTotal   *prometheus.CounterVec
	ReflectLatency prometheus.Histogram
	ModelLatency   *prometheus.HistogramVec
	MemoryEvents   *prometheus.CounterVec
}

// NewMetrics registers the instruments on reg. A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ReflectTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reflect_total",
			Help:      "Reflect calls by outcome.",
		}, []string{"outcome"}),
		ReflectLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reflect_duration_seconds",
			Help:      "End-to-end latency of a reflect call.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}),
		ModelLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Latency of model backend calls by provider.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"provider"}),
		MemoryEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_events_total",
			Help:      "Memory recall and write events by kind and result.",
		}, []string{"kind", "result"}),
	}
}

func (m *Metrics) ObserveReflect(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ReflectTotal.WithLabelValues(outcome).Inc()
	m.ReflectLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveModel(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.ModelLatency.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) MemoryEvent(kind, result string) {
	if m == nil {
		return
	}
	m.MemoryEvents.WithLabelValues(kind, result).Inc()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
