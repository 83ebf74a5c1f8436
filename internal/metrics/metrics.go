// Package metrics holds the Prometheus collectors for sync, dispatch and
// tutoring activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultDropped = "dropped"
)

// Metrics groups the collectors. Each instance owns its registry so tests
// and multiple stores never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	RemoteOps      *prometheus.CounterVec
	QueueDepth     prometheus.Gauge
	SlideViews     prometheus.Counter
	Completions    prometheus.Counter
	MailDispatches *prometheus.CounterVec
	LLMRequests    *prometheus.CounterVec
	LLMLatency     prometheus.Histogram
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RemoteOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learnloop_remote_operations_total",
				Help: "Remote store operations by operation and result",
			},
			[]string{"op", "result"},
		),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "learnloop_remote_queue_depth",
			Help: "Progress upserts waiting for the remote worker",
		}),
		SlideViews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "learnloop_slide_views_total",
			Help: "Distinct slide indices observed by the navigator",
		}),
		Completions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "learnloop_module_completions_total",
			Help: "Completion effects fired",
		}),
		MailDispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learnloop_mail_dispatches_total",
				Help: "Module summary e-mails by result",
			},
			[]string{"result"},
		),
		LLMRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learnloop_llm_requests_total",
				Help: "AI completion requests by purpose and result",
			},
			[]string{"purpose", "result"},
		),
		LLMLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "learnloop_llm_request_duration_seconds",
			Help:    "Duration of AI completion requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}),
	}
	m.registry.MustRegister(
		m.RemoteOps,
		m.QueueDepth,
		m.SlideViews,
		m.Completions,
		m.MailDispatches,
		m.LLMRequests,
		m.LLMLatency,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
