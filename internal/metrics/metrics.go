// Package metrics exposes the mailer's Prometheus counters.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qturkey/listmailer/internal/dispatch"
	"github.com/qturkey/listmailer/internal/ingest"
)

const namespace = "listmailer"

// Metrics holds the counters updated after every ingestion and dispatch run.
type Metrics struct {
	registry *prometheus.Registry

	Deliveries     *prometheus.CounterVec
	JobsDispatched prometheus.Counter
	JobsContinued  prometheus.Counter
	Templates      *prometheus.CounterVec
	JobsIngested   prometheus.Counter
}

// New registers the counters and the Go runtime collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_total",
			Help:      "Delivery attempts by result.",
		}, []string{"result"}),
		JobsDispatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_dispatched_total",
			Help:      "Jobs claimed and processed.",
		}),
		JobsContinued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_continued_total",
			Help:      "Continuation jobs created for remaining recipients.",
		}),
		Templates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_templates_total",
			Help:      "Templates stored by ingestion, by sender authorization.",
		}, []string{"authorized"}),
		JobsIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_jobs_total",
			Help:      "Jobs created by ingestion.",
		}),
	}
}

// ObserveDispatch records a dispatch run. A nil result means no job was due.
func (m *Metrics) ObserveDispatch(res *dispatch.Result) {
	if m == nil || res == nil {
		return
	}
	m.JobsDispatched.Inc()
	m.Deliveries.WithLabelValues("success").Add(float64(res.Sent))
	m.Deliveries.WithLabelValues("failure").Add(float64(res.Failed))
	if res.Continuation != nil {
		m.JobsContinued.Inc()
	}
}

// ObserveIngest records an ingestion pass.
func (m *Metrics) ObserveIngest(res *ingest.Result) {
	if m == nil || res == nil {
		return
	}
	m.Templates.WithLabelValues(strconv.FormatBool(true)).Add(float64(res.Authorized))
	m.Templates.WithLabelValues(strconv.FormatBool(false)).Add(float64(res.Templates - res.Authorized))
	if res.Job != nil {
		m.JobsIngested.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
