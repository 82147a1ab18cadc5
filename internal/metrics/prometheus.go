package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rcpgest"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	structureDuration *prom.HistogramVec
	documents         *prom.CounterVec
	sections          prom.Counter
	duplicates        prom.Counter
	fetchRetries      prom.Counter
	jobOutcomes       *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		structureDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "structure_duration_seconds",
			Help:      "Time spent classifying and building one document",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		}, []string{"format"}),
		documents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_structured_total",
			Help:      "Documents structured by source format and outcome",
		}, []string{"format", "outcome"}),
		sections: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sections_built_total",
			Help:      "Sections produced at every depth",
		}),
		duplicates: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_paragraphs_dropped_total",
			Help:      "Paragraphs dropped because they restate the preceding table",
		}),
		fetchRetries: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "URL fetch attempts retried after a transient failure",
		}),
		jobOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_jobs_total",
			Help:      "Ingestion jobs by final status",
		}, []string{"status"}),
	}
	reg.MustRegister(pr.structureDuration, pr.documents, pr.sections, pr.duplicates, pr.fetchRetries, pr.jobOutcomes)
	return pr
}

func (p *PrometheusRecorder) ObserveStructure(format, outcome string, d time.Duration) {
	if p == nil {
		return
	}
	p.structureDuration.WithLabelValues(format).Observe(d.Seconds())
	p.documents.WithLabelValues(format, outcome).Inc()
}

func (p *PrometheusRecorder) AddSections(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.sections.Add(float64(n))
}

func (p *PrometheusRecorder) AddDuplicatesDropped(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.duplicates.Add(float64(n))
}

func (p *PrometheusRecorder) IncFetchRetry() {
	if p == nil {
		return
	}
	p.fetchRetries.Inc()
}

func (p *PrometheusRecorder) IncJobOutcome(status string) {
	if p == nil {
		return
	}
	p.jobOutcomes.WithLabelValues(status).Inc()
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prom.Registry {
	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
