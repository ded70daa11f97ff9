package infra

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry. Every method is
// safe on a nil receiver so tests can skip metrics entirely.
type Metrics struct {
	registry           *prometheus.Registry
	materialsCreated   *prometheus.CounterVec
	materialsDeleted   prometheus.Counter
	orphanedFiles      prometheus.Counter
	generationFailures prometheus.Counter
	generationDuration prometheus.Histogram
}

// NewMetrics registers the material collectors plus the Go runtime collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		materialsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "materials_created_total",
			Help: "Materials persisted, by source (upload or generate).",
		}, []string{"source"}),
		materialsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "materials_deleted_total",
			Help: "Materials deleted.",
		}),
		orphanedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "materials_orphaned_files_total",
			Help: "Files written whose database insert failed.",
		}),
		generationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "materials_generation_failures_total",
			Help: "Image generation calls that failed or produced no image.",
		}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "materials_generation_duration_seconds",
			Help:    "Latency of the image generation bridge.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
	}
	reg.MustRegister(
		m.materialsCreated,
		m.materialsDeleted,
		m.orphanedFiles,
		m.generationFailures,
		m.generationDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) MaterialCreated(source string) {
	if m == nil {
		return
	}
	m.materialsCreated.WithLabelValues(source).Inc()
}

func (m *Metrics) MaterialDeleted() {
	if m == nil {
		return
	}
	m.materialsDeleted.Inc()
}

func (m *Metrics) OrphanedFile() {
	if m == nil {
		return
	}
	m.orphanedFiles.Inc()
}

func (m *Metrics) GenerationFailed() {
	if m == nil {
		return
	}
	m.generationFailures.Inc()
}

func (m *Metrics) ObserveGeneration(seconds float64) {
	if m == nil {
		return
	}
	m.generationDuration.Observe(seconds)
}
