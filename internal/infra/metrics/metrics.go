// Package metrics exposes Prometheus instrumentation for the generation
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts finished logical generation requests and observes their
// duration, labelled by diagram type and outcome.
type Recorder struct {
	registry    *prometheus.Registry
	generations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewRecorder builds a Recorder with its own registry, so tests and multiple
// instances never collide on the default global one.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diaflow",
		Name:      "generations_total",
		Help:      "Finished logical generation requests by diagram type and outcome.",
	}, []string{"diagram_type", "outcome"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "diaflow",
		Name:      "generation_duration_seconds",
		Help:      "Wall time of logical generation requests.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"diagram_type", "outcome"})

	registry.MustRegister(generations, duration)

	return &Recorder{
		registry:    registry,
		generations: generations,
		duration:    duration,
	}
}

// ObserveGeneration records one finished logical request.
func (r *Recorder) ObserveGeneration(diagramType, outcome string, d time.Duration) {
	r.generations.WithLabelValues(diagramType, outcome).Inc()
	r.duration.WithLabelValues(diagramType, outcome).Observe(d.Seconds())
}

// Handler serves the scrape endpoint for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
