// Package metrics exposes Prometheus collectors for rendering and queries.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RendersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pestmap_renders_total",
		Help: "Total raster renders",
	})
	RenderDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pestmap_render_duration_ms",
		Help:    "Raster render duration in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
	RenderCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pestmap_render_cache_total",
		Help: "Render cache lookups by result",
	}, []string{"result"})
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pestmap_queries_total",
		Help: "Point queries by outcome (hit, nodata)",
	}, []string{"outcome"})
	ModelSamples = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pestmap_model_samples",
		Help: "Sample count of the installed surface",
	})
	ModelGeneration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pestmap_model_generation",
		Help: "Generation of the installed surface",
	})
	RenderSignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pestmap_render_signals_total",
		Help: "Render completion signals by outcome (completed, timeout)",
	}, []string{"outcome"})
	DroppedRegionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pestmap_dropped_regions_total",
		Help: "Predictions dropped for unknown region codes",
	})
)

func init() {
	prometheus.MustRegister(RendersTotal)
	prometheus.MustRegister(RenderDurationMs)
	prometheus.MustRegister(RenderCacheTotal)
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(ModelSamples)
	prometheus.MustRegister(ModelGeneration)
	prometheus.MustRegister(RenderSignalsTotal)
	prometheus.MustRegister(DroppedRegionsTotal)
}

// Handler serves the registered collectors.
func Handler() http.Handler { return promhttp.Handler() }
