package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCentralityMetrics() {
	r.CentralityRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "centrality_runs_total",
			Help: "Total number of betweenness centrality runs by outcome",
		},
		[]string{"algorithm", "status"},
	)

	r.CentralityRunDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "centrality_run_duration_seconds",
			Help:    "Wall-clock duration of centrality runs in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600, 3600},
		},
		[]string{"algorithm"},
	)

	r.CentralitySourcesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "centrality_sources_processed_total",
			Help: "Total number of BFS source nodes fully processed",
		},
	)

	r.CentralitySkippedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "centrality_sources_skipped_total",
			Help: "Total number of claimed node ids rejected by the selection strategy",
		},
	)

	r.CentralityProgress = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "centrality_progress_ratio",
			Help: "Progress of the current centrality run (0-1)",
		},
	)

	r.CentralityWorkersActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "centrality_workers_active",
			Help: "Number of centrality workers currently running",
		},
	)

	r.CentralityRelationships = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "centrality_relationships_traversed_total",
			Help: "Total number of relationships visited by forward BFS passes",
		},
	)

	r.CentralityScaleFactor = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "centrality_scale_factor",
			Help: "Approximation scale factor of the most recent run",
		},
	)
}
