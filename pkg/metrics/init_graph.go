package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "centrality_graph_nodes",
			Help: "Number of nodes in the loaded graph",
		},
	)

	r.GraphRelationships = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "centrality_graph_relationships",
			Help: "Number of stored relationships in the loaded graph",
		},
	)

	r.GraphLoadDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "centrality_graph_load_duration_seconds",
			Help:    "Time spent loading edge lists in seconds",
			Buckets: []float64{0.01, 0.1, 1, 10, 60, 300},
		},
		[]string{"format"},
	)
}
