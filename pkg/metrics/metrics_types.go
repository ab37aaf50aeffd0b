// Package metrics exposes Prometheus instrumentation for centrality runs.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run statuses used as the "status" label of CentralityRunsTotal.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Registry holds all metrics for the application
type Registry struct {
	// Centrality run metrics
	CentralityRunsTotal     *prometheus.CounterVec
	CentralityRunDuration   *prometheus.HistogramVec
	CentralitySourcesTotal  prometheus.Counter
	CentralitySkippedTotal  prometheus.Counter
	CentralityProgress      prometheus.Gauge
	CentralityWorkersActive prometheus.Gauge
	CentralityRelationships prometheus.Counter
	CentralityScaleFactor   prometheus.Gauge

	// Graph metrics
	GraphNodes         prometheus.Gauge
	GraphRelationships prometheus.Gauge
	GraphLoadDuration  *prometheus.HistogramVec

	// System metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initCentralityMetrics()
	r.initGraphMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
