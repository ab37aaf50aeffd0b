package metrics

import (
	"runtime"
	"time"
)

// RecordRun records the outcome and duration of a centrality run
func (r *Registry) RecordRun(algorithm, status string, duration time.Duration) {
	r.CentralityRunsTotal.WithLabelValues(algorithm, status).Inc()
	r.CentralityRunDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
}

// RecordSources adds processed and skipped source counts
func (r *Registry) RecordSources(processed, skipped int) {
	r.CentralitySourcesTotal.Add(float64(processed))
	r.CentralitySkippedTotal.Add(float64(skipped))
}

// RecordRelationships adds the number of relationships visited by a worker
func (r *Registry) RecordRelationships(n int64) {
	r.CentralityRelationships.Add(float64(n))
}

// SetProgress publishes the current progress fraction
func (r *Registry) SetProgress(fraction float64) {
	r.CentralityProgress.Set(fraction)
}

// WorkerStarted and WorkerStopped track active workers
func (r *Registry) WorkerStarted() {
	r.CentralityWorkersActive.Inc()
}

func (r *Registry) WorkerStopped() {
	r.CentralityWorkersActive.Dec()
}

// SetScaleFactor publishes the approximation factor of the current run
func (r *Registry) SetScaleFactor(f float64) {
	r.CentralityScaleFactor.Set(f)
}

// SetGraphSize publishes the size of the loaded graph
func (r *Registry) SetGraphSize(nodes, relationships int) {
	r.GraphNodes.Set(float64(nodes))
	r.GraphRelationships.Set(float64(relationships))
}

// RecordGraphLoad records how long an edge list took to load
func (r *Registry) RecordGraphLoad(format string, duration time.Duration) {
	r.GraphLoadDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// UpdateSystemMetrics samples runtime statistics
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
