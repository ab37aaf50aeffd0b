// Package progress reports completion of long-running graph computations.
package progress

import (
	"math"
	"sync/atomic"

	"github.com/dd0wney/cluso-centrality/pkg/logging"
	"github.com/dd0wney/cluso-centrality/pkg/metrics"
)

// Reporter receives completion fractions in [0, 1]. Implementations must be
// safe for concurrent use; calls may arrive slightly out of order.
type Reporter interface {
	Report(fraction float64)
}

// NopReporter ignores progress.
type NopReporter struct{}

func (NopReporter) Report(float64) {}

// DefaultStep is the fraction between two progress log lines.
const DefaultStep = 0.1

// LogReporter logs progress every Step and publishes it as a gauge. The value
// it emits never decreases even when workers report out of order.
type LogReporter struct {
	logger  logging.Logger
	metrics *metrics.Registry
	step    float64

	current atomic.Uint64 // float64 bits of the highest fraction seen
	logged  atomic.Int64  // highest step index already logged
}

// NewLogReporter creates a reporter. registry may be nil; step <= 0 uses DefaultStep.
func NewLogReporter(logger logging.Logger, registry *metrics.Registry, step float64) *LogReporter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if step <= 0 || step > 1 {
		step = DefaultStep
	}
	r := &LogReporter{
		logger:  logger,
		metrics: registry,
		step:    step,
	}
	r.logged.Store(-1)
	return r
}

// Report records fraction, clamped to [0, 1].
func (r *LogReporter) Report(fraction float64) {
	if math.IsNaN(fraction) {
		return
	}
	fraction = min(max(fraction, 0), 1)

	for {
		old := r.current.Load()
		if fraction <= math.Float64frombits(old) && old != 0 {
			return
		}
		if r.current.CompareAndSwap(old, math.Float64bits(fraction)) {
			break
		}
	}

	if r.metrics != nil {
		r.metrics.SetProgress(r.Current())
	}

	index := int64(fraction / r.step)
	for {
		last := r.logged.Load()
		if index <= last {
			return
		}
		if r.logged.CompareAndSwap(last, index) {
			r.logger.Info("progress", logging.Progress(float64(index)*r.step))
			return
		}
	}
}

// Current returns the highest fraction reported so far.
func (r *LogReporter) Current() float64 {
	return math.Float64frombits(r.current.Load())
}

// Reset rewinds the reporter for a new run.
func (r *LogReporter) Reset() {
	r.current.Store(0)
	r.logged.Store(-1)
	if r.metrics != nil {
		r.metrics.SetProgress(0)
	}
}
