package algorithms

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-centrality/pkg/graph"
	"github.com/dd0wney/cluso-centrality/pkg/logging"
	"github.com/dd0wney/cluso-centrality/pkg/metrics"
	"github.com/dd0wney/cluso-centrality/pkg/parallel"
	"github.com/dd0wney/cluso-centrality/pkg/progress"
)

// AlgorithmRABrandes labels metrics of the randomized approximate Brandes engine.
const AlgorithmRABrandes = "ra-brandes"

// MaxDepthUnbounded disables the hop cutoff.
const MaxDepthUnbounded = math.MaxInt

var (
	// ErrNilGraph is returned when no graph is given.
	ErrNilGraph = errors.New("graph is nil")
	// ErrNilSelection is returned when no selection strategy is given.
	ErrNilSelection = errors.New("selection strategy is nil")
	// ErrInvalidConcurrency is returned for concurrency below one.
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
	// ErrEmptySelection is returned when the selection strategy selects no node.
	ErrEmptySelection = errors.New("selection strategy selects no nodes")
	// ErrReleased is returned by Compute after Release.
	ErrReleased = errors.New("engine has been released")
	// ErrTraversal wraps faults raised by the graph while enumerating neighbours.
	ErrTraversal = errors.New("traversal failed")
	// ErrIncomplete is returned by helpers that cannot hand out partial scores.
	ErrIncomplete = errors.New("computation stopped before all sources were processed")
)

// RABrandesOptions configures a randomized approximate Brandes run.
type RABrandesOptions struct {
	Concurrency int
	Selection   SelectionStrategy
	// Undirected sets the divisor of the scale factor to 2.
	Undirected bool

	Logger   logging.Logger    // defaults to a no-op logger
	Metrics  *metrics.Registry // optional
	Progress progress.Reporter // optional
}

// RABrandes estimates betweenness centrality from a sample of BFS sources
// (Randomized Approximate Brandes, https://arxiv.org/pdf/1702.06087.pdf).
//
// Workers claim source ids from a shared queue, run Brandes' forward BFS and
// backward dependency pass from every selected source, and add the dependency
// scaled by nodeCount*divisor/Size() into a shared lock-free array.
type RABrandes struct {
	graph     graph.Graph
	nodeCount int
	selection SelectionStrategy
	expected  int
	divisor   float64
	maxDepth  int

	nodeQueue  *parallel.NodeQueue
	centrality *parallel.AtomicFloat64Array
	pool       *parallel.WorkerPool
	scratch    []*bfsScratch // indexed by worker, reused across Compute calls

	running   atomic.Bool
	abandoned atomic.Bool
	processed atomic.Int64
	complete  bool
	released  bool

	logger   logging.Logger
	metrics  *metrics.Registry
	progress progress.Reporter
}

// NewRABrandes validates the configuration and prepares an engine. All
// configuration errors are reported here, before any work starts.
func NewRABrandes(g graph.Graph, opts RABrandesOptions) (*RABrandes, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	if opts.Selection == nil {
		return nil, ErrNilSelection
	}
	if opts.Concurrency < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, opts.Concurrency)
	}
	expected := opts.Selection.Size()
	if expected < 1 {
		return nil, ErrEmptySelection
	}

	pool, err := parallel.NewWorkerPool(opts.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConcurrency, err)
	}

	divisor := 1.0
	if opts.Undirected {
		divisor = 2.0
	}

	e := &RABrandes{
		graph:     g,
		nodeCount: g.NodeCount(),
		selection: opts.Selection,
		expected:  expected,
		divisor:   divisor,
		maxDepth:  MaxDepthUnbounded,
		pool:      pool,
		scratch:   make([]*bfsScratch, opts.Concurrency),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		progress:  opts.Progress,
	}
	e.nodeQueue = parallel.NewNodeQueue(e.nodeCount)
	e.centrality = parallel.NewAtomicFloat64Array(e.nodeCount)
	if e.logger == nil {
		e.logger = logging.NewNopLogger()
	}
	if e.progress == nil {
		e.progress = progress.NopReporter{}
	}
	return e, nil
}

// WithMaxDepth sets the maximum number of hops from a source. Negative values
// mean unbounded.
func (e *RABrandes) WithMaxDepth(maxDepth int) *RABrandes {
	if maxDepth < 0 {
		maxDepth = MaxDepthUnbounded
	}
	e.maxDepth = maxDepth
	return e
}

// ScaleFactor returns nodeCount*divisor/Size(), the correction applied to
// every dependency.
func (e *RABrandes) ScaleFactor() float64 {
	return float64(e.nodeCount) * e.divisor / float64(e.expected)
}

// Compute runs the workers to completion and returns the engine for chaining.
//
// Cancelling ctx or calling Terminate stops the workers at their next claim.
// That is not an error: Compute returns nil and Complete reports false, and
// the scores hold whatever had been accumulated. A traversal fault is returned
// once every worker has unwound; contributions already added stay in place.
func (e *RABrandes) Compute(ctx context.Context) (*RABrandes, error) {
	if e.released {
		return e, ErrReleased
	}

	runID := uuid.NewString()
	log := e.logger.With(logging.Component("betweenness"), logging.RunID(runID))
	timer := logging.StartTimer(log, "betweenness computed",
		logging.Operation(AlgorithmRABrandes),
		logging.NodeCount(e.nodeCount),
		logging.Concurrency(e.pool.Workers()),
		logging.Int("sources", e.expected),
	)

	e.nodeQueue.Reset()
	e.centrality.Reset()
	e.abandoned.Store(false)
	e.processed.Store(0)
	e.complete = false
	e.running.Store(true)
	if e.metrics != nil {
		e.metrics.SetScaleFactor(e.ScaleFactor())
	}

	if err := ctx.Err(); err != nil {
		e.running.Store(false)
		e.finish(log, timer, metrics.StatusCancelled)
		return e, nil
	}

	stop := context.AfterFunc(ctx, func() {
		log.Debug("stop requested", logging.Int("active_workers", e.pool.Active()))
		e.Terminate()
	})
	defer stop()

	log.Debug("starting workers", logging.Float64("scale_factor", e.ScaleFactor()))
	err := e.pool.Run(ctx, e.runWorker)
	e.running.Store(false)

	switch {
	case err != nil:
		elapsed := timer.EndError(err, logging.Count(int(e.processed.Load())))
		if e.metrics != nil {
			e.metrics.RecordRun(AlgorithmRABrandes, metrics.StatusFailed, elapsed)
		}
		return e, err
	case e.abandoned.Load():
		e.finish(log, timer, metrics.StatusCancelled)
	default:
		e.complete = true
		e.progress.Report(1)
		e.finish(log, timer, metrics.StatusCompleted)
	}
	return e, nil
}

func (e *RABrandes) finish(log logging.Logger, timer *logging.TimedOperation, status string) {
	var elapsed time.Duration
	sources := logging.Count(int(e.processed.Load()))
	if status == metrics.StatusCompleted {
		elapsed = timer.End(sources)
	} else {
		elapsed = timer.EndWarn("betweenness cancelled, scores are partial", sources)
	}
	if e.metrics != nil {
		e.metrics.RecordRun(AlgorithmRABrandes, status, elapsed)
	}
}

// runWorker claims source ids until the queue is exhausted or the run stops.
func (e *RABrandes) runWorker(_ context.Context, worker int) error {
	scratch := e.scratch[worker]
	if scratch == nil {
		scratch = newBFSScratch(e.nodeCount)
		e.scratch[worker] = scratch
	}
	cursor := e.graph.ConcurrentCursor()
	f := e.ScaleFactor()

	processed, skipped := 0, 0
	scratch.relationships = 0
	defer func() { e.processed.Add(int64(processed)) }()
	if e.metrics != nil {
		e.metrics.WorkerStarted()
		defer func() {
			e.metrics.WorkerStopped()
			e.metrics.RecordSources(processed, skipped)
			e.metrics.RecordRelationships(scratch.relationships)
		}()
	}

	for {
		source, ok := e.nodeQueue.Claim()
		if !ok {
			return nil
		}
		if !e.running.Load() {
			e.abandoned.Store(true)
			return nil
		}
		if !e.selection.Select(source) {
			skipped++
			continue
		}

		e.reportProgress(source)
		if err := scratch.forward(cursor, source, e.maxDepth); err != nil {
			e.running.Store(false)
			return fmt.Errorf("%w: source %d: %w", ErrTraversal, source, err)
		}
		scratch.backward(source, f, e.centrality)
		processed++
	}
}

func (e *RABrandes) reportProgress(source int) {
	if e.nodeCount <= 1 {
		e.progress.Report(1)
		return
	}
	e.progress.Report(float64(source) / float64(e.nodeCount-1))
}

// Terminate asks running workers to stop at their next claim. It is safe to
// call from any goroutine.
func (e *RABrandes) Terminate() {
	e.running.Store(false)
}

// Complete reports whether the last Compute processed every selected source.
func (e *RABrandes) Complete() bool {
	return e.complete
}

// CentralityScores returns the shared accumulator, one cell per dense node id.
func (e *RABrandes) CentralityScores() *parallel.AtomicFloat64Array {
	return e.centrality
}

// NormalizedScores returns a copy of the scores with the divisor removed and
// scaled by the number of ordered pairs, so exact runs land in [0, 1].
func (e *RABrandes) NormalizedScores() []float64 {
	scores := e.centrality.Snapshot()
	for i := range scores {
		scores[i] /= e.divisor
	}
	NormalizeBetweenness(scores, false)
	return scores
}

// Results yields (original node id, score) pairs in dense id order. The
// sequence is lazy and can be iterated any number of times.
func (e *RABrandes) Results() iter.Seq2[uint64, float64] {
	return func(yield func(uint64, float64) bool) {
		for node := 0; node < e.nodeCount; node++ {
			if !yield(e.graph.ToOriginalNodeID(node), e.centrality.Get(node)) {
				return
			}
		}
	}
}

// TopNodes returns the n highest scoring nodes, best first.
func (e *RABrandes) TopNodes(n int) []RankedNode {
	return findTopNodes(e.graph, e.centrality.Snapshot(), n)
}

// Release drops the selection strategy and the worker scratch buffers. Scores
// and Results remain readable; Compute returns ErrReleased afterwards.
func (e *RABrandes) Release() {
	e.released = true
	e.selection = nil
	e.scratch = nil
}

// ApproximateBetweenness runs a single unbounded RABrandes computation and
// returns scores keyed by original node id.
func ApproximateBetweenness(ctx context.Context, g graph.Graph, opts RABrandesOptions) (map[uint64]float64, error) {
	e, err := NewRABrandes(g, opts)
	if err != nil {
		return nil, err
	}
	defer e.Release()

	if _, err := e.Compute(ctx); err != nil {
		return nil, err
	}
	if !e.Complete() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIncomplete, err)
		}
		return nil, ErrIncomplete
	}

	scores := make(map[uint64]float64, e.nodeCount)
	for id, score := range e.Results() {
		scores[id] = score
	}
	return scores, nil
}
