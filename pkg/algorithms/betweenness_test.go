package algorithms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/dd0wney/cluso-centrality/pkg/graph"
	"github.com/dd0wney/cluso-centrality/pkg/logging"
	"github.com/dd0wney/cluso-centrality/pkg/metrics"
	"github.com/dd0wney/cluso-centrality/pkg/progress"
)

// hookGraph runs onVisit before every neighbour enumeration.
type hookGraph struct {
	graph.Graph
	onVisit func(node int) error
}

func (g hookGraph) ConcurrentCursor() graph.Cursor {
	return hookCursor{inner: g.Graph.ConcurrentCursor(), onVisit: g.onVisit}
}

type hookCursor struct {
	inner   graph.Cursor
	onVisit func(node int) error
}

func (c hookCursor) ForEachNeighbor(node int, visit func(target int) bool) error {
	if err := c.onVisit(node); err != nil {
		return err
	}
	return c.inner.ForEachNeighbor(node, visit)
}

// randomTestGraph builds a reproducible Erdos-Renyi style graph.
func randomTestGraph(t testing.TB, nodeCount int, density float64, undirected bool, seed uint64) *graph.AdjacencyGraph {
	t.Helper()

	rng := rand.New(rand.NewPCG(seed, seed+1))
	b := graph.NewBuilder(graph.BuildOptions{Undirected: undirected, Deduplicate: true})
	for i := 0; i < nodeCount; i++ {
		b.AddNode(uint64(i))
	}
	for from := 0; from < nodeCount; from++ {
		start := 0
		if undirected {
			start = from + 1
		}
		for to := start; to < nodeCount; to++ {
			if from != to && rng.Float64() < density {
				b.AddEdge(uint64(from), uint64(to))
			}
		}
	}
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	return g
}

func newTestEngine(t *testing.T, g graph.Graph, opts RABrandesOptions) *RABrandes {
	t.Helper()
	if opts.Selection == nil {
		opts.Selection = NewAllSelection(g.NodeCount())
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 4
	}
	e, err := NewRABrandes(g, opts)
	if err != nil {
		t.Fatalf("NewRABrandes failed: %v", err)
	}
	return e
}

func computeScores(t *testing.T, e *RABrandes) []float64 {
	t.Helper()
	if _, err := e.Compute(context.Background()); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if !e.Complete() {
		t.Fatal("Expected computation to complete")
	}
	return e.CentralityScores().Snapshot()
}

func TestRABrandes_AllSelectionIsExact(t *testing.T) {
	tests := []struct {
		name string
		g    *graph.AdjacencyGraph
	}{
		{"path", buildTestGraph(t, 6, false, pathEdges(6)...)},
		{"cycle", buildTestGraph(t, 3, false, [2]uint64{0, 1}, [2]uint64{1, 2}, [2]uint64{2, 0})},
		{"diamond", buildTestGraph(t, 4, false,
			[2]uint64{0, 1}, [2]uint64{0, 2}, [2]uint64{1, 3}, [2]uint64{2, 3})},
		{"random", randomTestGraph(t, 40, 0.1, false, 7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exact, err := BetweennessCentrality(tt.g)
			if err != nil {
				t.Fatalf("BetweennessCentrality failed: %v", err)
			}
			for _, workers := range []int{1, 3, 8} {
				e := newTestEngine(t, tt.g, RABrandesOptions{Concurrency: workers})
				assertScores(t, computeScores(t, e), exact)
			}
		})
	}
}

func TestRABrandes_LinearChain(t *testing.T) {
	g := buildTestGraph(t, 3, false, pathEdges(3)...)
	e := newTestEngine(t, g, RABrandesOptions{Concurrency: 2})

	assertScores(t, computeScores(t, e), []float64{0, 1, 0})
}

// TestRABrandes_UndirectedDivisor checks that undirected runs scale every
// contribution by the divisor on top of the sampling correction.
func TestRABrandes_UndirectedDivisor(t *testing.T) {
	g := randomTestGraph(t, 30, 0.15, true, 11)

	exact, err := BetweennessCentrality(g)
	if err != nil {
		t.Fatalf("BetweennessCentrality failed: %v", err)
	}
	directed := computeScores(t, newTestEngine(t, g, RABrandesOptions{}))
	assertScores(t, directed, exact)

	undirected := computeScores(t, newTestEngine(t, g, RABrandesOptions{Undirected: true}))
	for i := range directed {
		directed[i] *= 2
	}
	assertScores(t, undirected, directed)
}

func TestRABrandes_UndirectedStar(t *testing.T) {
	g := buildTestGraph(t, 5, true,
		[2]uint64{0, 1}, [2]uint64{0, 2}, [2]uint64{0, 3}, [2]uint64{0, 4})
	e := newTestEngine(t, g, RABrandesOptions{Undirected: true})

	// 12 ordered leaf pairs through the hub, scaled by 5*2/5
	assertScores(t, computeScores(t, e), []float64{24, 0, 0, 0, 0})
}

func TestRABrandes_NormalizedScores(t *testing.T) {
	path := newTestEngine(t, buildTestGraph(t, 3, false, pathEdges(3)...), RABrandesOptions{})
	computeScores(t, path)
	assertScores(t, path.NormalizedScores(), []float64{0, 0.5, 0})

	star := newTestEngine(t, buildTestGraph(t, 5, true,
		[2]uint64{0, 1}, [2]uint64{0, 2}, [2]uint64{0, 3}, [2]uint64{0, 4}),
		RABrandesOptions{Undirected: true})
	computeScores(t, star)
	assertScores(t, star.NormalizedScores(), []float64{1, 0, 0, 0, 0})

	// Raw scores are left untouched
	assertScores(t, star.CentralityScores().Snapshot(), []float64{24, 0, 0, 0, 0})
}

func TestRABrandes_MaxDepth(t *testing.T) {
	g := buildTestGraph(t, 4, false, pathEdges(4)...)

	tests := []struct {
		name     string
		maxDepth int
		want     []float64
	}{
		{"zero", 0, []float64{0, 0, 0, 0}},
		{"one", 1, []float64{0, 1, 1, 0}},
		{"large", 10, []float64{0, 2, 2, 0}},
		{"negative is unbounded", -1, []float64{0, 2, 2, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, g, RABrandesOptions{Concurrency: 2}).WithMaxDepth(tt.maxDepth)
			assertScores(t, computeScores(t, e), tt.want)
		})
	}
}

func TestRABrandes_ScaleFactor(t *testing.T) {
	g := buildTestGraph(t, 10, false, pathEdges(10)...)

	sel, err := NewIDSelection(10, []int{0, 1})
	if err != nil {
		t.Fatalf("NewIDSelection failed: %v", err)
	}

	directed := newTestEngine(t, g, RABrandesOptions{Selection: sel})
	if f := directed.ScaleFactor(); f != 5 {
		t.Errorf("Expected directed scale factor 5, got %f", f)
	}
	undirected := newTestEngine(t, g, RABrandesOptions{Selection: sel, Undirected: true})
	if f := undirected.ScaleFactor(); f != 10 {
		t.Errorf("Expected undirected scale factor 10, got %f", f)
	}
}

// TestRABrandes_SingleSourceIsScaledDependency checks that one pivot
// contributes nodeCount times its dependency vector.
func TestRABrandes_SingleSourceIsScaledDependency(t *testing.T) {
	g := buildTestGraph(t, 4, false, pathEdges(4)...)

	sel, err := NewIDSelection(4, []int{0})
	if err != nil {
		t.Fatalf("NewIDSelection failed: %v", err)
	}
	e := newTestEngine(t, g, RABrandesOptions{Selection: sel})

	// From node 0: delta(1) = 2, delta(2) = 1
	assertScores(t, computeScores(t, e), []float64{0, 8, 4, 0})
}

func TestRABrandes_DeterministicAcrossWorkerCounts(t *testing.T) {
	g := randomTestGraph(t, 60, 0.08, false, 3)
	sel, err := NewRandomSelection(g.NodeCount(), 0.5, 42)
	if err != nil {
		t.Fatalf("NewRandomSelection failed: %v", err)
	}

	baseline := computeScores(t, newTestEngine(t, g, RABrandesOptions{Concurrency: 1, Selection: sel}))
	for _, workers := range []int{2, 5, 16} {
		got := computeScores(t, newTestEngine(t, g, RABrandesOptions{Concurrency: workers, Selection: sel}))
		assertScores(t, got, baseline)
	}
}

func TestRABrandes_ComputeIsRepeatable(t *testing.T) {
	g := randomTestGraph(t, 25, 0.2, false, 5)
	e := newTestEngine(t, g, RABrandesOptions{})

	first := computeScores(t, e)
	second := computeScores(t, e)
	assertScores(t, second, first)
}

func TestNewRABrandes_ConfigurationErrors(t *testing.T) {
	g := buildTestGraph(t, 3, false, pathEdges(3)...)
	empty, _ := NewIDSelection(3, nil)

	tests := []struct {
		name string
		g    graph.Graph
		opts RABrandesOptions
		want error
	}{
		{"nil graph", nil, RABrandesOptions{Concurrency: 1, Selection: NewAllSelection(3)}, ErrNilGraph},
		{"nil selection", g, RABrandesOptions{Concurrency: 1}, ErrNilSelection},
		{"zero concurrency", g, RABrandesOptions{Selection: NewAllSelection(3)}, ErrInvalidConcurrency},
		{"negative concurrency", g, RABrandesOptions{Concurrency: -2, Selection: NewAllSelection(3)}, ErrInvalidConcurrency},
		{"empty selection", g, RABrandesOptions{Concurrency: 1, Selection: empty}, ErrEmptySelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewRABrandes(tt.g, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if e != nil {
				t.Error("Expected nil engine on error")
			}
		})
	}
}

func TestRABrandes_PreCancelledContext(t *testing.T) {
	g := buildTestGraph(t, 5, false, pathEdges(5)...)
	e := newTestEngine(t, g, RABrandesOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Compute(ctx); err != nil {
		t.Fatalf("Cancellation should not be an error, got %v", err)
	}
	if e.Complete() {
		t.Error("Expected incomplete computation")
	}
	for i, score := range e.CentralityScores().Snapshot() {
		if score != 0 {
			t.Errorf("Node %d: expected no contribution, got %f", i, score)
		}
	}
}

func TestRABrandes_TerminateStopsWorkers(t *testing.T) {
	base := buildTestGraph(t, 10, false, pathEdges(10)...)

	var e *RABrandes
	visits := 0
	g := hookGraph{Graph: base, onVisit: func(int) error {
		visits++
		if visits == 1 {
			e.Terminate()
		}
		return nil
	}}
	e = newTestEngine(t, g, RABrandesOptions{Concurrency: 1})

	if _, err := e.Compute(context.Background()); err != nil {
		t.Fatalf("Terminate should not be an error, got %v", err)
	}
	if e.Complete() {
		t.Error("Expected incomplete computation after Terminate")
	}

	// Source 0 finished before the worker saw the flag
	scores := e.CentralityScores().Snapshot()
	if scores[1] != 8 {
		t.Errorf("Expected partial score 8 for node 1, got %f", scores[1])
	}
	if scores[2] != 7 {
		t.Errorf("Expected partial score 7 for node 2, got %f", scores[2])
	}
}

func TestRABrandes_TraversalFault(t *testing.T) {
	errBoom := errors.New("boom")
	base := buildTestGraph(t, 10, false, pathEdges(10)...)
	g := hookGraph{Graph: base, onVisit: func(node int) error {
		if node == 3 {
			return errBoom
		}
		return nil
	}}
	e := newTestEngine(t, g, RABrandesOptions{Concurrency: 3})

	_, err := e.Compute(context.Background())
	if !errors.Is(err, ErrTraversal) {
		t.Errorf("Expected ErrTraversal, got %v", err)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("Expected wrapped cursor error, got %v", err)
	}
	if e.Complete() {
		t.Error("Expected incomplete computation after fault")
	}
}

func TestRABrandes_Release(t *testing.T) {
	g := buildTestGraph(t, 3, false, pathEdges(3)...)
	e := newTestEngine(t, g, RABrandesOptions{})
	computeScores(t, e)

	e.Release()

	if _, err := e.Compute(context.Background()); !errors.Is(err, ErrReleased) {
		t.Errorf("Expected ErrReleased, got %v", err)
	}
	got := map[uint64]float64{}
	for id, score := range e.Results() {
		got[id] = score
	}
	if got[1] != 1 {
		t.Errorf("Expected results to survive Release, got %v", got)
	}
}

func TestRABrandes_ResultsUseOriginalIDs(t *testing.T) {
	b := graph.NewBuilder(graph.BuildOptions{})
	b.AddEdge(100, 200)
	b.AddEdge(200, 300)
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	e := newTestEngine(t, g, RABrandesOptions{})
	computeScores(t, e)

	collect := func() map[uint64]float64 {
		out := map[uint64]float64{}
		for id, score := range e.Results() {
			out[id] = score
		}
		return out
	}

	first := collect()
	second := collect()
	want := map[uint64]float64{100: 0, 200: 1, 300: 0}
	for id, score := range want {
		if first[id] != score || second[id] != score {
			t.Errorf("Node %d: expected %f, got %f then %f", id, score, first[id], second[id])
		}
	}
	if len(first) != 3 || len(second) != 3 {
		t.Errorf("Expected 3 results per iteration, got %d and %d", len(first), len(second))
	}

	stopped := 0
	for range e.Results() {
		stopped++
		break
	}
	if stopped != 1 {
		t.Errorf("Expected early break to be honoured")
	}

	top := e.TopNodes(1)
	if len(top) != 1 || top[0].NodeID != 200 {
		t.Errorf("Expected node 200 on top, got %v", top)
	}
}

func TestApproximateBetweenness(t *testing.T) {
	g := buildTestGraph(t, 3, false, pathEdges(3)...)

	scores, err := ApproximateBetweenness(context.Background(), g, RABrandesOptions{
		Concurrency: 2,
		Selection:   NewAllSelection(3),
	})
	if err != nil {
		t.Fatalf("ApproximateBetweenness failed: %v", err)
	}
	if scores[1] != 1 || scores[0] != 0 || scores[2] != 0 {
		t.Errorf("Unexpected scores %v", scores)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scores, err = ApproximateBetweenness(ctx, g, RABrandesOptions{
		Concurrency: 2,
		Selection:   NewAllSelection(3),
	})
	if !errors.Is(err, ErrIncomplete) || !errors.Is(err, context.Canceled) {
		t.Errorf("Expected ErrIncomplete wrapping context.Canceled, got %v", err)
	}
	if scores != nil {
		t.Errorf("Expected no scores for incomplete run, got %v", scores)
	}
}

func TestRABrandes_Instrumentation(t *testing.T) {
	g := buildTestGraph(t, 6, false, pathEdges(6)...)
	registry := metrics.NewRegistry()
	reporter := progress.NewLogReporter(logging.NewNopLogger(), registry, progress.DefaultStep)

	sel, err := NewIDSelection(6, []int{0, 2, 4})
	if err != nil {
		t.Fatalf("NewIDSelection failed: %v", err)
	}
	e := newTestEngine(t, g, RABrandesOptions{
		Concurrency: 2,
		Selection:   sel,
		Metrics:     registry,
		Progress:    reporter,
	})
	computeScores(t, e)

	counter := func(c prometheus.Counter) float64 {
		var m dto.Metric
		if err := c.Write(&m); err != nil {
			t.Fatalf("Failed to write metric: %v", err)
		}
		return m.Counter.GetValue()
	}

	completed, err := registry.CentralityRunsTotal.GetMetricWithLabelValues(AlgorithmRABrandes, metrics.StatusCompleted)
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := counter(completed); got != 1 {
		t.Errorf("Expected 1 completed run, got %v", got)
	}
	if got := counter(registry.CentralitySourcesTotal); got != 3 {
		t.Errorf("Expected 3 processed sources, got %v", got)
	}
	if got := counter(registry.CentralitySkippedTotal); got != 3 {
		t.Errorf("Expected 3 skipped sources, got %v", got)
	}
	// Sources 0, 2 and 4 enumerate 5, 3 and 1 nodes of the path
	if got := counter(registry.CentralityRelationships); got != 9 {
		t.Errorf("Expected 9 relationships visited, got %v", got)
	}
	if got := reporter.Current(); math.Abs(got-1) > scoreTolerance {
		t.Errorf("Expected progress 1, got %f", got)
	}
}

func TestRABrandes_RunLogSummarisesSources(t *testing.T) {
	g := buildTestGraph(t, 4, false, pathEdges(4)...)
	sel, err := NewIDSelection(4, []int{0, 2})
	if err != nil {
		t.Fatalf("NewIDSelection failed: %v", err)
	}

	var buf bytes.Buffer
	e := newTestEngine(t, g, RABrandesOptions{
		Concurrency: 3,
		Selection:   sel,
		Logger:      logging.NewLogger(&buf, "info"),
	})
	if _, err := e.Compute(context.Background()); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry logging.LogEntry
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("Failed to decode log line: %v", err)
	}
	if entry.Message != "betweenness computed" {
		t.Fatalf("Expected completion entry, got %q", entry.Message)
	}
	if entry.Fields["operation"] != AlgorithmRABrandes {
		t.Errorf("operation = %v, want %s", entry.Fields["operation"], AlgorithmRABrandes)
	}
	if entry.Fields["concurrency"] != float64(3) {
		t.Errorf("concurrency = %v, want 3", entry.Fields["concurrency"])
	}
	if entry.Fields["count"] != float64(2) {
		t.Errorf("count = %v, want 2 processed sources", entry.Fields["count"])
	}
}
