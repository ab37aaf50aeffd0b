package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-centrality/pkg/algorithms"
	"github.com/dd0wney/cluso-centrality/pkg/graph"
	"github.com/dd0wney/cluso-centrality/pkg/metrics"
)

func main() {
	nodes := flag.Int("nodes", 2000, "Number of nodes to create")
	edges := flag.Int("edges", 8000, "Number of edges to create")
	undirected := flag.Bool("undirected", false, "Store edges in both directions")
	concurrency := flag.Int("concurrency", runtime.NumCPU(), "Number of workers")
	probabilities := flag.String("probabilities", "0.05,0.1,0.25,0.5", "Comma-separated sampling probabilities")
	seed := flag.Uint64("seed", 42, "Seed for graph generation and sampling")
	top := flag.Int("top", 10, "Size of the top-k set compared against the exact ranking")
	flag.Parse()

	if *nodes < 2 {
		log.Fatalf("-nodes must be at least 2, got %d", *nodes)
	}
	ps, err := parseProbabilities(*probabilities)
	if err != nil {
		log.Fatalf("Invalid -probabilities: %v", err)
	}

	fmt.Printf("🔥 Cluso Centrality - Approximate Betweenness Benchmark\n")
	fmt.Printf("======================================================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Nodes: %d\n", *nodes)
	fmt.Printf("  Edges: %d\n", *edges)
	fmt.Printf("  Undirected: %v\n", *undirected)
	fmt.Printf("  Concurrency: %d\n\n", *concurrency)

	fmt.Printf("🔗 Generating random graph...\n")
	start := time.Now()
	g, err := randomGraph(*nodes, *edges, *undirected, *seed)
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}
	fmt.Printf("✅ Built %d nodes, %d relationships in %v\n", g.NodeCount(), g.RelationshipCount(), time.Since(start))

	registry := metrics.NewRegistry()
	ctx := context.Background()

	fmt.Printf("\n📊 Baseline: exact RA-Brandes (all sources)\n")
	start = time.Now()
	exact, err := run(ctx, g, algorithms.NewAllSelection(g.NodeCount()), *undirected, *concurrency, registry)
	if err != nil {
		log.Fatalf("Exact run failed: %v", err)
	}
	baseline := time.Since(start)
	fmt.Printf("✅ Completed in %v\n", baseline)

	fmt.Printf("\n📊 Reference: sequential Brandes\n")
	start = time.Now()
	sequential, err := algorithms.BetweennessCentrality(g)
	if err != nil {
		log.Fatalf("Sequential Brandes failed: %v", err)
	}
	fmt.Printf("✅ Completed in %v\n", time.Since(start))
	divisor := 1.0
	if *undirected {
		divisor = 2.0
	}
	fmt.Printf("  Max deviation from parallel run: %.3e\n", maxDeviation(exact, scaled(sequential, divisor)))

	exactTop := topSet(g, exact, *top)
	for i, p := range ps {
		fmt.Printf("\n📊 Benchmark %d: random selection p=%.2f\n", i+1, p)

		sel, err := algorithms.NewRandomSelection(g.NodeCount(), p, *seed)
		if err != nil {
			log.Fatalf("Selection failed: %v", err)
		}
		if sel.Size() == 0 {
			fmt.Printf("⚠️  No sources selected, skipping\n")
			continue
		}

		start = time.Now()
		approx, err := run(ctx, g, sel, *undirected, *concurrency, registry)
		if err != nil {
			log.Fatalf("Approximate run failed: %v", err)
		}
		duration := time.Since(start)

		fmt.Printf("✅ Completed in %v (%.1fx faster)\n", duration, float64(baseline)/float64(max(duration, time.Microsecond)))
		fmt.Printf("  Sources: %d\n", sel.Size())
		fmt.Printf("  Mean relative error: %.4f\n", meanRelativeError(approx, exact))
		fmt.Printf("  Top-%d overlap: %d/%d\n", *top, overlap(exactTop, topSet(g, approx, *top)), len(exactTop))
	}

	fmt.Printf("\n🎉 Benchmark complete!\n")
}

func parseProbabilities(s string) ([]float64, error) {
	var ps []float64
	for _, field := range strings.Split(s, ",") {
		p, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, nil
}

// randomGraph builds a reproducible random graph without self loops.
func randomGraph(nodes, edges int, undirected bool, seed uint64) (*graph.AdjacencyGraph, error) {
	rng := rand.New(rand.NewPCG(seed, seed))
	b := graph.NewBuilder(graph.BuildOptions{Undirected: undirected, Deduplicate: true})
	for i := 0; i < nodes; i++ {
		b.AddNode(uint64(i))
	}
	for i := 0; i < edges; i++ {
		from := rng.IntN(nodes)
		to := rng.IntN(nodes)
		if from == to {
			to = (to + 1) % nodes
		}
		b.AddEdge(uint64(from), uint64(to))
	}
	return b.Build()
}

func run(ctx context.Context, g graph.Graph, sel algorithms.SelectionStrategy, undirected bool, concurrency int, registry *metrics.Registry) ([]float64, error) {
	e, err := algorithms.NewRABrandes(g, algorithms.RABrandesOptions{
		Concurrency: concurrency,
		Selection:   sel,
		Undirected:  undirected,
		Metrics:     registry,
	})
	if err != nil {
		return nil, err
	}
	defer e.Release()

	if _, err := e.Compute(ctx); err != nil {
		return nil, err
	}
	return e.CentralityScores().Snapshot(), nil
}

func scaled(scores []float64, f float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = s * f
	}
	return out
}

func maxDeviation(a, b []float64) float64 {
	worst := 0.0
	for i := range a {
		worst = math.Max(worst, math.Abs(a[i]-b[i]))
	}
	return worst
}

// meanRelativeError averages |approx-exact|/exact over nodes with a non-zero
// exact score.
func meanRelativeError(approx, exact []float64) float64 {
	sum, n := 0.0, 0
	for i := range exact {
		if exact[i] == 0 {
			continue
		}
		sum += math.Abs(approx[i]-exact[i]) / exact[i]
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func topSet(g graph.Graph, scores []float64, n int) map[uint64]bool {
	set := make(map[uint64]bool, n)
	for _, node := range algorithms.TopNodes(g, scores, n) {
		set[node.NodeID] = true
	}
	return set
}

func overlap(a, b map[uint64]bool) int {
	count := 0
	for id := range a {
		if b[id] {
			count++
		}
	}
	return count
}
