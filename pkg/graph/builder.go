package graph

import (
	"fmt"
	"slices"
)

// BuildOptions controls how a Builder turns edges into an AdjacencyGraph.
type BuildOptions struct {
	// Undirected stores every edge in both directions.
	Undirected bool
	// Deduplicate drops parallel edges and self loops.
	Deduplicate bool
}

// Builder accumulates nodes and edges keyed by original ids and assigns dense
// ids in insertion order. A Builder is not safe for concurrent use.
type Builder struct {
	opts        BuildOptions
	dense       map[uint64]int
	originalIDs []uint64
	from        []int32
	to          []int32
	err         error
}

// NewBuilder creates an empty builder.
func NewBuilder(opts BuildOptions) *Builder {
	return &Builder{
		opts:  opts,
		dense: make(map[uint64]int),
	}
}

// AddNode registers an original id and returns its dense id. Adding an id twice
// returns the existing dense id.
func (b *Builder) AddNode(original uint64) int {
	if id, ok := b.dense[original]; ok {
		return id
	}
	if len(b.originalIDs) >= MaxNodeCount {
		b.err = fmt.Errorf("%w: %d", ErrGraphTooLarge, MaxNodeCount)
		return -1
	}
	id := len(b.originalIDs)
	b.dense[original] = id
	b.originalIDs = append(b.originalIDs, original)
	return id
}

// AddEdge records a relationship between two original ids, adding the nodes
// if they are unknown.
func (b *Builder) AddEdge(from, to uint64) {
	f := b.AddNode(from)
	t := b.AddNode(to)
	if f < 0 || t < 0 {
		return
	}
	b.from = append(b.from, int32(f))
	b.to = append(b.to, int32(t))
}

// NodeCount returns the number of nodes added so far.
func (b *Builder) NodeCount() int {
	return len(b.originalIDs)
}

// Build produces the CSR graph. The builder should not be reused afterwards.
func (b *Builder) Build() (*AdjacencyGraph, error) {
	if b.err != nil {
		return nil, b.err
	}

	n := len(b.originalIDs)
	offsets := make([]int, n+1)
	count := func(f int32) { offsets[f+1]++ }
	for i := range b.from {
		count(b.from[i])
		if b.opts.Undirected {
			count(b.to[i])
		}
	}
	for i := 0; i < n; i++ {
		offsets[i+1] += offsets[i]
	}

	targets := make([]int32, offsets[n])
	next := make([]int, n)
	copy(next, offsets[:n])
	place := func(f, t int32) {
		targets[next[f]] = t
		next[f]++
	}
	for i := range b.from {
		place(b.from[i], b.to[i])
		if b.opts.Undirected {
			place(b.to[i], b.from[i])
		}
	}

	g := &AdjacencyGraph{
		offsets:     offsets,
		targets:     targets,
		originalIDs: b.originalIDs,
		dense:       b.dense,
		undirected:  b.opts.Undirected,
	}
	if b.opts.Deduplicate {
		g.deduplicate()
	}
	return g, nil
}

// deduplicate sorts each adjacency list and compacts away repeats and self loops.
func (g *AdjacencyGraph) deduplicate() {
	write := 0
	start := 0
	for node := 0; node < len(g.originalIDs); node++ {
		end := g.offsets[node+1]
		list := g.targets[start:end]
		slices.Sort(list)
		g.offsets[node] = write
		prev := int32(-1)
		for _, t := range list {
			if t == prev || int(t) == node {
				continue
			}
			g.targets[write] = t
			write++
			prev = t
		}
		start = end
	}
	g.offsets[len(g.originalIDs)] = write
	g.targets = g.targets[:write:write]
}
