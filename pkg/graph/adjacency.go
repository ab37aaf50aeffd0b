package graph

import "fmt"

// AdjacencyGraph is a compressed sparse row graph. offsets has NodeCount()+1
// entries and targets[offsets[n]:offsets[n+1]] holds the neighbours of n.
type AdjacencyGraph struct {
	offsets     []int
	targets     []int32
	originalIDs []uint64
	dense       map[uint64]int
	undirected  bool
}

// NodeCount returns the number of nodes.
func (g *AdjacencyGraph) NodeCount() int {
	return len(g.originalIDs)
}

// RelationshipCount returns the number of stored (directed) relationships.
// Undirected graphs store every edge twice.
func (g *AdjacencyGraph) RelationshipCount() int {
	return len(g.targets)
}

// Undirected reports whether the graph was built with both edge directions.
func (g *AdjacencyGraph) Undirected() bool {
	return g.undirected
}

// Degree returns the out-degree of node. It panics on out of range ids.
func (g *AdjacencyGraph) Degree(node int) int {
	return g.offsets[node+1] - g.offsets[node]
}

// ToOriginalNodeID maps a dense id to its loaded id.
func (g *AdjacencyGraph) ToOriginalNodeID(node int) uint64 {
	return g.originalIDs[node]
}

// DenseID maps a loaded id back to its dense id.
func (g *AdjacencyGraph) DenseID(original uint64) (int, bool) {
	id, ok := g.dense[original]
	return id, ok
}

// OriginalIDs returns the dense-to-original mapping. Callers must not modify it.
func (g *AdjacencyGraph) OriginalIDs() []uint64 {
	return g.originalIDs
}

// ConcurrentCursor returns a cursor over the shared read-only arrays.
func (g *AdjacencyGraph) ConcurrentCursor() Cursor {
	return &adjacencyCursor{graph: g}
}

type adjacencyCursor struct {
	graph *AdjacencyGraph
}

func (c *adjacencyCursor) ForEachNeighbor(node int, visit func(target int) bool) error {
	g := c.graph
	if node < 0 || node >= len(g.originalIDs) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrNodeOutOfRange, node, len(g.originalIDs))
	}
	for _, target := range g.targets[g.offsets[node]:g.offsets[node+1]] {
		if !visit(int(target)) {
			return nil
		}
	}
	return nil
}
