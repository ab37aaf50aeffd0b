// Package graph defines the read-only adjacency view consumed by the centrality
// algorithms, along with an in-memory implementation and edge-list loaders.
package graph

import "errors"

var (
	// ErrNodeOutOfRange is returned when a dense node id is outside [0, NodeCount).
	ErrNodeOutOfRange = errors.New("node id out of range")
	// ErrMalformedEdge is returned by loaders for unparseable edge records.
	ErrMalformedEdge = errors.New("malformed edge record")
	// ErrGraphTooLarge is returned when a graph does not fit dense int32 ids.
	ErrGraphTooLarge = errors.New("graph exceeds maximum node count")
)

// MaxNodeCount is the largest number of nodes a graph may hold.
const MaxNodeCount = 1<<31 - 1

// Graph is an immutable, concurrently shareable adjacency view.
// Node ids are dense integers in [0, NodeCount).
type Graph interface {
	// NodeCount returns the number of nodes.
	NodeCount() int
	// ConcurrentCursor returns a traversal cursor owned by a single goroutine.
	// Cursors never share iteration state with each other.
	ConcurrentCursor() Cursor
	// ToOriginalNodeID maps a dense id back to the id it was loaded with.
	ToOriginalNodeID(node int) uint64
}

// Cursor enumerates relationships of a node.
type Cursor interface {
	// ForEachNeighbor calls visit for every outgoing target of node, in
	// unspecified order, until visit returns false.
	ForEachNeighbor(node int, visit func(target int) bool) error
}

// Degrees is implemented by graphs that know their out-degrees without a traversal.
type Degrees interface {
	Degree(node int) int
}

// Degree returns the out-degree of node, using Degrees when g supports it and
// counting neighbours with a fresh cursor otherwise.
func Degree(g Graph, node int) (int, error) {
	if d, ok := g.(Degrees); ok {
		if node < 0 || node >= g.NodeCount() {
			return 0, ErrNodeOutOfRange
		}
		return d.Degree(node), nil
	}
	count := 0
	err := g.ConcurrentCursor().ForEachNeighbor(node, func(int) bool {
		count++
		return true
	})
	return count, err
}
