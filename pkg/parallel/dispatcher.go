package parallel

import "sync/atomic"

// NodeQueue hands out node ids [0, limit) to concurrent workers, each id once.
// It keeps no record of who claimed what.
type NodeQueue struct {
	next  atomic.Int64
	limit int64
}

// NewNodeQueue creates a queue over [0, limit).
func NewNodeQueue(limit int) *NodeQueue {
	return &NodeQueue{limit: int64(limit)}
}

// Claim returns the next id and whether it is below the limit.
func (q *NodeQueue) Claim() (int, bool) {
	id := q.next.Add(1) - 1
	return int(id), id < q.limit
}

// Reset rewinds the queue to 0.
func (q *NodeQueue) Reset() {
	q.next.Store(0)
}
