package algorithms

import (
	"github.com/dd0wney/cluso-centrality/pkg/graph"
	"github.com/dd0wney/cluso-centrality/pkg/parallel"
)

// queueEntry is a node waiting in the forward BFS together with its depth.
type queueEntry struct {
	node  int32
	depth int32
}

// bfsScratch is the private state of one worker. It is allocated once and
// cleared between sources, never shared between goroutines.
//
// Shortest-path counts are uint64. Their growth is multiplicative in dense
// graphs, so on very large, dense inputs sigma can overflow; this is an
// accepted limit of the approximation.
type bfsScratch struct {
	distance     []int32 // -1 = not yet reached from the current source
	sigma        []uint64
	delta        []float64
	predecessors [][]int32

	// queue is consumed by index and keeps every node discovered from the
	// current source, which is exactly the set reset must clear.
	queue      []queueEntry
	visitOrder []int32

	relationships int64
}

func newBFSScratch(nodeCount int) *bfsScratch {
	s := &bfsScratch{
		distance:     make([]int32, nodeCount),
		sigma:        make([]uint64, nodeCount),
		delta:        make([]float64, nodeCount),
		predecessors: make([][]int32, nodeCount),
	}
	for i := range s.distance {
		s.distance[i] = -1
	}
	return s
}

// reset clears everything the previous source touched.
func (s *bfsScratch) reset() {
	for _, e := range s.queue {
		n := e.node
		s.distance[n] = -1
		s.sigma[n] = 0
		s.delta[n] = 0
		s.predecessors[n] = s.predecessors[n][:0]
	}
	s.queue = s.queue[:0]
	s.visitOrder = s.visitOrder[:0]
}

// forward runs the level-order BFS from source counting shortest paths.
// Nodes dequeued with depth-1 > maxDepth are dropped without being expanded
// or recorded in the visit order.
func (s *bfsScratch) forward(cursor graph.Cursor, source, maxDepth int) error {
	s.reset()
	s.distance[source] = 0
	s.sigma[source] = 1
	s.queue = append(s.queue, queueEntry{node: int32(source)})

	var (
		node     int32
		depth    int32
		nextDist int32
	)
	visit := func(t int) bool {
		target := int32(t)
		s.relationships++
		if s.distance[target] < 0 {
			s.queue = append(s.queue, queueEntry{node: target, depth: depth + 1})
			s.distance[target] = nextDist
		}
		// Not an else branch: distance may have been set just above
		if s.distance[target] == nextDist {
			s.sigma[target] += s.sigma[node]
			s.predecessors[target] = append(s.predecessors[target], node)
		}
		return true
	}

	for head := 0; head < len(s.queue); head++ {
		node, depth = s.queue[head].node, s.queue[head].depth
		if int(depth)-1 > maxDepth {
			continue
		}
		s.visitOrder = append(s.visitOrder, node)
		nextDist = s.distance[node] + 1
		if err := cursor.ForEachNeighbor(int(node), visit); err != nil {
			return err
		}
	}
	return nil
}

// backward pops the visit order, accumulating dependencies and adding
// f*delta of every node except the source into centrality.
func (s *bfsScratch) backward(source int, f float64, centrality *parallel.AtomicFloat64Array) {
	for i := len(s.visitOrder) - 1; i >= 0; i-- {
		node := s.visitOrder[i]
		sigmaNode := float64(s.sigma[node])
		deltaNode := s.delta[node]
		for _, p := range s.predecessors[node] {
			s.delta[p] += float64(s.sigma[p]) / sigmaNode * (1.0 + deltaNode)
		}
		if int(node) != source && deltaNode != 0 {
			centrality.Add(int(node), f*deltaNode)
		}
	}
}
