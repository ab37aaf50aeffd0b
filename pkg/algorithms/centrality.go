package algorithms

import (
	"container/heap"

	"github.com/dd0wney/cluso-centrality/pkg/graph"
)

// BetweennessCentrality computes exact, unnormalised betweenness centrality
// with a sequential Brandes pass from every node. Scores are indexed by dense
// node id. It is O(VE) and meant for small graphs and for checking
// approximations; use RABrandes for anything large.
//
// For graphs stored with both edge directions every unordered pair is counted
// twice; halve the result to count it once.
func BetweennessCentrality(g graph.Graph) ([]float64, error) {
	n := g.NodeCount()
	centrality := make([]float64, n)
	cursor := g.ConcurrentCursor()

	stack := make([]int, 0, n)
	queue := make([]int, 0, n)
	predecessors := make([][]int, n)
	sigma := make([]float64, n)
	distance := make([]int, n)
	delta := make([]float64, n)

	for source := 0; source < n; source++ {
		stack = stack[:0]
		queue = queue[:0]
		for i := 0; i < n; i++ {
			predecessors[i] = predecessors[i][:0]
			sigma[i] = 0
			distance[i] = -1
			delta[i] = 0
		}

		sigma[source] = 1
		distance[source] = 0
		queue = append(queue, source)

		for head := 0; head < len(queue); head++ {
			v := queue[head]
			stack = append(stack, v)

			err := cursor.ForEachNeighbor(v, func(w int) bool {
				if distance[w] < 0 {
					queue = append(queue, w)
					distance[w] = distance[v] + 1
				}
				if distance[w] == distance[v]+1 {
					sigma[w] += sigma[v]
					predecessors[w] = append(predecessors[w], v)
				}
				return true
			})
			if err != nil {
				return nil, err
			}
		}

		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range predecessors[w] {
				delta[v] += (sigma[v] / sigma[w]) * (1.0 + delta[w])
			}
			if w != source {
				centrality[w] += delta[w]
			}
		}
	}

	return centrality, nil
}

// NormalizeBetweenness scales scores in place into [0, 1] by the number of
// pairs not involving the node: ordered pairs for directed scores, unordered
// pairs for undirected (halved) scores.
func NormalizeBetweenness(scores []float64, undirected bool) {
	n := len(scores)
	if n <= 2 {
		return
	}
	pairs := float64((n - 1) * (n - 2))
	if undirected {
		pairs /= 2
	}
	for i := range scores {
		scores[i] /= pairs
	}
}

// RankedNode represents a node with its score
type RankedNode struct {
	NodeID uint64  `json:"node_id" yaml:"node_id"`
	Score  float64 `json:"score" yaml:"score"`
}

// rankedNodeHeap is a min-heap whose root is the weakest entry: lowest score,
// and on equal scores the highest node id.
type rankedNodeHeap []RankedNode

func (h rankedNodeHeap) Len() int           { return len(h) }
func (h rankedNodeHeap) Less(i, j int) bool { return outranks(h[j], h[i]) }
func (h rankedNodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

// outranks orders by score descending, then node id ascending.
func outranks(a, b RankedNode) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.NodeID < b.NodeID
}

func (h *rankedNodeHeap) Push(x any) {
	*h = append(*h, x.(RankedNode))
}

func (h *rankedNodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// TopNodes returns the n highest dense-indexed scores mapped to original ids.
func TopNodes(g graph.Graph, scores []float64, n int) []RankedNode {
	return findTopNodes(g, scores, n)
}

// findTopNodes returns the top n nodes by score using a min-heap.
func findTopNodes(g graph.Graph, scores []float64, n int) []RankedNode {
	if n <= 0 {
		return nil
	}
	n = min(n, len(scores))

	h := make(rankedNodeHeap, 0, n)
	heap.Init(&h)

	for node, score := range scores {
		rn := RankedNode{
			NodeID: g.ToOriginalNodeID(node),
			Score:  score,
		}

		if h.Len() < n {
			heap.Push(&h, rn)
		} else if outranks(rn, h[0]) {
			heap.Pop(&h)
			heap.Push(&h, rn)
		}
	}

	result := make([]RankedNode, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(RankedNode)
	}

	return result
}
