package algorithms

import (
	"errors"
	"fmt"
	"math/bits"
	"math/rand/v2"

	"github.com/dd0wney/cluso-centrality/pkg/graph"
)

var (
	// ErrInvalidProbability is returned for sampling probabilities outside (0, 1].
	ErrInvalidProbability = errors.New("selection probability must be in (0, 1]")
	// ErrInvalidSourceID is returned when an explicit source is not a node of the graph.
	ErrInvalidSourceID = errors.New("source node id out of range")
)

// SelectionStrategy decides which nodes act as BFS sources.
//
// Select must be a pure function of the node id so workers can call it
// concurrently. Size is the number of nodes for which Select returns true and
// is read once, when the engine is created.
type SelectionStrategy interface {
	Select(node int) bool
	Size() int
}

// AllSelection selects every node, which makes the approximation exact.
type AllSelection struct {
	nodeCount int
}

// NewAllSelection selects every node of a graph with nodeCount nodes.
func NewAllSelection(nodeCount int) AllSelection {
	return AllSelection{nodeCount: nodeCount}
}

func (s AllSelection) Select(node int) bool { return node >= 0 && node < s.nodeCount }
func (s AllSelection) Size() int            { return s.nodeCount }

// nodeSet is a fixed bitset over dense node ids.
type nodeSet struct {
	words     []uint64
	nodeCount int
	size      int
}

func newNodeSet(nodeCount int) nodeSet {
	return nodeSet{
		words:     make([]uint64, (nodeCount+63)/64),
		nodeCount: nodeCount,
	}
}

func (s *nodeSet) add(node int) {
	word, bit := node/64, uint(node%64)
	if s.words[word]&(1<<bit) == 0 {
		s.words[word] |= 1 << bit
		s.size++
	}
}

func (s *nodeSet) Select(node int) bool {
	if node < 0 || node >= s.nodeCount {
		return false
	}
	return s.words[node/64]&(1<<uint(node%64)) != 0
}

func (s *nodeSet) Size() int { return s.size }

// Nodes returns the selected ids in ascending order.
func (s *nodeSet) Nodes() []int {
	out := make([]int, 0, s.size)
	for w, word := range s.words {
		for word != 0 {
			tz := bits.TrailingZeros64(word)
			out = append(out, w*64+tz)
			word &= word - 1
		}
	}
	return out
}

// newSeededRand returns a deterministic generator for a seed.
func newSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RandomSelection picks every node independently with a fixed probability.
// The choice is drawn once at construction so Select stays pure; the same seed
// reproduces the same pivots.
type RandomSelection struct {
	nodeSet
	probability float64
	seed        uint64
}

// NewRandomSelection samples pivots among nodeCount nodes.
func NewRandomSelection(nodeCount int, probability float64, seed uint64) (*RandomSelection, error) {
	if !(probability > 0 && probability <= 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidProbability, probability)
	}

	s := &RandomSelection{
		nodeSet:     newNodeSet(nodeCount),
		probability: probability,
		seed:        seed,
	}
	rng := newSeededRand(seed)
	for node := 0; node < nodeCount; node++ {
		if rng.Float64() < probability {
			s.add(node)
		}
	}
	return s, nil
}

// Probability returns the configured sampling probability.
func (s *RandomSelection) Probability() float64 { return s.probability }

// DegreeSelection samples pivots with a probability proportional to their
// out-degree: a node of average degree is picked with the configured
// probability, busier nodes more often (capped at 1) and nodes without
// outgoing relationships never, since a BFS from them reaches nothing.
//
// The scale factor still assumes uniform sampling, so scores are biased
// towards the neighbourhoods of high-degree pivots.
type DegreeSelection struct {
	nodeSet
	probability float64
	seed        uint64
}

// NewDegreeSelection samples pivots from g using out-degrees.
func NewDegreeSelection(g graph.Graph, probability float64, seed uint64) (*DegreeSelection, error) {
	if !(probability > 0 && probability <= 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidProbability, probability)
	}

	nodeCount := g.NodeCount()
	degrees := make([]int, nodeCount)
	total := 0
	for node := 0; node < nodeCount; node++ {
		d, err := graph.Degree(g, node)
		if err != nil {
			return nil, fmt.Errorf("degree of node %d: %w", node, err)
		}
		degrees[node] = d
		total += d
	}

	s := &DegreeSelection{
		nodeSet:     newNodeSet(nodeCount),
		probability: probability,
		seed:        seed,
	}
	if total == 0 {
		return s, nil
	}

	mean := float64(total) / float64(nodeCount)
	rng := newSeededRand(seed)
	for node, d := range degrees {
		p := min(1, probability*float64(d)/mean)
		if d > 0 && rng.Float64() < p {
			s.add(node)
		}
	}
	return s, nil
}

// IDSelection selects an explicit set of dense node ids.
type IDSelection struct {
	nodeSet
}

// NewIDSelection selects ids among nodeCount nodes. Duplicates count once.
func NewIDSelection(nodeCount int, ids []int) (*IDSelection, error) {
	s := &IDSelection{nodeSet: newNodeSet(nodeCount)}
	for _, id := range ids {
		if id < 0 || id >= nodeCount {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidSourceID, id, nodeCount)
		}
		s.add(id)
	}
	return s, nil
}
