package streetnodes

import (
	"github.com/paulmach/orb"
)

// DualNode represents a primal edge in the dual graph.
// Edge is a weak reference: an index into primal graph's arena.
type DualNode struct {
	Key   string
	Point orb.Point
	Live  bool
	Edge  PrimalEdgeID
}

// DualEdge connects two dual nodes whose primal edges share an endpoint
type DualEdge struct {
	Source int
	Target int
	// Length is sum of half lengths of both primal edges
	Length float64
	// Angle is turning angle (degrees, 0..180) at shared primal node
	Angle float64
}

// DualGraph is derived graph where each primal edge becomes a node
type DualGraph struct {
	Primal    *PrimalGraph
	Nodes     []DualNode
	Edges     []DualEdge
	adjacency [][]int
	index     map[string]int
}

// ToDual builds dual graph: one node per primal edge placed at the middle of the edge.
// Adjacency is derived from shared primal endpoints.
func ToDual(primal *PrimalGraph) *DualGraph {
	dual := &DualGraph{
		Primal:    primal,
		Nodes:     make([]DualNode, 0, len(primal.Edges)),
		adjacency: make([][]int, len(primal.Edges)),
		index:     make(map[string]int, len(primal.Edges)),
	}
	for _, edge := range primal.Edges {
		_, middle := findMiddlePoint(edge.Geometry)
		dual.index[edge.Key()] = len(dual.Nodes)
		dual.Nodes = append(dual.Nodes, DualNode{
			Key:   edge.Key(),
			Point: middle,
			Live:  true,
			Edge:  edge.ID,
		})
	}
	pairs := make(map[[2]int]int)
	for _, node := range primal.NodeKeys() {
		ids := primal.incident[node]
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				if ids[i] == ids[j] {
					continue
				}
				a, b := primal.Edges[ids[i]], primal.Edges[ids[j]]
				arriving := reverseLine(a.oriented(node))
				leaving := b.oriented(node)
				headingIn := segmentHeading(arriving[len(arriving)-2], arriving[len(arriving)-1])
				headingOut := segmentHeading(leaving[0], leaving[1])
				dualEdge := DualEdge{
					Source: int(a.ID),
					Target: int(b.ID),
					Length: a.Length()/2 + b.Length()/2,
					Angle:  turnAngle(headingIn, headingOut),
				}
				pair := [2]int{dualEdge.Source, dualEdge.Target}
				// Parallel primal edges share both endpoints: keep the straighter transition
				if existing, ok := pairs[pair]; ok {
					if dualEdge.Angle < dual.Edges[existing].Angle {
						dual.Edges[existing] = dualEdge
					}
					continue
				}
				pairs[pair] = len(dual.Edges)
				dual.Edges = append(dual.Edges, dualEdge)
				dual.adjacency[dualEdge.Source] = append(dual.adjacency[dualEdge.Source], dualEdge.Target)
				dual.adjacency[dualEdge.Target] = append(dual.adjacency[dualEdge.Target], dualEdge.Source)
			}
		}
	}
	return dual
}

// NodeIndex returns position of dual node with given key
func (dual *DualGraph) NodeIndex(key string) (int, bool) {
	idx, ok := dual.index[key]
	return idx, ok
}

// Neighbours returns adjacent dual node positions
func (dual *DualGraph) Neighbours(idx int) []int {
	return dual.adjacency[idx]
}

// NodeKeys returns keys of dual nodes in graph order
func (dual *DualGraph) NodeKeys() []string {
	keys := make([]string, len(dual.Nodes))
	for i := range dual.Nodes {
		keys[i] = dual.Nodes[i].Key
	}
	return keys
}
