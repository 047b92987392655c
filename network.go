package streetnodes

import (
	"sync"

	"github.com/LdDl/ch"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
	"github.com/pkg/errors"
)

// Network is a dual graph prepared for network computations. Implements NetworkStructure
type Network struct {
	keys      []string
	points    []orb.Point
	live      []bool
	weights   []float64
	lengths   []float64
	weighted  bool
	index     map[string]int
	links     map[[2]int]DualEdge
	adjacency [][]neighbour
	tree      *quadtree.Quadtree

	routing    sync.Once
	routingErr error
	metric     *ch.Graph
	angular    *ch.Graph
}

// NodeKeys returns dual node keys in row order
func (network *Network) NodeKeys() []string {
	return network.keys
}

// Weighted returns true when node weights are primal edge lengths
func (network *Network) Weighted() bool {
	return network.weighted
}

// Len returns number of nodes
func (network *Network) Len() int {
	return len(network.keys)
}

// BuildNetwork extracts network structure from dual graph and node table.
// Liveness is read from 'live' column. When weighted, node weight is taken from 'weight' column, otherwise it is 1.
func BuildNetwork(dual *DualGraph, table *NodeTable, weighted bool) (*Network, error) {
	if err := alignedKeys(table, dual.NodeKeys()); err != nil {
		return nil, errors.Wrap(err, "Node table is not aligned with dual graph")
	}
	network := &Network{
		keys:      table.Keys(),
		points:    table.Points(),
		live:      table.liveFlags(),
		weights:   make([]float64, table.Len()),
		lengths:   make([]float64, table.Len()),
		weighted:  weighted,
		index:     make(map[string]int, table.Len()),
		links:     make(map[[2]int]DualEdge, len(dual.Edges)),
		adjacency: make([][]neighbour, table.Len()),
	}
	for i, key := range network.keys {
		network.index[key] = i
	}
	var weightColumn Column
	if weighted {
		column, ok := table.Column(FIELD_WEIGHT)
		if !ok || column.Kind != COLUMN_FLOAT64 {
			return nil, errors.Wrap(ErrMissingReference, "weighted network requires 'weight' column")
		}
		weightColumn = column
	}
	for i, node := range dual.Nodes {
		edge, ok := dual.Primal.Edge(node.Edge)
		if !ok {
			return nil, errors.Wrapf(ErrMissingReference, "dual node '%s' points to primal edge %d", node.Key, node.Edge)
		}
		network.lengths[i] = edge.Length()
		network.weights[i] = 1
		if weighted {
			network.weights[i] = weightColumn.Floats[i]
		}
	}
	for _, link := range dual.Edges {
		key := linkKey(link.Source, link.Target)
		if _, ok := network.links[key]; ok {
			continue
		}
		network.links[key] = link
		network.adjacency[link.Source] = append(network.adjacency[link.Source], neighbour{idx: link.Target, length: link.Length, angle: link.Angle})
		network.adjacency[link.Target] = append(network.adjacency[link.Target], neighbour{idx: link.Source, length: link.Length, angle: link.Angle})
	}
	network.prepareIndex()
	return network, nil
}

func linkKey(a, b int) [2]int {
	if b < a {
		return [2]int{b, a}
	}
	return [2]int{a, b}
}

// networkPoint is a node position stored in the quadtree
type networkPoint struct {
	idx   int
	point orb.Point
}

func (p networkPoint) Point() orb.Point {
	return p.point
}

func (network *Network) prepareIndex() {
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{0, 0}}
	if len(network.points) > 0 {
		bound = network.points[0].Bound()
		for _, pt := range network.points[1:] {
			bound = bound.Extend(pt)
		}
	}
	network.tree = quadtree.New(bound.Pad(1))
	for i, pt := range network.points {
		// Add fails only for points outside of tree's bound
		_ = network.tree.Add(networkPoint{idx: i, point: pt})
	}
}
