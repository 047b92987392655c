package streetnodes

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	// DEFAULT_KEY_PRECISION is number of decimals used for snapping endpoints into primal node keys
	DEFAULT_KEY_PRECISION = 3
)

// PrimalEdgeID is an index into primal graph's edge arena
type PrimalEdgeID int

// PrimalEdge is a cleaned street segment. Immutable once produced.
type PrimalEdge struct {
	ID       PrimalEdgeID
	Source   string
	Target   string
	Index    int
	Geometry orb.LineString
}

// Key returns composite identity of the edge: <a>_<b>_k<idx>
func (edge PrimalEdge) Key() string {
	return fmt.Sprintf("%s_%s_k%d", edge.Source, edge.Target, edge.Index)
}

// Length returns planar length of the edge geometry
func (edge PrimalEdge) Length() float64 {
	return getLength(edge.Geometry)
}

// oriented returns edge geometry so it starts at given node
func (edge PrimalEdge) oriented(from string) orb.LineString {
	if edge.Source == from {
		return edge.Geometry
	}
	return reverseLine(edge.Geometry)
}

// other returns opposite endpoint of the edge
func (edge PrimalEdge) other(node string) string {
	if edge.Source == node {
		return edge.Target
	}
	return edge.Source
}

// PrimalGraph is the street network as physically laid out.
// Edges are stored in arena and addressed by PrimalEdgeID.
type PrimalGraph struct {
	Nodes     map[string]orb.Point
	Edges     []PrimalEdge
	nodeOrder []string
	incident  map[string][]PrimalEdgeID
	precision int
}

// nodeKey snaps point to given precision and returns x<X>-y<Y> key
func nodeKey(pt orb.Point, precision int) string {
	return "x" + strconv.FormatFloat(roundTo(pt.X(), precision), 'f', -1, 64) + "-y" + strconv.FormatFloat(roundTo(pt.Y(), precision), 'f', -1, 64)
}

// BuildPrimalGraph builds primal graph from single part lines.
// Lines with less than two points or with zero length are skipped.
func BuildPrimalGraph(lines []orb.LineString, precision int) *PrimalGraph {
	graph := &PrimalGraph{
		Nodes:     make(map[string]orb.Point),
		Edges:     make([]PrimalEdge, 0, len(lines)),
		nodeOrder: []string{},
		incident:  make(map[string][]PrimalEdgeID),
		precision: precision,
	}
	parallel := make(map[[2]string]int)
	for _, line := range lines {
		if len(line) < 2 || getLength(line) <= 0 {
			continue
		}
		source := graph.addNode(line[0])
		target := graph.addNode(line[len(line)-1])
		pair := [2]string{source, target}
		if target < source {
			pair = [2]string{target, source}
		}
		id := PrimalEdgeID(len(graph.Edges))
		graph.Edges = append(graph.Edges, PrimalEdge{
			ID:       id,
			Source:   source,
			Target:   target,
			Index:    parallel[pair],
			Geometry: line,
		})
		parallel[pair]++
		graph.incident[source] = append(graph.incident[source], id)
		graph.incident[target] = append(graph.incident[target], id)
	}
	return graph
}

func (graph *PrimalGraph) addNode(pt orb.Point) string {
	key := nodeKey(pt, graph.precision)
	if _, ok := graph.Nodes[key]; !ok {
		graph.Nodes[key] = pt
		graph.nodeOrder = append(graph.nodeOrder, key)
	}
	return key
}

// Edge returns edge from arena. Second value is false for dangling reference
func (graph *PrimalGraph) Edge(id PrimalEdgeID) (PrimalEdge, bool) {
	if id < 0 || int(id) >= len(graph.Edges) {
		return PrimalEdge{}, false
	}
	return graph.Edges[id], true
}

// Degree returns number of edge ends at given node (self-loop counts twice)
func (graph *PrimalGraph) Degree(node string) int {
	return len(graph.incident[node])
}

// NodeKeys returns node keys in insertion order
func (graph *PrimalGraph) NodeKeys() []string {
	return graph.nodeOrder
}

// geometries returns geometries of edges which are not marked as removed
func geometries(edges []PrimalEdge, removed []bool) []orb.LineString {
	lines := make([]orb.LineString, 0, len(edges))
	for i := range edges {
		if removed[i] {
			continue
		}
		lines = append(lines, edges[i].Geometry)
	}
	return lines
}

// RemoveFillerNodes merges two edges meeting at every degree-2 node. Returns fresh graph
func (graph *PrimalGraph) RemoveFillerNodes() *PrimalGraph {
	edges := make([]PrimalEdge, len(graph.Edges))
	copy(edges, graph.Edges)
	removed := make([]bool, len(edges))
	incident := make(map[string][]PrimalEdgeID, len(graph.incident))
	for node, ids := range graph.incident {
		incident[node] = append([]PrimalEdgeID{}, ids...)
	}
	for _, node := range graph.nodeOrder {
		ids := incident[node]
		if len(ids) != 2 || ids[0] == ids[1] {
			continue
		}
		first, second := edges[ids[0]], edges[ids[1]]
		start := first.other(node)
		end := second.other(node)
		head := reverseLine(first.oriented(node))
		tail := second.oriented(node)
		merged := make(orb.LineString, 0, len(head)+len(tail)-1)
		merged = append(merged, head...)
		merged = append(merged, tail[1:]...)
		id := PrimalEdgeID(len(edges))
		edges = append(edges, PrimalEdge{ID: id, Source: start, Target: end, Geometry: merged})
		removed = append(removed, false)
		removed[first.ID] = true
		removed[second.ID] = true
		incident[start] = replaceIncident(incident[start], first.ID, id)
		incident[end] = replaceIncident(incident[end], second.ID, id)
		delete(incident, node)
	}
	return BuildPrimalGraph(geometries(edges, removed), graph.precision)
}

func replaceIncident(ids []PrimalEdgeID, old, replacement PrimalEdgeID) []PrimalEdgeID {
	for i := range ids {
		if ids[i] == old {
			ids[i] = replacement
			return ids
		}
	}
	return ids
}

// RemoveDanglingNodes keeps edges of the largest connected component only (by number of nodes).
// When despine is positive dead-end edges shorter than despine are removed too. Returns fresh graph
func (graph *PrimalGraph) RemoveDanglingNodes(despine float64) *PrimalGraph {
	parent := make(map[string]string, len(graph.nodeOrder))
	var find func(string) string
	find = func(node string) string {
		root, ok := parent[node]
		if !ok || root == node {
			return node
		}
		root = find(root)
		parent[node] = root
		return root
	}
	for _, edge := range graph.Edges {
		a, b := find(edge.Source), find(edge.Target)
		if a != b {
			parent[b] = a
		}
	}
	sizes := make(map[string]int)
	roots := []string{}
	for _, node := range graph.nodeOrder {
		root := find(node)
		if sizes[root] == 0 {
			roots = append(roots, root)
		}
		sizes[root]++
	}
	sort.SliceStable(roots, func(i, j int) bool {
		return sizes[roots[i]] > sizes[roots[j]]
	})
	if len(roots) == 0 {
		return BuildPrimalGraph(nil, graph.precision)
	}
	largest := roots[0]
	removed := make([]bool, len(graph.Edges))
	for i, edge := range graph.Edges {
		if find(edge.Source) != largest {
			removed[i] = true
			continue
		}
		if despine > 0 && edge.Length() < despine && (graph.Degree(edge.Source) == 1 || graph.Degree(edge.Target) == 1) {
			removed[i] = true
		}
	}
	return BuildPrimalGraph(geometries(graph.Edges, removed), graph.precision)
}

// Decompose splits every edge longer than maxLength into equal pieces not longer than maxLength.
// Non-positive maxLength returns the graph as is
func (graph *PrimalGraph) Decompose(maxLength float64) *PrimalGraph {
	if maxLength <= 0 {
		return graph
	}
	lines := make([]orb.LineString, 0, len(graph.Edges))
	for _, edge := range graph.Edges {
		length := edge.Length()
		parts := int(math.Ceil(length / maxLength))
		if parts <= 1 {
			lines = append(lines, edge.Geometry)
			continue
		}
		lines = append(lines, splitLine(edge.Geometry, parts)...)
	}
	return BuildPrimalGraph(lines, graph.precision)
}

// splitLine cuts line into given number of pieces of equal planar length
func splitLine(line orb.LineString, parts int) []orb.LineString {
	step := getLength(line) / float64(parts)
	out := make([]orb.LineString, 0, parts)
	current := orb.LineString{line[0]}
	travelled := 0.0
	next := step
	for i := 1; i < len(line); i++ {
		p, q := line[i-1], line[i]
		segment := planar.Distance(p, q)
		for len(out) < parts-1 && segment > 0 && travelled+segment >= next {
			cut := pointOnSegmentByFraction(p, q, (next-travelled)/segment)
			current = append(current, cut)
			out = append(out, current)
			current = orb.LineString{cut}
			next += step
		}
		if current[len(current)-1] != q {
			current = append(current, q)
		}
		travelled += segment
	}
	return append(out, current)
}
