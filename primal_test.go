package streetnodes

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeKey(t *testing.T) {
	assert.Equal(t, "x440517.809-y4474758.042", nodeKey(orb.Point{440517.80912, 4474758.0418}, 3))
	assert.Equal(t, "x100-y-100", nodeKey(orb.Point{100, -100}, 3))
	assert.Equal(t, "x1-y2", nodeKey(orb.Point{1.4, 2.2}, 0))
}

func TestBuildPrimalGraph(t *testing.T) {
	graph := BuildPrimalGraph(crossLines(), DEFAULT_KEY_PRECISION)
	require.Len(t, graph.Edges, 4)
	assert.Len(t, graph.Nodes, 5)
	assert.Equal(t, 4, graph.Degree("x100-y0"))
	assert.Equal(t, 1, graph.Degree("x0-y0"))
	assert.Equal(t, "x0-y0_x100-y0_k0", graph.Edges[0].Key())
	assert.Equal(t, []string{"x0-y0", "x100-y0", "x200-y0", "x100-y100", "x100-y-100"}, graph.NodeKeys())

	edge, ok := graph.Edge(2)
	require.True(t, ok)
	assert.Equal(t, PrimalEdgeID(2), edge.ID)
	assert.InDelta(t, 100.0, edge.Length(), 1e-9)
	_, ok = graph.Edge(10)
	assert.False(t, ok)
}

func TestBuildPrimalGraphParallelAndDegenerate(t *testing.T) {
	lines := []orb.LineString{
		{{0, 0}, {10, 0}},
		{{10, 0}, {5, 5}, {0, 0}},
		{{3, 3}},
		{{4, 4}, {4, 4}},
	}
	graph := BuildPrimalGraph(lines, DEFAULT_KEY_PRECISION)
	require.Len(t, graph.Edges, 2)
	assert.Equal(t, "x0-y0_x10-y0_k0", graph.Edges[0].Key())
	assert.Equal(t, "x10-y0_x0-y0_k1", graph.Edges[1].Key())
}

func TestRemoveFillerNodes(t *testing.T) {
	lines := []orb.LineString{
		{{0, 0}, {50, 0}},
		{{50, 0}, {100, 0}},
		{{100, 0}, {100, 50}},
		{{100, 0}, {150, 0}},
		{{100, 0}, {100, -50}},
	}
	graph := BuildPrimalGraph(lines, DEFAULT_KEY_PRECISION).RemoveFillerNodes()
	require.Len(t, graph.Edges, 4)
	_, ok := graph.Nodes["x50-y0"]
	assert.False(t, ok)
	merged := graph.Edges[len(graph.Edges)-1]
	assert.Equal(t, orb.LineString{{0, 0}, {50, 0}, {100, 0}}, merged.Geometry)
	assert.InDelta(t, 100.0, merged.Length(), 1e-9)
}

func TestRemoveDanglingNodes(t *testing.T) {
	lines := append(crossLines(),
		orb.LineString{{500, 500}, {510, 500}},
		orb.LineString{{200, 0}, {203, 0}},
	)
	graph := BuildPrimalGraph(lines, DEFAULT_KEY_PRECISION)

	kept := graph.RemoveDanglingNodes(0)
	assert.Len(t, kept.Edges, 5)
	_, ok := kept.Nodes["x500-y500"]
	assert.False(t, ok)

	despined := graph.RemoveDanglingNodes(5)
	assert.Len(t, despined.Edges, 4)
	_, ok = despined.Nodes["x203-y0"]
	assert.False(t, ok)

	assert.Empty(t, BuildPrimalGraph(nil, 3).RemoveDanglingNodes(0).Edges)
}

func TestDecompose(t *testing.T) {
	graph := BuildPrimalGraph([]orb.LineString{{{0, 0}, {250, 0}}, {{250, 0}, {250, 50}}}, DEFAULT_KEY_PRECISION)
	assert.Same(t, graph, graph.Decompose(0))

	decomposed := graph.Decompose(100)
	require.Len(t, decomposed.Edges, 4)
	for _, edge := range decomposed.Edges[:3] {
		assert.InDelta(t, 250.0/3, edge.Length(), 1e-9)
	}
	assert.InDelta(t, 50.0, decomposed.Edges[3].Length(), 1e-9)
}

func TestSplitLine(t *testing.T) {
	parts := splitLine(orb.LineString{{0, 0}, {100, 0}, {100, 100}}, 2)
	require.Len(t, parts, 2)
	assert.Equal(t, orb.LineString{{0, 0}, {100, 0}}, parts[0])
	assert.Equal(t, orb.LineString{{100, 0}, {100, 100}}, parts[1])

	parts = splitLine(orb.LineString{{0, 0}, {100, 0}, {100, 100}}, 4)
	require.Len(t, parts, 4)
	assert.Equal(t, orb.LineString{{0, 0}, {50, 0}}, parts[0])
	assert.Equal(t, orb.LineString{{100, 50}, {100, 100}}, parts[3])
	total := 0.0
	for _, part := range parts {
		total += getLength(part)
	}
	assert.InDelta(t, 200.0, total, 1e-9)
}
