package streetnodes

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDual(t *testing.T) {
	dual, _ := crossDual(t)
	require.Len(t, dual.Nodes, 4)
	require.Len(t, dual.Edges, 6)

	assert.Equal(t, orb.Point{50, 0}, dual.Nodes[0].Point)
	assert.Equal(t, orb.Point{100, -50}, dual.Nodes[3].Point)
	for _, node := range dual.Nodes {
		assert.True(t, node.Live)
	}
	idx, ok := dual.NodeIndex("x100-y0_x100-y100_k0")
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	_, ok = dual.NodeIndex("x1-y1_x2-y2_k0")
	assert.False(t, ok)

	angles := map[[2]int]float64{}
	for _, edge := range dual.Edges {
		assert.InDelta(t, 100.0, edge.Length, 1e-9)
		angles[[2]int{edge.Source, edge.Target}] = edge.Angle
	}
	assert.InDelta(t, 0.0, angles[[2]int{0, 1}], 1e-9)
	assert.InDelta(t, 90.0, angles[[2]int{0, 2}], 1e-9)
	assert.InDelta(t, 90.0, angles[[2]int{0, 3}], 1e-9)
	assert.InDelta(t, 90.0, angles[[2]int{1, 2}], 1e-9)
	assert.InDelta(t, 90.0, angles[[2]int{1, 3}], 1e-9)
	assert.InDelta(t, 0.0, angles[[2]int{2, 3}], 1e-9)

	assert.ElementsMatch(t, []int{1, 2, 3}, dual.Neighbours(0))
	assert.Equal(t, []string{
		"x0-y0_x100-y0_k0",
		"x100-y0_x200-y0_k0",
		"x100-y0_x100-y100_k0",
		"x100-y-100_x100-y0_k0",
	}, dual.NodeKeys())
}

func TestToDualParallelEdges(t *testing.T) {
	lines := []orb.LineString{
		{{0, 0}, {10, 0}},
		{{0, 0}, {5, 5}, {10, 0}},
	}
	dual := ToDual(BuildPrimalGraph(lines, DEFAULT_KEY_PRECISION))
	require.Len(t, dual.Nodes, 2)
	require.Len(t, dual.Edges, 1)
	assert.Equal(t, []int{1}, dual.Neighbours(0))
	assert.Equal(t, []int{0}, dual.Neighbours(1))
}
