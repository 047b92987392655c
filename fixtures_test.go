package streetnodes

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

// crossLines is a four-arm junction at (100, 0)
func crossLines() []orb.LineString {
	return []orb.LineString{
		{{0, 0}, {100, 0}},
		{{100, 0}, {200, 0}},
		{{100, 0}, {100, 100}},
		{{100, -100}, {100, 0}},
	}
}

// squarePolygon returns axis aligned square polygon
func squarePolygon(minX, minY, maxX, maxY float64) orb.MultiPolygon {
	return orb.MultiPolygon{{{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}}
}

func crossDual(t *testing.T) (*DualGraph, *NodeTable) {
	t.Helper()
	dual := ToDual(BuildPrimalGraph(crossLines(), DEFAULT_KEY_PRECISION))
	return dual, NewNodeTable(dual)
}

// enrichedCross returns cross network enriched with geometry attributes and labels.
// Western half is 'Centro', eastern half is 'Retiro'; boundary covers whole cross.
func enrichedCross(t *testing.T) (*DualGraph, *NodeTable) {
	t.Helper()
	dual, table := crossDual(t)
	boundaries := BoundarySet{
		{District: "Centro", Neighbourhood: "Sol", Geometry: squarePolygon(-10, -110, 100, 110)},
		{District: "Retiro", Neighbourhood: "Jerónimos", Geometry: squarePolygon(100, -110, 210, 110)},
	}
	table, err := NewGeometryEnricher(NewStudyBoundary(boundaries.Geometries(), 0)).Enrich(dual, table)
	require.NoError(t, err)
	table, err = NewLabelJoiner(boundaries).Join(table)
	require.NoError(t, err)
	return dual, table
}
