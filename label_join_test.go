package streetnodes

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelJoinerFirstPolygonWins(t *testing.T) {
	_, table := enrichedCross(t)
	district, ok := table.Column(FIELD_DISTRICT)
	require.True(t, ok)
	// Northern and southern arms lie on the shared edge: first polygon in set order wins
	assert.Equal(t, []string{"Centro", "Retiro", "Centro", "Centro"}, district.Strings)
	neighbourhood, _ := table.Column(FIELD_NEIGHBOURHOOD)
	assert.Equal(t, "Jerónimos", neighbourhood.Value(1))
}

func TestLabelJoinerUnmatched(t *testing.T) {
	_, table := crossDual(t)
	boundaries := BoundarySet{
		{District: "Centro", Neighbourhood: "Sol", Geometry: squarePolygon(0, -10, 60, 10)},
	}
	joined, err := NewLabelJoiner(boundaries).Join(table)
	require.NoError(t, err)
	district, _ := joined.Column(FIELD_DISTRICT)
	assert.Equal(t, "Centro", district.Value(0))
	for i := 1; i < 4; i++ {
		assert.True(t, district.IsNull(i))
	}
	neighbourhood, _ := joined.Column(FIELD_NEIGHBOURHOOD)
	assert.True(t, neighbourhood.IsNull(3))
}

func TestLabelJoinerNullDistrict(t *testing.T) {
	layer := &Layer{
		Geometries: []orb.Geometry{squarePolygon(-10, -110, 100, 110), squarePolygon(100, -110, 210, 110)},
		Columns: []Column{
			NewNullableStringColumn("NOMDIS", []string{"Centro", ""}, []bool{true, false}),
			NewStringColumn("NOMBRE", []string{"Sol", "Jerónimos"}),
		},
	}
	boundaries, err := layer.Boundaries("NOMDIS", "NOMBRE")
	require.NoError(t, err)
	require.Len(t, boundaries, 2)
	assert.True(t, boundaries[1].DistrictNull)

	dual, table := crossDual(t)
	table, err = NewGeometryEnricher(NewStudyBoundary(boundaries.Geometries(), 0)).Enrich(dual, table)
	require.NoError(t, err)
	joined, err := NewLabelJoiner(boundaries).Join(table)
	require.NoError(t, err)
	district, _ := joined.Column(FIELD_DISTRICT)
	assert.True(t, district.IsNull(1))
	assert.Equal(t, "Centro", district.Value(0))
	neighbourhood, _ := joined.Column(FIELD_NEIGHBOURHOOD)
	assert.Equal(t, "Jerónimos", neighbourhood.Value(1))

	full, _, err := NewDatasetFinalizer().Finalize(joined)
	require.NoError(t, err)
	assert.NotContains(t, full.Keys, table.Keys()[1])
	assert.Len(t, full.Keys, 3)
}

func TestLabelJoinerFollowsActiveGeometry(t *testing.T) {
	// Node point of the L-shaped street is (10, 0) while its centroid is (7.5, 2.5)
	dual := ToDual(BuildPrimalGraph([]orb.LineString{{{0, 0}, {10, 0}, {10, 10}}}, DEFAULT_KEY_PRECISION))
	require.Equal(t, orb.Point{10, 0}, dual.Nodes[0].Point)
	boundaries := BoundarySet{
		{District: "Norte", Geometry: squarePolygon(0, 1, 9, 9)},
		{District: "Sur", Geometry: squarePolygon(9.5, -1, 11, 1)},
	}
	table, err := NewGeometryEnricher(NewStudyBoundary(boundaries.Geometries(), 0)).Enrich(dual, NewNodeTable(dual))
	require.NoError(t, err)

	byPoint, err := NewLabelJoiner(boundaries).Join(table)
	require.NoError(t, err)
	district, _ := byPoint.Column(FIELD_DISTRICT)
	assert.Equal(t, "Sur", district.Value(0))

	asLines, err := table.WithActiveGeometry(GEOMETRY_LINE)
	require.NoError(t, err)
	byLine, err := NewLabelJoiner(boundaries).Join(asLines)
	require.NoError(t, err)
	district, _ = byLine.Column(FIELD_DISTRICT)
	assert.Equal(t, "Norte", district.Value(0))
}

func TestLineCentroid(t *testing.T) {
	centroid, err := lineCentroid(orb.LineString{{0, 0}, {10, 0}, {10, 10}})
	require.NoError(t, err)
	assert.InDelta(t, 7.5, centroid.X(), 1e-9)
	assert.InDelta(t, 2.5, centroid.Y(), 1e-9)
}
