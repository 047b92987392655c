package streetnodes

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// finalizerTable is the cross with eastern arm out of study area.
// Eastern arm is labelled with decomposed 'Chamberí'.
func finalizerTable(t *testing.T) *NodeTable {
	t.Helper()
	dual, table := crossDual(t)
	boundaries := BoundarySet{
		{District: "Centro", Neighbourhood: "Sol", Geometry: squarePolygon(-10, -110, 100, 110)},
		{District: "Chamberi\u0301", Neighbourhood: "Trafalgar", Geometry: squarePolygon(100, -110, 210, 110)},
	}
	study := NewStudyBoundary([]orb.MultiPolygon{squarePolygon(-10, -110, 120, 110)}, 0)
	table, err := NewGeometryEnricher(study).Enrich(dual, table)
	require.NoError(t, err)
	table, err = NewLabelJoiner(boundaries).Join(table)
	require.NoError(t, err)
	table, err = table.WithColumns(NewIntColumn("count", []int64{1, 2, 3, 4}))
	require.NoError(t, err)
	return table
}

func TestParseFilterPolicy(t *testing.T) {
	policy, err := ParseFilterPolicy("")
	require.NoError(t, err)
	assert.Equal(t, FILTER_LIVE_AND_DISTRICT, policy)
	policy, err = ParseFilterPolicy("District_Only")
	require.NoError(t, err)
	assert.Equal(t, FILTER_DISTRICT_ONLY, policy)
	_, err = ParseFilterPolicy("everything")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFinalizeLiveAndDistrict(t *testing.T) {
	table := finalizerTable(t)
	full, subset, err := NewDatasetFinalizer().Finalize(table)
	require.NoError(t, err)

	assert.Equal(t, []string{"x0-y0_x100-y0_k0", "x100-y0_x100-y100_k0", "x100-y-100_x100-y0_k0"}, full.Keys)
	assert.Equal(t, GEOMETRY_POINT, full.GeometryKind)
	assert.Equal(t, orb.Point{50, 0}, full.Geometries[0])
	_, ok := full.Column(FIELD_POINT_GEOM)
	assert.False(t, ok, "point output has no demoted geometry")

	weight, ok := full.Column(FIELD_WEIGHT)
	require.True(t, ok)
	assert.Equal(t, COLUMN_FLOAT32, weight.Kind)
	assert.Equal(t, []float32{100, 100, 100}, weight.Floats32)
	count, _ := full.Column("count")
	assert.Equal(t, COLUMN_INT32, count.Kind)
	assert.Equal(t, []int32{1, 3, 4}, count.Ints32)
	live, _ := full.Column(FIELD_LIVE)
	assert.Equal(t, COLUMN_BOOL, live.Kind)

	assert.Equal(t, full.Keys, subset.Keys, "every kept row is in Centro")
}

func TestFinalizeDistrictOnly(t *testing.T) {
	table := finalizerTable(t)
	full, subset, err := NewDatasetFinalizer(WithFilterPolicy(FILTER_DISTRICT_ONLY)).Finalize(table)
	require.NoError(t, err)
	assert.Equal(t, 4, full.Len())
	live, _ := full.Column(FIELD_LIVE)
	assert.Equal(t, []bool{true, false, true, true}, live.Bools)
	assert.Equal(t, 4, subset.Len())

	_, narrow, err := NewDatasetFinalizer(WithFilterPolicy(FILTER_DISTRICT_ONLY), WithSubsetDistricts([]string{"Chamberí"})).Finalize(table)
	require.NoError(t, err)
	assert.Equal(t, []string{"x100-y0_x200-y0_k0"}, narrow.Keys)
}

func TestFinalizeLineGeometry(t *testing.T) {
	table := finalizerTable(t)
	wiggly := append([]orb.LineString{}, table.Lines()...)
	wiggly[0] = orb.LineString{{0, 0}, {50, 0.5}, {100, 0}}
	table, err := table.WithLines(wiggly)
	require.NoError(t, err)
	table, err = table.WithActiveGeometry(GEOMETRY_LINE)
	require.NoError(t, err)

	full, _, err := NewDatasetFinalizer().Finalize(table)
	require.NoError(t, err)
	assert.Equal(t, GEOMETRY_LINE, full.GeometryKind)
	assert.Equal(t, orb.LineString{{0, 0}, {100, 0}}, full.Geometries[0])
	assert.Len(t, table.Lines()[0], 3, "source geometry stays untouched")

	demoted, ok := full.Column(FIELD_POINT_GEOM)
	require.True(t, ok)
	assert.Equal(t, "POINT(50 0)", demoted.Strings[0])

	kept, _, err := NewDatasetFinalizer(WithSimplifyTolerance(0.1)).Finalize(table)
	require.NoError(t, err)
	assert.Len(t, kept.Geometries[0], 3)
}

func TestFinalizeErrors(t *testing.T) {
	_, bare := crossDual(t)
	_, _, err := NewDatasetFinalizer().Finalize(bare)
	assert.ErrorIs(t, err, ErrMissingReference)

	table := finalizerTable(t)
	overflow, err := table.WithColumns(NewIntColumn("big", []int64{1, math.MaxInt32 + 1, 1, 1}))
	require.NoError(t, err)
	_, _, err = NewDatasetFinalizer().Finalize(overflow)
	assert.NoError(t, err, "overflowing row is filtered out")
	_, _, err = NewDatasetFinalizer(WithFilterPolicy(FILTER_DISTRICT_ONLY)).Finalize(overflow)
	assert.ErrorIs(t, err, ErrNarrowingOverflow)

	collision, err := table.WithColumns(NewStringColumn(FIELD_POINT_GEOM, []string{"", "", "", ""}))
	require.NoError(t, err)
	collision, err = collision.WithActiveGeometry(GEOMETRY_LINE)
	require.NoError(t, err)
	_, _, err = NewDatasetFinalizer().Finalize(collision)
	assert.ErrorIs(t, err, ErrSchemaCollision)
}

func TestNarrowColumnKeepsNulls(t *testing.T) {
	narrowed, err := narrowColumn(NewFloatColumn("a", []float64{1.5, math.NaN()}))
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), narrowed.Floats32[0])
	assert.True(t, narrowed.IsNull(1))

	ints, err := narrowColumn(Column{Name: "b", Kind: COLUMN_INT64, Ints: []int64{7, 0}, Valid: []bool{true, false}})
	require.NoError(t, err)
	assert.Nil(t, ints.Value(1))
	assert.Equal(t, int32(7), ints.Value(0))

	text, err := narrowColumn(NewStringColumn("c", []string{"x"}))
	require.NoError(t, err)
	assert.Equal(t, COLUMN_STRING, text.Kind)
}
