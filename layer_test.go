package streetnodes

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferColumn(t *testing.T) {
	ints := inferColumn("a", []interface{}{float64(1), nil, int64(3)})
	assert.Equal(t, COLUMN_INT64, ints.Kind)
	assert.Equal(t, []int64{1, 0, 3}, ints.Ints)
	assert.True(t, ints.IsNull(1))

	floats := inferColumn("b", []interface{}{float64(1), 2.5})
	assert.Equal(t, COLUMN_FLOAT64, floats.Kind)
	assert.Nil(t, floats.Valid)
	assert.Equal(t, []float64{1, 2.5}, floats.Floats)

	bools := inferColumn("c", []interface{}{true, nil, false})
	assert.Equal(t, COLUMN_BOOL, bools.Kind)
	assert.Equal(t, []bool{true, false, false}, bools.Bools)
	assert.Equal(t, []bool{true, false, true}, bools.Valid)

	mixed := inferColumn("d", []interface{}{"x", float64(1)})
	assert.Equal(t, COLUMN_STRING, mixed.Kind)
	assert.Equal(t, []string{"x", "1"}, mixed.Strings)

	empty := inferColumn("e", []interface{}{nil, nil})
	assert.Equal(t, COLUMN_STRING, empty.Kind)
	assert.True(t, empty.IsNull(0))
	assert.True(t, empty.IsNull(1))

	huge := inferColumn("f", []interface{}{math.Pow(2, 60)})
	assert.Equal(t, COLUMN_FLOAT64, huge.Kind)
}

func TestAttributeBuilder(t *testing.T) {
	builder := newAttributeBuilder()
	builder.addMap(map[string]interface{}{"b": "x", "a": float64(1)})
	builder.addMap(map[string]interface{}{"c": true})
	builder.add([]string{"a"}, []interface{}{float64(2)})
	columns := builder.columns()
	require.Len(t, columns, 3)
	assert.Equal(t, "a", columns[0].Name)
	assert.Equal(t, "b", columns[1].Name)
	assert.Equal(t, "c", columns[2].Name)
	assert.Equal(t, []int64{1, 0, 2}, columns[0].Ints)
	assert.Equal(t, []bool{true, false, true}, columns[0].Valid)
	assert.Equal(t, []bool{true, false, false}, columns[1].Valid)
	assert.Equal(t, []bool{false, true, false}, columns[2].Valid)
}

func TestLayerBoundaries(t *testing.T) {
	layer := &Layer{
		Geometries: []orb.Geometry{
			squarePolygon(0, 0, 10, 10)[0],
			orb.Point{1, 1},
			squarePolygon(10, 0, 20, 10),
		},
		Columns: []Column{
			NewStringColumn("NOMDIS", []string{"Centro", "Skip", "Retiro"}),
			NewNullableStringColumn("NOMBRE", []string{"Sol", "", ""}, []bool{true, true, false}),
		},
	}
	set, err := layer.Boundaries("NOMDIS", "NOMBRE")
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, "Centro", set[0].District)
	assert.Equal(t, "Sol", set[0].Neighbourhood)
	assert.Equal(t, "Retiro", set[1].District)
	assert.Equal(t, "", set[1].Neighbourhood)
	assert.False(t, set[1].DistrictNull)
	assert.True(t, set[1].NeighbourhoodNull)

	_, err = layer.Boundaries("missing", "NOMBRE")
	assert.Error(t, err)
}

func TestLayerLinesAndPremises(t *testing.T) {
	layer := &Layer{
		Geometries: []orb.Geometry{
			orb.LineString{{0, 0}, {1, 0}},
			orb.MultiLineString{{{0, 0}, {0, 1}}, {{0, 1}, {1, 1}}},
		},
	}
	assert.Len(t, layer.Lines(), 3)

	points := &Layer{
		Geometries: []orb.Geometry{orb.Point{1, 2}, orb.MultiPoint{{3, 4}}, squarePolygon(0, 0, 10, 10)},
		Columns:    []Column{NewStringColumn("use", []string{"a", "b", "c"})},
	}
	premises, err := points.Premises()
	require.NoError(t, err)
	assert.Equal(t, []orb.Point{{1, 2}, {3, 4}, {5, 5}}, premises.Points)

	broken := &Layer{Geometries: []orb.Geometry{nil}}
	_, err = broken.Premises()
	assert.Error(t, err)
}

func TestReadLayerUnsupported(t *testing.T) {
	_, err := ReadLayer("streets.dxf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
