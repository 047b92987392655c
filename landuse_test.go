package streetnodes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawPremises(t *testing.T) *Premises {
	t.Helper()
	premises, err := NewPremises(
		[]orb.Point{{10, 0}, {20, 0}, {30, 0}, {40, 0}, {50, 0}},
		[]Column{
			NewIntColumn("id_local", []int64{101, 102, 103, 104, 105}),
			NewStringColumn("desc_seccion", []string{"HOSTELERIA", "SIN ACTIVIDAD", "COMERCIO AL POR MAYOR Y AL POR MENOR; REPARACION DE VEHICULOS DE MOTOR Y MOTOCICLETAS", "EDUCACION", "HOSTELERIA"}),
			NewNullableStringColumn("desc_division",
				[]string{"SERVICIOS DE COMIDAS Y BEBIDAS", "SIN ACTIVIDAD", "COMERCIO AL POR MENOR, EXCEPTO DE VEHICULOS DE MOTOR Y MOTOCICLETAS", "VALOR NULO EN ORIGEN", ""},
				[]bool{true, true, true, true, false},
			),
		},
	)
	require.NoError(t, err)
	return premises
}

func TestDefaultLandUseSchema(t *testing.T) {
	schema, err := DefaultLandUseSchema()
	require.NoError(t, err)
	assert.Equal(t, DEFAULT_SECTION_COLUMN, schema.SectionColumn)
	assert.Equal(t, DEFAULT_DIVISION_COLUMN, schema.DivisionColumn)
	assert.Equal(t, "division_desc", schema.Columns["desc_division"])
	assert.Equal(t, "food_bev", schema.Divisions["SERVICIOS DE COMIDAS Y BEBIDAS"])
	assert.Contains(t, schema.InvalidMarkers, "no activity")
}

func TestLoadLandUseSchema(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(fileName, []byte("divisions:\n  A: a\n"), 0644))
	schema, err := LoadLandUseSchema(fileName)
	require.NoError(t, err)
	assert.Equal(t, DEFAULT_DIVISION_COLUMN, schema.DivisionColumn)
	assert.Equal(t, map[string]string{"A": "a"}, schema.Divisions)
	assert.NotNil(t, schema.Columns)

	_, err = LoadLandUseSchema(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = ParseLandUseSchema([]byte("divisions: [1, 2"))
	assert.Error(t, err)
}

func TestLandUseTranslator(t *testing.T) {
	schema, err := DefaultLandUseSchema()
	require.NoError(t, err)
	raw := rawPremises(t)
	translated, err := NewLandUseTranslator(schema).Translate(raw)
	require.NoError(t, err)

	// 'SIN ACTIVIDAD' and 'VALOR NULO EN ORIGEN' records are dropped, absent division is kept
	require.Equal(t, 3, translated.Len())
	assert.Equal(t, []string{"0", "2", "4"}, translated.IDs)
	assert.Equal(t, []int{0, 2, 4}, translated.Index)
	assert.Equal(t, []orb.Point{{10, 0}, {30, 0}, {50, 0}}, translated.Points)

	ids, ok := translated.Column("local_id")
	require.True(t, ok)
	assert.Equal(t, []int64{101, 103, 105}, ids.Ints)
	sections, err := translated.Labels("section_desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"hospitality", "commerce", "hospitality"}, sections)
	divisions, err := translated.Labels("division_desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"food_bev", "retail", ""}, divisions)

	// Source set stays untouched
	assert.Equal(t, 5, raw.Len())
	_, ok = raw.Column("desc_seccion")
	assert.True(t, ok)
}

func TestLandUseTranslatorIdempotent(t *testing.T) {
	schema, err := DefaultLandUseSchema()
	require.NoError(t, err)
	translator := NewLandUseTranslator(schema)
	once, err := translator.Translate(rawPremises(t))
	require.NoError(t, err)
	twice, err := translator.Translate(once)
	require.NoError(t, err)

	assert.Equal(t, once.IDs, twice.IDs)
	assert.Equal(t, once.Index, twice.Index)
	assert.Equal(t, once.Points, twice.Points)
	require.Len(t, twice.Columns, len(once.Columns))
	for j, column := range once.Columns {
		assert.Equal(t, column.Name, twice.Columns[j].Name)
		for i := 0; i < once.Len(); i++ {
			assert.Equal(t, column.Value(i), twice.Columns[j].Value(i), "%s[%d]", column.Name, i)
		}
	}
}

func TestLandUseTranslatorUnmappedPassThrough(t *testing.T) {
	schema, err := ParseLandUseSchema([]byte("divisions:\n  RETAIL: retail\ninvalid_markers: [closed]\n"))
	require.NoError(t, err)
	premises, err := NewPremises(
		[]orb.Point{{0, 0}, {1, 1}, {2, 2}},
		[]Column{NewStringColumn("division_desc", []string{"RETAIL", "BAKERY", "Closed shop"})},
	)
	require.NoError(t, err)
	translated, err := NewLandUseTranslator(schema).Translate(premises)
	require.NoError(t, err)
	labels, err := translated.Labels("division_desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"retail", "BAKERY"}, labels)
}

func TestLandUseTranslatorRenameCollision(t *testing.T) {
	schema, err := ParseLandUseSchema([]byte("columns:\n  a: b\n"))
	require.NoError(t, err)
	premises, err := NewPremises(
		[]orb.Point{{0, 0}},
		[]Column{NewStringColumn("a", []string{"x"}), NewStringColumn("b", []string{"y"})},
	)
	require.NoError(t, err)
	_, err = NewLandUseTranslator(schema).Translate(premises)
	assert.ErrorIs(t, err, ErrSchemaCollision)
}

func TestPremisesDataset(t *testing.T) {
	schema, err := DefaultLandUseSchema()
	require.NoError(t, err)
	translated, err := NewLandUseTranslator(schema).Translate(rawPremises(t))
	require.NoError(t, err)
	dataset := translated.Dataset()
	assert.Equal(t, FIELD_PREMISE_ID, dataset.keyName())
	assert.Equal(t, GEOMETRY_POINT, dataset.GeometryKind)
	assert.Equal(t, []string{"0", "2", "4"}, dataset.Keys)
	assert.Equal(t, orb.Point{30, 0}, dataset.Geometries[1])
}

func TestNewPremisesColumnLength(t *testing.T) {
	_, err := NewPremises([]orb.Point{{0, 0}}, []Column{NewStringColumn("a", []string{"x", "y"})})
	assert.ErrorIs(t, err, ErrColumnLength)
}
