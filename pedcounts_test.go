package streetnodes

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const countsCSV = `FECHA;HORA;IDENTIFICADOR;PEATONES;NUMERO_DISTRITO;DISTRITO;NOMBRE_VIAL;NUMERO;CODIGO_POSTAL;OBSERVACIONES_DIRECCION;LATITUD;LONGITUD
01/01/2021 00:00;00:00;PERM_PEA02_PM01;12;1;Centro;Calle Mayor;21;28013;;40,4153;-3,7089
01/01/2021 01:00;01:00;UNKNOWN;7,5;;;Gran Vía;;;frente;40,42;-3,705
`

func TestPedCountsRead(t *testing.T) {
	dataset, err := NewPedCountsReader().Read(strings.NewReader(countsCSV))
	require.NoError(t, err)
	require.Equal(t, 2, dataset.Len())
	assert.Equal(t, FIELD_NETWORK_KEY, dataset.keyName())
	assert.Equal(t, MADRID_COUNT_ALLOCATION["PERM_PEA02_PM01"], dataset.Keys[0])
	assert.Equal(t, "", dataset.Keys[1])
	assert.Equal(t, orb.Point{-3.7089, 40.4153}, dataset.Geometries[0])

	date, _ := dataset.Column("date")
	assert.Equal(t, "2021-01-01T00:00:00", date.Value(0))
	pedestrians, _ := dataset.Column("pedestrians")
	assert.Equal(t, []float64{12, 7.5}, pedestrians.Floats)
	districtNum, _ := dataset.Column("district_num")
	assert.Equal(t, int64(1), districtNum.Value(0))
	assert.Nil(t, districtNum.Value(1))
	observations, _ := dataset.Column("address_observations")
	assert.Nil(t, observations.Value(0))
	assert.Equal(t, "frente", observations.Value(1))
	_, ok := dataset.Column("time")
	assert.False(t, ok)
}

func TestPedCountsAllocation(t *testing.T) {
	reader := NewPedCountsReader(WithAllocation(map[string]string{"UNKNOWN": "x0-y0_x1-y1_k0"}))
	dataset, err := reader.Read(strings.NewReader(countsCSV))
	require.NoError(t, err)
	assert.Equal(t, []string{"", "x0-y0_x1-y1_k0"}, dataset.Keys)

	fileName := filepath.Join(t.TempDir(), "counts.geojson")
	require.NoError(t, WritePedCounts(fileName, dataset))
	layer, err := ReadLayer(fileName)
	require.NoError(t, err)
	key, ok := layer.Column(FIELD_NETWORK_KEY)
	require.True(t, ok)
	assert.Equal(t, "x0-y0_x1-y1_k0", key.Value(1))
}

func TestPedCountsErrors(t *testing.T) {
	header := strings.SplitN(countsCSV, "\n", 2)[0] + "\n"
	_, err := NewPedCountsReader().Read(strings.NewReader(header + "2021-01-01;0:00;A;1;1;C;S;1;1;;40;-3\n"))
	assert.Error(t, err)
	_, err = NewPedCountsReader().Read(strings.NewReader(header + "01/01/2021 00:00;00:00;A;many;1;C;S;1;1;;40;-3\n"))
	assert.Error(t, err)
	_, err = NewPedCountsReader().Read(strings.NewReader(header + "01/01/2021 00:00;00:00;A\n"))
	assert.Error(t, err)
	_, err = NewPedCountsReader().Read(strings.NewReader(""))
	assert.Error(t, err)
}
