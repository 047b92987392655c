package streetnodes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const streetsOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="0" lon="0" version="1"/>
  <node id="2" lat="0" lon="0.001" version="1"/>
  <node id="3" lat="0" lon="0.002" version="1"/>
  <node id="4" lat="0.001" lon="0.001" version="1"/>
  <node id="5" lat="0.002" lon="0.002" version="1"/>
  <way id="10" version="1">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/>
    <tag k="highway" v="residential"/>
    <tag k="name" v="Calle Mayor"/>
  </way>
  <way id="11" version="1">
    <nd ref="2"/><nd ref="4"/>
    <tag k="highway" v="footway"/>
  </way>
  <way id="12" version="1">
    <nd ref="1"/><nd ref="4"/>
    <tag k="highway" v="motorway"/>
  </way>
  <way id="13" version="1">
    <nd ref="3"/><nd ref="5"/><nd ref="4"/><nd ref="3"/>
    <tag k="highway" v="pedestrian"/>
    <tag k="area" v="yes"/>
  </way>
</osm>
`

func TestReadOSMStreets(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "streets.osm")
	require.NoError(t, os.WriteFile(fileName, []byte(streetsOSM), 0644))

	layer, err := ReadLayer(fileName)
	require.NoError(t, err)
	require.Equal(t, 3, layer.Len())
	ids, _ := layer.Column("osm_id")
	assert.Equal(t, []int64{10, 10, 11}, ids.Ints)
	names, _ := layer.Column("name")
	assert.Equal(t, []string{"Calle Mayor", "Calle Mayor", ""}, names.Strings)

	lines := layer.Lines()
	require.Len(t, lines, 3)
	assert.Len(t, lines[0], 2, "way is split at node shared with footway")
	assert.InDelta(t, 0, lines[0][0].X(), 1e-6)
	assert.InDelta(t, 111.319, lines[0][1].X(), 1e-2)
	assert.Equal(t, lines[0][1], lines[1][0])
	assert.Equal(t, lines[0][1], lines[2][0])
}

func TestReadOSMStreetsMissingNode(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "broken.osm")
	broken := `<osm version="0.6"><node id="1" lat="0" lon="0"/><way id="1"><nd ref="1"/><nd ref="9"/><tag k="highway" v="service"/></way></osm>`
	require.NoError(t, os.WriteFile(fileName, []byte(broken), 0644))
	_, err := ReadOSMStreets(fileName, DefaultStreetTypes())
	assert.ErrorIs(t, err, ErrMissingReference)
}
