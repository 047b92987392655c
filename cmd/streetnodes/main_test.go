package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/LdDl/streetnodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCommands(t *testing.T) {
	names := []string{}
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"run", "premises", "counts", "route"})
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, runCmd.Flags().Lookup("geometry"))
	assert.NotNil(t, runCmd.Flags().Lookup("policy"))
	assert.NotNil(t, routeCmd.Flags().Lookup("angular"))
}

func TestLoadConfigDefaults(t *testing.T) {
	c, err := loadConfig("")
	require.NoError(t, err)
	defaults := streetnodes.DefaultConfig()
	assert.Equal(t, defaults.Input, c.Input)
	assert.Equal(t, defaults.Metrics.CentralityDistances, c.Metrics.CentralityDistances)
	assert.Equal(t, defaults.Finalize.SubsetDistricts, c.Finalize.SubsetDistricts)
	assert.NoError(t, c.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "streetnodes.yaml")
	content := `
input:
  streets: data/madrid.osm.pbf
network:
  despine: 5
  street_types: [primary, residential]
metrics:
  centrality_distances: [400, 800]
  segment: false
finalize:
  policy: district_only
counts:
  allocation:
    PERM_PEA02_PM01: x0-y0_x1-y1_k0
`
	require.NoError(t, os.WriteFile(fileName, []byte(content), 0644))
	t.Setenv("STREETNODES_LOG_LEVEL", "debug")

	c, err := loadConfig(fileName)
	require.NoError(t, err)
	assert.Equal(t, "data/madrid.osm.pbf", c.Input.Streets)
	assert.Equal(t, "data/neighbourhoods.gpkg", c.Input.Boundaries, "defaults survive partial file")
	assert.Equal(t, 5.0, c.Network.Despine)
	assert.Equal(t, []string{"primary", "residential"}, c.Network.StreetTypes)
	assert.Equal(t, []int{400, 800}, c.Metrics.CentralityDistances)
	assert.False(t, c.Metrics.Segment)
	assert.True(t, c.Metrics.Weighted)
	assert.Equal(t, "district_only", c.Finalize.Policy)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, map[string]string{"PERM_PEA02_PM01": "x0-y0_x1-y1_k0"}, stationAllocation(c.Counts.Allocation))

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	defer zap.ReplaceGlobals(zap.NewNop())
	require.NoError(t, initLogger(streetnodes.LogConfig{Level: "warn", Format: "console"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))
	assert.True(t, zap.L().Core().Enabled(zap.WarnLevel))

	assert.Error(t, initLogger(streetnodes.LogConfig{Level: "loud", Format: "json"}))
}
