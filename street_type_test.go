package streetnodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStreetTypes(t *testing.T) {
	types := DefaultStreetTypes()
	assert.True(t, types.Accepts("residential"))
	assert.True(t, types.Accepts("primary_link"))
	assert.True(t, types.Accepts("footway"))
	assert.False(t, types.Accepts("motorway"))
	assert.False(t, types.Accepts("trunk_link"))
	assert.False(t, types.Accepts("construction"))
}

func TestParseStreetTypes(t *testing.T) {
	types, err := ParseStreetTypes([]string{" Primary ", "steps"})
	require.NoError(t, err)
	assert.Len(t, types, 2)
	assert.True(t, types.Accepts("primary"))
	assert.False(t, types.Accepts("secondary"))
	assert.Equal(t, "living_street", STREET_LIVING_STREET.String())

	_, err = ParseStreetTypes([]string{"runway"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
