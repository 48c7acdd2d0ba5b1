package ome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveAxes(t *testing.T) {
	axes, err := DeriveAxes("tczyx", Lenient)
	require.NoError(t, err)
	assert.Equal(t, []Axis{
		{Name: "t", Type: AxisTime, Unit: UnitMillisecond},
		{Name: "c", Type: AxisChannel},
		{Name: "z", Type: AxisSpace, Unit: UnitMicrometer},
		{Name: "y", Type: AxisSpace, Unit: UnitMicrometer},
		{Name: "x", Type: AxisSpace, Unit: UnitMicrometer},
	}, axes)
}

func TestDeriveAxesUnknownTag(t *testing.T) {
	axes, err := DeriveAxes("qyx", Lenient)
	require.NoError(t, err)
	assert.Equal(t, Axis{Name: "q", Type: AxisSpace, Unit: UnitMicrometer}, axes[0])

	_, err = DeriveAxes("qyx", Strict)
	assert.ErrorIs(t, err, ErrUnknownDimension)

	axes, err = DeriveAxes("cyx", Strict)
	require.NoError(t, err)
	assert.Len(t, axes, 3)
}

func TestDimensionOrder(t *testing.T) {
	o := DimensionOrder("tcyx")
	assert.Equal(t, []string{"t", "c", "y", "x"}, o.Tags())
	assert.Equal(t, 4, o.Rank())
	assert.Equal(t, 2, o.Index("y"))
	assert.Equal(t, -1, o.Index("z"))

	assert.NoError(t, o.Validate(4))
	assert.NoError(t, o.Validate(-1))
	assert.ErrorIs(t, o.Validate(3), ErrMetadata)
	assert.ErrorIs(t, DimensionOrder("yxy").Validate(3), ErrMetadata)
	assert.ErrorIs(t, DimensionOrder("").Validate(0), ErrMetadata)
}

func TestParseAxisMode(t *testing.T) {
	m, err := ParseAxisMode("")
	require.NoError(t, err)
	assert.Equal(t, Lenient, m)
	m, err = ParseAxisMode("STRICT")
	require.NoError(t, err)
	assert.Equal(t, Strict, m)
	assert.Equal(t, "strict", m.String())
	_, err = ParseAxisMode("loose")
	assert.Error(t, err)
}
