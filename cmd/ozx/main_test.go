package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zarr "github.com/qri-io/ome-zarr-go"
	"github.com/qri-io/ome-zarr-go/ome"
	"github.com/qri-io/ome-zarr-go/ozx"
)

func TestParseShape(t *testing.T) {
	shape, err := parseShape("3, 100,50")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 100, 50}, shape)

	for _, bad := range []string{"", "1,,2", "0,4", "a"} {
		_, err := parseShape(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseSpacing(t *testing.T) {
	s, err := parseSpacing("x=0.5, y=0.25")
	require.NoError(t, err)
	assert.Equal(t, ome.PixelSpacing{"x": 0.5, "y": 0.25}, s)

	_, err = parseSpacing("x")
	assert.Error(t, err)
	_, err = parseSpacing("x=-1")
	assert.Error(t, err)
}

func TestGradient(t *testing.T) {
	a, err := gradient(zarr.Uint8, []int{2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.At(0, 0, 0))
	assert.Equal(t, 5.0, a.At(1, 2, 3))
}

func TestCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.ozx")
	data, err := gradient(zarr.Uint16, []int{40, 30})
	require.NoError(t, err)
	require.NoError(t, ozx.Write(path, data, "yx", ome.PixelSpacing{"x": 0.5, "y": 0.5}))

	buf := &bytes.Buffer{}
	require.NoError(t, indexCommand(path, buf))
	assert.JSONEq(t, `{"ome":{"version":"0.5"}}`, buf.String())

	buf.Reset()
	require.NoError(t, infoCommand(path, buf))
	assert.Contains(t, buf.String(), "axis y: space micrometer")
	assert.Contains(t, buf.String(), "level 0: scale [0.5 0.5] translation [0 0] shape [40 30] uint16")

	buf.Reset()
	require.NoError(t, readCommand(path, buf))
	assert.Contains(t, buf.String(), "level 0: shape [40 30] min 0 max 68")
}
