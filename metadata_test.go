package zarr

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// https://zarr-specs.readthedocs.io/en/latest/v3/core/v3.0.html#array-metadata
const specExample = `{
	"zarr_format": 3,
	"node_type": "array",
	"shape": [10000, 1000],
	"dimension_names": ["rows", "columns"],
	"data_type": "float64",
	"chunk_grid": {
		"name": "regular",
		"configuration": {
			"chunk_shape": [1000, 100]
		}
	},
	"chunk_key_encoding": {
		"name": "default",
		"configuration": {
			"separator": "/"
		}
	},
	"codecs": [{
		"name": "bytes",
		"configuration": {
			"endian": "little"
		}
	}],
	"fill_value": "NaN",
	"attributes": {
		"foo": 42,
		"bar": "apples",
		"baz": [1, 2, 3, 4]
	}
}`

func TestMetadataSerialization(t *testing.T) {
	m := &ArrayMeta{}
	require.NoError(t, json.Unmarshal([]byte(specExample), m))
	require.NoError(t, m.Validate())

	assert.Equal(t, Float64, m.DataType)
	assert.Equal(t, []int{10000, 1000}, m.Shape)
	assert.Equal(t, []int{1000, 100}, m.ChunkGrid.Configuration.ChunkShape)
	assert.Equal(t, "/", m.separator())
	assert.Equal(t, []string{"rows", "columns"}, m.DimensionNames)
	assert.Equal(t, "apples", m.Attributes["bar"])

	fill, err := parseFillValue(m.FillValue)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(fill))
}

func TestMetadataValidate(t *testing.T) {
	base := func() *ArrayMeta {
		m := &ArrayMeta{}
		require.NoError(t, json.Unmarshal([]byte(specExample), m))
		return m
	}

	m := base()
	m.ChunkGrid.Configuration.ChunkShape = []int{10}
	assert.ErrorIs(t, m.Validate(), ErrInvalidMetadata)

	m = base()
	m.ChunkGrid.Name = "rectilinear"
	assert.ErrorIs(t, m.Validate(), ErrUnsupported)

	m = base()
	m.DimensionNames = []string{"rows"}
	assert.ErrorIs(t, m.Validate(), ErrInvalidMetadata)

	m = base()
	m.Codecs = nil
	assert.ErrorIs(t, m.Validate(), ErrInvalidMetadata)

	m = base()
	m.ZarrFormat = 2
	assert.ErrorIs(t, m.Validate(), ErrInvalidMetadata)
}

func TestDecodeHeader(t *testing.T) {
	h, err := decodeHeader([]byte(`{"zarr_format":3,"node_type":"group"}`))
	require.NoError(t, err)
	assert.Equal(t, NodeGroup, h.NodeType)

	_, err = decodeHeader([]byte(`{"zarr_format":2,"node_type":"group"}`))
	assert.ErrorIs(t, err, ErrInvalidMetadata)

	_, err = decodeHeader([]byte(`{"zarr_format":3,"node_type":"table"}`))
	assert.ErrorIs(t, err, ErrInvalidMetadata)

	_, err = decodeHeader([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestFillValueJSON(t *testing.T) {
	cases := []struct {
		dt   DataType
		v    float64
		want interface{}
	}{
		{Bool, 1, true},
		{Int16, -3, int64(-3)},
		{Uint8, 300, uint64(255)},
		{Float32, math.NaN(), FillValueNaN},
		{Float64, math.Inf(1), FillValueInfinity},
		{Float64, math.Inf(-1), FillValueNegativeInfinity},
		{Float64, 0.25, 0.25},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, fillValueJSON(c.dt, c.v), "%s %v", c.dt, c.v)
	}

	_, err := parseFillValue("0x7fc00000")
	assert.ErrorIs(t, err, ErrUnsupported)
}
