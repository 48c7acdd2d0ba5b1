package zarr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataType(t *testing.T) {
	cases := map[string]DataType{
		"uint16":  Uint16,
		"float64": Float64,
		"<f8":     Float64,
		"<f4":     Float32,
		"|u1":     Uint8,
		"|b1":     Bool,
		">i4":     Int32,
		"<u8":  Uint64,
	}
	for in, want := range cases {
		got, err := ParseDataType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "float16", "<c16", "|S12", "x"} {
		_, err := ParseDataType(bad)
		assert.Error(t, err, bad)
	}
}

func TestDataTypeSize(t *testing.T) {
	assert.Equal(t, 1, Bool.Size())
	assert.Equal(t, 2, Int16.Size())
	assert.Equal(t, 8, Uint64.Size())
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, BTFloatingPoint, Float64.BasicType())
	assert.False(t, DataType("complex64").Valid())
}

func TestDataTypeJSON(t *testing.T) {
	var v struct {
		DT DataType `json:"data_type"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"data_type":"<u2"}`), &v))
	assert.Equal(t, Uint16, v.DT)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data_type":"uint16"}`, string(out))

	_, err = json.Marshal(struct{ DT DataType }{DataType("nope")})
	assert.Error(t, err)
}

func TestParseDtype(t *testing.T) {
	dt, err := ParseDtype("<M8[ns]")
	require.NoError(t, err)
	assert.Equal(t, BOLittleEndian, dt.ByteOrder)
	assert.Equal(t, BTDatetime, dt.BasicType)
	assert.Equal(t, 8, dt.ByteSize)
	assert.Equal(t, "[ns]", dt.Units)
	assert.Equal(t, "<M8[ns]", dt.String())

	_, err = dt.DataType()
	assert.Error(t, err)
}
