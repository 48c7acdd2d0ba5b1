package zarr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNDArrayFloat64s(t *testing.T) {
	a, err := NDArrayFromFloat64s(Uint8, []int{2, 3}, []float64{0, 1.4, 1.6, -5, 255, 999})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 0, 255, 255}, a.Bytes())
	assert.Equal(t, 6, a.Len())
	assert.Equal(t, 2, a.Rank())
	assert.Equal(t, 2.0, a.At(0, 2))
	assert.Equal(t, 255.0, a.At(1, 1))

	a.Set(7, 1, 0)
	assert.Equal(t, 7.0, a.Float64(3))

	_, err = NDArrayFromFloat64s(Uint8, []int{2, 3}, []float64{1})
	assert.Error(t, err)
}

func TestNDArrayTypes(t *testing.T) {
	for _, dt := range []DataType{Int8, Int16, Int32, Int64, Uint16, Uint32, Uint64, Float32, Float64} {
		a, err := NewNDArray(dt, []int{4})
		require.NoError(t, err)
		a.SetFloat64(0, 3)
		a.SetFloat64(1, 100)
		assert.Equal(t, 3.0, a.Float64(0), dt)
		assert.Equal(t, 100.0, a.Float64(1), dt)
		assert.Len(t, a.Bytes(), 4*dt.Size())
	}

	i8, _ := NewNDArray(Int8, []int{2})
	i8.SetFloat64(0, -1000)
	i8.SetFloat64(1, math.NaN())
	assert.Equal(t, -128.0, i8.Float64(0))
	assert.Equal(t, 0.0, i8.Float64(1))

	b, _ := NewNDArray(Bool, []int{2})
	b.SetFloat64(0, 0.5)
	assert.Equal(t, 1.0, b.Float64(0))
	assert.Equal(t, 0.0, b.Float64(1))
}

func TestNDArrayFill(t *testing.T) {
	a, err := NewNDArray(Float32, []int{3, 5})
	require.NoError(t, err)
	a.Fill(2.5)
	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, 2.5, a.Float64(i))
	}

	empty, err := NewNDArray(Float32, []int{0, 5})
	require.NoError(t, err)
	empty.Fill(1)
	assert.Equal(t, 0, empty.Len())
}

func TestNDArrayFromBytes(t *testing.T) {
	_, err := NDArrayFromBytes(Uint16, []int{2}, []byte{1, 2, 3})
	assert.Error(t, err)

	a, err := NDArrayFromBytes(Uint16, []int{2}, []byte{1, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, a.Float64(0))
	assert.Equal(t, 256.0, a.Float64(1))

	_, err = NewNDArray(Uint16, []int{-1})
	assert.Error(t, err)
}

func TestNDArrayEqual(t *testing.T) {
	a, _ := NDArrayFromFloat64s(Int32, []int{2, 2}, []float64{1, 2, 3, 4})
	b, _ := NDArrayFromFloat64s(Int32, []int{2, 2}, []float64{1, 2, 3, 4})
	c, _ := NDArrayFromFloat64s(Int32, []int{4}, []float64{1, 2, 3, 4})
	d, _ := NDArrayFromFloat64s(Int64, []int{2, 2}, []float64{1, 2, 3, 4})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.False(t, a.Equal(nil))
}

func TestCopyRegion(t *testing.T) {
	src, _ := NDArrayFromFloat64s(Uint8, []int{4, 4}, []float64{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
		12, 13, 14, 15,
	})
	dst, _ := NewNDArray(Uint8, []int{3, 3})
	copyRegion(dst.Bytes(), dst.Shape(), []int{1, 1}, src.Bytes(), src.Shape(), []int{1, 2}, []int{2, 2}, 1)
	assert.Equal(t, []byte{
		0, 0, 0,
		0, 6, 7,
		0, 10, 11,
	}, dst.Bytes())

	// an empty region leaves dst untouched
	copyRegion(dst.Bytes(), dst.Shape(), []int{0, 0}, src.Bytes(), src.Shape(), []int{0, 0}, []int{0, 2}, 1)
	assert.Equal(t, byte(0), dst.Bytes()[0])
}
