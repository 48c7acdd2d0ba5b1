package zarr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// NDArray is an in-memory n-dimensional buffer. Elements are stored in C
// (row-major) order, little-endian, so the buffer can be handed to the
// "bytes" codec without conversion.
type NDArray struct {
	dtype DataType
	shape []int
	data  []byte
}

// NewNDArray allocates a zeroed array
func NewNDArray(dt DataType, shape []int) (*NDArray, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("unsupported data type %q", string(dt))
	}
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	return &NDArray{
		dtype: dt,
		shape: append([]int(nil), shape...),
		data:  make([]byte, numElements(shape)*dt.Size()),
	}, nil
}

// NDArrayFromBytes wraps little-endian C-order data without copying it
func NDArrayFromBytes(dt DataType, shape []int, data []byte) (*NDArray, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("unsupported data type %q", string(dt))
	}
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	if want := numElements(shape) * dt.Size(); len(data) != want {
		return nil, fmt.Errorf("data length %d does not match shape %v of %s (want %d bytes)", len(data), shape, dt, want)
	}
	return &NDArray{dtype: dt, shape: append([]int(nil), shape...), data: data}, nil
}

// NDArrayFromFloat64s converts vals into an array of type dt. Integer types
// round to nearest and saturate at the type bounds.
func NDArrayFromFloat64s(dt DataType, shape []int, vals []float64) (*NDArray, error) {
	a, err := NewNDArray(dt, shape)
	if err != nil {
		return nil, err
	}
	if len(vals) != a.Len() {
		return nil, fmt.Errorf("got %d values for shape %v (want %d)", len(vals), shape, a.Len())
	}
	for i, v := range vals {
		a.SetFloat64(i, v)
	}
	return a, nil
}

func (a *NDArray) DataType() DataType { return a.dtype }

// Shape returns a copy of the array's extent per dimension
func (a *NDArray) Shape() []int { return append([]int(nil), a.shape...) }

func (a *NDArray) Rank() int { return len(a.shape) }

// Len is the number of elements
func (a *NDArray) Len() int { return numElements(a.shape) }

// Bytes exposes the backing buffer
func (a *NDArray) Bytes() []byte { return a.data }

func (a *NDArray) Float64(i int) float64 {
	sz := a.dtype.Size()
	return decodeElement(a.dtype, a.data[i*sz:(i+1)*sz])
}

func (a *NDArray) SetFloat64(i int, v float64) {
	sz := a.dtype.Size()
	encodeElement(a.dtype, a.data[i*sz:(i+1)*sz], v)
}

// At returns the element at a multi-dimensional index
func (a *NDArray) At(idx ...int) float64 {
	return a.Float64(a.offset(idx))
}

func (a *NDArray) Set(v float64, idx ...int) {
	a.SetFloat64(a.offset(idx), v)
}

func (a *NDArray) offset(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("index rank %d does not match array rank %d", len(idx), len(a.shape)))
	}
	off := 0
	for d, s := range stridesOf(a.shape) {
		if idx[d] < 0 || idx[d] >= a.shape[d] {
			panic(fmt.Sprintf("index %v out of bounds for shape %v", idx, a.shape))
		}
		off += idx[d] * s
	}
	return off
}

// Fill sets every element to v
func (a *NDArray) Fill(v float64) {
	sz := a.dtype.Size()
	if len(a.data) == 0 {
		return
	}
	encodeElement(a.dtype, a.data[:sz], v)
	for filled := sz; filled < len(a.data); filled *= 2 {
		copy(a.data[filled:], a.data[:filled])
	}
}

// Equal reports whether both arrays share type, shape and bytes
func (a *NDArray) Equal(b *NDArray) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.dtype != b.dtype || !equalInts(a.shape, b.shape) {
		return false
	}
	return bytes.Equal(a.data, b.data)
}

func (a *NDArray) String() string {
	return fmt.Sprintf("<zarr.NDArray %s %v>", a.dtype, a.shape)
}

func decodeElement(dt DataType, b []byte) float64 {
	switch dt {
	case Bool:
		if b[0] != 0 {
			return 1
		}
		return 0
	case Int8:
		return float64(int8(b[0]))
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(b)))
	case Uint8:
		return float64(b[0])
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case Uint64:
		return float64(binary.LittleEndian.Uint64(b))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	panic("unsupported decoding type " + string(dt))
}

func encodeElement(dt DataType, b []byte, v float64) {
	switch dt {
	case Bool:
		b[0] = 0
		if v != 0 && !math.IsNaN(v) {
			b[0] = 1
		}
	case Int8:
		b[0] = byte(int8(clampInt(v, math.MinInt8, math.MaxInt8)))
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(clampInt(v, math.MinInt16, math.MaxInt16))))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(clampInt(v, math.MinInt32, math.MaxInt32))))
	case Int64:
		binary.LittleEndian.PutUint64(b, uint64(clampInt(v, math.MinInt64, math.MaxInt64)))
	case Uint8:
		b[0] = byte(clampUint(v, math.MaxUint8))
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(clampUint(v, math.MaxUint16)))
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(clampUint(v, math.MaxUint32)))
	case Uint64:
		binary.LittleEndian.PutUint64(b, clampUint(v, math.MaxUint64))
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	default:
		panic("unsupported encoding type " + string(dt))
	}
}

func clampInt(v float64, lo, hi int64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Round(v)
	if v <= float64(lo) {
		return lo
	}
	if v >= float64(hi) {
		return hi
	}
	return int64(v)
}

func clampUint(v float64, hi uint64) uint64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	v = math.Round(v)
	if v >= float64(hi) {
		return hi
	}
	return uint64(v)
}

func checkShape(shape []int) error {
	for d, n := range shape {
		if n < 0 {
			return fmt.Errorf("negative extent %d in dimension %d", n, d)
		}
	}
	return nil
}

func numElements(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// stridesOf returns C-order element strides
func stridesOf(shape []int) []int {
	st := make([]int, len(shape))
	acc := 1
	for d := len(shape) - 1; d >= 0; d-- {
		st[d] = acc
		acc *= shape[d]
	}
	return st
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// copyRegion copies a box of extent region from src (starting at srcOrigin)
// into dst (starting at dstOrigin). Both buffers are C-order with elements
// of itemSize bytes; rows along the last dimension are copied in one go.
func copyRegion(dst []byte, dstShape, dstOrigin []int, src []byte, srcShape, srcOrigin []int, region []int, itemSize int) {
	rank := len(region)
	if rank == 0 {
		copy(dst[:itemSize], src[:itemSize])
		return
	}
	for _, n := range region {
		if n <= 0 {
			return
		}
	}
	dstStrides, srcStrides := stridesOf(dstShape), stridesOf(srcShape)
	rowBytes := region[rank-1] * itemSize
	idx := make([]int, rank-1)
	for {
		dOff, sOff := dstOrigin[rank-1], srcOrigin[rank-1]
		for d := 0; d < rank-1; d++ {
			dOff += (dstOrigin[d] + idx[d]) * dstStrides[d]
			sOff += (srcOrigin[d] + idx[d]) * srcStrides[d]
		}
		copy(dst[dOff*itemSize:dOff*itemSize+rowBytes], src[sOff*itemSize:sOff*itemSize+rowBytes])

		d := rank - 2
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < region[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return
		}
	}
}
