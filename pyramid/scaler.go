package pyramid

import (
	"fmt"
	"strings"

	zarr "github.com/qri-io/ome-zarr-go"
)

// Method selects how a block of source elements reduces to one
type Method string

const (
	// Mean averages each block; integer types round to nearest
	Mean Method = "mean"
	// Nearest keeps the first element of each block
	Nearest Method = "nearest"
)

// ParseMethod reads a Method name; an empty string is Mean
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(s)); m {
	case "":
		return Mean, nil
	case Mean, Nearest:
		return m, nil
	}
	return "", fmt.Errorf("unknown downsampling method %q", s)
}

const (
	DefaultFactor   = 2
	DefaultMaxLayer = 4
)

// Scaler reduces the extent of selected axes by an integer factor per level.
// Trailing elements that do not fill a whole block are dropped.
type Scaler struct {
	Factor int
	// MaxLayer caps the number of levels built above the base
	MaxLayer int
	Method   Method
	// Axes are the dimensions to reduce. Nil selects the last two, or the
	// only one of a rank 1 array.
	Axes []int
}

var _ Downsampler = (*Scaler)(nil)

// NewScaler returns a Scaler with the default factor, layer cap and method
// reducing the given axes
func NewScaler(axes ...int) *Scaler {
	return &Scaler{
		Factor:   DefaultFactor,
		MaxLayer: DefaultMaxLayer,
		Method:   Mean,
		Axes:     axes,
	}
}

func (s *Scaler) DownscaleFactor() float64 {
	return float64(s.Factor)
}

// MaxLevel is MaxLayer, lowered so every reduced axis keeps at least one
// element at the coarsest level
func (s *Scaler) MaxLevel(base *zarr.NDArray) int {
	if s.Factor < 2 {
		return 0
	}
	axes, err := s.axes(base.Rank())
	if err != nil || len(axes) == 0 {
		return 0
	}
	shape := base.Shape()
	level := 0
	for level < s.MaxLayer {
		for _, ax := range axes {
			shape[ax] /= s.Factor
			if shape[ax] == 0 {
				return level
			}
		}
		level++
	}
	return level
}

func (s *Scaler) axes(rank int) ([]int, error) {
	axes := s.Axes
	if axes == nil {
		switch {
		case rank >= 2:
			axes = []int{rank - 2, rank - 1}
		case rank == 1:
			axes = []int{0}
		}
	}
	seen := map[int]bool{}
	for _, ax := range axes {
		if ax < 0 || ax >= rank || seen[ax] {
			return nil, fmt.Errorf("invalid downsampling axes %v for rank %d", axes, rank)
		}
		seen[ax] = true
	}
	return axes, nil
}

// Resize performs one reduction step
func (s *Scaler) Resize(a *zarr.NDArray) (*zarr.NDArray, error) {
	if s.Factor < 2 {
		return nil, fmt.Errorf("downscale factor %d must be at least 2", s.Factor)
	}
	axes, err := s.axes(a.Rank())
	if err != nil {
		return nil, err
	}
	method := s.Method
	if method == "" {
		method = Mean
	}

	in := a.Shape()
	out := a.Shape()
	for _, ax := range axes {
		out[ax] = in[ax] / s.Factor
		if out[ax] == 0 {
			return nil, fmt.Errorf("cannot reduce extent %d of axis %d by %d", in[ax], ax, s.Factor)
		}
	}
	res, err := zarr.NewNDArray(a.DataType(), out)
	if err != nil {
		return nil, err
	}

	// offsets within one block, along the reduced axes
	block := 1
	for range axes {
		block *= s.Factor
	}

	idx := make([]int, len(out))
	src := make([]int, len(out))
	for i := 0; i < res.Len(); i++ {
		copy(src, idx)
		for _, ax := range axes {
			src[ax] = idx[ax] * s.Factor
		}
		switch method {
		case Nearest:
			res.SetFloat64(i, a.At(src...))
		case Mean:
			sum := 0.0
			for b := 0; b < block; b++ {
				rem := b
				for k := len(axes) - 1; k >= 0; k-- {
					ax := axes[k]
					src[ax] = idx[ax]*s.Factor + rem%s.Factor
					rem /= s.Factor
				}
				sum += a.At(src...)
			}
			res.SetFloat64(i, sum/float64(block))
		default:
			return nil, fmt.Errorf("unknown downsampling method %q", method)
		}
		increment(idx, out)
	}
	return res, nil
}

// increment advances idx to the next C-order position within shape
func increment(idx, shape []int) {
	for d := len(idx) - 1; d >= 0; d-- {
		idx[d]++
		if idx[d] < shape[d] {
			return
		}
		idx[d] = 0
	}
}
