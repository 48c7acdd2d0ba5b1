/*
	Package pyramid builds multiscale resolution series from a base array.
	Each level is one Resize step of a Downsampler applied to the level above
	it; the Downsampler also decides how many levels are meaningful.
*/
package pyramid

import (
	"errors"
	"fmt"
	"math"

	zarr "github.com/qri-io/ome-zarr-go"
)

// ErrConstruction wraps every failure to produce a pyramid level
var ErrConstruction = errors.New("pyramid construction failed")

// Downsampler performs one reduction step of a pyramid
type Downsampler interface {
	// DownscaleFactor is the per-step reduction ratio, conventionally 2
	DownscaleFactor() float64
	// MaxLevel is the highest level worth building from base
	MaxLevel(base *zarr.NDArray) int
	// Resize returns a one step reduction of a
	Resize(a *zarr.NDArray) (*zarr.NDArray, error)
}

// LevelError reports the level whose construction failed
type LevelError struct {
	Level int
	Err   error
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("%s: level %d: %s", ErrConstruction, e.Level, e.Err)
}

func (e *LevelError) Unwrap() []error {
	return []error{ErrConstruction, e.Err}
}

// Pyramid is a complete resolution series. Levels[0] is the base array.
type Pyramid struct {
	Levels []*zarr.NDArray
	Factor float64
}

// MaxLevel is the index of the coarsest level
func (p *Pyramid) MaxLevel() int {
	return len(p.Levels) - 1
}

// CumulativeScale is the total reduction of level relative to the base
func (p *Pyramid) CumulativeScale(level int) float64 {
	return CumulativeScale(p.Factor, level)
}

// CumulativeScale returns factor^level
func CumulativeScale(factor float64, level int) float64 {
	return math.Pow(factor, float64(level))
}

// Build produces levels 0 through ds.MaxLevel(base)
func Build(base *zarr.NDArray, ds Downsampler) (*Pyramid, error) {
	if base == nil {
		return nil, fmt.Errorf("%w: nil base array", ErrConstruction)
	}
	return BuildLevels(base, ds, ds.MaxLevel(base))
}

// BuildLevels produces levels 0 through maxLevel. Level 0 is base itself;
// level i is ds.Resize of level i-1. Any failure discards every level built
// so far.
func BuildLevels(base *zarr.NDArray, ds Downsampler, maxLevel int) (*Pyramid, error) {
	if base == nil {
		return nil, fmt.Errorf("%w: nil base array", ErrConstruction)
	}
	if maxLevel < 0 {
		return nil, fmt.Errorf("%w: negative max level %d", ErrConstruction, maxLevel)
	}
	factor := ds.DownscaleFactor()
	if !(factor > 0) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("%w: downscale factor %v", ErrConstruction, factor)
	}

	levels := make([]*zarr.NDArray, 1, maxLevel+1)
	levels[0] = base
	for i := 1; i <= maxLevel; i++ {
		next, err := ds.Resize(levels[i-1])
		if err != nil {
			return nil, &LevelError{Level: i, Err: err}
		}
		if next == nil || next.Rank() != base.Rank() || next.DataType() != base.DataType() {
			return nil, &LevelError{Level: i, Err: fmt.Errorf("resize returned %v, want rank %d %s", next, base.Rank(), base.DataType())}
		}
		levels = append(levels, next)
	}
	return &Pyramid{Levels: levels, Factor: factor}, nil
}
