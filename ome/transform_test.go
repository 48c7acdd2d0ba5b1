package ome

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTransformIdentity(t *testing.T) {
	scale, offset := ComputeTransform("yx", PixelSpacing{"x": 1, "y": 1}, nil, 1)
	assert.Equal(t, []float64{1, 1}, scale)
	assert.Equal(t, []float64{0, 0}, offset)
}

func TestComputeTransformLevel(t *testing.T) {
	scale, offset := ComputeTransform("tcyx", PixelSpacing{"x": 0.5, "y": 0.5}, Translation{}, 4)
	assert.Equal(t, []float64{1, 1, 0.125, 0.125}, scale)
	assert.Equal(t, []float64{0, 0, 0, 0}, offset)
}

func TestComputeTransformOnlyXYScale(t *testing.T) {
	spacing := PixelSpacing{"t": 100, "z": 2, "y": 0.25, "x": 0.5}
	translation := Translation{"z": -3, "x": 10}
	orders := []DimensionOrder{"yx", "tczyx", "xy", "zc", "q"}
	for _, order := range orders {
		base, baseOffset := ComputeTransform(order, spacing, translation, 1)
		for _, cs := range []float64{2, 8, 1024} {
			scale, offset := ComputeTransform(order, spacing, translation, cs)
			assert.Len(t, scale, order.Rank())
			assert.Len(t, offset, order.Rank())
			assert.Equal(t, baseOffset, offset)
			for i, tag := range order.Tags() {
				if tag == "x" || tag == "y" {
					assert.Equal(t, base[i]/cs, scale[i], "%s %s", order, tag)
				} else {
					assert.Equal(t, base[i], scale[i], "%s %s", order, tag)
				}
			}
		}
	}
}

func TestGetOrDefault(t *testing.T) {
	var s PixelSpacing
	assert.Equal(t, DefaultSpacing, s.GetOrDefault("x", DefaultSpacing))
	s = PixelSpacing{"x": 0.3}
	assert.Equal(t, 0.3, s.GetOrDefault("x", DefaultSpacing))

	var tr Translation
	assert.Equal(t, DefaultTranslation, tr.GetOrDefault("x", DefaultTranslation))
	tr = Translation{"x": -1}
	assert.Equal(t, -1.0, tr.GetOrDefault("x", DefaultTranslation))
}
