package ome

import "strings"

const (
	// DefaultSpacing is the physical pixel size of a dimension with no
	// declared spacing
	DefaultSpacing = 1.0
	// DefaultTranslation is the offset of a dimension with no declared
	// translation
	DefaultTranslation = 0.0
)

// PixelSpacing maps a dimension tag to its physical size per pixel
type PixelSpacing map[string]float64

// GetOrDefault returns the spacing of tag, or def when it is absent
func (s PixelSpacing) GetOrDefault(tag string, def float64) float64 {
	if v, ok := s[tag]; ok {
		return v
	}
	return def
}

// Translation maps a dimension tag to a physical offset
type Translation map[string]float64

// GetOrDefault returns the offset of tag, or def when it is absent
func (t Translation) GetOrDefault(tag string, def float64) float64 {
	if v, ok := t[tag]; ok {
		return v
	}
	return def
}

// downscaledTags are the dimensions the pyramid reduces
const downscaledTags = "xy"

// ComputeTransform returns the scale and translation vectors of one pyramid
// level, ordered as order. Only x and y spacing is divided by
// cumulativeScale; every other dimension keeps its base spacing.
// Translation is independent of the level.
func ComputeTransform(order DimensionOrder, spacing PixelSpacing, translation Translation, cumulativeScale float64) (scale, offset []float64) {
	tags := order.Tags()
	scale = make([]float64, len(tags))
	offset = make([]float64, len(tags))
	for i, tag := range tags {
		scale[i] = spacing.GetOrDefault(tag, DefaultSpacing)
		if strings.Contains(downscaledTags, tag) {
			scale[i] /= cumulativeScale
		}
		offset[i] = translation.GetOrDefault(tag, DefaultTranslation)
	}
	return scale, offset
}
