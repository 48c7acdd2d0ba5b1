package ome

import (
	"errors"
	"fmt"
	"strings"
)

// AxisType is the semantic kind of an axis
type AxisType string

const (
	AxisTime    AxisType = "time"
	AxisChannel AxisType = "channel"
	AxisSpace   AxisType = "space"
)

const (
	UnitMillisecond = "millisecond"
	UnitMicrometer  = "micrometer"
)

// Axis describes one array dimension. Unit is empty for channel axes.
type Axis struct {
	Name string   `json:"name"`
	Type AxisType `json:"type"`
	Unit string   `json:"unit,omitempty"`
}

// ErrUnknownDimension is returned in strict mode for tags outside the known
// alphabet
var ErrUnknownDimension = errors.New("unknown dimension tag")

// AxisMode controls how unrecognized dimension tags are classified
type AxisMode int

const (
	// Lenient classifies any unrecognized tag as a space axis
	Lenient AxisMode = iota
	// Strict rejects tags outside t, c, z, y and x
	Strict
)

func (m AxisMode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// ParseAxisMode reads "strict" or "lenient"; an empty string is lenient
func ParseAxisMode(s string) (AxisMode, error) {
	switch strings.ToLower(s) {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	}
	return Lenient, fmt.Errorf("unknown axis mode %q", s)
}

// spatialTags is the alphabet of tags recognized as space axes in strict mode
const spatialTags = "zyx"

// DimensionOrder is a sequence of single character dimension tags such as
// "tczyx". Position i names dimension i of the array.
type DimensionOrder string

// Tags splits the order into its dimension tags
func (o DimensionOrder) Tags() []string {
	tags := make([]string, 0, len(o))
	for _, r := range string(o) {
		tags = append(tags, string(r))
	}
	return tags
}

// Rank is the number of dimensions the order names
func (o DimensionOrder) Rank() int {
	return len([]rune(string(o)))
}

// Index returns the position of tag, or -1
func (o DimensionOrder) Index(tag string) int {
	for i, t := range o.Tags() {
		if t == tag {
			return i
		}
	}
	return -1
}

// Validate checks that the order names rank unique dimensions. A negative
// rank skips the length check.
func (o DimensionOrder) Validate(rank int) error {
	if o == "" {
		return fmt.Errorf("%w: empty dimension order", ErrMetadata)
	}
	if rank >= 0 && o.Rank() != rank {
		return fmt.Errorf("%w: dimension order %q names %d dimensions, array has %d", ErrMetadata, o, o.Rank(), rank)
	}
	seen := map[rune]bool{}
	for _, r := range string(o) {
		if seen[r] {
			return fmt.Errorf("%w: dimension %q repeated in %q", ErrMetadata, r, o)
		}
		seen[r] = true
	}
	return nil
}

// DeriveAxes classifies each tag of order: "t" is time in milliseconds, "c"
// is a unitless channel, everything else is space in micrometers. In Strict
// mode only z, y and x are accepted as space.
func DeriveAxes(order DimensionOrder, mode AxisMode) ([]Axis, error) {
	tags := order.Tags()
	axes := make([]Axis, 0, len(tags))
	for _, tag := range tags {
		switch {
		case tag == "t":
			axes = append(axes, Axis{Name: tag, Type: AxisTime, Unit: UnitMillisecond})
		case tag == "c":
			axes = append(axes, Axis{Name: tag, Type: AxisChannel})
		case mode == Strict && !strings.Contains(spatialTags, tag):
			return nil, fmt.Errorf("%w: %q in %q", ErrUnknownDimension, tag, order)
		default:
			axes = append(axes, Axis{Name: tag, Type: AxisSpace, Unit: UnitMicrometer})
		}
	}
	return axes, nil
}
