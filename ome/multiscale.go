package ome

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	zarr "github.com/qri-io/ome-zarr-go"
	"github.com/qri-io/ome-zarr-go/pyramid"
)

// Version is the OME-Zarr metadata version written by this package
const Version = "0.5"

// AttributesKey is the group attribute holding the OME metadata
const AttributesKey = "ome"

var (
	// ErrMetadata is returned when axis or transform assembly produces
	// inconsistent vectors
	ErrMetadata = errors.New("inconsistent multiscale metadata")
	// ErrMetadataFormat is returned when a stored document does not parse
	// into the expected schema
	ErrMetadataFormat = errors.New("invalid OME metadata document")
)

const (
	TransformScale       = "scale"
	TransformTranslation = "translation"
)

// CoordinateTransformation maps array indices to physical coordinates
type CoordinateTransformation struct {
	Type        string    `json:"type"`
	Scale       []float64 `json:"scale,omitempty"`
	Translation []float64 `json:"translation,omitempty"`
}

// Dataset is one resolution level of a multiscale image
type Dataset struct {
	Path                      string                     `json:"path"`
	CoordinateTransformations []CoordinateTransformation `json:"coordinateTransformations"`
}

type Multiscale struct {
	Name     string    `json:"name,omitempty"`
	Axes     []Axis    `json:"axes"`
	Datasets []Dataset `json:"datasets"`
}

// Image is the value of the "ome" attribute of an image group
type Image struct {
	Version     string       `json:"version"`
	Multiscales []Multiscale `json:"multiscales"`
}

// Level is the geometry of one dataset, vectors in axis order
type Level struct {
	Path        string
	Scale       []float64
	Translation []float64
}

// Assemble builds the metadata document of pyramid p. Datasets are listed
// in level order with paths "0", "1", ..., each carrying a scale then a
// translation transform computed for that level's cumulative scale.
func Assemble(order DimensionOrder, spacing PixelSpacing, translation Translation, p *pyramid.Pyramid, mode AxisMode) (*Image, error) {
	if p == nil || len(p.Levels) == 0 {
		return nil, fmt.Errorf("%w: no pyramid levels", ErrMetadata)
	}
	for i, l := range p.Levels {
		if err := order.Validate(l.Rank()); err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
	}
	axes, err := DeriveAxes(order, mode)
	if err != nil {
		return nil, err
	}

	ms := Multiscale{Axes: axes, Datasets: make([]Dataset, 0, len(p.Levels))}
	for i := range p.Levels {
		scale, offset := ComputeTransform(order, spacing, translation, p.CumulativeScale(i))
		if len(scale) != len(axes) || len(offset) != len(axes) {
			return nil, fmt.Errorf("%w: level %d has %d scale and %d translation values for %d axes", ErrMetadata, i, len(scale), len(offset), len(axes))
		}
		ms.Datasets = append(ms.Datasets, Dataset{
			Path: strconv.Itoa(i),
			CoordinateTransformations: []CoordinateTransformation{
				{Type: TransformScale, Scale: scale},
				{Type: TransformTranslation, Translation: offset},
			},
		})
	}
	return &Image{Version: Version, Multiscales: []Multiscale{ms}}, nil
}

// Axes of the first multiscale
func (img *Image) Axes() []Axis {
	if len(img.Multiscales) == 0 {
		return nil
	}
	return img.Multiscales[0].Axes
}

// DimensionOrder reassembles the axis names into an order string
func (img *Image) DimensionOrder() DimensionOrder {
	var o DimensionOrder
	for _, ax := range img.Axes() {
		o += DimensionOrder(ax.Name)
	}
	return o
}

// Levels extracts the per dataset geometry of the first multiscale. A
// dataset without a translation transform reports zero offsets.
func (img *Image) Levels() ([]Level, error) {
	if len(img.Multiscales) == 0 {
		return nil, fmt.Errorf("%w: no multiscales", ErrMetadataFormat)
	}
	ms := img.Multiscales[0]
	levels := make([]Level, 0, len(ms.Datasets))
	for _, ds := range ms.Datasets {
		l := Level{Path: ds.Path}
		for _, ct := range ds.CoordinateTransformations {
			switch ct.Type {
			case TransformScale:
				l.Scale = ct.Scale
			case TransformTranslation:
				l.Translation = ct.Translation
			}
		}
		if len(l.Scale) != len(ms.Axes) {
			return nil, fmt.Errorf("%w: dataset %q has %d scale values for %d axes", ErrMetadataFormat, ds.Path, len(l.Scale), len(ms.Axes))
		}
		if l.Translation == nil {
			l.Translation = make([]float64, len(ms.Axes))
		}
		if len(l.Translation) != len(ms.Axes) {
			return nil, fmt.Errorf("%w: dataset %q has %d translation values for %d axes", ErrMetadataFormat, ds.Path, len(l.Translation), len(ms.Axes))
		}
		levels = append(levels, l)
	}
	return levels, nil
}

// Attributes wraps img for storage as group attributes
func (img *Image) Attributes() zarr.Attributes {
	return zarr.Attributes{AttributesKey: img}
}

// Index is the compact record stamped into an archive's comment
func (img *Image) Index() Index {
	return Index{OME: IndexOME{Version: img.Version}}
}

// ParseImage reads the OME metadata out of group attributes, validating it
// against the image schema and the supported version range
func ParseImage(attrs zarr.Attributes) (*Image, error) {
	raw, ok := attrs[AttributesKey]
	if !ok {
		return nil, fmt.Errorf("%w: no %q attribute", ErrMetadataFormat, AttributesKey)
	}
	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMetadataFormat, err)
	}
	return DecodeImage(doc)
}

// DecodeImage parses the JSON value of an "ome" attribute
func DecodeImage(doc []byte) (*Image, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}
	img := &Image{}
	if err := json.Unmarshal(doc, img); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMetadataFormat, err)
	}
	if err := CheckVersion(img.Version); err != nil {
		return nil, err
	}
	if _, err := img.Levels(); err != nil {
		return nil, err
	}
	return img, nil
}

// Index is the top-level archive index: {"ome":{"version":"0.5"}}
type Index struct {
	OME IndexOME `json:"ome"`
}

type IndexOME struct {
	Version string `json:"version"`
}

func (i Index) MarshalBinary() ([]byte, error) {
	return json.Marshal(i)
}

// ParseIndex decodes an archive comment
func ParseIndex(data []byte) (Index, error) {
	i := Index{}
	if err := json.Unmarshal(data, &i); err != nil {
		return i, fmt.Errorf("%w: archive index: %s", ErrMetadataFormat, err)
	}
	if err := CheckVersion(i.OME.Version); err != nil {
		return i, err
	}
	return i, nil
}
