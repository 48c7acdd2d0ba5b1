package zarr

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
)

const (
	// ZarrFormat is the storage specification version written by this package
	ZarrFormat = 3
	// MetadataKey is the document name holding node metadata for both arrays
	// and groups
	MetadataKey = "zarr.json"
)

// NodeType distinguishes the two kinds of node a zarr hierarchy holds
type NodeType string

const (
	NodeArray NodeType = "array"
	NodeGroup NodeType = "group"
)

// Attributes stores userland metadata on a node
type Attributes map[string]interface{}

// nodeHeader holds the fields every node document shares, enough to decide
// how to decode the rest
type nodeHeader struct {
	ZarrFormat int      `json:"zarr_format"`
	NodeType   NodeType `json:"node_type"`
}

// GroupMeta is the "zarr.json" document of a group
type GroupMeta struct {
	ZarrFormat int        `json:"zarr_format"`
	NodeType   NodeType   `json:"node_type"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// Each array requires essential configuration metadata to be stored,
// enabling correct interpretation of the stored data.
// This metadata is encoded using JSON and stored as the value of the
// "zarr.json" key within an array's path.
type ArrayMeta struct {
	// An integer defining the version of the storage specification to which
	// the array store adheres.
	ZarrFormat int      `json:"zarr_format"`
	NodeType   NodeType `json:"node_type"`
	// A list of integers defining the length of each dimension of the array.
	Shape []int `json:"shape"`
	// The name of a core data type
	DataType DataType `json:"data_type"`
	// Partitioning of the array into chunks. With sharding the grid cells are
	// shards, and the sharding codec carries the inner chunk shape.
	ChunkGrid ChunkGrid `json:"chunk_grid"`
	// How chunk grid coordinates map to store keys
	ChunkKeyEncoding ChunkKeyEncoding `json:"chunk_key_encoding"`
	// A scalar value providing the default value to use for uninitialized
	// portions of the array. Floating point arrays may use the strings "NaN",
	// "Infinity" and "-Infinity".
	FillValue interface{} `json:"fill_value"`
	// Ordered list of codecs applied to each chunk: exactly one array-to-bytes
	// codec ("bytes" or "sharding_indexed") followed by bytes-to-bytes codecs.
	Codecs []CodecMeta `json:"codecs"`

	// optional fields

	Attributes Attributes `json:"attributes,omitempty"`
	// Names for each dimension, in dimension order
	DimensionNames      []string          `json:"dimension_names,omitempty"`
	StorageTransformers []json.RawMessage `json:"storage_transformers"`
}

type ChunkGrid struct {
	Name          string `json:"name"`
	Configuration struct {
		ChunkShape []int `json:"chunk_shape"`
	} `json:"configuration"`
}

type ChunkKeyEncoding struct {
	Name          string `json:"name"`
	Configuration struct {
		Separator string `json:"separator"`
	} `json:"configuration"`
}

const (
	// Not a Number
	FillValueNaN = "NaN"
	// Infinity
	FillValueInfinity = "Infinity"
	// -Infinity
	FillValueNegativeInfinity = "-Infinity"
)

func newGroupMeta(attrs Attributes) *GroupMeta {
	return &GroupMeta{
		ZarrFormat: ZarrFormat,
		NodeType:   NodeGroup,
		Attributes: attrs,
	}
}

func decodeHeader(data []byte) (nodeHeader, error) {
	h := nodeHeader{}
	if err := json.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("%w: %s", ErrInvalidMetadata, err)
	}
	if h.ZarrFormat != ZarrFormat {
		return h, fmt.Errorf("%w: zarr_format %d, want %d", ErrInvalidMetadata, h.ZarrFormat, ZarrFormat)
	}
	switch h.NodeType {
	case NodeArray, NodeGroup:
	default:
		return h, fmt.Errorf("%w: unknown node_type %q", ErrInvalidMetadata, h.NodeType)
	}
	return h, nil
}

func readMetaDoc(s Store, p Path) ([]byte, error) {
	r, err := s.Get(p.Key(MetadataKey))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Validate checks an array document for internal consistency
func (m *ArrayMeta) Validate() error {
	if m.ZarrFormat != ZarrFormat || m.NodeType != NodeArray {
		return fmt.Errorf("%w: not a zarr v3 array document", ErrInvalidMetadata)
	}
	if !m.DataType.Valid() {
		return fmt.Errorf("%w: data_type %q", ErrInvalidMetadata, m.DataType)
	}
	if err := checkShape(m.Shape); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMetadata, err)
	}
	if m.ChunkGrid.Name != "regular" {
		return fmt.Errorf("%w: chunk grid %q", ErrUnsupported, m.ChunkGrid.Name)
	}
	cs := m.ChunkGrid.Configuration.ChunkShape
	if len(cs) != len(m.Shape) {
		return fmt.Errorf("%w: chunk_shape %v has rank %d, shape has rank %d", ErrInvalidMetadata, cs, len(cs), len(m.Shape))
	}
	for d, n := range cs {
		if n <= 0 {
			return fmt.Errorf("%w: chunk_shape[%d] = %d", ErrInvalidMetadata, d, n)
		}
	}
	if m.ChunkKeyEncoding.Name != "default" && m.ChunkKeyEncoding.Name != "v2" {
		return fmt.Errorf("%w: chunk key encoding %q", ErrUnsupported, m.ChunkKeyEncoding.Name)
	}
	if m.DimensionNames != nil && len(m.DimensionNames) != len(m.Shape) {
		return fmt.Errorf("%w: %d dimension names for rank %d", ErrInvalidMetadata, len(m.DimensionNames), len(m.Shape))
	}
	if len(m.Codecs) == 0 {
		return fmt.Errorf("%w: empty codec list", ErrInvalidMetadata)
	}
	return nil
}

// separator returns the chunk key separator, applying each encoding's default
func (m *ArrayMeta) separator() string {
	if sep := m.ChunkKeyEncoding.Configuration.Separator; sep != "" {
		return sep
	}
	if m.ChunkKeyEncoding.Name == "v2" {
		return "."
	}
	return "/"
}

// fillValueJSON renders v the way the zarr v3 spec encodes fill values for dt
func fillValueJSON(dt DataType, v float64) interface{} {
	switch dt.BasicType() {
	case BTBoolean:
		return v != 0
	case BTInteger, BTUnsigned:
		// saturate at the bounds of dt itself
		b := make([]byte, dt.Size())
		encodeElement(dt, b, v)
		if dt.BasicType() == BTUnsigned {
			return uint64(decodeElement(dt, b))
		}
		return int64(decodeElement(dt, b))
	}
	switch {
	case math.IsNaN(v):
		return FillValueNaN
	case math.IsInf(v, 1):
		return FillValueInfinity
	case math.IsInf(v, -1):
		return FillValueNegativeInfinity
	}
	return v
}

// parseFillValue reads a decoded JSON fill value back into a float64
func parseFillValue(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		switch v {
		case FillValueNaN:
			return math.NaN(), nil
		case FillValueInfinity:
			return math.Inf(1), nil
		case FillValueNegativeInfinity:
			return math.Inf(-1), nil
		}
	}
	return 0, fmt.Errorf("%w: fill_value %v", ErrUnsupported, raw)
}
