package zarr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Node is an element of a zarr hierarchy. Callers classify nodes through the
// AsGroup / AsArray accessors rather than by inspecting concrete types.
type Node interface {
	Path() string
	Attributes() Attributes
	AsGroup() (*Group, bool)
	AsArray() (*Array, bool)
}

// OpenNode loads whichever node lives at path
func OpenNode(store Store, path string) (Node, error) {
	p, err := NewPath(path)
	if err != nil {
		return nil, err
	}
	return openNode(store, p, ModeRead)
}

func openNode(store Store, p Path, mode PersistenceMode) (Node, error) {
	data, err := readMetaDoc(store, p)
	if err != nil {
		return nil, err
	}
	h, err := decodeHeader(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Key(MetadataKey), err)
	}
	if h.NodeType == NodeGroup {
		g := &Group{path: p, store: store, meta: &GroupMeta{}}
		if err := json.Unmarshal(data, g.meta); err != nil {
			return nil, fmt.Errorf("%w: %s: %s", ErrInvalidMetadata, p.Key(MetadataKey), err)
		}
		return g, nil
	}
	meta := &ArrayMeta{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidMetadata, p.Key(MetadataKey), err)
	}
	return newArray(store, p, mode, meta)
}

// ArraySpec describes an array to create
type ArraySpec struct {
	Shape    []int
	DataType DataType
	// ChunkShape is the extent of the atomic unit of stored data
	ChunkShape []int
	// ShardShape groups chunks into one stored object per shard. It must be a
	// multiple of ChunkShape in every dimension; nil stores chunks
	// individually.
	ShardShape     []int
	DimensionNames []string
	FillValue      float64
	Compressor     CompressionMeta
	Attributes     Attributes
	// WriteEmptyChunks stores chunks whose every element equals FillValue
	// instead of leaving them absent
	WriteEmptyChunks bool
}

func (s ArraySpec) meta() (*ArrayMeta, error) {
	if !s.DataType.Valid() {
		return nil, fmt.Errorf("%w: data type %q", ErrInvalidMetadata, s.DataType)
	}
	if len(s.ChunkShape) != len(s.Shape) {
		return nil, fmt.Errorf("%w: chunk shape %v for array shape %v", ErrShape, s.ChunkShape, s.Shape)
	}
	compressors, err := s.Compressor.codecs()
	if err != nil {
		return nil, err
	}
	chunkCodecs := append([]CodecMeta{bytesCodecMeta(s.DataType)}, compressors...)

	m := &ArrayMeta{
		ZarrFormat:          ZarrFormat,
		NodeType:            NodeArray,
		Shape:               append([]int(nil), s.Shape...),
		DataType:            s.DataType,
		FillValue:           fillValueJSON(s.DataType, s.FillValue),
		Codecs:              chunkCodecs,
		Attributes:          s.Attributes,
		DimensionNames:      s.DimensionNames,
		StorageTransformers: []json.RawMessage{},
	}
	m.ChunkGrid.Name = "regular"
	m.ChunkGrid.Configuration.ChunkShape = append([]int(nil), s.ChunkShape...)
	m.ChunkKeyEncoding.Name = "default"
	m.ChunkKeyEncoding.Configuration.Separator = "/"

	if s.ShardShape != nil {
		if len(s.ShardShape) != len(s.Shape) {
			return nil, fmt.Errorf("%w: shard shape %v for array shape %v", ErrShape, s.ShardShape, s.Shape)
		}
		m.ChunkGrid.Configuration.ChunkShape = append([]int(nil), s.ShardShape...)
		m.Codecs = []CodecMeta{shardingCodec(s.ChunkShape, chunkCodecs)}
	}
	return m, m.Validate()
}

// bytesCodecMeta omits endianness for single byte types, which have none
func bytesCodecMeta(dt DataType) CodecMeta {
	if dt.Size() == 1 {
		return newCodecMeta(CodecBytes, nil)
	}
	return newCodecMeta(CodecBytes, BytesConfig{Endian: "little"})
}

// Array is a handle on a stored n-dimensional array. Creating one writes only
// its metadata document; element data is written separately with Write.
type Array struct {
	path  Path
	store Store
	mode  PersistenceMode
	meta  *ArrayMeta

	grid       chunkGrid // cells are shards when sharded
	inner      []int
	codecs     *codecPipeline
	shards     *shardLayout
	fill       float64
	writeEmpty bool
}

// Create writes the metadata document of a new array at path. No chunk data
// is materialized.
func Create(store Store, path string, spec ArraySpec) (*Array, error) {
	p, err := NewPath(path)
	if err != nil {
		return nil, err
	}
	return createArray(store, p, spec)
}

func createArray(store Store, p Path, spec ArraySpec) (*Array, error) {
	meta, err := spec.meta()
	if err != nil {
		return nil, err
	}
	// resolve the codec pipeline before anything reaches the store
	a, err := newArray(store, p, ModeWrite, meta)
	if err != nil {
		return nil, err
	}
	a.writeEmpty = spec.WriteEmptyChunks
	doc, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	if err := store.Put(p.Key(MetadataKey), bytes.NewReader(doc)); err != nil {
		return nil, err
	}
	return a, nil
}

// Open loads the array stored at path
func Open(store Store, path string, mode PersistenceMode) (*Array, error) {
	p, err := NewPath(path)
	if err != nil {
		return nil, err
	}
	n, err := openNode(store, p, mode)
	if err != nil {
		return nil, err
	}
	a, ok := n.AsArray()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotArray, path)
	}
	return a, nil
}

func newArray(store Store, p Path, mode PersistenceMode, meta *ArrayMeta) (*Array, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", p.Key(MetadataKey), err)
	}
	fill, err := parseFillValue(meta.FillValue)
	if err != nil {
		return nil, err
	}
	a := &Array{
		path:  p,
		store: store,
		mode:  mode,
		meta:  meta,
		grid:  chunkGrid{shape: meta.Shape, chunk: meta.ChunkGrid.Configuration.ChunkShape},
		fill:  fill,
	}

	if meta.Codecs[0].Name == CodecSharding {
		if len(meta.Codecs) > 1 {
			return nil, fmt.Errorf("%w: codecs after %s", ErrUnsupportedCodec, CodecSharding)
		}
		a.shards, a.inner, a.codecs, err = newShardLayout(meta.Codecs[0], a.grid.chunk, meta.DataType)
	} else {
		a.inner = a.grid.chunk
		a.codecs, err = newCodecPipeline(meta.Codecs, meta.DataType)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Key(MetadataKey), err)
	}
	return a, nil
}

func (a *Array) Path() string {
	return a.path.String()
}

// Name is the last segment of the array's path
func (a *Array) Name() string {
	return a.path.Name()
}

func (a *Array) Meta() *ArrayMeta         { return a.meta }
func (a *Array) Attributes() Attributes   { return a.meta.Attributes }
func (a *Array) DataType() DataType       { return a.meta.DataType }
func (a *Array) Shape() []int             { return append([]int(nil), a.meta.Shape...) }
func (a *Array) ChunkShape() []int        { return append([]int(nil), a.inner...) }
func (a *Array) DimensionNames() []string { return a.meta.DimensionNames }
func (a *Array) FillValue() float64       { return a.fill }
func (a *Array) AsGroup() (*Group, bool)  { return nil, false }
func (a *Array) AsArray() (*Array, bool)  { return a, true }

// ShardShape is nil for unsharded arrays
func (a *Array) ShardShape() []int {
	if a.shards == nil {
		return nil
	}
	return append([]int(nil), a.grid.chunk...)
}

func (a *Array) cellKey(coords []int) string {
	return a.path.Key(chunkKey(coords, a.meta.ChunkKeyEncoding.Name, a.meta.separator()))
}

// Write stores the full contents of the array. data must match the array's
// data type and shape.
func (a *Array) Write(data *NDArray) error {
	if a.mode == ModeRead {
		return fmt.Errorf("%w: %s", ErrReadOnly, a.Path())
	}
	if data.DataType() != a.meta.DataType {
		return fmt.Errorf("%w: writing %s data into %s array %s", ErrShape, data.DataType(), a.meta.DataType, a.Path())
	}
	if !equalInts(data.shape, a.meta.Shape) {
		return fmt.Errorf("%w: writing %v data into %v array %s", ErrShape, data.shape, a.meta.Shape, a.Path())
	}

	fillChunk := a.fillChunk()
	var err error
	forEachIndex(a.grid.gridShape(), func(coords []int) bool {
		err = a.writeCell(data, coords, fillChunk)
		return err == nil
	})
	return err
}

func (a *Array) fillChunk() []byte {
	c, _ := NewNDArray(a.meta.DataType, a.inner)
	c.Fill(a.fill)
	return c.data
}

// writeCell stores one chunk, or one shard worth of chunks
func (a *Array) writeCell(data *NDArray, coords []int, fillChunk []byte) error {
	origin := a.grid.origin(coords)
	key := a.cellKey(coords)
	if a.shards == nil {
		enc, err := a.encodeChunk(data, origin, fillChunk)
		if err != nil || enc == nil {
			return err
		}
		return a.store.Put(key, bytes.NewReader(enc))
	}

	chunks := make([][]byte, a.shards.numChunks())
	stored := false
	i := 0
	var err error
	forEachIndex(a.shards.chunksPerShard, func(rel []int) bool {
		chunkOrigin := make([]int, len(rel))
		inside := true
		for d := range rel {
			chunkOrigin[d] = origin[d] + rel[d]*a.inner[d]
			inside = inside && chunkOrigin[d] < a.meta.Shape[d]
		}
		if inside {
			chunks[i], err = a.encodeChunk(data, chunkOrigin, fillChunk)
			stored = stored || chunks[i] != nil
		}
		i++
		return err == nil
	})
	if err != nil || !stored {
		return err
	}
	shard, err := a.shards.encode(chunks)
	if err != nil {
		return err
	}
	return a.store.Put(key, bytes.NewReader(shard))
}

// encodeChunk extracts the chunk starting at origin, padding past the array
// edge with the fill value. It returns nil for chunks that hold only the
// fill value unless empty chunks are kept.
func (a *Array) encodeChunk(data *NDArray, origin []int, fillChunk []byte) ([]byte, error) {
	buf := make([]byte, len(fillChunk))
	copy(buf, fillChunk)
	ext := make([]int, len(origin))
	for d := range origin {
		ext[d] = min(a.inner[d], a.meta.Shape[d]-origin[d])
	}
	copyRegion(buf, a.inner, make([]int, len(origin)), data.data, data.shape, origin, ext, a.meta.DataType.Size())
	if !a.writeEmpty && bytes.Equal(buf, fillChunk) {
		return nil, nil
	}
	return a.codecs.encode(buf)
}

// ReadAll loads the complete array into memory
func (a *Array) ReadAll() (*NDArray, error) {
	return a.ReadRegion(make([]int, len(a.meta.Shape)), a.meta.Shape)
}

// ReadRegion loads the box [origin, origin+shape). Elements in chunks that
// were never written take the fill value.
func (a *Array) ReadRegion(origin, shape []int) (*NDArray, error) {
	rank := len(a.meta.Shape)
	if len(origin) != rank || len(shape) != rank {
		return nil, fmt.Errorf("%w: region rank does not match array rank %d", ErrShape, rank)
	}
	for d := 0; d < rank; d++ {
		if origin[d] < 0 || shape[d] < 0 || origin[d]+shape[d] > a.meta.Shape[d] {
			return nil, fmt.Errorf("%w: region %v+%v outside array shape %v", ErrShape, origin, shape, a.meta.Shape)
		}
	}

	out, err := NewNDArray(a.meta.DataType, shape)
	if err != nil {
		return nil, err
	}
	out.Fill(a.fill)

	inner := chunkGrid{shape: a.meta.Shape, chunk: a.inner}
	shards := map[string]*loadedShard{}
	for _, p := range inner.project(origin, shape) {
		chunk, err := a.loadChunk(p.ChunkCoords, shards)
		if err != nil {
			return nil, fmt.Errorf("%s chunk %v: %w", a.Path(), p.ChunkCoords, err)
		}
		if chunk == nil {
			continue
		}
		copyRegion(out.data, shape, p.OutOrigin, chunk, a.inner, p.ChunkOrigin, p.Shape, a.meta.DataType.Size())
	}
	return out, nil
}

type loadedShard struct {
	data    []byte
	entries []shardEntry
}

// loadChunk returns the decoded bytes of the inner chunk at coords, or nil
// if it was never written
func (a *Array) loadChunk(coords []int, shards map[string]*loadedShard) ([]byte, error) {
	want := numElements(a.inner) * a.meta.DataType.Size()
	if a.shards == nil {
		enc, err := a.get(a.cellKey(coords))
		if enc == nil || err != nil {
			return nil, err
		}
		return a.codecs.decode(enc, want)
	}

	cps := a.shards.chunksPerShard
	shardCoords, rel := make([]int, len(coords)), make([]int, len(coords))
	for d, c := range coords {
		shardCoords[d], rel[d] = c/cps[d], c%cps[d]
	}
	key := a.cellKey(shardCoords)
	s, ok := shards[key]
	if !ok {
		data, err := a.get(key)
		if err != nil {
			return nil, err
		}
		s = &loadedShard{data: data}
		if data != nil {
			if s.entries, err = a.shards.decodeIndex(data); err != nil {
				return nil, err
			}
		}
		shards[key] = s
	}
	if s.data == nil {
		return nil, nil
	}
	e := s.entries[linearIndex(rel, cps)]
	if e.empty() {
		return nil, nil
	}
	enc, err := a.shards.chunk(s.data, e)
	if err != nil {
		return nil, err
	}
	return a.codecs.decode(enc, want)
}

// get reads a whole store value, mapping a missing key to nil
func (a *Array) get(key string) ([]byte, error) {
	r, err := a.store.Get(key)
	if errors.Is(err, ErrNotfound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

type PersistenceMode string

const (
	// Persistence mode:
	// ‘r’ means read only (must exist);
	ModeRead PersistenceMode = "r"
	//‘r+’ means read/write (must exist)
	ModeReadWrite PersistenceMode = "r+"
	// ‘w’ means create (overwrite if exists)
	ModeWrite PersistenceMode = "w"
	// ‘w-’ means create (fail if exists).
	ModeWriteFail PersistenceMode = "w-"
)

// Path is a normalized logical location in a store. The root is the empty
// Path.
type Path []string

// NewPath normalizes a logical path:
// * Replace all backward slash characters ("\") with forward slash characters ("/")
// * Strip any leading "/" characters
// * Strip any trailing "/" characters
// * Collapse any sequence of more than one "/" character into a single "/" character
func NewPath(posix string) (Path, error) {
	posix = strings.ReplaceAll(posix, "\\", "/")
	var p Path
	for _, seg := range strings.Split(posix, "/") {
		switch seg {
		case "":
			continue
		case ".", "..":
			return nil, fmt.Errorf("invalid path segment %q in %q", seg, posix)
		}
		p = append(p, seg)
	}
	return p, nil
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

// Name is the final segment, empty for the root
func (p Path) Name() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Join returns a new Path; p is never modified
func (p Path) Join(elems ...string) Path {
	out := make(Path, 0, len(p)+len(elems))
	return append(append(out, p...), elems...)
}

// Key is the store key of name beneath p
func (p Path) Key(name string) string {
	if len(p) == 0 {
		return name
	}
	return p.String() + "/" + name
}
