package zarr

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

const (
	IndexLocationStart = "start"
	IndexLocationEnd   = "end"

	// shardEntryEmpty marks an index slot whose chunk was never written
	shardEntryEmpty = math.MaxUint64
	// shardEntrySize is one (offset, nbytes) pair
	shardEntrySize = 16
)

// shardLayout describes how the sharding_indexed codec packs inner chunks
// into one stored object: the encoded chunks back to back plus an index of
// (offset, nbytes) uint64 pairs, one per inner chunk in C order.
type shardLayout struct {
	chunksPerShard []int
	indexCodecs    *codecPipeline
	indexAtStart   bool
	indexSize      int
}

type shardEntry struct {
	offset, nbytes uint64
}

func (e shardEntry) empty() bool {
	return e.offset == shardEntryEmpty && e.nbytes == shardEntryEmpty
}

func shardingCodec(inner []int, chunkCodecs []CodecMeta) CodecMeta {
	return newCodecMeta(CodecSharding, ShardingConfig{
		ChunkShape: inner,
		Codecs:     chunkCodecs,
		IndexCodecs: []CodecMeta{
			newCodecMeta(CodecBytes, BytesConfig{Endian: "little"}),
			newCodecMeta(CodecCRC32C, nil),
		},
		IndexLocation: IndexLocationEnd,
	})
}

// newShardLayout parses a sharding_indexed configuration for shards of
// extent outer, returning the layout and the inner chunk codec pipeline
func newShardLayout(m CodecMeta, outer []int, dt DataType) (*shardLayout, []int, *codecPipeline, error) {
	cfg := ShardingConfig{}
	if err := json.Unmarshal(m.Configuration, &cfg); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: sharding configuration: %s", ErrInvalidMetadata, err)
	}
	if len(cfg.ChunkShape) != len(outer) {
		return nil, nil, nil, fmt.Errorf("%w: inner chunk shape %v has rank %d, shard rank is %d", ErrInvalidMetadata, cfg.ChunkShape, len(cfg.ChunkShape), len(outer))
	}
	cps := make([]int, len(outer))
	for d := range outer {
		if cfg.ChunkShape[d] <= 0 || outer[d]%cfg.ChunkShape[d] != 0 {
			return nil, nil, nil, fmt.Errorf("%w: shard shape %v is not a multiple of chunk shape %v", ErrInvalidMetadata, outer, cfg.ChunkShape)
		}
		cps[d] = outer[d] / cfg.ChunkShape[d]
	}

	inner, err := newCodecPipeline(cfg.Codecs, dt)
	if err != nil {
		return nil, nil, nil, err
	}
	index, err := newCodecPipeline(cfg.IndexCodecs, Uint64)
	if err != nil {
		return nil, nil, nil, err
	}
	overhead, ok := index.fixedOverhead()
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: shard index codecs must have a fixed size", ErrUnsupportedCodec)
	}

	l := &shardLayout{chunksPerShard: cps, indexCodecs: index}
	switch cfg.IndexLocation {
	case "", IndexLocationEnd:
	case IndexLocationStart:
		l.indexAtStart = true
	default:
		return nil, nil, nil, fmt.Errorf("%w: index_location %q", ErrInvalidMetadata, cfg.IndexLocation)
	}
	l.indexSize = numElements(cps)*shardEntrySize + overhead
	return l, cfg.ChunkShape, inner, nil
}

func (l *shardLayout) numChunks() int {
	return numElements(l.chunksPerShard)
}

// encode assembles a shard from encoded inner chunks; nil entries are
// recorded as absent
func (l *shardLayout) encode(chunks [][]byte) ([]byte, error) {
	index := make([]byte, len(chunks)*shardEntrySize)
	off := uint64(0)
	if l.indexAtStart {
		off = uint64(l.indexSize)
	}
	body := &bytes.Buffer{}
	for i, c := range chunks {
		e := shardEntry{shardEntryEmpty, shardEntryEmpty}
		if c != nil {
			e = shardEntry{off, uint64(len(c))}
			body.Write(c)
			off += uint64(len(c))
		}
		binary.LittleEndian.PutUint64(index[i*shardEntrySize:], e.offset)
		binary.LittleEndian.PutUint64(index[i*shardEntrySize+8:], e.nbytes)
	}

	enc, err := l.indexCodecs.encode(index)
	if err != nil {
		return nil, err
	}
	if len(enc) != l.indexSize {
		return nil, fmt.Errorf("encoded shard index is %d bytes, want %d", len(enc), l.indexSize)
	}
	if l.indexAtStart {
		return append(enc, body.Bytes()...), nil
	}
	return append(body.Bytes(), enc...), nil
}

// decodeIndex reads and verifies the index of a stored shard
func (l *shardLayout) decodeIndex(shard []byte) ([]shardEntry, error) {
	if len(shard) < l.indexSize {
		return nil, fmt.Errorf("%w: shard of %d bytes cannot hold a %d byte index", ErrInvalidMetadata, len(shard), l.indexSize)
	}
	raw := shard[len(shard)-l.indexSize:]
	if l.indexAtStart {
		raw = shard[:l.indexSize]
	}
	n := l.numChunks()
	dec, err := l.indexCodecs.decode(raw, n*shardEntrySize)
	if err != nil {
		return nil, fmt.Errorf("shard index: %w", err)
	}
	entries := make([]shardEntry, n)
	for i := range entries {
		entries[i] = shardEntry{
			offset: binary.LittleEndian.Uint64(dec[i*shardEntrySize:]),
			nbytes: binary.LittleEndian.Uint64(dec[i*shardEntrySize+8:]),
		}
	}
	return entries, nil
}

// chunk slices the encoded bytes of entry e out of shard
func (l *shardLayout) chunk(shard []byte, e shardEntry) ([]byte, error) {
	end := e.offset + e.nbytes
	if end < e.offset || end > uint64(len(shard)) {
		return nil, fmt.Errorf("%w: shard entry [%d, %d) outside %d byte shard", ErrInvalidMetadata, e.offset, end, len(shard))
	}
	return shard[e.offset:end], nil
}
