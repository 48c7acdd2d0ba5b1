package zarr

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/qri-io/dataset/compression"
)

// codec names understood by this package
const (
	CodecBytes    = "bytes"
	CodecGzip     = "gzip"
	CodecZstd     = "zstd"
	CodecCRC32C   = "crc32c"
	CodecSharding = "sharding_indexed"
)

// CodecMeta is one entry of an array's "codecs" list
type CodecMeta struct {
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
}

type BytesConfig struct {
	Endian string `json:"endian,omitempty"`
}

type GzipConfig struct {
	Level int `json:"level"`
}

type ZstdConfig struct {
	Level    int  `json:"level"`
	Checksum bool `json:"checksum"`
}

type ShardingConfig struct {
	ChunkShape    []int       `json:"chunk_shape"`
	Codecs        []CodecMeta `json:"codecs"`
	IndexCodecs   []CodecMeta `json:"index_codecs"`
	IndexLocation string      `json:"index_location"`
}

func newCodecMeta(name string, cfg interface{}) CodecMeta {
	m := CodecMeta{Name: name}
	if cfg != nil {
		// configurations are plain structs; marshalling cannot fail
		m.Configuration, _ = json.Marshal(cfg)
	}
	return m
}

// CompressionMeta selects the bytes-to-bytes compressor applied to new
// chunks. An empty ID stores chunks raw.
type CompressionMeta struct {
	ID       string `json:"id" toml:"id"`
	Level    int    `json:"level,omitempty" toml:"level"`
	Checksum bool   `json:"checksum,omitempty" toml:"checksum"`
}

func (m CompressionMeta) codecs() ([]CodecMeta, error) {
	switch m.ID {
	case "":
		return nil, nil
	case CodecGzip:
		return []CodecMeta{newCodecMeta(CodecGzip, GzipConfig{Level: m.Level})}, nil
	case CodecZstd:
		return []CodecMeta{newCodecMeta(CodecZstd, ZstdConfig{Level: m.Level, Checksum: m.Checksum})}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, m.ID)
}

// bytesCodec is a bytes-to-bytes stage of a codec pipeline
type bytesCodec interface {
	encode(b []byte) ([]byte, error)
	decode(b []byte) ([]byte, error)
}

// codecPipeline is an array-to-bytes "bytes" codec followed by zero or more
// bytes-to-bytes codecs
type codecPipeline struct {
	dtype  DataType
	order  binary.ByteOrder
	stages []bytesCodec
}

func newCodecPipeline(metas []CodecMeta, dt DataType) (*codecPipeline, error) {
	if len(metas) == 0 || metas[0].Name != CodecBytes {
		return nil, fmt.Errorf("%w: pipeline must start with %q", ErrUnsupportedCodec, CodecBytes)
	}
	p := &codecPipeline{dtype: dt, order: binary.LittleEndian}
	if len(metas[0].Configuration) > 0 {
		cfg := BytesConfig{}
		if err := json.Unmarshal(metas[0].Configuration, &cfg); err != nil {
			return nil, fmt.Errorf("%w: bytes configuration: %s", ErrInvalidMetadata, err)
		}
		switch cfg.Endian {
		case "", "little":
		case "big":
			p.order = binary.BigEndian
		default:
			return nil, fmt.Errorf("%w: endian %q", ErrInvalidMetadata, cfg.Endian)
		}
	}
	for _, m := range metas[1:] {
		c, err := newBytesCodec(m)
		if err != nil {
			return nil, err
		}
		p.stages = append(p.stages, c)
	}
	return p, nil
}

func newBytesCodec(m CodecMeta) (bytesCodec, error) {
	switch m.Name {
	case CodecGzip:
		cfg := GzipConfig{Level: gzip.DefaultCompression}
		if err := unmarshalConfig(m, &cfg); err != nil {
			return nil, err
		}
		return gzipCodec{level: cfg.Level}, nil
	case CodecZstd:
		cfg := ZstdConfig{}
		if err := unmarshalConfig(m, &cfg); err != nil {
			return nil, err
		}
		return zstdCodec{level: cfg.Level, checksum: cfg.Checksum}, nil
	case CodecCRC32C:
		return crc32cCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, m.Name)
}

func unmarshalConfig(m CodecMeta, v interface{}) error {
	if len(m.Configuration) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Configuration, v); err != nil {
		return fmt.Errorf("%w: %s configuration: %s", ErrInvalidMetadata, m.Name, err)
	}
	return nil
}

// encode takes little-endian element bytes through every stage
func (p *codecPipeline) encode(raw []byte) ([]byte, error) {
	b := raw
	if p.order == binary.BigEndian {
		b = swapBytes(raw, p.dtype.Size())
	}
	var err error
	for _, c := range p.stages {
		if b, err = c.encode(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// decode reverses encode and checks the result holds want bytes
func (p *codecPipeline) decode(enc []byte, want int) ([]byte, error) {
	b := enc
	var err error
	for i := len(p.stages) - 1; i >= 0; i-- {
		if b, err = p.stages[i].decode(b); err != nil {
			return nil, err
		}
	}
	if len(b) != want {
		return nil, fmt.Errorf("%w: decoded chunk has %d bytes, want %d", ErrShape, len(b), want)
	}
	if p.order == binary.BigEndian {
		b = swapBytes(b, p.dtype.Size())
	}
	return b, nil
}

// fixedOverhead reports the bytes the stages add regardless of input, or
// false if any stage changes size unpredictably
func (p *codecPipeline) fixedOverhead() (int, bool) {
	n := 0
	for _, c := range p.stages {
		if _, ok := c.(crc32cCodec); !ok {
			return 0, false
		}
		n += crc32.Size
	}
	return n, true
}

func swapBytes(b []byte, size int) []byte {
	out := make([]byte, len(b))
	for i := 0; i+size <= len(b); i += size {
		for j := 0; j < size; j++ {
			out[i+j] = b[i+size-1-j]
		}
	}
	return out
}

type gzipCodec struct {
	level int
}

func (c gzipCodec) encode(b []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	w, err := gzip.NewWriterLevel(buf, c.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c gzipCodec) decode(b []byte) ([]byte, error) {
	r, err := compression.Decompressor(CodecGzip, io.NopCloser(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

type zstdCodec struct {
	level    int
	checksum bool
}

type zstdEncoderKey struct {
	level    zstd.EncoderLevel
	checksum bool
}

var (
	zstdEncoders sync.Map // zstdEncoderKey -> *zstd.Encoder

	zstdDecoderOnce sync.Once
	zstdDecoder     *zstd.Decoder
	zstdDecoderErr  error
)

func (c zstdCodec) encoder() (*zstd.Encoder, error) {
	// level 0 asks for the library default, as in the reference zstd
	level := zstd.SpeedDefault
	if c.level != 0 {
		level = zstd.EncoderLevelFromZstd(c.level)
	}
	key := zstdEncoderKey{level, c.checksum}
	if enc, ok := zstdEncoders.Load(key); ok {
		return enc.(*zstd.Encoder), nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderCRC(c.checksum))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	actual, loaded := zstdEncoders.LoadOrStore(key, enc)
	if loaded {
		enc.Close()
	}
	return actual.(*zstd.Encoder), nil
}

func (c zstdCodec) encode(b []byte) ([]byte, error) {
	enc, err := c.encoder()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(b, nil), nil
}

func (c zstdCodec) decode(b []byte) ([]byte, error) {
	zstdDecoderOnce.Do(func() {
		zstdDecoder, zstdDecoderErr = zstd.NewReader(nil)
		if zstdDecoderErr != nil {
			zstdDecoderErr = fmt.Errorf("create zstd decoder: %w", zstdDecoderErr)
		}
	})
	if zstdDecoderErr != nil {
		return nil, zstdDecoderErr
	}
	return zstdDecoder.DecodeAll(b, nil)
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// crc32cCodec appends a little-endian CRC-32C of its input
type crc32cCodec struct{}

func (crc32cCodec) encode(b []byte) ([]byte, error) {
	out := make([]byte, len(b), len(b)+crc32.Size)
	copy(out, b)
	return binary.LittleEndian.AppendUint32(out, crc32.Checksum(b, castagnoli)), nil
}

func (crc32cCodec) decode(b []byte) ([]byte, error) {
	if len(b) < crc32.Size {
		return nil, fmt.Errorf("%w: %d bytes too short for crc32c", ErrChecksum, len(b))
	}
	body, sum := b[:len(b)-crc32.Size], binary.LittleEndian.Uint32(b[len(b)-crc32.Size:])
	if crc32.Checksum(body, castagnoli) != sum {
		return nil, ErrChecksum
	}
	return body, nil
}
