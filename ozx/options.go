package ozx

import (
	"fmt"
	"io"
	"log/slog"

	zarr "github.com/qri-io/ome-zarr-go"
	"github.com/qri-io/ome-zarr-go/ome"
	"github.com/qri-io/ome-zarr-go/pyramid"
)

// DefaultBlock is the extent of chunks and shards along the two trailing
// dimensions when none is configured
const DefaultBlock = 10

// Option configures Write
type Option func(*options)

type options struct {
	chunkShape  []int
	shardShape  []int
	compressor  zarr.CompressionMeta
	downsampler pyramid.Downsampler
	method      pyramid.Method
	maxLayer    int
	axisMode    ome.AxisMode
	translation ome.Translation
	logger      *slog.Logger
}

func defaultOptions() *options {
	return &options{
		chunkShape: []int{DefaultBlock, DefaultBlock},
		shardShape: []int{DefaultBlock, DefaultBlock},
		compressor: zarr.CompressionMeta{ID: zarr.CodecZstd},
		method:     pyramid.Mean,
		maxLayer:   pyramid.DefaultMaxLayer,
		axisMode:   ome.Lenient,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithChunkShape sets the chunk extent of every level. A shape shorter than
// the array rank applies to the trailing dimensions; leading dimensions get
// extent 1.
func WithChunkShape(shape ...int) Option {
	return func(o *options) { o.chunkShape = shape }
}

// WithShardShape sets the shard extent the same way WithChunkShape does.
// Passing no dimensions stores chunks unsharded.
func WithShardShape(shape ...int) Option {
	return func(o *options) { o.shardShape = shape }
}

// WithCompressor sets the chunk compressor. The zero value stores raw
// chunks.
func WithCompressor(c zarr.CompressionMeta) Option {
	return func(o *options) { o.compressor = c }
}

// WithDownsampler replaces the default Scaler
func WithDownsampler(ds pyramid.Downsampler) Option {
	return func(o *options) { o.downsampler = ds }
}

// WithMethod sets the reduction method of the default Scaler
func WithMethod(m pyramid.Method) Option {
	return func(o *options) { o.method = m }
}

// WithMaxLayer caps the levels built by the default Scaler
func WithMaxLayer(n int) Option {
	return func(o *options) { o.maxLayer = n }
}

func WithAxisMode(m ome.AxisMode) Option {
	return func(o *options) { o.axisMode = m }
}

// WithTranslation sets the physical offset of each dimension
func WithTranslation(t ome.Translation) Option {
	return func(o *options) { o.translation = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// downsamplerFor returns the configured Downsampler, or a Scaler reducing
// whichever of the y and x dimensions order names. An order with neither
// yields a Scaler that reduces nothing, so only the base level is built.
func (o *options) downsamplerFor(order ome.DimensionOrder) pyramid.Downsampler {
	if o.downsampler != nil {
		return o.downsampler
	}
	axes := []int{}
	for d, tag := range order.Tags() {
		if tag == "y" || tag == "x" {
			axes = append(axes, d)
		}
	}
	s := pyramid.NewScaler()
	s.Axes = axes
	s.Method = o.method
	s.MaxLayer = o.maxLayer
	return s
}

// blockShape aligns a block shape with the trailing dimensions of a rank
// dimensional array: extra leading entries are dropped, missing leading
// dimensions get extent 1
func blockShape(block []int, rank int) ([]int, error) {
	if len(block) > rank {
		block = block[len(block)-rank:]
	}
	for _, n := range block {
		if n <= 0 {
			return nil, fmt.Errorf("invalid block shape %v", block)
		}
	}
	out := make([]int, rank)
	for d := range out {
		out[d] = 1
	}
	copy(out[rank-len(block):], block)
	return out, nil
}

// arraySpec describes the stored array of one level
func (o *options) arraySpec(level *zarr.NDArray, order ome.DimensionOrder) (zarr.ArraySpec, error) {
	spec := zarr.ArraySpec{
		Shape:          level.Shape(),
		DataType:       level.DataType(),
		DimensionNames: order.Tags(),
		Compressor:     o.compressor,
	}
	var err error
	if spec.ChunkShape, err = blockShape(o.chunkShape, level.Rank()); err != nil {
		return spec, err
	}
	if len(o.shardShape) > 0 {
		if spec.ShardShape, err = blockShape(o.shardShape, level.Rank()); err != nil {
			return spec, err
		}
	}
	return spec, nil
}
