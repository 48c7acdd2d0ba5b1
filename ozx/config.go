package ozx

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/lumberjack"

	zarr "github.com/qri-io/ome-zarr-go"
	"github.com/qri-io/ome-zarr-go/ome"
	"github.com/qri-io/ome-zarr-go/pyramid"
)

// Config is the TOML form of the write options, e.g.
//
//	[array]
//	chunk_shape = [10, 10]
//	shard_shape = [20, 20]
//	compressor = { id = "zstd", level = 3 }
//
//	[pyramid]
//	max_layer = 4
//	method = "mean"
//
//	[axes]
//	mode = "strict"
//	spacing = { x = 0.5, y = 0.5 }
//
//	[log]
//	level = "debug"
//	file = "/var/log/ozx.log"
type Config struct {
	Array   ArrayConfig   `toml:"array"`
	Pyramid PyramidConfig `toml:"pyramid"`
	Axes    AxesConfig    `toml:"axes"`
	Log     LogConfig     `toml:"log"`
}

type ArrayConfig struct {
	ChunkShape []int                 `toml:"chunk_shape"`
	ShardShape []int                 `toml:"shard_shape"`
	Compressor *zarr.CompressionMeta `toml:"compressor"`
}

type PyramidConfig struct {
	MaxLayer *int   `toml:"max_layer"`
	Method   string `toml:"method"`
}

type AxesConfig struct {
	Mode        string             `toml:"mode"`
	Spacing     map[string]float64 `toml:"spacing"`
	Translation map[string]float64 `toml:"translation"`
}

type LogConfig struct {
	Level string `toml:"level"`
	// File switches output from stderr to a rotating log file
	File       string `toml:"file"`
	MaxSize    int    `toml:"max_log_size"` // megabytes
	MaxAge     int    `toml:"max_log_age"`  // days
	MaxBackups int    `toml:"max_backups"`
	Compress   bool   `toml:"compress"`
}

// LoadConfig decodes a TOML config file. Unknown keys are an error.
func LoadConfig(filename string) (*Config, error) {
	c := &Config{}
	md, err := toml.DecodeFile(filename, c)
	if err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return c, nil
}

// Spacing is the configured pixel spacing
func (c *Config) Spacing() ome.PixelSpacing {
	return ome.PixelSpacing(c.Axes.Spacing)
}

// Options converts the config into write options. Unset values keep their
// defaults.
func (c *Config) Options() ([]Option, error) {
	var opts []Option
	if c.Array.ChunkShape != nil {
		opts = append(opts, WithChunkShape(c.Array.ChunkShape...))
	}
	if c.Array.ShardShape != nil {
		opts = append(opts, WithShardShape(c.Array.ShardShape...))
	}
	if c.Array.Compressor != nil {
		opts = append(opts, WithCompressor(*c.Array.Compressor))
	}
	if c.Pyramid.MaxLayer != nil {
		opts = append(opts, WithMaxLayer(*c.Pyramid.MaxLayer))
	}
	if c.Pyramid.Method != "" {
		m, err := pyramid.ParseMethod(c.Pyramid.Method)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithMethod(m))
	}
	if c.Axes.Mode != "" {
		mode, err := ome.ParseAxisMode(c.Axes.Mode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithAxisMode(mode))
	}
	if c.Axes.Translation != nil {
		opts = append(opts, WithTranslation(ome.Translation(c.Axes.Translation)))
	}
	return opts, nil
}

// Logger builds a text logger writing to stderr, or to a rotating file when
// File is set. The returned closer releases the file.
func (c LogConfig) Logger() (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if c.Level != "" {
		if err := level.UnmarshalText([]byte(c.Level)); err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
	}
	var w io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if c.File != "" {
		l := &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSize,
			MaxAge:     c.MaxAge,
			MaxBackups: c.MaxBackups,
			Compress:   c.Compress,
		}
		w, closer = l, l
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h), closer, nil
}
