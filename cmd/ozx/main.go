// Command-line tool for writing and inspecting multiscale image archives.

package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	zarr "github.com/qri-io/ome-zarr-go"
	"github.com/qri-io/ome-zarr-go/ome"
	"github.com/qri-io/ome-zarr-go/ozx"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Log debug events if true.
	runVerbose = flag.Bool("verbose", false, "")

	// TOML file with write options and logging setup.
	configFile = flag.String("config", "", "")

	// Shape of the synthetic image written by "write".
	shapeFlag = flag.String("shape", "100,100", "")

	// Dimension order of the synthetic image.
	orderFlag = flag.String("order", "yx", "")

	// Element type of the synthetic image.
	dtypeFlag = flag.String("dtype", "uint16", "")

	// Pixel spacing, overriding [axes].spacing from the config.
	spacingFlag = flag.String("spacing", "", "")
)

const helpMessage = `
ozx writes and inspects multiscale OME-Zarr images stored in a single zip archive

Usage: ozx [options] <command> <archive>

      -config     =string   TOML configuration file.
      -shape      =string   Comma separated shape of the synthetic image (write).
      -order      =string   Dimension order, e.g. "tcyx" (write).
      -dtype      =string   Data type of the synthetic image (write).
      -spacing    =string   Pixel spacing, e.g. "x=0.5,y=0.5" (write).
      -verbose    (flag)    Log every level written.
  -h, -help       (flag)    Show help message

Commands:

	write <archive>   Build a pyramid from a synthetic gradient image and store it.
	index <archive>   Print the index stamped in the archive comment.
	info  <archive>   Print axes and the geometry of each level.
	read  <archive>   Load every level and print value statistics.

info and read also accept an unpacked OME-Zarr directory in place of an archive.
`

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = func() { fmt.Print(helpMessage) }
	flag.Parse()

	if *showHelp || flag.NArg() != 2 {
		flag.Usage()
		os.Exit(0)
	}

	cfg := &ozx.Config{}
	if *configFile != "" {
		var err error
		if cfg, err = ozx.LoadConfig(*configFile); err != nil {
			fatalf("%v", err)
		}
	}
	if *runVerbose {
		cfg.Log.Level = "debug"
	}
	logger, closer, err := cfg.Log.Logger()
	if err != nil {
		fatalf("%v", err)
	}
	defer closer.Close()

	command, path := strings.ToLower(flag.Arg(0)), flag.Arg(1)
	switch command {
	case "write":
		err = writeCommand(path, cfg, logger)
	case "index":
		err = indexCommand(path, os.Stdout)
	case "info":
		err = infoCommand(path, os.Stdout)
	case "read":
		err = readCommand(path, os.Stdout)
	default:
		flag.Usage()
		fatalf("unknown command %q", command)
	}
	if err != nil {
		closer.Close()
		fatalf("%v", err)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ozx: "+format+"\n", args...)
	os.Exit(1)
}

func writeCommand(path string, cfg *ozx.Config, logger *slog.Logger) error {
	shape, err := parseShape(*shapeFlag)
	if err != nil {
		return err
	}
	dt, err := zarr.ParseDataType(*dtypeFlag)
	if err != nil {
		return err
	}
	spacing := cfg.Spacing()
	if *spacingFlag != "" {
		if spacing, err = parseSpacing(*spacingFlag); err != nil {
			return err
		}
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	opts = append(opts, ozx.WithLogger(logger))

	data, err := gradient(dt, shape)
	if err != nil {
		return err
	}
	return ozx.Write(path, data, ome.DimensionOrder(*orderFlag), spacing, opts...)
}

func indexCommand(path string, w io.Writer) error {
	idx, err := ozx.ReadIndex(path)
	if err != nil {
		return err
	}
	data, err := idx.MarshalBinary()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func infoCommand(path string, w io.Writer) error {
	a, err := ozx.Open(path)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(w, "version: %s\n", a.Image.Version)
	for _, ax := range a.Image.Axes() {
		fmt.Fprintf(w, "axis %s: %s %s\n", ax.Name, ax.Type, ax.Unit)
	}
	levels, err := a.Image.Levels()
	if err != nil {
		return err
	}
	for i, l := range levels {
		line := fmt.Sprintf("level %s: scale %v translation %v", l.Path, l.Scale, l.Translation)
		if i < len(a.Arrays) {
			arr := a.Arrays[i]
			line += fmt.Sprintf(" shape %v %s chunks %v shards %v", arr.Shape(), arr.DataType(), arr.ChunkShape(), arr.ShardShape())
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func readCommand(path string, w io.Writer) error {
	_, levels, err := ozx.Read(path)
	if err != nil {
		return err
	}
	for i, l := range levels {
		lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
		for j := 0; j < l.Len(); j++ {
			v := l.Float64(j)
			lo, hi, sum = math.Min(lo, v), math.Max(hi, v), sum+v
		}
		mean := 0.0
		if l.Len() > 0 {
			mean = sum / float64(l.Len())
		}
		fmt.Fprintf(w, "level %d: shape %v min %g max %g mean %g\n", i, l.Shape(), lo, hi, mean)
	}
	return nil
}

func parseShape(s string) ([]int, error) {
	var shape []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("bad shape %q", s)
		}
		shape = append(shape, n)
	}
	return shape, nil
}

func parseSpacing(s string) (ome.PixelSpacing, error) {
	spacing := ome.PixelSpacing{}
	for _, part := range strings.Split(s, ",") {
		tag, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("bad spacing %q, want tag=value", part)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("bad spacing %q", part)
		}
		spacing[tag] = f
	}
	return spacing, nil
}

// gradient fills an array with a diagonal ramp over its last two
// dimensions
func gradient(dt zarr.DataType, shape []int) (*zarr.NDArray, error) {
	a, err := zarr.NewNDArray(dt, shape)
	if err != nil {
		return nil, err
	}
	rank := len(shape)
	rows, cols := 1, shape[rank-1]
	if rank > 1 {
		rows = shape[rank-2]
	}
	for i := 0; i < a.Len(); i++ {
		x := i % cols
		y := (i / cols) % rows
		a.SetFloat64(i, float64(x+y))
	}
	return a, nil
}
