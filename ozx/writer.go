/*
	Package ozx stores multiscale image pyramids as single zip archives
	holding an OME-Zarr hierarchy. The archive comment carries a compact
	index, {"ome":{"version":"0.5"}}, so tools can identify the format
	without opening the store.
*/
package ozx

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"

	zarr "github.com/qri-io/ome-zarr-go"
	"github.com/qri-io/ome-zarr-go/ome"
	"github.com/qri-io/ome-zarr-go/pyramid"
)

// Write builds the pyramid of data and stores it as an archive at path.
// order names the dimensions of data and spacing their physical pixel
// size. The archive only appears at path once it is complete; a failed
// write leaves whatever was at path before untouched.
func Write(path string, data *zarr.NDArray, order ome.DimensionOrder, spacing ome.PixelSpacing, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger.With("path", path)

	if data == nil {
		return stageError(StageBuild, -1, pyramid.ErrConstruction, errors.New("nil base array"))
	}
	if err := order.Validate(data.Rank()); err != nil {
		return stageError(StageAssemble, -1, nil, err)
	}
	p, err := pyramid.Build(data, o.downsamplerFor(order))
	if err != nil {
		level := -1
		var le *pyramid.LevelError
		if errors.As(err, &le) {
			level = le.Level
		}
		return stageError(StageBuild, level, nil, err)
	}
	img, err := ome.Assemble(order, spacing, o.translation, p, o.axisMode)
	if err != nil {
		return stageError(StageAssemble, -1, nil, err)
	}
	index, err := img.Index().MarshalBinary()
	if err != nil {
		return stageError(StageAssemble, -1, nil, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return stageError(StageCreate, -1, ErrArrayIO, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	published := false
	defer func() {
		if !published {
			os.Remove(tmpPath)
		}
	}()

	store, err := zarr.OpenZipStore(tmpPath, zarr.ModeWrite)
	if err != nil {
		return stageError(StageCreate, -1, ErrArrayIO, err)
	}
	defer store.Close()

	if err := writeLevels(store, p, img, order, o); err != nil {
		return err
	}
	if err := store.Close(); err != nil {
		return stageError(StageClose, -1, ErrArrayIO, err)
	}
	if err := stampComment(tmpPath, string(index)); err != nil {
		return stageError(StageTrailer, -1, ErrTrailer, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return stageError(StageClose, -1, nil, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return stageError(StageClose, -1, nil, err)
	}
	published = true

	size := int64(0)
	if fi, err := os.Stat(path); err == nil {
		size = fi.Size()
	}
	log.Info("wrote multiscale archive",
		"levels", len(p.Levels),
		"dimensions", string(order),
		"size", humanize.Bytes(uint64(size)),
	)
	return nil
}

// writeLevels creates the root group with all of its metadata, then every
// level's array descriptor, and only then the level data
func writeLevels(store zarr.Store, p *pyramid.Pyramid, img *ome.Image, order ome.DimensionOrder, o *options) error {
	root, err := zarr.CreateGroup(store, "", img.Attributes())
	if err != nil {
		return stageError(StageCreate, -1, ErrArrayIO, err)
	}

	arrays := make([]*zarr.Array, len(p.Levels))
	for i, level := range p.Levels {
		spec, err := o.arraySpec(level, order)
		if err != nil {
			return stageError(StageCreate, i, ErrArrayIO, err)
		}
		if arrays[i], err = root.CreateArray(strconv.Itoa(i), spec); err != nil {
			return stageError(StageCreate, i, ErrArrayIO, err)
		}
	}

	for i, a := range arrays {
		if err := a.Write(p.Levels[i]); err != nil {
			return stageError(StageWrite, i, ErrArrayIO, err)
		}
		o.logger.Debug("wrote level",
			"level", i,
			"shape", p.Levels[i].Shape(),
			"array", a.Path(),
		)
	}
	return nil
}
