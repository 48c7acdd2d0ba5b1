package ozx

import (
	"errors"
	"fmt"
	"io"
	"os"

	zarr "github.com/qri-io/ome-zarr-go"
	"github.com/qri-io/ome-zarr-go/ome"
)

// Archive is an open multiscale archive. Arrays lists the stored arrays in
// depth-first order, which for a plain image is level order. Arrays read
// through the archive's store, so they are only usable until Close.
type Archive struct {
	Path   string
	Index  ome.Index
	Image  *ome.Image
	Root   *zarr.Group
	Arrays []*zarr.Array

	closer io.Closer
}

// Open loads the metadata of the archive at path and discovers its arrays
// without reading any level data. path may also name an unpacked hierarchy
// directory, which has no index comment.
func Open(path string) (*Archive, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, stageError(StageOpen, -1, ErrArchiveOpen, err)
	}
	if fi.IsDir() {
		store, err := zarr.NewLocalStore(path)
		if err != nil {
			return nil, stageError(StageOpen, -1, ErrArchiveOpen, err)
		}
		return openArchive(path, store, "", nil)
	}

	store, err := zarr.OpenZipStore(path, zarr.ModeRead)
	if err != nil {
		return nil, stageError(StageOpen, -1, ErrArchiveOpen, err)
	}
	a, err := openArchive(path, store, store.Comment(), store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

func openArchive(path string, store zarr.Store, comment string, closer io.Closer) (*Archive, error) {
	a := &Archive{Path: path, closer: closer}
	if comment != "" {
		idx, err := ome.ParseIndex([]byte(comment))
		if err != nil {
			return nil, stageError(StageOpen, -1, nil, err)
		}
		a.Index = idx
	}

	root, err := zarr.OpenGroup(store, "")
	if errors.Is(err, zarr.ErrInvalidMetadata) {
		return nil, stageError(StageOpen, -1, ome.ErrMetadataFormat, err)
	}
	if err != nil {
		return nil, stageError(StageOpen, -1, ErrArchiveOpen, err)
	}
	img, err := ome.ParseImage(root.Attributes())
	if err != nil {
		return nil, stageError(StageRead, -1, nil, err)
	}
	if a.Index.OME.Version != "" && a.Index.OME.Version != img.Version {
		return nil, stageError(StageRead, -1, ome.ErrMetadataFormat,
			fmt.Errorf("archive index version %s does not match metadata version %s", a.Index.OME.Version, img.Version))
	}
	arrays, err := zarr.Arrays(root)
	if err != nil {
		return nil, stageError(StageRead, -1, ErrArrayIO, err)
	}
	a.Root, a.Image, a.Arrays = root, img, arrays
	return a, nil
}

// ReadLevel loads the full contents of Arrays[i]
func (a *Archive) ReadLevel(i int) (*zarr.NDArray, error) {
	if i < 0 || i >= len(a.Arrays) {
		return nil, stageError(StageRead, i, ErrArrayIO, fmt.Errorf("archive has %d arrays", len(a.Arrays)))
	}
	data, err := a.Arrays[i].ReadAll()
	if err != nil {
		return nil, stageError(StageRead, i, ErrArrayIO, err)
	}
	return data, nil
}

// Close releases the archive file
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Read loads the metadata and every array of the archive at path, then
// closes it
func Read(path string) (img *ome.Image, levels []*zarr.NDArray, err error) {
	a, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if cerr := a.Close(); err == nil && cerr != nil {
			err = stageError(StageClose, -1, nil, cerr)
		}
	}()

	levels = make([]*zarr.NDArray, len(a.Arrays))
	for i := range a.Arrays {
		if levels[i], err = a.ReadLevel(i); err != nil {
			return nil, nil, err
		}
	}
	return a.Image, levels, nil
}

// ReadIndex returns the index stamped in the comment of the archive at
// path, without opening the store
func ReadIndex(path string) (ome.Index, error) {
	comment, err := readComment(path)
	if err != nil {
		return ome.Index{}, stageError(StageOpen, -1, ErrArchiveOpen, err)
	}
	if comment == "" {
		return ome.Index{}, stageError(StageOpen, -1, ErrArchiveOpen, errors.New("archive has no index comment"))
	}
	idx, err := ome.ParseIndex([]byte(comment))
	if err != nil {
		return idx, stageError(StageOpen, -1, nil, err)
	}
	return idx, nil
}
