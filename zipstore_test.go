package zarr

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readKey(t *testing.T, s Store, key string) []byte {
	t.Helper()
	r, err := s.Get(key)
	require.NoError(t, err)
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return b
}

func TestZipStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.zip")
	w, err := OpenZipStore(path, ModeWriteFail)
	require.NoError(t, err)
	assert.Equal(t, ZipStoreType, w.Type())
	assert.Equal(t, path, w.Path())

	require.NoError(t, w.Put("zarr.json", bytes.NewReader([]byte(`{}`))))
	require.NoError(t, w.Put("0/c/0/0", bytes.NewReader([]byte{1, 2, 3})))
	assert.ErrorIs(t, w.Put("0/c/0/0", bytes.NewReader(nil)), ErrKeyExists)

	_, err = w.Get("zarr.json")
	assert.ErrorIs(t, err, ErrWriteOnly)

	names, err := w.ListDir("")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "zarr.json"}, names)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = OpenZipStore(path, ModeWriteFail)
	assert.Error(t, err)

	r, err := OpenZipStore(path, ModeRead)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []byte{1, 2, 3}, readKey(t, r, "0/c/0/0"))
	assert.Equal(t, []byte(`{}`), readKey(t, r, "zarr.json"))

	_, err = r.Get("0/c/0/1")
	assert.ErrorIs(t, err, ErrNotfound)
	assert.ErrorIs(t, r.Put("x", bytes.NewReader(nil)), ErrReadOnly)

	names, err = r.ListDir("0/c")
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, names)

	_, err = OpenZipStore(path, ModeReadWrite)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestZipStoreHierarchy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.zip")
	w, err := OpenZipStore(path, ModeWrite)
	require.NoError(t, err)

	root, err := CreateGroup(w, "", Attributes{"kind": "test"})
	require.NoError(t, err)
	a, err := root.CreateArray("0", ArraySpec{
		Shape:      []int{8, 6},
		DataType:   Uint16,
		ChunkShape: []int{4, 3},
		ShardShape: []int{8, 6},
		Compressor: CompressionMeta{ID: CodecZstd},
	})
	require.NoError(t, err)
	data := ramp(t, Uint16, []int{8, 6})
	require.NoError(t, a.Write(data))
	require.NoError(t, w.Close())

	r, err := OpenZipStore(path, ModeRead)
	require.NoError(t, err)
	defer r.Close()

	g, err := OpenGroup(r, "")
	require.NoError(t, err)
	assert.Equal(t, "test", g.Attributes()["kind"])
	arrays, err := Arrays(g)
	require.NoError(t, err)
	require.Len(t, arrays, 1)
	got, err := arrays[0].ReadAll()
	require.NoError(t, err)
	assert.True(t, data.Equal(got))
}

func TestListDirKeys(t *testing.T) {
	keys := []string{"zarr.json", "0/zarr.json", "0/c/0/0", "0/c/1/0", "1/zarr.json", "10/zarr.json"}
	assert.Equal(t, []string{"0", "1", "10", "zarr.json"}, listDirKeys(keys, ""))
	assert.Equal(t, []string{"c", "zarr.json"}, listDirKeys(keys, "/0/"))
	assert.Equal(t, []string{"0", "1"}, listDirKeys(keys, "0/c"))
	assert.Empty(t, listDirKeys(keys, "2"))
}
