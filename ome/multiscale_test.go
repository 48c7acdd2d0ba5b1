package ome

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zarr "github.com/qri-io/ome-zarr-go"
	"github.com/qri-io/ome-zarr-go/pyramid"
)

func fakePyramid(t *testing.T, levels int, shape ...int) *pyramid.Pyramid {
	t.Helper()
	p := &pyramid.Pyramid{Factor: 2}
	for i := 0; i < levels; i++ {
		a, err := zarr.NewNDArray(zarr.Uint8, shape)
		require.NoError(t, err)
		p.Levels = append(p.Levels, a)
	}
	return p
}

func TestAssembleSingleLevel(t *testing.T) {
	img, err := Assemble("yx", PixelSpacing{"x": 1, "y": 1}, nil, fakePyramid(t, 1, 10, 10), Lenient)
	require.NoError(t, err)
	assert.Equal(t, Version, img.Version)
	assert.Equal(t, []Axis{
		{Name: "y", Type: AxisSpace, Unit: UnitMicrometer},
		{Name: "x", Type: AxisSpace, Unit: UnitMicrometer},
	}, img.Axes())

	levels, err := img.Levels()
	require.NoError(t, err)
	assert.Equal(t, []Level{{Path: "0", Scale: []float64{1, 1}, Translation: []float64{0, 0}}}, levels)
}

func TestAssembleLevels(t *testing.T) {
	img, err := Assemble("tcyx", PixelSpacing{"x": 0.5, "y": 0.5}, nil, fakePyramid(t, 3, 1, 2, 8, 8), Lenient)
	require.NoError(t, err)
	levels, err := img.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 3)

	for i, l := range levels {
		assert.Equal(t, []string{"0", "1", "2"}[i], l.Path)
	}
	assert.Equal(t, []float64{1, 1, 0.125, 0.125}, levels[2].Scale)
	assert.Equal(t, []float64{0, 0, 0, 0}, levels[2].Translation)
	assert.Equal(t, DimensionOrder("tcyx"), img.DimensionOrder())
}

func TestAssembleManyLevelsOrdered(t *testing.T) {
	img, err := Assemble("x", nil, nil, fakePyramid(t, 12, 4), Lenient)
	require.NoError(t, err)
	levels, err := img.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 12)
	assert.Equal(t, "10", levels[10].Path)
	assert.Equal(t, []float64{1.0 / 1024}, levels[10].Scale)
}

func TestAssembleErrors(t *testing.T) {
	_, err := Assemble("tyx", nil, nil, fakePyramid(t, 2, 4, 4), Lenient)
	assert.ErrorIs(t, err, ErrMetadata)

	_, err = Assemble("yx", nil, nil, &pyramid.Pyramid{Factor: 2}, Lenient)
	assert.ErrorIs(t, err, ErrMetadata)

	_, err = Assemble("qx", nil, nil, fakePyramid(t, 1, 4, 4), Strict)
	assert.ErrorIs(t, err, ErrUnknownDimension)
}

func TestImageRoundTrip(t *testing.T) {
	p := fakePyramid(t, 5, 3, 100, 100)
	img, err := Assemble("cyx", PixelSpacing{"x": 0.325, "y": 0.325}, Translation{"y": 12.5, "x": -4}, p, Lenient)
	require.NoError(t, err)
	want, err := img.Levels()
	require.NoError(t, err)

	store := zarr.NewMemoryStore()
	_, err = zarr.CreateGroup(store, "", img.Attributes())
	require.NoError(t, err)

	g, err := zarr.OpenGroup(store, "")
	require.NoError(t, err)
	got, err := ParseImage(g.Attributes())
	require.NoError(t, err)

	assert.Equal(t, img.Axes(), got.Axes())
	levels, err := got.Levels()
	require.NoError(t, err)
	assert.Equal(t, want, levels)
	assert.Equal(t, img, got)
}

func TestDecodeImageErrors(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"no multiscales":  `{"version":"0.5"}`,
		"empty datasets":  `{"version":"0.5","multiscales":[{"axes":[{"name":"x"}],"datasets":[]}]}`,
		"bad transform":   `{"version":"0.5","multiscales":[{"axes":[{"name":"x"}],"datasets":[{"path":"0","coordinateTransformations":[{"type":"rotate"}]}]}]}`,
		"old version":     `{"version":"0.4","multiscales":[{"axes":[{"name":"x"}],"datasets":[{"path":"0","coordinateTransformations":[{"type":"scale","scale":[1]}]}]}]}`,
		"short scale":     `{"version":"0.5","multiscales":[{"axes":[{"name":"y"},{"name":"x"}],"datasets":[{"path":"0","coordinateTransformations":[{"type":"scale","scale":[1]}]}]}]}`,
		"string in scale": `{"version":"0.5","multiscales":[{"axes":[{"name":"x"}],"datasets":[{"path":"0","coordinateTransformations":[{"type":"scale","scale":["1"]}]}]}]}`,
	}
	for name, doc := range cases {
		_, err := DecodeImage([]byte(doc))
		assert.ErrorIs(t, err, ErrMetadataFormat, name)
	}

	_, err := ParseImage(zarr.Attributes{"other": 1})
	assert.ErrorIs(t, err, ErrMetadataFormat)

	img, err := DecodeImage([]byte(`{"version":"0.5","multiscales":[{"axes":[{"name":"x","type":"space"}],"datasets":[{"path":"0","coordinateTransformations":[{"type":"scale","scale":[2]}]}]}]}`))
	require.NoError(t, err)
	levels, err := img.Levels()
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, levels[0].Translation)
}

func TestIndex(t *testing.T) {
	img, err := Assemble("yx", nil, nil, fakePyramid(t, 1, 2, 2), Lenient)
	require.NoError(t, err)
	data, err := img.Index().MarshalBinary()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ome":{"version":"0.5"}}`, string(data))

	idx, err := ParseIndex(data)
	require.NoError(t, err)
	assert.Equal(t, "0.5", idx.OME.Version)

	_, err = ParseIndex([]byte(`{"ome":{}}`))
	assert.ErrorIs(t, err, ErrMetadataFormat)
	_, err = ParseIndex([]byte(`garbage`))
	assert.ErrorIs(t, err, ErrMetadataFormat)
}

func TestImageJSONLayout(t *testing.T) {
	img, err := Assemble("cx", PixelSpacing{"x": 2}, nil, fakePyramid(t, 1, 1, 4), Lenient)
	require.NoError(t, err)
	data, err := json.Marshal(img.Attributes())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ome":{
		"version":"0.5",
		"multiscales":[{
			"axes":[{"name":"c","type":"channel"},{"name":"x","type":"space","unit":"micrometer"}],
			"datasets":[{"path":"0","coordinateTransformations":[
				{"type":"scale","scale":[1,2]},
				{"type":"translation","translation":[0,0]}
			]}]
		}]
	}}`, string(data))
}

func TestCheckVersion(t *testing.T) {
	assert.NoError(t, CheckVersion("0.5"))
	assert.NoError(t, CheckVersion("0.5.2"))
	assert.ErrorIs(t, CheckVersion("0.4"), ErrMetadataFormat)
	assert.ErrorIs(t, CheckVersion("1.0"), ErrMetadataFormat)
	assert.ErrorIs(t, CheckVersion("five"), ErrMetadataFormat)
}
