package zarr

import (
	"encoding/json"
	"math"
	"testing"

	"NDZarr/pkg/codecs"
	"NDZarr/pkg/store"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeta(version int) *Metadata {
	return &Metadata{
		Shape:      []int{10, 10},
		Chunks:     []int{5, 5},
		Dtype:      Float64,
		Order:      RowMajor,
		Version:    version,
		Compressor: codecs.DefaultBlosc(),
	}
}

func TestMarshalV2Document(t *testing.T) {
	data, err := testMeta(2).MarshalV2()
	require.NoError(t, err)
	expected := `{
        "zarr_format": 2,
        "shape": [10, 10],
        "chunks": [5, 5],
        "dtype": "<f8",
        "compressor": {"blocksize": 0, "clevel": 5, "cname": "zstd", "id": "blosc", "shuffle": true},
        "fill_value": 0,
        "order": "C",
        "filters": null
    }`
	assert.True(t, jsonEqual(data, []byte(expected)), "got %s", data)
}

func TestMarshalV3Document(t *testing.T) {
	m := testMeta(3)
	f, err := codecs.NewShuffle(8)
	require.NoError(t, err)
	m.Filters = []codecs.Codec{f}
	data, err := m.MarshalV3()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.EqualValues(t, 3, doc["zarr_format"])
	assert.Equal(t, "array", doc["node_type"])
	assert.Equal(t, "float64", doc["data_type"])

	grid := doc["chunk_grid"].(map[string]interface{})
	assert.Equal(t, "regular", grid["name"])

	chain := doc["codecs"].([]interface{})
	require.Len(t, chain, 3)
	first := chain[0].(map[string]interface{})
	assert.Equal(t, "bytes", first["name"])
	assert.Equal(t, "little", first["configuration"].(map[string]interface{})["endian"])
	assert.Equal(t, "shuffle", chain[1].(map[string]interface{})["name"])
	last := chain[2].(map[string]interface{})
	assert.Equal(t, "blosc", last["name"])
	_, hasID := last["configuration"].(map[string]interface{})["id"]
	assert.False(t, hasID)
}

func TestMetadataRoundTripV2(t *testing.T) {
	m := testMeta(2)
	d, err := codecs.NewDelta("<f8")
	require.NoError(t, err)
	m.Filters = []codecs.Codec{d}
	m.FillValue = -1
	m.Attributes = map[string]interface{}{"units": "kelvin"}

	data, err := m.MarshalV2()
	require.NoError(t, err)
	attrs, err := json.Marshal(m.Attributes)
	require.NoError(t, err)

	got, err := UnmarshalV2("a", data, attrs)
	require.NoError(t, err)
	assert.Equal(t, m.Shape, got.Shape)
	assert.Equal(t, m.Chunks, got.Chunks)
	assert.Equal(t, Float64, got.Dtype)
	assert.Equal(t, float64(-1), got.FillValue)
	assert.Equal(t, RowMajor, got.Order)
	assert.Equal(t, ".", got.DimensionSeparator)
	require.NotNil(t, got.Compressor)
	assert.Equal(t, m.Compressor.Config(), got.Compressor.Config())
	require.Len(t, got.Filters, 1)
	assert.Equal(t, d.Config(), got.Filters[0].Config())
	assert.Equal(t, m.Attributes, got.Attributes)
}

func TestMetadataRoundTripV3(t *testing.T) {
	m := testMeta(3)
	d, err := codecs.NewDelta("<f8")
	require.NoError(t, err)
	m.Filters = []codecs.Codec{d}

	data, err := m.MarshalV3()
	require.NoError(t, err)
	got, err := UnmarshalV3("a", data)
	require.NoError(t, err)
	assert.Equal(t, m.Shape, got.Shape)
	assert.Equal(t, m.Chunks, got.Chunks)
	assert.Equal(t, Float64, got.Dtype)
	require.Len(t, got.Filters, 1)
	assert.Equal(t, d.Config(), got.Filters[0].Config())
	require.NotNil(t, got.Compressor)
	assert.Equal(t, m.Compressor.Config(), got.Compressor.Config())
}

func TestWriteIsIdempotent(t *testing.T) {
	s := store.NewMemStore()
	m := testMeta(2)
	m.DimensionSeparator = "."
	require.NoError(t, m.Write(s, "a"))
	first, err := s.Get("a/.zarray")
	require.NoError(t, err)

	require.NoError(t, m.Write(s, "a"))
	second, err := s.Get("a/.zarray")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNonFiniteFillValues(t *testing.T) {
	for _, c := range []struct {
		fill float64
		want string
	}{
		{math.NaN(), `"NaN"`},
		{math.Inf(1), `"Infinity"`},
		{math.Inf(-1), `"-Infinity"`},
	} {
		m := testMeta(2)
		m.FillValue = c.fill
		data, err := m.MarshalV2()
		require.NoError(t, err)
		assert.Contains(t, string(data), `"fill_value": `+c.want)

		got, err := UnmarshalV2("a", data, nil)
		require.NoError(t, err)
		if math.IsNaN(c.fill) {
			assert.True(t, math.IsNaN(got.FillValue))
		} else {
			assert.Equal(t, c.fill, got.FillValue)
		}
	}
}

func TestFractionalFillValue(t *testing.T) {
	m := testMeta(2)
	m.FillValue = 0.5
	data, err := m.MarshalV2()
	require.NoError(t, err)
	got, err := UnmarshalV2("a", data, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.FillValue)
}

func TestNullFillValueDefaultsToZero(t *testing.T) {
	doc := `{"zarr_format":2,"shape":[4],"chunks":[4],"dtype":"<i4",
		"compressor":null,"fill_value":null,"order":"C","filters":null}`
	got, err := UnmarshalV2("a", []byte(doc), nil)
	require.NoError(t, err)
	assert.Equal(t, float64(0), got.FillValue)
	assert.Nil(t, got.Compressor)
}

func TestUnmarshalV2MissingField(t *testing.T) {
	doc := `{"zarr_format":2,"shape":[4],"chunks":[4],
		"compressor":null,"fill_value":0,"order":"C","filters":null}`
	_, err := UnmarshalV2("grp/a", []byte(doc), nil)
	assert.True(t, errors.Is(err, ErrInvalidMetadata))
	assert.Contains(t, err.Error(), "grp/a")
	assert.Contains(t, err.Error(), "dtype")
}

func TestUnmarshalV2WrongFormat(t *testing.T) {
	doc := `{"zarr_format":3,"shape":[4],"chunks":[4],"dtype":"<i4",
		"compressor":null,"fill_value":0,"order":"C","filters":null}`
	_, err := UnmarshalV2("a", []byte(doc), nil)
	assert.True(t, errors.Is(err, ErrInvalidMetadata))
}

func TestUnmarshalV3CodecOrdering(t *testing.T) {
	doc := `{"zarr_format":3,"node_type":"array","shape":[4],"data_type":"int32",
		"chunk_grid":{"name":"regular","configuration":{"chunk_shape":[4]}},
		"codecs":[{"name":"gzip","configuration":{"level":5}},
			{"name":"shuffle","configuration":{"elementsize":4}}],
		"fill_value":0}`
	_, err := UnmarshalV3("a", []byte(doc))
	assert.True(t, errors.Is(err, ErrInvalidMetadata))

	doc = `{"zarr_format":3,"node_type":"array","shape":[4],"data_type":"int32",
		"chunk_grid":{"name":"regular","configuration":{"chunk_shape":[4]}},
		"codecs":[{"name":"gzip","configuration":{"level":5}},
			{"name":"zstd","configuration":{"level":3}}],
		"fill_value":0}`
	_, err = UnmarshalV3("a", []byte(doc))
	assert.True(t, errors.Is(err, ErrInvalidMetadata))
}

func TestReadMetadataPrefersV3(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, testMeta(2).Write(s, "a"))
	require.NoError(t, testMeta(3).Write(s, "a"))
	m, err := ReadMetadata(s, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, m.Version)

	_, err = ReadMetadata(s, "missing")
	assert.True(t, errors.Is(err, ErrPathNotFound))
}
