package codecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineRoundTrip(t *testing.T) {
	data := make([]byte, 8*200)
	for i := range data {
		data[i] = byte(i % 97)
	}

	newCompressor := map[string]func() (Codec, error){
		"none":  func() (Codec, error) { return nil, nil },
		"blosc": func() (Codec, error) { return NewBlosc("zstd", 5, true, 0) },
		"gzip":  func() (Codec, error) { return NewGzip(6) },
		"zlib":  func() (Codec, error) { return NewZlib(6) },
		"zstd":  func() (Codec, error) { return NewZstd(3, false) },
	}
	newFilters := map[string]func() ([]Codec, error){
		"bare": func() ([]Codec, error) { return nil, nil },
		"delta+shuffle": func() ([]Codec, error) {
			d, err := NewDelta("<f8")
			if err != nil {
				return nil, err
			}
			s, err := NewShuffle(8)
			if err != nil {
				return nil, err
			}
			return []Codec{d, s}, nil
		},
	}

	for cn, mkc := range newCompressor {
		for fn, mkf := range newFilters {
			t.Run(cn+"/"+fn, func(t *testing.T) {
				compressor, err := mkc()
				require.NoError(t, err)
				filters, err := mkf()
				require.NoError(t, err)
				p := NewPipeline(filters, compressor, 8)
				encoded, err := p.Encode(data)
				require.NoError(t, err)
				decoded, err := p.Decode(encoded)
				require.NoError(t, err)
				assert.Equal(t, data, decoded)
			})
		}
	}
}

func TestPipelineEmpty(t *testing.T) {
	d, err := NewDelta("<i4")
	require.NoError(t, err)
	p := NewPipeline([]Codec{d}, DefaultBlosc(), 4)
	encoded, err := p.Encode(nil)
	require.NoError(t, err)
	decoded, err := p.Decode(encoded)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestPipelineErrorNamesCodec(t *testing.T) {
	p := NewPipeline(nil, DefaultBlosc(), 8)
	_, err := p.Decode([]byte{0xde, 0xad})
	require.Error(t, err)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "blosc", cerr.ID)
}

func TestZstdChecksumConfig(t *testing.T) {
	z, err := NewZstd(3, true)
	require.NoError(t, err)
	assert.Equal(t, true, z.Config()["checksum"])

	c, err := FromConfig(z.Config())
	require.NoError(t, err)
	assert.Equal(t, z.Config(), c.Config())

	// frames written without a checksum still round-trip
	data := []byte("payload payload payload")
	encoded, err := z.Encode(data, 1)
	require.NoError(t, err)
	decoded, err := z.Decode(encoded, 1)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestCompressorLevels(t *testing.T) {
	_, err := NewGzip(42)
	assert.Error(t, err)
	_, err = NewZlib(42)
	assert.Error(t, err)
	_, err = NewZstd(0, false)
	assert.Error(t, err)
	_, err = NewZstd(99, false)
	assert.Error(t, err)
}

func TestRegistryKnowsAllCodecs(t *testing.T) {
	ids := Registered()
	for _, id := range []string{"blosc", "gzip", "zlib", "zstd", "delta", "shuffle"} {
		assert.Contains(t, ids, id)
	}
	assert.NotContains(t, ids, "bz2")

	_, err := FromConfig(map[string]interface{}{"id": "bz2"})
	assert.Error(t, err)
	_, err = FromConfig(map[string]interface{}{})
	assert.Error(t, err)
}
