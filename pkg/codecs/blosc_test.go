package codecs

import (
	"encoding/binary"
	"testing"

	"NDZarr/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressibleBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i / 16)
	}
	return data
}

func TestBloscRoundTrip(t *testing.T) {
	data := compressibleBytes(4096)
	for _, cname := range []string{"zstd", "lz4", "zlib"} {
		for _, shuffle := range []bool{false, true} {
			b, err := NewBlosc(cname, 5, shuffle, 0)
			require.NoError(t, err)
			encoded, err := b.Encode(data, 8)
			require.NoError(t, err)
			assert.Less(t, len(encoded), len(data), "%s should compress this input", cname)
			decoded, err := b.Decode(encoded, 8)
			require.NoError(t, err)
			assert.Equal(t, data, decoded)
		}
	}
}

func TestBloscHeader(t *testing.T) {
	data := compressibleBytes(1024)
	b, err := NewBlosc("zstd", 5, true, 0)
	require.NoError(t, err)
	encoded, err := b.Encode(data, 4)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(encoded), bloscHeaderSize)
	assert.EqualValues(t, bloscVersion, encoded[0])
	flags := encoded[2]
	assert.NotZero(t, flags&bloscDoShuffle)
	assert.EqualValues(t, bloscZstd, flags>>5)
	assert.EqualValues(t, 4, encoded[3])
	assert.EqualValues(t, len(data), binary.LittleEndian.Uint32(encoded[4:]))
	assert.EqualValues(t, len(encoded), binary.LittleEndian.Uint32(encoded[12:]))
}

func TestBloscMemcpyedFallback(t *testing.T) {
	// a single byte can never shrink through a compression frame
	b := DefaultBlosc()
	encoded, err := b.Encode([]byte{0x42}, 1)
	require.NoError(t, err)
	assert.Len(t, encoded, bloscHeaderSize+1)
	assert.EqualValues(t, bloscMemcpyed, encoded[2])

	decoded, err := b.Decode(encoded, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x42}, decoded)
}

func TestBloscEmpty(t *testing.T) {
	b := DefaultBlosc()
	encoded, err := b.Encode(nil, 8)
	require.NoError(t, err)
	assert.Len(t, encoded, bloscHeaderSize)
	decoded, err := b.Decode(encoded, 8)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestBloscValidation(t *testing.T) {
	_, err := NewBlosc("snappy", 5, true, 0)
	assert.Error(t, err)
	_, err = NewBlosc("zstd", 0, true, 0)
	assert.Error(t, err)
	_, err = NewBlosc("zstd", 10, true, 0)
	assert.Error(t, err)
	_, err = NewBlosc("zstd", 5, true, -1)
	assert.Error(t, err)
}

// multiBlockFrame assembles a blosc1 frame the way c-blosc writes one when
// nbytes exceeds the block size: every block shuffled and compressed on its
// own, with a block offset table after the header.
func multiBlockFrame(t *testing.T, cname string, typesize, blocksize int, data []byte) []byte {
	b, err := NewBlosc(cname, 5, true, 0)
	require.NoError(t, err)

	var blocks [][]byte
	for off := 0; off < len(data); off += blocksize {
		end := off + blocksize
		if end > len(data) {
			end = len(data)
		}
		sh, err := shuffleBytes(data[off:end], typesize)
		require.NoError(t, err)
		blk, err := b.compress(sh)
		require.NoError(t, err)
		blocks = append(blocks, blk)
	}

	total := bloscHeaderSize + 4*len(blocks)
	starts := make([]int, len(blocks))
	for j, blk := range blocks {
		starts[j] = total
		total += len(blk)
	}
	wb := utils.NewBuffer(uint32(total))
	wb.Put8(bloscVersion)
	wb.Put8(1)
	wb.Put8(bloscDoShuffle | bloscCompcodes[cname]<<5)
	wb.Put8(uint8(typesize))
	wb.Put32(uint32(len(data)))
	wb.Put32(uint32(blocksize))
	wb.Put32(uint32(total))
	for _, s := range starts {
		wb.Put32(uint32(s))
	}
	for _, blk := range blocks {
		wb.Put(blk)
	}
	return wb.Bytes()
}

func TestBloscMultiBlockFrame(t *testing.T) {
	data := make([]byte, 128)
	for i := range data {
		data[i] = byte(i)
	}
	b := DefaultBlosc()
	for _, cname := range []string{"zstd", "lz4", "zlib"} {
		t.Run(cname, func(t *testing.T) {
			// two full 64-byte blocks: each one shuffled independently
			frame := multiBlockFrame(t, cname, 2, 64, data)
			decoded, err := b.Decode(frame, 2)
			require.NoError(t, err)
			assert.Equal(t, data, decoded)
		})
	}
}

func TestBloscMultiBlockShortTail(t *testing.T) {
	// 3 blocks of 48 bytes plus a 16-byte remainder block
	data := make([]byte, 160)
	for i := range data {
		data[i] = byte(i * 7)
	}
	frame := multiBlockFrame(t, "zstd", 4, 48, data)
	decoded, err := DefaultBlosc().Decode(frame, 4)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestBloscDecodeRejectsGarbage(t *testing.T) {
	b := DefaultBlosc()
	_, err := b.Decode([]byte{1, 2, 3}, 1)
	assert.Error(t, err)

	// cbytes mismatch
	encoded, err := b.Encode(compressibleBytes(256), 1)
	require.NoError(t, err)
	_, err = b.Decode(encoded[:len(encoded)-1], 1)
	assert.Error(t, err)
}

func TestBloscDefaultConfig(t *testing.T) {
	assert.Equal(t, map[string]interface{}{
		"id":        "blosc",
		"cname":     "zstd",
		"clevel":    5,
		"shuffle":   true,
		"blocksize": 0,
	}, DefaultBlosc().Config())
}

func TestBloscFromConfig(t *testing.T) {
	// numbers arrive as float64 after a trip through JSON
	c, err := FromConfig(map[string]interface{}{
		"id":      "blosc",
		"cname":   "lz4",
		"clevel":  float64(3),
		"shuffle": false,
	})
	require.NoError(t, err)
	b, ok := c.(*Blosc)
	require.True(t, ok)
	assert.Equal(t, "lz4", b.cname)
	assert.Equal(t, 3, b.clevel)
	assert.False(t, b.shuffle)
}
