package codecs

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaUint8Wraparound(t *testing.T) {
	d, err := NewDelta("<u1")
	require.NoError(t, err)

	encoded, err := d.Encode([]byte{250, 5, 200}, 1)
	require.NoError(t, err)
	// 5-250 and 200-5 wrap at the 8-bit width
	assert.Equal(t, []byte{250, 11, 195}, encoded)

	decoded, err := d.Decode(encoded, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{250, 5, 200}, decoded)
}

func TestDeltaIntExtremes(t *testing.T) {
	cases := map[string][]uint64{
		"<i2": {0x8000, 0x7fff, 0, 0xffff},
		"<i4": {0x80000000, 0x7fffffff, 0, 1},
		"<u4": {0, 0xffffffff, 1, 0xfffffffe},
		"<i8": {0x8000000000000000, 0x7fffffffffffffff, 0, 42},
		"<u8": {math.MaxUint64, 0, math.MaxUint64 - 1, 7},
	}
	for dtype, vals := range cases {
		t.Run(dtype, func(t *testing.T) {
			d, err := NewDelta(dtype)
			require.NoError(t, err)
			data := make([]byte, len(vals)*d.width)
			for i, v := range vals {
				d.put(data, i*d.width, v)
			}
			encoded, err := d.Encode(data, d.width)
			require.NoError(t, err)
			decoded, err := d.Decode(encoded, d.width)
			require.NoError(t, err)
			assert.Equal(t, data, decoded)
		})
	}
}

func TestDeltaInt32Reference(t *testing.T) {
	// numcodecs Delta(dtype='i4') on [100, 150, 175, 200, 225]
	d, err := NewDelta("<i4")
	require.NoError(t, err)
	data := make([]byte, 20)
	for i, v := range []int32{100, 150, 175, 200, 225} {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(v))
	}
	encoded, err := d.Encode(data, 4)
	require.NoError(t, err)
	for i, want := range []int32{100, 50, 25, 25, 25} {
		got := int32(binary.LittleEndian.Uint32(encoded[i*4:]))
		assert.Equal(t, want, got)
	}
}

func TestDeltaFloat(t *testing.T) {
	d, err := NewDelta("<f8")
	require.NoError(t, err)
	vals := []float64{1.5, 2.5, -4, 0.25, 1024}
	data := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	encoded, err := d.Encode(data, 8)
	require.NoError(t, err)
	decoded, err := d.Decode(encoded, 8)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestDeltaEmpty(t *testing.T) {
	d, err := NewDelta("<i4")
	require.NoError(t, err)
	encoded, err := d.Encode(nil, 4)
	require.NoError(t, err)
	assert.Empty(t, encoded)
	decoded, err := d.Decode(encoded, 4)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDeltaConfigRoundTrip(t *testing.T) {
	d, err := NewDelta("<u2")
	require.NoError(t, err)
	c, err := FromConfig(d.Config())
	require.NoError(t, err)
	assert.Equal(t, d.Config(), c.Config())
}

func TestDeltaRejectsUnknownDtype(t *testing.T) {
	_, err := NewDelta("<c16")
	assert.Error(t, err)
	_, err = NewDelta("")
	assert.Error(t, err)
}

func TestDeltaRejectsRaggedBuffer(t *testing.T) {
	d, err := NewDelta("<i4")
	require.NoError(t, err)
	_, err = d.Encode([]byte{1, 2, 3}, 4)
	assert.Error(t, err)
}
