package codecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffleKnownLayout(t *testing.T) {
	s, err := NewShuffle(4)
	require.NoError(t, err)

	in := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	encoded, err := s.Encode(in, 4)
	require.NoError(t, err)
	// three 4-byte elements become four planes of three bytes
	assert.Equal(t, []byte{0, 4, 8, 1, 5, 9, 2, 6, 10, 3, 7, 11}, encoded)

	decoded, err := s.Decode(encoded, 4)
	require.NoError(t, err)
	assert.Equal(t, in, decoded)
}

func TestShuffleRoundTrip(t *testing.T) {
	for _, size := range []int{2, 4, 8} {
		s, err := NewShuffle(size)
		require.NoError(t, err)
		in := make([]byte, size*57)
		for i := range in {
			in[i] = byte(i * 31)
		}
		encoded, err := s.Encode(in, size)
		require.NoError(t, err)
		decoded, err := s.Decode(encoded, size)
		require.NoError(t, err)
		assert.Equal(t, in, decoded)
	}
}

func TestShuffleEmpty(t *testing.T) {
	s, err := NewShuffle(8)
	require.NoError(t, err)
	encoded, err := s.Encode(nil, 8)
	require.NoError(t, err)
	assert.Empty(t, encoded)
}

func TestShuffleElementSizeOne(t *testing.T) {
	s, err := NewShuffle(1)
	require.NoError(t, err)
	in := []byte{9, 8, 7}
	encoded, err := s.Encode(in, 1)
	require.NoError(t, err)
	assert.Equal(t, in, encoded)
}

func TestShuffleValidation(t *testing.T) {
	_, err := NewShuffle(0)
	assert.Error(t, err)
	_, err = NewShuffle(-4)
	assert.Error(t, err)

	s, err := NewShuffle(4)
	require.NoError(t, err)
	_, err = s.Encode([]byte{1, 2, 3}, 4)
	assert.Error(t, err)
}

func TestShuffleConfigRoundTrip(t *testing.T) {
	s, err := NewShuffle(2)
	require.NoError(t, err)
	c, err := FromConfig(s.Config())
	require.NoError(t, err)
	assert.Equal(t, s.Config(), c.Config())
}
