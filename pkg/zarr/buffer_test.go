package zarr

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDtype(t *testing.T) {
	cases := map[string]Dtype{
		"int8": Int8, "<i1": Int8, "|i1": Int8,
		"uint8": Uint8, "|u1": Uint8,
		"int16": Int16, "<i2": Int16,
		"uint64": Uint64, "<u8": Uint64,
		"float32": Float32, "<f4": Float32, "single": Float32,
		"float64": Float64, "<f8": Float64, "double": Float64,
	}
	for s, want := range cases {
		got, err := ParseDtype(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	_, err := ParseDtype(">f8")
	assert.True(t, errors.Is(err, ErrInvalidDtype))
	_, err = ParseDtype("complex128")
	assert.True(t, errors.Is(err, ErrInvalidDtype))
}

func TestDtypeSpellings(t *testing.T) {
	assert.Equal(t, "float64", Float64.String())
	assert.Equal(t, "<f8", Float64.V2String())
	assert.Equal(t, 8, Float64.Size())
	assert.True(t, Float64.IsFloat())
	assert.Equal(t, "<u2", Uint16.V2String())
	assert.Equal(t, 2, Uint16.Size())
	assert.False(t, Uint16.IsFloat())
}

func TestDtypeValueRoundTrip(t *testing.T) {
	cases := map[Dtype][]float64{
		Int8:    {-128, 127, 0},
		Uint8:   {0, 255},
		Int16:   {-32768, 32767},
		Uint16:  {0, 65535},
		Int32:   {-2147483648, 2147483647},
		Uint32:  {0, 4294967295},
		Int64:   {-1 << 52, 1 << 52},
		Uint64:  {0, 1 << 52},
		Float32: {-1.5, 3.25},
		Float64: {math.Pi, -0.125},
	}
	for dt, vals := range cases {
		buf := make([]byte, dt.Size())
		for _, v := range vals {
			dt.PutValue(buf, v)
			assert.Equal(t, v, dt.Value(buf), "%s %v", dt, v)
		}
	}
}

func TestBufferStrides(t *testing.T) {
	c := NewBuffer(Float64, []int{2, 3, 4}, RowMajor)
	assert.Equal(t, []int{12, 4, 1}, c.strides)
	f := NewBuffer(Float64, []int{2, 3, 4}, ColMajor)
	assert.Equal(t, []int{1, 2, 6}, f.strides)

	c.Set(42, 1, 2, 3)
	assert.Equal(t, float64(42), c.At(1, 2, 3))
	assert.Equal(t, float64(42), c.Float64s()[23])

	f.Set(42, 1, 2, 3)
	assert.Equal(t, float64(42), f.At(1, 2, 3))
	assert.Equal(t, float64(42), f.Float64s()[23])
}

func TestBufferFill(t *testing.T) {
	b := NewBufferFill(Int32, []int{3, 3}, RowMajor, -5)
	for _, v := range b.Float64s() {
		assert.Equal(t, float64(-5), v)
	}
	z := NewBufferFill(Int32, []int{3, 3}, RowMajor, 0)
	for _, v := range z.Float64s() {
		assert.Equal(t, float64(0), v)
	}
}

func TestBufferFrom(t *testing.T) {
	data := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	b, err := NewBufferFrom(Uint16, []int{2, 2}, RowMajor, data)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, b.Float64s())

	_, err = NewBufferFrom(Uint16, []int{2, 2}, RowMajor, data[:6])
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestBufferSetFloat64s(t *testing.T) {
	b := NewBuffer(Float64, []int{4}, RowMajor)
	assert.True(t, errors.Is(b.SetFloat64s([]float64{1, 2}), ErrInvalidValue))
	require.NoError(t, b.SetFloat64s([]float64{1, 2, 3, 4}))
	assert.Equal(t, []float64{1, 2, 3, 4}, b.Float64s())
}
