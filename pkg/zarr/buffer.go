package zarr

import "github.com/pkg/errors"

// Order is the logical-to-physical element layout of a chunk.
type Order string

const (
	// RowMajor lays elements out with the last dimension varying fastest.
	RowMajor Order = "C"
	// ColMajor lays elements out with the first dimension varying fastest.
	ColMajor Order = "F"
)

func parseOrder(s string) (Order, error) {
	switch Order(s) {
	case RowMajor, ColMajor:
		return Order(s), nil
	}
	return "", errors.Wrapf(ErrInvalidMetadata, "unknown order %q", s)
}

// Buffer is a shaped, typed view over raw little-endian element bytes.
type Buffer struct {
	dtype   Dtype
	shape   []int
	order   Order
	strides []int // element strides per dimension
	data    []byte
}

// NewBuffer allocates a zeroed buffer of the given shape.
func NewBuffer(dtype Dtype, shape []int, order Order) *Buffer {
	n := numElements(shape)
	return newBuffer(dtype, shape, order, make([]byte, n*dtype.Size()))
}

// NewBufferFill allocates a buffer with every element set to fill.
func NewBufferFill(dtype Dtype, shape []int, order Order, fill float64) *Buffer {
	b := NewBuffer(dtype, shape, order)
	if fill == 0 {
		return b
	}
	size := dtype.Size()
	dtype.PutValue(b.data[:size], fill)
	first := b.data[:size]
	for off := size; off < len(b.data); off += size {
		copy(b.data[off:off+size], first)
	}
	return b
}

// NewBufferFrom wraps existing element bytes without copying.
func NewBufferFrom(dtype Dtype, shape []int, order Order, data []byte) (*Buffer, error) {
	want := numElements(shape) * dtype.Size()
	if len(data) != want {
		return nil, errors.Wrapf(ErrInvalidValue, "buffer has %d bytes, shape %v of %s needs %d", len(data), shape, dtype, want)
	}
	return newBuffer(dtype, shape, order, data), nil
}

func newBuffer(dtype Dtype, shape []int, order Order, data []byte) *Buffer {
	shape = append([]int(nil), shape...)
	return &Buffer{
		dtype:   dtype,
		shape:   shape,
		order:   order,
		strides: strides(shape, order),
		data:    data,
	}
}

func (b *Buffer) Dtype() Dtype  { return b.dtype }
func (b *Buffer) Shape() []int  { return b.shape }
func (b *Buffer) Order() Order  { return b.order }
func (b *Buffer) Bytes() []byte { return b.data }

// NumElements returns the element count.
func (b *Buffer) NumElements() int { return numElements(b.shape) }

// offset returns the flat element offset of an N-dimensional index.
func (b *Buffer) offset(idx []int) int {
	off := 0
	for d, i := range idx {
		off += i * b.strides[d]
	}
	return off
}

// At returns the element at idx converted to float64.
func (b *Buffer) At(idx ...int) float64 {
	off := b.offset(idx) * b.dtype.Size()
	return b.dtype.Value(b.data[off:])
}

// Set stores v at idx, converted to the buffer's dtype.
func (b *Buffer) Set(v float64, idx ...int) {
	off := b.offset(idx) * b.dtype.Size()
	b.dtype.PutValue(b.data[off:off+b.dtype.Size()], v)
}

// Float64s returns all elements in flat layout order, converted to float64.
func (b *Buffer) Float64s() []float64 {
	size := b.dtype.Size()
	out := make([]float64, b.NumElements())
	for i := range out {
		out[i] = b.dtype.Value(b.data[i*size:])
	}
	return out
}

// SetFloat64s fills the buffer from flat layout-order values.
func (b *Buffer) SetFloat64s(vals []float64) error {
	if len(vals) != b.NumElements() {
		return errors.Wrapf(ErrInvalidValue, "%d values for %d elements", len(vals), b.NumElements())
	}
	size := b.dtype.Size()
	for i, v := range vals {
		b.dtype.PutValue(b.data[i*size:(i+1)*size], v)
	}
	return nil
}

func numElements(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func strides(shape []int, order Order) []int {
	st := make([]int, len(shape))
	if len(shape) == 0 {
		return st
	}
	if order == ColMajor {
		st[0] = 1
		for d := 1; d < len(shape); d++ {
			st[d] = st[d-1] * shape[d-1]
		}
		return st
	}
	st[len(shape)-1] = 1
	for d := len(shape) - 2; d >= 0; d-- {
		st[d] = st[d+1] * shape[d+1]
	}
	return st
}
