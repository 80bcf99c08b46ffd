package utils

import "encoding/binary"

// Buffer is a little-endian binary scratch buffer for fixed-layout headers.
type Buffer struct {
	buf []byte
	off int
}

// NewBuffer allocates a write buffer of the given size.
func NewBuffer(size uint32) *Buffer {
	return &Buffer{buf: make([]byte, size)}
}

// ReadBuffer wraps existing bytes for sequential reads.
func ReadBuffer(data []byte) *Buffer {
	return &Buffer{buf: data}
}

func (b *Buffer) Put8(v uint8) {
	b.buf[b.off] = v
	b.off++
}

func (b *Buffer) Put32(v uint32) {
	binary.LittleEndian.PutUint32(b.buf[b.off:], v)
	b.off += 4
}

func (b *Buffer) Put64(v uint64) {
	binary.LittleEndian.PutUint64(b.buf[b.off:], v)
	b.off += 8
}

func (b *Buffer) Put(data []byte) {
	copy(b.buf[b.off:], data)
	b.off += len(data)
}

func (b *Buffer) Get8() uint8 {
	v := b.buf[b.off]
	b.off++
	return v
}

func (b *Buffer) Get32() uint32 {
	v := binary.LittleEndian.Uint32(b.buf[b.off:])
	b.off += 4
	return v
}

func (b *Buffer) Get64() uint64 {
	v := binary.LittleEndian.Uint64(b.buf[b.off:])
	b.off += 8
	return v
}

func (b *Buffer) Get(n int) []byte {
	v := b.buf[b.off : b.off+n]
	b.off += n
	return v
}

// HasMore reports whether unread bytes remain.
func (b *Buffer) HasMore() bool { return b.off < len(b.buf) }

// Len returns the total buffer length.
func (b *Buffer) Len() int { return len(b.buf) }

// Bytes returns the underlying bytes.
func (b *Buffer) Bytes() []byte { return b.buf }
