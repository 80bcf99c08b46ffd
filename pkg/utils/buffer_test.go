package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer(t *testing.T) {
	wb := NewBuffer(17)
	wb.Put8(1)
	wb.Put32(0x11223344)
	wb.Put64(0x5566778899)
	wb.Put([]byte{0xaa, 0xbb, 0xcc, 0xdd})
	assert.Equal(t, 17, wb.Len())

	rb := ReadBuffer(wb.Bytes())
	assert.EqualValues(t, 1, rb.Get8())
	assert.EqualValues(t, 0x11223344, rb.Get32())
	assert.EqualValues(t, 0x5566778899, rb.Get64())
	assert.True(t, rb.HasMore())
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc, 0xdd}, rb.Get(4))
	assert.False(t, rb.HasMore())
}

func TestMin(t *testing.T) {
	assert.Equal(t, 1, Min(1, 2))
	assert.Equal(t, -3, Min(-3, 2))
	assert.Equal(t, 5, Min(5, 5))
}
