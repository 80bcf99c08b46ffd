package codecs

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Delta stores the first-difference sequence of a flattened chunk. Integer
// differences wrap at the dtype's bit width, so decode is lossless for every
// representable value; floats use ordinary subtraction.
type Delta struct {
	dtype string
	width int
	float bool
}

var deltaDtypes = map[string]struct {
	width int
	float bool
}{
	"<i1": {1, false}, "|i1": {1, false},
	"<u1": {1, false}, "|u1": {1, false},
	"<i2": {2, false}, "<u2": {2, false},
	"<i4": {4, false}, "<u4": {4, false},
	"<i8": {8, false}, "<u8": {8, false},
	"<f4": {4, true},
	"<f8": {8, true},
}

func NewDelta(dtype string) (*Delta, error) {
	d, ok := deltaDtypes[dtype]
	if !ok {
		return nil, errors.Errorf("unsupported delta dtype %q", dtype)
	}
	return &Delta{dtype: dtype, width: d.width, float: d.float}, nil
}

func (d *Delta) ID() string { return "delta" }

// Dtype returns the configured numpy-style dtype string.
func (d *Delta) Dtype() string { return d.dtype }

func (d *Delta) Config() map[string]interface{} {
	return map[string]interface{}{
		"id":    "delta",
		"dtype": d.dtype,
	}
}

func (d *Delta) Encode(data []byte, elemSize int) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	if len(data)%d.width != 0 {
		return nil, errors.Errorf("buffer of %d bytes is not a multiple of element width %d", len(data), d.width)
	}
	out := make([]byte, len(data))
	if d.float {
		d.encodeFloat(out, data)
		return out, nil
	}
	var prev uint64
	for off := 0; off < len(data); off += d.width {
		cur := d.get(data, off)
		if off == 0 {
			d.put(out, off, cur)
		} else {
			d.put(out, off, cur-prev) // wraps at the dtype width
		}
		prev = cur
	}
	return out, nil
}

func (d *Delta) Decode(data []byte, elemSize int) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	if len(data)%d.width != 0 {
		return nil, errors.Errorf("buffer of %d bytes is not a multiple of element width %d", len(data), d.width)
	}
	out := make([]byte, len(data))
	if d.float {
		d.decodeFloat(out, data)
		return out, nil
	}
	var acc uint64
	for off := 0; off < len(data); off += d.width {
		acc += d.get(data, off)
		d.put(out, off, acc)
	}
	return out, nil
}

// get reads the element at off as raw unsigned bits; put writes it back
// truncated to the element width, which is what makes the arithmetic modular.
func (d *Delta) get(data []byte, off int) uint64 {
	switch d.width {
	case 1:
		return uint64(data[off])
	case 2:
		return uint64(binary.LittleEndian.Uint16(data[off:]))
	case 4:
		return uint64(binary.LittleEndian.Uint32(data[off:]))
	default:
		return binary.LittleEndian.Uint64(data[off:])
	}
}

func (d *Delta) put(data []byte, off int, v uint64) {
	switch d.width {
	case 1:
		data[off] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(data[off:], uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(data[off:], uint32(v))
	default:
		binary.LittleEndian.PutUint64(data[off:], v)
	}
}

func (d *Delta) encodeFloat(out, data []byte) {
	if d.width == 4 {
		var prev float32
		for off := 0; off < len(data); off += 4 {
			cur := math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			v := cur
			if off > 0 {
				v = cur - prev
			}
			binary.LittleEndian.PutUint32(out[off:], math.Float32bits(v))
			prev = cur
		}
		return
	}
	var prev float64
	for off := 0; off < len(data); off += 8 {
		cur := math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
		v := cur
		if off > 0 {
			v = cur - prev
		}
		binary.LittleEndian.PutUint64(out[off:], math.Float64bits(v))
		prev = cur
	}
}

func (d *Delta) decodeFloat(out, data []byte) {
	if d.width == 4 {
		var acc float32
		for off := 0; off < len(data); off += 4 {
			acc += math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			binary.LittleEndian.PutUint32(out[off:], math.Float32bits(acc))
		}
		return
	}
	var acc float64
	for off := 0; off < len(data); off += 8 {
		acc += math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
		binary.LittleEndian.PutUint64(out[off:], math.Float64bits(acc))
	}
}

func init() {
	Register("delta", func(config map[string]interface{}) (Codec, error) {
		return NewDelta(stringValue(config, "dtype", ""))
	})
}
