package zarr

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Dtype is one of the ten fixed-width element types an array can hold.
// Stored bytes are always little-endian.
type Dtype int

const (
	Int8 Dtype = iota
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

type dtypeInfo struct {
	name  string // v3 spelling
	v2    string // numpy-style v2 spelling
	size  int
	float bool
}

var dtypes = map[Dtype]dtypeInfo{
	Int8:    {"int8", "<i1", 1, false},
	Int16:   {"int16", "<i2", 2, false},
	Int32:   {"int32", "<i4", 4, false},
	Int64:   {"int64", "<i8", 8, false},
	Uint8:   {"uint8", "<u1", 1, false},
	Uint16:  {"uint16", "<u2", 2, false},
	Uint32:  {"uint32", "<u4", 4, false},
	Uint64:  {"uint64", "<u8", 8, false},
	Float32: {"float32", "<f4", 4, true},
	Float64: {"float64", "<f8", 8, true},
}

// ParseDtype accepts v3 names ("float64"), v2 numpy strings ("<f8", "|u1")
// and the MATLAB-style aliases "double" and "single".
func ParseDtype(s string) (Dtype, error) {
	switch s {
	case "double":
		return Float64, nil
	case "single":
		return Float32, nil
	}
	for dt, info := range dtypes {
		if s == info.name || s == info.v2 {
			return dt, nil
		}
		// 1-byte types have no byte order; numpy spells them with "|"
		if info.size == 1 && len(s) == 3 && s[0] == '|' && s[1:] == info.v2[1:] {
			return dt, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidDtype, "%q", s)
}

func (d Dtype) String() string { return dtypes[d].name }

// V2String returns the numpy-style dtype spelling used in .zarray documents.
func (d Dtype) V2String() string { return dtypes[d].v2 }

// Size returns the element width in bytes.
func (d Dtype) Size() int { return dtypes[d].size }

func (d Dtype) IsFloat() bool { return dtypes[d].float }

// PutValue renders v into buf as one little-endian element of this dtype.
// Integer dtypes truncate toward zero.
func (d Dtype) PutValue(buf []byte, v float64) {
	switch d {
	case Int8:
		buf[0] = byte(int8(v))
	case Uint8:
		buf[0] = uint8(v)
	case Int16:
		binary.LittleEndian.PutUint16(buf, uint16(int16(v)))
	case Uint16:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case Int32:
		binary.LittleEndian.PutUint32(buf, uint32(int32(v)))
	case Uint32:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case Int64:
		binary.LittleEndian.PutUint64(buf, uint64(int64(v)))
	case Uint64:
		binary.LittleEndian.PutUint64(buf, uint64(v))
	case Float32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	}
}

// Value reads one little-endian element of this dtype from buf.
func (d Dtype) Value(buf []byte) float64 {
	switch d {
	case Int8:
		return float64(int8(buf[0]))
	case Uint8:
		return float64(buf[0])
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(buf)))
	case Uint16:
		return float64(binary.LittleEndian.Uint16(buf))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(buf)))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(buf))
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(buf)))
	case Uint64:
		return float64(binary.LittleEndian.Uint64(buf))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(buf))
	}
}
