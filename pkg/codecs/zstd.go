package codecs

import (
	"github.com/DataDog/zstd"
	"github.com/pkg/errors"
)

// Zstd compresses a chunk as a single zstd frame. The checksum flag is carried
// in the configuration for metadata fidelity only: frames written by this
// codec never embed a content checksum (the one-shot libzstd compressor does
// not emit one). On decode, libzstd verifies a checksum whenever a foreign
// frame carries one, so a mismatch surfaces as a decode error.
type Zstd struct {
	level    int
	checksum bool
}

func NewZstd(level int, checksum bool) (*Zstd, error) {
	if level < 1 || level > zstd.BestCompression {
		return nil, errors.Errorf("invalid zstd level %d", level)
	}
	return &Zstd{level: level, checksum: checksum}, nil
}

func (z *Zstd) ID() string { return "zstd" }

func (z *Zstd) Config() map[string]interface{} {
	return map[string]interface{}{
		"id":       "zstd",
		"level":    z.level,
		"checksum": z.checksum,
	}
}

func (z *Zstd) Encode(data []byte, elemSize int) ([]byte, error) {
	return zstd.CompressLevel(nil, data, z.level)
}

func (z *Zstd) Decode(data []byte, elemSize int) ([]byte, error) {
	return zstd.Decompress(nil, data)
}

func init() {
	Register("zstd", func(config map[string]interface{}) (Codec, error) {
		return NewZstd(intValue(config, "level", zstd.DefaultCompression), boolValue(config, "checksum", false))
	})
}
