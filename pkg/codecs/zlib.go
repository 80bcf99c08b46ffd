package codecs

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"
)

type Zlib struct {
	level int
}

func NewZlib(level int) (*Zlib, error) {
	if level < zlib.HuffmanOnly || level > zlib.BestCompression {
		return nil, errors.Errorf("invalid zlib level %d", level)
	}
	return &Zlib{level: level}, nil
}

func (z *Zlib) ID() string { return "zlib" }

func (z *Zlib) Config() map[string]interface{} {
	return map[string]interface{}{
		"id":    "zlib",
		"level": z.level,
	}
}

func (z *Zlib) Encode(data []byte, elemSize int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, z.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (z *Zlib) Decode(data []byte, elemSize int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func init() {
	Register("zlib", func(config map[string]interface{}) (Codec, error) {
		return NewZlib(intValue(config, "level", zlib.DefaultCompression))
	})
}
