package codecs

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/pkg/errors"
)

type Gzip struct {
	level int
}

func NewGzip(level int) (*Gzip, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, errors.Errorf("invalid gzip level %d", level)
	}
	return &Gzip{level: level}, nil
}

func (g *Gzip) ID() string { return "gzip" }

func (g *Gzip) Config() map[string]interface{} {
	return map[string]interface{}{
		"id":    "gzip",
		"level": g.level,
	}
}

func (g *Gzip) Encode(data []byte, elemSize int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, g.level)
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

func (g *Gzip) Decode(data []byte, elemSize int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func init() {
	Register("gzip", func(config map[string]interface{}) (Codec, error) {
		return NewGzip(intValue(config, "level", gzip.DefaultCompression))
	})
}
