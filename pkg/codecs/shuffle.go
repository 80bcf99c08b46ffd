package codecs

import "github.com/pkg/errors"

// Shuffle is the byte-transpose filter: it regroups an N-element buffer of
// k-byte values into k planes of N bytes, which compresses better when the
// high-order bytes are mostly constant.
type Shuffle struct {
	elementSize int
}

func NewShuffle(elementSize int) (*Shuffle, error) {
	if elementSize <= 0 {
		return nil, errors.Errorf("invalid shuffle element size %d", elementSize)
	}
	return &Shuffle{elementSize: elementSize}, nil
}

func (s *Shuffle) ID() string { return "shuffle" }

// ElementSize returns the configured element width in bytes.
func (s *Shuffle) ElementSize() int { return s.elementSize }

func (s *Shuffle) Config() map[string]interface{} {
	return map[string]interface{}{
		"id":          "shuffle",
		"elementsize": s.elementSize,
	}
}

func (s *Shuffle) Encode(data []byte, elemSize int) ([]byte, error) {
	return shuffleBytes(data, s.elementSize)
}

func (s *Shuffle) Decode(data []byte, elemSize int) ([]byte, error) {
	return unshuffleBytes(data, s.elementSize)
}

func shuffleBytes(data []byte, size int) ([]byte, error) {
	if len(data) == 0 || size == 1 {
		return data, nil
	}
	if len(data)%size != 0 {
		return nil, errors.Errorf("buffer of %d bytes is not a multiple of element size %d", len(data), size)
	}
	n := len(data) / size
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		for j := 0; j < size; j++ {
			out[j*n+i] = data[i*size+j]
		}
	}
	return out, nil
}

func unshuffleBytes(data []byte, size int) ([]byte, error) {
	if len(data) == 0 || size == 1 {
		return data, nil
	}
	if len(data)%size != 0 {
		return nil, errors.Errorf("buffer of %d bytes is not a multiple of element size %d", len(data), size)
	}
	n := len(data) / size
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		for j := 0; j < size; j++ {
			out[i*size+j] = data[j*n+i]
		}
	}
	return out, nil
}

func init() {
	Register("shuffle", func(config map[string]interface{}) (Codec, error) {
		return NewShuffle(intValue(config, "elementsize", 0))
	})
}
