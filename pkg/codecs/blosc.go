package codecs

import (
	"bytes"
	"compress/zlib"
	"io"

	"NDZarr/pkg/utils"

	"github.com/DataDog/zstd"
	"github.com/hungys/go-lz4"
	"github.com/pkg/errors"
)

// Blosc is the blosc1 container over a pluggable compression backend.
// The 16-byte header layout (all little-endian):
//
//	0      version
//	1      backend format version
//	2      flags: bit0 byte-shuffle, bit1 stored uncompressed, bits 5-7 backend code
//	3      typesize
//	4:8    nbytes (uncompressed)
//	8:12   blocksize
//	12:16  cbytes (total, header included)
//
// Payloads are written as one block, so a 4-byte block offset follows the
// header unless the chunk is stored uncompressed.
type Blosc struct {
	cname     string
	clevel    int
	shuffle   bool
	blocksize int
}

const (
	bloscVersion    = 2
	bloscHeaderSize = 16

	bloscDoShuffle = 0x1
	bloscMemcpyed  = 0x2

	bloscLZ4  = 1
	bloscZlib = 4
	bloscZstd = 5
)

var bloscCompcodes = map[string]uint8{
	"lz4":  bloscLZ4,
	"zlib": bloscZlib,
	"zstd": bloscZstd,
}

// DefaultBlosc returns the library default (zstd, level 5, shuffle on), which
// matches what zarr-python writes without configuration.
func DefaultBlosc() *Blosc {
	c, _ := NewBlosc("zstd", 5, true, 0)
	return c
}

func NewBlosc(cname string, clevel int, shuffle bool, blocksize int) (*Blosc, error) {
	if _, ok := bloscCompcodes[cname]; !ok {
		return nil, errors.Errorf("unsupported blosc compressor %q", cname)
	}
	if clevel < 1 || clevel > 9 {
		return nil, errors.Errorf("blosc level %d out of range 1-9", clevel)
	}
	if blocksize < 0 {
		return nil, errors.Errorf("negative blosc block size %d", blocksize)
	}
	return &Blosc{cname: cname, clevel: clevel, shuffle: shuffle, blocksize: blocksize}, nil
}

func (b *Blosc) ID() string { return "blosc" }

func (b *Blosc) Config() map[string]interface{} {
	return map[string]interface{}{
		"id":        "blosc",
		"cname":     b.cname,
		"clevel":    b.clevel,
		"shuffle":   b.shuffle,
		"blocksize": b.blocksize,
	}
}

func (b *Blosc) Encode(data []byte, elemSize int) ([]byte, error) {
	typesize := elemSize
	if typesize < 1 || typesize > 255 {
		typesize = 1
	}

	var flags uint8 = bloscCompcodes[b.cname] << 5
	payload := data
	if b.shuffle && typesize > 1 && len(data)%typesize == 0 {
		flags |= bloscDoShuffle
		var err error
		payload, err = shuffleBytes(data, typesize)
		if err != nil {
			return nil, err
		}
	}

	compressed, err := b.compress(payload)
	if err != nil {
		return nil, err
	}

	if len(compressed) >= len(data) || len(data) == 0 {
		// not worth compressing, store the raw bytes
		flags = bloscMemcpyed
		wb := utils.NewBuffer(uint32(bloscHeaderSize + len(data)))
		b.putHeader(wb, flags, typesize, len(data), bloscHeaderSize+len(data))
		wb.Put(data)
		return wb.Bytes(), nil
	}

	total := bloscHeaderSize + 4 + len(compressed)
	wb := utils.NewBuffer(uint32(total))
	b.putHeader(wb, flags, typesize, len(data), total)
	wb.Put32(bloscHeaderSize + 4) // offset of the single block
	wb.Put(compressed)
	return wb.Bytes(), nil
}

func (b *Blosc) putHeader(wb *utils.Buffer, flags uint8, typesize, nbytes, cbytes int) {
	wb.Put8(bloscVersion)
	wb.Put8(1)
	wb.Put8(flags)
	wb.Put8(uint8(typesize))
	wb.Put32(uint32(nbytes))
	wb.Put32(uint32(nbytes)) // single block: blocksize == nbytes
	wb.Put32(uint32(cbytes))
}

func (b *Blosc) Decode(data []byte, elemSize int) ([]byte, error) {
	if len(data) < bloscHeaderSize {
		return nil, errors.Errorf("blosc payload of %d bytes is shorter than the header", len(data))
	}
	rb := utils.ReadBuffer(data)
	version := rb.Get8()
	rb.Get8() // backend format version
	flags := rb.Get8()
	typesize := int(rb.Get8())
	nbytes := int(rb.Get32())
	blocksize := int(rb.Get32())
	cbytes := int(rb.Get32())
	if version > bloscVersion+1 {
		return nil, errors.Errorf("unsupported blosc version %d", version)
	}
	if cbytes != len(data) {
		return nil, errors.Errorf("blosc header claims %d bytes, payload has %d", cbytes, len(data))
	}

	if flags&bloscMemcpyed != 0 {
		if len(data)-bloscHeaderSize != nbytes {
			return nil, errors.Errorf("uncompressed blosc payload truncated: %d of %d bytes", len(data)-bloscHeaderSize, nbytes)
		}
		out := make([]byte, nbytes)
		copy(out, data[bloscHeaderSize:])
		return out, nil
	}
	if nbytes == 0 {
		return nil, nil
	}
	if blocksize <= 0 || blocksize > nbytes {
		blocksize = nbytes
	}

	// c-blosc shuffles and compresses every blocksize-sized block on its own,
	// so each block must be decompressed and unshuffled independently.
	nblocks := (nbytes + blocksize - 1) / blocksize
	if len(data) < bloscHeaderSize+4*nblocks {
		return nil, errors.Errorf("blosc payload has %d of %d block offsets", (len(data)-bloscHeaderSize)/4, nblocks)
	}
	starts := make([]int, nblocks)
	for j := range starts {
		starts[j] = int(rb.Get32())
		if starts[j] < bloscHeaderSize+4*nblocks || starts[j] > len(data) {
			return nil, errors.Errorf("invalid blosc block offset %d", starts[j])
		}
	}

	compcode := flags >> 5
	out := make([]byte, 0, nbytes)
	for j, start := range starts {
		end := len(data)
		if j+1 < nblocks {
			end = starts[j+1]
		}
		if end < start {
			return nil, errors.Errorf("blosc block %d spans [%d,%d)", j, start, end)
		}
		want := blocksize
		if j == nblocks-1 {
			want = nbytes - blocksize*(nblocks-1)
		}
		block, err := bloscDecompress(compcode, data[start:end], want)
		if err != nil {
			return nil, err
		}
		if len(block) != want {
			return nil, errors.Errorf("blosc block %d decompressed to %d bytes, want %d", j, len(block), want)
		}
		if flags&bloscDoShuffle != 0 && typesize > 1 {
			if block, err = unshuffleBytes(block, typesize); err != nil {
				return nil, err
			}
		}
		out = append(out, block...)
	}
	return out, nil
}

func (b *Blosc) compress(data []byte) ([]byte, error) {
	switch b.cname {
	case "zstd":
		return zstd.CompressLevel(nil, data, b.clevel)
	case "lz4":
		dst := make([]byte, lz4.CompressBound(len(data)))
		n, err := lz4.CompressDefault(data, dst)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case "zlib":
		var buf bytes.Buffer
		w, err := zlib.NewWriterLevel(&buf, utils.Min(b.clevel, zlib.BestCompression))
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
	return nil, errors.Errorf("unsupported blosc compressor %q", b.cname)
}

func bloscDecompress(compcode uint8, data []byte, nbytes int) ([]byte, error) {
	switch compcode {
	case bloscZstd:
		return zstd.Decompress(make([]byte, 0, nbytes), data)
	case bloscLZ4, bloscLZ4 + 1: // lz4hc decompresses the same way
		dst := make([]byte, nbytes)
		n, err := lz4.DecompressSafe(data, dst)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case bloscZlib:
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}
	return nil, errors.Errorf("unsupported blosc compressor code %d", compcode)
}

func init() {
	Register("blosc", func(config map[string]interface{}) (Codec, error) {
		return NewBlosc(
			stringValue(config, "cname", "zstd"),
			intValue(config, "clevel", 5),
			boolValue(config, "shuffle", true),
			intValue(config, "blocksize", 0),
		)
	})
}
