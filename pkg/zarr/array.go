package zarr

import (
	"encoding/json"

	"NDZarr/pkg/codecs"
	"NDZarr/pkg/store"

	"github.com/pkg/errors"
)

// maxAutoChunkBytes bounds the automatic chunk shape heuristic.
const maxAutoChunkBytes = 1 << 20

// Array is random-access handle to one chunked N-dimensional array.
type Array struct {
	store    store.Store
	path     string
	meta     *Metadata
	grid     *Grid
	pipeline *codecs.Pipeline
}

// CreateOptions configures a new array. Shape and Dtype are required; the
// rest default to the zarr-python conventions: v2 metadata,
// row-major order, "." separator, blosc(zstd, level 5, shuffle) compression
// and an automatic chunk shape capped at 1 MiB per chunk.
type CreateOptions struct {
	Shape              []int
	Chunks             []int
	Dtype              Dtype
	FillValue          float64
	Order              Order
	Version            int
	DimensionSeparator string
	Compressor         codecs.Codec
	NoCompression      bool
	Filters            []codecs.Codec
	Attributes         map[string]interface{}
	Overwrite          bool
}

// autoChunks halves the largest dimension until the chunk fits in 1 MiB.
func autoChunks(shape []int, elemSize int) []int {
	chunks := append([]int(nil), shape...)
	for numElements(chunks)*elemSize > maxAutoChunkBytes {
		largest := 0
		for d := range chunks {
			if chunks[d] > chunks[largest] {
				largest = d
			}
		}
		if chunks[largest] == 1 {
			break
		}
		chunks[largest] = (chunks[largest] + 1) / 2
	}
	return chunks
}

// validateFilters rejects filters whose element parameters disagree with the
// array's dtype: such a pipeline would encode without error and decode to
// garbage (or a byte-count mismatch) later.
func validateFilters(dt Dtype, filters []codecs.Codec) error {
	for _, f := range filters {
		switch c := f.(type) {
		case *codecs.Shuffle:
			if c.ElementSize() != dt.Size() {
				return errors.Wrapf(ErrInvalidMetadata, "shuffle element size %d for %d-byte %s elements", c.ElementSize(), dt.Size(), dt)
			}
		case *codecs.Delta:
			fdt, err := ParseDtype(c.Dtype())
			if err != nil || fdt != dt {
				return errors.Wrapf(ErrInvalidMetadata, "delta dtype %q for %s elements", c.Dtype(), dt)
			}
		}
	}
	return nil
}

// CreateArray creates the array node at path and persists its metadata.
func CreateArray(s store.Store, path string, opts *CreateOptions) (*Array, error) {
	if s.Info().ReadOnly {
		return nil, errors.Wrap(store.ErrReadOnly, path)
	}
	m := &Metadata{
		Shape:              opts.Shape,
		Chunks:             opts.Chunks,
		Dtype:              opts.Dtype,
		FillValue:          opts.FillValue,
		Order:              opts.Order,
		Version:            opts.Version,
		DimensionSeparator: opts.DimensionSeparator,
		Filters:            opts.Filters,
		Compressor:         opts.Compressor,
		Attributes:         opts.Attributes,
	}
	if m.Order == "" {
		m.Order = RowMajor
	}
	if m.Version == 0 {
		m.Version = 2
	}
	if m.DimensionSeparator == "" {
		m.DimensionSeparator = "."
	}
	if m.Chunks == nil {
		m.Chunks = autoChunks(m.Shape, m.Dtype.Size())
	}
	if m.Compressor == nil && !opts.NoCompression {
		m.Compressor = codecs.DefaultBlosc()
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	if err := validateFilters(m.Dtype, m.Filters); err != nil {
		return nil, err
	}
	if !opts.Overwrite {
		if _, err := ReadMetadata(s, path); err == nil {
			return nil, errors.Wrapf(ErrNodeExists, "array at %q", path)
		} else if !errors.Is(err, ErrPathNotFound) {
			return nil, err
		}
	}
	if err := m.Write(s, path); err != nil {
		return nil, err
	}
	return newArray(s, path, m)
}

// OpenArray reopens an existing array from its persisted metadata, detecting
// the dialect (zarr.json first, then .zarray).
func OpenArray(s store.Store, path string) (*Array, error) {
	m, err := ReadMetadata(s, path)
	if err != nil {
		return nil, err
	}
	return newArray(s, path, m)
}

func newArray(s store.Store, path string, m *Metadata) (*Array, error) {
	sep := m.DimensionSeparator
	if m.Version == 3 {
		sep = "/"
	}
	grid, err := NewGrid(m.Shape, m.Chunks, m.Version, sep)
	if err != nil {
		return nil, err
	}
	return &Array{
		store:    s,
		path:     path,
		meta:     m,
		grid:     grid,
		pipeline: codecs.NewPipeline(m.Filters, m.Compressor, m.Dtype.Size()),
	}, nil
}

// key joins the array path with a node-relative key.
func (a *Array) key(rel string) string {
	if a.path == "" {
		return rel
	}
	return a.path + "/" + rel
}

func (a *Array) Path() string       { return a.path }
func (a *Array) Meta() *Metadata    { return a.meta }
func (a *Array) Shape() []int       { return a.meta.Shape }
func (a *Array) Chunks() []int      { return a.meta.Chunks }
func (a *Array) Dtype() Dtype       { return a.meta.Dtype }
func (a *Array) Grid() *Grid        { return a.grid }
func (a *Array) FillValue() float64 { return a.meta.FillValue }

// Attrs returns the user attributes loaded with the metadata.
func (a *Array) Attrs() map[string]interface{} { return a.meta.Attributes }

// SetAttrs replaces the user attributes and persists the change immediately.
func (a *Array) SetAttrs(attrs map[string]interface{}) error {
	if a.store.Info().ReadOnly {
		return errors.Wrap(store.ErrReadOnly, a.path)
	}
	a.meta.Attributes = attrs
	if a.meta.Version == 3 {
		return a.meta.Write(a.store, a.path)
	}
	data, err := json.MarshalIndent(attrs, "", "    ")
	if err != nil {
		return err
	}
	return errors.Wrapf(a.store.Put(a.key(v2AttrsKey), data), "write attributes for %q", a.path)
}

// Read returns the whole array.
func (a *Array) Read() (*Buffer, error) {
	return a.GetSelection(All(len(a.meta.Shape)))
}

// Write overwrites the whole array.
func (a *Array) Write(value *Buffer) error {
	return a.SetSelection(All(len(a.meta.Shape)), value)
}

// ChunkExists reports whether the chunk at pos has been written.
func (a *Array) ChunkExists(pos []int) (bool, error) {
	key, err := a.grid.ChunkKey(pos)
	if err != nil {
		return false, err
	}
	return a.store.Contains(a.key(key))
}

// MaterializeChunk writes a fill-value chunk at pos unless one already
// exists. Used to pre-allocate storage for every grid position.
func (a *Array) MaterializeChunk(pos []int) error {
	if a.store.Info().ReadOnly {
		return errors.Wrap(store.ErrReadOnly, a.path)
	}
	ok, err := a.ChunkExists(pos)
	if err != nil || ok {
		return err
	}
	buf := NewBufferFill(a.meta.Dtype, a.meta.Chunks, a.meta.Order, a.meta.FillValue)
	return a.writeChunk(pos, buf)
}

// Resize changes the array shape in place and persists the metadata before
// returning. Shrinking deletes chunks that fall entirely outside the new
// bounds; chunk deletion is best effort and never fails the resize.
func (a *Array) Resize(shape []int) error {
	if a.store.Info().ReadOnly {
		return errors.Wrap(store.ErrReadOnly, a.path)
	}
	if len(shape) != len(a.meta.Shape) {
		return errors.Wrapf(ErrInvalidShape, "rank %d shape for rank %d array", len(shape), len(a.meta.Shape))
	}
	for d, s := range shape {
		if s <= 0 {
			return errors.Wrapf(ErrInvalidShape, "dimension %d has length %d", d, s)
		}
	}

	oldGrid := a.grid
	sep := a.meta.DimensionSeparator
	if a.meta.Version == 3 {
		sep = "/"
	}
	newGrid, err := NewGrid(shape, a.meta.Chunks, a.meta.Version, sep)
	if err != nil {
		return err
	}

	a.meta.Shape = append([]int(nil), shape...)
	a.grid = newGrid
	if err := a.meta.Write(a.store, a.path); err != nil {
		return err
	}

	if a.store.Info().SupportsDeletes {
		a.dropOutOfBounds(oldGrid, newGrid)
	}
	return nil
}

// dropOutOfBounds removes chunks present in old but not in the next grid.
func (a *Array) dropOutOfBounds(old, next *Grid) {
	oldShape := old.GridShape()
	newShape := next.GridShape()
	pos := make([]int, len(oldShape))
	var walk func(d int)
	walk = func(d int) {
		if d == len(oldShape) {
			for k := range pos {
				if pos[k] >= newShape[k] {
					key, err := old.ChunkKey(pos)
					if err != nil {
						return
					}
					if err := a.store.Delete(a.key(key)); err != nil {
						logger.Warnf("drop chunk %s of %s: %s", key, a.path, err)
					}
					return
				}
			}
			return
		}
		for c := 0; c < oldShape[d]; c++ {
			pos[d] = c
			walk(d + 1)
		}
	}
	walk(0)
}
