package zarr

import (
	"github.com/pkg/errors"

	"NDZarr/pkg/store"
)

// Selection picks indices per dimension: one entry per array dimension, where
// a nil entry selects the whole dimension and a non-nil entry is an explicit
// (not necessarily sorted) index list.
type Selection [][]int

// All selects every index of every dimension of a rank-n array.
func All(rank int) Selection { return make(Selection, rank) }

// resolve validates sel against the array shape and expands nil entries.
func (a *Array) resolve(sel Selection) ([][]int, error) {
	if len(sel) != len(a.meta.Shape) {
		return nil, errors.Wrapf(ErrInvalidIndexing, "%d selectors for rank %d array", len(sel), len(a.meta.Shape))
	}
	out := make([][]int, len(sel))
	for d, idxs := range sel {
		if idxs == nil {
			all := make([]int, a.meta.Shape[d])
			for i := range all {
				all[i] = i
			}
			out[d] = all
			continue
		}
		for _, idx := range idxs {
			if idx < 0 || idx >= a.meta.Shape[d] {
				return nil, errors.Wrapf(ErrIndexOutOfBounds, "index %d in dimension %d of length %d", idx, d, a.meta.Shape[d])
			}
		}
		out[d] = idxs
	}
	return out, nil
}

func selectionShape(sel [][]int) []int {
	shape := make([]int, len(sel))
	for d, idxs := range sel {
		shape[d] = len(idxs)
	}
	return shape
}

// chunkIntersection maps, for one chunk and one dimension, selection offsets
// to chunk-local indices.
type chunkIntersection struct {
	outIdx   []int // offsets into the selection's index list
	localIdx []int // corresponding chunk-local indices
}

// intersect computes the per-dimension overlap of sel with the chunk at pos.
func (a *Array) intersect(sel [][]int, pos []int) []chunkIntersection {
	start := a.grid.ChunkStart(pos)
	phys := a.grid.ChunkShapeAt(pos)
	inter := make([]chunkIntersection, len(sel))
	for d, idxs := range sel {
		for j, idx := range idxs {
			l := idx - start[d]
			if l >= 0 && l < phys[d] {
				inter[d].outIdx = append(inter[d].outIdx, j)
				inter[d].localIdx = append(inter[d].localIdx, l)
			}
		}
	}
	return inter
}

// touchedPositions deduplicates the owning grid positions of sel in
// first-seen Cartesian order.
func (a *Array) touchedPositions(sel [][]int) ([][]int, error) {
	positions, _, err := a.grid.GridPositions(sel)
	return positions, err
}

// readChunk returns the decoded chunk at pos at its full nominal shape,
// synthesizing a fill-value buffer when the chunk was never written.
func (a *Array) readChunk(pos []int) (*Buffer, error) {
	key, err := a.grid.ChunkKey(pos)
	if err != nil {
		return nil, err
	}
	data, err := a.store.Get(a.key(key))
	if errors.Is(err, store.ErrNotFound) {
		return NewBufferFill(a.meta.Dtype, a.meta.Chunks, a.meta.Order, a.meta.FillValue), nil
	}
	if err != nil {
		return nil, storeErr(err, "read chunk %q", key)
	}
	raw, err := a.pipeline.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode chunk %q", key)
	}
	return NewBufferFrom(a.meta.Dtype, a.meta.Chunks, a.meta.Order, raw)
}

func (a *Array) writeChunk(pos []int, buf *Buffer) error {
	key, err := a.grid.ChunkKey(pos)
	if err != nil {
		return err
	}
	data, err := a.pipeline.Encode(buf.Bytes())
	if err != nil {
		return errors.Wrapf(err, "encode chunk %q", key)
	}
	if err := a.store.Put(a.key(key), data); err != nil {
		return storeErr(err, "write chunk %q", key)
	}
	return nil
}

// copyElements moves the selected elements between a chunk buffer and the
// gather/scatter target, walking the per-dimension intersections with an
// odometer instead of materializing the Cartesian product.
func copyElements(chunk, target *Buffer, inter []chunkIntersection, toTarget bool) {
	for _, in := range inter {
		if len(in.outIdx) == 0 {
			return
		}
	}
	size := chunk.dtype.Size()
	local := make([]int, len(inter))
	out := make([]int, len(inter))
	var walk func(d int)
	walk = func(d int) {
		if d == len(inter) {
			co := chunk.offset(local) * size
			to := target.offset(out) * size
			if toTarget {
				copy(target.data[to:to+size], chunk.data[co:co+size])
			} else {
				copy(chunk.data[co:co+size], target.data[to:to+size])
			}
			return
		}
		for k := range inter[d].outIdx {
			out[d] = inter[d].outIdx[k]
			local[d] = inter[d].localIdx[k]
			walk(d + 1)
		}
	}
	walk(0)
}

// GetSelection reads the selected elements into a buffer shaped like the
// selection. Chunks that were never written resolve to the fill value.
func (a *Array) GetSelection(sel Selection) (*Buffer, error) {
	resolved, err := a.resolve(sel)
	if err != nil {
		return nil, err
	}
	out := NewBuffer(a.meta.Dtype, selectionShape(resolved), a.meta.Order)
	positions, err := a.touchedPositions(resolved)
	if err != nil {
		return nil, err
	}
	for _, pos := range positions {
		chunk, err := a.readChunk(pos)
		if err != nil {
			return nil, err
		}
		copyElements(chunk, out, a.intersect(resolved, pos), true)
	}
	return out, nil
}

// SetSelection writes value into the selected elements. Touched chunks are
// read (or synthesized from the fill value), modified and rewritten, so
// untouched elements of a partially written chunk survive.
func (a *Array) SetSelection(sel Selection, value *Buffer) error {
	if a.store.Info().ReadOnly {
		return errors.Wrap(store.ErrReadOnly, a.path)
	}
	resolved, err := a.resolve(sel)
	if err != nil {
		return err
	}
	if value.Dtype() != a.meta.Dtype {
		return errors.Wrapf(ErrInvalidValue, "value dtype %s, array dtype %s", value.Dtype(), a.meta.Dtype)
	}
	want := selectionShape(resolved)
	got := value.Shape()
	if len(got) != len(want) {
		return errors.Wrapf(ErrInvalidValue, "value rank %d, selection rank %d", len(got), len(want))
	}
	for d := range want {
		if got[d] != want[d] {
			return errors.Wrapf(ErrInvalidValue, "value shape %v, selection shape %v", got, want)
		}
	}
	positions, err := a.touchedPositions(resolved)
	if err != nil {
		return err
	}
	for _, pos := range positions {
		chunk, err := a.readChunk(pos)
		if err != nil {
			return err
		}
		copyElements(chunk, value, a.intersect(resolved, pos), false)
		if err := a.writeChunk(pos, chunk); err != nil {
			return err
		}
	}
	return nil
}
