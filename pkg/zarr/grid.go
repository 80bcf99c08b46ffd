package zarr

import (
	"strconv"
	"strings"

	"NDZarr/pkg/utils"

	"github.com/pkg/errors"
)

// Grid maps logical indices to chunk grid positions and grid positions to
// store keys. Positions are 0-based; the first chunk of a v2 array is "0.0".
type Grid struct {
	shape     []int
	chunks    []int
	version   int
	separator string
}

func NewGrid(shape, chunks []int, version int, separator string) (*Grid, error) {
	if len(chunks) != len(shape) {
		return nil, errors.Wrapf(ErrInvalidChunks, "rank %d chunk shape for rank %d array", len(chunks), len(shape))
	}
	for d, s := range shape {
		if s <= 0 {
			return nil, errors.Wrapf(ErrInvalidShape, "dimension %d has length %d", d, s)
		}
		if chunks[d] <= 0 {
			return nil, errors.Wrapf(ErrInvalidChunks, "dimension %d has chunk length %d", d, chunks[d])
		}
	}
	if version != 2 && version != 3 {
		return nil, errors.Wrapf(ErrInvalidMetadata, "format version %d", version)
	}
	if separator == "" {
		separator = "."
	}
	if version == 2 && separator != "." && separator != "/" {
		return nil, errors.Wrapf(ErrInvalidMetadata, "dimension separator %q", separator)
	}
	return &Grid{
		shape:     append([]int(nil), shape...),
		chunks:    append([]int(nil), chunks...),
		version:   version,
		separator: separator,
	}, nil
}

func (g *Grid) Rank() int { return len(g.shape) }

// GridShape returns the number of grid positions per dimension.
func (g *Grid) GridShape() []int {
	gs := make([]int, len(g.shape))
	for d := range g.shape {
		gs[d] = (g.shape[d] + g.chunks[d] - 1) / g.chunks[d]
	}
	return gs
}

// NumChunks returns the total number of grid positions.
func (g *Grid) NumChunks() int { return numElements(g.GridShape()) }

// Positions enumerates every grid position in row-major order.
func (g *Grid) Positions() [][]int {
	gs := g.GridShape()
	out := make([][]int, 0, numElements(gs))
	pos := make([]int, len(gs))
	var walk func(d int)
	walk = func(d int) {
		if d == len(gs) {
			out = append(out, append([]int(nil), pos...))
			return
		}
		for c := 0; c < gs[d]; c++ {
			pos[d] = c
			walk(d + 1)
		}
	}
	walk(0)
	return out
}

// ChunkStart returns the first logical index covered by pos, per dimension.
func (g *Grid) ChunkStart(pos []int) []int {
	start := make([]int, len(pos))
	for d := range pos {
		start[d] = pos[d] * g.chunks[d]
	}
	return start
}

// ChunkShapeAt returns the physical shape of the chunk at pos: the nominal
// chunk shape except truncated at the array edge, never smaller than 1.
func (g *Grid) ChunkShapeAt(pos []int) []int {
	shape := make([]int, len(pos))
	for d := range pos {
		shape[d] = utils.Min(g.chunks[d], g.shape[d]-pos[d]*g.chunks[d])
	}
	return shape
}

// GridPositions computes the owning grid position of every index tuple in the
// all-dimensions Cartesian expansion of selection (outer dimension major).
// It returns the deduplicated positions in first-seen order, and for every
// expanded tuple (in expansion order) the index of its owning position.
func (g *Grid) GridPositions(selection [][]int) ([][]int, []int, error) {
	if len(selection) != len(g.shape) {
		return nil, nil, errors.Wrapf(ErrInvalidIndexing, "%d selectors for rank %d", len(selection), len(g.shape))
	}
	// first-seen chunk coordinates per dimension
	dimPos := make([][]int, len(selection))   // unique chunk coords, in order of appearance
	dimMap := make([][]int, len(selection))   // per index: offset into dimPos[d]
	for d, idxs := range selection {
		seen := make(map[int]int)
		dimMap[d] = make([]int, len(idxs))
		for j, idx := range idxs {
			if idx < 0 || idx >= g.shape[d] {
				return nil, nil, errors.Wrapf(ErrIndexOutOfBounds, "index %d in dimension %d of length %d", idx, d, g.shape[d])
			}
			c := idx / g.chunks[d]
			k, ok := seen[c]
			if !ok {
				k = len(dimPos[d])
				seen[c] = k
				dimPos[d] = append(dimPos[d], c)
			}
			dimMap[d][j] = k
		}
	}

	// The Cartesian product of per-dimension first-seen coordinates, outer to
	// inner, is exactly the first-seen order of the full expansion.
	var positions [][]int
	pos := make([]int, len(dimPos))
	var expand func(d int)
	expand = func(d int) {
		if d == len(dimPos) {
			positions = append(positions, append([]int(nil), pos...))
			return
		}
		for _, c := range dimPos[d] {
			pos[d] = c
			expand(d + 1)
		}
	}
	expand(0)

	// mixed-radix position index for every expanded tuple
	radix := make([]int, len(dimPos))
	for d := range dimPos {
		radix[d] = len(dimPos[d])
	}
	total := 1
	for _, idxs := range selection {
		total *= len(idxs)
	}
	owners := make([]int, 0, total)
	tuple := make([]int, len(selection))
	var walk func(d int)
	walk = func(d int) {
		if d == len(selection) {
			owner := 0
			for k := 0; k < len(selection); k++ {
				owner = owner*radix[k] + dimMap[k][tuple[k]]
			}
			owners = append(owners, owner)
			return
		}
		for j := range selection[d] {
			tuple[d] = j
			walk(d + 1)
		}
	}
	if total > 0 {
		walk(0)
	}
	return positions, owners, nil
}

// LocalIndices translates per-dimension global indices into chunk-local ones
// for the chunk at pos, silently dropping indices outside the chunk's span.
func (g *Grid) LocalIndices(selection [][]int, pos []int) ([][]int, error) {
	if len(pos) != len(g.shape) {
		return nil, errors.Wrapf(ErrInvalidChunkCoords, "rank %d position for rank %d grid", len(pos), len(g.shape))
	}
	phys := g.ChunkShapeAt(pos)
	start := g.ChunkStart(pos)
	local := make([][]int, len(selection))
	for d, idxs := range selection {
		for _, idx := range idxs {
			l := idx - start[d]
			if l >= 0 && l < phys[d] {
				local[d] = append(local[d], l)
			}
		}
	}
	return local, nil
}

// ChunkKey renders the store key of pos, relative to the array path.
// v2 joins the coordinates with the dimension separator; v3 nests them under
// a "c" prefix.
func (g *Grid) ChunkKey(pos []int) (string, error) {
	if len(pos) != len(g.shape) {
		return "", errors.Wrapf(ErrInvalidChunkCoords, "rank %d position for rank %d grid", len(pos), len(g.shape))
	}
	gs := g.GridShape()
	parts := make([]string, len(pos))
	for d, c := range pos {
		if c < 0 || c >= gs[d] {
			return "", errors.Wrapf(ErrInvalidChunkCoords, "position %v outside grid %v", pos, gs)
		}
		parts[d] = strconv.Itoa(c)
	}
	if g.version == 3 {
		return "c/" + strings.Join(parts, "/"), nil
	}
	if len(parts) == 0 {
		return "0", nil
	}
	return strings.Join(parts, g.separator), nil
}

// ParseChunkKey inverts ChunkKey: ParseChunkKey(ChunkKey(p)) == p for every
// valid position p.
func (g *Grid) ParseChunkKey(key string) ([]int, error) {
	raw := key
	var parts []string
	if g.version == 3 {
		if !strings.HasPrefix(key, "c/") {
			return nil, errors.Wrapf(ErrInvalidKey, "%q has no chunk prefix", raw)
		}
		parts = strings.Split(key[2:], "/")
	} else {
		parts = strings.Split(key, g.separator)
	}
	if len(parts) != len(g.shape) {
		return nil, errors.Wrapf(ErrInvalidKey, "%q has %d coordinates for rank %d", raw, len(parts), len(g.shape))
	}
	gs := g.GridShape()
	pos := make([]int, len(parts))
	for d, p := range parts {
		c, err := strconv.Atoi(p)
		if err != nil || c < 0 || c >= gs[d] {
			return nil, errors.Wrapf(ErrInvalidKey, "%q coordinate %q", raw, p)
		}
		pos[d] = c
	}
	return pos, nil
}
