package zarr

import (
	"strconv"
	"strings"
)

// chunkGrid is a regular partition of an array of extent shape into cells of
// extent chunk. Cells along the upper edge may extend past the array.
type chunkGrid struct {
	shape []int
	chunk []int
}

// gridShape is the number of cells along each dimension
func (g chunkGrid) gridShape() []int {
	gs := make([]int, len(g.shape))
	for d := range g.shape {
		gs[d] = (g.shape[d] + g.chunk[d] - 1) / g.chunk[d]
	}
	return gs
}

// origin is the array index of the first element of cell coords
func (g chunkGrid) origin(coords []int) []int {
	o := make([]int, len(coords))
	for d, c := range coords {
		o[d] = c * g.chunk[d]
	}
	return o
}

// A mapping of items from chunk to output array. Can be used to extract items
// from the chunk array for loading into an output array. Can also be used to
// extract items from a value array for setting/updating in a chunk array.
type chunkProjection struct {
	// Indices of chunk
	ChunkCoords []int
	// Start of the selection within the chunk
	ChunkOrigin []int
	// Start of the selection within the target (output) array
	OutOrigin []int
	// Extent of the selection
	Shape []int
}

// project lists the chunks of g overlapping the box [origin, origin+shape)
// in C order, with the portion of each chunk that falls inside the box
func (g chunkGrid) project(origin, shape []int) []chunkProjection {
	rank := len(g.shape)
	lo, hi := make([]int, rank), make([]int, rank)
	for d := 0; d < rank; d++ {
		if shape[d] == 0 {
			return nil
		}
		lo[d] = origin[d] / g.chunk[d]
		hi[d] = (origin[d] + shape[d] - 1) / g.chunk[d]
	}
	span := make([]int, rank)
	for d := range span {
		span[d] = hi[d] - lo[d] + 1
	}

	var out []chunkProjection
	forEachIndex(span, func(rel []int) bool {
		p := chunkProjection{
			ChunkCoords: make([]int, rank),
			ChunkOrigin: make([]int, rank),
			OutOrigin:   make([]int, rank),
			Shape:       make([]int, rank),
		}
		for d := 0; d < rank; d++ {
			c := lo[d] + rel[d]
			start := max(c*g.chunk[d], origin[d])
			stop := min((c+1)*g.chunk[d], origin[d]+shape[d])
			p.ChunkCoords[d] = c
			p.ChunkOrigin[d] = start - c*g.chunk[d]
			p.OutOrigin[d] = start - origin[d]
			p.Shape[d] = stop - start
		}
		out = append(out, p)
		return true
	})
	return out
}

// forEachIndex calls fn with every index of a box of the given extent in C
// order, stopping early if fn returns false. The index slice is reused
// between calls. A rank-0 box yields one empty index.
func forEachIndex(shape []int, fn func(idx []int) bool) {
	for _, n := range shape {
		if n <= 0 {
			return
		}
	}
	idx := make([]int, len(shape))
	for {
		if !fn(idx) {
			return
		}
		d := len(shape) - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return
		}
	}
}

// linearIndex is the C-order position of idx within a box of extent shape
func linearIndex(idx, shape []int) int {
	off := 0
	for d, s := range stridesOf(shape) {
		off += idx[d] * s
	}
	return off
}

// chunkKey generates the store key of a chunk under the "default" encoding
// ("c/1/4") or the "v2" encoding ("1.4").
func chunkKey(coords []int, encoding, separator string) string {
	var sb strings.Builder
	if encoding != "v2" {
		sb.WriteString("c")
		for _, c := range coords {
			sb.WriteString(separator)
			sb.WriteString(strconv.Itoa(c))
		}
		return sb.String()
	}
	if len(coords) == 0 {
		return "0"
	}
	for i, c := range coords {
		if i > 0 {
			sb.WriteString(separator)
		}
		sb.WriteString(strconv.Itoa(c))
	}
	return sb.String()
}
