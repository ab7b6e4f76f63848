package layout

// Grid maps element offsets of a chunked dataset onto its chunks.
// Chunks are numbered in row-major order of their grid coordinates.
type Grid struct {
	dims    []uint64
	chunks  []uint64
	perDim  []uint64
	strides []uint64
}

// NewGrid creates a grid for a dataset of shape dims tiled by chunks.
// A zero chunk extent is only valid along a zero dataset extent.
func NewGrid(dims, chunks []uint64) *Grid {
	g := &Grid{
		dims:    dims,
		chunks:  chunks,
		perDim:  make([]uint64, len(dims)),
		strides: make([]uint64, len(dims)),
	}
	for d := range dims {
		if chunks[d] > 0 {
			g.perDim[d] = (dims[d] + chunks[d] - 1) / chunks[d]
		}
	}
	if len(dims) > 0 {
		g.strides[len(dims)-1] = 1
		for d := len(dims) - 2; d >= 0; d-- {
			g.strides[d] = g.strides[d+1] * dims[d+1]
		}
	}
	return g
}

// NumChunks returns the number of chunks in the grid.
func (g *Grid) NumChunks() uint64 {
	return NumElements(g.perDim)
}

// ChunkElements returns the number of elements in one chunk.
func (g *Grid) ChunkElements() uint64 {
	return NumElements(g.chunks)
}

// Segment locates the element at linear offset off and returns its chunk,
// its element offset within the chunk, and how many of the following n
// elements (at most) are contiguous in both the dataset and the chunk.
func (g *Grid) Segment(off, n uint64) (chunk, within, length uint64) {
	rank := len(g.dims)
	if rank == 0 {
		return 0, 0, min(n, 1)
	}

	rem := off
	for d := 0; d < rank; d++ {
		coord := rem / g.strides[d]
		rem %= g.strides[d]

		cc := coord / g.chunks[d]
		local := coord % g.chunks[d]
		chunk = chunk*g.perDim[d] + cc
		within = within*g.chunks[d] + local

		if d == rank-1 {
			length = min(n, g.chunks[d]-local, g.dims[d]-coord)
		}
	}
	return chunk, within, length
}

// SplitIntoChunks tiles row-major data of shape dims into full-size chunk
// buffers in chunk order. Chunk regions outside the dataset are zero.
func SplitIntoChunks(data []byte, dims, chunks []uint64, elemSize int) [][]byte {
	return NewGrid(dims, chunks).Split(data, elemSize)
}

// Split tiles the row-major data of the whole grid into full-size chunk
// buffers in chunk order.
func (g *Grid) Split(data []byte, elemSize int) [][]byte {
	es := uint64(elemSize)
	chunkBytes := g.ChunkElements() * es

	out := make([][]byte, g.NumChunks())
	for i := range out {
		out[i] = make([]byte, chunkBytes)
	}

	total := NumElements(g.dims)
	for off := uint64(0); off < total; {
		chunk, within, n := g.Segment(off, total-off)
		copy(out[chunk][within*es:(within+n)*es], data[off*es:(off+n)*es])
		off += n
	}
	return out
}
