package store

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-h5/internal/dtype"
	"github.com/robert-malhotra/go-h5/internal/filter"
	"github.com/robert-malhotra/go-h5/internal/layout"
)

// Selection is a dataspace of shape Dims with an optional hyperslab.
// A nil Slab selects every element.
type Selection struct {
	Dims []uint64
	Slab *layout.Hyperslab
}

func (sel Selection) hyperslab() layout.Hyperslab {
	if sel.Slab == nil {
		return layout.All(sel.Dims)
	}
	return *sel.Slab
}

// transfer is one validated read or write against a dataset.
type transfer struct {
	op       string
	h        *handle
	meta     *Meta
	memType  dtype.Type
	memSize  uint64
	elemSize uint64 // stored element size
	memRuns  []layout.Run
	fileRuns []layout.Run
	full     bool // file selection covers the whole dataset in order
}

func (s *Store) prepare(op string, id ID, t dtype.Type, buf []byte, mem Selection, file *layout.Hyperslab) (*transfer, error) {
	h, err := s.handle(op, id)
	if err != nil {
		return nil, err
	}
	if h.kind != KindDataset || h.meta == nil {
		return nil, s.fail(op, h.path, "", ErrInvalidArgument, errors.New("not a dataset"))
	}
	meta := h.meta

	if !dtype.Convertible(t, meta.Type) {
		return nil, s.fail(op, h.path, "", ErrTypeMismatch,
			fmt.Errorf("dataset holds %s, buffer holds %s", meta.Type, t))
	}
	ms := uint64(t.Size())
	if want, ok := layout.Bytes(mem.Dims, t.Size()); !ok || uint64(len(buf)) != want {
		return nil, s.fail(op, h.path, "", ErrShapeMismatch,
			fmt.Errorf("buffer has %d bytes, memory space %v of %s does not match", len(buf), mem.Dims, t))
	}

	msel := mem.hyperslab()
	if err := msel.Validate(mem.Dims); err != nil {
		return nil, s.fail(op, h.path, "", ErrOutOfRange, fmt.Errorf("memory selection: %w", err))
	}
	fsel := layout.All(meta.Dims)
	if file != nil {
		fsel = *file
	}
	if err := fsel.Validate(meta.Dims); err != nil {
		return nil, s.fail(op, h.path, "", ErrOutOfRange, fmt.Errorf("file selection: %w", err))
	}
	if m, f := msel.NumElements(), fsel.NumElements(); m != f {
		return nil, s.fail(op, h.path, "", ErrShapeMismatch,
			fmt.Errorf("memory selection has %d elements, file selection has %d", m, f))
	}

	tr := &transfer{
		op:       op,
		h:        h,
		meta:     meta,
		memType:  t,
		memSize:  ms,
		elemSize: uint64(meta.Type.Size()),
		memRuns:  msel.Runs(mem.Dims),
		fileRuns: fsel.Runs(meta.Dims),
	}
	total := layout.NumElements(meta.Dims)
	tr.full = len(tr.fileRuns) == 1 && tr.fileRuns[0] == layout.Run{Offset: 0, Length: total}
	return tr, nil
}

// toFile stores memory elements src into the stored elements dst.
func (tr *transfer) toFile(dst, src []byte) error {
	if tr.memType == tr.meta.Type {
		copy(dst, src)
		return nil
	}
	return dtype.Convert(dst, tr.meta.Type, src, tr.memType)
}

// toMem loads the stored elements src into the memory elements dst.
func (tr *transfer) toMem(dst, src []byte) error {
	if tr.memType == tr.meta.Type {
		copy(dst, src)
		return nil
	}
	return dtype.Convert(dst, tr.memType, src, tr.meta.Type)
}

// chunkCache holds decoded chunks touched by one transfer.
type chunkCache struct {
	s        *Store
	key      NodeKey
	grid     *layout.Grid
	pipeline *filter.Pipeline
	size     int
	chunks   map[uint64][]byte
	dirty    map[uint64]bool
}

func (s *Store) newChunkCache(tr *transfer) (*chunkCache, error) {
	meta := tr.meta
	p, err := filter.NewPipeline(meta.Layout.Filters, int(tr.elemSize))
	if err != nil {
		return nil, err
	}
	grid := meta.Layout.Grid(meta.Dims, int(tr.elemSize))
	return &chunkCache{
		s:        s,
		key:      tr.h.key,
		grid:     grid,
		pipeline: p,
		size:     int(grid.ChunkElements() * tr.elemSize),
		chunks:   make(map[uint64][]byte),
		dirty:    make(map[uint64]bool),
	}, nil
}

func (c *chunkCache) get(idx uint64) ([]byte, error) {
	if data, ok := c.chunks[idx]; ok {
		return data, nil
	}
	stored, ok, err := c.s.backend.ReadChunk(c.key, idx)
	if err != nil {
		return nil, fmt.Errorf("reading chunk %d: %w", idx, err)
	}
	var data []byte
	if !ok {
		data = make([]byte, c.size)
	} else {
		c.s.metrics.ChunksRead.Inc()
		data, err = c.pipeline.Decode(stored.Data, stored.Mask)
		if err != nil {
			return nil, fmt.Errorf("decoding chunk %d: %w", idx, err)
		}
		if len(data) != c.size {
			return nil, fmt.Errorf("chunk %d has %d bytes, expected %d", idx, len(data), c.size)
		}
	}
	c.chunks[idx] = data
	return data, nil
}

func (c *chunkCache) flush() error {
	if len(c.dirty) == 0 {
		return nil
	}
	out := make(map[uint64]Chunk, len(c.dirty))
	for idx := range c.dirty {
		encoded, mask, err := c.pipeline.Encode(c.chunks[idx])
		if err != nil {
			return fmt.Errorf("encoding chunk %d: %w", idx, err)
		}
		out[idx] = Chunk{Data: encoded, Mask: mask}
	}
	if err := c.s.backend.WriteChunks(c.key, out); err != nil {
		return err
	}
	c.s.metrics.ChunksWritten.Add(float64(len(out)))
	return nil
}

// Write stores the selected elements of buf, a row-major array of shape
// mem.Dims and element type t, into the file selection of the dataset
// behind id. A nil file selection addresses the whole dataset. Both
// selections must hold the same number of elements, which are paired in
// row-major order. Elements are converted to the stored type.
func (s *Store) Write(id ID, t dtype.Type, buf []byte, mem Selection, file *layout.Hyperslab) error {
	tr, err := s.prepare("write", id, t, buf, mem, file)
	if err != nil {
		return err
	}
	if s.backend.ReadOnly() {
		return s.fail("write", tr.h.path, "", ErrResource, errReadOnly)
	}
	if len(tr.fileRuns) == 0 {
		return nil
	}

	cache, err := s.newChunkCache(tr)
	if err != nil {
		return s.fail("write", tr.h.path, "", ErrResource, err)
	}
	if err := s.fill(tr, cache, buf); err != nil {
		return s.fail("write", tr.h.path, "", ErrResource, err)
	}
	if err := cache.flush(); err != nil {
		return s.fail("write", tr.h.path, "", ErrResource, err)
	}
	s.metrics.BytesWritten.Add(float64(tr.selected() * tr.memSize))
	return nil
}

func (tr *transfer) selected() uint64 {
	var n uint64
	for _, r := range tr.fileRuns {
		n += r.Length
	}
	return n
}

// fill copies the selected elements of buf into cached chunks and marks
// them dirty.
func (s *Store) fill(tr *transfer, cache *chunkCache, buf []byte) error {
	es, ms := tr.elemSize, tr.memSize

	if tr.full {
		memFull := len(tr.memRuns) == 1 && tr.memRuns[0].Offset == 0 && tr.memRuns[0].Length*ms == uint64(len(buf))
		if memFull {
			stored := buf
			if tr.memType != tr.meta.Type {
				stored = make([]byte, tr.memRuns[0].Length*es)
				if err := tr.toFile(stored, buf); err != nil {
					return err
				}
			}
			for idx, data := range cache.grid.Split(stored, int(es)) {
				cache.chunks[uint64(idx)] = data
				cache.dirty[uint64(idx)] = true
			}
			return nil
		}
		// Every chunk is overwritten, so none is loaded.
		for idx := uint64(0); idx < cache.grid.NumChunks(); idx++ {
			cache.chunks[idx] = make([]byte, cache.size)
		}
	}

	return layout.Pair(tr.memRuns, tr.fileRuns, func(moff, foff, n uint64) error {
		for n > 0 {
			chunk, within, m := cache.grid.Segment(foff, n)
			data, err := cache.get(chunk)
			if err != nil {
				return err
			}
			if err := tr.toFile(data[within*es:(within+m)*es], buf[moff*ms:(moff+m)*ms]); err != nil {
				return err
			}
			cache.dirty[chunk] = true
			moff += m
			foff += m
			n -= m
		}
		return nil
	})
}

// Read fills the selected elements of buf, a row-major array of shape
// mem.Dims and element type t, from the file selection of the dataset
// behind id. Unselected elements of buf are left untouched.
func (s *Store) Read(id ID, t dtype.Type, buf []byte, mem Selection, file *layout.Hyperslab) error {
	tr, err := s.prepare("read", id, t, buf, mem, file)
	if err != nil {
		return err
	}
	if len(tr.fileRuns) == 0 {
		return nil
	}

	cache, err := s.newChunkCache(tr)
	if err != nil {
		return s.fail("read", tr.h.path, "", ErrResource, err)
	}
	es, ms := tr.elemSize, tr.memSize

	var moved uint64
	err = layout.Pair(tr.memRuns, tr.fileRuns, func(moff, foff, n uint64) error {
		for n > 0 {
			chunk, within, m := cache.grid.Segment(foff, n)
			data, err := cache.get(chunk)
			if err != nil {
				return err
			}
			if err := tr.toMem(buf[moff*ms:(moff+m)*ms], data[within*es:(within+m)*es]); err != nil {
				return err
			}
			moved += m
			moff += m
			foff += m
			n -= m
		}
		return nil
	})
	if err != nil {
		return s.fail("read", tr.h.path, "", ErrResource, err)
	}
	s.metrics.BytesRead.Add(float64(moved * ms))
	return nil
}
