package layout

import (
	"errors"
	"fmt"
)

// ErrSelection is returned for a hyperslab that does not fit its dataspace.
var ErrSelection = errors.New("invalid selection")

// Hyperslab selects a regular pattern of blocks in an N-dimensional
// dataspace. Nil Stride or Block mean 1 in every dimension.
type Hyperslab struct {
	Start  []uint64
	Stride []uint64
	Count  []uint64
	Block  []uint64
}

// Run is a contiguous range of linear element offsets.
type Run struct {
	Offset uint64
	Length uint64
}

// All returns the hyperslab selecting every element of dims.
func All(dims []uint64) Hyperslab {
	h := Hyperslab{
		Start: make([]uint64, len(dims)),
		Count: make([]uint64, len(dims)),
	}
	copy(h.Count, dims)
	return h.normalize()
}

func (h Hyperslab) normalize() Hyperslab {
	rank := len(h.Count)
	out := Hyperslab{
		Start:  h.Start,
		Count:  h.Count,
		Stride: h.Stride,
		Block:  h.Block,
	}
	if out.Start == nil {
		out.Start = make([]uint64, rank)
	}
	if out.Stride == nil {
		out.Stride = ones(rank)
	}
	if out.Block == nil {
		out.Block = ones(rank)
	}
	return out
}

func ones(n int) []uint64 {
	s := make([]uint64, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

// Rank returns the number of dimensions the selection addresses.
func (h Hyperslab) Rank() int {
	return len(h.Count)
}

// Shape returns the selected extent per dimension (Count*Block).
func (h Hyperslab) Shape() []uint64 {
	n := h.normalize()
	shape := make([]uint64, len(n.Count))
	for d := range shape {
		shape[d] = n.Count[d] * n.Block[d]
	}
	return shape
}

// NumElements returns the number of selected elements.
func (h Hyperslab) NumElements() uint64 {
	return NumElements(h.Shape())
}

// Validate checks h against a dataspace of shape dims.
func (h Hyperslab) Validate(dims []uint64) error {
	n := h.normalize()
	rank := len(dims)
	if len(n.Count) != rank || len(n.Start) != rank || len(n.Stride) != rank || len(n.Block) != rank {
		return fmt.Errorf("%w: selection rank %d does not match dataspace rank %d", ErrSelection, len(n.Count), rank)
	}

	for d := 0; d < rank; d++ {
		if n.Block[d] == 0 {
			return fmt.Errorf("%w: dimension %d: block is zero", ErrSelection, d)
		}
		if n.Stride[d] == 0 {
			return fmt.Errorf("%w: dimension %d: stride is zero", ErrSelection, d)
		}
		if n.Count[d] > 1 && n.Stride[d] < n.Block[d] {
			return fmt.Errorf("%w: dimension %d: stride %d is smaller than block %d", ErrSelection, d, n.Stride[d], n.Block[d])
		}
		if n.Count[d] == 0 {
			continue
		}
		last := n.Start[d] + (n.Count[d]-1)*n.Stride[d] + n.Block[d]
		if last > dims[d] {
			return fmt.Errorf("%w: dimension %d: start=%d, count=%d, stride=%d, block=%d exceeds size %d",
				ErrSelection, d, n.Start[d], n.Count[d], n.Stride[d], n.Block[d], dims[d])
		}
	}
	return nil
}

// Runs returns the selected elements of a dataspace of shape dims as
// contiguous runs of linear offsets, in row-major order of the selected
// coordinates. h must have been validated against dims.
func (h Hyperslab) Runs(dims []uint64) []Run {
	rank := len(dims)
	if rank == 0 {
		return []Run{{Offset: 0, Length: 1}}
	}
	n := h.normalize()
	if NumElements(n.Shape()) == 0 {
		return nil
	}

	// Element strides of the dataspace, row-major.
	strides := make([]uint64, rank)
	strides[rank-1] = 1
	for d := rank - 2; d >= 0; d-- {
		strides[d] = strides[d+1] * dims[d+1]
	}

	var runs []Run
	appendRun := func(off, length uint64) {
		if k := len(runs) - 1; k >= 0 && runs[k].Offset+runs[k].Length == off {
			runs[k].Length += length
			return
		}
		runs = append(runs, Run{Offset: off, Length: length})
	}

	var walk func(d int, base uint64)
	walk = func(d int, base uint64) {
		if d == rank-1 {
			if n.Stride[d] == n.Block[d] {
				appendRun(base+n.Start[d], n.Count[d]*n.Block[d])
				return
			}
			for c := uint64(0); c < n.Count[d]; c++ {
				appendRun(base+n.Start[d]+c*n.Stride[d], n.Block[d])
			}
			return
		}
		for c := uint64(0); c < n.Count[d]; c++ {
			for b := uint64(0); b < n.Block[d]; b++ {
				idx := n.Start[d] + c*n.Stride[d] + b
				walk(d+1, base+idx*strides[d])
			}
		}
	}
	walk(0, 0)
	return runs
}

// Pair walks two run lists with equal total length in lockstep and calls fn
// for each maximal segment that is contiguous in both.
func Pair(a, b []Run, fn func(aOff, bOff, length uint64) error) error {
	i, j := 0, 0
	var ai, bj uint64
	for i < len(a) && j < len(b) {
		n := min(a[i].Length-ai, b[j].Length-bj)
		if err := fn(a[i].Offset+ai, b[j].Offset+bj, n); err != nil {
			return err
		}
		ai += n
		bj += n
		if ai == a[i].Length {
			i++
			ai = 0
		}
		if bj == b[j].Length {
			j++
			bj = 0
		}
	}
	return nil
}
