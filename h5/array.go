package h5

import (
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-h5/internal/layout"
)

// Array is a dense row-major N-dimensional array. The last dimension
// varies fastest. A rank-0 Array holds one element.
type Array[T Element] struct {
	shape []uint64
	data  []T
}

// NewArray returns a zero-filled array of the given shape.
func NewArray[T Element](shape ...uint64) *Array[T] {
	return &Array[T]{
		shape: slices.Clone(shape),
		data:  make([]T, layout.NumElements(shape)),
	}
}

// FromSlice wraps data as an array of the given shape without copying.
// len(data) must equal the product of shape.
func FromSlice[T Element](data []T, shape ...uint64) (*Array[T], error) {
	if n := layout.NumElements(shape); uint64(len(data)) != n {
		return nil, newError("array", "", "", ErrShapeMismatch,
			fmt.Errorf("%d elements do not fill shape %v (%d)", len(data), shape, n))
	}
	return &Array[T]{shape: slices.Clone(shape), data: data}, nil
}

// Scalar returns a rank-0 array holding v.
func Scalar[T Element](v T) *Array[T] {
	return &Array[T]{data: []T{v}}
}

// Shape returns the extent of each dimension.
func (a *Array[T]) Shape() []uint64 {
	return slices.Clone(a.shape)
}

// Rank returns the number of dimensions.
func (a *Array[T]) Rank() int {
	return len(a.shape)
}

// Len returns the number of elements.
func (a *Array[T]) Len() int {
	return len(a.data)
}

// Data returns the elements in row-major order. The slice aliases the
// array.
func (a *Array[T]) Data() []T {
	return a.data
}

// At returns the element at the given index.
func (a *Array[T]) At(idx ...uint64) T {
	return a.data[a.offset(idx)]
}

// Set stores v at the given index.
func (a *Array[T]) Set(v T, idx ...uint64) {
	a.data[a.offset(idx)] = v
}

func (a *Array[T]) offset(idx []uint64) uint64 {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("h5: index of rank %d into array of rank %d", len(idx), len(a.shape)))
	}
	var off uint64
	for d, i := range idx {
		if i >= a.shape[d] {
			panic(fmt.Sprintf("h5: index %v out of range for shape %v", idx, a.shape))
		}
		off = off*a.shape[d] + i
	}
	return off
}
