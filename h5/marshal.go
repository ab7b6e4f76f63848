package h5

import (
	"fmt"
	"path"
	"slices"

	"github.com/robert-malhotra/go-h5/internal/dtype"
	"github.com/robert-malhotra/go-h5/internal/layout"
	"github.com/robert-malhotra/go-h5/internal/store"
)

// Create creates the dataset name below parent holding elements of type T
// in shape dims. Rank-0 datasets are stored compact and others contiguous
// unless opts choose otherwise.
func Create[T Element](parent *Group, name string, dims []uint64, opts ...DatasetOption) (*Dataset, error) {
	return CreateDataset(parent, name, TypeOf[T](), dims, opts...)
}

// CreateFor creates the dataset name below parent with the shape of a and
// writes a into it.
func CreateFor[T Element](parent *Group, name string, a *Array[T], opts ...DatasetOption) (*Dataset, error) {
	d, err := Create[T](parent, name, a.shape, opts...)
	if err != nil {
		return nil, err
	}
	if err := Write(d, a); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// CreateScalar creates the rank-0 dataset name below parent holding v.
func CreateScalar[T Element](parent *Group, name string, v T, opts ...DatasetOption) (*Dataset, error) {
	return CreateFor(parent, name, Scalar(v), opts...)
}

// Write stores a into d. a must have the rank and extents of d; elements
// are transferred in row-major order and converted to the stored type.
func Write[T Element](d *Dataset, a *Array[T]) error {
	desc, err := d.check("write", TypeOf[T]())
	if err != nil {
		return err
	}
	if !slices.Equal(a.shape, desc.Dims) {
		return d.fail("write", ErrShapeMismatch,
			fmt.Errorf("array shape %v does not match dataset shape %v", a.shape, desc.Dims))
	}
	return d.s.Write(d.id, TypeOf[T](), dtype.Encode(a.data), store.Selection{Dims: a.shape}, nil)
}

// WriteWindow stores the region mem of a into the region file of d. Both
// windows must select the same number of elements in every dimension.
func WriteWindow[T Element](d *Dataset, a *Array[T], mem, file Window) error {
	desc, err := d.check("write", TypeOf[T]())
	if err != nil {
		return err
	}
	if err := d.matchWindows("write", a.Rank(), desc.Rank(), mem, file); err != nil {
		return err
	}
	ms, fs := mem.hyperslab(), file.hyperslab()
	return d.s.Write(d.id, TypeOf[T](), dtype.Encode(a.data), store.Selection{Dims: a.shape, Slab: &ms}, &fs)
}

// WriteSlab stores all of a into the region file of d. The region must
// hold as many elements as a; they are paired in row-major order.
func WriteSlab[T Element](d *Dataset, a *Array[T], file Window) error {
	desc, err := d.check("write", TypeOf[T]())
	if err != nil {
		return err
	}
	if file.Rank() != desc.Rank() {
		return d.fail("write", ErrShapeMismatch,
			fmt.Errorf("window rank %d does not match dataset rank %d", file.Rank(), desc.Rank()))
	}
	fs := file.hyperslab()
	return d.s.Write(d.id, TypeOf[T](), dtype.Encode(a.data), store.Selection{Dims: a.shape}, &fs)
}

// WriteSlice stores data into the rank-1 dataset d.
func WriteSlice[T Element](d *Dataset, data []T) error {
	return Write(d, &Array[T]{shape: []uint64{uint64(len(data))}, data: data})
}

// WriteNamed stores a into the existing dataset name below parent. It
// never creates the dataset: a missing name fails with ErrNotFound and
// leaves the store untouched.
func WriteNamed[T Element](parent *Group, name string, a *Array[T]) error {
	if !parent.valid() {
		return newError("write", name, "", ErrInvalidState, errParentMissing)
	}
	if !parent.ExistsDataset(name) {
		return newError("write", name, parent.Path(), ErrNotFound,
			fmt.Errorf("no dataset %q in %s", name, parent.Path()))
	}
	d, err := OpenDataset(parent, name)
	if err != nil {
		return err
	}
	defer d.Close()
	return Write(d, a)
}

// WriteScalar stores v into the existing rank-0 dataset name below
// parent.
func WriteScalar[T Element](parent *Group, name string, v T) error {
	return WriteNamed(parent, name, Scalar(v))
}

// Read returns the contents of d. rank is the rank the caller expects;
// a dataset of another rank fails with ErrShapeMismatch.
func Read[T Element](d *Dataset, rank int) (*Array[T], error) {
	desc, err := d.describe("read", TypeOf[T]())
	if err != nil {
		return nil, err
	}
	if desc.Rank() != rank {
		return nil, d.fail("read", ErrShapeMismatch,
			fmt.Errorf("dataset has rank %d, caller expects rank %d", desc.Rank(), rank))
	}
	a := NewArray[T](desc.Dims...)
	if err := readInto(d, a, nil, nil); err != nil {
		return nil, err
	}
	return a, nil
}

// ReadNamed opens the dataset name below parent and returns its contents.
func ReadNamed[T Element](parent *Group, name string, rank int) (*Array[T], error) {
	d, err := OpenDataset(parent, name)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return Read[T](d, rank)
}

// ReadScalar returns the value of the rank-0 dataset name below parent.
func ReadScalar[T Element](parent *Group, name string) (T, error) {
	var zero T
	a, err := ReadNamed[T](parent, name, 0)
	if err != nil {
		return zero, err
	}
	return a.data[0], nil
}

// ReadSlice returns the contents of the rank-1 dataset d.
func ReadSlice[T Element](d *Dataset) ([]T, error) {
	a, err := Read[T](d, 1)
	if err != nil {
		return nil, err
	}
	return a.data, nil
}

// ReadWindow reads the region file of d into a new zero-filled array of
// shape mem.Dims, at mem.Window or across the whole array. mem.Dims must
// have the rank of d.
func ReadWindow[T Element](d *Dataset, mem Space, file Window) (*Array[T], error) {
	desc, err := d.describe("read", TypeOf[T]())
	if err != nil {
		return nil, err
	}
	if len(mem.Dims) != desc.Rank() {
		return nil, d.fail("read", ErrShapeMismatch,
			fmt.Errorf("memory rank %d does not match dataset rank %d", len(mem.Dims), desc.Rank()))
	}
	if mem.Window != nil {
		if err := d.matchWindows("read", len(mem.Dims), desc.Rank(), *mem.Window, file); err != nil {
			return nil, err
		}
	} else if file.Rank() != desc.Rank() {
		return nil, d.fail("read", ErrShapeMismatch,
			fmt.Errorf("window rank %d does not match dataset rank %d", file.Rank(), desc.Rank()))
	}
	a := NewArray[T](mem.Dims...)
	if err := readInto(d, a, mem.Window, &file); err != nil {
		return nil, err
	}
	return a, nil
}

// ReadSlab reads the region file of d into a new array of the window's
// shape.
func ReadSlab[T Element](d *Dataset, file Window) (*Array[T], error) {
	return ReadWindow[T](d, Space{Dims: file.Shape()}, file)
}

// readInto fills the mem region of a, or all of it, from the file region
// of d, or all of it.
func readInto[T Element](d *Dataset, a *Array[T], mem, file *Window) error {
	t := TypeOf[T]()
	buf := make([]byte, len(a.data)*t.Size())
	sel := store.Selection{Dims: a.shape}
	if mem != nil {
		ms := mem.hyperslab()
		sel.Slab = &ms
	}
	var fs *layout.Hyperslab
	if file != nil {
		h := file.hyperslab()
		fs = &h
	}
	if err := d.s.Read(d.id, t, buf, sel, fs); err != nil {
		return err
	}
	return dtype.Decode(buf, a.data)
}

// check validates d for a write of element type t.
func (d *Dataset) check(op string, t Type) (Descriptor, error) {
	if err := d.writable(op); err != nil {
		return Descriptor{}, err
	}
	return d.describe(op, t)
}

// describe returns the descriptor of d after checking that its element
// type converts to and from t.
func (d *Dataset) describe(op string, t Type) (Descriptor, error) {
	if err := d.bound(op); err != nil {
		return Descriptor{}, err
	}
	desc, err := d.Descriptor()
	if err != nil {
		return Descriptor{}, err
	}
	if !dtype.Convertible(t, desc.Type) {
		return Descriptor{}, d.fail(op, ErrTypeMismatch,
			fmt.Errorf("dataset holds %s, caller uses %s", desc.Type, t))
	}
	return desc, nil
}

// matchWindows checks that mem addresses an array of rank memRank, file a
// dataset of rank fileRank, and that both select the same extent in every
// dimension.
func (d *Dataset) matchWindows(op string, memRank, fileRank int, mem, file Window) error {
	if mem.Rank() != memRank {
		return d.fail(op, ErrShapeMismatch,
			fmt.Errorf("memory window rank %d does not match array rank %d", mem.Rank(), memRank))
	}
	if file.Rank() != fileRank {
		return d.fail(op, ErrShapeMismatch,
			fmt.Errorf("file window rank %d does not match dataset rank %d", file.Rank(), fileRank))
	}
	if ms, fs := mem.Shape(), file.Shape(); !slices.Equal(ms, fs) {
		return d.fail(op, ErrShapeMismatch,
			fmt.Errorf("memory window selects %v, file window selects %v", ms, fs))
	}
	return nil
}

func (d *Dataset) fail(op string, kind, cause error) error {
	p := d.Path()
	return newError(op, p, path.Dir(p), kind, cause)
}
