package h5

import (
	"fmt"

	"github.com/robert-malhotra/go-h5/internal/filter"
	"github.com/robert-malhotra/go-h5/internal/layout"
	"github.com/robert-malhotra/go-h5/internal/store"
)

// Dataset is a handle on a dataset node.
type Dataset struct {
	Handle
}

// Descriptor is the element type and shape of a dataset, fixed at
// creation.
type Descriptor struct {
	Type Type
	Dims []uint64
}

// Rank returns the number of dimensions. Scalars have rank 0.
func (d Descriptor) Rank() int {
	return len(d.Dims)
}

// NumElements returns the number of elements.
func (d Descriptor) NumElements() uint64 {
	return layout.NumElements(d.Dims)
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s%v", d.Type, d.Dims)
}

// CreateDataset creates the dataset name below parent with element type t
// and shape dims. Missing intermediate groups are created. It fails with
// ErrAlreadyExists when name exists, whatever its kind.
func CreateDataset(parent *Group, name string, t Type, dims []uint64, opts ...DatasetOption) (*Dataset, error) {
	if !parent.valid() {
		return nil, newError("create", name, "", ErrInvalidState, errParentMissing)
	}
	if err := parent.writable("create"); err != nil {
		return nil, err
	}
	o := applyDatasetOptions(opts)
	meta := store.Meta{
		Type:   t,
		Dims:   append([]uint64(nil), dims...),
		Layout: o.policy(len(dims)),
	}
	id, err := parent.s.CreateDataset(parent.id, name, meta)
	if err != nil {
		return nil, err
	}
	return &Dataset{Handle: bind(parent.s, id)}, nil
}

// OpenDataset opens the existing dataset name below parent. It fails with
// ErrNotFound when name is missing or is not a dataset.
func OpenDataset(parent *Group, name string) (*Dataset, error) {
	d := &Dataset{}
	if err := d.Open(parent, name); err != nil {
		return nil, err
	}
	return d, nil
}

// Open binds d to the existing dataset name below parent. d must be
// unbound.
func (d *Dataset) Open(parent *Group, name string) error {
	if d.Valid() {
		return newError("open", d.Path(), "", ErrResource, errAlreadyBound)
	}
	if !parent.valid() {
		return newError("open", name, "", ErrInvalidState, errParentMissing)
	}
	id, err := parent.s.Open(parent.id, name, store.KindDataset)
	if err != nil {
		return err
	}
	d.Handle = bind(parent.s, id)
	d.readOnly = parent.readOnly
	return nil
}

// Move transfers the binding of d to a new Dataset and leaves d unbound.
func (d *Dataset) Move() *Dataset {
	return &Dataset{Handle: d.Handle.Move()}
}

// Descriptor returns the element type and shape of d.
func (d *Dataset) Descriptor() (Descriptor, error) {
	if err := d.bound("describe"); err != nil {
		return Descriptor{}, err
	}
	meta, err := d.s.Meta(d.id)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Type: meta.Type, Dims: meta.Dims}, nil
}

// Type returns the element type, or the invalid type for an unbound
// handle.
func (d *Dataset) Type() Type {
	desc, _ := d.Descriptor()
	return desc.Type
}

// Dims returns the shape, or nil for an unbound handle.
func (d *Dataset) Dims() []uint64 {
	desc, _ := d.Descriptor()
	return desc.Dims
}

// Rank returns the number of dimensions, or -1 for an unbound handle.
func (d *Dataset) Rank() int {
	desc, err := d.Descriptor()
	if err != nil {
		return -1
	}
	return desc.Rank()
}

// Storage describes how d is stored.
type Storage struct {
	Layout  string
	Chunks  []uint64
	Filters []string
}

// Storage returns the storage layout and filters of d.
func (d *Dataset) Storage() (Storage, error) {
	if err := d.bound("describe"); err != nil {
		return Storage{}, err
	}
	meta, err := d.s.Meta(d.id)
	if err != nil {
		return Storage{}, err
	}
	st := Storage{Layout: meta.Layout.Class.String(), Chunks: meta.Layout.Chunks}
	for _, f := range meta.Layout.Filters {
		st.Filters = append(st.Filters, filter.Name(f.ID))
	}
	return st, nil
}
