package h5

import (
	"github.com/robert-malhotra/go-h5/internal/store"
)

// Group is a handle on a group node.
type Group struct {
	Handle
}

// OpenGroup opens the group name below parent. In a writable file the
// group and any missing intermediate groups are created. name may be a
// relative path or an absolute one starting with "/".
func OpenGroup(parent *Group, name string) (*Group, error) {
	g := &Group{}
	if err := g.Open(parent, name); err != nil {
		return nil, err
	}
	return g, nil
}

// Open binds g to the group name below parent, creating it when missing
// and parent is writable. g must be unbound.
func (g *Group) Open(parent *Group, name string) error {
	if g.Valid() {
		return newError("open", g.Path(), "", ErrResource, errAlreadyBound)
	}
	if !parent.valid() {
		return newError("open", name, "", ErrInvalidState, errParentMissing)
	}
	var (
		id  store.ID
		err error
	)
	if parent.ReadOnly() {
		id, err = parent.s.Open(parent.id, name, store.KindGroup)
	} else {
		id, err = parent.s.OpenGroup(parent.id, name)
	}
	if err != nil {
		return err
	}
	g.Handle = bind(parent.s, id)
	g.readOnly = parent.readOnly
	return nil
}

func (g *Group) valid() bool {
	return g != nil && g.Valid()
}

// Move transfers the binding of g to a new Group and leaves g unbound.
func (g *Group) Move() *Group {
	return &Group{Handle: g.Handle.Move()}
}

// OpenGroup opens the child group name, creating it in a writable file.
func (g *Group) OpenGroup(name string) (*Group, error) {
	return OpenGroup(g, name)
}

// OpenDataset opens the existing child dataset name.
func (g *Group) OpenDataset(name string) (*Dataset, error) {
	return OpenDataset(g, name)
}

// Groups returns the child groups of g.
func (g *Group) Groups() Container[*Group] {
	return Container[*Group]{parent: g}
}

// Datasets returns the child datasets of g.
func (g *Group) Datasets() Container[*Dataset] {
	return Container[*Dataset]{parent: g}
}

// Members returns the names of all children of g in name order.
func (g *Group) Members() ([]string, error) {
	children, err := g.children()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.name
	}
	return names, nil
}

type child struct {
	name string
	kind store.Kind
}

func (g *Group) children() ([]child, error) {
	if err := g.bound("members"); err != nil {
		return nil, err
	}
	var out []child
	var idx uint64
	_, err := g.s.Iterate(g.id, &idx, func(name string, kind store.Kind) (bool, error) {
		out = append(out, child{name: name, kind: kind})
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exists reports whether a node named name exists below g. Failed
// lookups are not logged.
func (g *Group) Exists(name string) bool {
	return g.lookup(name, store.KindAny)
}

// ExistsGroup reports whether name below g is a group.
func (g *Group) ExistsGroup(name string) bool {
	return g.lookup(name, store.KindGroup)
}

// ExistsDataset reports whether name below g is a dataset.
func (g *Group) ExistsDataset(name string) bool {
	return g.lookup(name, store.KindDataset)
}

func (g *Group) lookup(name string, kind store.Kind) bool {
	if !g.valid() {
		return false
	}
	return g.s.Lookup(g.id, name, kind)
}

// Exists reports whether name below parent exists as a node of type T.
func Exists[T Node](parent *Group, name string) bool {
	return parent.lookup(name, kindOf[T]())
}
