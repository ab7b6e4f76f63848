package h5

import "github.com/robert-malhotra/go-h5/internal/store"

// Handle is an owning binding to one node of an open file. A bound Handle
// holds one reference on its node and releases it on Close.
//
// Handles must not be copied by assignment. Ownership moves with Move,
// Swap and Assign, which always leave exactly one Handle bound to the
// resource.
type Handle struct {
	s        *store.Store
	id       store.ID
	path     string
	readOnly bool
}

func bind(s *store.Store, id store.ID) Handle {
	return Handle{s: s, id: id}
}

// Valid reports whether h is bound to a node.
func (h *Handle) Valid() bool {
	return h != nil && h.s != nil && h.id != store.InvalidID
}

// ID returns the resource identifier, or -1 when h is unbound.
func (h *Handle) ID() int64 {
	if !h.Valid() {
		return int64(store.InvalidID)
	}
	return int64(h.id)
}

// Path returns the absolute path of the node. It is resolved on first use
// and is empty for an unbound handle.
func (h *Handle) Path() string {
	if !h.Valid() {
		return ""
	}
	if h.path == "" {
		if p, err := h.s.Path(h.id); err == nil {
			h.path = p
		}
	}
	return h.path
}

// Name returns the last component of Path.
func (h *Handle) Name() string {
	p := h.Path()
	if p == "" {
		return ""
	}
	return Base(p)
}

// ReadOnly reports whether writes through h are refused, either because
// the file is read-only or because h came from a read-only iterator.
func (h *Handle) ReadOnly() bool {
	return h.readOnly || (h.Valid() && h.s.ReadOnly())
}

// Close releases the node. h is unbound afterwards even if the release
// fails. Closing an unbound handle is a no-op.
func (h *Handle) Close() error {
	if !h.Valid() {
		return nil
	}
	s, id := h.s, h.id
	*h = Handle{id: store.InvalidID}
	return s.Close(id)
}

// Swap exchanges the bindings of h and other.
func (h *Handle) Swap(other *Handle) {
	*h, *other = *other, *h
}

// Move transfers the binding of h to the returned Handle and leaves h
// unbound.
func (h *Handle) Move() Handle {
	out := *h
	*h = Handle{id: store.InvalidID}
	return out
}

// Assign makes h take over the binding of src and then releases the node
// h was bound to before. src is unbound afterwards.
func (h *Handle) Assign(src *Handle) error {
	if h == src {
		return nil
	}
	tmp := src.Move()
	h.Swap(&tmp)
	return tmp.Close()
}

// bound returns an InvalidState error for an unbound handle.
func (h *Handle) bound(op string) error {
	if h.Valid() {
		return nil
	}
	return newError(op, "", "", ErrInvalidState, errUnbound)
}

// writable returns an error when writes through h are refused.
func (h *Handle) writable(op string) error {
	if err := h.bound(op); err != nil {
		return err
	}
	if h.readOnly {
		return newError(op, h.Path(), "", ErrInvalidState, errReadOnlyHandle)
	}
	return nil
}
