package h5

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/robert-malhotra/go-h5/internal/store"
)

// Node is the set of handle types a group iterator yields.
type Node interface {
	*Group | *Dataset
	Close() error
}

func kindOf[T Node]() store.Kind {
	var zero T
	if _, ok := any(zero).(*Group); ok {
		return store.KindGroup
	}
	return store.KindDataset
}

// pastEnd is the index of an exhausted iterator.
const pastEnd = math.MaxUint64

// Iterator walks the children of a group that are of type T, in name
// order. It queries the store one step at a time: a new iterator does
// nothing until it is first advanced, dereferenced or compared.
//
// The zero Iterator has no parent; advancing it fails with
// ErrInvalidState.
type Iterator[T Node] struct {
	parent   *Group
	idx      uint64 // 0 before the first step, pastEnd when exhausted
	name     string
	elem     T
	open     bool // elem is materialized for the current position
	readOnly bool
	err      error
}

func newIterator[T Node](parent *Group, readOnly bool) *Iterator[T] {
	return &Iterator[T]{parent: parent, readOnly: readOnly}
}

func (it *Iterator[T]) fresh() bool {
	return it.parent != nil && it.idx == 0
}

// step resumes enumeration after the current index and stops at the next
// child of type T.
func (it *Iterator[T]) step() error {
	it.release()
	if !it.parent.valid() {
		it.idx, it.name = pastEnd, ""
		return nil
	}
	want := kindOf[T]()
	var name string
	found, err := it.parent.s.Iterate(it.parent.id, &it.idx, func(n string, k store.Kind) (bool, error) {
		if k != want {
			return false, nil
		}
		name = n
		return true, nil
	})
	if err != nil {
		it.idx, it.name, it.err = pastEnd, "", err
		return err
	}
	if !found {
		it.idx, it.name = pastEnd, ""
		return nil
	}
	it.name = name
	return nil
}

// AdvanceIfFresh runs the first enumeration step of a new iterator so that
// it is positioned at its first child or past the end. It does nothing
// for an iterator that has already stepped.
func (it *Iterator[T]) AdvanceIfFresh() error {
	if !it.fresh() {
		return nil
	}
	return it.step()
}

// Next moves to the following child of type T. Advancing past the last
// child leaves the iterator past the end; advancing it again fails with
// ErrOutOfRange.
func (it *Iterator[T]) Next() error {
	if it.parent == nil {
		return newError("next", "", "", ErrInvalidState, errors.New("iterator has no parent group"))
	}
	if it.idx == pastEnd {
		return newError("next", "", it.parent.Path(), ErrOutOfRange, errors.New("iterator is past the end"))
	}
	if err := it.AdvanceIfFresh(); err != nil {
		return err
	}
	if it.idx == pastEnd {
		return nil
	}
	return it.step()
}

// Value returns the child at the current position, opening it on first
// use. The child stays owned by the iterator and is closed when the
// iterator moves or is closed; Move it to keep it. Dereferencing an
// iterator past the end fails with ErrOutOfRange.
func (it *Iterator[T]) Value() (T, error) {
	var zero T
	if it.parent == nil {
		return zero, newError("dereference", "", "", ErrInvalidState, errors.New("iterator has no parent group"))
	}
	if err := it.AdvanceIfFresh(); err != nil {
		return zero, err
	}
	if it.idx == pastEnd || !it.parent.valid() {
		if !it.parent.valid() {
			return zero, newError("dereference", "", "", ErrOutOfRange, errParentMissing)
		}
		return zero, newError("dereference", "", it.parent.Path(), ErrOutOfRange,
			fmt.Errorf("no %s past the end of %s", kindOf[T](), it.parent.Path()))
	}
	if !it.open {
		elem, err := openChild[T](it.parent, it.name, it.readOnly)
		if err != nil {
			return zero, err
		}
		it.elem, it.open = elem, true
	}
	return it.elem, nil
}

func openChild[T Node](parent *Group, name string, readOnly bool) (T, error) {
	var zero T
	id, err := parent.s.Open(parent.id, name, kindOf[T]())
	if err != nil {
		return zero, err
	}
	h := bind(parent.s, id)
	h.readOnly = readOnly || parent.readOnly
	switch any(zero).(type) {
	case *Group:
		return any(&Group{Handle: h}).(T), nil
	default:
		return any(&Dataset{Handle: h}).(T), nil
	}
}

// Name returns the name of the child at the current position. It is empty
// before the first step and past the end.
func (it *Iterator[T]) Name() string {
	return it.name
}

// Done reports whether the iterator is past the end, stepping a new
// iterator first. A store failure while stepping also ends the
// iteration; check Err after Done reports true.
func (it *Iterator[T]) Done() bool {
	if it.parent == nil {
		return true
	}
	it.AdvanceIfFresh()
	return it.idx == pastEnd
}

// Err returns the store failure that ended the enumeration, if any.
func (it *Iterator[T]) Err() error {
	return it.err
}

// Equal reports whether it and other are at the same position of the same
// group. A new iterator on either side is stepped first, so a new
// iterator equals one positioned at the first child and an iterator over
// an empty group equals the end.
func (it *Iterator[T]) Equal(other *Iterator[T]) bool {
	if it.parent != other.parent {
		return false
	}
	if it.parent == nil {
		return true
	}
	it.AdvanceIfFresh()
	other.AdvanceIfFresh()
	return it.idx == other.idx
}

// Clone returns an iterator at the same position that does not share the
// current child.
func (it *Iterator[T]) Clone() *Iterator[T] {
	return &Iterator[T]{parent: it.parent, idx: it.idx, name: it.name, readOnly: it.readOnly, err: it.err}
}

func (it *Iterator[T]) release() error {
	if !it.open {
		return nil
	}
	it.open = false
	err := it.elem.Close()
	var zero T
	it.elem = zero
	return err
}

// Close releases the current child. The iterator keeps its position.
func (it *Iterator[T]) Close() error {
	return it.release()
}

// Container is the set of children of type T of a group. It holds no
// copy of the children: every traversal queries the store again.
type Container[T Node] struct {
	parent *Group
}

// Begin returns an iterator at the first child.
func (c Container[T]) Begin() *Iterator[T] {
	return newIterator[T](c.parent, false)
}

// End returns the iterator past the last child.
func (c Container[T]) End() *Iterator[T] {
	it := newIterator[T](c.parent, false)
	it.idx = pastEnd
	return it
}

// CBegin is Begin for an iterator whose children refuse writes.
func (c Container[T]) CBegin() *Iterator[T] {
	return newIterator[T](c.parent, true)
}

// CEnd is End for read-only iteration.
func (c Container[T]) CEnd() *Iterator[T] {
	it := newIterator[T](c.parent, true)
	it.idx = pastEnd
	return it
}

// All yields each child with a nil error. A child is closed when the loop
// moves on; Move it to keep it. A failure is yielded once with a nil
// child and ends the sequence.
func (c Container[T]) All() iter.Seq2[T, error] {
	return c.all(false)
}

// CAll is All with read-only children.
func (c Container[T]) CAll() iter.Seq2[T, error] {
	return c.all(true)
}

func (c Container[T]) all(readOnly bool) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		it := newIterator[T](c.parent, readOnly)
		defer it.Close()
		for !it.Done() {
			v, err := it.Value()
			if !yield(v, err) || err != nil {
				return
			}
			if err := it.Next(); err != nil {
				yield(zero, err)
				return
			}
		}
		if it.err != nil {
			yield(zero, it.err)
		}
	}
}

// Names returns the names of the children in iteration order without
// opening them.
func (c Container[T]) Names() ([]string, error) {
	it := c.Begin()
	defer it.Close()
	var names []string
	for !it.Done() {
		names = append(names, it.Name())
		if err := it.Next(); err != nil {
			return names, err
		}
	}
	return names, it.Err()
}
