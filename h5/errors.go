package h5

import (
	"errors"

	"github.com/robert-malhotra/go-h5/internal/store"
)

// Error kinds.
var (
	ErrResource        = store.ErrResource
	ErrAlreadyExists   = store.ErrAlreadyExists
	ErrNotFound        = store.ErrNotFound
	ErrShapeMismatch   = store.ErrShapeMismatch
	ErrTypeMismatch    = store.ErrTypeMismatch
	ErrInvalidState    = store.ErrInvalidState
	ErrOutOfRange      = store.ErrOutOfRange
	ErrInvalidArgument = store.ErrInvalidArgument
	ErrClosed          = store.ErrClosed
)

// Error is a failed operation on a node. It carries one of the error kinds
// above and, when available, the underlying cause.
type Error = store.Error

var (
	errParentMissing  = errors.New("parent does not exist")
	errUnbound        = errors.New("handle is not bound")
	errAlreadyBound   = errors.New("handle is already bound")
	errReadOnlyHandle = errors.New("handle is read-only")
)

func newError(op, path, parent string, kind, cause error) error {
	return store.NewError(op, path, parent, kind, cause)
}
