package store

import (
	"errors"
	"strconv"
	"strings"
)

// Error kinds.
var (
	ErrResource        = errors.New("resource error")
	ErrAlreadyExists   = errors.New("already exists")
	ErrNotFound        = errors.New("not found")
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrInvalidState    = errors.New("invalid state")
	ErrOutOfRange      = errors.New("out of range")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrClosed          = errors.New("file is closed")
)

var kinds = []error{
	ErrResource,
	ErrAlreadyExists,
	ErrNotFound,
	ErrShapeMismatch,
	ErrTypeMismatch,
	ErrInvalidState,
	ErrOutOfRange,
	ErrInvalidArgument,
	ErrClosed,
}

// Error is a failed operation on a node.
// errors.Is matches both Kind and the wrapped cause.
type Error struct {
	Op     string // operation, e.g. "open", "write"
	Path   string // node path, or the name as given when it did not resolve
	Parent string // parent group path, when known
	Kind   error  // one of the error kinds of this package
	Err    error  // underlying cause, may be nil
}

// NewError returns an *Error of the given kind.
func NewError(op, path, parent string, kind, err error) *Error {
	return &Error{Op: op, Path: path, Parent: parent, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(e.Path))
	}
	if e.Parent != "" {
		b.WriteString(" in ")
		b.WriteString(strconv.Quote(e.Parent))
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the error kind carried by err, or nil.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
