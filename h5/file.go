package h5

import (
	"errors"

	"github.com/robert-malhotra/go-h5/internal/store"
	"github.com/robert-malhotra/go-h5/internal/store/memory"
	"github.com/robert-malhotra/go-h5/internal/store/sqlite"
)

// File is an open store.
type File struct {
	path   string
	store  *store.Store
	root   *Group
	closed bool
}

// HandleInfo describes a handle that is still open.
type HandleInfo struct {
	ID   int64
	Path string
	Kind string
}

// Create opens the store file at path for reading and writing, creating
// it if it does not exist. A file that is not a store fails with
// ErrInvalidArgument and is left untouched.
func Create(path string, opts ...FileOption) (*File, error) {
	return create(path, sqlite.Append, opts)
}

// CreateTruncate creates an empty store file at path, discarding any
// existing file.
func CreateTruncate(path string, opts ...FileOption) (*File, error) {
	return create(path, sqlite.Truncate, opts)
}

// CreateExclusive creates an empty store file at path. It fails with
// ErrAlreadyExists if the file exists.
func CreateExclusive(path string, opts ...FileOption) (*File, error) {
	return create(path, sqlite.Exclusive, opts)
}

func create(path string, mode sqlite.Mode, opts []FileOption) (*File, error) {
	b, err := sqlite.Create(path, mode)
	switch {
	case errors.Is(err, sqlite.ErrExists):
		return nil, newError("create", path, "", ErrAlreadyExists, err)
	case errors.Is(err, sqlite.ErrNotStore):
		return nil, newError("create", path, "", ErrInvalidArgument, err)
	case err != nil:
		return nil, newError("create", path, "", ErrResource, err)
	}
	return newFile(path, b, opts)
}

// Open opens an existing store file read-only.
func Open(path string, opts ...FileOption) (*File, error) {
	b, err := sqlite.Open(path, true)
	if err != nil {
		return nil, openError(path, err)
	}
	return newFile(path, b, opts)
}

// OpenReadWrite opens an existing store file for reading and writing.
func OpenReadWrite(path string, opts ...FileOption) (*File, error) {
	b, err := sqlite.Open(path, false)
	if err != nil {
		return nil, openError(path, err)
	}
	return newFile(path, b, opts)
}

// CreateMemory creates an empty in-memory store. Its contents are
// discarded on Close.
func CreateMemory(opts ...FileOption) (*File, error) {
	return newFile("", memory.New(), opts)
}

func openError(path string, err error) error {
	if errors.Is(err, sqlite.ErrNotStore) {
		return newError("open", path, "", ErrInvalidArgument, err)
	}
	return newError("open", path, "", ErrResource, err)
}

func newFile(path string, b store.Backend, opts []FileOption) (*File, error) {
	o := applyFileOptions(opts)
	s := store.New(b, o.storeOptions()...)
	id, err := s.Root()
	if err != nil {
		s.Shutdown()
		return nil, err
	}
	root := &Group{Handle: bind(s, id)}
	root.path = "/"
	return &File{path: path, store: s, root: root}, nil
}

// Path returns the file path, or "" for an in-memory store.
func (f *File) Path() string {
	return f.path
}

// ReadOnly reports whether the file refuses modifications.
func (f *File) ReadOnly() bool {
	return f.store.ReadOnly()
}

// Root returns the root group. It is owned by the File and closed with
// it.
func (f *File) Root() *Group {
	return f.root
}

// OpenGroup opens the group at path, creating it and any missing parents
// in a writable file.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.closed {
		return nil, newError("open", path, "", ErrClosed, nil)
	}
	return OpenGroup(f.root, CleanPath(path))
}

// OpenDataset opens the existing dataset at path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, newError("open", path, "", ErrClosed, nil)
	}
	return OpenDataset(f.root, CleanPath(path))
}

// OpenHandles lists the handles that are still open, including the root
// group held by the File.
func (f *File) OpenHandles() []HandleInfo {
	infos := f.store.OpenHandles()
	out := make([]HandleInfo, len(infos))
	for i, h := range infos {
		out[i] = HandleInfo{ID: int64(h.ID), Path: h.Path, Kind: h.Kind.String()}
	}
	return out
}

// Close closes the file. Handles left open are released and logged as
// leaked; using them afterwards fails with ErrClosed.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	var errs []error
	if err := f.root.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := f.store.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
