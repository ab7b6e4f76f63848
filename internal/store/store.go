package store

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// ID identifies an open handle.
type ID int64

// InvalidID is the identifier of an unbound handle.
const InvalidID ID = -1

type handle struct {
	key  NodeKey
	kind Kind
	path string
	meta *Meta
}

// HandleInfo describes an open handle.
type HandleInfo struct {
	ID   ID
	Path string
	Kind Kind
}

// Store manages handles over a Backend.
type Store struct {
	backend Backend
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	handles map[ID]*handle
	refs    map[NodeKey]int
	next    ID
	quiet   int
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the collectors the store updates.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New creates a Store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.New(slog.DiscardHandler),
		handles: make(map[ID]*handle),
		refs:    make(map[NodeKey]int),
		next:    1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

// ReadOnly reports whether the store rejects modification.
func (s *Store) ReadOnly() bool {
	return s.backend.ReadOnly()
}

// fail builds an *Error, counts it and logs it unless a lookup is running.
func (s *Store) fail(op, path, parent string, kind, cause error) error {
	s.metrics.observeError(kind)
	s.mu.Lock()
	quiet := s.quiet > 0
	s.mu.Unlock()
	if !quiet {
		s.logger.Warn("store operation failed",
			"op", op,
			"path", path,
			"parent", parent,
			"error", cause,
		)
	}
	return NewError(op, path, parent, kind, cause)
}

func (s *Store) handle(op string, id ID) (*handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, NewError(op, "", "", ErrClosed, nil)
	}
	h, ok := s.handles[id]
	if !ok {
		return nil, NewError(op, "", "", ErrResource, fmt.Errorf("invalid identifier %d", id))
	}
	return h, nil
}

func (s *Store) register(n Node) ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.handles[id] = &handle{key: n.Key, kind: n.Kind, path: n.Path, meta: n.Meta}
	s.refs[n.Key]++
	s.metrics.HandlesOpened.Inc()
	s.metrics.OpenHandles.Inc()
	s.logger.Debug("handle opened", "id", id, "path", n.Path, "kind", n.Kind)
	return id
}

// splitPath splits a relative or absolute node path into segments.
func splitPath(name string) (absolute bool, segs []string, err error) {
	absolute = strings.HasPrefix(name, "/")
	for _, seg := range strings.Split(name, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return false, nil, fmt.Errorf("parent references are not supported in %q", name)
		}
		segs = append(segs, seg)
	}
	return absolute, segs, nil
}

// walk resolves segs below start. With create set, missing segments are
// created as groups.
func (s *Store) walk(start NodeKey, segs []string, create bool) (Node, error) {
	cur, err := s.backend.Node(start)
	if err != nil {
		return Node{}, err
	}
	for _, seg := range segs {
		if cur.Kind != KindGroup {
			return Node{}, fmt.Errorf("%s is a dataset, not a group", cur.Path)
		}
		next, ok, err := s.backend.Lookup(cur.Key, seg)
		if err != nil {
			return Node{}, err
		}
		if !ok {
			if !create {
				return Node{}, errMissing{path: ChildPath(cur.Path, seg)}
			}
			if s.backend.ReadOnly() {
				return Node{}, errReadOnly
			}
			next, err = s.backend.Create(cur.Key, seg, KindGroup, nil)
			if err != nil {
				return Node{}, err
			}
			s.logger.Debug("group created", "path", next.Path)
		}
		cur = next
	}
	return cur, nil
}

type errMissing struct{ path string }

func (e errMissing) Error() string { return e.path + " does not exist" }

var errReadOnly = errors.New("store is read-only")

func (s *Store) startKey(h *handle, absolute bool) NodeKey {
	if absolute {
		return s.backend.Root()
	}
	return h.key
}

// Root opens a handle on the root group.
func (s *Store) Root() (ID, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return InvalidID, NewError("open", "/", "", ErrClosed, nil)
	}
	n, err := s.backend.Node(s.backend.Root())
	if err != nil {
		return InvalidID, s.fail("open", "/", "", ErrResource, err)
	}
	return s.register(n), nil
}

// Open binds a new handle to the existing node name below parent. A kind
// other than KindAny requires the node to be of that kind.
func (s *Store) Open(parent ID, name string, kind Kind) (ID, error) {
	ph, err := s.handle("open", parent)
	if err != nil {
		return InvalidID, err
	}
	absolute, segs, err := splitPath(name)
	if err != nil {
		return InvalidID, s.fail("open", name, ph.path, ErrInvalidArgument, err)
	}
	n, err := s.walk(s.startKey(ph, absolute), segs, false)
	if err != nil {
		var missing errMissing
		if errors.As(err, &missing) {
			return InvalidID, s.fail("open", name, ph.path, ErrNotFound, err)
		}
		return InvalidID, s.fail("open", name, ph.path, ErrResource, err)
	}
	if kind != KindAny && n.Kind != kind {
		return InvalidID, s.fail("open", n.Path, ph.path, ErrNotFound,
			fmt.Errorf("%s is a %s, not a %s", n.Path, n.Kind, kind))
	}
	return s.register(n), nil
}

// OpenGroup opens the group name below parent, creating it and any missing
// intermediate groups.
func (s *Store) OpenGroup(parent ID, name string) (ID, error) {
	ph, err := s.handle("open", parent)
	if err != nil {
		return InvalidID, err
	}
	absolute, segs, err := splitPath(name)
	if err != nil {
		return InvalidID, s.fail("open", name, ph.path, ErrInvalidArgument, err)
	}
	n, err := s.walk(s.startKey(ph, absolute), segs, true)
	if err != nil {
		return InvalidID, s.fail("open", name, ph.path, ErrResource, err)
	}
	if n.Kind != KindGroup {
		return InvalidID, s.fail("open", n.Path, ph.path, ErrResource,
			fmt.Errorf("%s is a dataset, not a group", n.Path))
	}
	return s.register(n), nil
}

// CreateDataset creates the dataset name below parent, creating missing
// intermediate groups, and opens a handle on it.
func (s *Store) CreateDataset(parent ID, name string, meta Meta) (ID, error) {
	ph, err := s.handle("create", parent)
	if err != nil {
		return InvalidID, err
	}
	absolute, segs, err := splitPath(name)
	if err != nil || len(segs) == 0 {
		if err == nil {
			err = errors.New("empty dataset name")
		}
		return InvalidID, s.fail("create", name, ph.path, ErrInvalidArgument, err)
	}
	if !meta.Type.Valid() {
		return InvalidID, s.fail("create", name, ph.path, ErrInvalidArgument,
			fmt.Errorf("invalid element type %s", meta.Type))
	}
	if err := meta.Layout.Validate(meta.Dims, meta.Type.Size()); err != nil {
		return InvalidID, s.fail("create", name, ph.path, ErrInvalidArgument, err)
	}
	if s.backend.ReadOnly() {
		return InvalidID, s.fail("create", name, ph.path, ErrResource, errReadOnly)
	}

	dir, err := s.walk(s.startKey(ph, absolute), segs[:len(segs)-1], true)
	if err != nil {
		return InvalidID, s.fail("create", name, ph.path, ErrResource, err)
	}
	if dir.Kind != KindGroup {
		return InvalidID, s.fail("create", name, ph.path, ErrResource,
			fmt.Errorf("%s is a dataset, not a group", dir.Path))
	}
	leaf := segs[len(segs)-1]
	if _, ok, err := s.backend.Lookup(dir.Key, leaf); err != nil {
		return InvalidID, s.fail("create", name, ph.path, ErrResource, err)
	} else if ok {
		return InvalidID, s.fail("create", ChildPath(dir.Path, leaf), ph.path, ErrAlreadyExists, nil)
	}

	m := meta.Clone()
	n, err := s.backend.Create(dir.Key, leaf, KindDataset, &m)
	if err != nil {
		kind := ErrResource
		if errors.Is(err, ErrAlreadyExists) {
			kind = ErrAlreadyExists
		}
		return InvalidID, s.fail("create", ChildPath(dir.Path, leaf), ph.path, kind, err)
	}
	s.logger.Debug("dataset created",
		"path", n.Path,
		"type", meta.Type,
		"dims", meta.Dims,
		"layout", meta.Layout.Class,
	)
	return s.register(n), nil
}

// Close releases a handle.
func (s *Store) Close(id ID) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return NewError("close", "", "", ErrClosed, nil)
	}
	h, ok := s.handles[id]
	if ok {
		delete(s.handles, id)
		if s.refs[h.key]--; s.refs[h.key] <= 0 {
			delete(s.refs, h.key)
		}
		s.metrics.HandlesClosed.Inc()
		s.metrics.OpenHandles.Dec()
	}
	s.mu.Unlock()

	if !ok {
		return s.fail("close", "", "", ErrResource, fmt.Errorf("invalid identifier %d", id))
	}
	s.logger.Debug("handle closed", "id", id, "path", h.path)
	return nil
}

// Quietly runs fn with failure logging suppressed.
func (s *Store) Quietly(fn func()) {
	s.mu.Lock()
	s.quiet++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.quiet--
		s.mu.Unlock()
	}()
	fn()
}

// Lookup reports whether name below parent exists and, unless kind is
// KindAny, is of that kind. It opens and closes the node without logging
// failures.
func (s *Store) Lookup(parent ID, name string, kind Kind) bool {
	var found bool
	s.Quietly(func() {
		id, err := s.Open(parent, name, kind)
		if err != nil {
			return
		}
		found = s.Close(id) == nil
	})
	return found
}

// Path returns the absolute path of the node behind id.
func (s *Store) Path(id ID) (string, error) {
	h, err := s.handle("name", id)
	if err != nil {
		return "", err
	}
	return h.path, nil
}

// Kind returns the kind of the node behind id.
func (s *Store) Kind(id ID) (Kind, error) {
	h, err := s.handle("kind", id)
	if err != nil {
		return KindAny, err
	}
	return h.kind, nil
}

// Meta returns the descriptor of the dataset behind id.
func (s *Store) Meta(id ID) (Meta, error) {
	h, err := s.handle("describe", id)
	if err != nil {
		return Meta{}, err
	}
	if h.kind != KindDataset || h.meta == nil {
		return Meta{}, NewError("describe", h.path, "", ErrInvalidArgument, errors.New("not a dataset"))
	}
	return h.meta.Clone(), nil
}

// Iterate resumes enumeration of the children of parent at index *idx
// and calls fn for each child until fn accepts one. It reports whether a
// child was accepted and leaves *idx at the index after the last child
// examined. fn must not call back into the Store.
func (s *Store) Iterate(parent ID, idx *uint64, fn func(name string, kind Kind) (accept bool, err error)) (bool, error) {
	ph, err := s.handle("iterate", parent)
	if err != nil {
		return false, err
	}
	if ph.kind != KindGroup {
		return false, s.fail("iterate", ph.path, "", ErrResource, errors.New("not a group"))
	}

	pos := *idx
	found := false
	err = s.backend.List(ph.key, pos, func(n Node) (bool, error) {
		s.metrics.IterateSteps.Inc()
		pos++
		accept, err := fn(n.Name, n.Kind)
		if err != nil {
			return true, err
		}
		found = accept
		return accept, nil
	})
	*idx = pos
	if err != nil {
		return false, s.fail("iterate", ph.path, "", ErrResource, err)
	}
	return found, nil
}

// OpenHandles lists the handles that are still open, in opening order.
func (s *Store) OpenHandles() []HandleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HandleInfo, 0, len(s.handles))
	for id, h := range s.handles {
		out = append(out, HandleInfo{ID: id, Path: h.path, Kind: h.kind})
	}
	slices.SortFunc(out, func(a, b HandleInfo) int {
		return int(a.ID - b.ID)
	})
	return out
}

// Refs returns the number of open handles bound to the node at path.
func (s *Store) Refs(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.handles {
		if h.path == path {
			return s.refs[h.key]
		}
	}
	return 0
}

// Shutdown closes every open handle, logging each as leaked, and then
// closes the backend. It is safe to call more than once.
func (s *Store) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	leaked := len(s.handles)
	for id, h := range s.handles {
		s.logger.Warn("handle leaked at close", "id", id, "path", h.path)
		delete(s.handles, id)
		s.metrics.HandlesClosed.Inc()
		s.metrics.OpenHandles.Dec()
	}
	clear(s.refs)
	s.mu.Unlock()

	if err := s.backend.Close(); err != nil {
		s.logger.Error("backend close failed", "error", err)
		return NewError("close", "", "", ErrResource, err)
	}
	s.logger.Debug("store closed", "leaked_handles", leaked)
	return nil
}
