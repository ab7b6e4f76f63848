// Package memory implements an in-process store backend.
package memory

import (
	"fmt"
	"slices"
	"sync"

	"github.com/robert-malhotra/go-h5/internal/store"
)

type node struct {
	store.Node
	children []string // sorted
	byName   map[string]store.NodeKey
	chunks   map[uint64]store.Chunk
}

// Backend keeps nodes and chunks in memory. It is discarded on Close.
type Backend struct {
	mu       sync.RWMutex
	nodes    map[store.NodeKey]*node
	next     store.NodeKey
	readOnly bool
	closed   bool
}

const rootKey store.NodeKey = 1

var _ store.Backend = (*Backend)(nil)

// New returns an empty backend holding only the root group.
func New() *Backend {
	b := &Backend{
		nodes: make(map[store.NodeKey]*node),
		next:  rootKey + 1,
	}
	b.nodes[rootKey] = &node{
		Node:   store.Node{Key: rootKey, Name: "/", Path: "/", Kind: store.KindGroup},
		byName: make(map[string]store.NodeKey),
	}
	return b
}

// SetReadOnly makes the backend reject modification.
func (b *Backend) SetReadOnly(ro bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readOnly = ro
}

func (b *Backend) Root() store.NodeKey {
	return rootKey
}

func (b *Backend) get(key store.NodeKey) (*node, error) {
	if b.closed {
		return nil, fmt.Errorf("memory backend is closed")
	}
	n, ok := b.nodes[key]
	if !ok {
		return nil, fmt.Errorf("no node with key %d", key)
	}
	return n, nil
}

func snapshot(n *node) store.Node {
	out := n.Node
	if n.Meta != nil {
		m := n.Meta.Clone()
		out.Meta = &m
	}
	return out
}

func (b *Backend) Node(key store.NodeKey) (store.Node, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, err := b.get(key)
	if err != nil {
		return store.Node{}, err
	}
	return snapshot(n), nil
}

func (b *Backend) Lookup(parent store.NodeKey, name string) (store.Node, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, err := b.get(parent)
	if err != nil {
		return store.Node{}, false, err
	}
	key, ok := p.byName[name]
	if !ok {
		return store.Node{}, false, nil
	}
	return snapshot(b.nodes[key]), true, nil
}

// List walks the children of parent under the read lock, taking a
// snapshot of one child at a time. fn must not modify b.
func (b *Backend) List(parent store.NodeKey, start uint64, fn func(store.Node) (bool, error)) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, err := b.get(parent)
	if err != nil {
		return err
	}
	for i := start; i < uint64(len(p.children)); i++ {
		stop, err := fn(snapshot(b.nodes[p.byName[p.children[i]]]))
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func (b *Backend) Create(parent store.NodeKey, name string, kind store.Kind, meta *store.Meta) (store.Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readOnly {
		return store.Node{}, fmt.Errorf("memory backend is read-only")
	}
	p, err := b.get(parent)
	if err != nil {
		return store.Node{}, err
	}
	if p.Kind != store.KindGroup {
		return store.Node{}, fmt.Errorf("%s is not a group", p.Path)
	}
	if _, ok := p.byName[name]; ok {
		return store.Node{}, fmt.Errorf("%s: %w", store.ChildPath(p.Path, name), store.ErrAlreadyExists)
	}

	n := &node{
		Node: store.Node{
			Key:    b.next,
			Parent: parent,
			Name:   name,
			Path:   store.ChildPath(p.Path, name),
			Kind:   kind,
		},
	}
	b.next++
	switch kind {
	case store.KindGroup:
		n.byName = make(map[string]store.NodeKey)
	case store.KindDataset:
		if meta == nil {
			return store.Node{}, fmt.Errorf("dataset %s has no descriptor", n.Path)
		}
		m := meta.Clone()
		n.Meta = &m
		n.chunks = make(map[uint64]store.Chunk)
	}

	b.nodes[n.Key] = n
	p.byName[name] = n.Key
	i, _ := slices.BinarySearch(p.children, name)
	p.children = slices.Insert(p.children, i, name)
	return snapshot(n), nil
}

func (b *Backend) ReadChunk(key store.NodeKey, idx uint64) (store.Chunk, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, err := b.get(key)
	if err != nil {
		return store.Chunk{}, false, err
	}
	c, ok := n.chunks[idx]
	if !ok {
		return store.Chunk{}, false, nil
	}
	return store.Chunk{Data: slices.Clone(c.Data), Mask: c.Mask}, true, nil
}

func (b *Backend) WriteChunks(key store.NodeKey, chunks map[uint64]store.Chunk) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readOnly {
		return fmt.Errorf("memory backend is read-only")
	}
	n, err := b.get(key)
	if err != nil {
		return err
	}
	if n.Kind != store.KindDataset {
		return fmt.Errorf("%s is not a dataset", n.Path)
	}
	for idx, c := range chunks {
		n.chunks[idx] = store.Chunk{Data: slices.Clone(c.Data), Mask: c.Mask}
	}
	return nil
}

func (b *Backend) ReadOnly() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.readOnly
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.nodes = nil
	return nil
}
