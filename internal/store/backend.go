package store

import (
	"fmt"

	"github.com/robert-malhotra/go-h5/internal/dtype"
	"github.com/robert-malhotra/go-h5/internal/layout"
)

// Kind is the concrete kind of a node.
type Kind uint8

const (
	KindAny Kind = iota
	KindGroup
	KindDataset
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindGroup:
		return "group"
	case KindDataset:
		return "dataset"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// NodeKey identifies a node within a backend.
type NodeKey int64

// Meta is the shape, type and storage descriptor of a dataset. It is fixed
// when the dataset is created.
type Meta struct {
	Type   dtype.Type    `cbor:"1,keyasint"`
	Dims   []uint64      `cbor:"2,keyasint"`
	Layout layout.Policy `cbor:"3,keyasint"`
}

// Rank returns the number of dimensions.
func (m Meta) Rank() int {
	return len(m.Dims)
}

// Clone returns a deep copy of m.
func (m Meta) Clone() Meta {
	c := m
	c.Dims = append([]uint64(nil), m.Dims...)
	c.Layout.Chunks = append([]uint64(nil), m.Layout.Chunks...)
	c.Layout.Filters = append(c.Layout.Filters[:0:0], m.Layout.Filters...)
	return c
}

// Node is one group or dataset as reported by a backend.
type Node struct {
	Key    NodeKey
	Parent NodeKey
	Name   string
	Path   string
	Kind   Kind
	Meta   *Meta // nil for groups
}

// Chunk is one stored chunk. Mask records filters skipped when it was
// encoded.
type Chunk struct {
	Data []byte
	Mask uint32
}

// Backend persists nodes and chunks.
//
// Children of a group are listed in byte order of their names, which is
// stable across calls as long as the group is not modified.
type Backend interface {
	// Root returns the key of the root group.
	Root() NodeKey

	// Node returns the node with the given key.
	Node(key NodeKey) (Node, error)

	// Lookup finds the child of parent named name.
	Lookup(parent NodeKey, name string) (Node, bool, error)

	// List calls fn for each child of parent, starting at the child with
	// index start, until fn returns true or an error. Children are read
	// one at a time as fn consumes them. fn must not call back into the
	// backend.
	List(parent NodeKey, start uint64, fn func(Node) (stop bool, err error)) error

	// Create adds a child to parent. meta is nil for groups.
	// It fails with ErrAlreadyExists if the name is taken.
	Create(parent NodeKey, name string, kind Kind, meta *Meta) (Node, error)

	// ReadChunk returns the stored chunk idx of a dataset.
	ReadChunk(key NodeKey, idx uint64) (Chunk, bool, error)

	// WriteChunks stores chunks of a dataset atomically.
	WriteChunks(key NodeKey, chunks map[uint64]Chunk) error

	// ReadOnly reports whether the backend rejects modification.
	ReadOnly() bool

	// Close releases the backend.
	Close() error
}

// ChildPath joins a group path and a child name.
func ChildPath(parent, name string) string {
	if parent == "/" || parent == "" {
		return "/" + name
	}
	return parent + "/" + name
}
