package layout

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/robert-malhotra/go-h5/internal/filter"
)

const (
	// MaxCompactSize is the largest compact dataset in bytes.
	MaxCompactSize = 65520

	// MaxChunkSize is the largest chunk in bytes before filtering.
	MaxChunkSize = math.MaxUint32

	// ContiguousBlockSize bounds the blocks a contiguous dataset is stored
	// in. The blocks are consecutive runs of the row-major element order
	// and never show in the logical layout.
	ContiguousBlockSize = 1 << 20
)

// ErrInvalidPolicy is returned for a layout policy that cannot describe the
// dataset it is applied to.
var ErrInvalidPolicy = errors.New("invalid storage layout")

// Class identifies a storage layout.
type Class uint8

const (
	Compact Class = iota
	Contiguous
	Chunked
)

func (c Class) String() string {
	switch c {
	case Compact:
		return "compact"
	case Contiguous:
		return "contiguous"
	case Chunked:
		return "chunked"
	default:
		return fmt.Sprintf("layout(%d)", uint8(c))
	}
}

// ParseClass returns the Class named by s.
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compact":
		return Compact, nil
	case "contiguous", "":
		return Contiguous, nil
	case "chunked":
		return Chunked, nil
	}
	return 0, fmt.Errorf("unknown layout %q", s)
}

// Policy is the creation-time storage choice for a dataset.
type Policy struct {
	Class   Class         `cbor:"1,keyasint"`
	Chunks  []uint64      `cbor:"2,keyasint,omitempty"`
	Filters []filter.Spec `cbor:"3,keyasint,omitempty"`
}

// Validate checks that p can store a dataset of the given shape and
// element size.
func (p Policy) Validate(dims []uint64, elemSize int) error {
	size, ok := Bytes(dims, elemSize)
	if !ok {
		return fmt.Errorf("%w: dataset of shape %v with %d-byte elements overflows", ErrInvalidPolicy, dims, elemSize)
	}
	switch p.Class {
	case Compact, Contiguous:
		if len(p.Chunks) > 0 {
			return fmt.Errorf("%w: %s layout takes no chunk dimensions", ErrInvalidPolicy, p.Class)
		}
		if len(p.Filters) > 0 {
			return fmt.Errorf("%w: filters require chunked layout", ErrInvalidPolicy)
		}
		if p.Class == Compact {
			if size > MaxCompactSize {
				return fmt.Errorf("%w: compact dataset of %d bytes exceeds %d", ErrInvalidPolicy, size, MaxCompactSize)
			}
		}
	case Chunked:
		if len(dims) == 0 {
			return fmt.Errorf("%w: scalar datasets cannot be chunked", ErrInvalidPolicy)
		}
		if len(p.Chunks) != len(dims) {
			return fmt.Errorf("%w: chunk rank %d does not match dataset rank %d", ErrInvalidPolicy, len(p.Chunks), len(dims))
		}
		for d, c := range p.Chunks {
			if c == 0 {
				return fmt.Errorf("%w: chunk dimension %d is zero", ErrInvalidPolicy, d)
			}
		}
		if cs, ok := Bytes(p.Chunks, elemSize); !ok || cs > MaxChunkSize {
			return fmt.Errorf("%w: chunk %v exceeds %d bytes", ErrInvalidPolicy, p.Chunks, uint64(MaxChunkSize))
		}
		if len(p.Filters) > filter.MaxFilters {
			return fmt.Errorf("%w: %d filters, at most %d allowed", ErrInvalidPolicy, len(p.Filters), filter.MaxFilters)
		}
		for _, spec := range p.Filters {
			if _, ok := filter.Registry[spec.ID]; !ok {
				return fmt.Errorf("%w: unsupported filter ID %d", ErrInvalidPolicy, spec.ID)
			}
		}
	default:
		return fmt.Errorf("%w: unknown class %d", ErrInvalidPolicy, p.Class)
	}
	return nil
}

// Grid returns the storage grid of a dataset of shape dims stored under
// p. Chunked datasets use their chunks and compact datasets a single
// chunk. Contiguous datasets are flattened to one dimension and cut into
// blocks of at most ContiguousBlockSize bytes, so that partial transfers
// touch only the blocks they address. p must have been validated.
func (p Policy) Grid(dims []uint64, elemSize int) *Grid {
	switch p.Class {
	case Chunked:
		return NewGrid(dims, p.Chunks)
	case Contiguous:
		total := NumElements(dims)
		block := max(1, min(total, uint64(ContiguousBlockSize/max(elemSize, 1))))
		return NewGrid([]uint64{total}, []uint64{block})
	default:
		return NewGrid(dims, dims)
	}
}

// Bytes returns the size in bytes of an array of shape dims, and false
// if it does not fit in a uint64.
func Bytes(dims []uint64, elemSize int) (uint64, bool) {
	n := uint64(elemSize)
	for _, d := range dims {
		hi, lo := bits.Mul64(n, d)
		if hi != 0 {
			return 0, false
		}
		n = lo
	}
	return n, true
}

// NumElements returns the number of elements in an array of shape dims.
// A rank-0 shape holds one element.
func NumElements(dims []uint64) uint64 {
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}
	return n
}
