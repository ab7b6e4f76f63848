package filter

import (
	"errors"
	"fmt"
)

// Filter identifiers.
const (
	FilterDeflate    uint16 = 1
	FilterShuffle    uint16 = 2
	FilterFletcher32 uint16 = 3
	FilterLZ4        uint16 = 32004
	FilterZstd       uint16 = 32015
	FilterBlake3     uint16 = 32800
)

// ErrIncompressible is returned by a compressing filter when encoding would
// not make the chunk smaller. The pipeline skips the filter for that chunk.
var ErrIncompressible = errors.New("data is incompressible")

// Filter is the interface implemented by all chunk filters.
type Filter interface {
	// ID returns the filter identifier.
	ID() uint16

	// Encode transforms raw data to its stored form.
	Encode(input []byte) ([]byte, error)

	// Decode transforms stored data back to raw form.
	Decode(input []byte) ([]byte, error)
}

// Spec describes one filter of a pipeline as it is persisted with a
// dataset's layout.
type Spec struct {
	ID     uint16   `cbor:"1,keyasint" yaml:"id"`
	Params []uint32 `cbor:"2,keyasint,omitempty" yaml:"params,omitempty"`
}

// Registry maps filter IDs to filter constructors.
var Registry = map[uint16]func([]uint32) Filter{
	FilterDeflate:    func(p []uint32) Filter { return NewDeflate(p) },
	FilterShuffle:    func(p []uint32) Filter { return NewShuffle(p) },
	FilterFletcher32: func(p []uint32) Filter { return NewFletcher32(p) },
	FilterLZ4:        func(p []uint32) Filter { return NewLZ4(p) },
	FilterZstd:       func(p []uint32) Filter { return NewZstd(p) },
	FilterBlake3:     func(p []uint32) Filter { return NewBlake3(p) },
}

var filterNames = map[uint16]string{
	FilterDeflate:    "deflate",
	FilterShuffle:    "shuffle",
	FilterFletcher32: "fletcher32",
	FilterLZ4:        "lz4",
	FilterZstd:       "zstd",
	FilterBlake3:     "blake3",
}

// Name returns a readable name for a filter ID.
func Name(id uint16) string {
	if name, ok := filterNames[id]; ok {
		return name
	}
	return fmt.Sprintf("filter(%d)", id)
}

// New creates a filter from its persisted description.
func New(spec Spec) (Filter, error) {
	constructor, ok := Registry[spec.ID]
	if !ok {
		return nil, fmt.Errorf("unsupported filter ID: %d", spec.ID)
	}
	return constructor(spec.Params), nil
}
