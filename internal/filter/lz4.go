package filter

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4 implements block-mode LZ4 compression. The stored form is the
// uncompressed length as a little-endian uint32 followed by the block.
type LZ4 struct{}

// NewLZ4 creates a new LZ4 filter.
func NewLZ4(params []uint32) *LZ4 {
	return &LZ4{}
}

func (f *LZ4) ID() uint16 {
	return FilterLZ4
}

func (f *LZ4) Encode(input []byte) ([]byte, error) {
	destination := make([]byte, 4+lz4.CompressBlockBound(len(input)))
	written, err := lz4.CompressBlock(input, destination[4:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written+4 >= len(input) {
		return nil, ErrIncompressible
	}
	binary.LittleEndian.PutUint32(destination, uint32(len(input)))
	return destination[:4+written], nil
}

func (f *LZ4) Decode(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("lz4: input too short for length header")
	}
	size := int(binary.LittleEndian.Uint32(input))
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(input[4:], destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return destination, nil
}
