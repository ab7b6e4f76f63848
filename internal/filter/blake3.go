package filter

import (
	"bytes"
	"fmt"

	"github.com/zeebo/blake3"
)

const blake3Size = 32

// Blake3 appends a BLAKE3-256 digest to each chunk and verifies it on read.
// It catches corruption that the 32-bit Fletcher checksum can miss.
type Blake3 struct{}

// NewBlake3 creates a new BLAKE3 digest filter.
func NewBlake3(params []uint32) *Blake3 {
	return &Blake3{}
}

func (f *Blake3) ID() uint16 {
	return FilterBlake3
}

func (f *Blake3) Encode(input []byte) ([]byte, error) {
	sum := blake3.Sum256(input)
	output := make([]byte, len(input)+blake3Size)
	copy(output, input)
	copy(output[len(input):], sum[:])
	return output, nil
}

func (f *Blake3) Decode(input []byte) ([]byte, error) {
	if len(input) < blake3Size {
		return nil, fmt.Errorf("blake3: input too short for digest")
	}
	data := input[:len(input)-blake3Size]
	sum := blake3.Sum256(data)
	if !bytes.Equal(sum[:], input[len(input)-blake3Size:]) {
		return nil, fmt.Errorf("blake3: digest mismatch")
	}
	return data, nil
}
