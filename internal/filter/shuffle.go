package filter

// Shuffle implements the byte shuffle filter.
// Stored form is [all byte 0s][all byte 1s]...[all byte N-1s].
type Shuffle struct {
	elemSize int
}

// NewShuffle creates a new shuffle filter.
// Params: [0] = element size in bytes
func NewShuffle(params []uint32) *Shuffle {
	elemSize := 1
	if len(params) > 0 && params[0] > 0 {
		elemSize = int(params[0])
	}
	return &Shuffle{elemSize: elemSize}
}

func (f *Shuffle) ID() uint16 {
	return FilterShuffle
}

// Encode groups byte j of every element together.
// Trailing bytes that do not form a whole element are copied unchanged.
func (f *Shuffle) Encode(input []byte) ([]byte, error) {
	numElems := f.elements(input)
	if numElems == 0 {
		return input, nil
	}

	output := make([]byte, len(input))
	for i := 0; i < numElems; i++ {
		for j := 0; j < f.elemSize; j++ {
			output[j*numElems+i] = input[i*f.elemSize+j]
		}
	}
	copy(output[numElems*f.elemSize:], input[numElems*f.elemSize:])
	return output, nil
}

// Decode reverses the shuffle transformation.
func (f *Shuffle) Decode(input []byte) ([]byte, error) {
	numElems := f.elements(input)
	if numElems == 0 {
		return input, nil
	}

	output := make([]byte, len(input))
	for i := 0; i < numElems; i++ {
		for j := 0; j < f.elemSize; j++ {
			output[i*f.elemSize+j] = input[j*numElems+i]
		}
	}
	copy(output[numElems*f.elemSize:], input[numElems*f.elemSize:])
	return output, nil
}

func (f *Shuffle) elements(input []byte) int {
	if f.elemSize <= 1 {
		return 0
	}
	return len(input) / f.elemSize
}

// SetElementSize sets the element size for the shuffle filter.
// This is used when the element size is determined after filter creation.
func (f *Shuffle) SetElementSize(size int) {
	if size > 0 {
		f.elemSize = size
	}
}
