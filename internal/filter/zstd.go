package filter

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstd.Encoder and zstd.Decoder are safe for concurrent use through
// EncodeAll and DecodeAll, so one of each is shared.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("filter: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("filter: zstd decoder initialization failed: " + err.Error())
	}
}

// Zstd implements Zstandard compression.
type Zstd struct{}

// NewZstd creates a new Zstandard filter.
func NewZstd(params []uint32) *Zstd {
	return &Zstd{}
}

func (f *Zstd) ID() uint16 {
	return FilterZstd
}

func (f *Zstd) Encode(input []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(input, nil)
	if len(compressed) >= len(input) {
		return nil, ErrIncompressible
	}
	return compressed, nil
}

func (f *Zstd) Decode(input []byte) ([]byte, error) {
	output, err := zstdDecoder.DecodeAll(input, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return output, nil
}
