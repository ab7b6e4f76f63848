package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode converts src to its little-endian stored form.
func Encode[T Element](src []T) []byte {
	size := TypeOf[T]().Size()
	data := make([]byte, len(src)*size)

	le := binary.LittleEndian
	switch s := any(src).(type) {
	case []int8:
		for i, v := range s {
			data[i] = byte(v)
		}
	case []uint8:
		copy(data, s)
	case []int16:
		for i, v := range s {
			le.PutUint16(data[i*2:], uint16(v))
		}
	case []uint16:
		for i, v := range s {
			le.PutUint16(data[i*2:], v)
		}
	case []int32:
		for i, v := range s {
			le.PutUint32(data[i*4:], uint32(v))
		}
	case []uint32:
		for i, v := range s {
			le.PutUint32(data[i*4:], v)
		}
	case []int64:
		for i, v := range s {
			le.PutUint64(data[i*8:], uint64(v))
		}
	case []int:
		for i, v := range s {
			le.PutUint64(data[i*8:], uint64(int64(v)))
		}
	case []uint64:
		for i, v := range s {
			le.PutUint64(data[i*8:], v)
		}
	case []uint:
		for i, v := range s {
			le.PutUint64(data[i*8:], uint64(v))
		}
	case []float32:
		for i, v := range s {
			le.PutUint32(data[i*4:], math.Float32bits(v))
		}
	case []float64:
		for i, v := range s {
			le.PutUint64(data[i*8:], math.Float64bits(v))
		}
	}
	return data
}

// Decode fills dst from the little-endian bytes in src.
// len(src) must be exactly len(dst) elements.
func Decode[T Element](src []byte, dst []T) error {
	size := TypeOf[T]().Size()
	if len(src) != len(dst)*size {
		return fmt.Errorf("decode %s: have %d bytes, need %d", TypeOf[T](), len(src), len(dst)*size)
	}

	le := binary.LittleEndian
	switch d := any(dst).(type) {
	case []int8:
		for i := range d {
			d[i] = int8(src[i])
		}
	case []uint8:
		copy(d, src)
	case []int16:
		for i := range d {
			d[i] = int16(le.Uint16(src[i*2:]))
		}
	case []uint16:
		for i := range d {
			d[i] = le.Uint16(src[i*2:])
		}
	case []int32:
		for i := range d {
			d[i] = int32(le.Uint32(src[i*4:]))
		}
	case []uint32:
		for i := range d {
			d[i] = le.Uint32(src[i*4:])
		}
	case []int64:
		for i := range d {
			d[i] = int64(le.Uint64(src[i*8:]))
		}
	case []int:
		for i := range d {
			d[i] = int(int64(le.Uint64(src[i*8:])))
		}
	case []uint64:
		for i := range d {
			d[i] = le.Uint64(src[i*8:])
		}
	case []uint:
		for i := range d {
			d[i] = uint(le.Uint64(src[i*8:]))
		}
	case []float32:
		for i := range d {
			d[i] = math.Float32frombits(le.Uint32(src[i*4:]))
		}
	case []float64:
		for i := range d {
			d[i] = math.Float64frombits(le.Uint64(src[i*8:]))
		}
	}
	return nil
}
