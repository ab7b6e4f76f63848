package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Numeric conversion between stored element types.
//
// Any two valid types convert into each other. Each element is loaded
// into the widest value of its class (int64, uint64 or float64) and
// stored into the destination type. Integers out of range saturate at
// the destination's limits, floats convert to integers by truncation
// toward zero, and NaN converts to zero.

// Convertible reports whether elements of type from can be converted to
// type to.
func Convertible(from, to Type) bool {
	return from.Valid() && to.Valid()
}

// value is one element widened to its class.
type value struct {
	class byte // 'i', 'u' or 'f'
	i     int64
	u     uint64
	f     float64
}

// Convert writes the elements of src, of type st, into dst as type dt.
// dst must hold exactly as many elements as src.
func Convert(dst []byte, dt Type, src []byte, st Type) error {
	if !Convertible(st, dt) {
		return fmt.Errorf("cannot convert %s to %s", st, dt)
	}
	ss, ds := st.Size(), dt.Size()
	if len(src)%ss != 0 || len(dst)/ds != len(src)/ss || len(dst)%ds != 0 {
		return fmt.Errorf("convert %s to %s: %d source bytes do not fit %d destination bytes", st, dt, len(src), len(dst))
	}
	if st == dt {
		copy(dst, src)
		return nil
	}
	n := len(src) / ss
	for k := range n {
		store(dt, dst[k*ds:], load(st, src[k*ss:]))
	}
	return nil
}

func load(t Type, b []byte) value {
	le := binary.LittleEndian
	switch t {
	case Int8:
		return value{class: 'i', i: int64(int8(b[0]))}
	case Int16:
		return value{class: 'i', i: int64(int16(le.Uint16(b)))}
	case Int32:
		return value{class: 'i', i: int64(int32(le.Uint32(b)))}
	case Int64:
		return value{class: 'i', i: int64(le.Uint64(b))}
	case Uint8:
		return value{class: 'u', u: uint64(b[0])}
	case Uint16:
		return value{class: 'u', u: uint64(le.Uint16(b))}
	case Uint32:
		return value{class: 'u', u: uint64(le.Uint32(b))}
	case Uint64:
		return value{class: 'u', u: le.Uint64(b)}
	case Float32:
		return value{class: 'f', f: float64(math.Float32frombits(le.Uint32(b)))}
	default:
		return value{class: 'f', f: math.Float64frombits(le.Uint64(b))}
	}
}

func store(t Type, b []byte, v value) {
	le := binary.LittleEndian
	switch t {
	case Int8:
		b[0] = byte(int8(v.signed(math.MinInt8, math.MaxInt8)))
	case Int16:
		le.PutUint16(b, uint16(int16(v.signed(math.MinInt16, math.MaxInt16))))
	case Int32:
		le.PutUint32(b, uint32(int32(v.signed(math.MinInt32, math.MaxInt32))))
	case Int64:
		le.PutUint64(b, uint64(v.signed(math.MinInt64, math.MaxInt64)))
	case Uint8:
		b[0] = byte(v.unsigned(math.MaxUint8))
	case Uint16:
		le.PutUint16(b, uint16(v.unsigned(math.MaxUint16)))
	case Uint32:
		le.PutUint32(b, uint32(v.unsigned(math.MaxUint32)))
	case Uint64:
		le.PutUint64(b, v.unsigned(math.MaxUint64))
	case Float32:
		le.PutUint32(b, math.Float32bits(float32(v.float())))
	case Float64:
		le.PutUint64(b, math.Float64bits(v.float()))
	}
}

// signed returns v clamped to [lo, hi].
func (v value) signed(lo, hi int64) int64 {
	switch v.class {
	case 'i':
		return min(max(v.i, lo), hi)
	case 'u':
		if v.u > uint64(hi) {
			return hi
		}
		return int64(v.u)
	}
	switch {
	case math.IsNaN(v.f):
		return 0
	case v.f <= float64(lo):
		return lo
	case v.f >= float64(hi):
		// float64(hi) rounds up for int64, so the bound itself is out of range.
		return hi
	}
	return int64(v.f)
}

// unsigned returns v clamped to [0, hi].
func (v value) unsigned(hi uint64) uint64 {
	switch v.class {
	case 'i':
		if v.i <= 0 {
			return 0
		}
		return min(uint64(v.i), hi)
	case 'u':
		return min(v.u, hi)
	}
	switch {
	case math.IsNaN(v.f), v.f <= 0:
		return 0
	case v.f >= float64(hi):
		return hi
	}
	return uint64(v.f)
}

func (v value) float() float64 {
	switch v.class {
	case 'i':
		return float64(v.i)
	case 'u':
		return float64(v.u)
	}
	return v.f
}
