package h5

import "github.com/robert-malhotra/go-h5/internal/dtype"

// Type is the element type of a dataset.
type Type = dtype.Type

// Element types
const (
	Int8    = dtype.Int8
	Int16   = dtype.Int16
	Int32   = dtype.Int32
	Int64   = dtype.Int64
	Uint8   = dtype.Uint8
	Uint16  = dtype.Uint16
	Uint32  = dtype.Uint32
	Uint64  = dtype.Uint64
	Float32 = dtype.Float32
	Float64 = dtype.Float64
)

// Element is the set of Go types that can be stored in a dataset. int and
// uint are stored as 64-bit integers.
type Element = dtype.Element

// TypeOf returns the element type stored for Go type T.
func TypeOf[T Element]() Type {
	return dtype.TypeOf[T]()
}

// ParseType returns the element type named s, e.g. "float64".
func ParseType(s string) (Type, error) {
	return dtype.Parse(s)
}
