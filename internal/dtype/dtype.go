package dtype

import (
	"fmt"
	"strings"
)

// Type identifies the element type of a dataset.
type Type uint8

const (
	Invalid Type = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

var typeNames = map[Type]string{
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

// Element is the set of Go types that can be stored in a dataset.
type Element interface {
	int8 | int16 | int32 | int64 | int |
		uint8 | uint16 | uint32 | uint64 | uint |
		float32 | float64
}

// Size returns the stored size of one element in bytes, or 0 for Invalid.
func (t Type) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// Valid reports whether t names a storable element type.
func (t Type) Valid() bool {
	return t.Size() > 0
}

// IsFloat reports whether t is a floating-point type.
func (t Type) IsFloat() bool {
	return t == Float32 || t == Float64
}

// Signed reports whether t is a signed integer type.
func (t Type) Signed() bool {
	switch t {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("dtype(%d)", uint8(t))
}

// Parse returns the Type named by s ("int32", "float64", ...).
// The aliases "int", "uint", "float" and "double" are accepted.
func Parse(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "int":
		return Int64, nil
	case "uint":
		return Uint64, nil
	case "float":
		return Float32, nil
	case "double":
		return Float64, nil
	}
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return Invalid, fmt.Errorf("unknown element type %q", s)
}

// TypeOf returns the stored Type for the Go element type T.
func TypeOf[T Element]() Type {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64, int:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64, uint:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return Invalid
}
