// Package dtype describes the element types a dataset can hold and converts
// between typed Go slices and their stored byte form.
//
// # Type Mapping
//
//	Type    | Go types         | Size
//	--------|------------------|-----
//	Int8    | int8             | 1
//	Int16   | int16            | 2
//	Int32   | int32            | 4
//	Int64   | int64, int       | 8
//	Uint8   | uint8            | 1
//	Uint16  | uint16           | 2
//	Uint32  | uint32           | 4
//	Uint64  | uint64, uint     | 8
//	Float32 | float32          | 4
//	Float64 | float64          | 8
//
// Values are always stored little-endian. The Go type int is stored as a
// 64-bit signed integer regardless of platform, so a dataset written from
// []int can be read back into []int64 and vice versa.
//
// # Key Functions
//
//   - [TypeOf]: the stored [Type] for a Go element type
//   - [Encode]: typed slice to little-endian bytes
//   - [Decode]: little-endian bytes into a typed slice
//   - [Convert]: stored bytes of one type into stored bytes of another,
//     saturating integers and truncating floats toward zero
package dtype
