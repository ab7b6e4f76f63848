// Package h5 is a typed, resource-safe access layer over a hierarchical
// array store: a file of nested named groups holding named N-dimensional
// datasets.
//
// # Files
//
// Stores are backed either by a single SQLite file or by memory:
//
//	f, err := h5.Create("run.h5db")     // new or existing file, read-write
//	f, err := h5.Open("run.h5db")       // existing file, read-only
//	f, err := h5.CreateMemory()         // in-process, discarded on Close
//	defer f.Close()
//
// # Handles
//
// [Group] and [Dataset] embed a [Handle], a binding to one node. Every
// successful open takes a reference on the node and exactly one Close
// releases it. Handles must not be copied; transfer ownership with
// [Handle.Move], [Handle.Swap] or [Handle.Assign]. Handles are not safe for
// concurrent use.
//
// # Datasets
//
// A dataset is created once with a fixed element type and shape, then
// opened by name any number of times:
//
//	grid, err := h5.Create[float64](run, "grid", []uint64{3, 4})
//	err = h5.Write(grid, arr)
//	back, err := h5.Read[float64](grid, 2)
//
// Writing by name never creates the dataset; [WriteNamed] and
// [WriteScalar] fail with [ErrNotFound] when it is missing. Rank and
// extent mismatches are reported as [ErrShapeMismatch]; values are never
// reshaped. Numeric element types convert into each other on transfer:
// integers saturate at the limits of the target type and floats truncate
// toward zero. [ErrTypeMismatch] is left for types with no conversion.
//
// Partial transfers address a [Window] (hyperslab) of the dataset and, for
// writes, of the source array:
//
//	w, _ := h5.ParseWindow("2:6:2,:", grid.Dims())
//	sub, err := h5.ReadSlab[float64](grid, w)
//
// # Traversal
//
// [Group.Groups] and [Group.Datasets] return containers whose iterators
// enumerate children lazily, one store query per step, in name order:
//
//	for ds, err := range run.Datasets().All() {
//	    ...
//	}
//
// # Errors
//
// Every failure is an *[Error] that matches one of the kind sentinels
// ([ErrResource], [ErrAlreadyExists], [ErrNotFound], [ErrShapeMismatch],
// [ErrTypeMismatch], [ErrInvalidState], [ErrOutOfRange],
// [ErrInvalidArgument], [ErrClosed]) under errors.Is, and names the node
// and its parent.
package h5
