// Package layout describes how a dataset's elements are arranged in storage
// and how rectangular selections map onto that arrangement.
//
// # Storage Layouts
//
//   - Compact: the whole dataset is one small block kept with the node
//     metadata. Limited to [MaxCompactSize] bytes.
//   - Contiguous: the whole dataset is one block in row-major order.
//   - Chunked: the dataset is tiled by equally sized chunks, each stored
//     and filtered independently. Edge chunks are stored full-size and the
//     part outside the dataset is zero.
//
// A [Policy] captures the choice together with chunk dimensions and the
// filter pipeline. It affects only physical placement; the logical shape
// and addressing of a dataset never depend on it.
//
// # Selections
//
// A [Hyperslab] selects a regular pattern of blocks: in every dimension d
// it picks Count[d] blocks of Block[d] consecutive indices, the first block
// starting at Start[d] and successive blocks Stride[d] apart. Selected
// elements are visited in row-major order of their coordinates, which
// [Hyperslab.Runs] reports as contiguous runs of linear element offsets.
// Two selections with the same number of elements can therefore be paired
// element for element, even when their shapes differ.
//
// # Chunk Addressing
//
// [Grid] maps linear element offsets of a dataset onto (chunk, offset)
// pairs. [SplitIntoChunks] tiles a whole row-major buffer into chunk
// buffers in one pass.
package layout
