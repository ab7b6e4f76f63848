// Package filter implements the chunk filter pipeline.
//
// Chunked datasets pass every chunk through an ordered list of filters on
// the way to storage and through the same list in reverse on the way back.
// Filters are identified by the numeric IDs registered for them with the
// HDF Group where one exists, so a pipeline description stays meaningful
// outside this module.
//
// # Supported Filters
//
//   - DEFLATE (ID 1): zlib compression via [Deflate].
//   - Shuffle (ID 2): byte transposition via [Shuffle]. Groups byte j of
//     every element together, which improves the ratio of a following
//     compressor on numeric data.
//   - Fletcher32 (ID 3): 32-bit Fletcher checksum appended to the chunk via
//     [Fletcher32Filter].
//   - LZ4 (ID 32004): block-mode LZ4 via [LZ4].
//   - Zstandard (ID 32015): zstd compression via [Zstd].
//   - BLAKE3 (ID 32800): 32-byte BLAKE3 digest appended to the chunk via
//     [Blake3].
//
// # Filter Mask
//
// A compressor may decline to encode a chunk that does not shrink. The
// pipeline then leaves the data untouched and sets bit i of the returned
// mask for filter i. The mask is stored with the chunk and passed back to
// [Pipeline.Decode], which skips the masked filters.
//
//	p, err := filter.NewPipeline(specs, elemSize)
//	encoded, mask, err := p.Encode(raw)
//	decoded, err := p.Decode(encoded, mask)
package filter
