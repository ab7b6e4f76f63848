// Package store is the node store behind the public h5 package.
//
// A [Store] owns a persistence [Backend] and exposes the primitives the
// access layer is built on:
//
//   - a handle table: every successful open yields an [ID] and increments
//     the reference count of the node it binds; [Store.Close] releases it
//   - open-or-create of groups with intermediate path segments
//   - one-time dataset creation from a [Meta] descriptor
//   - a diagnostics-suppressed existence lookup ([Store.Lookup])
//   - resumable callback enumeration of a group's children
//     ([Store.Iterate])
//   - typed reads and writes through hyperslab selections
//     ([Store.Read], [Store.Write])
//
// Dataset payloads are persisted as chunks. A compact dataset is a single
// chunk holding the whole array. A contiguous dataset is flattened and
// stored in blocks of at most [layout.ContiguousBlockSize] bytes. Chunked
// datasets are tiled by a [layout.Grid] and every chunk passes through
// the dataset's filter pipeline.
//
// Failures are reported as *[Error] values whose kind is one of the
// sentinel errors of this package, and are logged at warn level unless a
// lookup is running.
//
// A Store serializes access to its handle table, but the handles it hands
// out are meant to be used from one goroutine at a time.
package store
