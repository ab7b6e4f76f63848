package h5

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robert-malhotra/go-h5/internal/filter"
	"github.com/robert-malhotra/go-h5/internal/layout"
	"github.com/robert-malhotra/go-h5/internal/store"
)

// FileOption configures an open file.
type FileOption func(*fileOptions)

type fileOptions struct {
	logger   *slog.Logger
	registry prometheus.Registerer
}

// WithLogger sets the logger for store failures and handle lifecycle
// events. The default discards everything.
func WithLogger(logger *slog.Logger) FileOption {
	return func(o *fileOptions) {
		o.logger = logger
	}
}

// WithMetrics registers the file's collectors with reg.
func WithMetrics(reg prometheus.Registerer) FileOption {
	return func(o *fileOptions) {
		o.registry = reg
	}
}

func (o *fileOptions) storeOptions() []store.Option {
	opts := []store.Option{store.WithLogger(o.logger)}
	if o.registry != nil {
		opts = append(opts, store.WithMetrics(store.NewMetrics(o.registry)))
	}
	return opts
}

func applyFileOptions(opts []FileOption) *fileOptions {
	o := &fileOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DatasetOption configures dataset creation.
type DatasetOption func(*datasetOptions)

type datasetOptions struct {
	class      layout.Class
	classSet   bool
	chunks     []uint64
	shuffle    bool
	deflate    int // level, -1 when off
	zstd       bool
	lz4        bool
	fletcher32 bool
	checksum   bool
}

func defaultDatasetOptions() *datasetOptions {
	return &datasetOptions{deflate: -1}
}

// WithCompact stores the dataset inline with its metadata. Compact
// datasets hold at most 65520 bytes.
func WithCompact() DatasetOption {
	return func(o *datasetOptions) {
		o.class, o.classSet, o.chunks = layout.Compact, true, nil
	}
}

// WithContiguous stores the dataset as one block.
func WithContiguous() DatasetOption {
	return func(o *datasetOptions) {
		o.class, o.classSet, o.chunks = layout.Contiguous, true, nil
	}
}

// WithChunks stores the dataset in chunks of the given dimensions.
// Filters require chunked storage.
func WithChunks(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.class, o.classSet = layout.Chunked, true
		o.chunks = append([]uint64(nil), dims...)
	}
}

// WithDeflate compresses chunks with zlib at level 0-9.
func WithDeflate(level int) DatasetOption {
	return func(o *datasetOptions) {
		if level >= 0 && level <= 9 {
			o.deflate = level
		}
	}
}

// WithCompression is WithDeflate; a level of 0 turns compression off.
func WithCompression(level int) DatasetOption {
	return func(o *datasetOptions) {
		if level <= 0 {
			o.deflate = -1
			return
		}
		WithDeflate(level)(o)
	}
}

// WithZstd compresses chunks with Zstandard.
func WithZstd() DatasetOption {
	return func(o *datasetOptions) {
		o.zstd = true
	}
}

// WithLZ4 compresses chunks with LZ4 block compression.
func WithLZ4() DatasetOption {
	return func(o *datasetOptions) {
		o.lz4 = true
	}
}

// WithShuffle reorders chunk bytes by significance before compression.
func WithShuffle() DatasetOption {
	return func(o *datasetOptions) {
		o.shuffle = true
	}
}

// WithFletcher32 appends a Fletcher-32 checksum to every chunk.
func WithFletcher32() DatasetOption {
	return func(o *datasetOptions) {
		o.fletcher32 = true
	}
}

// WithChecksum appends a BLAKE3 digest to every chunk.
func WithChecksum() DatasetOption {
	return func(o *datasetOptions) {
		o.checksum = true
	}
}

// policy returns the storage policy for a dataset of the given rank.
// Filters are applied in a fixed order: shuffle, compressors, then
// checksums.
func (o *datasetOptions) policy(rank int) layout.Policy {
	p := layout.Policy{Class: o.class, Chunks: o.chunks}
	if !o.classSet {
		p.Class = layout.Contiguous
		if rank == 0 {
			p.Class = layout.Compact
		}
	}
	if o.shuffle {
		p.Filters = append(p.Filters, filter.Spec{ID: filter.FilterShuffle})
	}
	if o.deflate >= 0 {
		p.Filters = append(p.Filters, filter.Spec{ID: filter.FilterDeflate, Params: []uint32{uint32(o.deflate)}})
	}
	if o.zstd {
		p.Filters = append(p.Filters, filter.Spec{ID: filter.FilterZstd})
	}
	if o.lz4 {
		p.Filters = append(p.Filters, filter.Spec{ID: filter.FilterLZ4})
	}
	if o.fletcher32 {
		p.Filters = append(p.Filters, filter.Spec{ID: filter.FilterFletcher32})
	}
	if o.checksum {
		p.Filters = append(p.Filters, filter.Spec{ID: filter.FilterBlake3})
	}
	return p
}

func applyDatasetOptions(opts []DatasetOption) *datasetOptions {
	o := defaultDatasetOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}
