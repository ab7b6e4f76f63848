package store_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/robert-malhotra/go-h5/internal/dtype"
	"github.com/robert-malhotra/go-h5/internal/filter"
	"github.com/robert-malhotra/go-h5/internal/layout"
	"github.com/robert-malhotra/go-h5/internal/store"
	"github.com/robert-malhotra/go-h5/internal/store/memory"
	"github.com/robert-malhotra/go-h5/internal/store/sqlite"
)

// captureHandler records log records for assertions.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}
func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) warnings() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level >= slog.LevelWarn {
			n++
		}
	}
	return n
}

type backendCase struct {
	name string
	new  func(t *testing.T) store.Backend
}

func backends() []backendCase {
	return []backendCase{
		{"memory", func(t *testing.T) store.Backend { return memory.New() }},
		{"sqlite", func(t *testing.T) store.Backend {
			b, err := sqlite.Create(filepath.Join(t.TempDir(), "test.h5db"), sqlite.Append)
			if err != nil {
				t.Fatalf("sqlite.Create failed: %v", err)
			}
			return b
		}},
	}
}

func newStore(t *testing.T, b store.Backend, opts ...store.Option) (*store.Store, store.ID) {
	t.Helper()
	s := store.New(b, opts...)
	t.Cleanup(func() { s.Shutdown() })
	root, err := s.Root()
	if err != nil {
		t.Fatalf("Root failed: %v", err)
	}
	return s, root
}

func float64Meta(dims ...uint64) store.Meta {
	return store.Meta{Type: dtype.Float64, Dims: dims, Layout: layout.Policy{Class: layout.Contiguous}}
}

func TestHandleRefCounts(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			s, root := newStore(t, bc.new(t))

			a, err := s.OpenGroup(root, "run1")
			if err != nil {
				t.Fatalf("OpenGroup failed: %v", err)
			}
			b, err := s.Open(root, "run1", store.KindGroup)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if got := s.Refs("/run1"); got != 2 {
				t.Errorf("Refs = %d, want 2", got)
			}

			if err := s.Close(a); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if got := s.Refs("/run1"); got != 1 {
				t.Errorf("Refs after close = %d, want 1", got)
			}
			if err := s.Close(a); !errors.Is(err, store.ErrResource) {
				t.Errorf("double close: expected ErrResource, got %v", err)
			}
			if err := s.Close(b); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if got := len(s.OpenHandles()); got != 1 {
				t.Errorf("expected only the root handle open, got %d", got)
			}
		})
	}
}

func TestOpenGroupCreatesIntermediates(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			s, root := newStore(t, bc.new(t))

			id, err := s.OpenGroup(root, "a/b/c")
			if err != nil {
				t.Fatalf("OpenGroup failed: %v", err)
			}
			path, err := s.Path(id)
			if err != nil || path != "/a/b/c" {
				t.Errorf("Path = %q, %v; want /a/b/c", path, err)
			}
			if !s.Lookup(root, "a/b", store.KindGroup) {
				t.Error("intermediate group a/b missing")
			}

			// Opening an existing group binds to it.
			again, err := s.OpenGroup(id, "/a/b")
			if err != nil {
				t.Fatalf("OpenGroup existing failed: %v", err)
			}
			if path, _ := s.Path(again); path != "/a/b" {
				t.Errorf("Path = %q, want /a/b", path)
			}
		})
	}
}

func TestOpenMissing(t *testing.T) {
	logs := &captureHandler{}
	s, root := newStore(t, memory.New(), store.WithLogger(slog.New(logs)))

	_, err := s.Open(root, "nope", store.KindAny)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var se *store.Error
	if !errors.As(err, &se) || se.Parent != "/" || se.Path != "nope" {
		t.Errorf("error lacks context: %#v", se)
	}
	if logs.warnings() != 1 {
		t.Errorf("expected failed open to be logged once, got %d", logs.warnings())
	}

	if s.Lookup(root, "nope", store.KindAny) {
		t.Error("Lookup reported a missing node")
	}
	if logs.warnings() != 1 {
		t.Errorf("Lookup should not log, got %d warnings", logs.warnings())
	}
}

func TestLookupKind(t *testing.T) {
	s, root := newStore(t, memory.New())
	g, _ := s.OpenGroup(root, "g")
	s.Close(g)
	d, err := s.CreateDataset(root, "d", float64Meta(2))
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	s.Close(d)

	tests := []struct {
		name string
		kind store.Kind
		want bool
	}{
		{"g", store.KindGroup, true},
		{"g", store.KindDataset, false},
		{"d", store.KindDataset, true},
		{"d", store.KindGroup, false},
		{"d", store.KindAny, true},
		{"x", store.KindAny, false},
	}
	for _, tt := range tests {
		if got := s.Lookup(root, tt.name, tt.kind); got != tt.want {
			t.Errorf("Lookup(%q, %v) = %v, want %v", tt.name, tt.kind, got, tt.want)
		}
	}
	if got := len(s.OpenHandles()); got != 1 {
		t.Errorf("Lookup leaked handles: %d open", got)
	}
}

func TestCreateDataset(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			s, root := newStore(t, bc.new(t))

			id, err := s.CreateDataset(root, "run1/grid", float64Meta(3, 4))
			if err != nil {
				t.Fatalf("CreateDataset failed: %v", err)
			}
			meta, err := s.Meta(id)
			if err != nil {
				t.Fatalf("Meta failed: %v", err)
			}
			if meta.Type != dtype.Float64 || !slices.Equal(meta.Dims, []uint64{3, 4}) {
				t.Errorf("Meta = %+v", meta)
			}

			_, err = s.CreateDataset(root, "run1/grid", float64Meta(3, 4))
			if !errors.Is(err, store.ErrAlreadyExists) {
				t.Errorf("expected ErrAlreadyExists, got %v", err)
			}
			_, err = s.CreateDataset(root, "run1", float64Meta(1))
			if !errors.Is(err, store.ErrAlreadyExists) {
				t.Errorf("dataset over group: expected ErrAlreadyExists, got %v", err)
			}
			_, err = s.OpenGroup(root, "run1/grid")
			if !errors.Is(err, store.ErrResource) {
				t.Errorf("group over dataset: expected ErrResource, got %v", err)
			}
			_, err = s.Open(root, "run1/grid", store.KindGroup)
			if !errors.Is(err, store.ErrNotFound) {
				t.Errorf("open dataset as group: expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestCreateDatasetInvalid(t *testing.T) {
	s, root := newStore(t, memory.New())

	tests := []struct {
		name string
		meta store.Meta
	}{
		{"invalid type", store.Meta{Dims: []uint64{2}}},
		{"compact too large", store.Meta{Type: dtype.Float64, Dims: []uint64{100000}, Layout: layout.Policy{Class: layout.Compact}}},
		{"chunk rank", store.Meta{Type: dtype.Int32, Dims: []uint64{4, 4}, Layout: layout.Policy{Class: layout.Chunked, Chunks: []uint64{2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateDataset(root, "x", tt.meta)
			if !errors.Is(err, store.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
	if s.Lookup(root, "x", store.KindAny) {
		t.Error("failed create left a node behind")
	}
}

func TestIterateResume(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			s, root := newStore(t, bc.new(t))
			for _, name := range []string{"c", "a", "b"} {
				id, err := s.OpenGroup(root, name)
				if err != nil {
					t.Fatalf("OpenGroup failed: %v", err)
				}
				s.Close(id)
			}
			for _, name := range []string{"d2", "d1"} {
				id, err := s.CreateDataset(root, name, float64Meta(1))
				if err != nil {
					t.Fatalf("CreateDataset failed: %v", err)
				}
				s.Close(id)
			}

			collect := func(kind store.Kind) []string {
				var names []string
				var idx uint64
				for {
					var name string
					found, err := s.Iterate(root, &idx, func(n string, k store.Kind) (bool, error) {
						if k != kind {
							return false, nil
						}
						name = n
						return true, nil
					})
					if err != nil {
						t.Fatalf("Iterate failed: %v", err)
					}
					if !found {
						return names
					}
					names = append(names, name)
				}
			}

			if got := collect(store.KindGroup); !slices.Equal(got, []string{"a", "b", "c"}) {
				t.Errorf("groups = %v", got)
			}
			if got := collect(store.KindDataset); !slices.Equal(got, []string{"d1", "d2"}) {
				t.Errorf("datasets = %v", got)
			}
		})
	}
}

func TestWriteReadLayouts(t *testing.T) {
	policies := []struct {
		name   string
		policy layout.Policy
	}{
		{"compact", layout.Policy{Class: layout.Compact}},
		{"contiguous", layout.Policy{Class: layout.Contiguous}},
		{"chunked", layout.Policy{Class: layout.Chunked, Chunks: []uint64{2, 3}}},
		{"chunked filtered", layout.Policy{Class: layout.Chunked, Chunks: []uint64{4, 4}, Filters: []filter.Spec{
			{ID: filter.FilterShuffle}, {ID: filter.FilterZstd}, {ID: filter.FilterFletcher32},
		}}},
		{"chunked lz4 blake3", layout.Policy{Class: layout.Chunked, Chunks: []uint64{5, 1}, Filters: []filter.Spec{
			{ID: filter.FilterLZ4}, {ID: filter.FilterBlake3},
		}}},
		{"chunked deflate", layout.Policy{Class: layout.Chunked, Chunks: []uint64{3, 5}, Filters: []filter.Spec{
			{ID: filter.FilterDeflate, Params: []uint32{9}},
		}}},
	}

	values := make([]int32, 5*7)
	for i := range values {
		values[i] = int32(i * 3)
	}
	buf := dtype.Encode(values)
	dims := []uint64{5, 7}

	for _, bc := range backends() {
		for _, pc := range policies {
			t.Run(bc.name+"/"+pc.name, func(t *testing.T) {
				s, root := newStore(t, bc.new(t))
				id, err := s.CreateDataset(root, "data", store.Meta{Type: dtype.Int32, Dims: dims, Layout: pc.policy})
				if err != nil {
					t.Fatalf("CreateDataset failed: %v", err)
				}
				if err := s.Write(id, dtype.Int32, buf, store.Selection{Dims: dims}, nil); err != nil {
					t.Fatalf("Write failed: %v", err)
				}

				got := make([]byte, len(buf))
				if err := s.Read(id, dtype.Int32, got, store.Selection{Dims: dims}, nil); err != nil {
					t.Fatalf("Read failed: %v", err)
				}
				if string(got) != string(buf) {
					t.Error("full read mismatch")
				}

				// Overwrite a 2x3 window at (2,3) and read it back.
				win := &layout.Hyperslab{Start: []uint64{2, 3}, Count: []uint64{2, 3}}
				patch := dtype.Encode([]int32{-1, -2, -3, -4, -5, -6})
				if err := s.Write(id, dtype.Int32, patch, store.Selection{Dims: []uint64{2, 3}}, win); err != nil {
					t.Fatalf("window Write failed: %v", err)
				}
				back := make([]byte, len(patch))
				if err := s.Read(id, dtype.Int32, back, store.Selection{Dims: []uint64{2, 3}}, win); err != nil {
					t.Fatalf("window Read failed: %v", err)
				}
				if string(back) != string(patch) {
					t.Error("window read mismatch")
				}

				// Elements outside the window are untouched.
				all := make([]int32, len(values))
				raw := make([]byte, len(buf))
				if err := s.Read(id, dtype.Int32, raw, store.Selection{Dims: dims}, nil); err != nil {
					t.Fatalf("Read failed: %v", err)
				}
				dtype.Decode(raw, all)
				if all[0] != 0 || all[2*7+2] != values[2*7+2] || all[2*7+3] != -1 || all[3*7+5] != -6 {
					t.Errorf("unexpected contents after window write: %v", all)
				}
			})
		}
	}
}

func TestReadUnwrittenChunksAreZero(t *testing.T) {
	s, root := newStore(t, memory.New())
	dims := []uint64{4, 4}
	id, err := s.CreateDataset(root, "sparse", store.Meta{
		Type: dtype.Float64, Dims: dims,
		Layout: layout.Policy{Class: layout.Chunked, Chunks: []uint64{2, 2}},
	})
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	win := &layout.Hyperslab{Start: []uint64{3, 3}, Count: []uint64{1, 1}}
	if err := s.Write(id, dtype.Float64, dtype.Encode([]float64{7.5}), store.Selection{Dims: []uint64{1}}, win); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	raw := make([]byte, 16*8)
	if err := s.Read(id, dtype.Float64, raw, store.Selection{Dims: dims}, nil); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	got := make([]float64, 16)
	dtype.Decode(raw, got)
	for i, v := range got {
		want := 0.0
		if i == 15 {
			want = 7.5
		}
		if v != want {
			t.Errorf("[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestTransferErrors(t *testing.T) {
	s, root := newStore(t, memory.New())
	id, err := s.CreateDataset(root, "d", float64Meta(3, 4))
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	full := make([]byte, 12*8)

	tests := []struct {
		name string
		err  error
		run  func() error
	}{
		{"type", store.ErrTypeMismatch, func() error {
			return s.Write(id, dtype.Invalid, make([]byte, 12*4), store.Selection{Dims: []uint64{3, 4}}, nil)
		}},
		{"converted buffer size", store.ErrShapeMismatch, func() error {
			return s.Write(id, dtype.Float32, full[:12*4+1], store.Selection{Dims: []uint64{3, 4}}, nil)
		}},
		{"buffer size", store.ErrShapeMismatch, func() error {
			return s.Write(id, dtype.Float64, full[:8], store.Selection{Dims: []uint64{3, 4}}, nil)
		}},
		{"count", store.ErrShapeMismatch, func() error {
			return s.Read(id, dtype.Float64, full, store.Selection{Dims: []uint64{12}},
				&layout.Hyperslab{Start: []uint64{0, 0}, Count: []uint64{2, 2}})
		}},
		{"file window", store.ErrOutOfRange, func() error {
			return s.Read(id, dtype.Float64, full[:8*4], store.Selection{Dims: []uint64{4}},
				&layout.Hyperslab{Start: []uint64{2, 2}, Count: []uint64{2, 2}})
		}},
		{"memory window", store.ErrOutOfRange, func() error {
			slab := layout.Hyperslab{Start: []uint64{10}, Count: []uint64{12}}
			return s.Read(id, dtype.Float64, full, store.Selection{Dims: []uint64{12}, Slab: &slab}, nil)
		}},
		{"group handle", store.ErrInvalidArgument, func() error {
			return s.Read(root, dtype.Float64, full, store.Selection{Dims: []uint64{3, 4}}, nil)
		}},
		{"bad id", store.ErrResource, func() error {
			return s.Read(store.ID(999), dtype.Float64, full, store.Selection{Dims: []uint64{3, 4}}, nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := store.NewMetrics(reg)
	s, root := newStore(t, memory.New(), store.WithMetrics(m))

	id, err := s.CreateDataset(root, "d", float64Meta(4))
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if err := s.Write(id, dtype.Float64, make([]byte, 32), store.Selection{Dims: []uint64{4}}, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Close(id); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	s.Open(root, "missing", store.KindAny)

	if got := testutil.ToFloat64(m.HandlesOpened); got != 2 {
		t.Errorf("handles opened = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.OpenHandles); got != 1 {
		t.Errorf("open handles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BytesWritten); got != 32 {
		t.Errorf("bytes written = %v, want 32", got)
	}
	if got := testutil.ToFloat64(m.Errors.WithLabelValues("not_found")); got != 1 {
		t.Errorf("not_found errors = %v, want 1", got)
	}
}

func TestShutdown(t *testing.T) {
	logs := &captureHandler{}
	s := store.New(memory.New(), store.WithLogger(slog.New(logs)))
	root, err := s.Root()
	if err != nil {
		t.Fatalf("Root failed: %v", err)
	}
	if _, err := s.OpenGroup(root, "leak"); err != nil {
		t.Fatalf("OpenGroup failed: %v", err)
	}

	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if logs.warnings() != 2 {
		t.Errorf("expected 2 leaked handle warnings, got %d", logs.warnings())
	}
	if err := s.Shutdown(); err != nil {
		t.Errorf("second Shutdown failed: %v", err)
	}
	if _, err := s.Open(root, "leak", store.KindAny); !errors.Is(err, store.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestReadOnlyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.h5db")
	b, err := sqlite.Create(path, sqlite.Append)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	s := store.New(b)
	root, _ := s.Root()
	id, err := s.CreateDataset(root, "v", float64Meta(2))
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if err := s.Write(id, dtype.Float64, dtype.Encode([]float64{1, 2}), store.Selection{Dims: []uint64{2}}, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	rb, err := sqlite.Open(path, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ro, root := newStore(t, rb)
	id, err = ro.Open(root, "v", store.KindDataset)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	raw := make([]byte, 16)
	if err := ro.Read(id, dtype.Float64, raw, store.Selection{Dims: []uint64{2}}, nil); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	got := make([]float64, 2)
	dtype.Decode(raw, got)
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("got %v", got)
	}

	if err := ro.Write(id, dtype.Float64, raw, store.Selection{Dims: []uint64{2}}, nil); !errors.Is(err, store.ErrResource) {
		t.Errorf("write on read-only store: expected ErrResource, got %v", err)
	}
	if _, err := ro.OpenGroup(root, "new"); !errors.Is(err, store.ErrResource) {
		t.Errorf("create group on read-only store: expected ErrResource, got %v", err)
	}
}

// chunkRecorder records the size of every chunk written through it.
type chunkRecorder struct {
	*memory.Backend
	sizes []int
}

func (r *chunkRecorder) WriteChunks(key store.NodeKey, chunks map[uint64]store.Chunk) error {
	for _, c := range chunks {
		r.sizes = append(r.sizes, len(c.Data))
	}
	return r.Backend.WriteChunks(key, chunks)
}

func TestContiguousWindowTouchesAddressedBlocks(t *testing.T) {
	rec := &chunkRecorder{Backend: memory.New()}
	reg := prometheus.NewRegistry()
	m := store.NewMetrics(reg)
	s, root := newStore(t, rec, store.WithMetrics(m))

	// 8 TiB logically; only the addressed block is ever materialized.
	dims := []uint64{1 << 20, 1 << 20}
	id, err := s.CreateDataset(root, "big", float64Meta(dims...))
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	win := &layout.Hyperslab{Start: []uint64{1<<19 + 3, 5}, Count: []uint64{2, 2}}
	patch := dtype.Encode([]float64{1, 2, 3, 4})
	if err := s.Write(id, dtype.Float64, patch, store.Selection{Dims: []uint64{2, 2}}, win); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(rec.sizes) != 2 {
		t.Fatalf("wrote %d blocks, want 2 (one per row)", len(rec.sizes))
	}
	for _, n := range rec.sizes {
		if n > layout.ContiguousBlockSize {
			t.Errorf("block of %d bytes exceeds %d", n, layout.ContiguousBlockSize)
		}
	}

	back := make([]byte, len(patch))
	if err := s.Read(id, dtype.Float64, back, store.Selection{Dims: []uint64{2, 2}}, win); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(back) != string(patch) {
		t.Error("window read mismatch")
	}
	far := &layout.Hyperslab{Start: []uint64{7, 1<<20 - 1}, Count: []uint64{1, 1}}
	zero := dtype.Encode([]float64{-1})
	if err := s.Read(id, dtype.Float64, zero, store.Selection{Dims: []uint64{1}}, far); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	got := make([]float64, 1)
	dtype.Decode(zero, got)
	if got[0] != 0 {
		t.Errorf("unwritten element = %v, want 0", got[0])
	}
	if n := testutil.ToFloat64(m.ChunksRead); n != 2 {
		t.Errorf("chunks read = %v, want 2", n)
	}
}

func TestContiguousAcrossBlocks(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			s, root := newStore(t, bc.new(t))
			// Three blocks, the last one partial.
			n := uint64(layout.ContiguousBlockSize/4)*2 + 100
			id, err := s.CreateDataset(root, "long", store.Meta{
				Type: dtype.Int32, Dims: []uint64{n}, Layout: layout.Policy{Class: layout.Contiguous},
			})
			if err != nil {
				t.Fatalf("CreateDataset failed: %v", err)
			}
			values := make([]int32, n)
			for i := range values {
				values[i] = int32(i)
			}
			buf := dtype.Encode(values)
			if err := s.Write(id, dtype.Int32, buf, store.Selection{Dims: []uint64{n}}, nil); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			// A window straddling the first block boundary.
			edge := uint64(layout.ContiguousBlockSize / 4)
			win := &layout.Hyperslab{Start: []uint64{edge - 2}, Count: []uint64{4}}
			raw := make([]byte, 16)
			if err := s.Read(id, dtype.Int32, raw, store.Selection{Dims: []uint64{4}}, win); err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			got := make([]int32, 4)
			dtype.Decode(raw, got)
			want := []int32{int32(edge - 2), int32(edge - 1), int32(edge), int32(edge + 1)}
			if !slices.Equal(got, want) {
				t.Errorf("straddling read = %v, want %v", got, want)
			}

			all := make([]byte, len(buf))
			if err := s.Read(id, dtype.Int32, all, store.Selection{Dims: []uint64{n}}, nil); err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if string(all) != string(buf) {
				t.Error("full read mismatch")
			}
		})
	}
}

func TestCreateDatasetOverflow(t *testing.T) {
	s, root := newStore(t, memory.New())
	tests := []struct {
		name string
		meta store.Meta
	}{
		{"contiguous", float64Meta(1 << 62)},
		{"contiguous rank 2", float64Meta(1<<32, 1<<32)},
		{"compact", store.Meta{Type: dtype.Float64, Dims: []uint64{1 << 32, 1 << 32}, Layout: layout.Policy{Class: layout.Compact}}},
		{"chunk too large", store.Meta{Type: dtype.Float64, Dims: []uint64{1 << 30, 1 << 30},
			Layout: layout.Policy{Class: layout.Chunked, Chunks: []uint64{1 << 20, 1 << 20}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.CreateDataset(root, "x", tt.meta); !errors.Is(err, store.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestTransferConverts(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			s, root := newStore(t, bc.new(t))
			id, err := s.CreateDataset(root, "c", store.Meta{
				Type: dtype.Int16, Dims: []uint64{2, 3},
				Layout: layout.Policy{Class: layout.Chunked, Chunks: []uint64{1, 2}},
			})
			if err != nil {
				t.Fatalf("CreateDataset failed: %v", err)
			}
			in := dtype.Encode([]float64{-1.5, 2, 40000, 4, -40000, 6.9})
			if err := s.Write(id, dtype.Float64, in, store.Selection{Dims: []uint64{2, 3}}, nil); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			raw := make([]byte, 6*8)
			if err := s.Read(id, dtype.Int64, raw, store.Selection{Dims: []uint64{2, 3}}, nil); err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			got := make([]int64, 6)
			dtype.Decode(raw, got)
			if want := []int64{-1, 2, 32767, 4, -32768, 6}; !slices.Equal(got, want) {
				t.Errorf("read = %v, want %v", got, want)
			}

			// Unselected memory elements are untouched by a converted read.
			mem := make([]byte, 3*4)
			copy(mem, dtype.Encode([]float32{9, 9, 9}))
			slab := layout.Hyperslab{Start: []uint64{1}, Count: []uint64{1}}
			win := &layout.Hyperslab{Start: []uint64{1, 1}, Count: []uint64{1, 1}}
			if err := s.Read(id, dtype.Float32, mem, store.Selection{Dims: []uint64{3}, Slab: &slab}, win); err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			f := make([]float32, 3)
			dtype.Decode(mem, f)
			if !slices.Equal(f, []float32{9, -32768, 9}) {
				t.Errorf("partial read = %v", f)
			}
		})
	}
}

func TestIterateExaminesOnlyToMatch(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			m := store.NewMetrics(nil)
			s, root := newStore(t, bc.new(t), store.WithMetrics(m))
			for i := range 20 {
				id, err := s.OpenGroup(root, fmt.Sprintf("g%02d", i))
				if err != nil {
					t.Fatalf("OpenGroup failed: %v", err)
				}
				s.Close(id)
			}

			var idx uint64
			for _, target := range []int{3, 4, 12} {
				before := testutil.ToFloat64(m.IterateSteps)
				start := idx
				found, err := s.Iterate(root, &idx, func(name string, _ store.Kind) (bool, error) {
					return name == fmt.Sprintf("g%02d", target), nil
				})
				if err != nil || !found {
					t.Fatalf("Iterate to g%02d: found=%v err=%v", target, found, err)
				}
				if idx != uint64(target)+1 {
					t.Errorf("index after g%02d = %d, want %d", target, idx, target+1)
				}
				if steps := testutil.ToFloat64(m.IterateSteps) - before; steps != float64(uint64(target)+1-start) {
					t.Errorf("examined %v children to reach g%02d from %d, want %d", steps, target, start, uint64(target)+1-start)
				}
			}
		})
	}
}
