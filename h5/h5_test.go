package h5

import (
	"errors"
	"math"
	"path/filepath"
	"slices"
	"testing"
)

type fileCase struct {
	name string
	open func(t *testing.T, opts ...FileOption) *File
}

func fileCases() []fileCase {
	return []fileCase{
		{"memory", func(t *testing.T, opts ...FileOption) *File {
			f, err := CreateMemory(opts...)
			if err != nil {
				t.Fatalf("CreateMemory failed: %v", err)
			}
			t.Cleanup(func() { f.Close() })
			return f
		}},
		{"sqlite", func(t *testing.T, opts ...FileOption) *File {
			f, err := Create(filepath.Join(t.TempDir(), "test.h5db"), opts...)
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			t.Cleanup(func() { f.Close() })
			return f
		}},
	}
}

func mustGroup(t *testing.T, parent *Group, name string) *Group {
	t.Helper()
	g, err := OpenGroup(parent, name)
	if err != nil {
		t.Fatalf("OpenGroup(%q) failed: %v", name, err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestScalarRequiresCreate(t *testing.T) {
	for _, fc := range fileCases() {
		t.Run(fc.name, func(t *testing.T) {
			f := fc.open(t)
			run := mustGroup(t, f.Root(), "run1")

			err := WriteScalar(run, "temperature", 310.5)
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("write before create: expected ErrNotFound, got %v", err)
			}
			if run.Exists("temperature") {
				t.Fatal("failed write created the dataset")
			}

			d, err := Create[float64](run, "temperature", nil)
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			d.Close()

			if err := WriteScalar(run, "temperature", 310.5); err != nil {
				t.Fatalf("write after create failed: %v", err)
			}
			got, err := ReadScalar[float64](run, "temperature")
			if err != nil {
				t.Fatalf("ReadScalar failed: %v", err)
			}
			if got != 310.5 {
				t.Errorf("temperature = %v, want 310.5", got)
			}
		})
	}
}

func TestGridRank(t *testing.T) {
	for _, fc := range fileCases() {
		t.Run(fc.name, func(t *testing.T) {
			f := fc.open(t)
			run := mustGroup(t, f.Root(), "run1")

			data := make([]float64, 12)
			for i := range data {
				data[i] = float64(i) * 0.5
			}
			a, err := FromSlice(data, 3, 4)
			if err != nil {
				t.Fatalf("FromSlice failed: %v", err)
			}
			d, err := CreateFor(run, "grid", a)
			if err != nil {
				t.Fatalf("CreateFor failed: %v", err)
			}
			d.Close()

			got, err := ReadNamed[float64](f.Root(), "/run1/grid", 2)
			if err != nil {
				t.Fatalf("rank-2 read failed: %v", err)
			}
			if !slices.Equal(got.Shape(), []uint64{3, 4}) {
				t.Errorf("shape = %v, want [3 4]", got.Shape())
			}
			if !slices.Equal(got.Data(), data) {
				t.Errorf("data = %v, want %v", got.Data(), data)
			}
			if got.At(2, 3) != 5.5 {
				t.Errorf("At(2, 3) = %v, want 5.5", got.At(2, 3))
			}

			_, err = ReadNamed[float64](run, "grid", 3)
			if !errors.Is(err, ErrShapeMismatch) {
				t.Errorf("rank-3 read: expected ErrShapeMismatch, got %v", err)
			}
		})
	}
}

func TestCreateExisting(t *testing.T) {
	policies := []struct {
		name string
		dims []uint64
		opts []DatasetOption
	}{
		{"default scalar", nil, nil},
		{"default", []uint64{8}, nil},
		{"compact", []uint64{8}, []DatasetOption{WithCompact()}},
		{"contiguous", []uint64{8}, []DatasetOption{WithContiguous()}},
		{"chunked", []uint64{8}, []DatasetOption{WithChunks(3)}},
		{"deflate", []uint64{8}, []DatasetOption{WithChunks(4), WithShuffle(), WithDeflate(6)}},
	}
	for _, fc := range fileCases() {
		for _, p := range policies {
			t.Run(fc.name+"/"+p.name, func(t *testing.T) {
				f := fc.open(t)
				root := f.Root()
				d, err := Create[int32](root, "x", p.dims, p.opts...)
				if err != nil {
					t.Fatalf("first Create failed: %v", err)
				}
				d.Close()

				_, err = Create[int32](root, "x", p.dims, p.opts...)
				if !errors.Is(err, ErrAlreadyExists) {
					t.Errorf("second Create: expected ErrAlreadyExists, got %v", err)
				}
				_, err = Create[float64](root, "x", []uint64{2, 2}, p.opts...)
				if !errors.Is(err, ErrAlreadyExists) {
					t.Errorf("Create with other descriptor: expected ErrAlreadyExists, got %v", err)
				}
			})
		}
	}

	t.Run("over group", func(t *testing.T) {
		f := fileCases()[0].open(t)
		mustGroup(t, f.Root(), "g")
		if _, err := Create[int8](f.Root(), "g", []uint64{1}); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestWriteNamedMissing(t *testing.T) {
	f := fileCases()[1].open(t)
	root := f.Root()
	before := f.OpenHandles()

	err := WriteNamed(root, "nothing/here", Scalar[int64](1))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if root.Exists("nothing") {
		t.Error("write created an intermediate group")
	}
	names, err := root.Members()
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("members = %v, want none", names)
	}
	if after := f.OpenHandles(); len(after) != len(before) {
		t.Errorf("open handles changed from %d to %d", len(before), len(after))
	}

	// a group of that name is not a dataset
	mustGroup(t, root, "g")
	if err := WriteScalar(root, "g", 1.0); !errors.Is(err, ErrNotFound) {
		t.Errorf("write to group: expected ErrNotFound, got %v", err)
	}
}

func roundTrip[T Element](t *testing.T, g *Group, gen func(i int) T) {
	t.Helper()
	shapes := [][]uint64{nil, {5}, {3, 4}, {2, 3, 4}, {2, 2, 3, 2}}
	for rank, shape := range shapes {
		a := NewArray[T](shape...)
		for i := range a.Data() {
			a.Data()[i] = gen(i)
		}
		name := TypeOf[T]().String() + "_r" + string(rune('0'+rank))
		d, err := Create[T](g, name, shape)
		if err != nil {
			t.Fatalf("Create %s failed: %v", name, err)
		}
		d.Close()

		if err := WriteNamed(g, name, a); err != nil {
			t.Fatalf("WriteNamed %s failed: %v", name, err)
		}
		got, err := ReadNamed[T](g, name, rank)
		if err != nil {
			t.Fatalf("ReadNamed %s failed: %v", name, err)
		}
		if !slices.Equal(got.Shape(), a.Shape()) {
			t.Errorf("%s: shape %v, want %v", name, got.Shape(), a.Shape())
		}
		if !slices.Equal(got.Data(), a.Data()) {
			t.Errorf("%s: data %v, want %v", name, got.Data(), a.Data())
		}
	}
}

func TestRoundTripAllTypes(t *testing.T) {
	for _, fc := range fileCases() {
		t.Run(fc.name, func(t *testing.T) {
			f := fc.open(t)
			g := mustGroup(t, f.Root(), "types")
			roundTrip(t, g, func(i int) int8 { return int8(i - 64) })
			roundTrip(t, g, func(i int) int16 { return int16(-i * 300) })
			roundTrip(t, g, func(i int) int32 { return int32(i*70000 - 1) })
			roundTrip(t, g, func(i int) int64 { return int64(i) << 40 })
			roundTrip(t, g, func(i int) uint8 { return uint8(200 + i) })
			roundTrip(t, g, func(i int) uint16 { return uint16(i * 1000) })
			roundTrip(t, g, func(i int) uint32 { return uint32(i) * 100000 })
			roundTrip(t, g, func(i int) uint64 { return uint64(i) << 50 })
			roundTrip(t, g, func(i int) float32 { return float32(i) / 3 })
			roundTrip(t, g, func(i int) float64 { return float64(i) * -1.25 })
		})
	}
}

func TestGoIntStoredAsInt64(t *testing.T) {
	f := fileCases()[0].open(t)
	d, err := CreateFor(f.Root(), "n", Scalar(42))
	if err != nil {
		t.Fatalf("CreateFor failed: %v", err)
	}
	defer d.Close()
	if d.Type() != Int64 {
		t.Errorf("type = %s, want int64", d.Type())
	}
	got, err := ReadScalar[int64](f.Root(), "n")
	if err != nil || got != 42 {
		t.Errorf("ReadScalar = %d, %v; want 42", got, err)
	}
	back, err := ReadScalar[int](f.Root(), "n")
	if err != nil || back != 42 {
		t.Errorf("ReadScalar[int] = %d, %v; want 42", back, err)
	}
}

func TestTypeConversion(t *testing.T) {
	for _, fc := range fileCases() {
		t.Run(fc.name, func(t *testing.T) {
			f := fc.open(t)
			d, err := Create[float64](f.Root(), "v", []uint64{4})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			defer d.Close()

			if err := WriteSlice(d, []float32{1.5, -2, 3.25, 4}); err != nil {
				t.Fatalf("write float32 into float64: %v", err)
			}
			wide, err := ReadSlice[float64](d)
			if err != nil || !slices.Equal(wide, []float64{1.5, -2, 3.25, 4}) {
				t.Errorf("ReadSlice[float64] = %v, %v", wide, err)
			}
			ints, err := ReadSlice[int32](d)
			if err != nil || !slices.Equal(ints, []int32{1, -2, 3, 4}) {
				t.Errorf("ReadSlice[int32] = %v, %v; want truncation toward zero", ints, err)
			}

			n, err := Create[int32](f.Root(), "n", []uint64{3})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			defer n.Close()
			if err := WriteSlice(n, []int64{-5, 300, 1 << 40}); err != nil {
				t.Fatalf("write int64 into int32: %v", err)
			}
			if got, err := ReadSlice[int64](n); err != nil || !slices.Equal(got, []int64{-5, 300, math.MaxInt32}) {
				t.Errorf("ReadSlice[int64] = %v, %v", got, err)
			}
			if got, err := ReadSlice[uint8](n); err != nil || !slices.Equal(got, []uint8{0, 255, 255}) {
				t.Errorf("ReadSlice[uint8] = %v, %v; want saturation", got, err)
			}
			if got, err := ReadSlice[int16](n); err != nil || !slices.Equal(got, []int16{-5, 300, math.MaxInt16}) {
				t.Errorf("ReadSlice[int16] = %v, %v", got, err)
			}

			// windows convert element by element
			src, _ := FromSlice([]uint16{7, 8}, 2)
			if err := WriteWindow(d, src, NewWindow([]uint64{0}, []uint64{2}), NewWindow([]uint64{1}, []uint64{2})); err != nil {
				t.Fatalf("WriteWindow failed: %v", err)
			}
			sub, err := ReadSlab[int8](d, NewWindow([]uint64{0}, []uint64{4}))
			if err != nil || !slices.Equal(sub.Data(), []int8{1, 7, 8, 4}) {
				t.Errorf("ReadSlab[int8] = %v, %v", sub.Data(), err)
			}
		})
	}
}

func TestShapeMismatch(t *testing.T) {
	f := fileCases()[0].open(t)
	d, err := Create[float64](f.Root(), "v", []uint64{4})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer d.Close()

	if err := WriteSlice(d, []float64{1, 2, 3}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("short write: expected ErrShapeMismatch, got %v", err)
	}
	if err := WriteSlice(d, []int32{1, 2, 3}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("short converted write: expected ErrShapeMismatch, got %v", err)
	}
	err = Write(d, NewArray[float64](2, 2))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("rank-2 write: expected ErrShapeMismatch, got %v", err)
	}

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("error is not *Error: %T", err)
	}
}

func TestErrorContext(t *testing.T) {
	f := fileCases()[0].open(t)
	run := mustGroup(t, f.Root(), "run1")
	_, err := OpenDataset(run, "missing")
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if e.Path != "missing" || e.Parent != "/run1" {
		t.Errorf("error names path %q parent %q", e.Path, e.Parent)
	}
	if !errors.Is(e, ErrNotFound) {
		t.Errorf("kind = %v, want not found", e.Kind)
	}
}

func TestFromSliceShape(t *testing.T) {
	if _, err := FromSlice([]int16{1, 2, 3}, 2, 2); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
	a, err := FromSlice([]int16{1, 2, 3, 4, 5, 6}, 2, 3)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	a.Set(9, 1, 0)
	if a.Data()[3] != 9 {
		t.Errorf("Set(1, 0) wrote %v", a.Data())
	}
	if a.Rank() != 2 || a.Len() != 6 {
		t.Errorf("rank %d len %d", a.Rank(), a.Len())
	}
	if s := Scalar(1.5); s.Rank() != 0 || s.At() != 1.5 {
		t.Errorf("Scalar: rank %d value %v", s.Rank(), s.At())
	}
}
