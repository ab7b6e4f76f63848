package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-h5/h5"
)

// typedOps runs element-typed operations chosen at run time.
type typedOps interface {
	show(w io.Writer, d *h5.Dataset, window string) error
	write(parent *h5.Group, name string, values []string, window string) error
	create(parent *h5.Group, name string, dims []uint64, fill string, opts []h5.DatasetOption) error
}

type ops[T h5.Element] struct{}

func opsFor(t h5.Type) (typedOps, error) {
	switch t {
	case h5.Int8:
		return ops[int8]{}, nil
	case h5.Int16:
		return ops[int16]{}, nil
	case h5.Int32:
		return ops[int32]{}, nil
	case h5.Int64:
		return ops[int64]{}, nil
	case h5.Uint8:
		return ops[uint8]{}, nil
	case h5.Uint16:
		return ops[uint16]{}, nil
	case h5.Uint32:
		return ops[uint32]{}, nil
	case h5.Uint64:
		return ops[uint64]{}, nil
	case h5.Float32:
		return ops[float32]{}, nil
	case h5.Float64:
		return ops[float64]{}, nil
	}
	return nil, fmt.Errorf("unsupported element type %s", t)
}

func (ops[T]) show(w io.Writer, d *h5.Dataset, window string) error {
	var (
		a   *h5.Array[T]
		err error
	)
	if window == "" {
		a, err = h5.Read[T](d, d.Rank())
	} else {
		var win h5.Window
		if win, err = h5.ParseWindow(window, d.Dims()); err != nil {
			return err
		}
		a, err = h5.ReadSlab[T](d, win)
	}
	if err != nil {
		return err
	}
	printArray(w, a)
	return nil
}

func (ops[T]) write(parent *h5.Group, name string, values []string, window string) error {
	data, err := parseValues[T](values)
	if err != nil {
		return err
	}
	d, err := h5.OpenDataset(parent, name)
	if err != nil {
		return err
	}
	defer d.Close()

	if window == "" {
		if d.Rank() == 0 {
			if len(data) != 1 {
				return fmt.Errorf("scalar dataset takes one value, got %d", len(data))
			}
			return h5.Write(d, h5.Scalar(data[0]))
		}
		a, err := h5.FromSlice(data, d.Dims()...)
		if err != nil {
			return err
		}
		return h5.Write(d, a)
	}
	win, err := h5.ParseWindow(window, d.Dims())
	if err != nil {
		return err
	}
	a, err := h5.FromSlice(data, uint64(len(data)))
	if err != nil {
		return err
	}
	return h5.WriteSlab(d, a, win)
}

func (ops[T]) create(parent *h5.Group, name string, dims []uint64, fill string, opts []h5.DatasetOption) error {
	if fill == "" {
		d, err := h5.Create[T](parent, name, dims, opts...)
		if err != nil {
			return err
		}
		return d.Close()
	}
	v, err := parseValue[T](fill)
	if err != nil {
		return err
	}
	a := h5.NewArray[T](dims...)
	for i := range a.Data() {
		a.Data()[i] = v
	}
	d, err := h5.CreateFor(parent, name, a, opts...)
	if err != nil {
		return err
	}
	return d.Close()
}

func parseValue[T h5.Element](s string) (T, error) {
	t := h5.TypeOf[T]()
	bits := t.Size() * 8
	s = strings.TrimSpace(s)
	switch {
	case t.IsFloat():
		v, err := strconv.ParseFloat(s, bits)
		return T(v), err
	case t.Signed():
		v, err := strconv.ParseInt(s, 0, bits)
		return T(v), err
	default:
		v, err := strconv.ParseUint(s, 0, bits)
		return T(v), err
	}
}

// parseValues parses each argument, splitting comma-separated lists.
func parseValues[T h5.Element](args []string) ([]T, error) {
	var out []T
	for _, arg := range args {
		for _, s := range strings.Split(arg, ",") {
			if strings.TrimSpace(s) == "" {
				continue
			}
			v, err := parseValue[T](s)
			if err != nil {
				return nil, fmt.Errorf("value %q: %w", s, err)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// printArray prints a as rows of its last dimension, each prefixed with
// the index of its first element.
func printArray[T h5.Element](w io.Writer, a *h5.Array[T]) {
	shape := a.Shape()
	data := a.Data()
	if len(shape) == 0 {
		fmt.Fprintln(w, data[0])
		return
	}
	row := int(shape[len(shape)-1])
	if row == 0 || len(data) == 0 {
		fmt.Fprintf(w, "%v (empty)\n", shape)
		return
	}
	if len(shape) == 1 {
		fmt.Fprintln(w, data)
		return
	}
	idx := make([]uint64, len(shape)-1)
	for off := 0; off < len(data); off += row {
		fmt.Fprintf(w, "%v %v\n", idx, data[off:off+row])
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
}
