package h5

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-h5/internal/layout"
)

// Window is a rectangular, optionally strided, region of an array or
// dataset. In each dimension it selects Count blocks of Block elements,
// the first at Offset and each following one Stride elements after the
// previous. Nil Stride or Block mean 1 in every dimension.
type Window struct {
	Offset []uint64
	Count  []uint64
	Stride []uint64
	Block  []uint64
}

// NewWindow returns the contiguous window of extent count starting at
// offset.
func NewWindow(offset, count []uint64) Window {
	return Window{Offset: slices.Clone(offset), Count: slices.Clone(count)}
}

// Rank returns the number of dimensions the window addresses.
func (w Window) Rank() int {
	return len(w.Count)
}

// Shape returns the number of selected elements per dimension.
func (w Window) Shape() []uint64 {
	return w.hyperslab().Shape()
}

// NumElements returns the number of selected elements.
func (w Window) NumElements() uint64 {
	return w.hyperslab().NumElements()
}

func (w Window) hyperslab() layout.Hyperslab {
	return layout.Hyperslab{Start: w.Offset, Stride: w.Stride, Count: w.Count, Block: w.Block}
}

func (w Window) String() string {
	parts := make([]string, w.Rank())
	for d := range parts {
		var off, stride uint64 = 0, 1
		if d < len(w.Offset) {
			off = w.Offset[d]
		}
		if d < len(w.Stride) {
			stride = w.Stride[d]
		}
		parts[d] = fmt.Sprintf("%d:%d:%d", off, off+w.Count[d]*stride, stride)
	}
	return strings.Join(parts, ",")
}

// Space is an in-memory array shape with an optional window into it.
// A nil Window selects the whole array.
type Space struct {
	Dims   []uint64
	Window *Window
}

// NumElements returns the number of selected elements.
func (sp Space) NumElements() uint64 {
	if sp.Window == nil {
		return layout.NumElements(sp.Dims)
	}
	return sp.Window.NumElements()
}

// ParseWindow parses a comma-separated selection for a dataset of shape
// dims. Each dimension is an index ("3", "-1") or a slice
// "start:stop:step" whose parts may be omitted (":", "2:", ":4", "::2").
// Negative positions count from the end of the dimension and a stop past
// the end is clamped to it. Dimensions left out at the end are selected
// whole; a lone index keeps its dimension with extent 1.
func ParseWindow(spec string, dims []uint64) (Window, error) {
	rank := len(dims)
	w := Window{
		Offset: make([]uint64, rank),
		Count:  make([]uint64, rank),
		Stride: make([]uint64, rank),
	}
	var tokens []string
	if s := strings.TrimSpace(spec); s != "" {
		tokens = strings.Split(s, ",")
	}
	if len(tokens) > rank {
		return Window{}, newError("parse window", spec, "", ErrInvalidArgument,
			fmt.Errorf("%d dimensions given for rank %d", len(tokens), rank))
	}
	for d := range rank {
		tok := ":"
		if d < len(tokens) {
			tok = strings.TrimSpace(tokens[d])
		}
		off, count, stride, err := parseDim(tok, dims[d])
		if err != nil {
			kind := ErrInvalidArgument
			if errors.Is(err, errIndexRange) {
				kind = ErrOutOfRange
			}
			return Window{}, newError("parse window", spec, "", kind, fmt.Errorf("dimension %d: %w", d, err))
		}
		w.Offset[d], w.Count[d], w.Stride[d] = off, count, stride
	}
	return w, nil
}

var errIndexRange = errors.New("index out of range")

func parseDim(tok string, n uint64) (off, count, stride uint64, err error) {
	parts := strings.Split(tok, ":")
	if len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("malformed slice %q", tok)
	}
	if len(parts) == 1 {
		i, err := position(parts[0], n)
		if err != nil {
			return 0, 0, 0, err
		}
		if i < 0 || i >= int64(n) {
			return 0, 0, 0, fmt.Errorf("%w: %s in extent %d", errIndexRange, tok, n)
		}
		return uint64(i), 1, 1, nil
	}

	start, stop, step := int64(0), int64(n), int64(1)
	if parts[0] != "" {
		if start, err = position(parts[0], n); err != nil {
			return 0, 0, 0, err
		}
	}
	if parts[1] != "" {
		if stop, err = position(parts[1], n); err != nil {
			return 0, 0, 0, err
		}
	}
	if len(parts) == 3 && parts[2] != "" {
		step, err = strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("malformed step %q", parts[2])
		}
		if step <= 0 {
			return 0, 0, 0, fmt.Errorf("step %d must be positive", step)
		}
	}
	if start < 0 || start > int64(n) {
		return 0, 0, 0, fmt.Errorf("%w: start %s in extent %d", errIndexRange, parts[0], n)
	}
	stop = min(max(stop, 0), int64(n))
	if stop <= start {
		return uint64(start), 0, uint64(step), nil
	}
	count = uint64((stop - start + step - 1) / step)
	return uint64(start), count, uint64(step), nil
}

// position parses an index, resolving negative values against extent n.
func position(s string, n uint64) (int64, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed index %q", s)
	}
	if i < 0 {
		i += int64(n)
	}
	return i, nil
}
