package filter

import (
	"errors"
	"fmt"
)

// MaxFilters is the largest pipeline a 32-bit mask can describe.
const MaxFilters = 32

// Pipeline is an ordered sequence of filters applied to chunk data.
type Pipeline struct {
	filters []Filter
}

// NewPipeline creates a pipeline from persisted filter descriptions.
// elemSize is handed to filters that need it and were not given one.
func NewPipeline(specs []Spec, elemSize int) (*Pipeline, error) {
	if len(specs) > MaxFilters {
		return nil, fmt.Errorf("pipeline has %d filters, at most %d allowed", len(specs), MaxFilters)
	}

	p := &Pipeline{
		filters: make([]Filter, 0, len(specs)),
	}

	for _, spec := range specs {
		f, err := New(spec)
		if err != nil {
			return nil, fmt.Errorf("creating filter %d: %w", spec.ID, err)
		}
		if s, ok := f.(*Shuffle); ok && len(spec.Params) == 0 {
			s.SetElementSize(elemSize)
		}
		p.filters = append(p.filters, f)
	}

	return p, nil
}

// Encode applies the filters in order. Filters that report
// ErrIncompressible are skipped and recorded in the returned mask.
func (p *Pipeline) Encode(input []byte) ([]byte, uint32, error) {
	data := input
	var mask uint32

	for i, f := range p.filters {
		out, err := f.Encode(data)
		if errors.Is(err, ErrIncompressible) {
			mask |= 1 << uint(i)
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("filter %s encode: %w", Name(f.ID()), err)
		}
		data = out
	}

	return data, mask, nil
}

// Decode applies the filters in reverse order, skipping those whose bit is
// set in filterMask.
func (p *Pipeline) Decode(input []byte, filterMask uint32) ([]byte, error) {
	data := input

	for i := len(p.filters) - 1; i >= 0; i-- {
		if filterMask&(1<<uint(i)) != 0 {
			continue
		}

		var err error
		data, err = p.filters[i].Decode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %s decode: %w", Name(p.filters[i].ID()), err)
		}
	}

	return data, nil
}

// Empty returns true if the pipeline has no filters.
func (p *Pipeline) Empty() bool {
	return len(p.filters) == 0
}

// Len returns the number of filters in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.filters)
}
