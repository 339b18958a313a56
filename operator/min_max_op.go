package operator

import (
	"math"

	"blockagg/block"
	"blockagg/monoid"
)

// Min is the smallest cell of a column of any type, in block.Compare order.
type Min struct {
	*descriptor[interface{}, interface{}]
}

// NewMin returns +Inf for a group without input when nulls are not ignored.
func NewMin(on string, opts ...Option) (*Min, error) {
	o := buildOptions(KindMin, on, true, opts)
	d, err := newDescriptor[interface{}, interface{}](KindMin, on, false, o,
		extremumKernel{on: on, ignoreNulls: *o.ignoreNulls, max: false})
	if err != nil {
		return nil, err
	}
	return &Min{descriptor: d}, nil
}

type Max struct {
	*descriptor[interface{}, interface{}]
}

// NewMax returns -Inf for a group without input when nulls are not ignored.
func NewMax(on string, opts ...Option) (*Max, error) {
	o := buildOptions(KindMax, on, true, opts)
	d, err := newDescriptor[interface{}, interface{}](KindMax, on, false, o,
		extremumKernel{on: on, ignoreNulls: *o.ignoreNulls, max: true})
	if err != nil {
		return nil, err
	}
	return &Max{descriptor: d}, nil
}

// extremumKernel uses a nil accumulator for "no cell yet", which is the
// identity of Combine.
type extremumKernel struct {
	on          string
	ignoreNulls bool
	max         bool
}

func (k extremumKernel) Zero() interface{} {
	return nil
}

func (k extremumKernel) AggregateBlock(b block.Accessor) (interface{}, bool, error) {
	if k.max {
		return b.Max(k.on, k.ignoreNulls)
	}
	return b.Min(k.on, k.ignoreNulls)
}

func (k extremumKernel) Combine(cur, next interface{}) interface{} {
	if cur == nil {
		return next
	}
	if next == nil {
		return cur
	}
	c := block.Compare(cur, next)
	if (k.max && c < 0) || (!k.max && c > 0) {
		return next
	}
	return cur
}

func (k extremumKernel) Finalize(acc interface{}) monoid.Nullable[interface{}] {
	if acc == nil {
		if k.max {
			return monoid.Some[interface{}](math.Inf(-1))
		}
		return monoid.Some[interface{}](math.Inf(1))
	}
	return monoid.Some(acc)
}

func (k extremumKernel) toPartial(acc interface{}) partial {
	return cellPartial(acc)
}

func (k extremumKernel) fromPartial(p partial) (interface{}, error) {
	return p.cell(), nil
}
