package operator

import (
	"blockagg/block"
	"blockagg/monoid"

	"github.com/pkg/errors"
)

// AbsMax is the largest absolute value of a numeric column, int64 for
// int64 columns.
type AbsMax struct {
	*descriptor[interface{}, interface{}]
}

func NewAbsMax(on string, opts ...Option) (*AbsMax, error) {
	if on == "" {
		return nil, errors.Wrap(ErrConfiguration, "abs_max: column to aggregate on has to be provided")
	}
	o := buildOptions(KindAbsMax, on, true, opts)
	d, err := newDescriptor[interface{}, interface{}](KindAbsMax, on, true, o,
		absMaxKernel{on: on, ignoreNulls: *o.ignoreNulls})
	if err != nil {
		return nil, err
	}
	return &AbsMax{descriptor: d}, nil
}

type absMaxKernel struct {
	on          string
	ignoreNulls bool
}

func (k absMaxKernel) Zero() interface{} {
	return int64(0)
}

func (k absMaxKernel) AggregateBlock(b block.Accessor) (interface{}, bool, error) {
	max, ok, err := b.Max(k.on, k.ignoreNulls)
	if err != nil || !ok {
		return nil, false, err
	}
	min, ok, err := b.Min(k.on, k.ignoreNulls)
	if err != nil || !ok {
		return nil, false, err
	}
	if !block.TypeOf(max).IsNumeric() {
		return nil, false, errors.Wrapf(block.ErrNotNumeric, "%q is %s", k.on, block.TypeOf(max))
	}
	return k.Combine(block.Abs(max), block.Abs(min)), true, nil
}

func (k absMaxKernel) Combine(cur, next interface{}) interface{} {
	if block.Compare(cur, next) < 0 {
		return next
	}
	return cur
}

func (k absMaxKernel) Finalize(acc interface{}) monoid.Nullable[interface{}] {
	return monoid.Some(acc)
}

func (k absMaxKernel) toPartial(acc interface{}) partial {
	return cellPartial(acc)
}

func (k absMaxKernel) fromPartial(p partial) (interface{}, error) {
	return p.cell(), nil
}
