package operator

import (
	"blockagg/block"
	"blockagg/monoid"
)

// Sum adds up a numeric column. int64 columns are summed exactly and
// produce an int64; any float64 input makes the sum a float64.
type Sum struct {
	*descriptor[interface{}, interface{}]
}

func NewSum(on string, opts ...Option) (*Sum, error) {
	o := buildOptions(KindSum, on, true, opts)
	d, err := newDescriptor[interface{}, interface{}](KindSum, on, true, o,
		sumKernel{on: on, ignoreNulls: *o.ignoreNulls})
	if err != nil {
		return nil, err
	}
	return &Sum{descriptor: d}, nil
}

type sumKernel struct {
	on          string
	ignoreNulls bool
}

func (k sumKernel) Zero() interface{} {
	return int64(0)
}

func (k sumKernel) AggregateBlock(b block.Accessor) (interface{}, bool, error) {
	return b.Sum(k.on, k.ignoreNulls)
}

func (k sumKernel) Combine(cur, next interface{}) interface{} {
	return block.Add(cur, next)
}

func (k sumKernel) Finalize(acc interface{}) monoid.Nullable[interface{}] {
	return monoid.Some(acc)
}

func (k sumKernel) toPartial(acc interface{}) partial {
	return cellPartial(acc)
}

func (k sumKernel) fromPartial(p partial) (interface{}, error) {
	return p.cell(), nil
}
