package operator

import (
	"math"

	"blockagg/block"
	"blockagg/monoid"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

type Mean struct {
	*descriptor[meanAcc, float64]
}

func NewMean(on string, opts ...Option) (*Mean, error) {
	o := buildOptions(KindMean, on, true, opts)
	d, err := newDescriptor[meanAcc, float64](KindMean, on, true, o,
		meanKernel{on: on, ignoreNulls: *o.ignoreNulls})
	if err != nil {
		return nil, err
	}
	return &Mean{descriptor: d}, nil
}

type meanAcc struct {
	sum   float64
	count int64
}

type meanKernel struct {
	on          string
	ignoreNulls bool
}

func (k meanKernel) Zero() meanAcc {
	return meanAcc{}
}

func (k meanKernel) AggregateBlock(b block.Accessor) (meanAcc, bool, error) {
	count, ok, err := b.Count(k.on, k.ignoreNulls)
	if err != nil || !ok || count == 0 {
		return meanAcc{}, false, err
	}
	// A null sum means a null cell was seen while nulls are not ignored.
	cell, ok, err := b.Sum(k.on, k.ignoreNulls)
	if err != nil || !ok {
		return meanAcc{}, false, err
	}
	sum, err := cast.ToFloat64E(cell)
	if err != nil {
		return meanAcc{}, false, errors.Wrapf(err, "column %q", k.on)
	}
	return meanAcc{sum: sum, count: count}, true, nil
}

func (k meanKernel) Combine(cur, next meanAcc) meanAcc {
	return meanAcc{sum: cur.sum + next.sum, count: cur.count + next.count}
}

func (k meanKernel) Finalize(acc meanAcc) monoid.Nullable[float64] {
	if acc.count == 0 {
		return monoid.Some(math.NaN())
	}
	return monoid.Some(acc.sum / float64(acc.count))
}

func (k meanKernel) toPartial(acc meanAcc) partial {
	return partial{f: [3]float64{acc.sum}, n: acc.count}
}

func (k meanKernel) fromPartial(p partial) (meanAcc, error) {
	return meanAcc{sum: p.f[0], count: p.n}, nil
}
