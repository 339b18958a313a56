package operator

import (
	"blockagg/block"
	"blockagg/monoid"
	"blockagg/stats"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Std is the standard deviation of a column. Each block contributes its
// count, mean and M2 and blocks are merged with the parallel Welford rule,
// which is single pass and stable, so results may differ from two-pass
// implementations in the last digits.
type Std struct {
	*descriptor[stats.Welford, float64]
	ddof int
}

func NewStd(on string, opts ...Option) (*Std, error) {
	o := buildOptions(KindStd, on, true, opts)
	if o.ddof < 0 {
		return nil, errors.Wrapf(ErrConfiguration, "std: ddof must be non-negative, got %d", o.ddof)
	}
	d, err := newDescriptor[stats.Welford, float64](KindStd, on, true, o,
		stdKernel{on: on, ignoreNulls: *o.ignoreNulls, ddof: o.ddof})
	if err != nil {
		return nil, err
	}
	return &Std{descriptor: d, ddof: o.ddof}, nil
}

func (s *Std) DDOF() int {
	return s.ddof
}

type stdKernel struct {
	on          string
	ignoreNulls bool
	ddof        int
}

func (k stdKernel) Zero() stats.Welford {
	return stats.Welford{}
}

func (k stdKernel) AggregateBlock(b block.Accessor) (stats.Welford, bool, error) {
	count, ok, err := b.Count(k.on, k.ignoreNulls)
	if err != nil || !ok || count == 0 {
		return stats.Welford{}, false, err
	}
	cell, ok, err := b.Sum(k.on, k.ignoreNulls)
	if err != nil || !ok {
		return stats.Welford{}, false, err
	}
	sum, err := cast.ToFloat64E(cell)
	if err != nil {
		return stats.Welford{}, false, errors.Wrapf(err, "column %q", k.on)
	}
	mean := sum / float64(count)
	m2, err := b.SumOfSquaredDiffsFromMean(k.on, k.ignoreNulls, mean)
	if err != nil {
		return stats.Welford{}, false, err
	}
	return stats.FromMoments(m2, mean, float64(count)), true, nil
}

func (k stdKernel) Combine(cur, next stats.Welford) stats.Welford {
	return cur.Merge(next)
}

func (k stdKernel) Finalize(acc stats.Welford) monoid.Nullable[float64] {
	return monoid.Some(acc.GetStdDev(k.ddof))
}

func (k stdKernel) toPartial(acc stats.Welford) partial {
	return partial{f: [3]float64{acc.GetM2(), acc.GetMean(), acc.GetCount()}}
}

func (k stdKernel) fromPartial(p partial) (stats.Welford, error) {
	return stats.FromMoments(p.f[0], p.f[1], p.f[2]), nil
}
