package operator

import (
	"blockagg/block"
	"blockagg/monoid"
	"blockagg/stats"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Quantile keeps every value of the group until Finalize, so its memory
// grows with the group size. Callers reducing very large groups have to
// bound them upstream.
type Quantile struct {
	*descriptor[quantileAcc, float64]
	q float64
}

func NewQuantile(on string, opts ...Option) (*Quantile, error) {
	o := buildOptions(KindQuantile, on, true, opts)
	if o.q < 0 || o.q > 1 {
		return nil, errors.Wrapf(ErrConfiguration, "quantile: q must be in [0, 1], got %v", o.q)
	}
	d, err := newDescriptor[quantileAcc, float64](KindQuantile, on, true, o,
		quantileKernel{on: on, ignoreNulls: *o.ignoreNulls, q: o.q})
	if err != nil {
		return nil, err
	}
	return &Quantile{descriptor: d, q: o.q}, nil
}

func (q *Quantile) Q() float64 {
	return q.q
}

type quantileAcc struct {
	values []float64
	nulls  int64
}

type quantileKernel struct {
	on          string
	ignoreNulls bool
	q           float64
}

func (k quantileKernel) Zero() quantileAcc {
	return quantileAcc{}
}

// AggregateBlock keeps nulls as a count; they only matter at Finalize.
func (k quantileKernel) AggregateBlock(b block.Accessor) (quantileAcc, bool, error) {
	acc := quantileAcc{values: make([]float64, 0, b.NumRows())}
	err := b.IterRows(func(row block.Row) error {
		cell := row[k.on]
		if cell == nil {
			acc.nulls++
			return nil
		}
		v, err := cast.ToFloat64E(cell)
		if err != nil {
			return errors.Wrapf(err, "column %q", k.on)
		}
		acc.values = append(acc.values, v)
		return nil
	})
	if err != nil {
		return quantileAcc{}, false, err
	}
	return acc, true, nil
}

func (k quantileKernel) Combine(cur, next quantileAcc) quantileAcc {
	values := make([]float64, 0, len(cur.values)+len(next.values))
	values = append(values, cur.values...)
	values = append(values, next.values...)
	return quantileAcc{values: values, nulls: cur.nulls + next.nulls}
}

func (k quantileKernel) Finalize(acc quantileAcc) monoid.Nullable[float64] {
	if !k.ignoreNulls && acc.nulls > 0 {
		return monoid.Null[float64]()
	}
	values := make([]float64, len(acc.values))
	copy(values, acc.values)
	v, ok := stats.Quantile(values, k.q)
	if !ok {
		return monoid.Null[float64]()
	}
	return monoid.Some(v)
}

func (k quantileKernel) toPartial(acc quantileAcc) partial {
	return partial{n: acc.nulls, values: acc.values}
}

func (k quantileKernel) fromPartial(p partial) (quantileAcc, error) {
	return quantileAcc{values: p.values, nulls: p.n}, nil
}
