package operator

import (
	"blockagg/block"

	"github.com/pkg/errors"
)

// RowAggregationConfig describes a custom aggregation in the older
// row-at-a-time style. Exactly one of AccumulateRow and AccumulateBlock
// must be set. Finalize defaults to returning the accumulator.
type RowAggregationConfig[A any] struct {
	Name            string
	Init            func(key interface{}) A
	Merge           func(cur, next A) A
	AccumulateRow   func(acc A, row block.Row) A
	AccumulateBlock func(acc A, b block.Accessor) (A, error)
	Finalize        func(acc A) interface{}
}

// RowAggregation adapts a RowAggregationConfig to Aggregation. It has no
// null policy of its own: nulls reach AccumulateRow as nil cells.
//
// Every block of a group is folded into its own Init(key) accumulator.
// Init(nil) is the starting accumulator of a group and has to be an
// identity of Merge.
//
// Deprecated: implement the kinds in this package or a monoid.Kernel.
type RowAggregation[A any] struct {
	cfg RowAggregationConfig[A]
}

func NewRowAggregation[A any](cfg RowAggregationConfig[A]) (*RowAggregation[A], error) {
	if cfg.Name == "" {
		return nil, errors.Wrap(ErrConfiguration, "row aggregation: name has to be provided")
	}
	if cfg.Init == nil || cfg.Merge == nil {
		return nil, errors.Wrapf(ErrConfiguration, "row aggregation %s: init and merge are required", cfg.Name)
	}
	if (cfg.AccumulateRow == nil) == (cfg.AccumulateBlock == nil) {
		return nil, errors.Wrapf(ErrConfiguration,
			"row aggregation %s: exactly one of accumulate row or accumulate block must be provided", cfg.Name)
	}
	if cfg.AccumulateBlock == nil {
		accumulateRow := cfg.AccumulateRow
		cfg.AccumulateBlock = func(acc A, b block.Accessor) (A, error) {
			err := b.IterRows(func(row block.Row) error {
				acc = accumulateRow(acc, row)
				return nil
			})
			return acc, err
		}
	}
	if cfg.Finalize == nil {
		cfg.Finalize = func(acc A) interface{} { return acc }
	}
	return &RowAggregation[A]{cfg: cfg}, nil
}

func (r *RowAggregation[A]) Kind() Kind {
	return KindRow
}

func (r *RowAggregation[A]) Name() string {
	return r.cfg.Name
}

func (r *RowAggregation[A]) TargetColumn() string {
	return ""
}

func (r *RowAggregation[A]) IgnoreNulls() bool {
	return false
}

func (r *RowAggregation[A]) Validate(*block.Schema) error {
	return nil
}

func (r *RowAggregation[A]) Init() Accumulator {
	return r.cfg.Init(nil)
}

func (r *RowAggregation[A]) AggregateBlock(b block.Accessor) (Accumulator, error) {
	return r.AggregateGroupBlock(nil, b)
}

func (r *RowAggregation[A]) AggregateGroupBlock(key interface{}, b block.Accessor) (Accumulator, error) {
	acc, err := r.cfg.AccumulateBlock(r.cfg.Init(key), b)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", r.cfg.Name)
	}
	return acc, nil
}

func (r *RowAggregation[A]) accumulator(acc Accumulator) (A, error) {
	a, ok := acc.(A)
	if !ok {
		return a, errors.Wrapf(ErrAccumulatorType, "%s: got %T", r.cfg.Name, acc)
	}
	return a, nil
}

func (r *RowAggregation[A]) Combine(cur, next Accumulator) (Accumulator, error) {
	a, err := r.accumulator(cur)
	if err != nil {
		return nil, err
	}
	b, err := r.accumulator(next)
	if err != nil {
		return nil, err
	}
	return r.cfg.Merge(a, b), nil
}

func (r *RowAggregation[A]) Finalize(acc Accumulator) (interface{}, error) {
	a, err := r.accumulator(acc)
	if err != nil {
		return nil, err
	}
	return r.cfg.Finalize(a), nil
}
