package operator

import (
	"blockagg/block"

	"github.com/pkg/errors"
)

type constructor func(on string, opts ...Option) (Aggregation, error)

func wrap[T Aggregation](newFn func(string, ...Option) (T, error)) constructor {
	return func(on string, opts ...Option) (Aggregation, error) {
		op, err := newFn(on, opts...)
		if err != nil {
			return nil, err
		}
		return op, nil
	}
}

var constructors = map[string]constructor{
	KindCount.String():    wrap(NewCount),
	KindSum.String():      wrap(NewSum),
	KindMin.String():      wrap(NewMin),
	KindMax.String():      wrap(NewMax),
	KindMean.String():     wrap(NewMean),
	KindStd.String():      wrap(NewStd),
	KindAbsMax.String():   wrap(NewAbsMax),
	KindQuantile.String(): wrap(NewQuantile),
	KindUnique.String():   wrap(NewUnique),
}

// New builds a built-in aggregation from its kind name, e.g. "mean".
func New(kind string, on string, opts ...Option) (Aggregation, error) {
	newFn, ok := constructors[kind]
	if !ok {
		return nil, errors.Wrapf(ErrConfiguration, "unknown aggregation %q", kind)
	}
	return newFn(on, opts...)
}

// OpSet is an ordered collection of aggregations applied together to the
// same groups. Output names are unique within a set.
type OpSet struct {
	ops   []Aggregation
	index map[string]int
}

func NewOpSet(ops ...Aggregation) (*OpSet, error) {
	set := &OpSet{
		ops:   make([]Aggregation, 0, len(ops)),
		index: make(map[string]int, len(ops)),
	}
	for _, op := range ops {
		if _, ok := set.index[op.Name()]; ok {
			return nil, errors.Wrapf(ErrConfiguration, "duplicate aggregation name %q", op.Name())
		}
		set.index[op.Name()] = len(set.ops)
		set.ops = append(set.ops, op)
	}
	return set, nil
}

func (set *OpSet) Len() int {
	return len(set.ops)
}

func (set *OpSet) Ops() []Aggregation {
	return set.ops
}

func (set *OpSet) GetOp(name string) Aggregation {
	i, ok := set.index[name]
	if !ok {
		return nil
	}
	return set.ops[i]
}

func (set *OpSet) Names() []string {
	names := make([]string, len(set.ops))
	for i, op := range set.ops {
		names[i] = op.Name()
	}
	return names
}

func (set *OpSet) Validate(schema *block.Schema) error {
	for _, op := range set.ops {
		if err := op.Validate(schema); err != nil {
			return err
		}
	}
	return nil
}

// Init returns the initial accumulators of a group, in set order.
func (set *OpSet) Init() []Accumulator {
	accs := make([]Accumulator, len(set.ops))
	for i, op := range set.ops {
		accs[i] = op.Init()
	}
	return accs
}

func (set *OpSet) AggregateBlock(b block.Accessor) ([]Accumulator, error) {
	return set.AggregateGroupBlock(nil, b)
}

// AggregateGroupBlock aggregates a block of the group key. Only
// aggregations implementing GroupAggregator see the key.
func (set *OpSet) AggregateGroupBlock(key interface{}, b block.Accessor) ([]Accumulator, error) {
	accs := make([]Accumulator, len(set.ops))
	for i, op := range set.ops {
		var (
			acc Accumulator
			err error
		)
		if g, ok := op.(GroupAggregator); ok {
			acc, err = g.AggregateGroupBlock(key, b)
		} else {
			acc, err = op.AggregateBlock(b)
		}
		if err != nil {
			return nil, err
		}
		accs[i] = acc
	}
	return accs, nil
}

func (set *OpSet) Combine(cur, next []Accumulator) ([]Accumulator, error) {
	if len(cur) != len(set.ops) || len(next) != len(set.ops) {
		return nil, errors.Wrapf(ErrAccumulatorType,
			"expected %d accumulators, got %d and %d", len(set.ops), len(cur), len(next))
	}
	merged := make([]Accumulator, len(set.ops))
	for i, op := range set.ops {
		acc, err := op.Combine(cur[i], next[i])
		if err != nil {
			return nil, err
		}
		merged[i] = acc
	}
	return merged, nil
}

func (set *OpSet) Finalize(accs []Accumulator) ([]interface{}, error) {
	if len(accs) != len(set.ops) {
		return nil, errors.Wrapf(ErrAccumulatorType,
			"expected %d accumulators, got %d", len(set.ops), len(accs))
	}
	results := make([]interface{}, len(set.ops))
	for i, op := range set.ops {
		result, err := op.Finalize(accs[i])
		if err != nil {
			return nil, err
		}
		results[i] = result
	}
	return results, nil
}
