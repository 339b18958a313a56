package operator

import (
	"blockagg/block"
	"blockagg/monoid"

	"github.com/emirpasic/gods/sets/hashset"
)

// Unique collects the distinct values of a column, null included when the
// column holds one. The null policy does not change the result since a
// block never makes the set null. The result order is unspecified.
type Unique struct {
	*descriptor[*hashset.Set, []interface{}]
}

func NewUnique(on string, opts ...Option) (*Unique, error) {
	o := buildOptions(KindUnique, on, true, opts)
	d, err := newDescriptor[*hashset.Set, []interface{}](KindUnique, on, false, o,
		uniqueKernel{on: on})
	if err != nil {
		return nil, err
	}
	return &Unique{descriptor: d}, nil
}

type uniqueKernel struct {
	on string
}

func (k uniqueKernel) Zero() *hashset.Set {
	return hashset.New()
}

func (k uniqueKernel) AggregateBlock(b block.Accessor) (*hashset.Set, bool, error) {
	distinct, err := b.Unique(k.on)
	if err != nil {
		return nil, false, err
	}
	return hashset.New(distinct...), true, nil
}

// Combine builds a new set so that neither operand is mutated.
func (k uniqueKernel) Combine(cur, next *hashset.Set) *hashset.Set {
	union := hashset.New(cur.Values()...)
	union.Add(next.Values()...)
	return union
}

func (k uniqueKernel) Finalize(acc *hashset.Set) monoid.Nullable[[]interface{}] {
	return monoid.Some(acc.Values())
}

func (k uniqueKernel) toPartial(acc *hashset.Set) partial {
	return partial{items: acc.Values()}
}

func (k uniqueKernel) fromPartial(p partial) (*hashset.Set, error) {
	return hashset.New(p.items...), nil
}
