package operator

import (
	"blockagg/block"
	"blockagg/monoid"
)

// Count counts the rows of a group, or the cells of a column. Nulls are
// counted unless ignored.
type Count struct {
	*descriptor[int64, int64]
}

func NewCount(on string, opts ...Option) (*Count, error) {
	o := buildOptions(KindCount, on, false, opts)
	d, err := newDescriptor[int64, int64](KindCount, on, false, o,
		countKernel{on: on, ignoreNulls: *o.ignoreNulls})
	if err != nil {
		return nil, err
	}
	return &Count{descriptor: d}, nil
}

type countKernel struct {
	on          string
	ignoreNulls bool
}

func (k countKernel) Zero() int64 {
	return 0
}

func (k countKernel) AggregateBlock(b block.Accessor) (int64, bool, error) {
	if k.on == "" {
		return b.NumRows(), true, nil
	}
	return b.Count(k.on, k.ignoreNulls)
}

func (k countKernel) Combine(cur, next int64) int64 {
	return cur + next
}

func (k countKernel) Finalize(acc int64) monoid.Nullable[int64] {
	return monoid.Some(acc)
}

func (k countKernel) toPartial(acc int64) partial {
	return partial{n: acc}
}

func (k countKernel) fromPartial(p partial) (int64, error) {
	return p.n, nil
}
