package monoid

import "blockagg/block"

// Kernel is the raw, null-unaware half of an aggregation. AggregateBlock
// reports a null result with ok=false. Combine must be associative and
// commutative; it may not mutate its arguments.
type Kernel[A, O any] interface {
	Zero() A
	AggregateBlock(b block.Accessor) (acc A, ok bool, err error)
	Combine(cur, next A) A
	Finalize(acc A) Nullable[O]
}

// NullSafe lifts a Kernel into a monoid over State[A] that honours one null
// policy for its whole lifetime.
type NullSafe[A, O any] struct {
	kernel      Kernel[A, O]
	ignoreNulls bool
}

func NewNullSafe[A, O any](kernel Kernel[A, O], ignoreNulls bool) *NullSafe[A, O] {
	return &NullSafe[A, O]{kernel: kernel, ignoreNulls: ignoreNulls}
}

func (n *NullSafe[A, O]) IgnoreNulls() bool {
	return n.ignoreNulls
}

// Zero is the identity when nulls are ignored. Otherwise it is the kernel's
// mathematical zero, so that an input without nulls aggregates as usual.
func (n *NullSafe[A, O]) Zero() State[A] {
	if n.ignoreNulls {
		return EmptyState[A]()
	}
	return ValueOf(n.kernel.Zero())
}

// Aggregate runs the kernel over one block. An empty block is the identity
// under either policy. A null kernel result is the identity when nulls are
// ignored and poison otherwise.
func (n *NullSafe[A, O]) Aggregate(b block.Accessor) (State[A], error) {
	if b.NumRows() == 0 {
		return EmptyState[A](), nil
	}
	acc, ok, err := n.kernel.AggregateBlock(b)
	if err != nil {
		return EmptyState[A](), err
	}
	if !ok {
		if n.ignoreNulls {
			return EmptyState[A](), nil
		}
		return PoisonedState[A](), nil
	}
	return ValueOf(acc), nil
}

// Combine checks next before cur when nulls are not ignored so that poison
// wins over any later input.
func (n *NullSafe[A, O]) Combine(cur, next State[A]) State[A] {
	if !n.ignoreNulls {
		if next.status == Poisoned {
			return next
		}
		if cur.status == Poisoned {
			return cur
		}
	}
	if cur.status != Present {
		return next
	}
	if next.status != Present {
		return cur
	}
	return ValueOf(n.kernel.Combine(cur.value, next.value))
}

func (n *NullSafe[A, O]) Finalize(s State[A]) Nullable[O] {
	if s.status != Present {
		return Null[O]()
	}
	return n.kernel.Finalize(s.value)
}
