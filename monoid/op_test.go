package monoid

import (
	"testing"

	"blockagg/block"

	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sumKernel struct {
	ignoreNulls bool
}

func (k sumKernel) Zero() float64 { return 0 }

func (k sumKernel) AggregateBlock(b block.Accessor) (float64, bool, error) {
	sum, ok, err := b.Sum("x", k.ignoreNulls)
	if err != nil || !ok {
		return 0, false, err
	}
	return cast.ToFloat64(sum), true, nil
}

func (k sumKernel) Combine(cur, next float64) float64 { return cur + next }

func (k sumKernel) Finalize(acc float64) Nullable[float64] { return Some(acc) }

func aggregate(t *testing.T, op *NullSafe[float64, float64], values ...interface{}) State[float64] {
	b, err := block.Column("x", values...)
	require.NoError(t, err)
	state, err := op.Aggregate(b)
	require.NoError(t, err)
	return state
}

func TestNullSafe_Zero(t *testing.T) {
	assert.Equal(t, Empty, NewNullSafe[float64, float64](sumKernel{true}, true).Zero().Status())

	zero := NewNullSafe[float64, float64](sumKernel{false}, false).Zero()
	v, ok := zero.Get()
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestNullSafe_IgnoreNullsIdentity(t *testing.T) {
	op := NewNullSafe[float64, float64](sumKernel{true}, true)

	a := aggregate(t, op, 1, 2, nil)
	allNull := aggregate(t, op, nil, nil)
	assert.Equal(t, Empty, allNull.Status())

	assert.Equal(t, a, op.Combine(op.Zero(), a))
	assert.Equal(t, a, op.Combine(a, op.Zero()))
	assert.Equal(t, a, op.Combine(allNull, a))

	result := op.Finalize(op.Combine(a, aggregate(t, op, 3, nil)))
	assert.Equal(t, Some(6.0), result)

	assert.Equal(t, Null[float64](), op.Finalize(op.Zero()))
}

func TestNullSafe_Poisoning(t *testing.T) {
	op := NewNullSafe[float64, float64](sumKernel{false}, false)

	a := aggregate(t, op, 1, 2)
	poison := aggregate(t, op, 3, nil)
	assert.Equal(t, Poisoned, poison.Status())

	combined := op.Combine(a, poison)
	assert.Equal(t, Poisoned, combined.Status())
	assert.Equal(t, Poisoned, op.Combine(combined, a).Status())
	assert.Equal(t, Poisoned, op.Combine(op.Zero(), combined).Status())
	assert.Equal(t, Null[float64](), op.Finalize(combined))

	assert.Equal(t, Some(3.0), op.Finalize(op.Combine(op.Zero(), a)))
}

func TestNullSafe_EmptyBlockIsIdentity(t *testing.T) {
	for _, ignoreNulls := range []bool{true, false} {
		op := NewNullSafe[float64, float64](sumKernel{ignoreNulls}, ignoreNulls)
		empty := aggregate(t, op)
		assert.Equal(t, Empty, empty.Status())

		a := aggregate(t, op, 5)
		assert.Equal(t, a, op.Combine(empty, a))
		assert.Equal(t, a, op.Combine(a, empty))
	}
}

func TestNullSafe_Associative(t *testing.T) {
	for _, ignoreNulls := range []bool{true, false} {
		op := NewNullSafe[float64, float64](sumKernel{ignoreNulls}, ignoreNulls)
		a := aggregate(t, op, 1, 2)
		b := aggregate(t, op, nil)
		c := aggregate(t, op, 4)

		left := op.Combine(op.Combine(a, b), c)
		right := op.Combine(a, op.Combine(b, c))
		assert.Equal(t, op.Finalize(left), op.Finalize(right))
		assert.Equal(t, op.Finalize(op.Combine(a, c)), op.Finalize(op.Combine(c, a)))
	}
}
