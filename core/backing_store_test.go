package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockagg/block"
	"blockagg/operator"
	"blockagg/storage"
)

func finalizeSum(t *testing.T, op operator.Aggregation, acc operator.Accumulator) interface{} {
	t.Helper()
	result, err := op.Finalize(acc)
	require.NoError(t, err)
	return result
}

func testBackingStore(t *testing.T, backend storage.Backend, cacheEnabled bool) {
	store, err := NewBackingStore(backend, cacheEnabled, 1<<20)
	require.NoError(t, err)
	defer store.Close()

	sum, err := operator.NewSum("x")
	require.NoError(t, err)

	first, err := block.Column("x", 1.0, 2.0)
	require.NoError(t, err)
	second, err := block.Column("x", 4.0, nil)
	require.NoError(t, err)

	accA, err := sum.AggregateBlock(first)
	require.NoError(t, err)
	accB, err := sum.AggregateBlock(second)
	require.NoError(t, err)

	require.NoError(t, store.Put(1, 0, 0, sum, accA))
	require.NoError(t, store.Put(1, 0, 1, sum, accB))

	got, err := store.Get(1, 0, 0, sum)
	require.NoError(t, err)
	assert.Equal(t, 3.0, finalizeSum(t, sum, got))

	merged, err := sum.Combine(accA, accB)
	require.NoError(t, err)
	require.NoError(t, store.Merge(1, 0, 2, sum, merged, []int64{0, 1}))

	got, err = store.Get(1, 0, 2, sum)
	require.NoError(t, err)
	assert.Equal(t, 7.0, finalizeSum(t, sum, got))

	var ids []int64
	require.NoError(t, store.IterateIndex(1, 0, func(partialID int64) error {
		ids = append(ids, partialID)
		return nil
	}))
	assert.Equal(t, []int64{2}, ids)

	// other groups do not see the partial
	_, err = store.Get(2, 0, 2, sum)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	if !cacheEnabled {
		require.NoError(t, store.Delete(1, 0, 2))
		_, err = store.Get(1, 0, 2, sum)
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	}
}

func TestBackingStore_InMemory(t *testing.T) {
	testBackingStore(t, storage.NewInMemoryBackend(), false)
	testBackingStore(t, storage.NewInMemoryBackend(), true)
}

func TestBackingStore_Badger(t *testing.T) {
	testBackingStore(t, storage.NewBadgerBackend(storage.TestBadgerDB()), false)
	testBackingStore(t, storage.NewBadgerBackend(storage.TestBadgerDB()), true)
}

func TestBackingStore_DecodeMismatch(t *testing.T) {
	store, err := NewBackingStore(storage.NewInMemoryBackend(), false, 0)
	require.NoError(t, err)
	defer store.Close()

	sum, err := operator.NewSum("x")
	require.NoError(t, err)
	mean, err := operator.NewMean("x")
	require.NoError(t, err)

	require.NoError(t, store.Put(1, 0, 0, sum, sum.Init()))
	_, err = store.Get(1, 0, 0, mean)
	assert.True(t, errors.Is(err, operator.ErrAccumulatorType))
}
