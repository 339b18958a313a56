package core

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blockagg/block"
	"blockagg/operator"
	"blockagg/storage"
)

var schema = block.NewSchema(block.Field{Name: "x", Type: block.TypeFloat64})

func allOps(t *testing.T) *operator.OpSet {
	t.Helper()
	var ops []operator.Aggregation
	for _, kind := range []string{"count", "sum", "min", "max", "mean", "std", "abs_max", "quantile"} {
		op, err := operator.New(kind, "x")
		require.NoError(t, err)
		ops = append(ops, op)
	}
	strictSum, err := operator.New("sum", "x",
		operator.WithIgnoreNulls(false), operator.WithAlias("strict_sum"))
	require.NoError(t, err)
	ops = append(ops, strictSum)

	set, err := operator.NewOpSet(ops...)
	require.NoError(t, err)
	return set
}

// split cuts values into blocks of random sizes, empty blocks included.
func split(t *testing.T, r *rand.Rand, values []interface{}) []block.Accessor {
	t.Helper()
	var blocks []block.Accessor
	for start := 0; start < len(values); {
		end := start + r.Intn(5)
		if end > len(values) {
			end = len(values)
		}
		b, err := block.NewTable(schema, map[string][]interface{}{"x": values[start:end]})
		require.NoError(t, err)
		blocks = append(blocks, b)
		start = end
	}
	return blocks
}

func randomValues(r *rand.Rand, n int, nullRate float64) []interface{} {
	values := make([]interface{}, n)
	for i := range values {
		if r.Float64() < nullRate {
			continue
		}
		values[i] = math.Round(r.NormFloat64()*1000) / 100
	}
	return values
}

func assertSameValues(t *testing.T, expected, actual block.Row) {
	t.Helper()
	require.Equal(t, len(expected), len(actual))
	for name, want := range expected {
		got := actual[name]
		if wantFloat, ok := want.(float64); ok {
			gotFloat, ok := got.(float64)
			require.True(t, ok, name)
			if math.IsNaN(wantFloat) {
				assert.True(t, math.IsNaN(gotFloat), name)
				continue
			}
			assert.InDelta(t, wantFloat, gotFloat, 1e-9, name)
			continue
		}
		assert.Equal(t, want, got, name)
	}
}

func newTestReducer(t *testing.T, ops *operator.OpSet, config *Config, opts ...Option) *Reducer {
	t.Helper()
	r, err := NewReducer(ops, config, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, r.Close())
	})
	return r
}

func TestReducer_PartitionInvariance(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	ops := allOps(t)

	spill := DefaultConfig()
	spill.Spill = true
	uncached := DefaultConfig()
	uncached.Spill = true
	uncached.CacheEnabled = false
	single := DefaultConfig()
	single.Workers = 1

	reducers := map[string]*Reducer{
		"memory":        newTestReducer(t, ops, nil),
		"single_worker": newTestReducer(t, ops, single),
		"spill_badger":  newTestReducer(t, ops, spill, WithLogger(zap.NewExample())),
		"spill_memory":  newTestReducer(t, ops, uncached, WithBackend(storage.NewInMemoryBackend())),
	}

	for _, nullRate := range []float64{0, 0.2} {
		values := randomValues(r, 200, nullRate)
		whole, err := block.NewTable(schema, map[string][]interface{}{"x": values})
		require.NoError(t, err)

		expected, err := reducers["memory"].Reduce(context.Background(), schema,
			[]Group{{Key: "g", Blocks: []block.Accessor{whole}}})
		require.NoError(t, err)
		require.Len(t, expected, 1)

		for name, reducer := range reducers {
			for trial := 0; trial < 5; trial++ {
				results, err := reducer.Reduce(context.Background(), schema,
					[]Group{{Key: "g", Blocks: split(t, r, values)}})
				require.NoError(t, err, name)
				require.Len(t, results, 1)
				assert.Equal(t, "g", results[0].Key)
				assertSameValues(t, expected[0].Values, results[0].Values)
			}
		}
	}
}

func TestReducer_Values(t *testing.T) {
	reducer := newTestReducer(t, allOps(t), nil)

	first, err := block.Column("x", 1.0, 2.0, nil)
	require.NoError(t, err)
	second, err := block.Column("x", 3.0, nil)
	require.NoError(t, err)

	results, err := reducer.Reduce(context.Background(), schema, []Group{
		{Key: 1, Blocks: []block.Accessor{first, second}},
		{Key: 2},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	values := results[0].Values
	assert.Equal(t, int64(5), values["count(x)"])
	assert.Equal(t, 6.0, values["sum(x)"])
	assert.Equal(t, 1.0, values["min(x)"])
	assert.Equal(t, 3.0, values["max(x)"])
	assert.Equal(t, 2.0, values["mean(x)"])
	assert.InDelta(t, 1.0, values["std(x)"], 1e-12)
	assert.Equal(t, 3.0, values["abs_max(x)"])
	assert.Equal(t, 2.0, values["quantile(x)"])
	assert.Nil(t, values["strict_sum"])

	// a group without blocks finalizes the initial accumulators
	empty := results[1].Values
	assert.Equal(t, 2, results[1].Key)
	assert.Equal(t, int64(0), empty["count(x)"])
	assert.Nil(t, empty["sum(x)"])
	assert.Nil(t, empty["mean(x)"])
	assert.Equal(t, int64(0), empty["strict_sum"])
}

func TestReducer_SpillCleansUp(t *testing.T) {
	backend := storage.NewInMemoryBackend()
	config := DefaultConfig()
	config.Spill = true
	ops := allOps(t)
	reducer := newTestReducer(t, ops, config, WithBackend(backend))

	blocks := split(t, rand.New(rand.NewSource(7)), randomValues(rand.New(rand.NewSource(7)), 50, 0.1))
	_, err := reducer.Reduce(context.Background(), schema, []Group{{Key: "a", Blocks: blocks}})
	require.NoError(t, err)

	for slot := 0; slot < ops.Len(); slot++ {
		require.NoError(t, backend.IterateIndex(1, uint8(slot), func(partialID int64) error {
			t.Errorf("partial %d of slot %d left behind", partialID, slot)
			return nil
		}))
	}
}

func TestReducer_ValidatesBeforeWork(t *testing.T) {
	var calls int64
	counting, err := operator.NewRowAggregation(operator.RowAggregationConfig[int]{
		Name:  "calls",
		Init:  func(interface{}) int { return 0 },
		Merge: func(a, b int) int { return a + b },
		AccumulateBlock: func(acc int, b block.Accessor) (int, error) {
			atomic.AddInt64(&calls, 1)
			return acc + 1, nil
		},
	})
	require.NoError(t, err)
	missing, err := operator.NewSum("y")
	require.NoError(t, err)
	ops, err := operator.NewOpSet(counting, missing)
	require.NoError(t, err)

	reducer := newTestReducer(t, ops, nil)
	b, err := block.Column("x", 1.0)
	require.NoError(t, err)
	_, err = reducer.Reduce(context.Background(), schema, []Group{{Blocks: []block.Accessor{b, b}}})
	assert.True(t, errors.Is(err, operator.ErrSchema))
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls))
}

func TestReducer_LegacyAggregation(t *testing.T) {
	keys, err := operator.NewRowAggregation(operator.RowAggregationConfig[[]interface{}]{
		Name: "keys",
		Init: func(key interface{}) []interface{} {
			if key == nil {
				return nil
			}
			return []interface{}{key}
		},
		Merge: func(a, b []interface{}) []interface{} { return append(append([]interface{}{}, a...), b...) },
		AccumulateRow: func(acc []interface{}, row block.Row) []interface{} {
			return append(acc, row["x"])
		},
	})
	require.NoError(t, err)
	ops, err := operator.NewOpSet(keys)
	require.NoError(t, err)

	reducer := newTestReducer(t, ops, nil)
	b, err := block.Column("x", 1.0, 2.0)
	require.NoError(t, err)
	results, err := reducer.Reduce(context.Background(), schema, []Group{
		{Key: "k", Blocks: []block.Accessor{b, b}},
		{Key: "empty"},
	})
	require.NoError(t, err)
	// every block of the group is seeded with the key
	assert.ElementsMatch(t, []interface{}{"k", 1.0, 2.0, "k", 1.0, 2.0}, results[0].Values["keys"])
	assert.Empty(t, results[1].Values["keys"])

	config := DefaultConfig()
	config.Spill = true
	_, err = NewReducer(ops, config, WithBackend(storage.NewInMemoryBackend()))
	assert.True(t, errors.Is(err, operator.ErrNotEncodable))
}

type failingBlock struct {
	block.Accessor
}

var errBroken = errors.New("broken block")

func (failingBlock) Sum(string, bool) (interface{}, bool, error) {
	return nil, false, errBroken
}

func TestReducer_BlockError(t *testing.T) {
	sum, err := operator.NewSum("x")
	require.NoError(t, err)
	ops, err := operator.NewOpSet(sum)
	require.NoError(t, err)

	for _, spill := range []bool{false, true} {
		config := DefaultConfig()
		config.Spill = spill
		reducer := newTestReducer(t, ops, config, WithBackend(storage.NewInMemoryBackend()))

		good, err := block.Column("x", 1.0)
		require.NoError(t, err)
		_, err = reducer.Reduce(context.Background(), schema, []Group{
			{Blocks: []block.Accessor{good, failingBlock{good}, good}},
		})
		assert.True(t, errors.Is(err, errBroken))
	}
}

func TestReducer_Cancelled(t *testing.T) {
	reducer := newTestReducer(t, allOps(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := block.Column("x", 1.0)
	require.NoError(t, err)
	_, err = reducer.Reduce(ctx, schema, []Group{{Blocks: []block.Accessor{b}}})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewReducer_InvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.Workers = 0
	_, err := NewReducer(allOps(t), config)
	assert.True(t, errors.Is(err, operator.ErrConfiguration))
}
