package operator

import (
	"testing"

	"blockagg/block"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowAggregation_AccumulateRow(t *testing.T) {
	nonNull, err := NewRowAggregation(RowAggregationConfig[int]{
		Name:  "custom_count",
		Init:  func(interface{}) int { return 0 },
		Merge: func(a, b int) int { return a + b },
		AccumulateRow: func(acc int, row block.Row) int {
			if row["x"] != nil {
				acc++
			}
			return acc
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "custom_count", nonNull.Name())
	assert.Equal(t, KindRow, nonNull.Kind())
	assert.Equal(t, 3, reduce(t, nonNull, nullBlocks(t)...))

	_, isCodec := Aggregation(nonNull).(Codec)
	assert.False(t, isCodec)
}

func TestRowAggregation_AccumulateBlock(t *testing.T) {
	sumOfSums, err := NewRowAggregation(RowAggregationConfig[int64]{
		Name:  "block_sum",
		Init:  func(interface{}) int64 { return 0 },
		Merge: func(a, b int64) int64 { return a + b },
		AccumulateBlock: func(acc int64, b block.Accessor) (int64, error) {
			sum, ok, err := b.Sum("x", true)
			if err != nil || !ok {
				return acc, err
			}
			return acc + sum.(int64), nil
		},
		Finalize: func(acc int64) interface{} { return acc * 2 },
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), reduce(t, sumOfSums, nullBlocks(t)...))
}

func TestRowAggregation_KeyReachesEveryBlock(t *testing.T) {
	keyed, err := NewRowAggregation(RowAggregationConfig[[]string]{
		Name: "keys",
		Init: func(key interface{}) []string {
			if key == nil {
				return nil
			}
			return []string{key.(string)}
		},
		Merge: func(a, b []string) []string { return append(append([]string{}, a...), b...) },
		AccumulateRow: func(acc []string, row block.Row) []string {
			return append(acc, "row")
		},
	})
	require.NoError(t, err)

	set, err := NewOpSet(keyed)
	require.NoError(t, err)
	accs := set.Init()
	for _, b := range []block.Accessor{column(t, 1, 2), column(t, 3)} {
		partial, err := set.AggregateGroupBlock("g1", b)
		require.NoError(t, err)
		accs, err = set.Combine(accs, partial)
		require.NoError(t, err)
	}
	results, err := set.Finalize(accs)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{[]string{"g1", "row", "row", "g1", "row"}}, results)

	// without a key the block starts from Init(nil)
	partial, err := keyed.AggregateBlock(column(t, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"row"}, partial)
}

func TestRowAggregation_Configuration(t *testing.T) {
	initFn := func(interface{}) int { return 0 }
	merge := func(a, b int) int { return a + b }
	row := func(acc int, _ block.Row) int { return acc + 1 }
	blk := func(acc int, b block.Accessor) (int, error) { return acc + int(b.NumRows()), nil }

	cases := []RowAggregationConfig[int]{
		{Name: "neither", Init: initFn, Merge: merge},
		{Name: "both", Init: initFn, Merge: merge, AccumulateRow: row, AccumulateBlock: blk},
		{Name: "", Init: initFn, Merge: merge, AccumulateRow: row},
		{Name: "no_merge", Init: initFn, AccumulateRow: row},
	}
	for _, cfg := range cases {
		_, err := NewRowAggregation(cfg)
		assert.True(t, errors.Is(err, ErrConfiguration), cfg.Name)
	}

	agg, err := NewRowAggregation(RowAggregationConfig[int]{Name: "rows", Init: initFn, Merge: merge, AccumulateRow: row})
	require.NoError(t, err)
	_, err = agg.Combine(1, "two")
	assert.True(t, errors.Is(err, ErrAccumulatorType))
}
