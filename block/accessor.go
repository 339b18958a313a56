package block

// Row maps column names to cell values. A nil cell is null.
type Row map[string]interface{}

// Accessor exposes the per-block primitives the aggregation kinds are built
// on. For Count/Sum/Min/Max the boolean result is false when the result is
// null:
//   - with ignoreNulls, null means the column holds no non-null value
//     (Count never reports null, it reports 0);
//   - without ignoreNulls, Sum/Min/Max are null as soon as one cell is null,
//     and Count counts every row.
type Accessor interface {
	Schema() *Schema
	NumRows() int64

	Count(column string, ignoreNulls bool) (int64, bool, error)
	// Sum is int64 for int64 columns and float64 otherwise.
	Sum(column string, ignoreNulls bool) (interface{}, bool, error)
	// Min and Max return a cell of the column's own type, ordered by Compare.
	Min(column string, ignoreNulls bool) (interface{}, bool, error)
	Max(column string, ignoreNulls bool) (interface{}, bool, error)

	// SumOfSquaredDiffsFromMean is taken over the non-null cells.
	SumOfSquaredDiffsFromMean(column string, ignoreNulls bool, mean float64) (float64, error)

	// IterRows stops at the first error returned by fn.
	IterRows(fn func(Row) error) error

	// Unique returns the distinct cells of a column in first-seen order,
	// nil included.
	Unique(column string) ([]interface{}, error)
}
