package block

import (
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrColumnLength   = errors.New("column length mismatch")
	ErrNotNumeric     = errors.New("column is not numeric")
)

// Table is an in-memory columnar block. Cells are normalised to the field
// type on construction: int64, float64, string or bool, nil for null.
type Table struct {
	schema  *Schema
	columns map[string][]interface{}
	numRows int64
}

func NewTable(schema *Schema, columns map[string][]interface{}) (*Table, error) {
	table := &Table{
		schema:  schema,
		columns: make(map[string][]interface{}, len(schema.Fields)),
		numRows: -1,
	}
	for _, field := range schema.Fields {
		values, ok := columns[field.Name]
		if !ok {
			return nil, errors.Wrapf(ErrColumnNotFound, "no values for %q", field.Name)
		}
		if table.numRows >= 0 && int64(len(values)) != table.numRows {
			return nil, errors.Wrapf(ErrColumnLength,
				"column %q has %d rows, expected %d", field.Name, len(values), table.numRows)
		}
		table.numRows = int64(len(values))

		normalized := make([]interface{}, len(values))
		for i, v := range values {
			cell, err := normalize(field.Type, v)
			if err != nil {
				return nil, errors.Wrapf(err, "column %q row %d", field.Name, i)
			}
			normalized[i] = cell
		}
		table.columns[field.Name] = normalized
	}
	if table.numRows < 0 {
		table.numRows = 0
	}
	return table, nil
}

// FromRows builds a table from row maps; missing cells are null.
func FromRows(schema *Schema, rows ...Row) (*Table, error) {
	columns := make(map[string][]interface{}, len(schema.Fields))
	for _, field := range schema.Fields {
		values := make([]interface{}, len(rows))
		for i, row := range rows {
			values[i] = row[field.Name]
		}
		columns[field.Name] = values
	}
	return NewTable(schema, columns)
}

// Column builds a single-column table, inferring the type from the first
// non-null value.
func Column(name string, values ...interface{}) (*Table, error) {
	fieldType := TypeNull
	for _, v := range values {
		if v != nil {
			fieldType = inferType(v)
			break
		}
	}
	return NewTable(NewSchema(Field{Name: name, Type: fieldType}),
		map[string][]interface{}{name: values})
}

func inferType(v interface{}) Type {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt64
	case float32, float64:
		return TypeFloat64
	case bool:
		return TypeBool
	default:
		return TypeString
	}
}

func normalize(t Type, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeInt64:
		return cast.ToInt64E(v)
	case TypeFloat64:
		return cast.ToFloat64E(v)
	case TypeString:
		return cast.ToStringE(v)
	case TypeBool:
		return cast.ToBoolE(v)
	default:
		return nil, errors.Errorf("non-null value %v in null column", v)
	}
}

func (t *Table) Schema() *Schema {
	return t.schema
}

func (t *Table) NumRows() int64 {
	return t.numRows
}

func (t *Table) column(name string) ([]interface{}, error) {
	values, ok := t.columns[name]
	if !ok {
		return nil, errors.Wrapf(ErrColumnNotFound, "%q", name)
	}
	return values, nil
}

// numbers returns the non-null cells of a column as float64 and whether a
// null cell was seen.
func (t *Table) numbers(name string) ([]float64, bool, error) {
	values, err := t.column(name)
	if err != nil {
		return nil, false, err
	}
	field, _ := t.schema.Field(name)
	if !field.Type.IsNumeric() {
		return nil, false, errors.Wrapf(ErrNotNumeric, "%q is %s", name, field.Type)
	}

	hasNull := false
	numbers := make([]float64, 0, len(values))
	for _, v := range values {
		if v == nil {
			hasNull = true
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, false, err
		}
		numbers = append(numbers, f)
	}
	return numbers, hasNull, nil
}

func (t *Table) Count(column string, ignoreNulls bool) (int64, bool, error) {
	values, err := t.column(column)
	if err != nil {
		return 0, false, err
	}
	if !ignoreNulls {
		return int64(len(values)), true, nil
	}
	count := int64(0)
	for _, v := range values {
		if v != nil {
			count++
		}
	}
	return count, true, nil
}

// cells returns the non-null cells of a column and whether a null cell was
// seen.
func (t *Table) cells(name string) ([]interface{}, bool, error) {
	values, err := t.column(name)
	if err != nil {
		return nil, false, err
	}
	hasNull := false
	cells := make([]interface{}, 0, len(values))
	for _, v := range values {
		if v == nil {
			hasNull = true
			continue
		}
		cells = append(cells, v)
	}
	return cells, hasNull, nil
}

func (t *Table) reduce(column string, ignoreNulls, numeric bool,
	fold func(acc, v interface{}) interface{}) (interface{}, bool, error) {
	if numeric {
		field, _ := t.schema.Field(column)
		if !field.Type.IsNumeric() {
			return nil, false, errors.Wrapf(ErrNotNumeric, "%q is %s", column, field.Type)
		}
	}
	cells, hasNull, err := t.cells(column)
	if err != nil {
		return nil, false, err
	}
	if len(cells) == 0 || (hasNull && !ignoreNulls) {
		return nil, false, nil
	}
	acc := cells[0]
	for _, v := range cells[1:] {
		acc = fold(acc, v)
	}
	return acc, true, nil
}

func (t *Table) Sum(column string, ignoreNulls bool) (interface{}, bool, error) {
	return t.reduce(column, ignoreNulls, true, Add)
}

func (t *Table) Min(column string, ignoreNulls bool) (interface{}, bool, error) {
	return t.reduce(column, ignoreNulls, false, func(acc, v interface{}) interface{} {
		if Compare(v, acc) < 0 {
			return v
		}
		return acc
	})
}

func (t *Table) Max(column string, ignoreNulls bool) (interface{}, bool, error) {
	return t.reduce(column, ignoreNulls, false, func(acc, v interface{}) interface{} {
		if Compare(v, acc) > 0 {
			return v
		}
		return acc
	})
}

func (t *Table) SumOfSquaredDiffsFromMean(column string, _ bool, mean float64) (float64, error) {
	numbers, _, err := t.numbers(column)
	if err != nil {
		return 0, err
	}
	m2 := 0.0
	for _, v := range numbers {
		d := v - mean
		m2 += d * d
	}
	return m2, nil
}

func (t *Table) IterRows(fn func(Row) error) error {
	for i := int64(0); i < t.numRows; i++ {
		row := make(Row, len(t.schema.Fields))
		for _, field := range t.schema.Fields {
			row[field.Name] = t.columns[field.Name][i]
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) Unique(column string) ([]interface{}, error) {
	values, err := t.column(column)
	if err != nil {
		return nil, err
	}
	seen := make(map[interface{}]struct{}, len(values))
	distinct := make([]interface{}, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		distinct = append(distinct, v)
	}
	return distinct, nil
}
