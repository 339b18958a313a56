package block

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// TypeOf returns the Type of a normalised cell.
func TypeOf(v interface{}) Type {
	switch v.(type) {
	case nil:
		return TypeNull
	case int64:
		return TypeInt64
	case float64:
		return TypeFloat64
	case string:
		return TypeString
	case bool:
		return TypeBool
	default:
		return inferType(v)
	}
}

// Compare orders two non-null cells. int64 and float64 compare by value;
// cells of otherwise different types order by Type, so the order is total
// and a tie between int64(1) and 1.0 is broken the same way every time.
func Compare(a, b interface{}) int {
	ta, tb := TypeOf(a), TypeOf(b)
	if ta.IsNumeric() && tb.IsNumeric() && ta != TypeNull && tb != TypeNull {
		if ta == TypeInt64 && tb == TypeInt64 {
			return compareInt64(cast.ToInt64(a), cast.ToInt64(b))
		}
		if c := compareFloat64(cast.ToFloat64(a), cast.ToFloat64(b)); c != 0 {
			return c
		}
		return compareInt64(int64(ta), int64(tb))
	}
	if ta != tb {
		return compareInt64(int64(ta), int64(tb))
	}
	switch ta {
	case TypeString:
		return strings.Compare(cast.ToString(a), cast.ToString(b))
	case TypeBool:
		x, y := cast.ToBool(a), cast.ToBool(b)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	}
	return 0
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareFloat64 puts NaN below every number.
func compareFloat64(a, b float64) int {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return -1
	case math.IsNaN(b):
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Add sums two numeric cells. Two int64 cells stay int64, anything else is
// summed as float64.
func Add(a, b interface{}) interface{} {
	x, xok := a.(int64)
	y, yok := b.(int64)
	if xok && yok {
		return x + y
	}
	return cast.ToFloat64(a) + cast.ToFloat64(b)
}

// Abs returns the absolute value of a numeric cell in its own type.
func Abs(v interface{}) interface{} {
	switch x := v.(type) {
	case int64:
		if x < 0 {
			return -x
		}
		return x
	default:
		return math.Abs(cast.ToFloat64(v))
	}
}
