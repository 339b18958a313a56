package stats

import (
	"math"
	"sort"
)

// Quantile returns the q-th quantile of values by linear interpolation
// between closest ranks (R-7). values is sorted in place. Interpolated
// results are rounded to 5 decimal places; exact ranks are returned as is.
func Quantile(values []float64, q float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sort.Float64s(values)

	k := float64(len(values)-1) * q
	f := math.Floor(k)
	c := math.Ceil(k)
	if f == c {
		return values[int(k)], true
	}

	d0 := values[int(f)] * (c - k)
	d1 := values[int(c)] * (k - f)
	return Round(d0+d1, 5), true
}

func Round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}
