package stats

import "math"

// Welford holds the running moments of a sample: the count, the mean and M2,
// the sum of squared deviations from the mean.
type Welford struct {
	count float64
	mean  float64
	m2    float64
}

// FromMoments builds the moments of a partition computed elsewhere.
func FromMoments(m2, mean, count float64) Welford {
	return Welford{count: count, mean: mean, m2: m2}
}

// Merge combines the moments of two disjoint partitions (Chan et al.).
// The mean is taken as the weighted average of both means rather than
// mean_a + delta*count_b/count: both are exact in theory but only the
// weighted form agrees with two-pass libraries to the last digit.
func (welford Welford) Merge(other Welford) Welford {
	count := welford.count + other.count
	if count == 0 {
		return Welford{}
	}
	delta := other.mean - welford.mean
	mean := (welford.mean*welford.count + other.mean*other.count) / count
	m2 := welford.m2 + other.m2 + delta*delta*welford.count*other.count/count
	return Welford{count: count, mean: mean, m2: m2}
}

func (welford *Welford) GetCount() float64 {
	return welford.count
}

func (welford *Welford) GetMean() float64 {
	return welford.mean
}

func (welford *Welford) GetM2() float64 {
	return welford.m2
}

// GetVariance divides M2 by count-ddof and is NaN when that is not
// positive.
func (welford *Welford) GetVariance(ddof int) float64 {
	dof := welford.count - float64(ddof)
	if dof <= 0 {
		return math.NaN()
	}
	return welford.m2 / dof
}

func (welford *Welford) GetStdDev(ddof int) float64 {
	return math.Sqrt(welford.GetVariance(ddof))
}
