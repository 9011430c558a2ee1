package math

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean. ok is false for an empty slice.
func Mean(values []float64) (float64, bool) {
	m, err := stats.Mean(values)
	return m, err == nil
}

// Median calculates the median. ok is false for an empty slice.
func Median(values []float64) (float64, bool) {
	m, err := stats.Median(values)
	return m, err == nil
}

// Min returns the smallest value. ok is false for an empty slice.
func Min(values []float64) (float64, bool) {
	m, err := stats.Min(values)
	return m, err == nil
}

// Max returns the largest value. ok is false for an empty slice.
func Max(values []float64) (float64, bool) {
	m, err := stats.Max(values)
	return m, err == nil
}

// StandardDeviation calculates the sample standard deviation (n-1
// denominator). ok is false with fewer than two values.
func StandardDeviation(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	s, err := stats.StandardDeviationSample(values)
	if err != nil || math.IsNaN(s) {
		return 0, false
	}
	return s, true
}

// Skewness calculates the adjusted Fisher-Pearson sample skewness (G1).
// ok is false with fewer than three values; a constant sample has zero skew.
func Skewness(values []float64) (float64, bool) {
	if len(values) < 3 {
		return 0, false
	}
	if isConstant(values) {
		return 0, true
	}
	s := stat.Skew(values, nil)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, false
	}
	return s, true
}

// Correlation calculates the Pearson correlation coefficient between two
// equally long samples. ok is false when it is undefined, e.g. when either
// sample is constant.
func Correlation(x, y []float64) (float64, bool) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, false
	}
	if isConstant(x) || isConstant(y) {
		return 0, false
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	// floating error can push |r| just past 1
	return math.Max(-1, math.Min(1, r)), true
}

// Percentile calculates the p-th percentile with linear interpolation
// between closest ranks
func Percentile(values []float64, p float64) (float64, bool) {
	if len(values) == 0 || p < 0 || p > 100 {
		return 0, false
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p == 0 {
		return sorted[0], true
	}
	if p == 100 {
		return sorted[len(sorted)-1], true
	}

	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower], true
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight, true
}

// Quantile calculates the q-th quantile, q in [0, 1]
func Quantile(values []float64, q float64) (float64, bool) {
	return Percentile(values, q*100)
}

// OutlierBounds calculates the IQR fences [Q1-k*IQR, Q3+k*IQR]. ok is false
// when the quartiles are undefined or the IQR is zero.
func OutlierBounds(values []float64, k float64) (lower, upper float64, ok bool) {
	q1, ok1 := Quantile(values, 0.25)
	q3, ok3 := Quantile(values, 0.75)
	if !ok1 || !ok3 {
		return 0, 0, false
	}
	iqr := q3 - q1
	if iqr == 0 || math.IsNaN(iqr) {
		return 0, 0, false
	}
	return q1 - k*iqr, q3 + k*iqr, true
}

// Round rounds x half away from zero to the given number of decimals
func Round(x float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	r := math.Round(x*pow) / pow
	if r == 0 {
		return 0
	}
	return r
}

// RoundPtr rounds x and returns a pointer to it, or nil when ok is false
func RoundPtr(x float64, ok bool, decimals int) *float64 {
	if !ok || math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	r := Round(x, decimals)
	return &r
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
