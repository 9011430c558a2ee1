package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantileLinearInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4, 1000}

	q1, ok := Quantile(values, 0.25)
	require.True(t, ok)
	assert.Equal(t, 2.0, q1)

	q3, ok := Quantile(values, 0.75)
	require.True(t, ok)
	assert.Equal(t, 4.0, q3)

	mid, ok := Quantile([]float64{1, 2, 3, 4}, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 2.5, mid, 1e-12)

	_, ok = Quantile(nil, 0.5)
	assert.False(t, ok)
}

func TestOutlierBounds(t *testing.T) {
	lower, upper, ok := OutlierBounds([]float64{1, 2, 3, 4, 1000}, 1.5)
	require.True(t, ok)
	assert.Equal(t, -1.0, lower)
	assert.Equal(t, 7.0, upper)

	_, _, ok = OutlierBounds([]float64{5, 5, 5, 5}, 1.5)
	assert.False(t, ok, "zero IQR has no fences")
}

func TestSkewness(t *testing.T) {
	s, ok := Skewness([]float64{1, 2, 3})
	require.True(t, ok)
	assert.InDelta(t, 0, s, 1e-12)

	// adjusted Fisher-Pearson value for this sample is 2.23606...
	s, ok = Skewness([]float64{1, 1, 1, 1, 10})
	require.True(t, ok)
	assert.InDelta(t, 2.236068, s, 1e-6)

	s, ok = Skewness([]float64{4, 4, 4})
	require.True(t, ok)
	assert.Equal(t, 0.0, s)

	_, ok = Skewness([]float64{1, 2})
	assert.False(t, ok)
}

func TestCorrelation(t *testing.T) {
	r, ok := Correlation([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-12)

	r, ok = Correlation([]float64{1, 2, 3, 4}, []float64{8, 6, 4, 2})
	require.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-12)

	_, ok = Correlation([]float64{1, 2, 3}, []float64{5, 5, 5})
	assert.False(t, ok, "constant sample")

	_, ok = Correlation([]float64{1}, []float64{2})
	assert.False(t, ok)
}

func TestStandardDeviationIsSample(t *testing.T) {
	s, ok := StandardDeviation([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.True(t, ok)
	assert.InDelta(t, 2.138090, s, 1e-6)

	_, ok = StandardDeviation([]float64{3})
	assert.False(t, ok)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.333, Round(1.0/3.0, 3))
	assert.Equal(t, 2.5, Round(2.4999999, 4))
	assert.Nil(t, RoundPtr(1, false, 2))
	require.NotNil(t, RoundPtr(1.23456, true, 2))
	assert.Equal(t, 1.23, *RoundPtr(1.23456, true, 2))
}
