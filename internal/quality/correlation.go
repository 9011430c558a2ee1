package quality

import (
	stdmath "math"
	"sort"

	"github.com/inferloop/autoeda/internal/utils/math"
	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/models"
)

// FindHighCorrelations returns numeric column pairs (i<j) whose Pearson
// correlation over rows where both values are present has absolute value at
// least threshold. Pairs are ordered by descending absolute correlation, ties
// keeping column-pair order.
func FindHighCorrelations(t *models.Table, threshold float64) []models.CorrelationPair {
	numeric := t.ColumnsOfType(models.ColumnNumeric)
	pairs := []models.CorrelationPair{}
	if len(numeric) < 2 {
		return pairs
	}

	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			x, y := pairwiseComplete(numeric[i], numeric[j])
			r, ok := math.Correlation(x, y)
			if !ok || stdmath.Abs(r) < threshold {
				continue
			}
			pairs = append(pairs, models.CorrelationPair{
				FeatureA:    numeric[i].Name,
				FeatureB:    numeric[j].Name,
				Correlation: math.Round(r, constants.CorrelationDecimals),
			})
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return stdmath.Abs(pairs[a].Correlation) > stdmath.Abs(pairs[b].Correlation)
	})
	return pairs
}

func pairwiseComplete(a, b *models.Column) ([]float64, []float64) {
	x := make([]float64, 0, len(a.Values))
	y := make([]float64, 0, len(a.Values))
	for i := range a.Values {
		va, vb := a.Values[i], b.Values[i]
		if va.Kind != models.KindNumber || vb.Kind != models.KindNumber {
			continue
		}
		x = append(x, va.Num)
		y = append(y, vb.Num)
	}
	return x, y
}
