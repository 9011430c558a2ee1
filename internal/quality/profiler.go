package quality

import (
	"sort"

	"github.com/inferloop/autoeda/internal/utils/math"
	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/models"
)

// ProfileTable computes the structural and statistical summary of a table.
// Undefined statistics are reported as nil.
func ProfileTable(t *models.Table, correlationThreshold float64) *models.Profile {
	rows := t.RowCount()
	p := &models.Profile{
		Rows:                 rows,
		Columns:              t.ColumnCount(),
		DuplicateRows:        CountDuplicateRows(t),
		MissingCells:         t.MissingCells(),
		ColumnProfile:        make([]models.ColumnProfile, 0, t.ColumnCount()),
		NumericSummary:       []models.NumericSummary{},
		CategoricalSummary:   []models.CategoricalSummary{},
		HighCorrelationPairs: FindHighCorrelations(t, correlationThreshold),
	}

	for _, col := range t.Columns {
		missing := col.MissingCount()
		pct := 0.0
		if rows > 0 {
			pct = math.Round(float64(missing)/float64(rows)*100, constants.MissingPctDecimals)
		}
		p.ColumnProfile = append(p.ColumnProfile, models.ColumnProfile{
			Name:       col.Name,
			DType:      col.Type,
			Missing:    missing,
			MissingPct: pct,
			Distinct:   distinctCount(col),
		})

		switch col.Type {
		case models.ColumnNumeric:
			p.NumericSummary = append(p.NumericSummary, summarizeNumeric(col))
		case models.ColumnText, models.ColumnBoolean:
			p.CategoricalSummary = append(p.CategoricalSummary, models.CategoricalSummary{
				Column:    col.Name,
				TopValues: TopValues(col, constants.TopValuesLimit),
			})
		}
	}
	return p
}

// CountDuplicateRows counts rows equal in every column to an earlier row
func CountDuplicateRows(t *models.Table) int {
	seen := make(map[string]struct{}, t.RowCount())
	dups := 0
	for i := 0; i < t.RowCount(); i++ {
		key := t.RowKey(i)
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

func distinctCount(col *models.Column) int {
	seen := make(map[models.Value]struct{})
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		if v.Kind == models.KindTime {
			// time.Time carries a location pointer; key by instant
			v = models.Value{Kind: models.KindTime, Num: float64(v.Time.UnixNano())}
		}
		seen[v] = struct{}{}
	}
	return len(seen)
}

func summarizeNumeric(col *models.Column) models.NumericSummary {
	values := col.Floats()
	d := constants.ProfileDecimals

	mean, okMean := math.Mean(values)
	median, okMedian := math.Median(values)
	std, okStd := math.StandardDeviation(values)
	lo, okMin := math.Min(values)
	hi, okMax := math.Max(values)
	skew, okSkew := math.Skewness(values)

	return models.NumericSummary{
		Column: col.Name,
		Count:  len(values),
		Mean:   math.RoundPtr(mean, okMean, d),
		Median: math.RoundPtr(median, okMedian, d),
		Std:    math.RoundPtr(std, okStd, d),
		Min:    math.RoundPtr(lo, okMin, d),
		Max:    math.RoundPtr(hi, okMax, d),
		Skew:   math.RoundPtr(skew, okSkew, d),
	}
}

// TopValues returns the most frequent values of a column, with missing
// cells counted under models.MissingLabel. Ties keep first-appearance order.
func TopValues(col *models.Column, limit int) []models.TopValue {
	counts := make(map[string]int)
	var order []string
	for _, v := range col.Values {
		label := models.MissingLabel
		if !v.IsMissing() {
			label = v.String()
		}
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	top := make([]models.TopValue, len(order))
	for i, label := range order {
		top[i] = models.TopValue{Value: label, Count: counts[label]}
	}
	return top
}
