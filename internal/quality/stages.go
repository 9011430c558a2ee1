package quality

import (
	stdmath "math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/inferloop/autoeda/internal/utils/math"
	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/models"
)

// Stage is one fix step. Apply never modifies its input and always returns a
// record, zero-valued when nothing changed.
type Stage struct {
	Name  string
	Apply func(t *models.Table) (*models.Table, models.FixRecord)
}

// Stages returns the fix steps in pipeline order
func Stages(opts Options) []Stage {
	return []Stage{
		{Name: models.OpFillMissing, Apply: FillMissing},
		{Name: models.OpRemoveDuplicates, Apply: RemoveDuplicates},
		{Name: models.OpCapOutliers, Apply: func(t *models.Table) (*models.Table, models.FixRecord) {
			return CapOutliers(t, opts.IQRMultiplier)
		}},
		{Name: models.OpNormalizeText, Apply: NormalizeText},
		{Name: models.OpLogTransformSkewed, Apply: func(t *models.Table) (*models.Table, models.FixRecord) {
			return CorrectSkew(t, opts.SkewThreshold)
		}},
	}
}

// FillMissing imputes numeric columns with their median (0 when undefined)
// and other columns with their most frequent value ("unknown" when there is
// none)
func FillMissing(t *models.Table) (*models.Table, models.FixRecord) {
	out := t
	rec := models.FixRecord{Operation: models.OpFillMissing, ColumnCounts: map[string]int{}}

	for i, col := range t.Columns {
		missing := col.MissingCount()
		if missing == 0 {
			continue
		}

		var fill models.Value
		if col.Type == models.ColumnNumeric {
			median, ok := math.Median(col.Floats())
			if !ok {
				median = 0
			}
			fill = models.Number(median)
		} else if mode, ok := modeValue(col); ok {
			fill = mode
		} else {
			fill = models.Text(constants.UnknownCategoryPlaceholder)
		}

		filled := col.Clone()
		for k, v := range filled.Values {
			if v.IsMissing() {
				filled.Values[k] = fill
			}
		}
		if fill.Kind == models.KindText && col.Type != models.ColumnText {
			filled.Type = models.ColumnText
		}
		out = out.WithColumn(i, filled)
		rec.ColumnCounts[col.Name] = missing
		rec.RowsImpacted += missing
	}

	rec.ColumnsTouched = len(rec.ColumnCounts)
	return out, rec
}

// modeValue returns the most frequent non-missing value, the smallest one
// on ties
func modeValue(col *models.Column) (models.Value, bool) {
	type entry struct {
		value models.Value
		count int
	}
	counts := make(map[string]*entry)
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		key := v.String()
		if e, ok := counts[key]; ok {
			e.count++
			continue
		}
		counts[key] = &entry{value: v, count: 1}
	}

	var best *entry
	for _, e := range counts {
		if best == nil || e.count > best.count || (e.count == best.count && e.value.Compare(best.value) < 0) {
			best = e
		}
	}
	if best == nil {
		return models.Value{}, false
	}
	return best.value, true
}

// RemoveDuplicates drops rows equal in every column to an earlier row
func RemoveDuplicates(t *models.Table) (*models.Table, models.FixRecord) {
	rec := models.FixRecord{Operation: models.OpRemoveDuplicates}

	seen := make(map[string]struct{}, t.RowCount())
	keep := make([]int, 0, t.RowCount())
	for i := 0; i < t.RowCount(); i++ {
		key := t.RowKey(i)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}

	removed := t.RowCount() - len(keep)
	if removed == 0 {
		return t, rec
	}
	rec.RowsImpacted = removed
	rec.ColumnsTouched = t.ColumnCount()
	return t.SelectRows(keep), rec
}

// CapOutliers clips numeric values outside [Q1-k*IQR, Q3+k*IQR] to the
// nearest fence. Columns without spread are skipped and rows are never
// dropped.
func CapOutliers(t *models.Table, k float64) (*models.Table, models.FixRecord) {
	out := t
	rec := models.FixRecord{Operation: models.OpCapOutliers, ColumnCounts: map[string]int{}}

	for i, col := range t.Columns {
		if col.Type != models.ColumnNumeric {
			continue
		}
		lower, upper, ok := math.OutlierBounds(col.Floats(), k)
		if !ok {
			continue
		}

		var capped *models.Column
		clipped := 0
		for idx, v := range col.Values {
			if v.Kind != models.KindNumber || (v.Num >= lower && v.Num <= upper) {
				continue
			}
			if capped == nil {
				capped = col.Clone()
			}
			capped.Values[idx] = models.Number(stdmath.Min(stdmath.Max(v.Num, lower), upper))
			clipped++
		}
		if clipped == 0 {
			continue
		}
		out = out.WithColumn(i, capped)
		rec.ColumnCounts[col.Name] = clipped
		rec.RowsImpacted += clipped
	}

	rec.ColumnsTouched = len(rec.ColumnCounts)
	return out, rec
}

// NormalizeText trims text values, collapses whitespace runs to one space
// and lowercases them. Missing values stay missing.
func NormalizeText(t *models.Table) (*models.Table, models.FixRecord) {
	out := t
	rec := models.FixRecord{Operation: models.OpNormalizeText, ColumnCounts: map[string]int{}}
	lower := cases.Lower(language.Und)

	for i, col := range t.Columns {
		if col.Type != models.ColumnText {
			continue
		}
		var normalized *models.Column
		changed := 0
		for idx, v := range col.Values {
			if v.Kind != models.KindText {
				continue
			}
			n := lower.String(strings.Join(strings.Fields(v.Str), " "))
			if n == v.Str {
				continue
			}
			if normalized == nil {
				normalized = col.Clone()
			}
			normalized.Values[idx] = models.Text(n)
			changed++
		}
		if changed == 0 {
			continue
		}
		out = out.WithColumn(i, normalized)
		rec.ColumnCounts[col.Name] = changed
		rec.RowsImpacted += changed
	}

	rec.ColumnsTouched = len(rec.ColumnCounts)
	return out, rec
}

// CorrectSkew applies log1p to non-negative numeric columns whose skewness
// magnitude is at least threshold
func CorrectSkew(t *models.Table, threshold float64) (*models.Table, models.FixRecord) {
	out := t
	rec := models.FixRecord{Operation: models.OpLogTransformSkewed, Columns: []string{}}

	for i, col := range t.Columns {
		if col.Type != models.ColumnNumeric {
			continue
		}
		values := col.Floats()
		skew, ok := math.Skewness(values)
		if !ok || stdmath.Abs(skew) < threshold {
			continue
		}
		if lo, ok := math.Min(values); !ok || lo < 0 {
			continue
		}

		transformed := col.Clone()
		for idx, v := range transformed.Values {
			if v.Kind == models.KindNumber {
				transformed.Values[idx] = models.Number(stdmath.Log1p(v.Num))
			}
		}
		out = out.WithColumn(i, transformed)
		rec.Columns = append(rec.Columns, col.Name)
	}

	rec.ColumnsTouched = len(rec.Columns)
	return out, rec
}
