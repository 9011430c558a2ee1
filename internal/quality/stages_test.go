package quality

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/autoeda/internal/testutil"
	"github.com/inferloop/autoeda/pkg/models"
)

func TestFillMissing(t *testing.T) {
	nan := math.NaN()
	table := models.NewTable(
		testutil.NumericColumn("a", 1, nan, 3, 5),
		testutil.TextColumn("b", "y", "", "x", "x"),
		testutil.TextColumn("c", "b", "a", "", "c"),
		testutil.TextColumn("d", "", "", "", ""),
		testutil.NumericColumn("e", nan, nan, nan, nan),
	)

	out, rec := FillMissing(table)

	assert.Equal(t, models.OpFillMissing, rec.Operation)
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 4, "e": 4}, rec.ColumnCounts)
	assert.Equal(t, 5, rec.ColumnsTouched)
	assert.Equal(t, 11, rec.RowsImpacted)
	assert.Equal(t, 0, out.MissingCells())

	assert.Equal(t, 3.0, out.Column("a").Values[1].Num, "median of present values")
	assert.Equal(t, "x", out.Column("b").Values[1].Str, "most frequent value")
	assert.Equal(t, "a", out.Column("c").Values[2].Str, "smallest value wins ties")
	assert.Equal(t, "unknown", out.Column("d").Values[0].Str)
	assert.Equal(t, 0.0, out.Column("e").Values[0].Num)

	assert.True(t, table.Column("a").Values[1].IsMissing(), "input is not modified")
}

func TestRemoveDuplicates(t *testing.T) {
	table := models.NewTable(
		testutil.NumericColumn("id", 1, 2, 3, 3, 1),
		testutil.TextColumn("city", "ny", "la", "sf", "sf", "ny"),
	)

	out, rec := RemoveDuplicates(table)

	assert.Equal(t, 2, rec.RowsImpacted)
	assert.Equal(t, 3, out.RowCount())
	assert.Equal(t, []float64{1, 2, 3}, out.Column("id").Floats())
	assert.Equal(t, 5, table.RowCount())

	clean, rec := RemoveDuplicates(out)
	assert.Equal(t, 0, rec.RowsImpacted)
	assert.Equal(t, 0, rec.ColumnsTouched)
	assert.Equal(t, 3, clean.RowCount())
}

func TestRemoveDuplicatesTreatsMissingAsEqual(t *testing.T) {
	table := models.NewTable(
		testutil.NumericColumn("a", math.NaN(), math.NaN()),
		testutil.TextColumn("b", "", ""),
	)

	out, rec := RemoveDuplicates(table)
	assert.Equal(t, 1, rec.RowsImpacted)
	assert.Equal(t, 1, out.RowCount())
}

func TestCapOutliers(t *testing.T) {
	table := models.NewTable(
		testutil.NumericColumn("v", 1, 2, 3, 4, 1000),
		testutil.NumericColumn("flat", 5, 5, 5, 5, 5),
		testutil.TextColumn("label", "a", "b", "c", "d", "e"),
	)

	out, rec := CapOutliers(table, 1.5)

	assert.Equal(t, 5, out.RowCount())
	assert.Equal(t, []float64{1, 2, 3, 4, 7}, out.Column("v").Floats())
	assert.Equal(t, map[string]int{"v": 1}, rec.ColumnCounts)
	assert.Equal(t, 1, rec.RowsImpacted)
	assert.Equal(t, 1, rec.ColumnsTouched)
	assert.Equal(t, 1000.0, table.Column("v").Values[4].Num)
}

func TestCapOutliersNeverLeavesValuesOutsideFences(t *testing.T) {
	table := models.NewTable(testutil.NumericColumn("v", -500, 10, 11, 12, 13, 14, 900))

	out, _ := CapOutliers(table, 1.5)

	// Q1=10.5, Q3=13.5, IQR=3
	for _, v := range out.Column("v").Floats() {
		assert.GreaterOrEqual(t, v, 6.0)
		assert.LessOrEqual(t, v, 18.0)
	}
	assert.Equal(t, 7, out.RowCount())
}

func TestNormalizeText(t *testing.T) {
	table := models.NewTable(
		testutil.TextColumn("city", "  New   York ", "new york", "", "LA"),
		testutil.TextColumn("clean", "a", "b", "c", "d"),
	)

	out, rec := NormalizeText(table)

	assert.Equal(t, map[string]int{"city": 2}, rec.ColumnCounts)
	assert.Equal(t, 1, rec.ColumnsTouched)
	assert.Equal(t, 2, rec.RowsImpacted)

	city := out.Column("city")
	assert.Equal(t, "new york", city.Values[0].Str)
	assert.Equal(t, "new york", city.Values[1].Str)
	assert.True(t, city.Values[2].IsMissing())
	assert.Equal(t, "la", city.Values[3].Str)
}

func TestCorrectSkew(t *testing.T) {
	table := models.NewTable(
		testutil.NumericColumn("skewed", 1, 1, 1, 1, 10),
		testutil.NumericColumn("negative", -5, 1, 1, 1, 10),
		testutil.NumericColumn("symmetric", 1, 2, 3, 4, 5),
	)

	out, rec := CorrectSkew(table, 1.0)

	assert.Equal(t, []string{"skewed"}, rec.Columns)
	assert.Equal(t, 1, rec.ColumnsTouched)
	assert.InDelta(t, math.Log1p(10), out.Column("skewed").Values[4].Num, 1e-12)
	assert.Equal(t, -5.0, out.Column("negative").Values[0].Num)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, out.Column("symmetric").Floats())
}

func TestStagesOrder(t *testing.T) {
	stages := Stages(DefaultOptions())
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	assert.Equal(t, []string{
		models.OpFillMissing,
		models.OpRemoveDuplicates,
		models.OpCapOutliers,
		models.OpNormalizeText,
		models.OpLogTransformSkewed,
	}, names)

	for _, s := range stages {
		_, rec := s.Apply(models.NewTable(testutil.NumericColumn("x", 1, 2, 3)))
		require.Equal(t, s.Name, rec.Operation)
	}
}
