package quality

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/autoeda/internal/testutil"
	"github.com/inferloop/autoeda/pkg/models"
)

func TestProfileTable(t *testing.T) {
	table := models.NewTable(
		testutil.NumericColumn("amount", 10, 20, math.NaN(), 30),
		testutil.TextColumn("city", "ny", "la", "", "ny"),
		testutil.NumericColumn("single", 5, math.NaN(), math.NaN(), math.NaN()),
	)

	p := ProfileTable(table, 0.9)

	assert.Equal(t, 4, p.Rows)
	assert.Equal(t, 3, p.Columns)
	assert.Equal(t, 0, p.DuplicateRows)
	assert.Equal(t, 5, p.MissingCells)

	require.Len(t, p.ColumnProfile, 3)
	assert.Equal(t, models.ColumnProfile{
		Name: "amount", DType: models.ColumnNumeric, Missing: 1, MissingPct: 25, Distinct: 3,
	}, p.ColumnProfile[0])
	assert.Equal(t, 2, p.ColumnProfile[1].Distinct)
	assert.Equal(t, 75.0, p.ColumnProfile[2].MissingPct)

	require.Len(t, p.NumericSummary, 2)
	amount := p.NumericSummary[0]
	assert.Equal(t, 3, amount.Count)
	assert.Equal(t, testutil.Float(20), amount.Mean)
	assert.Equal(t, testutil.Float(20), amount.Median)
	assert.Equal(t, testutil.Float(10), amount.Std)
	assert.Equal(t, testutil.Float(10), amount.Min)
	assert.Equal(t, testutil.Float(30), amount.Max)
	assert.Equal(t, testutil.Float(0), amount.Skew)

	single := p.NumericSummary[1]
	assert.Equal(t, 1, single.Count)
	assert.Equal(t, testutil.Float(5), single.Mean)
	assert.Nil(t, single.Std, "std of one value is undefined")
	assert.Nil(t, single.Skew)

	require.Len(t, p.CategoricalSummary, 1)
	assert.Equal(t, []models.TopValue{
		{Value: "ny", Count: 2},
		{Value: "la", Count: 1},
		{Value: models.MissingLabel, Count: 1},
	}, p.CategoricalSummary[0].TopValues)
}

func TestProfileCountsDuplicates(t *testing.T) {
	table := models.NewTable(
		testutil.NumericColumn("id", 1, 2, 2, 2),
		testutil.TextColumn("v", "a", "b", "b", "b"),
	)
	assert.Equal(t, 2, ProfileTable(table, 0.9).DuplicateRows)
}

func TestTopValuesLimit(t *testing.T) {
	col := testutil.TextColumn("c", "a", "b", "c", "d", "e", "f", "f")
	top := TopValues(col, 5)
	require.Len(t, top, 5)
	assert.Equal(t, models.TopValue{Value: "f", Count: 2}, top[0])
	assert.Equal(t, "a", top[1].Value)
}

func TestFindHighCorrelations(t *testing.T) {
	table := models.NewTable(
		testutil.NumericColumn("a", 1, 2, 3, 4),
		testutil.NumericColumn("b", 2, 4, 6, 8.1),
		testutil.NumericColumn("c", 4, 3, 2, 1),
		testutil.NumericColumn("d", 1, 5, 2, 4),
		testutil.TextColumn("label", "w", "x", "y", "z"),
	)

	pairs := FindHighCorrelations(table, 0.9)

	assert.Equal(t, []models.CorrelationPair{
		{FeatureA: "a", FeatureB: "c", Correlation: -1},
		{FeatureA: "a", FeatureB: "b", Correlation: 0.9999},
		{FeatureA: "b", FeatureB: "c", Correlation: -0.9999},
	}, pairs)

	seen := map[[2]string]bool{}
	for _, p := range pairs {
		assert.False(t, seen[[2]string{p.FeatureB, p.FeatureA}], "pair listed in both orders")
		seen[[2]string{p.FeatureA, p.FeatureB}] = true
	}
}

func TestFindHighCorrelationsNeedsTwoNumericColumns(t *testing.T) {
	table := models.NewTable(
		testutil.NumericColumn("a", 1, 2, 3),
		testutil.TextColumn("b", "x", "y", "z"),
	)
	assert.Empty(t, FindHighCorrelations(table, 0.9))
}

func TestFindHighCorrelationsUsesPairwiseCompleteRows(t *testing.T) {
	nan := math.NaN()
	table := models.NewTable(
		testutil.NumericColumn("a", 1, 2, nan, 4, 5),
		testutil.NumericColumn("b", 10, 20, 30, nan, 50),
	)
	pairs := FindHighCorrelations(table, 0.9)
	require.Len(t, pairs, 1)
	assert.Equal(t, 1.0, pairs[0].Correlation)
}
