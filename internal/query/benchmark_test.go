package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/autoeda/internal/testutil"
	"github.com/inferloop/autoeda/pkg/models"
)

func TestBenchmark(t *testing.T) {
	table := models.NewTable(
		testutil.TextColumn("city", "a", "b", "c"),
		testutil.NumericColumn("v", 1, 2, 6),
	)

	res, err := Benchmark(context.Background(), table, testutil.Logger())
	require.NoError(t, err)

	assert.Equal(t, `SELECT COUNT(*) AS row_count, AVG("v") AS mean_value FROM dataset`, res.Query)
	assert.Equal(t, map[string]interface{}{"row_count": 3, "mean_value": 3.0}, res.InMemory)
	assert.Equal(t, map[string]interface{}{"row_count": 3, "mean_value": 3.0}, res.SQL)
	assert.Equal(t, "sqlite", res.SQLEngine)
	assert.GreaterOrEqual(t, res.SQLMS, 0.0)
}

func TestBenchmarkWithoutNumericColumns(t *testing.T) {
	table := models.NewTable(testutil.TextColumn("city", "a", "b"))

	res, err := Benchmark(context.Background(), table, nil)
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) AS row_count FROM dataset", res.Query)
	assert.Equal(t, map[string]interface{}{"row_count": 2}, res.InMemory)
	assert.Equal(t, map[string]interface{}{"row_count": 2}, res.SQL)
}

func TestBuildSuggestions(t *testing.T) {
	table := models.NewTable(
		testutil.TextColumn("city", "a", "b"),
		testutil.NumericColumn("x", 1, 2),
		testutil.NumericColumn("y", 3, 5),
	)

	got := BuildSuggestions(table)
	names := make([]string, len(got))
	for i, s := range got {
		names[i] = s.Name
	}
	assert.Equal(t, []string{
		"Preview rows",
		"Row count",
		"Distribution stats for x",
		"Grouped mean by city",
		"Correlation proxy: x vs y",
	}, names)
	assert.Equal(t, `SELECT MIN("x") AS min_value, AVG("x") AS avg_value, MAX("x") AS max_value FROM dataset`, got[2].SQL)
	assert.Equal(t, `SELECT "city", AVG("x") AS avg_metric FROM dataset GROUP BY "city" ORDER BY avg_metric DESC LIMIT 20`, got[3].SQL)

	snap, err := NewSnapshot(context.Background(), table, nil)
	require.NoError(t, err)
	defer snap.Close()
	for _, s := range got[:4] {
		_, err := snap.Query(context.Background(), s.SQL, 10)
		assert.NoError(t, err, s.Name)
	}
}

func TestBuildSuggestionsTextOnly(t *testing.T) {
	got := BuildSuggestions(models.NewTable(testutil.TextColumn("c", "a")))
	assert.Len(t, got, 2)
}

func TestSuggestionsUseDisambiguatedNames(t *testing.T) {
	table := models.NewTable(
		testutil.TextColumn("Group", "a", "b"),
		testutil.NumericColumn("group", 1, 2),
		testutil.NumericColumn("v", 3, 5),
	)

	res, err := Benchmark(context.Background(), table, nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) AS row_count, AVG("group_1") AS mean_value FROM dataset`, res.Query)
	assert.Equal(t, 1.5, res.SQL["mean_value"])

	snap, err := NewSnapshot(context.Background(), table, nil)
	require.NoError(t, err)
	defer snap.Close()
	for _, s := range BuildSuggestions(table) {
		_, err := snap.Query(context.Background(), s.SQL, 10)
		assert.NoError(t, err, s.Name)
	}
}
