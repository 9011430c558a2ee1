package query

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/autoeda/internal/testutil"
	"github.com/inferloop/autoeda/pkg/errors"
	"github.com/inferloop/autoeda/pkg/models"
)

func sampleTable() *models.Table {
	flags := &models.Column{Name: "active", Type: models.ColumnBoolean, Values: []models.Value{
		models.Boolean(true), models.Boolean(false), models.Boolean(true), models.Missing(),
	}}
	seen := &models.Column{Name: "seen", Type: models.ColumnDatetime, Values: []models.Value{
		models.Timestamp(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), models.Missing(), models.Missing(), models.Missing(),
	}}
	return models.NewTable(
		testutil.NumericColumn("amount", 10, 20, 30, math.NaN()),
		testutil.TextColumn("city", "ny", "la", "ny", "sf"),
		testutil.NumericColumn("qty", 1, 2, 3, 4),
		flags,
		seen,
	)
}

func openSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := NewSnapshot(context.Background(), sampleTable(), testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(func() { snap.Close() })
	return snap
}

func TestSnapshotQuery(t *testing.T) {
	snap := openSnapshot(t)

	res, err := snap.Query(context.Background(), `SELECT city, COUNT(*) AS n FROM dataset GROUP BY city ORDER BY city`, 500)
	require.NoError(t, err)

	assert.Equal(t, []string{"city", "n"}, res.Columns)
	assert.Equal(t, 3, res.RowCount)
	assert.Equal(t, "sqlite", res.Engine)
	assert.Equal(t, []interface{}{"la", int64(1)}, res.Rows[0])
	assert.Equal(t, []interface{}{"ny", int64(2)}, res.Rows[1])
}

func TestSnapshotMissingValuesAreNull(t *testing.T) {
	snap := openSnapshot(t)

	res, err := snap.Query(context.Background(), `SELECT COUNT(*) FROM dataset WHERE amount IS NULL`, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Rows[0][0])

	res, err = snap.Query(context.Background(), `SELECT SUM(active) FROM dataset`, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Rows[0][0])
}

func TestSnapshotQueryCapsRows(t *testing.T) {
	snap := openSnapshot(t)

	res, err := snap.Query(context.Background(), `WITH x AS (SELECT * FROM dataset) SELECT qty FROM x`, 2)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, 4, res.RowCount)
}

func TestSnapshotRejectsWrites(t *testing.T) {
	snap := openSnapshot(t)

	for _, stmt := range []string{"DELETE FROM dataset", "  drop table dataset", "PRAGMA table_info(dataset)"} {
		_, err := snap.Query(context.Background(), stmt, 10)
		assert.True(t, errors.IsValidation(err), stmt)
	}

	assert.NoError(t, ValidateReadOnly("  select 1"))
	assert.NoError(t, ValidateReadOnly("WITH a AS (SELECT 1) SELECT * FROM a"))
}

func TestSnapshotQueryErrorIsInvalidInput(t *testing.T) {
	snap := openSnapshot(t)
	_, err := snap.Query(context.Background(), "SELECT nope FROM dataset", 10)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestSnapshotQuotesColumnNames(t *testing.T) {
	table := models.NewTable(testutil.NumericColumn(`odd "name"`, 1, 2))
	snap, err := NewSnapshot(context.Background(), table, nil)
	require.NoError(t, err)
	defer snap.Close()

	res, err := snap.Query(context.Background(), `SELECT SUM("odd ""name""") FROM dataset`, 10)
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.Rows[0][0])
}

func TestNewSnapshotRejectsEmptyTable(t *testing.T) {
	_, err := NewSnapshot(context.Background(), models.NewTable(), nil)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestColumnSQLNamesFoldCase(t *testing.T) {
	table := models.NewTable(
		testutil.TextColumn("Name", "a"),
		testutil.TextColumn("name", "b"),
		testutil.TextColumn("name_1", "c"),
		testutil.TextColumn("NAME", "d"),
	)
	assert.Equal(t, []string{"Name", "name_1", "name_1_1", "NAME_2"}, ColumnSQLNames(table))
}

func TestSnapshotLoadsCaseOnlyDuplicateHeaders(t *testing.T) {
	table := models.NewTable(
		testutil.NumericColumn("id", 1, 2),
		testutil.TextColumn("Name", "a", "c"),
		testutil.TextColumn("name", "b", "d"),
	)
	snap, err := NewSnapshot(context.Background(), table, nil)
	require.NoError(t, err)
	defer snap.Close()

	res, err := snap.Query(context.Background(), `SELECT * FROM dataset ORDER BY id`, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "Name", "name_1"}, res.Columns)
	assert.Equal(t, []interface{}{1.0, "a", "b"}, res.Rows[0])
}
