package query

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/internal/utils/math"
	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/models"
)

// Benchmark computes the row count and the mean of the first numeric column
// in memory and through SQLite, timing each side
func Benchmark(ctx context.Context, table *models.Table, logger *logrus.Logger) (*models.BenchmarkResult, error) {
	numeric := table.ColumnsOfType(models.ColumnNumeric)

	statement := "SELECT COUNT(*) AS row_count FROM dataset"
	if len(numeric) > 0 {
		statement = fmt.Sprintf("SELECT COUNT(*) AS row_count, AVG(%s) AS mean_value FROM dataset", sqlIdent(sqlNames(table)[numeric[0]]))
	}

	start := time.Now()
	inMemory := map[string]interface{}{"row_count": table.RowCount()}
	if len(numeric) > 0 {
		if mean, ok := math.Mean(numeric[0].Floats()); ok {
			inMemory["mean_value"] = mean
		} else {
			inMemory["mean_value"] = nil
		}
	}
	inMemoryMS := elapsedMS(start)

	snap, err := NewSnapshot(ctx, table, logger)
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	start = time.Now()
	res, err := snap.Query(ctx, statement, 1)
	if err != nil {
		return nil, err
	}
	sqlMS := elapsedMS(start)

	sqlResult := map[string]interface{}{}
	if len(res.Rows) == 1 {
		row := res.Rows[0]
		sqlResult["row_count"] = toInt(row[0])
		if len(numeric) > 0 && len(row) > 1 {
			sqlResult["mean_value"] = row[1]
		}
	}

	return &models.BenchmarkResult{
		Query:      statement,
		InMemoryMS: math.Round(inMemoryMS, 3),
		SQLMS:      math.Round(sqlMS, 3),
		InMemory:   inMemory,
		SQL:        sqlResult,
		SQLEngine:  constants.SQLEngineName,
	}, nil
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / 1e6
}

func toInt(v interface{}) interface{} {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return v
	}
}
