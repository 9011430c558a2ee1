// Package query runs read-only SQL over a table loaded into in-memory SQLite.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/errors"
	"github.com/inferloop/autoeda/pkg/models"
)

// Snapshot is a private in-memory SQLite database holding one table named dataset
type Snapshot struct {
	db     *sql.DB
	logger *logrus.Logger
}

// sqlIdent quotes an identifier for SQLite
func sqlIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ColumnSQLNames returns the SQL column name of each table column, in order.
// SQLite compares identifiers case-insensitively, so a name that folds onto an
// earlier one is suffixed _1, _2, ... until it is unique.
func ColumnSQLNames(table *models.Table) []string {
	names := make([]string, table.ColumnCount())
	taken := make(map[string]struct{}, len(names))
	for i, col := range table.Columns {
		name := col.Name
		for n := 1; ; n++ {
			if _, dup := taken[strings.ToLower(name)]; !dup {
				break
			}
			name = fmt.Sprintf("%s_%d", col.Name, n)
		}
		taken[strings.ToLower(name)] = struct{}{}
		names[i] = name
	}
	return names
}

// sqlNames maps each column of table to its SQL name
func sqlNames(table *models.Table) map[*models.Column]string {
	names := ColumnSQLNames(table)
	out := make(map[*models.Column]string, len(names))
	for i, col := range table.Columns {
		out[col] = names[i]
	}
	return out
}

func sqlType(t models.ColumnType) string {
	switch t {
	case models.ColumnNumeric:
		return "REAL"
	case models.ColumnBoolean:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// sqlValue converts a cell to a driver value
func sqlValue(v models.Value) interface{} {
	switch v.Kind {
	case models.KindNumber:
		return v.Num
	case models.KindText:
		return v.Str
	case models.KindBool:
		if v.Bool {
			return int64(1)
		}
		return int64(0)
	case models.KindTime:
		return v.Interface()
	default:
		return nil
	}
}

// NewSnapshot loads table into a fresh in-memory database
func NewSnapshot(ctx context.Context, table *models.Table, logger *logrus.Logger) (*Snapshot, error) {
	if table == nil || table.ColumnCount() == 0 {
		return nil, errors.NewInvalidInputError(errors.CodeInvalidTable, "Table has no columns.")
	}
	if logger == nil {
		logger = logrus.New()
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternal, "failed to open sqlite")
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	s := &Snapshot{db: db, logger: logger}
	if err := s.load(ctx, table); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Snapshot) load(ctx context.Context, table *models.Table) error {
	defs := make([]string, table.ColumnCount())
	placeholders := make([]string, table.ColumnCount())
	names := ColumnSQLNames(table)
	for i, col := range table.Columns {
		defs[i] = sqlIdent(names[i]) + " " + sqlType(col.Type)
		placeholders[i] = "?"
	}
	name := sqlIdent(constants.DatasetTableName)

	create := fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternal, "failed to create dataset table")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternal, "failed to begin load")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", name, strings.Join(placeholders, ", ")))
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternal, "failed to prepare load")
	}
	defer stmt.Close()

	args := make([]interface{}, table.ColumnCount())
	for i := 0; i < table.RowCount(); i++ {
		for j, col := range table.Columns {
			args[j] = sqlValue(col.Values[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternal, "failed to load row")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternal, "failed to commit load")
	}

	s.logger.WithFields(logrus.Fields{
		"rows":    table.RowCount(),
		"columns": table.ColumnCount(),
	}).Debug("Dataset snapshot loaded")
	return nil
}

// ValidateReadOnly accepts statements that start with SELECT or WITH
func ValidateReadOnly(statement string) error {
	normalized := strings.ToLower(strings.TrimSpace(statement))
	if !strings.HasPrefix(normalized, "select") && !strings.HasPrefix(normalized, "with") {
		return errors.NewValidationError(errors.CodeInvalidQuery, "Only SELECT/WITH queries are allowed.")
	}
	return nil
}

// Query runs a read-only statement and returns at most maxRows rows.
// RowCount reports the full result size.
func (s *Snapshot) Query(ctx context.Context, statement string, maxRows int) (*models.QueryResult, error) {
	if err := ValidateReadOnly(statement); err != nil {
		return nil, err
	}
	if maxRows <= 0 {
		maxRows = constants.MaxQueryRows
	}

	rows, err := s.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, queryFailed(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, queryFailed(err)
	}

	result := &models.QueryResult{
		Columns: columns,
		Rows:    make([][]interface{}, 0),
		Engine:  constants.SQLEngineName,
	}
	for rows.Next() {
		result.RowCount++
		if len(result.Rows) >= maxRows {
			continue
		}
		cells := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, queryFailed(err)
		}
		for i, c := range cells {
			if b, ok := c.([]byte); ok {
				cells[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed(err)
	}
	return result, nil
}

func queryFailed(err error) error {
	return errors.WrapError(err, errors.ErrorTypeInvalidInput, errors.CodeQueryFailed, "Query failed").
		WithDetails(err.Error())
}

// Close releases the database
func (s *Snapshot) Close() error {
	return s.db.Close()
}
