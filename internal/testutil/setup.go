// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/autoeda/pkg/models"
)

// Logger returns a logger that discards output
func Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

// WriteCSV writes content to dir/name, creating parent directories, and
// returns the absolute path
func WriteCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	return abs
}

// Touch moves a file's modification time forward so its signature changes
func Touch(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	ts := time.Now().Add(offset)
	require.NoError(t, os.Chtimes(path, ts, ts))
}

// NumericColumn builds a numeric column; NaN entries become missing
func NumericColumn(name string, values ...float64) *models.Column {
	col := &models.Column{Name: name, Type: models.ColumnNumeric, Values: make([]models.Value, len(values))}
	for i, v := range values {
		col.Values[i] = models.Number(v)
	}
	return col
}

// TextColumn builds a text column; empty strings become missing
func TextColumn(name string, values ...string) *models.Column {
	col := &models.Column{Name: name, Type: models.ColumnText, Values: make([]models.Value, len(values))}
	for i, v := range values {
		if v == "" {
			continue
		}
		col.Values[i] = models.Text(v)
	}
	return col
}

// Float returns a pointer to f
func Float(f float64) *float64 { return &f }
