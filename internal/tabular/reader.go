// Package tabular decodes CSV bytes into column-oriented tables.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	apperrors "github.com/inferloop/autoeda/pkg/errors"
	"github.com/inferloop/autoeda/pkg/models"
)

// missingTokens are the cell spellings read as missing
var missingTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsMissingToken reports whether a raw cell is read as missing
func IsMissingToken(s string) bool {
	_, ok := missingTokens[s]
	return ok
}

// ParseCSV decodes raw CSV bytes with a header row into a table. Columns are
// typed boolean when every present cell is a boolean literal, numeric when
// every present cell parses as a number, and text otherwise.
func ParseCSV(raw []byte) (*models.Table, error) {
	if len(raw) == 0 {
		return nil, apperrors.NewInvalidInputError(apperrors.CodeEmptyInput, "Uploaded CSV is empty.")
	}

	decoded := transform.NewReader(bytes.NewReader(raw), unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	r := csv.NewReader(decoded)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, parseFailed("no columns to parse from file")
	}
	if err != nil {
		return nil, parseFailed(err.Error())
	}
	names := headerNames(header)

	cells := make([][]string, len(names))
	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseFailed(err.Error())
		}
		line++
		if len(record) > len(names) {
			return nil, parseFailed(fmt.Sprintf("expected %d fields in line %d, saw %d", len(names), line, len(record)))
		}
		for j := range names {
			if j < len(record) {
				cells[j] = append(cells[j], record[j])
			} else {
				cells[j] = append(cells[j], "")
			}
		}
	}

	if len(cells) == 0 || len(cells[0]) == 0 {
		return nil, apperrors.NewInvalidInputError(apperrors.CodeNoRows, "CSV has no rows.")
	}

	cols := make([]*models.Column, len(names))
	for j, name := range names {
		cols[j] = buildColumn(name, cells[j])
	}
	return models.NewTable(cols...), nil
}

func parseFailed(msg string) error {
	return apperrors.NewInvalidInputError(apperrors.CodeParseFailed, "CSV parsing failed: "+msg)
}

// headerNames trims names, labels blank ones "Unnamed: <i>" and suffixes
// repeated ones ".1", ".2", ...
func headerNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			seen[base]++
			name = base + "." + strconv.Itoa(seen[base])
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}

func buildColumn(name string, raw []string) *models.Column {
	allBool, allNum := true, true
	for _, s := range raw {
		if IsMissingToken(s) {
			continue
		}
		if _, ok := ParseBool(s); !ok {
			allBool = false
		}
		if _, ok := ParseNumber(s); !ok {
			allNum = false
		}
		if !allBool && !allNum {
			break
		}
	}

	values := make([]models.Value, len(raw))
	colType := models.ColumnText
	switch {
	case allBool && !allMissing(raw):
		colType = models.ColumnBoolean
	case allNum:
		colType = models.ColumnNumeric
	}

	for i, s := range raw {
		if IsMissingToken(s) {
			values[i] = models.Missing()
			continue
		}
		switch colType {
		case models.ColumnBoolean:
			b, _ := ParseBool(s)
			values[i] = models.Boolean(b)
		case models.ColumnNumeric:
			f, _ := ParseNumber(s)
			values[i] = models.Number(f)
		default:
			values[i] = models.Text(s)
		}
	}
	return &models.Column{Name: name, Type: colType, Values: values}
}

func allMissing(raw []string) bool {
	for _, s := range raw {
		if !IsMissingToken(s) {
			return false
		}
	}
	return true
}
