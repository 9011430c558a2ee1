package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ValueKind identifies the concrete type held by a Value
type ValueKind int

const (
	KindMissing ValueKind = iota
	KindNumber
	KindText
	KindBool
	KindTime
)

// ColumnType is the homogeneous type of a column
type ColumnType string

const (
	ColumnNumeric  ColumnType = "numeric"
	ColumnText     ColumnType = "text"
	ColumnBoolean  ColumnType = "boolean"
	ColumnDatetime ColumnType = "datetime"
)

// MissingLabel is the bucket missing values are counted under in value frequencies
const MissingLabel = "<missing>"

// Value is a single table cell. The zero Value is missing.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Bool bool
	Time time.Time
}

// Missing returns the missing marker
func Missing() Value { return Value{} }

// Number returns a numeric value; NaN is treated as missing
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{Kind: KindNumber, Num: f}
}

// Text returns a text value
func Text(s string) Value { return Value{Kind: KindText, Str: s} }

// Boolean returns a boolean value
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Timestamp returns a timestamp value normalised to UTC
func Timestamp(t time.Time) Value { return Value{Kind: KindTime, Time: t.UTC()} }

// IsMissing reports whether v is the missing marker
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// String renders the value in its canonical text form. Missing renders as "".
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Str
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case KindTime:
		return v.Time.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Interface returns the value as a plain Go value for JSON and SQL drivers
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindText:
		return v.Str
	case KindBool:
		return v.Bool
	case KindTime:
		return v.Time.Format(time.RFC3339Nano)
	default:
		return nil
	}
}

// Equal reports exact equality; two missing values are equal
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindText:
		return v.Str == o.Str
	case KindBool:
		return v.Bool == o.Bool
	case KindTime:
		return v.Time.Equal(o.Time)
	default:
		return true
	}
}

// Compare orders values of the same kind. Values of different kinds are
// ordered by kind.
func (v Value) Compare(o Value) int {
	if v.Kind != o.Kind {
		if v.Kind < o.Kind {
			return -1
		}
		return 1
	}
	switch v.Kind {
	case KindNumber:
		switch {
		case v.Num < o.Num:
			return -1
		case v.Num > o.Num:
			return 1
		}
	case KindText:
		return strings.Compare(v.Str, o.Str)
	case KindBool:
		if v.Bool != o.Bool {
			if !v.Bool {
				return -1
			}
			return 1
		}
	case KindTime:
		return v.Time.Compare(o.Time)
	}
	return 0
}

func (v Value) key() string {
	switch v.Kind {
	case KindMissing:
		return "m:"
	case KindNumber:
		return "n:" + strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		return "b:" + v.String()
	case KindTime:
		return "t:" + strconv.FormatInt(v.Time.UnixNano(), 10)
	default:
		return "s:" + strconv.Itoa(len(v.Str)) + ":" + v.Str
	}
}

// Column is a named, homogeneous sequence of values
type Column struct {
	Name   string
	Type   ColumnType
	Values []Value
}

// Clone returns a deep copy of the column
func (c *Column) Clone() *Column {
	values := make([]Value, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Type: c.Type, Values: values}
}

// MissingCount returns the number of missing cells in the column
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// Floats returns the non-missing numeric values in row order
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if v.Kind == KindNumber {
			out = append(out, v.Num)
		}
	}
	return out
}

// Table is an ordered set of equally long columns. Pipeline stages treat a
// Table as immutable and return new tables.
type Table struct {
	Columns []*Column
}

// NewTable builds a table from columns
func NewTable(columns ...*Column) *Table {
	return &Table{Columns: columns}
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// ColumnCount returns the number of columns
func (t *Table) ColumnCount() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Column returns the named column or nil
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnNames returns column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnsOfType returns the columns of the given types in table order
func (t *Table) ColumnsOfType(types ...ColumnType) []*Column {
	var out []*Column
	for _, c := range t.Columns {
		for _, ct := range types {
			if c.Type == ct {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Clone()
	}
	return &Table{Columns: cols}
}

// Row returns the values of row i across all columns
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = c.Values[i]
	}
	return row
}

// RowKey returns a key that is equal for two rows exactly when every column
// value is equal
func (t *Table) RowKey(i int) string {
	var b strings.Builder
	for _, c := range t.Columns {
		b.WriteString(c.Values[i].key())
		b.WriteByte(0x1f)
	}
	return b.String()
}

// SelectRows returns a new table containing the given rows in the given order
func (t *Table) SelectRows(rows []int) *Table {
	cols := make([]*Column, len(t.Columns))
	for j, c := range t.Columns {
		values := make([]Value, len(rows))
		for k, i := range rows {
			values[k] = c.Values[i]
		}
		cols[j] = &Column{Name: c.Name, Type: c.Type, Values: values}
	}
	return &Table{Columns: cols}
}

// WithColumn returns a new table sharing all columns except index i, which is
// replaced by col
func (t *Table) WithColumn(i int, col *Column) *Table {
	cols := make([]*Column, len(t.Columns))
	copy(cols, t.Columns)
	cols[i] = col
	return &Table{Columns: cols}
}

// MissingCells returns the total number of missing cells
func (t *Table) MissingCells() int {
	n := 0
	for _, c := range t.Columns {
		n += c.MissingCount()
	}
	return n
}
