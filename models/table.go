package models

import (
	"strconv"
)

// Value is one typed cell of a normalized table. String renders it for
// export; nulls render as "".
type Value interface {
	String() string
	IsNull() bool
}

// Text is a cell carried verbatim.
type Text string

func (t Text) String() string { return string(t) }
func (t Text) IsNull() bool   { return false }

// Int is a non-nullable integer cell.
type Int int64

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) IsNull() bool   { return false }

// NullInt is an integer cell that may be missing.
type NullInt struct {
	Int64 int64
	Valid bool
}

func (n NullInt) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatInt(n.Int64, 10)
}

func (n NullInt) IsNull() bool { return !n.Valid }

// NullFloat is a one-decimal rate cell that may be missing.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float64, 'f', 1, 64)
}

func (n NullFloat) IsNull() bool { return !n.Valid }

// Row is one finalized record in schema order.
type Row [FieldCount]Value

// Strings renders the row for serialization.
func (r Row) Strings() []string {
	out := make([]string, FieldCount)
	for i, v := range r {
		if v == nil {
			continue
		}
		out[i] = v.String()
	}
	return out
}

// Table is the export-ready result for one month.
type Table struct {
	Month Month
	Mode  Mode
	Rows  []Row
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// Records converts the table back into raw records, so that a table can
// be fed through the normalizer again.
func (t *Table) Records() []RawRecord {
	if t == nil {
		return nil
	}
	out := make([]RawRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		var vals [FieldCount]string
		copy(vals[:], row.Strings())
		out = append(out, RecordFromValues(vals))
	}
	return out
}
