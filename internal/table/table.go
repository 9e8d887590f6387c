// Package table implements the in-memory Record Table: an ordered set of named
// columns over an ordered slice of records, with a declared kind per column.
//
// A Table has a single owner at a time. Methods that change the table mutate
// it in place; callers that need an independent copy use Clone.
package table

import (
	"fmt"
	"strings"
	"time"

	"saftetl/pkg/records"
)

// Kind is the runtime type label of a column.
type Kind string

const (
	KindString Kind = "string"
	KindFloat  Kind = "float64"
	KindInt    Kind = "int64"
	KindTime   Kind = "datetime"
	// KindMixed marks a column holding values of more than one type.
	KindMixed Kind = "mixed"
	// KindNull marks a column with no non-null values and no declared kind.
	KindNull Kind = "null"
)

// ParseKind resolves a kind name as written in configuration. "float",
// "int", "date" and "text" are accepted as aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text":
		return KindString, nil
	case "float64", "float", "number":
		return KindFloat, nil
	case "int64", "int", "integer":
		return KindInt, nil
	case "datetime", "date", "timestamp":
		return KindTime, nil
	}
	return "", fmt.Errorf("unknown column kind %q", s)
}

// Table is an ordered sequence of rows with named columns.
type Table struct {
	columns []string
	kinds   map[string]Kind
	rows    []records.Record
}

// New builds a table over rows, inferring each column's kind from its values.
// Keys missing from a row read as nil. The table takes ownership of rows.
func New(columns []string, rows []records.Record) *Table {
	t := &Table{
		columns: append([]string(nil), columns...),
		kinds:   make(map[string]Kind, len(columns)),
		rows:    rows,
	}
	if t.rows == nil {
		t.rows = []records.Record{}
	}
	for _, c := range t.columns {
		t.kinds[c] = InferKind(t.Column(c))
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Has reports whether col is a column of t.
func (t *Table) Has(col string) bool {
	_, ok := t.kinds[col]
	return ok
}

// HasAll reports whether every name in cols is a column of t.
func (t *Table) HasAll(cols ...string) bool {
	for _, c := range cols {
		if !t.Has(c) {
			return false
		}
	}
	return true
}

// Kind returns the declared kind of col, or "" if the column does not exist.
func (t *Table) Kind(col string) Kind { return t.kinds[col] }

// SetKind declares the kind of an existing column.
func (t *Table) SetKind(col string, k Kind) {
	if t.Has(col) {
		t.kinds[col] = k
	}
}

// Rows exposes the underlying rows for read-only iteration.
func (t *Table) Rows() []records.Record { return t.rows }

// Value returns the value at row i, column col.
func (t *Table) Value(i int, col string) any { return t.rows[i][col] }

// Column returns a copy of the values of col in row order.
func (t *Table) Column(col string) []any {
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[col]
	}
	return out
}

// NullCount returns how many rows hold a null value in col.
func (t *Table) NullCount(col string) int {
	n := 0
	for _, r := range t.rows {
		if records.IsNull(r[col]) {
			n++
		}
	}
	return n
}

// Rename renames column from to to. It reports false, leaving the table
// unchanged, when from is missing or to already exists.
func (t *Table) Rename(from, to string) bool {
	if from == to || !t.Has(from) || t.Has(to) {
		return false
	}
	for i, c := range t.columns {
		if c == from {
			t.columns[i] = to
			break
		}
	}
	t.kinds[to] = t.kinds[from]
	delete(t.kinds, from)
	for _, r := range t.rows {
		if v, ok := r[from]; ok {
			r[to] = v
			delete(r, from)
		}
	}
	return true
}

// Drop removes the named columns. Unknown names are ignored. It returns the
// number of columns removed.
func (t *Table) Drop(cols ...string) int {
	drop := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if t.Has(c) {
			drop[c] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return 0
	}
	kept := t.columns[:0]
	for _, c := range t.columns {
		if _, ok := drop[c]; ok {
			delete(t.kinds, c)
			continue
		}
		kept = append(kept, c)
	}
	t.columns = kept
	for _, r := range t.rows {
		for c := range drop {
			delete(r, c)
		}
	}
	return len(drop)
}

// Filter keeps the rows for which keep returns true, preserving order, and
// returns the number of rows removed.
func (t *Table) Filter(keep func(records.Record) bool) int {
	before := len(t.rows)
	out := t.rows[:0]
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	// Release references held by the tail of the backing array.
	for i := len(out); i < before; i++ {
		t.rows[i] = nil
	}
	t.rows = out
	return before - len(out)
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	c := &Table{
		columns: append([]string(nil), t.columns...),
		kinds:   make(map[string]Kind, len(t.kinds)),
		rows:    make([]records.Record, len(t.rows)),
	}
	for k, v := range t.kinds {
		c.kinds[k] = v
	}
	for i, r := range t.rows {
		c.rows[i] = r.Clone()
	}
	return c
}

// InferKind derives a kind from a column's values. Integers mixed with floats
// widen to float64; any other mix is KindMixed.
func InferKind(values []any) Kind {
	var seen Kind
	for _, v := range values {
		if records.IsNull(v) {
			continue
		}
		var k Kind
		switch v.(type) {
		case string:
			k = KindString
		case float64, float32:
			k = KindFloat
		case int64, int, int32:
			k = KindInt
		case time.Time:
			k = KindTime
		default:
			return KindMixed
		}
		switch {
		case seen == "":
			seen = k
		case seen == k:
		case (seen == KindInt && k == KindFloat) || (seen == KindFloat && k == KindInt):
			seen = KindFloat
		default:
			return KindMixed
		}
	}
	if seen == "" {
		return KindNull
	}
	return seen
}
