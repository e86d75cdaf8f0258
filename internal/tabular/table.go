// Package tabular turns nested JSON documents into flat tables that can be
// bulk-loaded into a columnar warehouse.
package tabular

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Record is one row: column name to value. Values are scalars, nested maps
// (map[string]any) or sequences ([]any).
type Record map[string]any

// Table is an ordered set of records with a unified column list. Columns keep
// the order in which they were first seen (alphabetical within one record);
// records missing a column are null-filled on output.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Record
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Append adds a record, extending the column set with any new names.
func (t *Table) Append(r Record) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	for _, name := range sortedKeys(r) {
		t.addColumn(name)
	}
	t.rows = append(t.rows, r)
}

// AppendTable appends every row of other, preserving its row order.
func (t *Table) AppendTable(other *Table) {
	if other == nil {
		return
	}
	for _, name := range other.columns {
		t.addColumn(name)
	}
	for _, r := range other.rows {
		t.rows = append(t.rows, r)
	}
}

// SetColumn sets name to value on every row.
func (t *Table) SetColumn(name string, value any) {
	t.addColumn(name)
	for _, r := range t.rows {
		r[name] = value
	}
}

func (t *Table) addColumn(name string) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if _, ok := t.index[name]; ok {
		return
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
}

// Columns returns the column names in first-seen order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Rows returns the underlying records.
func (t *Table) Rows() []Record {
	return t.rows
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Values returns the value of column name for every row, nil where absent.
func (t *Table) Values(name string) []any {
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[name]
	}
	return out
}

// WriteNDJSON writes one JSON object per line. Every object carries every
// column of the table; missing values are written as null.
func (t *Table) WriteNDJSON(w io.Writer) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	for i, r := range t.rows {
		row := make(map[string]any, len(t.columns))
		for _, c := range t.columns {
			row[c] = r[c]
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("WriteNDJSON: row %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("WriteNDJSON: flush: %w", err)
	}
	return nil
}

func (t *Table) renameColumns(rename func(string) string) {
	columns := make([]string, 0, len(t.columns))
	index := make(map[string]int, len(t.columns))
	for _, c := range t.columns {
		n := rename(c)
		if _, ok := index[n]; ok {
			continue
		}
		index[n] = len(columns)
		columns = append(columns, n)
	}

	// Keys are renamed in column order, so when two names collide the value of
	// the later column wins.
	for i, r := range t.rows {
		renamed := make(Record, len(r))
		for _, c := range t.columns {
			if v, ok := r[c]; ok {
				renamed[rename(c)] = v
			}
		}
		for _, k := range sortedKeys(r) {
			if _, ok := t.index[k]; !ok {
				renamed[rename(k)] = r[k]
			}
		}
		t.rows[i] = renamed
	}

	t.columns = columns
	t.index = index
}
