package tabular

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// PathSeparator joins nested keys while flattening.
	PathSeparator = "."
	// ColumnSeparator replaces PathSeparator in column names; the warehouse
	// rejects dots in column names.
	ColumnSeparator = "_"
)

// Flatten turns a nested record into a single-level one. Nested maps are
// expanded into "parent.child" keys; sequences and scalars are leaves. An
// empty nested map contributes no keys. Flattening a flat record returns an
// equal record.
func Flatten(r map[string]any) Record {
	out := make(Record, len(r))
	flattenInto(out, "", r)
	return out
}

func flattenInto(out Record, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + PathSeparator + k
		}
		switch val := v.(type) {
		case map[string]any:
			flattenInto(out, key, val)
		case Record:
			flattenInto(out, key, val)
		default:
			out[key] = val
		}
	}
}

// NormalizeColumnName rewrites path separators to the warehouse-safe separator.
func NormalizeColumnName(name string) string {
	return strings.ReplaceAll(name, PathSeparator, ColumnSeparator)
}

// NormalizeColumns rewrites every column name with NormalizeColumnName. An
// empty table is left as is.
func NormalizeColumns(t *Table) *Table {
	if t.Empty() {
		return t
	}
	t.renameColumns(NormalizeColumnName)
	return t
}

// FromRecords flattens each item of a JSON array into one row. Every item must
// be a JSON object.
func FromRecords(items []any) (*Table, error) {
	t := NewTable()
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("FromRecords: item %d is %T, want object", i, item)
		}
		t.Append(Flatten(m))
	}
	return NormalizeColumns(t), nil
}

// FromJSON converts decoded JSON into a normalized flat table. When key is
// non-empty, data must be an object and data[key] is converted instead. An
// array yields one row per element; an object yields a single row; null
// yields an empty table.
func FromJSON(data any, key string) (*Table, error) {
	if key != "" {
		m, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("FromJSON: want object to read key %q, got %T", key, data)
		}
		v, ok := m[key]
		if !ok {
			return nil, fmt.Errorf("FromJSON: key %q not found", key)
		}
		data = v
	}

	switch val := data.(type) {
	case nil:
		return NewTable(), nil
	case []any:
		return FromRecords(val)
	case []map[string]any:
		items := make([]any, len(val))
		for i, m := range val {
			items[i] = m
		}
		return FromRecords(items)
	case map[string]any:
		return FromRecords([]any{val})
	default:
		return nil, fmt.Errorf("FromJSON: unsupported document type %T", data)
	}
}

// Snapshot wraps a whole document as a single row. Top-level keys become
// columns and nested values are kept intact.
func Snapshot(doc map[string]any) *Table {
	t := NewTable()
	r := make(Record, len(doc))
	for k, v := range doc {
		r[k] = v
	}
	t.Append(r)
	return NormalizeColumns(t)
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
