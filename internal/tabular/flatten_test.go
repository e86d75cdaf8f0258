package tabular

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleTransaction(id string) map[string]any {
	return map[string]any{
		"id":     id,
		"amount": json.Number("-12.50"),
		"date":   "2024-01-02",
		"category": map[string]any{
			"id":   "c1",
			"name": "Groceries",
			"group": map[string]any{
				"id":   "g1",
				"type": "expense",
			},
		},
		"tags":  []any{map[string]any{"id": "t1"}},
		"notes": nil,
	}
}

func TestFlatten(t *testing.T) {
	got := Flatten(sampleTransaction("tx1"))
	want := Record{
		"id":                  "tx1",
		"amount":              json.Number("-12.50"),
		"date":                "2024-01-02",
		"category.id":         "c1",
		"category.name":       "Groceries",
		"category.group.id":   "g1",
		"category.group.type": "expense",
		"tags":                []any{map[string]any{"id": "t1"}},
		"notes":               nil,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Flatten() mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_Idempotent(t *testing.T) {
	records := []map[string]any{
		sampleTransaction("tx1"),
		{"a": map[string]any{"b": map[string]any{"c": 1}}, "d": []any{1, 2}},
		{"flat": "value", "other_name": true},
		{"empty": map[string]any{}},
		{},
	}

	for i, r := range records {
		once := Flatten(r)
		twice := Flatten(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("record %d: flatten not idempotent (-once +twice):\n%s", i, diff)
		}
	}
}

func TestFlatten_EmptyNestedMapDropped(t *testing.T) {
	got := Flatten(map[string]any{"id": "x", "merchant": map[string]any{}})
	if _, ok := got["merchant"]; ok {
		t.Errorf("Expected empty nested map to contribute no column, got %v", got)
	}
	if len(got) != 1 {
		t.Errorf("Expected 1 column, got %d", len(got))
	}
}

func TestFlatten_IdenticalStructureSameColumns(t *testing.T) {
	a, err := FromRecords([]any{sampleTransaction("tx1")})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	b, err := FromRecords([]any{sampleTransaction("tx2")})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}

	if diff := cmp.Diff(a.Columns(), b.Columns()); diff != "" {
		t.Errorf("column sets differ (-a +b):\n%s", diff)
	}
}

func TestNormalizeColumnName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"category.group.id", "category_group_id"},
		{"amount", "amount"},
		{"already_flat", "already_flat"},
		{"a..b", "a__b"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeColumnName(tt.input); got != tt.want {
				t.Errorf("NormalizeColumnName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeColumns_NoSeparatorLeft(t *testing.T) {
	tbl, err := FromRecords([]any{sampleTransaction("tx1"), sampleTransaction("tx2")})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}

	for _, c := range tbl.Columns() {
		if strings.Contains(c, PathSeparator) {
			t.Errorf("column %q still contains %q", c, PathSeparator)
		}
	}
	for i, r := range tbl.Rows() {
		for k := range r {
			if strings.Contains(k, PathSeparator) {
				t.Errorf("row %d key %q still contains %q", i, k, PathSeparator)
			}
		}
	}

	if !tbl.HasColumn("category_group_type") {
		t.Errorf("Expected category_group_type column, got %v", tbl.Columns())
	}
	if !tbl.HasColumn("amount") {
		t.Errorf("Expected untouched amount column, got %v", tbl.Columns())
	}
}

func TestNormalizeColumns_CollisionIsDeterministic(t *testing.T) {
	// "a.b" sorts before "a_b", so the flat key is the later column and wins.
	for i := 0; i < 200; i++ {
		tbl, err := FromRecords([]any{
			map[string]any{"a": map[string]any{"b": "nested"}, "a_b": "flat"},
		})
		if err != nil {
			t.Fatalf("FromRecords: %v", err)
		}
		if diff := cmp.Diff([]string{"a_b"}, tbl.Columns()); diff != "" {
			t.Fatalf("columns mismatch (-want +got):\n%s", diff)
		}
		if got := tbl.Rows()[0]["a_b"]; got != "flat" {
			t.Fatalf("run %d: a_b = %v, want flat", i, got)
		}
	}
}

func TestNormalizeColumns_EmptyTable(t *testing.T) {
	tbl := NewTable()
	if got := NormalizeColumns(tbl); got.Len() != 0 || len(got.Columns()) != 0 {
		t.Errorf("Expected empty table to stay empty, got %d rows %v", got.Len(), got.Columns())
	}
}

func TestFromJSON(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		key      string
		wantRows int
		wantErr  bool
	}{
		{
			name:     "list of records",
			data:     []any{map[string]any{"id": "1"}, map[string]any{"id": "2"}},
			wantRows: 2,
		},
		{
			name:     "records under key",
			data:     map[string]any{"categories": []any{map[string]any{"id": "1"}}},
			key:      "categories",
			wantRows: 1,
		},
		{
			name:     "single object",
			data:     map[string]any{"id": "1", "nested": map[string]any{"x": 1}},
			wantRows: 1,
		},
		{
			name:     "null under key",
			data:     map[string]any{"householdTransactionTags": nil},
			key:      "householdTransactionTags",
			wantRows: 0,
		},
		{
			name:    "missing key",
			data:    map[string]any{"other": []any{}},
			key:     "accounts",
			wantErr: true,
		},
		{
			name:    "key on non-object",
			data:    []any{},
			key:     "accounts",
			wantErr: true,
		},
		{
			name:    "non-object item",
			data:    []any{"scalar"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := FromJSON(tt.data, tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tbl.Len() != tt.wantRows {
				t.Errorf("FromJSON() rows = %d, want %d", tbl.Len(), tt.wantRows)
			}
		})
	}
}

func TestSnapshot_PreservesNesting(t *testing.T) {
	doc := map[string]any{
		"budgetData":     map[string]any{"monthlyAmountsByCategory": []any{}},
		"categoryGroups": []any{map[string]any{"id": "g1"}},
	}

	tbl := Snapshot(doc)

	if tbl.Len() != 1 {
		t.Fatalf("Expected 1 row, got %d", tbl.Len())
	}
	if diff := cmp.Diff([]string{"budgetData", "categoryGroups"}, tbl.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if _, ok := tbl.Rows()[0]["budgetData"].(map[string]any); !ok {
		t.Errorf("Expected budgetData to remain nested, got %T", tbl.Rows()[0]["budgetData"])
	}
}

func TestTable_AppendTableUnionsColumns(t *testing.T) {
	first := NewTable()
	first.Append(Record{"id": "1", "a": 1})
	second := NewTable()
	second.Append(Record{"id": "2", "b": 2})

	first.AppendTable(second)

	if diff := cmp.Diff([]string{"a", "id", "b"}, first.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"1", "2"}, first.Values("id")); diff != "" {
		t.Errorf("row order mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_WriteNDJSONNullFills(t *testing.T) {
	tbl := NewTable()
	tbl.Append(Record{"id": "1", "a": json.Number("1")})
	tbl.Append(Record{"id": "2"})

	var buf bytes.Buffer
	if err := tbl.WriteNDJSON(&buf); err != nil {
		t.Fatalf("WriteNDJSON: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{`{"a":1,"id":"1"}`, `{"a":null,"id":"2"}`}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("NDJSON mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_SetColumn(t *testing.T) {
	tbl := NewTable()
	tbl.Append(Record{"id": "1"})
	tbl.SetColumn("synced_at", "2024-01-01T00:00:00Z")

	if got := tbl.Rows()[0]["synced_at"]; got != "2024-01-01T00:00:00Z" {
		t.Errorf("Expected synced_at to be set, got %v", got)
	}
	if !tbl.HasColumn("synced_at") {
		t.Error("Expected synced_at column")
	}
}
