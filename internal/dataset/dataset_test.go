package dataset

import (
	"encoding/json"
	"reflect"
	"testing"
)

// ---- Compact Tests ----

func TestCompact_DropsEmptyValues(t *testing.T) {
	nested := NewObject()
	nested.Set("blank", "")

	obj := NewObject()
	obj.Set("name", "sales")
	obj.Set("empty", "")
	obj.Set("missing", nil)
	obj.Set("list", []any{})
	obj.Set("object", NewObject())
	obj.Set("onlyEmpty", nested)
	obj.Set("hidden", false)
	obj.Set("count", 0)

	got := Keys(Compact(obj))
	want := []string{"name", "hidden", "count"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Compact keys = %v, want %v", got, want)
	}
}

func TestCompact_PreservesOrder(t *testing.T) {
	obj := NewObject()
	for _, k := range []string{"z", "a", "gap", "m", "b"} {
		if k == "gap" {
			obj.Set(k, "")
			continue
		}
		obj.Set(k, k)
	}

	got := Keys(Compact(obj))
	want := []string{"z", "a", "m", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Compact keys = %v, want %v", got, want)
	}
}

func TestCompact_Idempotent(t *testing.T) {
	ds := sampleDataset()

	once := Compact(ds.Serialize())
	twice := Compact(once)

	a, err := json.Marshal(once)
	if err != nil {
		t.Fatalf("marshal once: %v", err)
	}
	b, err := json.Marshal(twice)
	if err != nil {
		t.Fatalf("marshal twice: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("Compact not idempotent:\n once = %s\ntwice = %s", a, b)
	}
}

func TestCompact_ObjectsInsideArrays(t *testing.T) {
	inner := NewObject()
	inner.Set("name", "x")
	inner.Set("formatString", "")

	obj := NewObject()
	obj.Set("columns", []any{inner})

	out := Compact(obj)
	cols, _ := out.Get("columns")
	list, ok := cols.([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("columns = %#v, want one element", cols)
	}
	got := Keys(list[0].(*Object))
	if !reflect.DeepEqual(got, []string{"name"}) {
		t.Errorf("array element keys = %v, want [name]", got)
	}
}

func TestCompact_RowsAreLeaves(t *testing.T) {
	row := NewRow()
	row.Set("a", "")
	row.Set("b", 0)

	obj := NewObject()
	obj.Set("rows", []any{row})

	out := Compact(obj)
	rows, ok := out.Get("rows")
	if !ok {
		t.Fatal("rows dropped, want kept")
	}
	got := rows.([]any)[0].(Row)
	if got.Len() != 2 {
		t.Errorf("row len = %d, want 2", got.Len())
	}
}

func TestCompact_Nil(t *testing.T) {
	if got := Compact(nil); got.Len() != 0 {
		t.Errorf("Compact(nil).Len() = %d, want 0", got.Len())
	}
}

// ---- Serialization Tests ----

func TestDataset_MarshalJSON(t *testing.T) {
	ds := sampleDataset()

	got, err := json.Marshal(ds)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"name":"ds","tables":[{"name":"t","columns":[{"name":"id","dataType":"Int64","isHidden":false},` +
		`{"name":"price","dataType":"Double","formatString":"Currency","isHidden":false}],` +
		`"rows":[{"id":"1","price":""}]}],"defaultMode":"Push"}`
	if string(got) != want {
		t.Errorf("MarshalJSON =\n%s\nwant\n%s", got, want)
	}
}

func TestDataset_Schema(t *testing.T) {
	ds := sampleDataset()
	schema := ds.Schema()

	if len(schema.Tables[0].Rows) != 0 {
		t.Errorf("schema rows = %d, want 0", len(schema.Tables[0].Rows))
	}
	if len(ds.Tables[0].Rows) != 1 {
		t.Errorf("original rows = %d, want 1 (Schema must not mutate)", len(ds.Tables[0].Rows))
	}
	if _, ok := schema.Canonical().Get("tables"); !ok {
		t.Error("schema canonical form lost tables")
	}
}

func TestDataSource_Serialize(t *testing.T) {
	ds := DataSource{
		Type: SourceWeb,
		ConnectionDetails: map[string]string{
			"path": "https://docs.google.com/spreadsheets/d/abc",
			"kind": "GoogleSheets",
		},
	}

	obj := Canonical(ds)
	if got := Keys(obj); !reflect.DeepEqual(got, []string{"datasourceType", "connectionDetails"}) {
		t.Errorf("keys = %v, want [datasourceType connectionDetails]", got)
	}
	details, _ := obj.Get("connectionDetails")
	if got := Keys(details.(*Object)); !reflect.DeepEqual(got, []string{"kind", "path"}) {
		t.Errorf("connection detail keys = %v, want [kind path]", got)
	}
}

func TestColumnSchema_Serialize(t *testing.T) {
	c := NewColumn("amount", Double,
		WithFormat(CurrencyFormat),
		SortBy("id"),
		Summarize(SummarizeSum),
		Hidden(),
	)

	obj := c.Serialize()
	want := []string{"name", "dataType", "dataCategory", "formatString", "isHidden", "sortByColumn", "summarizeBy"}
	if got := Keys(obj); !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if v, _ := obj.Get("summarizeBy"); v != "sum" {
		t.Errorf("summarizeBy = %v, want sum", v)
	}
	if v, _ := obj.Get("isHidden"); v != true {
		t.Errorf("isHidden = %v, want true", v)
	}
}

// ---- Builder Tests ----

func TestTableBuilder_DuplicateColumn(t *testing.T) {
	b := NewTableBuilder("t")
	if err := b.AddColumn(NewColumn("a", String)); err != nil {
		t.Fatalf("first AddColumn: %v", err)
	}
	if err := b.AddColumn(NewColumn("a", Int64)); err == nil {
		t.Error("expected error for duplicate column")
	}
}

func TestTableBuilder_BuildIsolated(t *testing.T) {
	b := NewTableBuilder("t")
	_ = b.AddColumn(NewColumn("a", String))
	first := b.Build()

	_ = b.AddColumn(NewColumn("b", String))
	b.AppendRow(NewRow())

	if len(first.Columns) != 1 || len(first.Rows) != 0 {
		t.Errorf("built table changed: columns=%d rows=%d", len(first.Columns), len(first.Rows))
	}
}

func TestBuilder_DefaultMode(t *testing.T) {
	ds := NewBuilder("x").Build()
	if ds.DefaultMode != ModePush {
		t.Errorf("DefaultMode = %q, want %q", ds.DefaultMode, ModePush)
	}
}

// ---- Row Tests ----

func TestRow_Order(t *testing.T) {
	r := NewRow()
	r.Set("b", 1)
	r.Set("a", 2)
	r.Set("b", 3)

	if got := r.Columns(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("Columns = %v, want [b a]", got)
	}
	if v, _ := r.Get("b"); v != 3 {
		t.Errorf("b = %v, want 3", v)
	}
}

func TestRow_ZeroValue(t *testing.T) {
	var r Row
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
	b, err := r.MarshalJSON()
	if err != nil || string(b) != "{}" {
		t.Errorf("MarshalJSON = %s, %v, want {}", b, err)
	}
}

func TestRow_ZeroValueSet(t *testing.T) {
	var r Row
	r.Set("a", 1)
	r.Set("b", "")

	if got := r.Columns(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Columns = %v, want [a b]", got)
	}
	if v, ok := r.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v, want 1, true", v, ok)
	}
}

func TestDataType_Valid(t *testing.T) {
	for _, dt := range []DataType{Int64, Double, Boolean, DateTime, String, Decimal, Variant} {
		if !dt.Valid() {
			t.Errorf("%q should be valid", dt)
		}
	}
	if DataType("Money").Valid() {
		t.Error("Money should not be valid")
	}
	if !SummarizeBy("").Valid() || SummarizeBy("median").Valid() {
		t.Error("SummarizeBy.Valid: zero value is valid, median is not")
	}
}

func TestInferDataType(t *testing.T) {
	tests := []struct {
		in   string
		want DataType
	}{
		{"", String},
		{"12", Decimal},
		{"3.5", Decimal},
		{"-7", Decimal},
		{"Москва", String},
		{"12 000", String},
	}
	for _, tt := range tests {
		if got := InferDataType(tt.in); got != tt.want {
			t.Errorf("InferDataType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func sampleDataset() Dataset {
	tb := NewTableBuilder("t")
	_ = tb.AddColumn(NewColumn("id", Int64))
	_ = tb.AddColumn(NewColumn("price", Double, WithFormat(CurrencyFormat)))
	row := NewRow()
	row.Set("id", "1")
	row.Set("price", "")
	tb.AppendRow(row)
	return NewBuilder("ds").AddTable(tb.Build()).Build()
}
