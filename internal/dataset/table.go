package dataset

import "fmt"

// Table is a finished table: schema, measures and decoded rows.
// Values returned by TableBuilder.Build own their slices.
type Table struct {
	Name     string
	Columns  []ColumnSchema
	Measures []Measure
	Rows     []Row
}

// Column returns the column called name.
func (t Table) Column(name string) (ColumnSchema, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

// ColumnNames returns the column names in schema order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Serialize implements Serializer.
func (t Table) Serialize() *Object {
	columns := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		columns[i] = c.Serialize()
	}
	measures := make([]any, len(t.Measures))
	for i, m := range t.Measures {
		measures[i] = m.Serialize()
	}
	rows := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r
	}

	obj := NewObject()
	obj.Set("name", t.Name)
	obj.Set("columns", columns)
	obj.Set("measures", measures)
	obj.Set("rows", rows)
	return obj
}

// TableBuilder accumulates columns, measures and rows for one table.
type TableBuilder struct {
	name     string
	columns  []ColumnSchema
	index    map[string]int
	measures []Measure
	rows     []Row
}

// NewTableBuilder starts a table called name.
func NewTableBuilder(name string) *TableBuilder {
	return &TableBuilder{
		name:  name,
		index: make(map[string]int),
	}
}

// AddColumn appends a column. Column names are unique within a table.
func (b *TableBuilder) AddColumn(c ColumnSchema) error {
	if _, exists := b.index[c.Name]; exists {
		return fmt.Errorf("table %q: duplicate column %q", b.name, c.Name)
	}
	b.index[c.Name] = len(b.columns)
	b.columns = append(b.columns, c)
	return nil
}

// AddColumns appends columns in order, stopping at the first duplicate.
func (b *TableBuilder) AddColumns(cols ...ColumnSchema) error {
	for _, c := range cols {
		if err := b.AddColumn(c); err != nil {
			return err
		}
	}
	return nil
}

// AddMeasure appends a measure.
func (b *TableBuilder) AddMeasure(m Measure) {
	b.measures = append(b.measures, m)
}

// AppendRow appends a decoded row.
func (b *TableBuilder) AppendRow(r Row) {
	b.rows = append(b.rows, r)
}

// Build returns the table. The builder can keep being used afterwards
// without affecting the returned value.
func (b *TableBuilder) Build() Table {
	return Table{
		Name:     b.name,
		Columns:  append([]ColumnSchema(nil), b.columns...),
		Measures: append([]Measure(nil), b.measures...),
		Rows:     append([]Row(nil), b.rows...),
	}
}
