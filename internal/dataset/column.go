package dataset

// CurrencyFormat is the format string attached to currency columns.
const CurrencyFormat = "Currency"

// ColumnSchema describes one column of a table.
type ColumnSchema struct {
	Name         string
	DataType     DataType
	DataCategory string
	FormatString string
	IsHidden     bool
	SortByColumn string
	SummarizeBy  SummarizeBy
}

// ColumnOption customizes a column created by NewColumn.
type ColumnOption func(*ColumnSchema)

// WithFormat sets the display format string.
func WithFormat(format string) ColumnOption {
	return func(c *ColumnSchema) { c.FormatString = format }
}

// WithCategory sets the data category.
func WithCategory(category string) ColumnOption {
	return func(c *ColumnSchema) { c.DataCategory = category }
}

// Hidden marks the column hidden.
func Hidden() ColumnOption {
	return func(c *ColumnSchema) { c.IsHidden = true }
}

// SortBy makes the column sort by another column of the same table.
func SortBy(column string) ColumnOption {
	return func(c *ColumnSchema) { c.SortByColumn = column }
}

// Summarize sets the default aggregation.
func Summarize(by SummarizeBy) ColumnOption {
	return func(c *ColumnSchema) { c.SummarizeBy = by }
}

// NewColumn builds a column schema.
func NewColumn(name string, dataType DataType, opts ...ColumnOption) ColumnSchema {
	c := ColumnSchema{Name: name, DataType: dataType}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Serialize implements Serializer.
func (c ColumnSchema) Serialize() *Object {
	obj := NewObject()
	obj.Set("name", c.Name)
	obj.Set("dataType", string(c.DataType))
	obj.Set("dataCategory", c.DataCategory)
	obj.Set("formatString", c.FormatString)
	obj.Set("isHidden", c.IsHidden)
	obj.Set("sortByColumn", optional(c.SortByColumn))
	obj.Set("summarizeBy", optional(string(c.SummarizeBy)))
	return obj
}

// Measure is a named DAX expression passed through to the store unchanged.
type Measure struct {
	Name         string
	Expression   string
	FormatString string
	IsHidden     bool
}

// Serialize implements Serializer.
func (m Measure) Serialize() *Object {
	obj := NewObject()
	obj.Set("name", m.Name)
	obj.Set("expression", m.Expression)
	obj.Set("formatString", m.FormatString)
	obj.Set("isHidden", m.IsHidden)
	return obj
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
