package dataset

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// UndefinedKey collects cell values whose position has no column.
const UndefinedKey = "Undefined"

// Row is one decoded record: column name to scalar value (string, int,
// float64 or bool), kept in the order the columns were set.
//
// Rows are leaves for Compact: empty strings inside a row are data and are
// never dropped.
type Row struct {
	values *orderedmap.OrderedMap[string, any]
}

// NewRow returns an empty Row.
func NewRow() Row {
	return Row{values: orderedmap.New[string, any]()}
}

// Set assigns value to column. Setting an existing column keeps its position.
// A zero Row allocates its storage on the first Set; copies taken before that
// do not see the value.
func (r *Row) Set(column string, value any) {
	if r.values == nil {
		r.values = orderedmap.New[string, any]()
	}
	r.values.Set(column, value)
}

// Get returns the value stored for column.
func (r Row) Get(column string) (any, bool) {
	if r.values == nil {
		return nil, false
	}
	return r.values.Get(column)
}

// Len returns the number of columns set.
func (r Row) Len() int {
	if r.values == nil {
		return 0
	}
	return r.values.Len()
}

// Columns returns the column names in insertion order.
func (r Row) Columns() []string {
	return Keys(r.values)
}

// MarshalJSON encodes the row as a JSON object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	if r.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.values)
}
