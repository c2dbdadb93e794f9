package transform

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetbridge/internal/dataset"
	"github.com/JonMunkholm/sheetbridge/internal/layout"
)

// RowDecoder converts raw data rows into records keyed by column name.
//
// Rule membership (the layout's decode sets) is tested against the original
// cell position. Once the category cell has been seen in the current row,
// cells at or past the category block resolve at position+shift, where shift
// is the size of the block.
type RowDecoder struct {
	rules    layout.DecodeRules
	category layout.CategoryRule
	columns  []dataset.ColumnSchema
	blockAt  int // schema position of the category block, -1 without one
}

// NewRowDecoder returns a decoder for rows of a table with the given schema,
// as produced by SchemaInferencer for the same layout.
func NewRowDecoder(l layout.Layout, columns []dataset.ColumnSchema) *RowDecoder {
	return &RowDecoder{
		rules:    l.Decode,
		category: l.Category,
		columns:  columns,
		blockAt:  categoryBlock(columns, l.Category),
	}
}

// categoryBlock returns where the generated category columns start in
// columns: at InsertAt, or at the end of a header that stopped short of it.
func categoryBlock(columns []dataset.ColumnSchema, cat layout.CategoryRule) int {
	if !cat.Enabled() {
		return -1
	}
	at := min(cat.InsertAt, len(columns)-len(cat.Parts))
	if at < 0 {
		return -1
	}
	for i, part := range cat.Parts {
		if columns[at+i].Name != part {
			return -1
		}
	}
	return at
}

// rowState is the fold state carried from cell to cell within one row.
type rowState struct {
	shift int
}

// Decode converts one row. Cells that cannot be placed in the schema are
// stored under dataset.UndefinedKey and reported; decoding never stops early.
// The returned errors have Table and Row unset.
func (d *RowDecoder) Decode(cells []string) (dataset.Row, []*DecodeError) {
	row := dataset.NewRow()
	var faults []*DecodeError

	var st rowState
	for pos, raw := range cells {
		var fault *DecodeError
		st, fault = d.decodeCell(row, st, pos, raw)
		if fault != nil {
			faults = append(faults, fault)
		}
	}
	return row, faults
}

func (d *RowDecoder) decodeCell(row dataset.Row, st rowState, pos int, raw string) (rowState, *DecodeError) {
	value := raw
	if d.rules.Strip != "" {
		value = strings.ReplaceAll(value, d.rules.Strip, "")
	}

	idx := pos
	if st.shift > 0 && pos >= d.blockAt {
		idx += st.shift
	}
	if idx >= len(d.columns) {
		row.Set(dataset.UndefinedKey, value)
		return st, &DecodeError{
			Position: pos,
			Value:    raw,
			Reason:   fmt.Sprintf("no column at schema position %d (schema has %d)", idx, len(d.columns)),
		}
	}

	name := d.columns[idx].Name
	isCategory := d.category.Enabled() && name == d.category.Column

	if !isCategory || d.category.KeepCell {
		row.Set(name, d.coerce(pos, name, value))
	}

	if isCategory && d.blockAt >= 0 && st.shift == 0 {
		d.splitCategory(row, value)
		st.shift = len(d.category.Parts)
	}
	return st, nil
}

// coerce applies the blank-to-default rules. Membership uses the original
// position; the zero-default check uses the resolved column name.
func (d *RowDecoder) coerce(pos int, name, value string) any {
	switch {
	case d.rules.Int64.Has(pos):
		digits := strings.Join(strings.Fields(value), "")
		if digits == "" {
			return 0
		}
		return digits
	case d.rules.IsZeroColumn(name):
		if value == "" {
			return 0
		}
	case d.rules.Double.Has(pos):
		if value == "" {
			return 0.0
		}
	case d.rules.Boolean.Has(pos):
		if value == "" {
			return false
		}
	}
	return value
}

// splitCategory fills every generated category column. Empty parts are
// dropped and the rest kept as is, surrounding spaces included. Parts beyond
// the block size are dropped; missing parts stay empty.
func (d *RowDecoder) splitCategory(row dataset.Row, value string) {
	var parts []string
	for _, p := range strings.Split(value, d.category.Separator) {
		if p != "" {
			parts = append(parts, p)
		}
	}

	for i, key := range d.category.Parts {
		if i < len(parts) {
			row.Set(key, parts[i])
		} else {
			row.Set(key, "")
		}
	}
}
