package transform

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/sheetbridge/internal/dataset"
	"github.com/JonMunkholm/sheetbridge/internal/layout"
)

// SchemaInferencer turns a header row into the column schema of a table.
type SchemaInferencer struct {
	layout layout.Layout
}

// NewSchemaInferencer returns an inferencer for l.
func NewSchemaInferencer(l layout.Layout) *SchemaInferencer {
	return &SchemaInferencer{layout: l}
}

// Infer builds one column per header cell, plus the category block at the
// layout's insertion point (or after the last cell of a shorter header). Types come from the layout's
// positional type table; with InferTypes set, unmapped positions are typed
// from sample, the first data row (may be nil).
//
// Problems are returned as SchemaErrors next to a usable schema.
func (si *SchemaInferencer) Infer(header, sample []string) ([]dataset.ColumnSchema, []*SchemaError) {
	names, faults := si.headerNames(header)

	columns := make([]dataset.ColumnSchema, 0, len(names)+len(si.layout.Category.Parts))
	for pos, name := range names {
		columns = append(columns, si.column(pos, name, sample))
	}

	cat := si.layout.Category
	blockAt := -1
	if cat.Enabled() {
		// A header that stops short of InsertAt gets the block at its end.
		blockAt = min(cat.InsertAt, len(columns))
		block := make([]dataset.ColumnSchema, len(cat.Parts))
		for i, part := range cat.Parts {
			block[i] = dataset.NewColumn(part, dataset.String)
		}
		columns = slices.Insert(columns, blockAt, block...)
	}

	faults = append(faults, uniquify(columns, blockAt, cat)...)

	for i, c := range columns {
		if rule, ok := si.layout.Columns[c.Name]; ok {
			columns[i] = rule.Apply(c)
		}
	}
	return columns, faults
}

func (si *SchemaInferencer) headerNames(header []string) ([]string, []*SchemaError) {
	var faults []*SchemaError
	names := make([]string, len(header))
	blanks := 0

	for pos, cell := range header {
		name := norm.NFC.String(strings.TrimSpace(cell))
		if pos == 0 && si.layout.FirstColumn != "" {
			name = si.layout.FirstColumn
		}
		if name == "" {
			blanks++
			name = fmt.Sprintf("%s %d", dataset.UndefinedKey, blanks)
			faults = append(faults, &SchemaError{Position: pos, Name: name, Reason: "blank header cell"})
		}
		names[pos] = name
	}
	return names, faults
}

func (si *SchemaInferencer) column(pos int, name string, sample []string) dataset.ColumnSchema {
	dt, format, ok := si.layout.Types.Lookup(pos)
	if !ok && si.layout.InferTypes && pos < len(sample) {
		value := sample[pos]
		if si.layout.Decode.Strip != "" {
			value = strings.ReplaceAll(value, si.layout.Decode.Strip, "")
		}
		dt = dataset.InferDataType(strings.TrimSpace(value))
	}
	if format != "" {
		return dataset.NewColumn(name, dt, dataset.WithFormat(format))
	}
	return dataset.NewColumn(name, dt)
}

// uniquify renames repeated column names in place with a " (N)" suffix.
// Generated category columns keep their names; header cells yield.
func uniquify(columns []dataset.ColumnSchema, blockAt int, cat layout.CategoryRule) []*SchemaError {
	taken := make(map[string]bool, len(columns))
	generated := make(map[int]bool)
	if blockAt >= 0 {
		for i, part := range cat.Parts {
			taken[part] = true
			generated[blockAt+i] = true
		}
	}

	var faults []*SchemaError
	for i := range columns {
		if generated[i] {
			continue
		}
		name := columns[i].Name
		if !taken[name] {
			taken[name] = true
			continue
		}
		n := 2
		for taken[fmt.Sprintf("%s (%d)", name, n)] {
			n++
		}
		renamed := fmt.Sprintf("%s (%d)", name, n)
		taken[renamed] = true
		columns[i].Name = renamed
		faults = append(faults, &SchemaError{
			Position: originalPosition(i, blockAt, len(cat.Parts)),
			Name:     name,
			Reason:   fmt.Sprintf("duplicate header, renamed to %q", renamed),
		})
	}
	return faults
}

func originalPosition(schemaPos, blockAt, blockLen int) int {
	if blockAt >= 0 && schemaPos >= blockAt+blockLen {
		return schemaPos - blockLen
	}
	return schemaPos
}
