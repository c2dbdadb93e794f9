// Package layout describes the sheet layouts a transfer understands.
//
// A Layout carries everything that depends on where a column sits in the
// source sheet: the positional type table, the decode sets, the zero-default
// column names and the category expansion rule. These rules are positional
// and brittle: inserting a column in the source sheet shifts every rule after
// it, so a changed sheet needs a changed layout rather than a code change.
package layout

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/JonMunkholm/sheetbridge/internal/dataset"
)

// Header policies.
const (
	PolicyFixed   = "fixed"
	PolicyLongest = "longest"
)

// Positions is a set of zero-based column positions.
type Positions []int

// Has reports whether pos is in the set.
func (p Positions) Has(pos int) bool {
	return slices.Contains(p, pos)
}

// HeaderRule selects which rows hold the header and the data.
type HeaderRule struct {
	Policy    string `yaml:"policy"`     // "fixed" or "longest"
	HeaderRow int    `yaml:"header_row"` // zero-based, fixed policy only
	DataRow   int    `yaml:"data_row"`   // zero-based, fixed policy only
	ScanRows  int    `yaml:"scan_rows"`  // rows searched by the longest policy
}

// CategoryRule splits one delimited cell into a fixed block of columns.
type CategoryRule struct {
	Column    string   `yaml:"column"`    // header name of the delimited cell
	InsertAt  int      `yaml:"insert_at"` // schema position of the generated block
	Parts     []string `yaml:"parts"`     // generated column names, in order
	Separator string   `yaml:"separator"`
	KeepCell  bool     `yaml:"keep_cell"` // keep the raw cell in decoded rows
}

// Enabled reports whether the rule does anything.
func (c CategoryRule) Enabled() bool {
	return c.Column != "" && len(c.Parts) > 0
}

// TypeTable maps original column positions to data types. Lists are checked
// in field order; the first match wins.
type TypeTable struct {
	Int64    Positions `yaml:"int64"`
	Currency Positions `yaml:"currency"` // Double with the Currency format string
	DateTime Positions `yaml:"datetime"`
	Double   Positions `yaml:"double"`
	Boolean  Positions `yaml:"boolean"`
}

// Lookup returns the type and format string for pos. ok is false when the
// position is not mapped.
func (t TypeTable) Lookup(pos int) (dt dataset.DataType, format string, ok bool) {
	switch {
	case t.Int64.Has(pos):
		return dataset.Int64, "", true
	case t.Currency.Has(pos):
		return dataset.Double, dataset.CurrencyFormat, true
	case t.DateTime.Has(pos):
		return dataset.DateTime, "", true
	case t.Double.Has(pos):
		return dataset.Double, "", true
	case t.Boolean.Has(pos):
		return dataset.Boolean, "", true
	}
	return dataset.String, "", false
}

// DecodeRules controls per-cell coercion. These sets are independent of the
// TypeTable and do not have to agree with it.
type DecodeRules struct {
	Int64       Positions `yaml:"int64"`
	Double      Positions `yaml:"double"`
	Boolean     Positions `yaml:"boolean"`
	ZeroColumns []string  `yaml:"zero_columns"` // resolved names that default to 0
	Strip       string    `yaml:"strip"`        // removed from every cell, e.g. a currency glyph
}

// IsZeroColumn reports whether an empty cell in column name decodes to 0.
func (d DecodeRules) IsZeroColumn(name string) bool {
	return slices.Contains(d.ZeroColumns, name)
}

// ColumnRule sets column properties on a resolved column name. Type, when
// set, replaces the positional or sampled type.
type ColumnRule struct {
	Type      string `yaml:"type"`
	Category  string `yaml:"category"` // data category, e.g. "City"
	Hidden    bool   `yaml:"hidden"`
	SortBy    string `yaml:"sort_by"`
	Summarize string `yaml:"summarize"`
}

// Apply returns c with the rule's properties set.
func (r ColumnRule) Apply(c dataset.ColumnSchema) dataset.ColumnSchema {
	if r.Type != "" {
		c.DataType = dataset.DataType(r.Type)
	}
	opts := []dataset.ColumnOption{dataset.WithCategory(r.Category)}
	if r.Hidden {
		opts = append(opts, dataset.Hidden())
	}
	if r.SortBy != "" {
		opts = append(opts, dataset.SortBy(r.SortBy))
	}
	if r.Summarize != "" {
		opts = append(opts, dataset.Summarize(dataset.SummarizeBy(r.Summarize)))
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Layout is one sheet layout.
type Layout struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	FirstColumn string       `yaml:"first_column"` // replaces header cell 0 when set
	Header      HeaderRule   `yaml:"header"`
	Category    CategoryRule `yaml:"category"`
	Types       TypeTable    `yaml:"types"`
	Decode      DecodeRules  `yaml:"decode"`
	InferTypes  bool         `yaml:"infer_types"` // type unmapped columns from the first data row
	SheetFilter string       `yaml:"sheet_filter"` // bexpr over Title and Index; empty keeps every sheet

	Columns map[string]ColumnRule `yaml:"columns"` // keyed by resolved column name
}

// WithDefaults fills unset fields.
func (l Layout) WithDefaults() Layout {
	if l.Header.Policy == "" {
		l.Header.Policy = PolicyFixed
	}
	if l.Header.Policy == PolicyFixed && l.Header.HeaderRow == 0 && l.Header.DataRow == 0 {
		l.Header.HeaderRow = 1
		l.Header.DataRow = 3
	}
	if l.Header.ScanRows == 0 {
		l.Header.ScanRows = 10
	}
	if l.Category.Separator == "" {
		l.Category.Separator = "/"
	}
	return l
}

// Validate reports every problem with the layout at once.
func (l Layout) Validate() error {
	var errs []string

	if strings.TrimSpace(l.Name) == "" {
		errs = append(errs, "name is required")
	}

	switch l.Header.Policy {
	case PolicyFixed:
		if l.Header.HeaderRow < 0 {
			errs = append(errs, "header.header_row must be >= 0")
		}
		if l.Header.DataRow <= l.Header.HeaderRow {
			errs = append(errs, "header.data_row must be after header.header_row")
		}
	case PolicyLongest:
		if l.Header.ScanRows < 1 {
			errs = append(errs, "header.scan_rows must be >= 1")
		}
	default:
		errs = append(errs, fmt.Sprintf("header.policy must be %q or %q, got %q", PolicyFixed, PolicyLongest, l.Header.Policy))
	}

	if l.Category.Enabled() {
		if l.Category.InsertAt < 1 {
			errs = append(errs, "category.insert_at must be >= 1")
		}
		seen := make(map[string]bool, len(l.Category.Parts))
		for _, p := range l.Category.Parts {
			if p == "" {
				errs = append(errs, "category.parts must not contain empty names")
				continue
			}
			if seen[p] {
				errs = append(errs, fmt.Sprintf("category.parts: duplicate %q", p))
			}
			seen[p] = true
		}
	}

	for name, set := range map[string]Positions{
		"types.int64":    l.Types.Int64,
		"types.currency": l.Types.Currency,
		"types.datetime": l.Types.DateTime,
		"types.double":   l.Types.Double,
		"types.boolean":  l.Types.Boolean,
		"decode.int64":   l.Decode.Int64,
		"decode.double":  l.Decode.Double,
		"decode.boolean": l.Decode.Boolean,
	} {
		for _, pos := range set {
			if pos < 0 {
				errs = append(errs, fmt.Sprintf("%s: negative position %d", name, pos))
			}
		}
	}

	for name, rule := range l.Columns {
		if rule.Type != "" && !dataset.DataType(rule.Type).Valid() {
			errs = append(errs, fmt.Sprintf("columns.%s.type: unknown data type %q", name, rule.Type))
		}
		if !dataset.SummarizeBy(rule.Summarize).Valid() {
			errs = append(errs, fmt.Sprintf("columns.%s.summarize: unknown aggregation %q", name, rule.Summarize))
		}
		if rule.SortBy == name {
			errs = append(errs, fmt.Sprintf("columns.%s.sort_by: a column cannot sort by itself", name))
		}
	}

	if _, err := CompileSheetFilter(l.SheetFilter); err != nil {
		errs = append(errs, "sheet_filter: "+err.Error())
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return errors.New("invalid layout:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}
