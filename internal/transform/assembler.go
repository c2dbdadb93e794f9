// Package transform converts raw sheet values into typed dataset tables.
//
// The work is split the same way for every sheet: a HeaderPolicy finds the
// header and data rows, a SchemaInferencer builds the columns once, and a
// RowDecoder turns each data row into a record. TableAssembler drives the
// three over every sheet of a spreadsheet.
package transform

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/sheetbridge/internal/dataset"
	"github.com/JonMunkholm/sheetbridge/internal/layout"
)

// Sheets is the read side of a spreadsheet source.
type Sheets interface {
	SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	Values(ctx context.Context, spreadsheetID, rangeName string) ([][]string, error)
}

// SkippedTable is a sheet that produced no table.
type SkippedTable struct {
	Name string
	Err  error
}

// TableStats counts the non-fatal problems met while building one table.
type TableStats struct {
	SchemaFaults int
	DecodeFaults int
}

// Result is the outcome of assembling a spreadsheet.
type Result struct {
	Tables  []dataset.Table
	Skipped []SkippedTable
	TableStats
}

// RowCount returns the number of decoded rows over all tables.
func (r Result) RowCount() int {
	n := 0
	for _, t := range r.Tables {
		n += len(t.Rows)
	}
	return n
}

// TableAssembler builds one table per sheet.
type TableAssembler struct {
	layout  layout.Layout
	policy  HeaderPolicy
	infer   *SchemaInferencer
	filter  *layout.SheetFilter
	workers int
	logger  *slog.Logger
}

// Option configures a TableAssembler.
type Option func(*TableAssembler)

// WithWorkers sets how many sheets are fetched and built at once.
func WithWorkers(n int) Option {
	return func(a *TableAssembler) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithLogger sets the logger for skipped tables and non-fatal faults.
func WithLogger(l *slog.Logger) Option {
	return func(a *TableAssembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithPolicy overrides the header policy chosen by the layout.
func WithPolicy(p HeaderPolicy) Option {
	return func(a *TableAssembler) {
		if p != nil {
			a.policy = p
		}
	}
}

// NewTableAssembler returns an assembler for sheets laid out as l. An
// invalid sheet filter keeps every sheet; Layout.Validate reports it.
func NewTableAssembler(l layout.Layout, opts ...Option) *TableAssembler {
	filter, err := layout.CompileSheetFilter(l.SheetFilter)
	if err != nil {
		filter = nil
	}
	a := &TableAssembler{
		filter:  filter,
		layout:  l,
		policy:  PolicyFor(l),
		infer:   NewSchemaInferencer(l),
		workers: 1,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type tableOutcome struct {
	table dataset.Table
	stats TableStats
	err   error
}

// Assemble builds a table for every sheet of the spreadsheet, in sheet order.
// Failing to list the sheets is fatal. A sheet that cannot be fetched or has
// no usable header is logged and recorded in Result.Skipped.
func (a *TableAssembler) Assemble(ctx context.Context, src Sheets, spreadsheetID string) (Result, error) {
	titles, err := src.SheetTitles(ctx, spreadsheetID)
	if err != nil {
		return Result{}, err
	}
	titles, err = a.selectSheets(titles)
	if err != nil {
		return Result{}, err
	}

	outcomes := make([]tableOutcome, len(titles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, title := range titles {
		g.Go(func() error {
			outcomes[i] = a.fetchTable(gctx, src, spreadsheetID, title)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var res Result
	for i, o := range outcomes {
		res.SchemaFaults += o.stats.SchemaFaults
		res.DecodeFaults += o.stats.DecodeFaults
		if o.err != nil {
			res.Skipped = append(res.Skipped, SkippedTable{Name: titles[i], Err: o.err})
			continue
		}
		res.Tables = append(res.Tables, o.table)
	}
	return res, nil
}

// selectSheets drops the sheets the layout's filter rejects.
func (a *TableAssembler) selectSheets(titles []string) ([]string, error) {
	if a.filter.String() == "" {
		return titles, nil
	}
	kept := titles[:0:0]
	for i, title := range titles {
		ok, err := a.filter.Match(title, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			a.logger.Debug("sheet filtered out", "table", title, "filter", a.filter.String())
			continue
		}
		kept = append(kept, title)
	}
	return kept, nil
}

func (a *TableAssembler) fetchTable(ctx context.Context, src Sheets, spreadsheetID, title string) tableOutcome {
	values, err := src.Values(ctx, spreadsheetID, title)
	if err != nil {
		a.logger.Error("skipping table: fetch failed", "table", title, "error", err)
		return tableOutcome{err: err}
	}
	a.logger.Info("received sheet values", "table", title, "rows", len(values))

	table, stats, err := a.BuildTable(title, values)
	if err != nil {
		a.logger.Error("skipping table", "table", title, "error", err)
		return tableOutcome{stats: stats, err: err}
	}
	return tableOutcome{table: table, stats: stats}
}

// BuildTable builds the table called name from raw sheet values.
// Non-fatal faults are logged and counted; the error is only set when the
// sheet has no usable header.
func (a *TableAssembler) BuildTable(name string, values [][]string) (dataset.Table, TableStats, error) {
	var stats TableStats

	loc, err := a.policy.Locate(values)
	if err != nil {
		return dataset.Table{}, stats, err
	}

	var sample []string
	if loc.Data < len(values) {
		sample = values[loc.Data]
	}

	columns, schemaFaults := a.infer.Infer(values[loc.Header], sample)
	for _, f := range schemaFaults {
		f.Table = name
		a.logger.Warn("schema fault", "table", name, "position", f.Position, "error", f.Reason)
	}
	stats.SchemaFaults = len(schemaFaults)

	tb := dataset.NewTableBuilder(name)
	if err := tb.AddColumns(columns...); err != nil {
		return dataset.Table{}, stats, err
	}

	dec := NewRowDecoder(a.layout, columns)
	for i := loc.Data; i < len(values); i++ {
		if len(values[i]) == 0 {
			continue
		}
		row, faults := dec.Decode(values[i])
		for _, f := range faults {
			f.Table = name
			f.Row = i
			a.logger.Warn("row decode fault", "table", name, "row", i, "position", f.Position, "error", f.Reason)
		}
		stats.DecodeFaults += len(faults)
		tb.AppendRow(row)
	}

	table := tb.Build()
	a.logger.Debug("table built", "table", name, "columns", table.ColumnNames(), "rows", len(table.Rows))
	return table, stats, nil
}
