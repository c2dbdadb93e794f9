package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheetbridge/internal/layout"
)

// Location is where the header and the first data row sit in a sheet.
type Location struct {
	Header int
	Data   int
}

// HeaderPolicy finds the header and data rows of a sheet.
type HeaderPolicy interface {
	Locate(values [][]string) (Location, error)
}

// PolicyFor returns the policy the layout asks for.
func PolicyFor(l layout.Layout) HeaderPolicy {
	if l.Header.Policy == layout.PolicyLongest {
		return LongestRow{ScanRows: l.Header.ScanRows}
	}
	return FixedOffset{HeaderRow: l.Header.HeaderRow, DataRow: l.Header.DataRow}
}

// FixedOffset reads the header and data from fixed row indexes.
type FixedOffset struct {
	HeaderRow int
	DataRow   int
}

// Locate implements HeaderPolicy. A sheet that ends before DataRow has a
// header and no data.
func (p FixedOffset) Locate(values [][]string) (Location, error) {
	if len(values) == 0 {
		return Location{}, ErrEmptyRange
	}
	if len(values) <= p.HeaderRow || len(values[p.HeaderRow]) == 0 {
		return Location{}, fmt.Errorf("%w: no header at row %d", ErrMalformedRange, p.HeaderRow)
	}
	return Location{Header: p.HeaderRow, Data: min(p.DataRow, len(values))}, nil
}

// LongestRow takes the gap-free row with the most filled cells among the
// first ScanRows rows as the header. Trailing blank cells are not gaps. Data
// starts on the next row, or one later when that row looks like a secondary
// header.
type LongestRow struct {
	ScanRows int
}

// Locate implements HeaderPolicy.
func (p LongestRow) Locate(values [][]string) (Location, error) {
	if len(values) == 0 {
		return Location{}, ErrEmptyRange
	}

	best, width := -1, 0
	for i := 0; i < min(p.ScanRows, len(values)); i++ {
		if n, ok := filledWidth(values[i]); ok && n > width {
			best, width = i, n
		}
	}
	if best < 0 {
		return Location{}, fmt.Errorf("%w: no gap-free row in the first %d", ErrMalformedRange, p.ScanRows)
	}

	data := best + 1
	if data < len(values) && secondaryHeader(values[data], width) {
		data++
	}
	return Location{Header: best, Data: min(data, len(values))}, nil
}

// filledWidth returns the number of non-blank cells in row. ok is false when
// a blank cell sits before the last filled one, or the row is blank.
func filledWidth(row []string) (n int, ok bool) {
	last := len(row) - 1
	for last >= 0 && strings.TrimSpace(row[last]) == "" {
		last--
	}
	if last < 0 {
		return 0, false
	}
	for _, cell := range row[:last+1] {
		if strings.TrimSpace(cell) == "" {
			return 0, false
		}
	}
	return last + 1, true
}

// secondaryHeader reports whether row reads like a sub-header under a header
// of the given width: blank, or at most half as wide with no numbers.
func secondaryHeader(row []string, width int) bool {
	filled := 0
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", "."), 64); err == nil {
			return false
		}
		filled++
	}
	return filled*2 <= width
}
