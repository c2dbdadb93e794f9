package transform

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRange is returned when a sheet has no rows at all.
	ErrEmptyRange = errors.New("empty range")
	// ErrMalformedRange is returned when a sheet has rows but no usable header.
	ErrMalformedRange = errors.New("malformed range")
)

// SchemaError is a non-fatal problem found while inferring a table schema.
// The schema is still produced; the offending column gets a generated name.
type SchemaError struct {
	Table    string
	Position int
	Name     string
	Reason   string
}

func (e *SchemaError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("column %d (%q): %s", e.Position, e.Name, e.Reason)
	}
	return fmt.Sprintf("table %q column %d (%q): %s", e.Table, e.Position, e.Name, e.Reason)
}

// DecodeError is a non-fatal problem with one cell. The cell value is kept
// under dataset.UndefinedKey.
type DecodeError struct {
	Table    string
	Row      int // sheet row index
	Position int // original column position
	Value    string
	Reason   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("table %q row %d column %d: %s (value %q)", e.Table, e.Row, e.Position, e.Reason, e.Value)
}
