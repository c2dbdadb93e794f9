// Package source defines where spreadsheet values come from.
package source

import (
	"context"
	"fmt"
	"time"
)

// FileMetadata describes the spreadsheet file itself.
type FileMetadata struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime time.Time
}

// Spreadsheet reads sheet titles, sheet values and file metadata.
// Implementations return *FetchError for every failure.
type Spreadsheet interface {
	SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	Values(ctx context.Context, spreadsheetID, rangeName string) ([][]string, error)
	FileMetadata(ctx context.Context, fileID string) (FileMetadata, error)
}

// Fetch operations.
const (
	OpTitles   = "titles"
	OpValues   = "values"
	OpMetadata = "metadata"
)

// FetchError is a failed read from a spreadsheet source.
type FetchError struct {
	Op            string
	SpreadsheetID string
	Range         string
	Err           error
}

func (e *FetchError) Error() string {
	if e.Range != "" {
		return fmt.Sprintf("fetch %s %s!%s: %v", e.Op, e.SpreadsheetID, e.Range, e.Err)
	}
	return fmt.Sprintf("fetch %s %s: %v", e.Op, e.SpreadsheetID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
