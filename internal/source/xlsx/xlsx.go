// Package xlsx reads local Excel workbooks. The spreadsheet ID is the
// workbook path, relative to the source directory when one is set.
package xlsx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetbridge/internal/source"
)

const mimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Source implements source.Spreadsheet over files on disk.
type Source struct {
	dir string
}

var _ source.Spreadsheet = (*Source)(nil)

// New returns a Source. With a non-empty dir, IDs are resolved inside dir
// and cannot escape it.
func New(dir string) *Source {
	return &Source{dir: dir}
}

func (s *Source) path(id string) string {
	if s.dir == "" {
		return id
	}
	return filepath.Join(s.dir, filepath.Clean("/"+id))
}

func (s *Source) open(ctx context.Context, op, id, rangeName string) (*excelize.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, &source.FetchError{Op: op, SpreadsheetID: id, Range: rangeName, Err: err}
	}
	f, err := excelize.OpenFile(s.path(id))
	if err != nil {
		return nil, &source.FetchError{Op: op, SpreadsheetID: id, Range: rangeName, Err: err}
	}
	return f, nil
}

// SheetTitles returns the sheet names in workbook order.
func (s *Source) SheetTitles(ctx context.Context, id string) ([]string, error) {
	f, err := s.open(ctx, source.OpTitles, id, "")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// Values returns the formatted cell values of one sheet.
func (s *Source) Values(ctx context.Context, id, sheet string) ([][]string, error) {
	f, err := s.open(ctx, source.OpValues, id, sheet)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &source.FetchError{Op: source.OpValues, SpreadsheetID: id, Range: sheet, Err: err}
	}
	return rows, nil
}

// FileMetadata returns the workbook name without extension.
func (s *Source) FileMetadata(ctx context.Context, id string) (source.FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return source.FileMetadata{}, &source.FetchError{Op: source.OpMetadata, SpreadsheetID: id, Err: err}
	}
	info, err := os.Stat(s.path(id))
	if err != nil {
		return source.FileMetadata{}, &source.FetchError{Op: source.OpMetadata, SpreadsheetID: id, Err: err}
	}
	if info.IsDir() {
		return source.FileMetadata{}, &source.FetchError{
			Op: source.OpMetadata, SpreadsheetID: id, Err: fmt.Errorf("%s is a directory", id),
		}
	}

	base := filepath.Base(id)
	return source.FileMetadata{
		ID:           id,
		Name:         strings.TrimSuffix(base, filepath.Ext(base)),
		MimeType:     mimeType,
		ModifiedTime: info.ModTime(),
	}, nil
}
