// Package gsheets reads spreadsheets through the Google Sheets and Drive APIs
// with a service-account credentials file.
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/JonMunkholm/sheetbridge/internal/source"
)

// DefaultScopes are requested when Options.Scopes is empty.
var DefaultScopes = []string{
	sheets.SpreadsheetsReadonlyScope,
	drive.DriveMetadataReadonlyScope,
}

// Options configures a Client.
type Options struct {
	CredentialsFile string
	Scopes          []string

	// HTTPClient replaces credential-based authentication. The endpoints
	// override the API base URLs. Both are meant for tests.
	HTTPClient     *http.Client
	SheetsEndpoint string
	DriveEndpoint  string
}

// Client implements source.Spreadsheet.
type Client struct {
	sheets *sheets.Service
	drive  *drive.Service
}

var _ source.Spreadsheet = (*Client)(nil)

// New creates a Client.
func New(ctx context.Context, opts Options) (*Client, error) {
	var common []option.ClientOption
	if opts.HTTPClient != nil {
		common = append(common, option.WithHTTPClient(opts.HTTPClient))
	} else {
		if opts.CredentialsFile == "" {
			return nil, errors.New("gsheets: credentials file is required")
		}
		scopes := opts.Scopes
		if len(scopes) == 0 {
			scopes = DefaultScopes
		}
		common = append(common,
			option.WithAuthCredentialsFile(option.ServiceAccount, opts.CredentialsFile),
			option.WithScopes(scopes...),
		)
	}

	sheetOpts := slices.Clone(common)
	if opts.SheetsEndpoint != "" {
		sheetOpts = append(sheetOpts, option.WithEndpoint(opts.SheetsEndpoint))
	}
	sheetsSvc, err := sheets.NewService(ctx, sheetOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	driveOpts := slices.Clone(common)
	if opts.DriveEndpoint != "" {
		driveOpts = append(driveOpts, option.WithEndpoint(opts.DriveEndpoint))
	}
	driveSvc, err := drive.NewService(ctx, driveOpts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Client{sheets: sheetsSvc, drive: driveSvc}, nil
}

// SheetTitles returns the sheet titles in workbook order.
func (c *Client) SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	resp, err := c.sheets.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, &source.FetchError{Op: source.OpTitles, SpreadsheetID: spreadsheetID, Err: err}
	}

	titles := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

// Values returns the formatted cell values of a range. Trailing empty cells
// and rows are omitted by the API, so rows can be shorter than the header.
func (c *Client) Values(ctx context.Context, spreadsheetID, rangeName string) ([][]string, error) {
	resp, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, rangeName).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, &source.FetchError{Op: source.OpValues, SpreadsheetID: spreadsheetID, Range: rangeName, Err: err}
	}

	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		out[i] = cells
	}
	return out, nil
}

// FileMetadata returns the Drive metadata of the spreadsheet file.
func (c *Client) FileMetadata(ctx context.Context, fileID string) (source.FileMetadata, error) {
	f, err := c.drive.Files.Get(fileID).
		Fields("id", "name", "mimeType", "modifiedTime").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return source.FileMetadata{}, &source.FetchError{Op: source.OpMetadata, SpreadsheetID: fileID, Err: err}
	}

	meta := source.FileMetadata{ID: f.Id, Name: f.Name, MimeType: f.MimeType}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			meta.ModifiedTime = t
		}
	}
	return meta, nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
