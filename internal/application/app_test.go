package application

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetbridge/internal/config"
	"github.com/JonMunkholm/sheetbridge/internal/core"
)

func testConfig() *config.Config {
	return &config.Config{
		Sink: config.SinkConfig{Kind: "powerbi"},
		PowerBI: config.PowerBIConfig{
			APIURL:            "https://api.powerbi.com/v1.0/myorg",
			AuthURL:           "https://login.microsoftonline.com/tenant",
			ClientID:          "id",
			ClientSecret:      "secret",
			RowsPerRequest:    10000,
			RequestsPerMinute: 120,
			MaxRetries:        3,
			RetryBase:         time.Millisecond,
		},
		Transfer: config.TransferConfig{MaxConcurrent: 1, MaxWaitTime: time.Second, Timeout: time.Minute, Workers: 1, Layout: "generic"},
	}
}

func writeWorkbook(t *testing.T, dir, name string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"id", "qty"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"a", 1}))
	require.NoError(t, f.SaveAs(filepath.Join(dir, name)))
}

func TestNew_XLSXPreview(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, "book.xlsx")

	app, err := New(context.Background(), testConfig(), Options{XLSXDir: dir, WithoutSink: true})
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Sink)
	assert.IsType(t, &core.MemoryRunStore{}, app.Runs)

	p, err := app.Service.Preview(context.Background(), "book.xlsx", -1)
	require.NoError(t, err)
	assert.Equal(t, "book", p.Dataset.Name)
	require.Len(t, p.Dataset.Tables, 1)
	assert.Len(t, p.Dataset.Tables[0].Rows, 1)
}

func TestNew_BuildsPowerBISink(t *testing.T) {
	app, err := New(context.Background(), testConfig(), Options{XLSXDir: t.TempDir()})
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Sink)
}

func TestNew_SQLiteSinkPushes(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, "book.xlsx")
	cfg := testConfig()
	cfg.Sink = config.SinkConfig{Kind: "sqlite", SQLitePath: filepath.Join(dir, "push.db")}

	app, err := New(context.Background(), cfg, Options{XLSXDir: dir})
	require.NoError(t, err)
	defer app.Close()

	run, err := app.Service.Transfer(context.Background(), core.TransferRequest{SpreadsheetID: "book.xlsx"})
	require.NoError(t, err)
	assert.Equal(t, core.RunSucceeded, run.Status)
	assert.NotEmpty(t, run.DatasetID)
	assert.Equal(t, 1, run.Rows)
}

func TestNew_SinkNotConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.PowerBI.ClientSecret = ""

	_, err := New(context.Background(), cfg, Options{XLSXDir: t.TempDir()})
	assert.ErrorContains(t, err, "PBI_CLIENT_SECRET")
}

func TestNew_UnknownLayout(t *testing.T) {
	_, err := New(context.Background(), testConfig(), Options{XLSXDir: t.TempDir(), WithoutSink: true, Layout: "nope"})
	assert.ErrorContains(t, err, "unknown layout")
}

func TestNew_GoogleNeedsCredentials(t *testing.T) {
	_, err := New(context.Background(), testConfig(), Options{WithoutSink: true})
	assert.ErrorContains(t, err, "GOOGLE_CREDENTIALS_FILE")
}

func TestSinkConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Database.URL = "postgres://localhost/x"
	cfg.Database.MaxConns = 7

	cfg.Sink.SQLitePath = "local.db"

	sc := SinkConfig(cfg, nil)
	assert.Equal(t, "powerbi", sc.Kind)
	assert.Equal(t, "postgres://localhost/x", sc.DSN)
	assert.EqualValues(t, 7, sc.MaxConns)
	assert.Equal(t, "secret", sc.PowerBI.ClientSecret)
	assert.Equal(t, time.Millisecond, sc.PowerBI.RetryBase)

	cfg.Sink.Kind = "sqlite"
	assert.Equal(t, "local.db", SinkConfig(cfg, nil).DSN)
}
