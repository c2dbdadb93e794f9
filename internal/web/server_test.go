package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetbridge/internal/config"
	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/dataset"
	"github.com/JonMunkholm/sheetbridge/internal/layout"
	"github.com/JonMunkholm/sheetbridge/internal/sink"
	"github.com/JonMunkholm/sheetbridge/internal/source"
)

type stubSource struct {
	missing bool
}

func (s stubSource) SheetTitles(context.Context, string) ([]string, error) {
	return []string{"Sheet1"}, nil
}

func (s stubSource) Values(context.Context, string, string) ([][]string, error) {
	return [][]string{{"id", "name"}, {"1", "a"}, {"2", "b"}, {"3", "c"}}, nil
}

func (s stubSource) FileMetadata(_ context.Context, id string) (source.FileMetadata, error) {
	if s.missing {
		return source.FileMetadata{}, &source.FetchError{Op: source.OpMetadata, SpreadsheetID: id, Err: errors.New("404")}
	}
	return source.FileMetadata{ID: id, Name: "Book"}, nil
}

type stubSink struct {
	fail bool
}

func (s stubSink) CreateDataset(context.Context, dataset.Dataset) (string, error) {
	if s.fail {
		return "", &sink.PushError{Op: sink.OpCreate, Status: 400, Err: errors.New("bad schema")}
	}
	return "ds-1", nil
}

func (s stubSink) AppendRows(context.Context, string, string, []dataset.Row) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{RequestTimeout: 5 * time.Second},
		History: config.HistoryConfig{ListLimit: 50},
		Rate:    config.RateLimitConfig{Enabled: false},
	}
}

func newTestServer(t *testing.T, src source.Spreadsheet, snk sink.Sink, cfg *config.Config) *Server {
	t.Helper()
	l := layout.Layout{Name: "test", Header: layout.HeaderRule{HeaderRow: 0, DataRow: 1}}.WithDefaults()
	svc, err := core.NewService(core.Options{Source: src, Sink: snk, SinkKind: "stub", Layout: l})
	require.NoError(t, err)
	if cfg == nil {
		cfg = testConfig()
	}
	return NewServer(svc, cfg)
}

func do(t *testing.T, s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, stubSource{}, stubSink{}, nil)

	rec := do(t, s, http.MethodGet, "/healthz", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Layout)
	assert.Equal(t, core.DefaultMaxConcurrentTransfers, body.Transfers.MaxConcurrent)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestTransfer_CreatesRun(t *testing.T) {
	s := newTestServer(t, stubSource{}, stubSink{}, nil)

	rec := do(t, s, http.MethodPost, "/api/transfer", `{"google_sheet_id":"book","pbi_report_id":"rep"}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var run core.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, core.RunSucceeded, run.Status)
	assert.Equal(t, "ds-1", run.DatasetID)
	assert.Equal(t, "Book", run.DatasetName)
	assert.Equal(t, 3, run.Rows)

	rec = do(t, s, http.MethodGet, "/api/runs/"+run.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/runs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []core.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)

	rec = do(t, s, http.MethodGet, "/runs/"+run.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Book")
	assert.Contains(t, rec.Body.String(), "succeeded")
}

func TestTransfer_Validation(t *testing.T) {
	s := newTestServer(t, stubSource{}, stubSink{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"missing id", `{"pbi_report_id":"x"}`},
		{"unknown field", `{"google_sheet_id":"a","sheet":"b"}`},
		{"replace without dataset", `{"google_sheet_id":"a","replace":true}`},
		{"malformed", `{"google_sheet_id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/transfer", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestTransfer_SinkFailure(t *testing.T) {
	s := newTestServer(t, stubSource{}, stubSink{fail: true}, nil)

	rec := do(t, s, http.MethodPost, "/api/transfer", `{"google_sheet_id":"book"}`, nil)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SINK001", resp.Code)
	assert.NotEmpty(t, resp.RunID)
	assert.NotContains(t, rec.Body.String(), "bad schema")
}

func TestTransfer_NoSink(t *testing.T) {
	s := newTestServer(t, stubSource{}, nil, nil)

	rec := do(t, s, http.MethodPost, "/api/transfer", `{"google_sheet_id":"book"}`, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "CFG001")
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, stubSource{}, nil, nil)

	rec := do(t, s, http.MethodPost, "/api/preview", `{"google_sheet_id":"book","sample_rows":1}`, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Dataset struct {
			Name   string `json:"name"`
			Tables []struct {
				Rows []map[string]any `json:"rows"`
			} `json:"tables"`
			DefaultMode string `json:"defaultMode"`
		} `json:"dataset"`
		TotalRows int `json:"total_rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Book", resp.Dataset.Name)
	assert.Equal(t, "Push", resp.Dataset.DefaultMode)
	require.Len(t, resp.Dataset.Tables, 1)
	assert.Len(t, resp.Dataset.Tables[0].Rows, 1)
	assert.Equal(t, 3, resp.TotalRows)
}

func TestPreview_MissingSpreadsheet(t *testing.T) {
	s := newTestServer(t, stubSource{missing: true}, nil, nil)

	rec := do(t, s, http.MethodPost, "/api/preview", `{"google_sheet_id":"nope"}`, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "SRC001")
}

func TestGetRun_Errors(t *testing.T) {
	s := newTestServer(t, stubSource{}, stubSink{}, nil)

	rec := do(t, s, http.MethodGet, "/api/runs/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/runs/00000000-0000-0000-0000-000000000001", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "RUN004")

	rec = do(t, s, http.MethodGet, "/runs/00000000-0000-0000-0000-000000000001", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}
	s := newTestServer(t, stubSource{}, stubSink{}, cfg)

	rec := do(t, s, http.MethodGet, "/api/runs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/runs", "", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/runs", "", map[string]string{"X-API-Key": "k2"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTransferRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, TransferLimit: 1}
	s := newTestServer(t, stubSource{}, stubSink{}, cfg)

	body := `{"google_sheet_id":"book"}`
	rec := do(t, s, http.MethodPost, "/api/transfer", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/transfer", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = do(t, s, http.MethodGet, "/api/runs", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AllowedOrigins = []string{"https://reports.example.com"}
	s := newTestServer(t, stubSource{}, stubSink{}, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/runs", bytes.NewReader(nil))
	req.Header.Set("Origin", "https://reports.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, "https://reports.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
