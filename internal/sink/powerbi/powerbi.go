// Package powerbi writes datasets to the Power BI push-dataset REST API.
package powerbi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/JonMunkholm/sheetbridge/internal/dataset"
	"github.com/JonMunkholm/sheetbridge/internal/sink"
)

// Kind is the sink kind this package registers.
const Kind = "powerbi"

const (
	DefaultAPIURL            = "https://api.powerbi.com/v1.0/myorg"
	DefaultRowsPerRequest    = 10000
	DefaultRequestsPerMinute = 120
	DefaultRetryBase         = 500 * time.Millisecond
)

// DefaultScopes is requested when no scopes are configured.
var DefaultScopes = []string{"https://analysis.windows.net/powerbi/api/.default"}

func init() {
	sink.Register(Kind, newFromConfig)
}

func newFromConfig(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
	p := cfg.PowerBI
	if p.AuthURL == "" || p.ClientID == "" || p.ClientSecret == "" {
		return nil, errors.New("powerbi: auth url, client id and client secret are required")
	}

	return New(Options{
		BaseURL:           p.APIURL,
		Group:             p.Group,
		RetentionPolicy:   p.RetentionPolicy,
		RowsPerRequest:    p.RowsPerRequest,
		RequestsPerMinute: p.RequestsPerMinute,
		MaxRetries:        p.MaxRetries,
		RetryBase:         p.RetryBase,
		HTTPClient:        TokenClient(ctx, p.AuthURL, p.ClientID, p.ClientSecret, p.Scopes),
		Logger:            cfg.Logger,
	}), nil
}

// TokenURL returns the OAuth2 token endpoint for an authority URL such as
// https://login.microsoftonline.com/<tenant>. Full token URLs pass through.
func TokenURL(authURL string) string {
	authURL = strings.TrimRight(authURL, "/")
	if strings.HasSuffix(authURL, "/token") {
		return authURL
	}
	return authURL + "/oauth2/v2.0/token"
}

// TokenClient returns an HTTP client that authenticates every request with
// an app-only token obtained through the client-credentials flow.
func TokenClient(ctx context.Context, authURL, clientID, clientSecret string, scopes []string) *http.Client {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     TokenURL(authURL),
		Scopes:       scopes,
	}
	return cc.Client(ctx)
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	Group             string // workspace id; empty writes to "My workspace"
	RetentionPolicy   string // "None" or "basicFIFO"
	RowsPerRequest    int
	RequestsPerMinute int
	MaxRetries        int
	RetryBase         time.Duration
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client implements sink.Sink and sink.Truncater.
type Client struct {
	baseURL        string
	group          string
	retention      string
	rowsPerRequest int
	maxRetries     uint64
	retryBase      time.Duration
	http           *http.Client
	limiter        *rate.Limiter
	logger         *slog.Logger
}

var (
	_ sink.Sink      = (*Client)(nil)
	_ sink.Truncater = (*Client)(nil)
)

// New creates a Client. Zero options take the package defaults.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAPIURL
	}
	if opts.RowsPerRequest <= 0 {
		opts.RowsPerRequest = DefaultRowsPerRequest
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultRetryBase
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		group:          opts.Group,
		retention:      opts.RetentionPolicy,
		rowsPerRequest: opts.RowsPerRequest,
		maxRetries:     uint64(opts.MaxRetries),
		retryBase:      opts.RetryBase,
		http:           opts.HTTPClient,
		limiter:        rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 5),
		logger:         opts.Logger.With("sink", Kind),
	}
}

func (c *Client) datasetsURL() string {
	if c.group == "" {
		return c.baseURL + "/datasets"
	}
	return c.baseURL + "/groups/" + url.PathEscape(c.group) + "/datasets"
}

func (c *Client) rowsURL(datasetID, table string) string {
	return c.datasetsURL() + "/" + url.PathEscape(datasetID) + "/tables/" + url.PathEscape(table) + "/rows"
}

// CreateDataset posts the compacted schema of ds and returns the new dataset id.
func (c *Client) CreateDataset(ctx context.Context, ds dataset.Dataset) (string, error) {
	body, err := json.Marshal(ds.Schema())
	if err != nil {
		return "", &sink.PushError{Op: sink.OpCreate, Err: err}
	}

	target := c.datasetsURL()
	if c.retention != "" {
		target += "?defaultRetentionPolicy=" + url.QueryEscape(c.retention)
	}

	var created struct {
		ID string `json:"id"`
	}
	status, err := c.do(ctx, http.MethodPost, target, body, &created)
	if err != nil {
		return "", &sink.PushError{Op: sink.OpCreate, Status: status, Err: err}
	}
	if created.ID == "" {
		return "", &sink.PushError{Op: sink.OpCreate, Status: status, Err: errors.New("response carries no dataset id")}
	}

	c.logger.Info("dataset created", "dataset_id", created.ID, "name", ds.Name, "tables", len(ds.Tables))
	return created.ID, nil
}

// AppendRows posts rows in chunks of RowsPerRequest. Rows are sent as
// decoded, without compaction.
func (c *Client) AppendRows(ctx context.Context, datasetID, table string, rows []dataset.Row) error {
	target := c.rowsURL(datasetID, table)

	for start := 0; start < len(rows); start += c.rowsPerRequest {
		end := min(start+c.rowsPerRequest, len(rows))
		body, err := json.Marshal(struct {
			Rows []dataset.Row `json:"rows"`
		}{Rows: rows[start:end]})
		if err != nil {
			return &sink.PushError{Op: sink.OpAppend, DatasetID: datasetID, Table: table, Err: err}
		}

		status, err := c.do(ctx, http.MethodPost, target, body, nil)
		if err != nil {
			return &sink.PushError{
				Op: sink.OpAppend, DatasetID: datasetID, Table: table, Status: status,
				Err: fmt.Errorf("rows %d-%d: %w", start, end-1, err),
			}
		}
		c.logger.Debug("rows appended", "dataset_id", datasetID, "table", table, "from", start, "to", end-1)
	}
	return nil
}

// DeleteRows removes every row of a table.
func (c *Client) DeleteRows(ctx context.Context, datasetID, table string) error {
	status, err := c.do(ctx, http.MethodDelete, c.rowsURL(datasetID, table), nil, nil)
	if err != nil {
		return &sink.PushError{Op: sink.OpDelete, DatasetID: datasetID, Table: table, Status: status, Err: err}
	}
	return nil
}

// APIError is a non-success response from the REST API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("power bi api: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("power bi api: %s: %s", http.StatusText(e.Status), e.Body)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// do sends one request, paced by the limiter and retried with exponential
// backoff on throttling, server errors and transport failures.
func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) (int, error) {
	var status int
	attempt := 0

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Warn("request failed", "method", method, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

		if status >= 300 {
			apiErr := &APIError{Status: status, Body: strings.TrimSpace(string(data))}
			if retryable(status) {
				c.logger.Warn("request rejected, retrying", "method", method, "status", status, "attempt", attempt)
				return retry.RetryableError(apiErr)
			}
			return apiErr
		}

		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	})
	return status, err
}
