// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Google   GoogleConfig
	PowerBI  PowerBIConfig
	Sink     SinkConfig
	Transfer TransferConfig
	History  HistoryConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, transfers run long)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for short requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Optional: without it run
	// history is kept in memory and the postgres sink is unavailable.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// GoogleConfig holds Google Sheets and Drive access settings.
type GoogleConfig struct {
	// CredentialsFile is the service-account JSON key file
	CredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE" envAlt:"GAPI_CREDS"`

	// Scopes overrides the OAuth scopes (comma-separated)
	Scopes []string `env:"GOOGLE_SCOPES"`

	// SheetsURL is the base of spreadsheet links recorded as data sources
	SheetsURL string `env:"SHEETS_URL" default:"https://docs.google.com/spreadsheets/d"`
}

// PowerBIConfig holds Power BI REST API settings.
type PowerBIConfig struct {
	// AuthURL is the Azure AD authority, e.g. https://login.microsoftonline.com/<tenant>
	AuthURL string `env:"PBI_AUTH_URL"`

	ClientID     string `env:"PBI_CLIENT_ID"`
	ClientSecret string `env:"PBI_CLIENT_SECRET"`

	// Scopes for the client-credentials token (comma-separated)
	Scopes []string `env:"PBI_SCOPES" default:"https://analysis.windows.net/powerbi/api/.default"`

	// Group is the workspace id; empty targets "My workspace"
	Group string `env:"PBI_GROUP"`

	// APIURL is the REST API base URL
	APIURL string `env:"PBI_API_URL" default:"https://api.powerbi.com/v1.0/myorg"`

	// RetentionPolicy is sent as defaultRetentionPolicy: None or basicFIFO (default: None)
	RetentionPolicy string `env:"PBI_RETENTION_POLICY" default:"None"`

	// RowsPerRequest is the append-rows chunk size (default: 10000, the API maximum)
	RowsPerRequest int `env:"PBI_ROWS_PER_REQUEST" default:"10000"`

	// RequestsPerMinute paces all API calls (default: 120)
	RequestsPerMinute int `env:"PBI_REQUESTS_PER_MINUTE" default:"120"`

	// MaxRetries for throttled or failed requests (default: 3)
	MaxRetries int `env:"PBI_MAX_RETRIES" default:"3"`

	// RetryBase is the first retry delay, doubled on each attempt (default: 500ms)
	RetryBase time.Duration `env:"PBI_RETRY_BASE" default:"500ms"`
}

// SinkConfig selects where datasets are written.
type SinkConfig struct {
	// Kind is powerbi, postgres or sqlite (default: powerbi)
	Kind string `env:"SINK_KIND" default:"powerbi"`

	// SQLitePath is the database file of the sqlite sink (default: sheetbridge.db)
	SQLitePath string `env:"SQLITE_PATH" default:"sheetbridge.db"`
}

// TransferConfig holds transfer run settings.
type TransferConfig struct {
	// MaxConcurrent is the maximum number of parallel transfer runs (default: 2)
	MaxConcurrent int `env:"TRANSFER_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for a transfer slot (default: 30s)
	MaxWaitTime time.Duration `env:"TRANSFER_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single transfer run (default: 10m)
	Timeout time.Duration `env:"TRANSFER_TIMEOUT" default:"10m"`

	// Workers is the number of sheets fetched and built at once (default: 1)
	Workers int `env:"TRANSFER_WORKERS" default:"1"`

	// Layout is the registered sheet layout name (default: all-market)
	Layout string `env:"TRANSFER_LAYOUT" default:"all-market"`

	// LayoutFile is a YAML layout that replaces Layout when set
	LayoutFile string `env:"TRANSFER_LAYOUT_FILE"`

	// AttachDataSource records the spreadsheet link as a dataset data source (default: false)
	AttachDataSource bool `env:"TRANSFER_ATTACH_DATASOURCE" default:"false"`
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	// RetentionDays is how long finished runs are kept (default: 90)
	RetentionDays int `env:"HISTORY_RETENTION_DAYS" default:"90"`

	// CheckInterval is how often to purge old runs (default: 24h)
	CheckInterval time.Duration `env:"HISTORY_CHECK_INTERVAL" default:"24h"`

	// Schedule is a cron spec for the purge, e.g. "0 3 * * *". Overrides CheckInterval.
	Schedule string `env:"HISTORY_PURGE_SCHEDULE"`

	// ListLimit is the default page size of the runs listing (default: 50)
	ListLimit int `env:"HISTORY_LIST_LIMIT" default:"50"`
}

// RateLimitConfig holds rate limiting settings per client IP.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// TransferLimit is requests per minute for transfer endpoints (default: 10)
	TransferLimit int `env:"RATE_LIMIT_TRANSFER" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// JWTSecret enables HS256 bearer tokens as an alternative to API keys
	JWTSecret string `env:"JWT_SECRET"`

	// RequireAPIKey protects the /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// AllowedOrigins is a comma-separated CORS allow list; empty disables CORS
	AllowedOrigins []string `env:"ALLOWED_ORIGINS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
