package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.PowerBI.RowsPerRequest <= 0 || c.PowerBI.RowsPerRequest > 10000 {
		errs = append(errs, fmt.Sprintf("PBI_ROWS_PER_REQUEST (%d) must be 1-10000", c.PowerBI.RowsPerRequest))
	}
	if c.PowerBI.RequestsPerMinute <= 0 {
		errs = append(errs, "PBI_REQUESTS_PER_MINUTE must be positive")
	}
	if c.PowerBI.MaxRetries < 0 {
		errs = append(errs, "PBI_MAX_RETRIES must be non-negative")
	}
	if c.PowerBI.RetryBase <= 0 {
		errs = append(errs, "PBI_RETRY_BASE must be positive")
	}
	switch c.PowerBI.RetentionPolicy {
	case "", "None", "basicFIFO":
	default:
		errs = append(errs, fmt.Sprintf("PBI_RETENTION_POLICY (%q) must be one of: None, basicFIFO", c.PowerBI.RetentionPolicy))
	}

	switch c.Sink.Kind {
	case "powerbi", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("SINK_KIND (%q) must be one of: powerbi, postgres, sqlite", c.Sink.Kind))
	}

	if c.Transfer.MaxConcurrent <= 0 {
		errs = append(errs, "TRANSFER_MAX_CONCURRENT must be positive")
	}
	if c.Transfer.MaxWaitTime <= 0 {
		errs = append(errs, "TRANSFER_MAX_WAIT_TIME must be positive")
	}
	if c.Transfer.Timeout <= 0 {
		errs = append(errs, "TRANSFER_TIMEOUT must be positive")
	}
	if c.Transfer.Workers <= 0 {
		errs = append(errs, "TRANSFER_WORKERS must be positive")
	}
	if c.Transfer.Layout == "" && c.Transfer.LayoutFile == "" {
		errs = append(errs, "TRANSFER_LAYOUT or TRANSFER_LAYOUT_FILE is required")
	}

	if c.History.RetentionDays <= 0 {
		errs = append(errs, "HISTORY_RETENTION_DAYS must be positive")
	}
	if c.History.CheckInterval <= 0 {
		errs = append(errs, "HISTORY_CHECK_INTERVAL must be positive")
	}
	if c.History.Schedule != "" {
		if _, err := cron.ParseStandard(c.History.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("HISTORY_PURGE_SCHEDULE (%q) is not a valid cron spec: %v", c.History.Schedule, err))
		}
	}
	if c.History.ListLimit <= 0 {
		errs = append(errs, "HISTORY_LIST_LIMIT must be positive")
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.TransferLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_TRANSFER must be positive when rate limiting is enabled")
	}

	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 && c.Security.JWTSecret == "" {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// CheckGoogle reports whether the Google source can be built.
func (c *Config) CheckGoogle() error {
	if c.Google.CredentialsFile == "" {
		return errors.New("GOOGLE_CREDENTIALS_FILE (or GAPI_CREDS) is required")
	}
	if _, err := os.Stat(c.Google.CredentialsFile); err != nil {
		return fmt.Errorf("GOOGLE_CREDENTIALS_FILE: %w", err)
	}
	return nil
}

// CheckSink reports whether the configured sink has what it needs.
func (c *Config) CheckSink() error {
	var errs []string
	switch c.Sink.Kind {
	case "powerbi":
		if c.PowerBI.AuthURL == "" {
			errs = append(errs, "PBI_AUTH_URL is required for SINK_KIND=powerbi")
		}
		if c.PowerBI.ClientID == "" {
			errs = append(errs, "PBI_CLIENT_ID is required for SINK_KIND=powerbi")
		}
		if c.PowerBI.ClientSecret == "" {
			errs = append(errs, "PBI_CLIENT_SECRET is required for SINK_KIND=powerbi")
		}
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, "DATABASE_URL is required for SINK_KIND=postgres")
		}
	case "sqlite":
		if c.Sink.SQLitePath == "" {
			errs = append(errs, "SQLITE_PATH is required for SINK_KIND=sqlite")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("sink not configured:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs and client secrets are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		mask(c.Database.URL), c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Google: {CredentialsFile: %q}, ", c.Google.CredentialsFile))
	b.WriteString(fmt.Sprintf("PowerBI: {ClientID: %q, ClientSecret: %s, Group: %q, RowsPerRequest: %d}, ",
		c.PowerBI.ClientID, mask(c.PowerBI.ClientSecret), c.PowerBI.Group, c.PowerBI.RowsPerRequest))
	b.WriteString(fmt.Sprintf("Sink: {Kind: %q, SQLitePath: %q}, ", c.Sink.Kind, c.Sink.SQLitePath))
	b.WriteString(fmt.Sprintf("Transfer: {MaxConcurrent: %d, Workers: %d, Layout: %q}, ",
		c.Transfer.MaxConcurrent, c.Transfer.Workers, c.Transfer.Layout))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Security: {APIKeys: %d configured, JWTSecret: %s}, ",
		len(c.Security.APIKeys), mask(c.Security.JWTSecret)))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return "[UNSET]"
	}
	return "[MASKED]"
}
