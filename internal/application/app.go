// Package application wires configuration into a ready-to-use transfer
// service. Both binaries build their dependencies through New.
package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/sheetbridge/internal/config"
	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/layout"
	_ "github.com/JonMunkholm/sheetbridge/internal/layout/layouts" // Register built-in layouts
	"github.com/JonMunkholm/sheetbridge/internal/sink"
	_ "github.com/JonMunkholm/sheetbridge/internal/sink/postgres" // Register sinks
	_ "github.com/JonMunkholm/sheetbridge/internal/sink/powerbi"
	_ "github.com/JonMunkholm/sheetbridge/internal/sink/sqlite"
	"github.com/JonMunkholm/sheetbridge/internal/source"
	"github.com/JonMunkholm/sheetbridge/internal/source/gsheets"
	"github.com/JonMunkholm/sheetbridge/internal/source/xlsx"
)

// Options selects what New builds.
type Options struct {
	// XLSXDir reads local workbooks from this directory instead of Google
	// Sheets. Spreadsheet ids are file names relative to it.
	XLSXDir string

	// WithoutSink skips the sink, for previews.
	WithoutSink bool

	// Layout overrides cfg.Transfer.Layout when set.
	Layout string

	Logger *slog.Logger
}

// App holds the built dependencies.
type App struct {
	Config  *config.Config
	Service *core.Service
	Source  source.Spreadsheet
	Sink    sink.Sink // nil with WithoutSink
	Runs    core.RunStore
	Pool    *pgxpool.Pool // nil without DATABASE_URL

	closers []func()
}

// New builds the source, sink, run history and service described by cfg.
// Call Close when done.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	layoutName := cfg.Transfer.Layout
	layoutFile := cfg.Transfer.LayoutFile
	if opts.Layout != "" {
		layoutName, layoutFile = opts.Layout, ""
	}
	l, err := layout.Resolve(layoutName, layoutFile)
	if err != nil {
		return nil, err
	}

	if a.Source, err = newSource(ctx, cfg, opts.XLSXDir); err != nil {
		return nil, err
	}

	a.Runs = core.NewMemoryRunStore()
	if cfg.Database.URL != "" {
		if a.Pool, err = connect(ctx, cfg.Database); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.Pool.Close)

		store := core.NewPgRunStore(a.Pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		a.Runs = store
	}

	if !opts.WithoutSink {
		if err := cfg.CheckSink(); err != nil {
			return nil, err
		}
		if a.Sink, err = sink.New(ctx, SinkConfig(cfg, logger)); err != nil {
			return nil, err
		}
		if c, ok := a.Sink.(io.Closer); ok {
			a.closers = append(a.closers, func() { _ = c.Close() })
		}
	}

	a.Service, err = core.NewService(core.Options{
		Source:           a.Source,
		Sink:             a.Sink,
		SinkKind:         cfg.Sink.Kind,
		Layout:           l,
		Runs:             a.Runs,
		Limiter:          core.NewTransferLimiter(cfg.Transfer.MaxConcurrent, cfg.Transfer.MaxWaitTime),
		Workers:          cfg.Transfer.Workers,
		Timeout:          cfg.Transfer.Timeout,
		AttachDataSource: cfg.Transfer.AttachDataSource,
		SheetsURL:        cfg.Google.SheetsURL,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("application ready",
		"layout", l.Name,
		"source", sourceKind(opts.XLSXDir),
		"sink", sinkKind(a.Sink, cfg),
		"history", historyKind(a.Pool),
	)
	return a, nil
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// SinkConfig translates the configuration into a sink.Config.
func SinkConfig(cfg *config.Config, logger *slog.Logger) sink.Config {
	p := cfg.PowerBI
	dsn := cfg.Database.URL
	if cfg.Sink.Kind == "sqlite" {
		dsn = cfg.Sink.SQLitePath
	}
	return sink.Config{
		Kind:     cfg.Sink.Kind,
		DSN:      dsn,
		MaxConns: int32(cfg.Database.MaxConns),
		Logger:   logger,
		PowerBI: sink.PowerBIConfig{
			APIURL:            p.APIURL,
			AuthURL:           p.AuthURL,
			ClientID:          p.ClientID,
			ClientSecret:      p.ClientSecret,
			Scopes:            p.Scopes,
			Group:             p.Group,
			RetentionPolicy:   p.RetentionPolicy,
			RowsPerRequest:    p.RowsPerRequest,
			RequestsPerMinute: p.RequestsPerMinute,
			MaxRetries:        p.MaxRetries,
			RetryBase:         p.RetryBase,
		},
	}
}

func newSource(ctx context.Context, cfg *config.Config, xlsxDir string) (source.Spreadsheet, error) {
	if xlsxDir != "" {
		return xlsx.New(xlsxDir), nil
	}
	if err := cfg.CheckGoogle(); err != nil {
		return nil, err
	}
	return gsheets.New(ctx, gsheets.Options{
		CredentialsFile: cfg.Google.CredentialsFile,
		Scopes:          cfg.Google.Scopes,
	})
}

// connect opens and verifies the database pool.
func connect(ctx context.Context, db config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(db.MaxConns)
	poolConfig.MinConns = int32(db.MinConns)
	poolConfig.MaxConnLifetime = db.MaxConnLifetime
	poolConfig.MaxConnIdleTime = db.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(db.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}

func sourceKind(xlsxDir string) string {
	if xlsxDir != "" {
		return "xlsx"
	}
	return "gsheets"
}

func sinkKind(s sink.Sink, cfg *config.Config) string {
	if s == nil {
		return "none"
	}
	return cfg.Sink.Kind
}

func historyKind(pool *pgxpool.Pool) string {
	if pool == nil {
		return "memory"
	}
	return "postgres"
}
