// Package sqlite writes datasets into a local SQLite file. SQLite has no
// schemas, so every dataset table becomes "<dataset schema>__<table>".
// Useful for dry runs and for inspecting a push without a Power BI tenant.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/sheetbridge/internal/dataset"
	"github.com/JonMunkholm/sheetbridge/internal/sink"
	"github.com/JonMunkholm/sheetbridge/internal/sink/postgres"
)

// Kind is the sink kind this package registers.
const Kind = "sqlite"

const catalogDDL = `
CREATE TABLE IF NOT EXISTS sheetbridge_datasets (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    prefix      TEXT NOT NULL UNIQUE,
    definition  TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
)`

func init() {
	sink.Register(Kind, newFromConfig)
}

func newFromConfig(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
	if cfg.DSN == "" {
		return nil, errors.New("sqlite sink: SQLITE_PATH is required")
	}
	return Open(ctx, cfg.DSN, cfg.Logger)
}

type datasetEntry struct {
	prefix string
	tables map[string][]dataset.ColumnSchema
}

// Sink implements sink.Sink and sink.Truncater.
type Sink struct {
	db     *sql.DB
	logger *slog.Logger

	mu       sync.Mutex
	datasets map[string]datasetEntry
}

var (
	_ sink.Sink      = (*Sink)(nil)
	_ sink.Truncater = (*Sink)(nil)
)

// Open opens (creating if needed) the database at path and its catalog.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: open: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite sink: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, catalogDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite sink: create catalog: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{
		db:       db,
		logger:   logger.With("sink", Kind),
		datasets: make(map[string]datasetEntry),
	}, nil
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}

// TableName returns the SQLite table holding a dataset table.
func TableName(prefix, table string) string {
	return prefix + "__" + table
}

// ColumnType returns the SQLite column affinity for a dataset type.
func ColumnType(dt dataset.DataType) string {
	switch dt {
	case dataset.Int64, dataset.Boolean:
		return "INTEGER"
	case dataset.Double:
		return "REAL"
	case dataset.Decimal:
		return "NUMERIC"
	default:
		return "TEXT"
	}
}

// CreateTableSQL returns the DDL for one dataset table.
func CreateTableSQL(prefix string, t dataset.Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = sqlIdent(c.Name) + " " + ColumnType(c.DataType)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", sqlIdent(TableName(prefix, t.Name)), strings.Join(cols, ", "))
}

// CreateDataset creates one table per dataset table and records the
// dataset definition in the catalog.
func (s *Sink) CreateDataset(ctx context.Context, ds dataset.Dataset) (string, error) {
	id := uuid.New()
	prefix := postgres.SchemaName(id)
	ds = ds.Schema()

	definition, err := ds.MarshalJSON()
	if err != nil {
		return "", &sink.PushError{Op: sink.OpCreate, Err: err}
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		for _, t := range ds.Tables {
			if _, err := tx.ExecContext(ctx, CreateTableSQL(prefix, t)); err != nil {
				return fmt.Errorf("create table %q: %w", t.Name, err)
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sheetbridge_datasets (id, name, prefix, definition) VALUES (?, ?, ?, ?)`,
			id.String(), ds.Name, prefix, string(definition))
		return err
	})
	if err != nil {
		return "", &sink.PushError{Op: sink.OpCreate, Err: err}
	}

	s.remember(id.String(), prefix, ds.Tables)
	s.logger.Info("dataset created", "dataset_id", id, "prefix", prefix, "tables", len(ds.Tables))
	return id.String(), nil
}

// AppendRows inserts rows in one transaction. Values are converted to the
// column types; keys without a column are dropped.
func (s *Sink) AppendRows(ctx context.Context, datasetID, table string, rows []dataset.Row) error {
	if len(rows) == 0 {
		return nil
	}

	entry, err := s.lookup(ctx, datasetID)
	if err != nil {
		return &sink.PushError{Op: sink.OpAppend, DatasetID: datasetID, Table: table, Err: err}
	}
	columns, ok := entry.tables[table]
	if !ok {
		return &sink.PushError{Op: sink.OpAppend, DatasetID: datasetID, Table: table, Err: errors.New("unknown table")}
	}

	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = sqlIdent(c.Name)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqlIdent(TableName(entry.prefix, table)),
		strings.Join(names, ", "),
		strings.TrimRight(strings.Repeat("?,", len(columns)), ","))

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()

		args := make([]any, len(columns))
		for _, row := range rows {
			for j, c := range columns {
				v, _ := row.Get(c.Name)
				// pgtype values implement driver.Valuer; invalid ones insert NULL.
				args[j] = postgres.ColumnValue(c.DataType, v)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &sink.PushError{Op: sink.OpAppend, DatasetID: datasetID, Table: table, Err: err}
	}
	s.logger.Debug("rows inserted", "dataset_id", datasetID, "table", table, "rows", len(rows))
	return nil
}

// DeleteRows empties a dataset table.
func (s *Sink) DeleteRows(ctx context.Context, datasetID, table string) error {
	entry, err := s.lookup(ctx, datasetID)
	if err != nil {
		return &sink.PushError{Op: sink.OpDelete, DatasetID: datasetID, Table: table, Err: err}
	}
	if _, ok := entry.tables[table]; !ok {
		return &sink.PushError{Op: sink.OpDelete, DatasetID: datasetID, Table: table, Err: errors.New("unknown table")}
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+sqlIdent(TableName(entry.prefix, table))); err != nil {
		return &sink.PushError{Op: sink.OpDelete, DatasetID: datasetID, Table: table, Err: err}
	}
	return nil
}

func (s *Sink) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Sink) remember(id, prefix string, tables []dataset.Table) {
	entry := datasetEntry{prefix: prefix, tables: make(map[string][]dataset.ColumnSchema, len(tables))}
	for _, t := range tables {
		entry.tables[t.Name] = t.Columns
	}

	s.mu.Lock()
	s.datasets[id] = entry
	s.mu.Unlock()
}

func (s *Sink) lookup(ctx context.Context, id string) (datasetEntry, error) {
	s.mu.Lock()
	entry, ok := s.datasets[id]
	s.mu.Unlock()
	if ok {
		return entry, nil
	}

	var prefix, definition string
	err := s.db.QueryRowContext(ctx,
		`SELECT prefix, definition FROM sheetbridge_datasets WHERE id = ?`, id,
	).Scan(&prefix, &definition)
	if errors.Is(err, sql.ErrNoRows) {
		return datasetEntry{}, errors.New("dataset not found")
	}
	if err != nil {
		return datasetEntry{}, err
	}

	tables, err := postgres.DecodeDefinition([]byte(definition))
	if err != nil {
		return datasetEntry{}, err
	}
	s.remember(id, prefix, tables)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datasets[id], nil
}

func sqlIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
