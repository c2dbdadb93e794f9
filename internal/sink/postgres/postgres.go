// Package postgres writes datasets into PostgreSQL. Each dataset gets its own
// schema with one table per dataset table; rows are loaded with COPY.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/sheetbridge/internal/dataset"
	"github.com/JonMunkholm/sheetbridge/internal/sink"
)

// Kind is the sink kind this package registers.
const Kind = "postgres"

const catalogDDL = `
CREATE TABLE IF NOT EXISTS sheetbridge_datasets (
    id          uuid PRIMARY KEY,
    name        text NOT NULL,
    schema_name text NOT NULL UNIQUE,
    definition  jsonb NOT NULL,
    created_at  timestamptz NOT NULL DEFAULT now()
)`

func init() {
	sink.Register(Kind, newFromConfig)
}

func newFromConfig(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres sink: DATABASE_URL is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: connect: %w", err)
	}

	s := New(pool, cfg.Logger)
	if err := s.EnsureCatalog(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s.ownsPool = true
	return s, nil
}

type datasetEntry struct {
	schema string
	tables map[string][]dataset.ColumnSchema
}

// Sink implements sink.Sink and sink.Truncater.
type Sink struct {
	pool     *pgxpool.Pool
	logger   *slog.Logger
	ownsPool bool

	mu       sync.Mutex
	datasets map[string]datasetEntry
}

var (
	_ sink.Sink      = (*Sink)(nil)
	_ sink.Truncater = (*Sink)(nil)
)

// New returns a Sink over an existing pool. Call EnsureCatalog once before use.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{
		pool:     pool,
		logger:   logger.With("sink", Kind),
		datasets: make(map[string]datasetEntry),
	}
}

// EnsureCatalog creates the dataset catalog table if needed.
func (s *Sink) EnsureCatalog(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, catalogDDL); err != nil {
		return fmt.Errorf("postgres sink: create catalog: %w", err)
	}
	return nil
}

// Close releases the pool when the sink created it.
func (s *Sink) Close() error {
	if s.ownsPool {
		s.pool.Close()
	}
	return nil
}

// SchemaName returns the schema that holds the tables of a dataset.
func SchemaName(id uuid.UUID) string {
	return "ds_" + strings.ReplaceAll(id.String(), "-", "")
}

// CreateTableSQL returns the DDL for one dataset table.
func CreateTableSQL(schema string, t dataset.Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = pgx.Identifier{c.Name}.Sanitize() + " " + ColumnType(c.DataType)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)",
		pgx.Identifier{schema, t.Name}.Sanitize(),
		strings.Join(cols, ", "))
}

// CreateDataset creates a schema with one table per dataset table and
// records the dataset definition in the catalog.
func (s *Sink) CreateDataset(ctx context.Context, ds dataset.Dataset) (string, error) {
	id := uuid.New()
	schema := SchemaName(id)
	ds = ds.Schema()

	definition, err := json.Marshal(ds)
	if err != nil {
		return "", &sink.PushError{Op: sink.OpCreate, Err: err}
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize()); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		for _, t := range ds.Tables {
			if _, err := tx.Exec(ctx, CreateTableSQL(schema, t)); err != nil {
				return fmt.Errorf("create table %q: %w", t.Name, err)
			}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO sheetbridge_datasets (id, name, schema_name, definition) VALUES ($1, $2, $3, $4)`,
			id, ds.Name, schema, definition)
		return err
	})
	if err != nil {
		return "", &sink.PushError{Op: sink.OpCreate, Err: err}
	}

	s.remember(id.String(), schema, ds.Tables)
	s.logger.Info("dataset created", "dataset_id", id, "schema", schema, "tables", len(ds.Tables))
	return id.String(), nil
}

// AppendRows copies rows into a dataset table. Values are converted to the
// column types; keys without a column (such as dataset.UndefinedKey) are
// dropped.
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
		names[i] = c.Name
	}

	data := make([][]any, len(rows))
	for i, row := range rows {
		values := make([]any, len(columns))
		for j, c := range columns {
			v, _ := row.Get(c.Name)
			values[j] = ColumnValue(c.DataType, v)
		}
		data[i] = values
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{entry.schema, table}, names, pgx.CopyFromRows(data))
	if err != nil {
		return &sink.PushError{Op: sink.OpAppend, DatasetID: datasetID, Table: table, Err: err}
	}
	s.logger.Debug("rows copied", "dataset_id", datasetID, "table", table, "rows", n)
	return nil
}

// DeleteRows truncates a dataset table.
func (s *Sink) DeleteRows(ctx context.Context, datasetID, table string) error {
	entry, err := s.lookup(ctx, datasetID)
	if err != nil {
		return &sink.PushError{Op: sink.OpDelete, DatasetID: datasetID, Table: table, Err: err}
	}
	if _, err := s.pool.Exec(ctx, "TRUNCATE "+pgx.Identifier{entry.schema, table}.Sanitize()); err != nil {
		return &sink.PushError{Op: sink.OpDelete, DatasetID: datasetID, Table: table, Err: err}
	}
	return nil
}

func (s *Sink) remember(id, schema string, tables []dataset.Table) {
	entry := datasetEntry{schema: schema, tables: make(map[string][]dataset.ColumnSchema, len(tables))}
	for _, t := range tables {
		entry.tables[t.Name] = t.Columns
	}

	s.mu.Lock()
	s.datasets[id] = entry
	s.mu.Unlock()
}

// lookup returns a dataset from the cache, or from the catalog for datasets
// created by another process.
func (s *Sink) lookup(ctx context.Context, id string) (datasetEntry, error) {
	s.mu.Lock()
	entry, ok := s.datasets[id]
	s.mu.Unlock()
	if ok {
		return entry, nil
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return datasetEntry{}, fmt.Errorf("invalid dataset id: %w", err)
	}

	var schema string
	var definition []byte
	err = s.pool.QueryRow(ctx,
		`SELECT schema_name, definition FROM sheetbridge_datasets WHERE id = $1`, parsed,
	).Scan(&schema, &definition)
	if errors.Is(err, pgx.ErrNoRows) {
		return datasetEntry{}, errors.New("dataset not found")
	}
	if err != nil {
		return datasetEntry{}, err
	}

	tables, err := DecodeDefinition(definition)
	if err != nil {
		return datasetEntry{}, err
	}
	s.remember(id, schema, tables)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datasets[id], nil
}

// DecodeDefinition reads table names and column types back from a canonical
// dataset document.
func DecodeDefinition(data []byte) ([]dataset.Table, error) {
	var doc struct {
		Tables []struct {
			Name    string `json:"name"`
			Columns []struct {
				Name     string `json:"name"`
				DataType string `json:"dataType"`
			} `json:"columns"`
		} `json:"tables"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode dataset definition: %w", err)
	}

	tables := make([]dataset.Table, len(doc.Tables))
	for i, t := range doc.Tables {
		tables[i].Name = t.Name
		for _, c := range t.Columns {
			tables[i].Columns = append(tables[i].Columns, dataset.NewColumn(c.Name, dataset.DataType(c.DataType)))
		}
	}
	return tables, nil
}
