package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const runsDDL = `
CREATE TABLE IF NOT EXISTS sheetbridge_runs (
	id             uuid PRIMARY KEY,
	spreadsheet_id text        NOT NULL,
	report_id      text        NOT NULL DEFAULT '',
	dataset_name   text        NOT NULL DEFAULT '',
	dataset_id     text        NOT NULL DEFAULT '',
	layout         text        NOT NULL,
	sink           text        NOT NULL,
	status         text        NOT NULL,
	tables         integer     NOT NULL DEFAULT 0,
	rows           integer     NOT NULL DEFAULT 0,
	skipped        text[]      NOT NULL DEFAULT '{}',
	schema_faults  integer     NOT NULL DEFAULT 0,
	decode_faults  integer     NOT NULL DEFAULT 0,
	error_code     text        NOT NULL DEFAULT '',
	error_message  text        NOT NULL DEFAULT '',
	ip_address     text        NOT NULL DEFAULT '',
	user_agent     text        NOT NULL DEFAULT '',
	started_at     timestamptz NOT NULL,
	finished_at    timestamptz
);
CREATE INDEX IF NOT EXISTS sheetbridge_runs_started_at ON sheetbridge_runs (started_at DESC);
`

const runColumns = `id, spreadsheet_id, report_id, dataset_name, dataset_id, layout, sink, status,
	tables, rows, skipped, schema_faults, decode_faults, error_code, error_message,
	ip_address, user_agent, started_at, finished_at`

// PgRunStore keeps run history in PostgreSQL.
type PgRunStore struct {
	pool *pgxpool.Pool
}

var _ RunStore = (*PgRunStore)(nil)

// NewPgRunStore returns a store on pool. Call EnsureSchema once at startup.
func NewPgRunStore(pool *pgxpool.Pool) *PgRunStore {
	return &PgRunStore{pool: pool}
}

// EnsureSchema creates the runs table if it does not exist.
func (s *PgRunStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, runsDDL); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}

func (s *PgRunStore) CreateRun(ctx context.Context, r RunRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sheetbridge_runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		runArgs(r)...,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

func (s *PgRunStore) FinishRun(ctx context.Context, r RunRecord) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sheetbridge_runs SET
			dataset_name = $2, dataset_id = $3, status = $4, tables = $5, rows = $6,
			skipped = $7, schema_faults = $8, decode_faults = $9,
			error_code = $10, error_message = $11, finished_at = $12
		WHERE id = $1`,
		r.ID, r.DatasetName, r.DatasetID, string(r.Status), r.Tables, r.Rows,
		nonNil(r.Skipped), r.SchemaFaults, r.DecodeFaults,
		r.ErrorCode, r.ErrorMessage, timestamptz(r.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *PgRunStore) GetRun(ctx context.Context, id uuid.UUID) (RunRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM sheetbridge_runs WHERE id = $1`, id)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return RunRecord{}, ErrRunNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

func (s *PgRunStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM sheetbridge_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PgRunStore) PurgeRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sheetbridge_runs WHERE finished_at IS NOT NULL AND started_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func runArgs(r RunRecord) []any {
	return []any{
		r.ID, r.SpreadsheetID, r.ReportID, r.DatasetName, r.DatasetID, r.Layout, r.Sink, string(r.Status),
		r.Tables, r.Rows, nonNil(r.Skipped), r.SchemaFaults, r.DecodeFaults, r.ErrorCode, r.ErrorMessage,
		r.IPAddress, r.UserAgent, r.StartedAt, timestamptz(r.FinishedAt),
	}
}

func scanRun(row pgx.Row) (RunRecord, error) {
	var (
		r        RunRecord
		status   string
		finished pgtype.Timestamptz
	)
	err := row.Scan(
		&r.ID, &r.SpreadsheetID, &r.ReportID, &r.DatasetName, &r.DatasetID, &r.Layout, &r.Sink, &status,
		&r.Tables, &r.Rows, &r.Skipped, &r.SchemaFaults, &r.DecodeFaults, &r.ErrorCode, &r.ErrorMessage,
		&r.IPAddress, &r.UserAgent, &r.StartedAt, &finished,
	)
	if err != nil {
		return RunRecord{}, err
	}
	r.Status = RunStatus(status)
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	if len(r.Skipped) == 0 {
		r.Skipped = nil
	}
	return r, nil
}

func timestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
