package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetbridge/internal/dataset"
	"github.com/JonMunkholm/sheetbridge/internal/layout"
	"github.com/JonMunkholm/sheetbridge/internal/logging"
	"github.com/JonMunkholm/sheetbridge/internal/sink"
	"github.com/JonMunkholm/sheetbridge/internal/source"
	"github.com/JonMunkholm/sheetbridge/internal/transform"
)

// ErrNoSink is returned by Transfer when the service was built without a sink.
var ErrNoSink = errors.New("no sink configured")

// DefaultTransferTimeout is the maximum duration of one transfer run.
const DefaultTransferTimeout = 10 * time.Minute

// Options configures a Service. Source and Layout are required.
type Options struct {
	Source source.Spreadsheet
	Sink   sink.Sink // nil allows previews only
	// SinkKind is recorded with every run.
	SinkKind string
	Layout   layout.Layout
	Runs     RunStore         // defaults to a MemoryRunStore
	Limiter  *TransferLimiter // defaults to NewTransferLimiter(0, 0)
	Workers  int
	Timeout  time.Duration

	// AttachDataSource adds the spreadsheet link to every dataset, built
	// from SheetsURL and the spreadsheet id.
	AttachDataSource bool
	SheetsURL        string

	Logger *slog.Logger
}

// Service runs transfers from a spreadsheet source into a sink.
type Service struct {
	source    source.Spreadsheet
	sink      sink.Sink
	sinkKind  string
	layout    layout.Layout
	assembler *transform.TableAssembler
	runs      RunStore
	limiter   *TransferLimiter
	timeout   time.Duration
	attach    bool
	sheetsURL string
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new Service instance.
func NewService(opts Options) (*Service, error) {
	if opts.Source == nil {
		return nil, errors.New("core: source is required")
	}
	if err := opts.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	s := &Service{
		source:    opts.Source,
		sink:      opts.Sink,
		sinkKind:  opts.SinkKind,
		layout:    opts.Layout,
		runs:      opts.Runs,
		limiter:   opts.Limiter,
		timeout:   opts.Timeout,
		attach:    opts.AttachDataSource,
		sheetsURL: strings.TrimRight(opts.SheetsURL, "/"),
		logger:    opts.Logger,
		now:       time.Now,
	}
	if s.runs == nil {
		s.runs = NewMemoryRunStore()
	}
	if s.limiter == nil {
		s.limiter = NewTransferLimiter(0, 0)
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTransferTimeout
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.assembler = transform.NewTableAssembler(opts.Layout,
		transform.WithWorkers(opts.Workers),
		transform.WithLogger(s.logger),
	)
	return s, nil
}

// Layout returns the layout the service reads sheets with.
func (s *Service) Layout() layout.Layout {
	return s.layout
}

// Limiter returns the transfer limiter, for health reporting and shutdown.
func (s *Service) Limiter() *TransferLimiter {
	return s.limiter
}

// BuildDataset reads every sheet of the spreadsheet and assembles the
// dataset a transfer would push. The dataset is named after the spreadsheet
// file; failing to read the file metadata or the sheet list is fatal, while
// failing sheets are reported in the returned Result and left out.
func (s *Service) BuildDataset(ctx context.Context, spreadsheetID string) (dataset.Dataset, transform.Result, error) {
	meta, err := s.source.FileMetadata(ctx, spreadsheetID)
	if err != nil {
		return dataset.Dataset{}, transform.Result{}, fmt.Errorf("resolve dataset name: %w", err)
	}

	res, err := s.assembler.Assemble(ctx, s.source, spreadsheetID)
	if err != nil {
		return dataset.Dataset{}, transform.Result{}, fmt.Errorf("assemble tables: %w", err)
	}

	b := dataset.NewBuilder(meta.Name)
	for _, t := range res.Tables {
		b.AddTable(t)
	}
	if s.attach {
		b.AddDataSource(dataset.DataSource{
			Type: dataset.SourceWeb,
			ConnectionDetails: map[string]string{
				"path": s.sheetsURL + "/" + spreadsheetID,
				"kind": string(dataset.SourceGoogleSheets),
			},
		})
	}
	return b.Build(), res, nil
}

// Preview builds the dataset without pushing it and keeps at most
// sampleRows rows per table. A negative sampleRows keeps every row.
func (s *Service) Preview(ctx context.Context, spreadsheetID string, sampleRows int) (Preview, error) {
	ds, res, err := s.BuildDataset(ctx, spreadsheetID)
	if err != nil {
		return Preview{}, err
	}

	p := Preview{
		Skipped:      res.Skipped,
		SchemaFaults: res.SchemaFaults,
		DecodeFaults: res.DecodeFaults,
		TotalRows:    ds.RowCount(),
	}
	if sampleRows >= 0 {
		tables := make([]dataset.Table, len(ds.Tables))
		for i, t := range ds.Tables {
			if len(t.Rows) > sampleRows {
				t.Rows = t.Rows[:sampleRows]
			}
			tables[i] = t
		}
		ds.Tables = tables
	}
	p.Dataset = ds
	return p, nil
}

// Transfer builds the dataset for req.SpreadsheetID and pushes it into the
// sink: the compacted schema first, then the rows of every table. The run
// is recorded in the run history whatever the outcome. Source metadata and
// sink failures fail the run; sheet failures only skip their table.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (RunRecord, error) {
	if s.sink == nil {
		return RunRecord{}, ErrNoSink
	}
	if req.SpreadsheetID == "" {
		return RunRecord{}, errors.New("spreadsheet id is required")
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return RunRecord{}, err
	}
	defer s.limiter.Release()

	origin := RunOriginFrom(ctx)
	run := RunRecord{
		ID:            uuid.New(),
		SpreadsheetID: req.SpreadsheetID,
		ReportID:      req.ReportID,
		DatasetID:     req.DatasetID,
		Layout:        s.layout.Name,
		Sink:          s.sinkKind,
		Status:        RunRunning,
		IPAddress:     origin.IPAddress,
		UserAgent:     origin.UserAgent,
		StartedAt:     s.now().UTC(),
	}
	logger := s.logger.With("run_id", run.ID.String(), "spreadsheet_id", req.SpreadsheetID)

	// History is best effort; a broken store must not block transfers.
	if err := s.runs.CreateRun(ctx, run); err != nil {
		logger.Warn("record run start failed", "error", err)
	}

	runCtx, cancel := context.WithTimeout(logging.WithRun(ctx, run.ID.String()), s.timeout)
	defer cancel()

	logger.Info("transfer started", "layout", run.Layout, "sink", run.Sink)
	err := s.push(runCtx, req, &run, logger)

	finished := s.now().UTC()
	run.FinishedAt = &finished
	if err != nil {
		msg := MapError(err)
		run.Status = RunFailed
		run.ErrorCode = msg.Code
		run.ErrorMessage = err.Error()
		logger.Error("transfer failed", "error", err, "code", msg.Code)
	} else {
		run.Status = RunSucceeded
		logger.Info("transfer completed",
			"dataset_id", run.DatasetID,
			"tables", run.Tables,
			"rows", run.Rows,
			"skipped", len(run.Skipped),
			"duration_ms", run.Duration().Milliseconds(),
		)
	}

	// The run context may be spent; finish the record on the caller's.
	if ferr := s.runs.FinishRun(context.WithoutCancel(ctx), run); ferr != nil {
		logger.Warn("record run finish failed", "error", ferr)
	}
	return run, err
}

func (s *Service) push(ctx context.Context, req TransferRequest, run *RunRecord, logger *slog.Logger) error {
	ds, res, err := s.BuildDataset(ctx, req.SpreadsheetID)
	if err != nil {
		return err
	}
	run.DatasetName = ds.Name
	run.Tables = len(ds.Tables)
	run.Rows = ds.RowCount()
	run.Skipped = skippedNames(res.Skipped)
	run.SchemaFaults = res.SchemaFaults
	run.DecodeFaults = res.DecodeFaults

	datasetID := req.DatasetID
	if datasetID == "" {
		datasetID, err = s.sink.CreateDataset(ctx, ds)
		if err != nil {
			return err
		}
		run.DatasetID = datasetID
		logger.Info("dataset created", "dataset_id", datasetID, "name", ds.Name, "tables", len(ds.Tables))
	} else if req.Replace {
		tr, ok := s.sink.(sink.Truncater)
		if !ok {
			return fmt.Errorf("sink %s cannot delete rows", s.sinkKind)
		}
		for _, t := range ds.Tables {
			if err := tr.DeleteRows(ctx, datasetID, t.Name); err != nil {
				return err
			}
		}
	}

	for _, t := range ds.Tables {
		if len(t.Rows) == 0 {
			continue
		}
		if err := s.sink.AppendRows(ctx, datasetID, t.Name, t.Rows); err != nil {
			return err
		}
		logger.Debug("rows appended", "table", t.Name, "rows", len(t.Rows))
	}
	return nil
}

// GetRun returns one run from the history.
func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (RunRecord, error) {
	return s.runs.GetRun(ctx, id)
}

// ListRuns returns the newest runs first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	return s.runs.ListRuns(ctx, limit)
}
