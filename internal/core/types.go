package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetbridge/internal/dataset"
	"github.com/JonMunkholm/sheetbridge/internal/transform"
)

// RunStatus is the lifecycle state of a transfer run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// TransferRequest asks for one spreadsheet to be pushed into the sink.
type TransferRequest struct {
	SpreadsheetID string `json:"google_sheet_id"`

	// ReportID is the report the dataset is meant for. It is recorded with
	// the run; the report itself is never touched.
	ReportID string `json:"pbi_report_id,omitempty"`

	// DatasetID targets an existing dataset instead of creating one.
	DatasetID string `json:"dataset_id,omitempty"`

	// Replace deletes the existing rows of every table before appending.
	// Only meaningful with DatasetID.
	Replace bool `json:"replace,omitempty"`
}

// RunRecord is the history entry of one transfer run.
type RunRecord struct {
	ID            uuid.UUID  `json:"id"`
	SpreadsheetID string     `json:"spreadsheet_id"`
	ReportID      string     `json:"report_id,omitempty"`
	DatasetName   string     `json:"dataset_name,omitempty"`
	DatasetID     string     `json:"dataset_id,omitempty"`
	Layout        string     `json:"layout"`
	Sink          string     `json:"sink"`
	Status        RunStatus  `json:"status"`
	Tables        int        `json:"tables"`
	Rows          int        `json:"rows"`
	Skipped       []string   `json:"skipped,omitempty"`
	SchemaFaults  int        `json:"schema_faults"`
	DecodeFaults  int        `json:"decode_faults"`
	ErrorCode     string     `json:"error_code,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	IPAddress     string     `json:"-"`
	UserAgent     string     `json:"-"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Preview is a dry run: the dataset a transfer would push, with rows cut to
// a sample.
type Preview struct {
	Dataset      dataset.Dataset
	Skipped      []transform.SkippedTable
	SchemaFaults int
	DecodeFaults int
	TotalRows    int
}

func skippedNames(skipped []transform.SkippedTable) []string {
	if len(skipped) == 0 {
		return nil
	}
	names := make([]string, len(skipped))
	for i, s := range skipped {
		names[i] = s.Name
	}
	return names
}
