package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/dataset"
)

type truncSink struct {
	deleted []string
	failOn  string
}

func (s *truncSink) CreateDataset(context.Context, dataset.Dataset) (string, error) { return "ds", nil }

func (s *truncSink) AppendRows(context.Context, string, string, []dataset.Row) error { return nil }

func (s *truncSink) DeleteRows(_ context.Context, datasetID, table string) error {
	if table == s.failOn {
		return errors.New("boom")
	}
	s.deleted = append(s.deleted, datasetID+"/"+table)
	return nil
}

type appendOnlySink struct{}

func (appendOnlySink) CreateDataset(context.Context, dataset.Dataset) (string, error) { return "", nil }

func (appendOnlySink) AppendRows(context.Context, string, string, []dataset.Row) error { return nil }

func TestResetTables(t *testing.T) {
	s := &truncSink{}
	r := &Reset{Sink: s}

	require.NoError(t, r.ResetTables(context.Background(), "ds1", []string{"Sheet1", "Sheet2"}))
	assert.Equal(t, []string{"ds1/Sheet1", "ds1/Sheet2"}, s.deleted)
}

func TestResetTables_StopsOnError(t *testing.T) {
	s := &truncSink{failOn: "Sheet1"}
	r := &Reset{Sink: s}

	err := r.ResetTables(context.Background(), "ds1", []string{"Sheet1", "Sheet2"})
	assert.Error(t, err)
	assert.Empty(t, s.deleted)
}

func TestResetTables_NoTables(t *testing.T) {
	r := &Reset{Sink: &truncSink{}}
	assert.ErrorIs(t, r.ResetTables(context.Background(), "ds1", nil), ErrNoTables)
}

func TestResetTables_NotTruncater(t *testing.T) {
	r := &Reset{Sink: appendOnlySink{}}
	assert.ErrorContains(t, r.ResetTables(context.Background(), "ds1", []string{"t"}), "cannot delete rows")
}

func TestPurgeHistory(t *testing.T) {
	ctx := context.Background()
	store := core.NewMemoryRunStore()

	old := time.Now().Add(-48 * time.Hour)
	finished := old.Add(time.Minute)
	require.NoError(t, store.CreateRun(ctx, core.RunRecord{
		ID: uuid.New(), Status: core.RunSucceeded, StartedAt: old, FinishedAt: &finished,
	}))
	require.NoError(t, store.CreateRun(ctx, core.RunRecord{
		ID: uuid.New(), Status: core.RunRunning, StartedAt: time.Now(),
	}))

	r := &Reset{Runs: store}
	n, err := r.PurgeHistory(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestPurgeHistory_NoStore(t *testing.T) {
	_, err := (&Reset{}).PurgeHistory(context.Background(), time.Hour)
	assert.Error(t, err)
}
