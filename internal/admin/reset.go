// Package admin provides destructive maintenance operations: clearing pushed
// tables and purging run history.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/sink"
)

// ResetTimeout is the maximum duration for a reset operation.
const ResetTimeout = 30 * time.Second

// ErrNoTables is returned when a reset names no tables.
var ErrNoTables = errors.New("no tables to reset")

// Reset clears data that a transfer has written.
type Reset struct {
	Sink   sink.Sink
	Runs   core.RunStore
	Logger *slog.Logger
}

type resetFn func(ctx context.Context) error

// ResetTables deletes every row of the named tables in datasetID. The
// dataset and its schema are left in place so the next transfer can append
// with Replace unset. This is a destructive operation.
func (r *Reset) ResetTables(ctx context.Context, datasetID string, tables []string) error {
	if len(tables) == 0 {
		return ErrNoTables
	}
	tr, ok := r.Sink.(sink.Truncater)
	if !ok {
		return fmt.Errorf("sink %T cannot delete rows", r.Sink)
	}

	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	resets := make([]resetFn, 0, len(tables))
	for _, table := range tables {
		resets = append(resets, func(ctx context.Context) error {
			if err := tr.DeleteRows(ctx, datasetID, table); err != nil {
				return err
			}
			r.logger().Info("table reset", "dataset_id", datasetID, "table", table)
			return nil
		})
	}
	return runResets(ctx, resets)
}

// PurgeHistory removes finished runs older than age and returns how many
// were deleted.
func (r *Reset) PurgeHistory(ctx context.Context, age time.Duration) (int64, error) {
	if r.Runs == nil {
		return 0, errors.New("no run history configured")
	}

	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	n, err := r.Runs.PurgeRuns(ctx, time.Now().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	r.logger().Info("history purged", "deleted", n, "older_than", age)
	return n, nil
}

func (r *Reset) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func runResets(ctx context.Context, resets []resetFn) error {
	for _, reset := range resets {
		if err := reset(ctx); err != nil {
			return err
		}
	}
	return nil
}
