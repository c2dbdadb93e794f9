package core

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunStore persists the history of transfer runs.
type RunStore interface {
	CreateRun(ctx context.Context, r RunRecord) error
	FinishRun(ctx context.Context, r RunRecord) error
	GetRun(ctx context.Context, id uuid.UUID) (RunRecord, error)
	// ListRuns returns the newest runs first.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	// PurgeRuns deletes finished runs that started before cutoff.
	PurgeRuns(ctx context.Context, cutoff time.Time) (int64, error)
}

// MemoryRunStore keeps run history in process memory. It is used when no
// database is configured; history is lost on restart.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]RunRecord
}

var _ RunStore = (*MemoryRunStore)(nil)

// NewMemoryRunStore returns an empty store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[uuid.UUID]RunRecord)}
}

func (m *MemoryRunStore) CreateRun(_ context.Context, r RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = r
	return nil
}

func (m *MemoryRunStore) FinishRun(_ context.Context, r RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[r.ID]; !ok {
		return ErrRunNotFound
	}
	m.runs[r.ID] = r
	return nil
}

func (m *MemoryRunStore) GetRun(_ context.Context, id uuid.UUID) (RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return RunRecord{}, ErrRunNotFound
	}
	return r, nil
}

func (m *MemoryRunStore) ListRuns(_ context.Context, limit int) ([]RunRecord, error) {
	m.mu.RLock()
	out := make([]RunRecord, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b RunRecord) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRunStore) PurgeRuns(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.runs {
		if r.FinishedAt != nil && r.StartedAt.Before(cutoff) {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}
