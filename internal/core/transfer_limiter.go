package core

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyTransfers is returned when every transfer slot stays occupied
// for the limiter's wait time. Clients should retry after a short delay.
var ErrTooManyTransfers = errors.New("too many transfers in progress")

// DefaultMaxConcurrentTransfers is the default limit for parallel runs.
const DefaultMaxConcurrentTransfers = 2

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// TransferLimiter bounds the number of transfer runs in flight. Each run
// talks to the source and the sink for minutes, so an unbounded number of
// them would exhaust the sink's request budget.
type TransferLimiter struct {
	sem     *semaphore.Weighted
	max     int64
	maxWait time.Duration
	active  atomic.Int64
}

// NewTransferLimiter creates a limiter that allows at most maxConcurrent
// simultaneous runs. Acquire gives up after maxWait.
func NewTransferLimiter(maxConcurrent int, maxWait time.Duration) *TransferLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentTransfers
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &TransferLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     int64(maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a transfer slot. It returns ErrTooManyTransfers when the
// wait time expires and ctx.Err() when ctx ends first.
// The caller MUST call Release when the run completes.
func (l *TransferLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyTransfers
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking.
func (l *TransferLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release gives back a slot taken by Acquire or TryAcquire.
func (l *TransferLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of runs holding a slot.
func (l *TransferLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *TransferLimiter) MaxConcurrent() int {
	return int(l.max)
}

// Available returns the number of free slots.
func (l *TransferLimiter) Available() int {
	return int(l.max - l.active.Load())
}

// WaitForDrain blocks until every running transfer has released its slot,
// then holds all slots so no new run can start. Used on shutdown.
func (l *TransferLimiter) WaitForDrain(ctx context.Context) error {
	return l.sem.Acquire(ctx, l.max)
}

// TransferLimiterStatus is a snapshot of the limiter.
type TransferLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for the health endpoint.
func (l *TransferLimiter) Status() TransferLimiterStatus {
	active := l.ActiveCount()
	return TransferLimiterStatus{
		Active:        active,
		Available:     int(l.max) - active,
		MaxConcurrent: int(l.max),
	}
}
