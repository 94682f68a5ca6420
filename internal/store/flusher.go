package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is the quiet interval before dirty state is flushed.
const DefaultDebounce = 500 * time.Millisecond

const flushTimeout = 30 * time.Second

// Persister writes a full state snapshot to durable storage.
type Persister interface {
	Persist(ctx context.Context, state State) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, state State) error

func (f PersisterFunc) Persist(ctx context.Context, state State) error {
	return f(ctx, state)
}

// Snapshotter is the read side of Store used by the flusher.
type Snapshotter interface {
	Snapshot() State
}

// Flusher coalesces bursts of mutations into one write of the full state.
//
// MarkDirty (re)arms a single timer. When it fires the whole current state
// is persisted, so a failed write is repaired by the next successful one.
// Failures are logged and leave the flusher dirty; there is no background
// retry, the next MarkDirty or Flush tries again.
type Flusher struct {
	src       Snapshotter
	persister Persister
	delay     time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	dirty  bool
	closed bool

	// writeMu serialises persister calls.
	writeMu sync.Mutex
}

func NewFlusher(src Snapshotter, persister Persister, delay time.Duration, logger *slog.Logger) *Flusher {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Flusher{
		src:       src,
		persister: persister,
		delay:     delay,
		logger:    logger,
	}
}

// MarkDirty records a pending change and restarts the quiet interval.
func (f *Flusher) MarkDirty() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirty = true
	if f.closed {
		return
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		_ = f.flush(ctx)
	})
}

// Dirty reports whether there are changes not yet persisted.
func (f *Flusher) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

// Flush cancels any pending timer and persists immediately if dirty.
func (f *Flusher) Flush(ctx context.Context) error {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()
	return f.flush(ctx)
}

func (f *Flusher) flush(ctx context.Context) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	f.mu.Lock()
	if !f.dirty {
		f.mu.Unlock()
		return nil
	}
	f.dirty = false
	f.mu.Unlock()

	start := time.Now()
	state := f.src.Snapshot()
	if err := f.persister.Persist(ctx, state); err != nil {
		f.mu.Lock()
		f.dirty = true
		f.mu.Unlock()
		f.logger.ErrorContext(ctx, "Flush failed, changes kept for next attempt",
			"accounts", len(state.Accounts),
			"error", err)
		return err
	}
	f.logger.DebugContext(ctx, "State flushed",
		"accounts", len(state.Accounts),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Close stops arming timers and persists whatever is pending. Call it
// once no more mutations can arrive, e.g. after the HTTP server has drained.
func (f *Flusher) Close(ctx context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	if err := f.Flush(ctx); err != nil {
		return err
	}
	f.logger.InfoContext(ctx, "Final flush completed")
	return nil
}
