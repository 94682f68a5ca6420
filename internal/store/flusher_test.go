package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingPersister remembers every state it was asked to write and
// fails while failing is set.
type recordingPersister struct {
	mu      sync.Mutex
	failing bool
	calls   int
	saved   []State
}

func (p *recordingPersister) Persist(_ context.Context, state State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failing {
		return errors.New("disk full")
	}
	p.saved = append(p.saved, state)
	return nil
}

func (p *recordingPersister) snapshot() (int, []State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls, append([]State(nil), p.saved...)
}

func (p *recordingPersister) setFailing(v bool) {
	p.mu.Lock()
	p.failing = v
	p.mu.Unlock()
}

func TestFlusher_CoalescesBursts(t *testing.T) {
	st := newTestStore(t)
	p := &recordingPersister{}
	f := NewFlusher(st, p, 20*time.Millisecond, discardLogger())
	st.OnChange(f.MarkDirty)
	ctx := context.Background()
	a := st.ActiveAccountID()

	for i := range 5 {
		_, err := st.AddTemplate(ctx, a, draft(core.NewDate(2024, 1, 1+i), "x", 100, core.OneTime), "")
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		calls, _ := p.snapshot()
		return calls == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, f.Dirty())

	_, saved := p.snapshot()
	require.Len(t, saved, 1)
	assert.Len(t, saved[0].Accounts[0].Transactions, 5)

	// Nothing pending: an explicit flush is a no-op.
	require.NoError(t, f.Flush(ctx))
	calls, _ := p.snapshot()
	assert.Equal(t, 1, calls)
}

func TestFlusher_FailedFlushRetriesFullState(t *testing.T) {
	st := newTestStore(t)
	p := &recordingPersister{failing: true}
	f := NewFlusher(st, p, time.Hour, discardLogger())
	st.OnChange(f.MarkDirty)
	ctx := context.Background()
	a := st.ActiveAccountID()

	_, err := st.AddTemplate(ctx, a, draft(core.NewDate(2024, 1, 1), "first", 100, core.OneTime), "")
	require.NoError(t, err)
	require.Error(t, f.Flush(ctx))
	assert.True(t, f.Dirty(), "a failed flush keeps the state dirty")

	p.setFailing(false)
	_, err = st.AddTemplate(ctx, a, draft(core.NewDate(2024, 1, 2), "second", 100, core.OneTime), "")
	require.NoError(t, err)
	require.NoError(t, f.Flush(ctx))
	assert.False(t, f.Dirty())

	calls, saved := p.snapshot()
	assert.Equal(t, 2, calls)
	require.Len(t, saved, 1)
	var descs []string
	for _, tx := range saved[0].Accounts[0].Transactions {
		descs = append(descs, tx.Description)
	}
	assert.Equal(t, []string{"first", "second"}, descs, "the retry writes the whole state, not the delta")
}

func TestFlusher_CloseFlushesPending(t *testing.T) {
	st := newTestStore(t)
	p := &recordingPersister{}
	f := NewFlusher(st, p, time.Hour, discardLogger())
	st.OnChange(f.MarkDirty)

	_, err := st.CreateAccount("Late")
	require.NoError(t, err)
	require.NoError(t, f.Close(context.Background()))

	_, saved := p.snapshot()
	require.Len(t, saved, 1)
	assert.Len(t, saved[0].Accounts, 2)
	assert.False(t, f.Dirty())
}

func TestFlusher_NoTimerAfterClose(t *testing.T) {
	st := newTestStore(t)
	p := &recordingPersister{}
	f := NewFlusher(st, p, 5*time.Millisecond, discardLogger())
	st.OnChange(f.MarkDirty)
	require.NoError(t, f.Close(context.Background()))

	_, err := st.CreateAccount("After")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	calls, _ := p.snapshot()
	assert.Zero(t, calls, "a closed flusher only writes on an explicit Flush")
	assert.True(t, f.Dirty())

	require.NoError(t, f.Flush(context.Background()))
	calls, _ = p.snapshot()
	assert.Equal(t, 1, calls)
}

func TestPersisterFunc(t *testing.T) {
	var got State
	p := PersisterFunc(func(_ context.Context, s State) error {
		got = s
		return nil
	})
	require.NoError(t, p.Persist(context.Background(), State{ActiveAccountID: "x"}))
	assert.Equal(t, "x", got.ActiveAccountID)
}
