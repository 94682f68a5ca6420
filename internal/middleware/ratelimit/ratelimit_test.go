package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, rps float64, burst int) *Limiter {
	t.Helper()
	rl := NewLimiter(Config{RPS: rps, Burst: burst, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	return rl
}

func TestLimiter_Allow(t *testing.T) {
	rl := newTestLimiter(t, 1, 2)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst exhausted")
	assert.True(t, rl.Allow("b"), "buckets are per client")

	rl.now = func() time.Time { return base.Add(1100 * time.Millisecond) }
	assert.True(t, rl.Allow("a"), "one token refilled after a second")

	assert.Equal(t, int64(1), rl.Rejections())
	assert.Equal(t, 2, rl.ActiveClients())
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl := newTestLimiter(t, 1, 1)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }
	rl.Allow("old")

	rl.now = func() time.Time { return base.Add(9 * time.Minute) }
	rl.Allow("recent")

	rl.now = func() time.Time { return base.Add(11 * time.Minute) }
	if got := rl.cleanupStaleEntries(); got != 1 {
		t.Errorf("cleanupStaleEntries() = %d, want 1", got)
	}
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestMiddleware_OnlyMutatingMethods(t *testing.T) {
	rl := newTestLimiter(t, 0.5, 1)
	handler := rl.Middleware(
		func(*http.Request) string { return "client" },
		nil,
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodPut, http.StatusTooManyRequests},
		{http.MethodDelete, http.StatusTooManyRequests},
	}
	for i, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/accounts", nil))
		if rec.Code != tt.want {
			t.Errorf("request %d %s: status = %d, want %d", i, tt.method, rec.Code, tt.want)
		}
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "2", rec.Header().Get("Retry-After"))
		}
	}
}

func TestNewLimiter_Defaults(t *testing.T) {
	rl := newTestLimiter(t, 0, 0)
	assert.Equal(t, 10.0, float64(rl.limit))
	assert.Equal(t, 10, rl.burst)
}
