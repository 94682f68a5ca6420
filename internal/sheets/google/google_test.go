package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"saldo/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets answers the handful of Sheets API calls the client makes.
type fakeSheets struct {
	mu       sync.Mutex
	tabs     map[string]int64
	nextID   int64
	calls    []string
	written  [][]any
	gets     int
	requests []*gsheet.Request
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		f.gets++
		f.calls = append(f.calls, "get")
		var sheets []map[string]any
		for title, id := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"sheetId": id, "title": title}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "batchUpdate")
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			f.requests = append(f.requests, rq)
			switch {
			case rq.AddSheet != nil:
				f.nextID++
				f.tabs[rq.AddSheet.Properties.Title] = f.nextID
			case rq.UpdateSheetProperties != nil:
				for title, id := range f.tabs {
					if id == rq.UpdateSheetProperties.Properties.SheetId {
						delete(f.tabs, title)
					}
				}
				f.tabs[rq.UpdateSheetProperties.Properties.Title] = rq.UpdateSheetProperties.Properties.SheetId
			case rq.DeleteSheet != nil:
				for title, id := range f.tabs {
					if id == rq.DeleteSheet.SheetId {
						delete(f.tabs, title)
					}
				}
			}
		}
		_, _ = w.Write([]byte(`{}`))
	case strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update")
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.written = vr.Values
		_, _ = w.Write([]byte(`{}`))
	default:
		http.Error(w, "unexpected call "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{tabs: map[string]int64{"Summary": 0}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-1"), fake
}

func sampleAccount() core.Account {
	return core.Account{
		ID:   "0f8d2c4e-1111-2222-3333-444455556666",
		Name: "Checking",
		Transactions: []core.Template{{
			ID:          "t1",
			Date:        core.NewDate(2024, 1, 5),
			Description: "Salary",
			Amount:      core.NewMoney(250000),
			Recurrence:  core.Monthly,
		}},
	}
}

func TestMirrorAccount_CreatesTabAndWritesRows(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	ref, err := c.MirrorAccount(ctx, sampleAccount())
	require.NoError(t, err)
	assert.Equal(t, "'Checking [0f8d2c4e]'!A1:J2", ref)

	assert.Equal(t, []string{"get", "batchUpdate", "clear", "update"}, fake.calls)
	_, ok := fake.tabs["Checking [0f8d2c4e]"]
	assert.True(t, ok)
	require.Len(t, fake.written, 2)
	assert.Equal(t, "ID", fake.written[0][0])
	assert.Equal(t, "2500.00", fake.written[1][5])
}

func TestMirrorAccount_ReusesAndRenamesTab(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	acc := sampleAccount()

	_, err := c.MirrorAccount(ctx, acc)
	require.NoError(t, err)

	fake.calls = nil
	_, err = c.MirrorAccount(ctx, acc)
	require.NoError(t, err)
	assert.Equal(t, []string{"get", "clear", "update"}, fake.calls, "existing tab is not recreated")

	acc.Name = "Main"
	fake.calls = nil
	_, err = c.MirrorAccount(ctx, acc)
	require.NoError(t, err)
	assert.Equal(t, []string{"batchUpdate", "clear", "update"}, fake.calls, "tab list served from cache")
	_, renamed := fake.tabs["Main [0f8d2c4e]"]
	assert.True(t, renamed)
	_, old := fake.tabs["Checking [0f8d2c4e]"]
	assert.False(t, old)
}

func TestRemoveAccount(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	acc := sampleAccount()

	_, err := c.MirrorAccount(ctx, acc)
	require.NoError(t, err)
	require.NoError(t, c.RemoveAccount(ctx, acc.ID))
	_, ok := fake.tabs["Checking [0f8d2c4e]"]
	assert.False(t, ok)

	// Unknown accounts are a no-op.
	require.NoError(t, c.RemoveAccount(ctx, "nope"))
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	_, err := c.MirrorAccount(context.Background(), sampleAccount())
	assert.Error(t, err)
	assert.Error(t, c.RemoveAccount(context.Background(), "a"))
}

func TestNew_Validation(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Equal(t, "missing spreadsheet id", err.Error())

	_, err = New(context.Background(), Config{SpreadsheetID: "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")

	_, err = New(context.Background(), Config{SpreadsheetID: "abc", CredentialsFile: "/does/not/exist.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestTabTitle(t *testing.T) {
	tests := []struct {
		name string
		acc  core.Account
		want string
	}{
		{"plain", core.Account{ID: "abc", Name: "Savings"}, "Savings [abc]"},
		{"long id truncated", core.Account{ID: "0123456789", Name: "Cash"}, "Cash [01234567]"},
		{"forbidden characters", core.Account{ID: "x", Name: "a/b:c[d]?"}, "abcd [x]"},
		{"blank name", core.Account{ID: "x", Name: "  "}, "Account [x]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tabTitle(tt.acc); got != tt.want {
				t.Errorf("tabTitle() = %q, want %q", got, tt.want)
			}
		})
	}

	long := tabTitle(core.Account{ID: "x", Name: strings.Repeat("n", 200)})
	if len(long) != maxTitleLength {
		t.Errorf("len(tabTitle(long)) = %d, want %d", len(long), maxTitleLength)
	}
}

func TestColumnName(t *testing.T) {
	tests := map[int]string{1: "A", 10: "J", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"}
	for n, want := range tests {
		if got := columnName(n); got != want {
			t.Errorf("columnName(%d) = %q, want %q", n, got, want)
		}
	}
}
