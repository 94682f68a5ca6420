package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/csvio"
	"saldo/internal/ledger"
	"saldo/internal/store"
)

func TestListAccounts(t *testing.T) {
	srv, _ := newTestServer(t)

	accounts := decode[[]core.Account](t, do(t, srv, http.MethodGet, "/api/accounts", ""))
	require.Len(t, accounts, 2)
	assert.Equal(t, "acc-1", accounts[0].ID)
	assert.Len(t, accounts[0].Transactions, 3)
}

func TestListAccounts_Expanded(t *testing.T) {
	srv, _ := newTestServer(t)

	type expanded struct {
		ID           string          `json:"id"`
		Transactions []core.Instance `json:"transactions"`
	}
	accounts := decode[[]expanded](t, do(t, srv, http.MethodGet, "/api/accounts?expand=true", ""))
	require.Len(t, accounts, 2)

	horizon := core.NewDate(2025, 3, 15)
	rent := 0
	ids := make(map[string]bool)
	for _, inst := range accounts[0].Transactions {
		ids[inst.ID] = true
		assert.False(t, inst.Date.After(horizon), "instance %s beyond horizon", inst.ID)
		if inst.TemplateID() == "rent" {
			rent++
		}
	}
	// Jan 2024 through Mar 2025.
	assert.Equal(t, 15, rent)
	assert.True(t, ids["rent"], "anchor keeps the template id")
	assert.True(t, ids["rent-2024-02-01"], "server-style ids for generated occurrences")
	assert.NotNil(t, accounts[1].Transactions)
	assert.Empty(t, accounts[1].Transactions)
}

func TestReplaceAccounts(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantIDs  []string
	}{
		{
			name:     "array",
			body:     `[{"id":"a","name":"A","transactions":[{"id":"t1","date":"2024-01-02","description":"x","amount":-5,"recurrence":"one-time"}]},{"id":"b","name":"B","transactions":[]}]`,
			wantCode: http.StatusOK,
			wantIDs:  []string{"a", "b"},
		},
		{
			name:     "single object",
			body:     `{"id":"solo","name":"Solo","transactions":[]}`,
			wantCode: http.StatusOK,
			wantIDs:  []string{"solo"},
		},
		{
			name:     "empty array is a no-op",
			body:     `[]`,
			wantCode: http.StatusOK,
			wantIDs:  []string{"acc-1", "acc-2"},
		},
		{
			name:     "malformed",
			body:     `[{"id":`,
			wantCode: http.StatusBadRequest,
			wantIDs:  []string{"acc-1", "acc-2"},
		},
		{
			name:     "bad date",
			body:     `[{"id":"a","name":"A","transactions":[{"id":"t1","date":"2024-02-30","description":"x","amount":1}]}]`,
			wantCode: http.StatusUnprocessableEntity,
			wantIDs:  []string{"acc-1", "acc-2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, st := newTestServer(t)
			rec := do(t, srv, http.MethodPost, "/api/accounts", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			var ids []string
			for _, a := range st.Accounts() {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestReplaceTransactions(t *testing.T) {
	srv, st := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/transactions",
		`{"accountId":"acc-2","transactions":[{"id":"dep","date":"2024-03-02","description":"Deposit","amount":"100.50"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]bool{"success": true}, decode[map[string]bool](t, rec))

	acc, err := st.Account("acc-2")
	require.NoError(t, err)
	require.Len(t, acc.Transactions, 1)
	assert.Equal(t, int64(10050), acc.Transactions[0].Amount.Cents)
	assert.Equal(t, core.OneTime, acc.Transactions[0].Recurrence)

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/transactions", `{"transactions":[]}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/api/transactions", `{"accountId":"nope","transactions":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/transactions", "").Code)
}

func TestActiveAccount(t *testing.T) {
	srv, st := newTestServer(t)

	got := decode[map[string]string](t, do(t, srv, http.MethodGet, "/api/active-account", ""))
	assert.Equal(t, "acc-1", got["activeAccountId"])

	rec := do(t, srv, http.MethodPost, "/api/active-account", `{"activeAccountId":"acc-2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc-2", st.ActiveAccountID())

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/api/active-account", `{"activeAccountId":"ghost"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/active-account", `{}`).Code)
}

func TestEntryHistories(t *testing.T) {
	srv, _ := newTestServer(t)

	empty := decode[store.History](t, do(t, srv, http.MethodGet, "/api/entry-histories/acc-2", ""))
	assert.Empty(t, empty.Payees)
	assert.NotNil(t, empty.Payees)

	rec := do(t, srv, http.MethodPost, "/api/entry-histories/acc-1",
		`{"payees":["Landlord","landlord","Grocer"],"descriptions":["Rent","Groceries","Gym"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	h := decode[store.History](t, do(t, srv, http.MethodGet, "/api/entry-histories/acc-1", ""))
	assert.Equal(t, []string{"Landlord", "Grocer"}, h.Payees)

	tests := []struct {
		query string
		want  []string
	}{
		{"field=description&q=gr", []string{"Groceries"}},
		{"field=payee&q=", []string{"Landlord", "Grocer"}},
		{"field=description&q=grocerie", []string{"Groceries"}},
		{"field=description&q=rant", []string{"Rent"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := decode[map[string][]string](t, do(t, srv, http.MethodGet, "/api/entry-histories/acc-1/suggest?"+tt.query, ""))
			assert.Equal(t, tt.want, got["suggestions"])
		})
	}

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodGet, "/api/entry-histories/acc-1/suggest?field=notes", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/api/entry-histories/ghost", `{"payees":[]}`).Code)
}

func TestAccountLifecycle(t *testing.T) {
	srv, st := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/accounts/new", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[core.Account](t, rec)
	assert.Equal(t, "Account 3", created.Name)
	assert.Equal(t, created.ID, st.ActiveAccountID())

	rec = do(t, srv, http.MethodPost, "/api/accounts/new", `{"name":"  Travel  "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	travel := decode[core.Account](t, rec)
	assert.Equal(t, "Travel", travel.Name)

	rec = do(t, srv, http.MethodPatch, "/api/accounts/"+travel.ID, `{"name":"Holidays"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Holidays", decode[core.Account](t, rec).Name)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPatch, "/api/accounts/"+travel.ID, `{"name":" "}`).Code)

	for _, id := range []string{travel.ID, created.ID, "acc-2"} {
		rec := do(t, srv, http.MethodDelete, "/api/accounts/"+id, "")
		require.Equal(t, http.StatusOK, rec.Code, "delete %s", id)
	}
	rec = do(t, srv, http.MethodDelete, "/api/accounts/acc-1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, store.ErrLastAccount.Error(), errorMessage(t, rec))
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/accounts/ghost", "").Code)
}

func TestTemplateCRUD(t *testing.T) {
	srv, st := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/accounts/acc-1/templates",
		`{"date":"2024-03-20","description":"Gym","payee":"FitCo","amount":-35,"recurrence":"Monthly"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	gym := decode[core.Template](t, rec)
	assert.Equal(t, core.Monthly, gym.Recurrence)
	assert.NotEmpty(t, gym.ID)
	assert.Equal(t, []string{"FitCo"}, st.History("acc-1").Payees)

	rec = do(t, srv, http.MethodPut, "/api/accounts/acc-1/templates/"+gym.ID,
		`{"date":"2024-03-21","description":"Gym plus","amount":-40,"recurrence":"monthly"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Gym plus", decode[core.Template](t, rec).Description)

	rec = do(t, srv, http.MethodDelete, "/api/accounts/acc-1/templates/"+gym.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err := st.Template("acc-1", gym.ID)
	assert.ErrorIs(t, err, store.ErrTemplateNotFound)
}

func TestAddTemplate_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"zero amount", `{"date":"2024-03-20","description":"x","amount":0}`, http.StatusUnprocessableEntity},
		{"blank description", `{"date":"2024-03-20","description":"  ","amount":1}`, http.StatusUnprocessableEntity},
		{"impossible date", `{"date":"2024-02-30","description":"x","amount":1}`, http.StatusUnprocessableEntity},
		{"unknown recurrence", `{"date":"2024-03-20","description":"x","amount":1,"recurrence":"fortnightly"}`, http.StatusUnprocessableEntity},
		{"end before anchor", `{"date":"2024-03-20","description":"x","amount":1,"recurrence":"weekly","recurrenceEndDate":"2024-03-01"}`, http.StatusUnprocessableEntity},
		{"transfer to self", `{"date":"2024-03-20","description":"x","amount":1,"transferTo":"acc-1"}`, http.StatusUnprocessableEntity},
		{"malformed", `{"date":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/accounts/acc-1/templates", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			assert.NotEmpty(t, errorMessage(t, rec))
		})
	}

	rec := do(t, srv, http.MethodPost, "/api/accounts/ghost/templates", `{"date":"2024-03-20","description":"x","amount":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddTemplate_Transfer(t *testing.T) {
	srv, st := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/accounts/acc-1/templates",
		`{"date":"2024-03-05","description":"To savings","amount":-200,"recurrence":"monthly","transferTo":"acc-2"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	src := decode[core.Template](t, rec)
	require.True(t, src.IsTransfer())

	savings, err := st.Account("acc-2")
	require.NoError(t, err)
	require.Len(t, savings.Transactions, 1)
	mirror := savings.Transactions[0]
	assert.Equal(t, src.LinkedTransactionID, mirror.ID)
	assert.Equal(t, int64(20000), mirror.Amount.Cents)
	assert.Equal(t, "acc-1", mirror.LinkedAccountID)
}

func TestOccurrences(t *testing.T) {
	srv, st := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/accounts/acc-1/templates/rent/occurrences/2024-02-01/exclude", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	excluded := decode[core.Template](t, rec)
	assert.True(t, excluded.IsExcluded(core.NewDate(2024, 2, 1)))

	rec = do(t, srv, http.MethodPost, "/api/accounts/acc-1/templates/rent/occurrences/2024-03-01/delete", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]bool{"templateDeleted": false}, decode[map[string]bool](t, rec))
	rent, err := st.Template("acc-1", "rent")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", rent.RecurrenceEndDate.String())

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"not an occurrence", "/api/accounts/acc-1/templates/rent/occurrences/2024-01-15/delete", http.StatusNotFound},
		{"bad date", "/api/accounts/acc-1/templates/rent/occurrences/2024-13-01/exclude", http.StatusUnprocessableEntity},
		{"unknown template", "/api/accounts/acc-1/templates/ghost/occurrences/2024-01-01/delete", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, srv, http.MethodPost, tt.target, ""); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec = do(t, srv, http.MethodPost, "/api/accounts/acc-1/templates/coffee/occurrences/2024-03-10/delete", "")
	assert.Equal(t, map[string]bool{"templateDeleted": true}, decode[map[string]bool](t, rec))
}

func TestClearMonth(t *testing.T) {
	srv, st := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/accounts/acc-1/clear-month?year=2024&month=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"removed": 2}, decode[map[string]int](t, rec))

	acc, err := st.Account("acc-1")
	require.NoError(t, err)
	require.Len(t, acc.Transactions, 1)
	assert.Equal(t, "rent", acc.Transactions[0].ID)

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/accounts/acc-1/clear-month?year=2024&month=13", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/accounts/acc-1/clear-month?month=3", "").Code)
}

func TestCalendarView_Cached(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/accounts/acc-1/calendar?year=2024&month=3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	grid := decode[ledger.MonthGrid](t, rec)
	assert.Len(t, grid.Cells, ledger.GridCells)
	assert.Equal(t, int64(-160000), grid.Summary.StartingBalance.Cents)
	assert.Equal(t, int64(9550), grid.Summary.EndingBalance.Cents)

	rec = do(t, srv, http.MethodGet, "/api/accounts/acc-1/calendar?month=3&year=2024", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"), "query order does not matter")

	// Any mutation bumps the store version.
	do(t, srv, http.MethodPost, "/api/accounts/acc-1/templates", `{"date":"2024-03-11","description":"Book","amount":-10}`)
	rec = do(t, srv, http.MethodGet, "/api/accounts/acc-1/calendar?year=2024&month=3", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, int64(8550), decode[ledger.MonthGrid](t, rec).Summary.EndingBalance.Cents)
}

func TestViews(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("instances", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/accounts/acc-1/instances?from=2024-02-01&to=2024-03-31", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		instances := decode[[]core.Instance](t, rec)
		var ids []string
		for _, inst := range instances {
			ids = append(ids, inst.ID)
		}
		assert.Equal(t, []string{"rent-recur-2024-02-01", "rent-recur-2024-03-01", "salary", "coffee"}, ids)
	})

	t.Run("instances need a range", func(t *testing.T) {
		assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodGet, "/api/accounts/acc-1/instances?from=2024-02-01", "").Code)
		assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodGet, "/api/accounts/acc-1/instances?from=2024-03-01&to=2024-02-01", "").Code)
	})

	t.Run("balance", func(t *testing.T) {
		got := decode[balanceView](t, do(t, srv, http.MethodGet, "/api/accounts/acc-1/balance?date=2024-03-01", ""))
		assert.Equal(t, int64(-160000), got.Balance.Cents)

		got = decode[balanceView](t, do(t, srv, http.MethodGet, "/api/accounts/acc-1/balance", ""))
		assert.Equal(t, testToday.String(), got.Date.String())
		assert.Equal(t, int64(-160000-80000+250000-450), got.Balance.Cents)
	})

	t.Run("categories by month", func(t *testing.T) {
		b := decode[ledger.Breakdown](t, do(t, srv, http.MethodGet, "/api/accounts/acc-1/categories?year=2024&month=3", ""))
		require.Len(t, b.Expenses, 2)
		assert.Equal(t, "Rent", b.Expenses[0].Name)
		assert.Equal(t, int64(80000), b.Expenses[0].Total.Cents)
		assert.Equal(t, int64(250000), b.TotalIncome.Cents)
	})

	t.Run("categories by days", func(t *testing.T) {
		b := decode[ledger.Breakdown](t, do(t, srv, http.MethodGet, "/api/accounts/acc-1/categories?days=7", ""))
		require.Len(t, b.Expenses, 1)
		assert.Equal(t, "Coffee", b.Expenses[0].Name)
		assert.Empty(t, b.Income)

		assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodGet, "/api/accounts/acc-1/categories?days=0", "").Code)
	})

	t.Run("series", func(t *testing.T) {
		s := decode[ledger.Series](t, do(t, srv, http.MethodGet, "/api/accounts/acc-1/series?from=2024-03-01&to=2024-03-31", ""))
		assert.Len(t, s.Points, 31)
		assert.Equal(t, int64(250000), s.TotalIncome.Cents)
		assert.Equal(t, int64(80450), s.TotalExpense.Cents)
	})

	t.Run("series chart", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/accounts/acc-1/series.png?from=2024-03-01&to=2024-03-31", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

		assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodGet, "/api/accounts/acc-1/series.png?from=2024-03-01&to=2024-03-01", "").Code)
	})

	t.Run("unknown account", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/accounts/ghost/calendar?year=2024&month=3", "").Code)
	})
}

const importCSV = "date,payee,description,notes,amount,recurrence\n" +
	"2024-03-10,\"Cafe\",\"Coffee\",\"\",-4.50,one-time\n" +
	"2024-03-12,\"Market\",\"Groceries\",\"weekly shop\",-62.30,weekly\n" +
	"not-a-date,\"X\",\"Broken\",\"\",1,one-time\n"

func TestImport(t *testing.T) {
	srv, st := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/accounts/acc-1/import?preview=true", importCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[importResponse](t, rec)
	assert.False(t, preview.Applied)
	assert.Equal(t, csvio.Preview{ImportMode: csvio.ModeMerge, TotalRows: 3, ValidRows: 2, InvalidRows: 1, DuplicateRows: 1, NewRows: 1}, preview.Preview)
	acc, _ := st.Account("acc-1")
	assert.Len(t, acc.Transactions, 3, "preview must not change the store")

	rec = do(t, srv, http.MethodPost, "/api/accounts/acc-1/import?mode=merge", importCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	applied := decode[importResponse](t, rec)
	assert.True(t, applied.Applied)
	assert.Equal(t, "Imported 1 transaction(s). Skipped 1 duplicate row(s) and 1 invalid row(s).", applied.Summary)
	acc, _ = st.Account("acc-1")
	assert.Len(t, acc.Transactions, 4)

	rec = do(t, srv, http.MethodPost, "/api/accounts/acc-2/import?mode=replace", importCSV)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(decode[importResponse](t, rec).Summary, "Replaced with 2 transaction(s)."))

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/accounts/acc-1/import?mode=append", importCSV).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/api/accounts/ghost/import", importCSV).Code)
}

func TestExport(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/accounts/acc-1/export?from=2024-01-01&to=2024-01-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		`attachment; filename="finance-transactions-from-2024-01-01-to-2024-01-31-export-2024-03-15.csv"`,
		rec.Header().Get("Content-Disposition"))
	assert.Equal(t,
		"date,payee,description,notes,amount,recurrence\n2024-01-01,\"Landlord\",\"Rent\",\"\",-800,monthly\n",
		rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/accounts/acc-1/export", "")
	assert.Equal(t, 4, strings.Count(rec.Body.String(), "\n"))

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodGet, "/api/accounts/acc-1/export?from=yesterday", "").Code)
}

func TestRequestParsers(t *testing.T) {
	t.Run("month params", func(t *testing.T) {
		tests := []struct {
			query   string
			want    MonthParams
			wantErr bool
		}{
			{"year=2024&month=2", MonthParams{Year: 2024, Month: 2}, false},
			{"year=2024", MonthParams{}, true},
			{"year=2024&month=0", MonthParams{}, true},
			{"year=abc&month=1", MonthParams{}, true},
		}
		for _, tt := range tests {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParseMonthParams(q)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMonthParams(%q) error = %v, wantErr %v", tt.query, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMonthParams(%q) = %v, want %v", tt.query, got, tt.want)
			}
		}
	})

	t.Run("range bounds", func(t *testing.T) {
		q, _ := url.ParseQuery("from=2000-01-01&to=2024-01-01")
		_, _, err := requiredRange(q)
		assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(err))
	})

	t.Run("template request", func(t *testing.T) {
		var req templateRequest
		require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-03-01","description":" Tea\u0007 ","amount":"-2.5","recurrence":" WEEKLY "}`), &req))
		draft, err := req.draft()
		require.NoError(t, err)
		assert.Equal(t, "Tea", draft.Description)
		assert.Equal(t, core.Weekly, draft.Recurrence)
		assert.Equal(t, int64(-250), draft.Amount.Cents)
	})
}
