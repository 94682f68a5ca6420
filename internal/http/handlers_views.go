package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"saldo/internal/core"
	"saldo/internal/ledger"
	applog "saldo/internal/log"
)

// defaultCategoryDays is the breakdown window when neither days nor a month is given.
const defaultCategoryDays = 30

// viewFunc computes a read-only view of one account.
type viewFunc func(r *http.Request, acc core.Account) (any, error)

// viewKey identifies a cached view response. The store version makes
// entries from before any mutation unreachable.
func viewKey(accountID, view, params string, version uint64) string {
	return fmt.Sprintf("%s|%s|%s|%d", accountID, view, params, version)
}

// cachedView serves the JSON encoding of fn from the view cache when the
// account, view, query and store version all match.
func (s *Server) cachedView(name string, fn viewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		version := s.store.Version()
		key := viewKey(id, name, r.URL.Query().Encode(), version)

		if body, ok := s.views.Get(key); ok {
			NewResponse().Header("X-Cache", "HIT").RawJSON(body).Write(w)
			return
		}

		acc, err := s.store.Account(id)
		if err != nil {
			s.fail(w, r, "View failed", err, applog.OpRender, applog.NewFields().WithAccount(id))
			return
		}
		v, err := fn(r, acc)
		if err != nil {
			s.fail(w, r, "View failed", err, applog.OpRender, applog.NewFields().WithAccount(id))
			return
		}
		body, err := json.Marshal(v)
		if err != nil {
			s.fail(w, r, "View encoding failed", err, applog.OpRender, applog.NewFields().WithAccount(id))
			return
		}
		s.views.Set(key, body)
		NewResponse().Header("X-Cache", "MISS").RawJSON(body).Write(w)
	}
}

func (s *Server) viewInstances(r *http.Request, acc core.Account) (any, error) {
	from, to, err := requiredRange(r.URL.Query())
	if err != nil {
		return nil, err
	}
	instances := s.agg.Expander().Expand(r.Context(), acc.Transactions, from, to)
	if instances == nil {
		instances = []core.Instance{}
	}
	return instances, nil
}

func (s *Server) viewCalendar(r *http.Request, acc core.Account) (any, error) {
	month, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		return nil, err
	}
	return s.agg.MonthGrid(r.Context(), acc.Transactions, month.Year, month.Month)
}

type balanceView struct {
	Date    core.Date  `json:"date"`
	Balance core.Money `json:"balance"`
}

// viewBalance is the balance before the given date, today when absent.
func (s *Server) viewBalance(r *http.Request, acc core.Account) (any, error) {
	date, err := optionalDate(r.URL.Query(), "date")
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = s.today()
	}
	return balanceView{Date: date, Balance: ledger.BalanceBefore(acc.Transactions, date)}, nil
}

func (s *Server) viewCategories(r *http.Request, acc core.Account) (any, error) {
	q := r.URL.Query()
	days := 0
	var month MonthParams
	switch {
	case strings.TrimSpace(q.Get("days")) != "":
		n, err := strconv.Atoi(strings.TrimSpace(q.Get("days")))
		if err != nil || n < 1 || n > maxViewDays {
			return nil, invalidParam("days must be between 1 and %d", maxViewDays)
		}
		days = n
	case q.Has("year") || q.Has("month"):
		m, err := ParseMonthParams(q)
		if err != nil {
			return nil, err
		}
		month = m
	default:
		days = defaultCategoryDays
	}
	start, end := categoryWindow(s.today(), days, month)
	return s.agg.Categories(r.Context(), acc.Transactions, start, end), nil
}

func (s *Server) viewSeries(r *http.Request, acc core.Account) (any, error) {
	from, to, err := requiredRange(r.URL.Query())
	if err != nil {
		return nil, err
	}
	return s.agg.Series(r.Context(), acc.Transactions, from, to), nil
}

// handleSeriesChart renders the income/expense series as a PNG.
func (s *Server) handleSeriesChart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	acc, err := s.store.Account(id)
	if err != nil {
		s.fail(w, r, "Chart failed", err, applog.OpRender, applog.NewFields().WithAccount(id))
		return
	}
	from, to, err := requiredRange(r.URL.Query())
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	if from.Equal(to) {
		errorFor(invalidParam("a chart needs at least two days")).Write(w)
		return
	}
	png, err := ledger.RenderSeriesChart(s.agg.Series(r.Context(), acc.Transactions, from, to))
	if err != nil {
		s.fail(w, r, "Chart render failed", err, applog.OpRender, applog.NewFields().WithAccount(id))
		return
	}
	NewResponse().Body("image/png", png).Write(w)
}
