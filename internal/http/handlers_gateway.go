package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"saldo/internal/core"
	applog "saldo/internal/log"
	"saldo/internal/recurrence"
	"saldo/internal/store"
)

// handleListAccounts returns every account with its templates. With
// expand=true the transactions are instances over the server window
// instead, using server-style ids.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := s.store.Accounts()
	if !boolParam(r.URL.Query(), "expand") {
		NewResponse().JSON(accounts).Write(w)
		return
	}

	type expandedAccount struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		Transactions []core.Instance `json:"transactions"`
	}
	today := s.today()
	out := make([]expandedAccount, 0, len(accounts))
	for _, acc := range accounts {
		start, end := recurrence.Window(acc.Transactions, today, s.horizonMonths)
		instances := s.serverExpander.Expand(r.Context(), acc.Transactions, start, end)
		if instances == nil {
			instances = []core.Instance{}
		}
		out = append(out, expandedAccount{ID: acc.ID, Name: acc.Name, Transactions: instances})
	}
	s.logger.DebugContext(r.Context(), "Expanded accounts for listing",
		applog.FieldOperation, applog.OpExpand,
		"accounts", len(out),
		"horizon_months", s.horizonMonths)
	NewResponse().JSON(out).Write(w)
}

// handleReplaceAccounts replaces every account. The body is an array of
// accounts or a single account object.
func (s *Server) handleReplaceAccounts(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		errorFor(err).Write(w)
		return
	}

	var accounts []core.Account
	var err error
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &accounts)
	} else {
		var one core.Account
		err = json.Unmarshal(trimmed, &one)
		accounts = []core.Account{one}
	}
	if err != nil {
		if isValidation(err) {
			errorFor(err).Write(w)
		} else {
			BadRequestError("malformed JSON: " + err.Error()).Write(w)
		}
		return
	}

	if err := s.store.ReplaceAll(r.Context(), accounts); err != nil {
		s.fail(w, r, "Replace accounts failed", err, applog.OpUpdate, applog.NewFields())
		return
	}
	Success().Write(w)
}

type replaceTransactionsRequest struct {
	AccountID    string          `json:"accountId"`
	Transactions []core.Template `json:"transactions"`
}

// handleReplaceTransactions replaces all templates of one account.
func (s *Server) handleReplaceTransactions(w http.ResponseWriter, r *http.Request) {
	var req replaceTransactionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorFor(err).Write(w)
		return
	}
	if strings.TrimSpace(req.AccountID) == "" {
		errorFor(core.ErrMissingAccountID).Write(w)
		return
	}
	if req.Transactions == nil {
		req.Transactions = []core.Template{}
	}
	if err := s.store.ReplaceTransactions(r.Context(), req.AccountID, req.Transactions); err != nil {
		s.fail(w, r, "Replace transactions failed", err, applog.OpUpdate, applog.NewFields().WithAccount(req.AccountID))
		return
	}
	Success().Write(w)
}

type activeAccountBody struct {
	ActiveAccountID *string `json:"activeAccountId"`
}

func (s *Server) handleGetActiveAccount(w http.ResponseWriter, r *http.Request) {
	var body activeAccountBody
	if id := s.store.ActiveAccountID(); id != "" {
		body.ActiveAccountID = &id
	}
	NewResponse().JSON(body).Write(w)
}

func (s *Server) handleSetActiveAccount(w http.ResponseWriter, r *http.Request) {
	var body activeAccountBody
	if err := decodeJSON(w, r, &body); err != nil {
		errorFor(err).Write(w)
		return
	}
	if body.ActiveAccountID == nil || strings.TrimSpace(*body.ActiveAccountID) == "" {
		errorFor(core.ErrMissingAccountID).Write(w)
		return
	}
	if err := s.store.SwitchAccount(*body.ActiveAccountID); err != nil {
		s.fail(w, r, "Switch account failed", err, applog.OpUpdate, applog.NewFields().WithAccount(*body.ActiveAccountID))
		return
	}
	Success().Write(w)
}

// handleGetHistory returns the autocomplete lists. Unknown accounts have
// empty lists, as the gateway contract has always done.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.store.History(r.PathValue("accountId"))).Write(w)
}

func (s *Server) handleSetHistory(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountId")
	var h store.History
	if err := decodeJSON(w, r, &h); err != nil {
		errorFor(err).Write(w)
		return
	}
	if err := s.store.SetHistory(accountID, h); err != nil {
		s.fail(w, r, "Save entry histories failed", err, applog.OpUpdate, applog.NewFields().WithAccount(accountID))
		return
	}
	Success().Write(w)
}

// handleSuggest returns autocomplete suggestions for field=payee|description.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h := s.store.History(r.PathValue("accountId"))

	var list []string
	switch strings.ToLower(q.Get("field")) {
	case "payee", "payees":
		list = h.Payees
	case "", "description", "descriptions":
		list = h.Descriptions
	default:
		UnprocessableEntityError("field must be payee or description").Write(w)
		return
	}
	NewResponse().JSON(map[string][]string{"suggestions": store.Suggest(list, q.Get("q"))}).Write(w)
}

// fail logs err with request context and writes the mapped error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error, op string, fields applog.LogFields) {
	if StatusFor(err) >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), msg, err, op, fields)
	} else {
		applog.FromContext(r.Context()).WarnContext(r.Context(), msg, "error", err, applog.FieldOperation, op)
	}
	errorFor(err).Write(w)
}
