package http

import (
	"errors"
	"net/http"
	"strings"

	"saldo/internal/core"
	applog "saldo/internal/log"
)

type accountNameRequest struct {
	Name string `json:"name"`
}

// handleCreateAccount adds an account and makes it active. An empty body
// or blank name gets the default "Account N" name.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountNameRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		errorFor(err).Write(w)
		return
	}
	acc, err := s.store.CreateAccount(sanitizeInput(req.Name))
	if err != nil {
		s.fail(w, r, "Create account failed", err, applog.OpCreate, applog.NewFields())
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(acc).Write(w)
}

func (s *Server) handleRenameAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req accountNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorFor(err).Write(w)
		return
	}
	if err := s.store.RenameAccount(id, sanitizeInput(req.Name)); err != nil {
		s.fail(w, r, "Rename account failed", err, applog.OpUpdate, applog.NewFields().WithAccount(id))
		return
	}
	acc, err := s.store.Account(id)
	if err != nil {
		s.fail(w, r, "Rename account failed", err, applog.OpRead, applog.NewFields().WithAccount(id))
		return
	}
	NewResponse().JSON(acc).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteAccount(id); err != nil {
		s.fail(w, r, "Delete account failed", err, applog.OpDelete, applog.NewFields().WithAccount(id))
		return
	}
	s.views.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, id+"|") })
	NewResponse().JSON(map[string]string{"activeAccountId": s.store.ActiveAccountID()}).Write(w)
}

// templateRequest is a template draft plus the optional transfer target.
type templateRequest struct {
	Date              core.Date   `json:"date"`
	Description       string      `json:"description"`
	Payee             string      `json:"payee"`
	Notes             string      `json:"notes"`
	Amount            core.Money  `json:"amount"`
	Recurrence        string      `json:"recurrence"`
	RecurrenceEndDate core.Date   `json:"recurrenceEndDate"`
	ExcludedDates     []core.Date `json:"excludedDates"`
	TransferTo        string      `json:"transferTo"`
}

func (req templateRequest) draft() (core.Template, error) {
	rec, err := core.ParseRecurrence(req.Recurrence)
	if err != nil {
		return core.Template{}, err
	}
	return sanitizeTemplate(core.Template{
		Date:              req.Date,
		Description:       req.Description,
		Payee:             req.Payee,
		Notes:             req.Notes,
		Amount:            req.Amount,
		Recurrence:        rec,
		RecurrenceEndDate: req.RecurrenceEndDate,
		ExcludedDates:     req.ExcludedDates,
	}), nil
}

func (s *Server) decodeTemplate(w http.ResponseWriter, r *http.Request) (core.Template, string, bool) {
	var req templateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorFor(err).Write(w)
		return core.Template{}, "", false
	}
	draft, err := req.draft()
	if err != nil {
		errorFor(err).Write(w)
		return core.Template{}, "", false
	}
	return draft, strings.TrimSpace(req.TransferTo), true
}

func (s *Server) handleAddTemplate(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	draft, transferTo, ok := s.decodeTemplate(w, r)
	if !ok {
		return
	}
	t, err := s.store.AddTemplate(r.Context(), accountID, draft, transferTo)
	if err != nil {
		s.fail(w, r, "Create transaction failed", err, applog.OpCreate, applog.NewFields().WithAccount(accountID))
		return
	}
	s.events.LogTemplateChange(r.Context(), applog.OpCreate, accountID, t.ID, t.Description, t.Amount.Cents, string(t.Recurrence))
	NewResponse().Status(http.StatusCreated).JSON(t).Write(w)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	accountID, id := r.PathValue("id"), r.PathValue("tid")
	draft, transferTo, ok := s.decodeTemplate(w, r)
	if !ok {
		return
	}
	t, err := s.store.UpdateTemplate(r.Context(), accountID, id, draft, transferTo)
	if err != nil {
		s.fail(w, r, "Update transaction failed", err, applog.OpUpdate, applog.NewFields().WithAccount(accountID))
		return
	}
	s.events.LogTemplateChange(r.Context(), applog.OpUpdate, accountID, t.ID, t.Description, t.Amount.Cents, string(t.Recurrence))
	NewResponse().JSON(t).Write(w)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	accountID, id := r.PathValue("id"), r.PathValue("tid")
	if err := s.store.DeleteTemplate(r.Context(), accountID, id); err != nil {
		s.fail(w, r, "Delete transaction failed", err, applog.OpDelete, applog.NewFields().WithAccount(accountID))
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// handleDeleteOccurrence removes an occurrence and every later one.
func (s *Server) handleDeleteOccurrence(w http.ResponseWriter, r *http.Request) {
	accountID, id := r.PathValue("id"), r.PathValue("tid")
	date, err := pathDate(r)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	deleted, err := s.store.DeleteOccurrence(r.Context(), accountID, id, date)
	if err != nil {
		s.fail(w, r, "Delete occurrence failed", err, applog.OpDelete, applog.NewFields().WithAccount(accountID))
		return
	}
	NewResponse().JSON(map[string]bool{"templateDeleted": deleted}).Write(w)
}

// handleExcludeOccurrence skips one occurrence and keeps the rest of the series.
func (s *Server) handleExcludeOccurrence(w http.ResponseWriter, r *http.Request) {
	accountID, id := r.PathValue("id"), r.PathValue("tid")
	date, err := pathDate(r)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	if err := s.store.ExcludeOccurrence(r.Context(), accountID, id, date); err != nil {
		s.fail(w, r, "Exclude occurrence failed", err, applog.OpUpdate, applog.NewFields().WithAccount(accountID))
		return
	}
	t, err := s.store.Template(accountID, id)
	if err != nil {
		s.fail(w, r, "Exclude occurrence failed", err, applog.OpRead, applog.NewFields().WithAccount(accountID))
		return
	}
	NewResponse().JSON(t).Write(w)
}

func (s *Server) handleClearMonth(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	month, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	removed, err := s.store.ClearMonth(r.Context(), accountID, month.Year, month.Month)
	if err != nil {
		s.fail(w, r, "Clear month failed", err, applog.OpDelete, applog.NewFields().WithAccount(accountID))
		return
	}
	NewResponse().JSON(map[string]int{"removed": removed}).Write(w)
}
