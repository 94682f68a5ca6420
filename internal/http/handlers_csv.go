package http

import (
	"errors"
	"net/http"

	"saldo/internal/csvio"
	applog "saldo/internal/log"
)

type importResponse struct {
	csvio.Preview
	Applied bool   `json:"applied"`
	Summary string `json:"summary,omitempty"`
}

// handleImport parses a CSV body and either previews or applies it.
// preview=true never touches the store.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	q := r.URL.Query()
	mode, err := csvio.ParseMode(q.Get("mode"))
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	acc, err := s.store.Account(accountID)
	if err != nil {
		s.fail(w, r, "CSV import failed", err, applog.OpImport, applog.NewFields().WithAccount(accountID))
		return
	}

	parsed, err := csvio.ParseCSV(http.MaxBytesReader(w, r.Body, maxCSVBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "CSV file too large").Write(w)
			return
		}
		applog.FromContext(r.Context()).WarnContext(r.Context(), "CSV read failed",
			applog.FieldAccountID, accountID, "error", err)
		BadRequestError("could not read CSV: " + err.Error()).Write(w)
		return
	}

	if boolParam(q, "preview") {
		NewResponse().JSON(importResponse{Preview: csvio.Analyze(acc.Transactions, parsed, mode)}).Write(w)
		return
	}

	preview, err := s.store.ApplyImport(r.Context(), accountID, parsed, mode)
	if err != nil {
		s.fail(w, r, "CSV import failed", err, applog.OpImport, applog.NewFields().WithAccount(accountID))
		return
	}
	NewResponse().JSON(importResponse{
		Preview: preview,
		Applied: true,
		Summary: csvio.Summary(preview),
	}).Write(w)
}

// handleExport downloads the account's templates as CSV, optionally limited
// to an inclusive anchor date range.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	q := r.URL.Query()
	from, err := optionalDate(q, "from")
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	to, err := optionalDate(q, "to")
	if err != nil {
		errorFor(err).Write(w)
		return
	}

	acc, err := s.store.Account(accountID)
	if err != nil {
		s.fail(w, r, "CSV export failed", err, applog.OpExport, applog.NewFields().WithAccount(accountID))
		return
	}
	rows := csvio.FilterRange(acc.Transactions, from, to)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "CSV export",
		applog.FieldAccountID, accountID,
		applog.FieldRows, len(rows))

	NewResponse().
		Header("Cache-Control", "no-store").
		Attachment("text/csv; charset=utf-8", csvio.ExportFilename(from, to, s.today()), []byte(csvio.ToCSV(rows))).
		Write(w)
}
