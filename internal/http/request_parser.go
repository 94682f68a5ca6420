// Package http provides HTTP server and handler implementations.
//
// This file implements the parsing of JSON bodies, query parameters and
// path values shared by the handlers.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"saldo/internal/core"
)

const (
	// maxJSONBody bounds JSON request bodies.
	maxJSONBody = 8 << 20
	// maxCSVBody bounds CSV uploads.
	maxCSVBody = 16 << 20
	// maxViewDays bounds instance, series and chart windows.
	maxViewDays = 3660
)

var errEmptyBody = &requestError{status: http.StatusBadRequest, msg: "empty request body"}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// decodeJSON reads one JSON value from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		}
		return badRequest("read body: %v", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errEmptyBody
	}
	if err := json.Unmarshal(body, v); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
			return badRequest("malformed JSON: %v", err)
		case isValidation(err):
			return err
		default:
			return badRequest("malformed JSON: %v", err)
		}
	}
	return nil
}

// isValidation reports whether a decode error came from a domain type
// rejecting its value, such as a bad date or amount.
func isValidation(err error) bool {
	return errors.Is(err, core.ErrInvalidDate) || errors.Is(err, core.ErrInvalidAmount)
}

// ParseMonthParams reads year and month from the query. Both are required.
func ParseMonthParams(query url.Values) (MonthParams, error) {
	year, err := requiredInt(query, "year")
	if err != nil {
		return MonthParams{}, err
	}
	month, err := requiredInt(query, "month")
	if err != nil {
		return MonthParams{}, err
	}
	if month < 1 || month > 12 {
		return MonthParams{}, invalidParam("month must be between 1 and 12, got %d", month)
	}
	if year < 1 || year > 9999 {
		return MonthParams{}, invalidParam("year out of range: %d", year)
	}
	return MonthParams{Year: year, Month: month}, nil
}

func requiredInt(query url.Values, key string) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, invalidParam("missing %s", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalidParam("%s must be an integer: %q", key, v)
	}
	return n, nil
}

// optionalDate parses query[key] as YYYY-MM-DD. Absent values yield the zero Date.
func optionalDate(query url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, invalidParam("%s: %v", key, err)
	}
	return d, nil
}

// requiredRange parses from and to, both mandatory, with from <= to and
// a bounded span.
func requiredRange(query url.Values) (core.Date, core.Date, error) {
	from, err := optionalDate(query, "from")
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	to, err := optionalDate(query, "to")
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	if from.IsZero() || to.IsZero() {
		return core.Date{}, core.Date{}, invalidParam("from and to are required")
	}
	if to.Before(from) {
		return core.Date{}, core.Date{}, invalidParam("to %s is before from %s", to, from)
	}
	if to.DaysSince(from) >= maxViewDays {
		return core.Date{}, core.Date{}, invalidParam("range longer than %d days", maxViewDays)
	}
	return from, to, nil
}

// pathDate parses the {date} path value.
func pathDate(r *http.Request) (core.Date, error) {
	d, err := core.ParseDate(r.PathValue("date"))
	if err != nil {
		return core.Date{}, invalidParam("date: %v", err)
	}
	return d, nil
}

// boolParam treats "1", "true" and "yes" (any case) as true.
func boolParam(query url.Values, key string) bool {
	switch strings.ToLower(strings.TrimSpace(query.Get(key))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
