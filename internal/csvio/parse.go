// Package csvio imports and exports transaction templates as CSV.
//
// Four historical column layouts are recognised on import. Export always
// writes the newest one: date,payee,description,notes,amount,recurrence.
package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"saldo/internal/core"
)

// Layout identifies the column order of an imported file.
type Layout int

const (
	// LayoutOldest is date,description,amount[,recurrence].
	LayoutOldest Layout = iota
	// LayoutPayee is date,description,payee,amount[,recurrence].
	LayoutPayee
	// LayoutNotes is date,description,payee,notes,amount,recurrence.
	LayoutNotes
	// LayoutNewest is date,payee,description,notes,amount,recurrence.
	LayoutNewest
)

func (l Layout) String() string {
	switch l {
	case LayoutPayee:
		return "date,description,payee,amount,recurrence"
	case LayoutNotes:
		return "date,description,payee,notes,amount,recurrence"
	case LayoutNewest:
		return "date,payee,description,notes,amount,recurrence"
	default:
		return "date,description,amount,recurrence"
	}
}

// ParseResult is the outcome of reading a CSV file. TotalRows counts
// non-blank data records, header excluded.
type ParseResult struct {
	Layout      Layout          `json:"-"`
	ValidRows   []core.Template `json:"validRows"`
	InvalidRows int             `json:"invalidRows"`
	TotalRows   int             `json:"totalRows"`
}

// ParseCSV reads templates from r. Malformed rows are counted in
// InvalidRows and dropped; only a failure to read r is returned as error.
func ParseCSV(r io.Reader) (ParseResult, error) {
	var res ParseResult

	br := bufio.NewReader(r)
	if err := skipBOM(br); err != nil {
		return res, fmt.Errorf("read csv: %w", err)
	}
	csvr := csv.NewReader(br)
	csvr.FieldsPerRecord = -1
	csvr.LazyQuotes = true
	csvr.TrimLeadingSpace = true

	first := true
	for {
		rec, err := csvr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			res.TotalRows++
			res.InvalidRows++
			first = false
			continue
		}
		if err != nil {
			return res, fmt.Errorf("read csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		if first {
			first = false
			if isHeader(rec) {
				res.Layout = DetectLayout(rec)
				continue
			}
		}

		res.TotalRows++
		t, ok := parseRow(rec, res.Layout)
		if !ok {
			res.InvalidRows++
			continue
		}
		res.ValidRows = append(res.ValidRows, t)
	}
	return res, nil
}

// ParseString is ParseCSV over an in-memory document.
func ParseString(s string) (ParseResult, error) {
	return ParseCSV(strings.NewReader(s))
}

func skipBOM(br *bufio.Reader) error {
	r, _, err := br.ReadRune()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	if r != '\uFEFF' {
		return br.UnreadRune()
	}
	return nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func isHeader(rec []string) bool {
	return len(rec) >= 2 && strings.EqualFold(strings.TrimSpace(rec[0]), "date")
}

// DetectLayout picks the column order from a header record.
func DetectLayout(header []string) Layout {
	payee, description, notes := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "payee", "vendor":
			if payee < 0 {
				payee = i
			}
		case "description":
			if description < 0 {
				description = i
			}
		case "notes":
			notes = i
		}
	}
	payeeFirst := payee > 0 && description > 0 && payee < description

	switch {
	case payeeFirst && notes >= 0:
		return LayoutNewest
	case notes >= 0 && !payeeFirst:
		return LayoutNotes
	case payee >= 0 && !payeeFirst:
		return LayoutPayee
	default:
		return LayoutOldest
	}
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func parseRow(rec []string, layout Layout) (core.Template, bool) {
	if len(rec) < 3 {
		return core.Template{}, false
	}

	var date, description, payee, notes, amount, recurrence string
	switch layout {
	case LayoutNewest:
		date, payee, description, notes, amount, recurrence = field(rec, 0), field(rec, 1), field(rec, 2), field(rec, 3), field(rec, 4), field(rec, 5)
	case LayoutNotes:
		date, description, payee, notes, amount, recurrence = field(rec, 0), field(rec, 1), field(rec, 2), field(rec, 3), field(rec, 4), field(rec, 5)
	case LayoutPayee:
		date, description, payee, amount, recurrence = field(rec, 0), field(rec, 1), field(rec, 2), field(rec, 3), field(rec, 4)
	default:
		date, description, amount, recurrence = field(rec, 0), field(rec, 1), field(rec, 2), field(rec, 3)
	}

	d, err := core.ParseDate(date)
	if err != nil {
		return core.Template{}, false
	}
	m, err := core.ParseAmount(amount)
	if err != nil {
		return core.Template{}, false
	}
	kind, err := core.ParseRecurrence(recurrence)
	if err != nil {
		return core.Template{}, false
	}

	t := core.Template{
		ID:          uuid.NewString(),
		Date:        d,
		Description: description,
		Payee:       payee,
		Notes:       notes,
		Amount:      m,
		Recurrence:  kind,
	}
	if t.Validate() != nil {
		return core.Template{}, false
	}
	return t, true
}
