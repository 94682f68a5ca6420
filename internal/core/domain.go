package core

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

const (
	OneTime   Recurrence = "one-time"
	Daily     Recurrence = "daily"
	Weekly    Recurrence = "weekly"
	BiWeekly  Recurrence = "bi-weekly"
	Monthly   Recurrence = "monthly"
	Quarterly Recurrence = "quarterly"
	Yearly    Recurrence = "yearly"
)

// DateLayout is the ISO calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

type (
	Recurrence string

	// Date is a civil calendar date stored as UTC midnight.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Template is the stored, canonical transaction record. Recurring
	// templates are projected into Instances by the recurrence package.
	Template struct {
		ID                  string     `json:"id"`
		Date                Date       `json:"date"`
		Description         string     `json:"description"`
		Payee               string     `json:"payee"`
		Notes               string     `json:"notes"`
		Amount              Money      `json:"amount"`
		Recurrence          Recurrence `json:"recurrence"`
		RecurrenceEndDate   Date       `json:"recurrenceEndDate,omitzero"`
		ExcludedDates       []Date     `json:"excludedDates,omitempty"`
		LinkedTransactionID string     `json:"linkedTransactionId,omitempty"`
		LinkedAccountID     string     `json:"linkedAccountId,omitempty"`
	}

	Account struct {
		ID           string     `json:"id"`
		Name         string     `json:"name"`
		Transactions []Template `json:"transactions"`
	}

	// Instance is a template projected onto one concrete date. It is never persisted.
	Instance struct {
		Template
		IsRecurring bool   `json:"isRecurring,omitempty"`
		OriginalID  string `json:"originalId,omitempty"`
	}
)

var (
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrZeroAmount          = errors.New("amount must be non-zero")
	ErrEmptyDescription    = errors.New("empty description")
	ErrInvalidRecurrence   = errors.New("invalid recurrence")
	ErrEndBeforeAnchor     = errors.New("recurrence end date before anchor date")
	ErrIncompleteLink      = errors.New("linked transaction and account must be set together")
	ErrEmptyAccountName    = errors.New("empty account name")
	ErrMissingTemplateID   = errors.New("missing template id")
	ErrMissingAccountID    = errors.New("missing account id")
	ErrDuplicateTemplateID = errors.New("duplicate template id")
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NewDate creates a new Date from year, month, day. Out of range values
// are normalised the way time.Date does.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a strict YYYY-MM-DD string that names a real calendar day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if !isoDate.MatchString(s) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Day() int {
	return d.Time.Day()
}

func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) Year() int {
	return d.Time.Year()
}

// Weekday returns 0 for Sunday through 6 for Saturday.
func (d Date) Weekday() int {
	return int(d.Time.Weekday())
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysSince returns the number of whole days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.Sub(other.Time).Hours() / 24)
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	return d.Time.Compare(other.Time)
}

func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool  { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool  { return d.Time.Equal(other.Time) }

// InRange reports whether start <= d <= end.
func (d Date) InRange(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseRecurrence normalises a recurrence name. An empty value means one-time.
func ParseRecurrence(s string) (Recurrence, error) {
	r := Recurrence(strings.ToLower(strings.TrimSpace(s)))
	if r == "" {
		return OneTime, nil
	}
	if !r.Valid() {
		return r, fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
	}
	return r, nil
}

func (r Recurrence) Valid() bool {
	switch r {
	case OneTime, Daily, Weekly, BiWeekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

func (r Recurrence) IsRecurring() bool {
	return r != OneTime && r != ""
}

func (t Template) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if t.Amount.IsZero() {
		return ErrZeroAmount
	}
	if !t.Recurrence.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRecurrence, t.Recurrence)
	}
	if !t.RecurrenceEndDate.IsZero() && t.RecurrenceEndDate.Before(t.Date) && t.Recurrence.IsRecurring() {
		return ErrEndBeforeAnchor
	}
	if (t.LinkedTransactionID == "") != (t.LinkedAccountID == "") {
		return ErrIncompleteLink
	}
	return nil
}

// IsTransfer reports whether the template is one side of a linked pair.
func (t Template) IsTransfer() bool {
	return t.LinkedTransactionID != "" && t.LinkedAccountID != ""
}

// IsExcluded reports whether d is listed in the template's excluded dates.
func (t Template) IsExcluded(d Date) bool {
	for _, e := range t.ExcludedDates {
		if e.Equal(d) {
			return true
		}
	}
	return false
}

// Exclude adds d to the excluded dates, keeping them sorted and unique.
func (t *Template) Exclude(d Date) {
	if t.IsExcluded(d) {
		return
	}
	t.ExcludedDates = append(t.ExcludedDates, d)
	slices.SortFunc(t.ExcludedDates, Date.Compare)
}

// Clone returns a deep copy of the template.
func (t Template) Clone() Template {
	c := t
	if t.ExcludedDates != nil {
		c.ExcludedDates = slices.Clone(t.ExcludedDates)
	}
	return c
}

// Clone returns a deep copy of the account and its templates.
func (a Account) Clone() Account {
	c := a
	c.Transactions = make([]Template, len(a.Transactions))
	for i, t := range a.Transactions {
		c.Transactions[i] = t.Clone()
	}
	return c
}

// Find returns the index of the template with the given id, or -1.
func (a Account) Find(id string) int {
	for i, t := range a.Transactions {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// TemplateID returns the id of the template the instance was projected from.
func (i Instance) TemplateID() string {
	if i.OriginalID != "" {
		return i.OriginalID
	}
	return i.ID
}
