// Package core provides money parsing and handling utilities.
//
// Amounts are kept as signed integer cents. Decimal text is parsed with
// shopspring/decimal and rounded half away from zero to two places.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NewMoney builds a Money value from cents.
func NewMoney(cents int64) Money {
	return Money{Cents: cents}
}

// ParseAmount converts a signed decimal string to Money.
//
// A decimal comma is accepted when no dot is present ("12,34").
// Zero amounts are rejected with ErrZeroAmount.
//
// Examples:
//
//	ParseAmount("-50")     -> -5000
//	ParseAmount("12.345")  -> 1235
//	ParseAmount("12,34")   -> 1234
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	m, err := MoneyFromDecimal(d)
	if err != nil {
		return Money{}, err
	}
	if m.IsZero() {
		return Money{}, ErrZeroAmount
	}
	return m, nil
}

// MoneyFromDecimal rounds d to cents.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Round(2).Shift(2)
	if !cents.IsInteger() || cents.Abs().GreaterThan(decimal.New(1<<62, 0)) {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidAmount, d.String())
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount as a decimal in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two decimals, e.g. "-50.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Euros returns the value as a float64 for display and charting only.
func (m Money) Euros() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

func (m Money) Neg() Money {
	return Money{Cents: -m.Cents}
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

// Times multiplies the amount by an occurrence count.
func (m Money) Times(n int) Money {
	return Money{Cents: m.Cents * int64(n)}
}

// MarshalJSON emits a bare JSON number with trailing zeros trimmed (-50, 12.5).
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*m = Money{}
		return nil
	}
	s = strings.Trim(s, `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	parsed, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
