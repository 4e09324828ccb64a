package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a non-negative decimal amount in the state's currency.
// It is written to JSON as a bare number.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps a decimal.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MustMoney parses s and panics on error. Intended for tests and constants.
func MustMoney(s string) Money {
	m, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseAmount parses a user-entered amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, a
// thousands-separated form is not supported. Negative values are rejected,
// zero is allowed.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := Money{Decimal: d}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// Validate rejects negative amounts.
func (m Money) Validate() error {
	if m.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m+o.
func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

// Sub returns m-o. The result may be negative; it is used for balances only.
func (m Money) Sub(o Money) Money {
	return Money{Decimal: m.Decimal.Sub(o.Decimal)}
}

// Equal compares by value, so 1.50 equals 1.5.
func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = Money{}
		return nil
	}
	if len(b) >= 2 && b[0] == '"' {
		b = b[1 : len(b)-1]
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return ErrInvalidAmount
	}
	if d.IsNegative() {
		return ErrInvalidAmount
	}
	*m = Money{Decimal: d}
	return nil
}

// Format renders the amount with two decimals.
func (m Money) Format() string {
	return m.StringFixed(2)
}
