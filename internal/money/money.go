// Package money provides exact decimal arithmetic for monetary amounts.
//
// Every monetary value that leaves the core passes through Round, which
// quantises to two decimal places using half-up rounding. Amounts serialise
// as fixed-point decimal strings, never as floats.
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. The zero value is 0.00.
type Money struct {
	d decimal.Decimal
}

// Zero returns a zero amount.
func Zero() Money {
	return Money{}
}

// New wraps a raw decimal.
func New(d decimal.Decimal) Money {
	return Money{d: d}
}

// FromString parses a decimal string such as "80.00".
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return Money{d: d}, nil
}

// MustParse parses a decimal string and panics on failure. Intended for
// constants and tests.
func MustParse(s string) Money {
	m, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromInt returns an amount of n whole currency units.
func FromInt(n int64) Money {
	return Money{d: decimal.NewFromInt(n)}
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

// Mul returns m * o.
func (m Money) Mul(o Money) Money {
	return Money{d: m.d.Mul(o.d)}
}

// Div returns m / o with the library's default division precision. Callers
// round the result before reporting it.
func (m Money) Div(o Money) Money {
	return Money{d: m.d.Div(o.d)}
}

// Round quantises to cents using half-up rounding.
func (m Money) Round() Money {
	return Money{d: m.d.Round(2)}
}

// ClampZero returns m, or zero when m is negative. Balances never go below
// zero on overpayment.
func (m Money) ClampZero() Money {
	if m.d.IsNegative() {
		return Money{}
	}
	return m
}

// Cmp compares two amounts: -1 when m < o, 0 when equal, +1 when m > o.
func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// IsZero reports whether the amount equals zero.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

// IsNegative reports whether the amount is less than zero.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// String renders the amount with exactly two fraction digits.
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// Sum adds the given amounts.
func Sum(amounts ...Money) Money {
	total := Money{}
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MarshalJSON renders the amount as a quoted fixed-point decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted decimal strings and bare JSON numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("money: unmarshal %s: %w", data, err)
	}
	m.d = d
	return nil
}

// Scan implements sql.Scanner so repositories can read numeric columns
// directly into Money.
func (m *Money) Scan(value any) error {
	return m.d.Scan(value)
}

// Value implements driver.Valuer; the amount travels to the database as its
// canonical string form.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
