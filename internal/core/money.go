// Package core provides money parsing and handling utilities.
//
// Amounts are stored as signed integer cents. Parsing and rounding go through
// shopspring/decimal so no intermediate value ever passes through a float.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed fixed-point amount with two decimal places.
// Positive values are credits (balance increases), negative values debits.
type Money struct {
	Cents int64
}

var (
	hundred = decimal.NewFromInt(100)

	// Amounts are limited to ±MaxInt64 cents so Neg and Abs never wrap.
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = maxCents.Neg()
)

// Zero is the zero amount.
var Zero = Money{}

// Cents builds a Money from an integer number of cents.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// ParseMoney parses a signed decimal string into Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half away from zero on the third decimal place.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234
//	ParseMoney("-12,34") -> -1234
//	ParseMoney("1.005")  -> 101
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimalChecked(d)
}

// ParseDecimalToCents converts a user-typed decimal string to cents.
//
// Only strictly positive values are accepted; the sign of a transaction is
// decided by its kind, not by what the user typed.
func ParseDecimalToCents(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "+") || strings.HasPrefix(trimmed, "-") {
		return 0, ErrInvalidAmount
	}
	m, err := ParseMoney(trimmed)
	if err != nil {
		return 0, err
	}
	if m.Cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return m.Cents, nil
}

// MoneyFromDecimal rounds d to cents (half away from zero). d must fit in
// the representable range; use MoneyFromDecimalChecked for untrusted input.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}
}

// MoneyFromDecimalChecked is MoneyFromDecimal returning ErrInvalidAmount
// when the rounded value does not fit in ±MaxInt64 cents.
func MoneyFromDecimalChecked(d decimal.Decimal) (Money, error) {
	scaled := d.Mul(hundred).Round(0)
	if scaled.GreaterThan(maxCents) || scaled.LessThan(minCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: scaled.IntPart()}, nil
}

// MoneyFromFloat rounds f to cents. Only use it for results of float math
// such as amortization formulas.
func MoneyFromFloat(f float64) Money {
	return MoneyFromDecimal(decimal.NewFromFloat(f))
}

// Decimal returns the exact decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float64 returns the value as a float64, for formulas and display only.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }

// CheckedAdd is Add that reports false instead of leaving the
// representable range.
func (m Money) CheckedAdd(o Money) (Money, bool) {
	sum := m.Cents + o.Cents
	if (o.Cents > 0 && sum < m.Cents) || (o.Cents < 0 && sum > m.Cents) || sum == math.MinInt64 {
		return Money{}, false
	}
	return Money{Cents: sum}, true
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

func (m Money) IsZero() bool     { return m.Cents == 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }
func (m Money) IsPositive() bool { return m.Cents > 0 }

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	switch {
	case m.Cents < o.Cents:
		return -1
	case m.Cents > o.Cents:
		return 1
	default:
		return 0
	}
}

// String renders the amount with two decimals, e.g. "-12.34".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Validate rejects zero and negative amounts (user-entered values).
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateNonZero rejects zero and MinInt64, which has no positive
// counterpart; used for signed ledger amounts.
func (m Money) ValidateNonZero() error {
	if m.Cents == 0 || m.Cents == math.MinInt64 {
		return ErrInvalidAmount
	}
	return nil
}
