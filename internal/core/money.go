// Package core holds the ledger domain model: accounts, transactions,
// goals, money and calendar arithmetic.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a currency amount in integer cents. Arithmetic stays in cents;
// decimal strings appear only at the API boundary.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// String renders the amount as a plain decimal with two fraction digits,
// e.g. 1234 -> "12.34", -50 -> "-0.50".
func (m Money) String() string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}

var centsScale = decimal.New(100, 0)

// ParseMoney converts a decimal amount string into cents. It accepts dot and
// comma decimal separators, rounds half-up past the second fraction digit,
// and rejects non-positive amounts.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(centsScale).Round(0)
	if !cents.IsInteger() || !cents.BigInt().IsInt64() {
		return Money{}, ErrInvalidAmount
	}
	m := Money{Cents: cents.IntPart()}
	if m.Cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// ParseSignedMoney is ParseMoney without the positivity requirement, for
// fields like account balances that may legitimately be negative.
func ParseSignedMoney(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(centsScale).Round(0)
	if !cents.BigInt().IsInt64() {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}
