// Package core holds the canonical transaction model shared by ingestion,
// storage and aggregation.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseSignedCents parses a signed decimal amount string into non-negative
// cents plus its original sign. The magnitude is what gets stored; the sign
// only feeds type inference. Sub-cent digits round half away from zero.
//
// Examples:
//
//	ParseSignedCents("-4.50")  -> 450, true, nil
//	ParseSignedCents("2000")   -> 200000, false, nil
//	ParseSignedCents("+12.345") -> 1235, false, nil
func ParseSignedCents(s string) (cents int64, negative bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, ErrInvalidAmount
	}
	d, derr := decimal.NewFromString(s)
	if derr != nil {
		return 0, false, ErrInvalidAmount
	}
	negative = d.IsNegative()
	cents = d.Abs().Shift(2).Round(0).IntPart()
	return cents, negative, nil
}

// CentsFromFloat converts a float magnitude (e.g. a provider amount) into
// non-negative cents with half-away-from-zero rounding.
func CentsFromFloat(f float64) int64 {
	return decimal.NewFromFloat(f).Abs().Shift(2).Round(0).IntPart()
}

// Float returns the amount in currency units for JSON responses. Aggregation
// itself always works in cents.
func (m Money) Float() float64 {
	f, _ := decimal.New(m.Cents, -2).Float64()
	return f
}
