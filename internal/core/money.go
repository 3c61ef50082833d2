// Package core holds the ledger domain: transaction identity, amount
// normalization and the aggregation types shared by every backend.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ZeroAmount is the normalized form of any blank or unparseable amount.
const ZeroAmount = "0.00"

// NetConvention selects the sign of a transaction's net amount.
type NetConvention int

const (
	// SpendPositive counts withdrawals as positive so category totals compare
	// directly against budgets.
	SpendPositive NetConvention = iota
	// DepositPositive counts deposits as positive.
	DepositPositive
)

// ParseAmount parses a statement amount. Thousands separators (commas) and
// surrounding whitespace are ignored. The second return is false when the
// input is blank or not a number.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// NormalizeAmount renders an amount with exactly two decimals, rounding half
// away from zero. Anything unparseable becomes "0.00".
//
// Examples:
//
//	NormalizeAmount("1,234.5") -> "1234.50"
//	NormalizeAmount("0.125")   -> "0.13"
//	NormalizeAmount("n/a")     -> "0.00"
func NormalizeAmount(s string) string {
	d, ok := ParseAmount(s)
	if !ok {
		return ZeroAmount
	}
	return d.StringFixed(2)
}

// AmountOrZero parses s and falls back to zero.
func AmountOrZero(s string) decimal.Decimal {
	d, _ := ParseAmount(s)
	return d
}

// Net returns the signed amount of a row under the convention.
func (c NetConvention) Net(t RawTransaction) decimal.Decimal {
	w := AmountOrZero(t.Withdrawal)
	d := AmountOrZero(t.Deposit)
	if c == DepositPositive {
		return d.Sub(w)
	}
	return w.Sub(d)
}

// ParseNetConvention maps a config value to a convention. Unknown values
// fall back to SpendPositive.
func ParseNetConvention(s string) NetConvention {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit_positive", "deposit-positive", "deposit":
		return DepositPositive
	default:
		return SpendPositive
	}
}
