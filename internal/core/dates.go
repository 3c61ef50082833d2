package core

import (
	"fmt"
	"strings"
	"time"
)

// LedgerDateLayout is the DD/MM/YYYY layout ledger rows are stored in.
const LedgerDateLayout = "02/01/2006"

// MonthYearLayout identifies a dashboard month, e.g. "2024-01".
const MonthYearLayout = "2006-01"

var ledgerDateLayouts = []string{
	LedgerDateLayout,
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"2006-01-02",
}

// ParseLedgerDate parses a ledger date. DD/MM/YYYY is tried first; a few
// statement variants are accepted as well.
func ParseLedgerDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range ledgerDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MonthYearOf returns the month identifier of a ledger date.
func MonthYearOf(date string) (string, bool) {
	t, ok := ParseLedgerDate(date)
	if !ok {
		return "", false
	}
	return t.Format(MonthYearLayout), true
}

// ValidateMonthYear checks a month identifier.
func ValidateMonthYear(m string) error {
	if _, err := time.Parse(MonthYearLayout, m); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMonth, m)
	}
	return nil
}
