package core

import (
	"sort"
	"strings"
	"time"
)

// DateSet returns the set of trimmed, non-blank dates.
func DateSet(dates []string) map[string]struct{} {
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		if d = strings.TrimSpace(d); d != "" {
			set[d] = struct{}{}
		}
	}
	return set
}

// MergeLedger replaces the rows of the target dates in existing with the
// incoming rows dated on one of them. Incoming rows on other dates are
// ignored. The result is stably sorted by ledger date with unparseable dates
// first, so merging the same batch twice yields the same ledger.
func MergeLedger(existing []RawTransaction, dates []string, incoming []RawTransaction) []RawTransaction {
	targets := DateSet(dates)
	merged := make([]RawTransaction, 0, len(existing)+len(incoming))
	for _, r := range existing {
		if _, ok := targets[strings.TrimSpace(r.Date)]; !ok {
			merged = append(merged, r)
		}
	}
	for _, r := range incoming {
		if _, ok := targets[strings.TrimSpace(r.Date)]; ok {
			merged = append(merged, r)
		}
	}
	SortLedger(merged)
	return merged
}

// SortLedger stably sorts rows by ledger date.
func SortLedger(rows []RawTransaction) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := ParseLedgerDate(rows[i].Date)
		b, _ := ParseLedgerDate(rows[j].Date)
		return a.Before(b)
	})
}

// LatestDate returns the most recent parseable date of the rows.
func LatestDate(rows []RawTransaction) (string, bool) {
	var (
		best  string
		bestT time.Time
		found bool
	)
	for _, r := range rows {
		t, ok := ParseLedgerDate(r.Date)
		if !ok {
			continue
		}
		if !found || t.After(bestT) {
			best, bestT, found = t.Format(LedgerDateLayout), t, true
		}
	}
	return best, found
}
