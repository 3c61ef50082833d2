package services

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"bankrecon/internal/core"
)

// DefaultPageSize is the drill-down page size.
const DefaultPageSize = 10

var (
	commitmentExclusions = exclusionSet("not required", "dividend", "investment")
	spendingExclusions   = exclusionSet("not required", "investment")
)

func exclusionSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func excluded(set map[string]struct{}, category string) bool {
	_, ok := set[strings.ToLower(strings.TrimSpace(category))]
	return ok
}

// Aggregate groups the rows of one bank and month by their stored category.
// Categories appear in the order they are first seen; categories that only
// have a budget follow, sorted by name, with a zero amount.
func Aggregate(rows []core.RawTransaction, budgets []core.Budget, conv core.NetConvention) []core.CategoryTotal {
	byCat := make(map[string]decimal.Decimal, len(budgets))
	for _, b := range budgets {
		byCat[b.Category] = b.Amount
	}

	var totals []core.CategoryTotal
	pos := make(map[string]int)
	for _, r := range rows {
		cat := r.Category
		if !r.HasCategory() {
			cat = core.UncategorizedLabel
		}
		i, ok := pos[cat]
		if !ok {
			i = len(totals)
			pos[cat] = i
			totals = append(totals, core.CategoryTotal{Category: cat, Amount: decimal.Zero})
		}
		amt := conv.Net(r)
		totals[i].Amount = totals[i].Amount.Add(amt)
		totals[i].Transactions = append(totals[i].Transactions, core.TxnLine{
			Date:        r.Date,
			Description: r.Description,
			Amount:      amt,
		})
	}

	var budgetOnly []string
	for cat := range byCat {
		if _, ok := pos[cat]; !ok {
			budgetOnly = append(budgetOnly, cat)
		}
	}
	sort.Strings(budgetOnly)
	for _, cat := range budgetOnly {
		totals = append(totals, core.CategoryTotal{Category: cat, Amount: decimal.Zero})
	}

	for i := range totals {
		if b, ok := byCat[totals[i].Category]; ok {
			totals[i].Budget = decimal.NullDecimal{Decimal: b, Valid: true}
		}
	}
	return totals
}

// MonthlyCommitment sums the budgets of every category outside
// {not required, dividend, investment}. Unset budgets count as zero.
func MonthlyCommitment(totals []core.CategoryTotal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range totals {
		if excluded(commitmentExclusions, t.Category) || !t.Budget.Valid {
			continue
		}
		sum = sum.Add(t.Budget.Decimal)
	}
	return sum
}

// CurrentSpending sums the amounts of every category outside
// {not required, investment}.
func CurrentSpending(totals []core.CategoryTotal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range totals {
		if excluded(spendingExclusions, t.Category) {
			continue
		}
		sum = sum.Add(t.Amount)
	}
	return sum
}

// Metrics derives the scalar dashboard figures. The balance is passed
// through untouched.
func Metrics(totals []core.CategoryTotal, balance decimal.NullDecimal) core.DashboardMetrics {
	return core.DashboardMetrics{
		MonthlyCommitment: MonthlyCommitment(totals),
		CurrentSpending:   CurrentSpending(totals),
		Balance:           balance,
	}
}

// BudgetStatus compares a category total with its budget. Over budget is
// strictly greater than; an unset or zero budget has no status.
func BudgetStatus(t core.CategoryTotal) string {
	if !t.Budget.Valid || t.Budget.Decimal.IsZero() {
		return core.BudgetUnset
	}
	if t.Amount.GreaterThan(t.Budget.Decimal) {
		return core.BudgetOver
	}
	return core.BudgetWithin
}

// PageCount returns the number of pages needed for n items.
func PageCount(n, size int) int {
	if size < 1 {
		size = DefaultPageSize
	}
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Paginate returns page (1-based) of items. Pages out of range are empty.
func Paginate[T any](items []T, page, size int) []T {
	if size < 1 {
		size = DefaultPageSize
	}
	if page < 1 || page > PageCount(len(items), size) {
		return nil
	}
	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
