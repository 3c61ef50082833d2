package google

import (
	"fmt"
	"strings"

	"bankrecon/internal/core"
)

// parseLedger converts a values matrix into ledger rows. The first row holds
// the headers; columns are located by name so reordered sheets still parse.
// Rows with neither a date nor a description are skipped.
func parseLedger(values [][]any) []core.RawTransaction {
	if len(values) == 0 {
		return nil
	}
	headers := toStrings(values[0])
	idx := make([]int, len(LedgerHeaders))
	for i, h := range LedgerHeaders {
		idx[i] = indexOf(headers, h)
	}
	out := make([]core.RawTransaction, 0, len(values)-1)
	for _, raw := range values[1:] {
		row := toStrings(raw)
		t := core.RawTransaction{
			SerialNo:    safeGet(row, idx[0]),
			Date:        safeGet(row, idx[1]),
			ChequeNo:    safeGet(row, idx[2]),
			Description: safeGet(row, idx[3]),
			Withdrawal:  safeGet(row, idx[4]),
			Deposit:     safeGet(row, idx[5]),
			Balance:     safeGet(row, idx[6]),
			Category:    safeGet(row, idx[7]),
		}
		if t.Date == "" && t.Description == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

func ledgerValues(rows []core.RawTransaction) [][]any {
	out := make([][]any, 0, len(rows)+1)
	out = append(out, anyRow(LedgerHeaders))
	for _, t := range rows {
		out = append(out, []any{t.SerialNo, t.Date, t.ChequeNo, t.Description, t.Withdrawal, t.Deposit, t.Balance, t.Category})
	}
	return out
}

// parseCategories reads the first column, skipping the header, blanks and
// "#" comments. Order is preserved and duplicates dropped.
func parseCategories(values [][]any) []string {
	seen := map[string]struct{}{}
	var out []string
	for i, raw := range values {
		row := toStrings(raw)
		v := strings.ToLower(safeGet(row, 0))
		if i == 0 && strings.EqualFold(v, CategoryHeaders[0]) {
			continue
		}
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func categoryValues(categories []string) [][]any {
	out := make([][]any, 0, len(categories)+1)
	out = append(out, anyRow(CategoryHeaders))
	for _, c := range categories {
		out = append(out, []any{c})
	}
	return out
}

func parseBudgets(values [][]any) []core.Budget {
	if len(values) == 0 {
		return nil
	}
	headers := toStrings(values[0])
	colBank := indexOf(headers, "Bank")
	colMonth := indexOf(headers, "Month")
	colCat := indexOf(headers, "Category")
	colAmount := indexOf(headers, "Amount")
	var out []core.Budget
	for _, raw := range values[1:] {
		row := toStrings(raw)
		amt, ok := core.ParseAmount(safeGet(row, colAmount))
		if !ok {
			continue
		}
		key := core.BudgetKey{
			Bank:      core.BankID(safeGet(row, colBank)).Normalize(),
			MonthYear: safeGet(row, colMonth),
			Category:  safeGet(row, colCat),
		}
		if key.Bank == "" || key.MonthYear == "" || key.Category == "" {
			continue
		}
		out = append(out, core.Budget{BudgetKey: key, Amount: amt})
	}
	return out
}

func budgetValues(budgets []core.Budget) [][]any {
	out := make([][]any, 0, len(budgets)+1)
	out = append(out, anyRow(BudgetHeaders))
	for _, b := range budgets {
		out = append(out, []any{string(b.Bank), b.MonthYear, b.Category, b.Amount.String()})
	}
	return out
}

func anyRow(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
