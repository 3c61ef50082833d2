package services

import "bankrecon/internal/core"

// Resolve attaches a category to each row. A row's own non-blank category
// always wins; otherwise the stored category of the same identity is used,
// if any. Resolving the same input twice yields the same output.
func Resolve(raw []core.RawTransaction, idx core.CategoryIndex) []core.CategorizedTransaction {
	out := make([]core.CategorizedTransaction, 0, len(raw))
	for _, t := range raw {
		sig := core.SignatureOf(t)
		if !t.HasCategory() {
			t.Category = idx[sig]
		}
		out = append(out, core.CategorizedTransaction{RawTransaction: t, Signature: sig})
	}
	return out
}

// TransactionsOn returns the rows dated exactly date, in input order.
func TransactionsOn(txs []core.RawTransaction, date string) []core.RawTransaction {
	var out []core.RawTransaction
	for _, t := range txs {
		if t.Date == date {
			out = append(out, t)
		}
	}
	return out
}
