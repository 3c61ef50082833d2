package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"bankrecon/internal/core"
)

// CSVHeader matches the column names of the ledger worksheets.
var CSVHeader = []string{"S No", "Date", "Cheque No", "Description", "Withdrawal", "Deposit", "Balance"}

// WriteCSV writes txs with a header row.
func WriteCSV(w io.Writer, txs []core.RawTransaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, t := range txs {
		rec := []string{t.SerialNo, t.Date, t.ChequeNo, t.Description, t.Withdrawal, t.Deposit, t.Balance}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses rows written by WriteCSV or exported from a ledger
// worksheet. Columns are matched by header name, case-insensitively, so
// order does not matter and a Category column is picked up when present.
// Date and Description are required.
func ReadCSV(r io.Reader) ([]core.RawTransaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.ErrNoTransactions
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, req := range []string{"date", "description"} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("csv header is missing %q", req)
		}
	}

	get := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []core.RawTransaction
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		t := core.RawTransaction{
			SerialNo:    get(rec, "s no"),
			Date:        get(rec, "date"),
			ChequeNo:    get(rec, "cheque no"),
			Description: get(rec, "description"),
			Withdrawal:  get(rec, "withdrawal"),
			Deposit:     get(rec, "deposit"),
			Balance:     get(rec, "balance"),
			Category:    get(rec, "category"),
		}
		if t.Date == "" && t.Description == "" {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
