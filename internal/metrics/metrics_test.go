package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"bankrecon/internal/core"
)

type fakeSource map[core.BankID][]core.RawTransaction

func (f fakeSource) ListLedger(_ context.Context, bank core.BankID) ([]core.RawTransaction, error) {
	if bank == "BROKEN" {
		return nil, errors.New("boom")
	}
	return f[bank], nil
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSync("ICICI", 3, nil)
	m.ObserveDateStatus("ICICI", core.StatusSynced)
	m.ObserveExtraction("ICICI", errors.New("x"))
	m.ObserveBudgetWrite("ICICI")
	m.ObservePublishFailure()
	m.ObserveHTTP("GET", "/healthz", 200, time.Millisecond)
	m.ObserveSuspicious()
	m.ObserveRateLimited()
}

func TestObserveHTTP(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveHTTP("POST", "POST /sync", 200, 20*time.Millisecond)
	m.ObserveHTTP("POST", "POST /sync", 200, 40*time.Millisecond)
	m.ObserveHTTP("POST", "POST /sync", 500, time.Millisecond)
	m.ObserveRateLimited()

	if got := testutil.CollectAndCount(m.HTTPRequests); got != 2 {
		t.Fatalf("series = %d, want 2", got)
	}
	if got := testutil.ToFloat64(m.RateLimited); got != 1 {
		t.Fatalf("rate limited = %v", got)
	}
}

func TestObserveSync(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveSync("ICICI", 4, nil)
	m.ObserveSync("ICICI", 9, errors.New("store down"))

	if got := testutil.ToFloat64(m.SyncedRows.WithLabelValues("ICICI")); got != 4 {
		t.Fatalf("synced rows = %v", got)
	}
	if got := testutil.ToFloat64(m.SyncRequests.WithLabelValues("ICICI", "error")); got != 1 {
		t.Fatalf("error requests = %v", got)
	}
}

func TestLedgerCollector(t *testing.T) {
	src := fakeSource{
		"ICICI": {
			{Date: "01/01/2024", Balance: "1,000.00"},
			{Date: "02/01/2024", Balance: "950.50"},
		},
	}
	c := NewLedgerCollector(src, []core.BankID{"ICICI", "BROKEN"})

	expected := `
# HELP bankrecon_ledger_rows Stored ledger rows.
# TYPE bankrecon_ledger_rows gauge
bankrecon_ledger_rows{bank="ICICI"} 2
# HELP bankrecon_ledger_up Whether the ledger of the bank could be read.
# TYPE bankrecon_ledger_up gauge
bankrecon_ledger_up{bank="BROKEN"} 0
bankrecon_ledger_up{bank="ICICI"} 1
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "bankrecon_ledger_rows", "bankrecon_ledger_up"); err != nil {
		t.Fatal(err)
	}
}
