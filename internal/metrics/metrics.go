// Package metrics exposes Prometheus instrumentation for the ledger
// services. A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bankrecon/internal/core"
)

const namespace = "bankrecon"

type Metrics struct {
	SyncedRows      *prometheus.CounterVec
	SyncRequests    *prometheus.CounterVec
	ClassifiedDates *prometheus.CounterVec
	Extractions     *prometheus.CounterVec
	BudgetWrites    *prometheus.CounterVec
	PublishFailures prometheus.Counter
	HTTPRequests    *prometheus.HistogramVec
	SuspiciousReqs  prometheus.Counter
	RateLimited     prometheus.Counter
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyncedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "synced_rows_total",
			Help:      "Rows written to the ledger by sync requests.",
		}, []string{"bank"}),
		SyncRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "sync_requests_total",
			Help:      "Sync requests by result.",
		}, []string{"bank", "result"}),
		ClassifiedDates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "classified_dates_total",
			Help:      "Statement dates classified, by status.",
		}, []string{"bank", "status"}),
		Extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "statements_total",
			Help:      "Statement extractions by detected bank and result.",
		}, []string{"bank", "result"}),
		BudgetWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "writes_total",
			Help:      "Budget values set, by bank.",
		}, []string{"bank"}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "amqp",
			Name:      "publish_failures_total",
			Help:      "Ledger sync messages that could not be published.",
		}),
		HTTPRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method, route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
		SuspiciousReqs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "suspicious_requests_total",
			Help:      "Requests matching a known probing pattern.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.SyncedRows, m.SyncRequests, m.ClassifiedDates, m.Extractions, m.BudgetWrites,
			m.PublishFailures, m.HTTPRequests, m.SuspiciousReqs, m.RateLimited)
	}
	return m
}

func (m *Metrics) ObserveSync(bank core.BankID, rows int, err error) {
	if m == nil {
		return
	}
	m.SyncRequests.WithLabelValues(string(bank), result(err)).Inc()
	if err == nil {
		m.SyncedRows.WithLabelValues(string(bank)).Add(float64(rows))
	}
}

func (m *Metrics) ObserveDateStatus(bank core.BankID, st core.SyncStatus) {
	if m == nil {
		return
	}
	m.ClassifiedDates.WithLabelValues(string(bank), string(st)).Inc()
}

func (m *Metrics) ObserveExtraction(bank core.BankID, err error) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(string(bank), result(err)).Inc()
}

func (m *Metrics) ObserveBudgetWrite(bank core.BankID) {
	if m == nil {
		return
	}
	m.BudgetWrites.WithLabelValues(string(bank)).Inc()
}

func (m *Metrics) ObservePublishFailure() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}

// ObserveHTTP records one served request. route is the matched mux
// pattern, never the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
}

func (m *Metrics) ObserveSuspicious() {
	if m == nil {
		return
	}
	m.SuspiciousReqs.Inc()
}

func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// LedgerSource is what the ledger collector scrapes.
type LedgerSource interface {
	ListLedger(ctx context.Context, bank core.BankID) ([]core.RawTransaction, error)
}

// LedgerCollector reports per-bank ledger size and closing balance at
// scrape time.
type LedgerCollector struct {
	source  LedgerSource
	banks   []core.BankID
	timeout time.Duration

	rows    *prometheus.Desc
	balance *prometheus.Desc
	up      *prometheus.Desc
}

func NewLedgerCollector(source LedgerSource, banks []core.BankID) *LedgerCollector {
	return &LedgerCollector{
		source:  source,
		banks:   banks,
		timeout: 5 * time.Second,
		rows: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "ledger", "rows"),
			"Stored ledger rows.",
			[]string{"bank"}, nil,
		),
		balance: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "ledger", "balance"),
			"Balance column of the latest stored row.",
			[]string{"bank"}, nil,
		),
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "ledger", "up"),
			"Whether the ledger of the bank could be read.",
			[]string{"bank"}, nil,
		),
	}
}

func (c *LedgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.rows
	ch <- c.balance
	ch <- c.up
}

func (c *LedgerCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	for _, bank := range c.banks {
		rows, err := c.source.ListLedger(ctx, bank)
		if err != nil {
			ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0, string(bank))
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1, string(bank))
		ch <- prometheus.MustNewConstMetric(c.rows, prometheus.GaugeValue, float64(len(rows)), string(bank))
		for i := len(rows) - 1; i >= 0; i-- {
			if b, ok := core.ParseAmount(rows[i].Balance); ok {
				ch <- prometheus.MustNewConstMetric(c.balance, prometheus.GaugeValue, b.InexactFloat64(), string(bank))
				break
			}
		}
	}
}
