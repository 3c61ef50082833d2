// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding request bodies and reading
// query parameters shared by the ledger and dashboard handlers.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bankrecon/internal/core"
)

// maxJSONBody bounds every JSON request body. Statement batches are a few
// hundred rows at most.
const maxJSONBody = 4 << 20

var errBadBody = errors.New("invalid request body")

// BatchRequest is the body of /check_status, /prefill and /sync.
type BatchRequest struct {
	Bank         string                `json:"bank"`
	Date         string                `json:"date,omitempty"`
	Dates        []string              `json:"dates,omitempty"`
	Transactions []core.RawTransaction `json:"transactions"`
}

type CategoryRequest struct {
	Category string `json:"category"`
}

type BudgetRequest struct {
	Bank      string `json:"bank"`
	MonthYear string `json:"month_year"`
	Category  string `json:"category"`
	// Amount accepts a JSON number or string.
	Amount json.Number `json:"amount"`
}

// DecodeJSON reads one JSON value from the request body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty", errBadBody)
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

// DashboardParams holds the query of /dashboard_data.
type DashboardParams struct {
	Bank      string
	MonthYear string
	// Category selects which category the Page applies to.
	Category string
	Page     int
	Hidden   []string
}

// defaultHidden is left out of the chart when the query has no hidden key.
var defaultHidden = []string{"not required"}

// ParseDashboardParams reads the dashboard query. A missing or invalid page
// is page 1. Without a hidden key the chart hides defaultHidden; an empty
// hidden= shows every category.
func ParseDashboardParams(query url.Values) DashboardParams {
	p := DashboardParams{
		Bank:      sanitizeInput(query.Get("bank")),
		MonthYear: sanitizeInput(query.Get("month_year")),
		Category:  sanitizeInput(query.Get("category")),
		Page:      1,
	}
	if v := strings.TrimSpace(query.Get("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}
	if !query.Has("hidden") {
		p.Hidden = append([]string(nil), defaultHidden...)
		return p
	}
	for _, h := range strings.Split(query.Get("hidden"), ",") {
		if h = sanitizeInput(h); h != "" {
			p.Hidden = append(p.Hidden, h)
		}
	}
	return p
}

// WantsCSV reports whether the client asked for CSV output.
func WantsCSV(r *http.Request) bool {
	if f := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); f != "" {
		return f == "csv"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/csv")
}
