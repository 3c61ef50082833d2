package core

import (
	"errors"
	"strings"
)

const (
	StatusSynced      SyncStatus = "green"
	StatusNeedsReview SyncStatus = "red"
)

type (
	BankID string

	// SyncStatus is the binary reconciliation state of one statement date.
	SyncStatus string

	// RawTransaction is one statement row as produced by extraction. All
	// amounts stay as text so the signature can be computed from exactly
	// what the statement said.
	RawTransaction struct {
		SerialNo    string `json:"S No,omitempty"`
		Date        string `json:"Date"`
		ChequeNo    string `json:"Cheque No,omitempty"`
		Description string `json:"Description"`
		Withdrawal  string `json:"Withdrawal"`
		Deposit     string `json:"Deposit"`
		Balance     string `json:"Balance,omitempty"`
		Category    string `json:"Category,omitempty"`
	}

	// CategorizedTransaction carries the resolved category in the embedded
	// Category field.
	CategorizedTransaction struct {
		RawTransaction
		Signature Signature `json:"-"`
	}

	Statement struct {
		Bank         BankID           `json:"bank"`
		Transactions []RawTransaction `json:"transactions"`
	}

	// DateStatuses maps a statement date to its sync status.
	DateStatuses map[string]SyncStatus

	// CategoryIndex maps a transaction identity to the category already
	// stored for it.
	CategoryIndex map[Signature]string
)

var (
	ErrPasswordRequired = errors.New("password required")
	ErrEmptyCategory    = errors.New("category name cannot be empty")
	ErrInvalidBudget    = errors.New("invalid budget")
	ErrUnknownBank      = errors.New("unknown bank")
	ErrNoTransactions   = errors.New("no transactions")
	ErrInvalidMonth     = errors.New("invalid month")
)

// DefaultCategories seeds a store that has no category list yet.
var DefaultCategories = []string{
	"food", "transport", "rent", "salary", "bills",
	"shopping", "investment", "other", "entertainment", "health",
}

// UncategorizedLabel groups rows whose stored category is blank.
const UncategorizedLabel = "uncategorized"

// Normalize upper-cases and trims a bank identifier.
func (b BankID) Normalize() BankID {
	return BankID(strings.ToUpper(strings.TrimSpace(string(b))))
}

func (b BankID) String() string { return string(b) }

// NormalizeCategoryName trims and lower-cases a category name for the
// category list. Blank names are rejected.
func NormalizeCategoryName(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", ErrEmptyCategory
	}
	return n, nil
}

// IsCategorized reports whether category names a category, i.e. is not
// blank after trimming.
func IsCategorized(category string) bool {
	return strings.TrimSpace(category) != ""
}

// HasCategory reports whether the row's own category is non-blank.
func (t RawTransaction) HasCategory() bool {
	return IsCategorized(t.Category)
}

// Categorize returns a copy of the row with the given category and its
// identity attached.
func (t RawTransaction) Categorize(category string) CategorizedTransaction {
	t.Category = category
	return CategorizedTransaction{RawTransaction: t, Signature: SignatureOf(t)}
}

// Raw drops the identity again.
func (c CategorizedTransaction) Raw() RawTransaction {
	return c.RawTransaction
}

// Legacy renders the index with the underscore-joined signature strings
// used on the JSON wire.
func (idx CategoryIndex) Legacy() map[string]string {
	out := make(map[string]string, len(idx))
	for sig, cat := range idx {
		out[sig.String()] = cat
	}
	return out
}

// IndexLedger builds a CategoryIndex from stored ledger rows. When the same
// identity occurs more than once the later row wins.
func IndexLedger(rows []RawTransaction) CategoryIndex {
	idx := make(CategoryIndex, len(rows))
	for _, r := range rows {
		idx[SignatureOf(r)] = r.Category
	}
	return idx
}
