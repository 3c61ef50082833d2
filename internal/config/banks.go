package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"bankrecon/internal/core"
)

// Column types of a statement layout.
const (
	ColumnDate   = "date"
	ColumnAmount = "amount"
	ColumnText   = "text"
)

// Strategies for description lines that carry no date.
const (
	StrategyAppendToPrevious = "append_to_previous"
	StrategyNearestNeighbor  = "nearest_neighbor"
)

// BankFormat describes the page layout of one bank's statement.
type BankFormat struct {
	Name              string    `yaml:"name"`
	Worksheet         string    `yaml:"worksheet"`
	Detection         Detection `yaml:"detection"`
	Columns           []Column  `yaml:"columns"`
	Exclusions        []string  `yaml:"exclusions"`
	MultilineStrategy string    `yaml:"multiline_strategy"`
	// DateFormat "DD/MM/YY" expands two-digit years to 20YY.
	DateFormat string `yaml:"date_format"`
}

type Detection struct {
	// TextPresent selects the format when any marker word is on page one.
	TextPresent []string `yaml:"text_present"`
	Default     bool     `yaml:"default"`
}

// Column is a half-open horizontal band [XMin, XMax) in PDF points.
type Column struct {
	Name string  `yaml:"name"`
	Type string  `yaml:"type"`
	XMin float64 `yaml:"x_min"`
	XMax float64 `yaml:"x_max"`
}

// Banks is the ordered set of known statement formats.
type Banks []BankFormat

type banksFile struct {
	Banks Banks `yaml:"banks"`
}

// DefaultBanks returns the built-in ICICI and HDFC layouts.
func DefaultBanks() Banks {
	return Banks{
		{
			Name:      "ICICI",
			Worksheet: "icici_transactions",
			Detection: Detection{Default: true},
			Columns: []Column{
				{Name: "S No", Type: ColumnText, XMin: 0, XMax: 50},
				{Name: "Date", Type: ColumnDate, XMin: 50, XMax: 110},
				{Name: "Cheque No", Type: ColumnText, XMin: 110, XMax: 180},
				{Name: "Description", Type: ColumnText, XMin: 180, XMax: 390},
				{Name: "Withdrawal", Type: ColumnAmount, XMin: 390, XMax: 460},
				{Name: "Deposit", Type: ColumnAmount, XMin: 460, XMax: 520},
				{Name: "Balance", Type: ColumnAmount, XMin: 520, XMax: 1000},
			},
			Exclusions:        []string{"Transaction Remarks", "Withdrawal Amount", "Page ", "Statement of Transactions"},
			MultilineStrategy: StrategyNearestNeighbor,
			DateFormat:        "DD.MM.YYYY",
		},
		{
			Name:      "HDFC",
			Worksheet: "hdfc_transactions",
			Detection: Detection{TextPresent: []string{"WithdrawalAmt.", "DepositAmt."}},
			Columns: []Column{
				{Name: "Date", Type: ColumnDate, XMin: 0, XMax: 70},
				{Name: "Description", Type: ColumnText, XMin: 70, XMax: 280},
				{Name: "Cheque No", Type: ColumnText, XMin: 280, XMax: 360},
				{Name: "Value Date", Type: ColumnText, XMin: 360, XMax: 420},
				{Name: "Withdrawal", Type: ColumnAmount, XMin: 420, XMax: 490},
				{Name: "Deposit", Type: ColumnAmount, XMin: 490, XMax: 560},
				{Name: "Balance", Type: ColumnAmount, XMin: 560, XMax: 1000},
			},
			Exclusions:        []string{"Narration", "Page No", "Statement of account", "STATEMENT SUMMARY", "HDFC BANK LIMITED"},
			MultilineStrategy: StrategyAppendToPrevious,
			DateFormat:        "DD/MM/YY",
		},
	}
}

// LoadBanks reads bank formats from a YAML file. An empty path yields the
// built-in formats.
func LoadBanks(path string) (Banks, error) {
	if path == "" {
		return DefaultBanks(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read banks config: %w", err)
	}
	return ParseBanks(data)
}

func ParseBanks(data []byte) (Banks, error) {
	var f banksFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse banks config: %w", err)
	}
	if len(f.Banks) == 0 {
		return nil, errors.New("banks config defines no banks")
	}
	for i := range f.Banks {
		if f.Banks[i].MultilineStrategy == "" {
			f.Banks[i].MultilineStrategy = StrategyAppendToPrevious
		}
	}
	if err := f.Banks.Validate(); err != nil {
		return nil, err
	}
	return f.Banks, nil
}

// Validate reports every malformed format.
func (b Banks) Validate() error {
	var errs []error
	seen := map[core.BankID]bool{}
	for i, f := range b {
		id := core.BankID(f.Name).Normalize()
		if id == "" {
			errs = append(errs, fmt.Errorf("bank %d: name is required", i))
			continue
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("bank %s: defined twice", id))
		}
		seen[id] = true
		switch f.MultilineStrategy {
		case StrategyAppendToPrevious, StrategyNearestNeighbor:
		default:
			errs = append(errs, fmt.Errorf("bank %s: unknown multiline strategy %q", id, f.MultilineStrategy))
		}
		hasDate := false
		for _, c := range f.Columns {
			switch c.Type {
			case ColumnDate:
				hasDate = true
			case ColumnAmount, ColumnText:
			default:
				errs = append(errs, fmt.Errorf("bank %s: column %q has unknown type %q", id, c.Name, c.Type))
			}
			if c.XMin >= c.XMax {
				errs = append(errs, fmt.Errorf("bank %s: column %q has empty range [%g, %g)", id, c.Name, c.XMin, c.XMax))
			}
		}
		if !hasDate {
			errs = append(errs, fmt.Errorf("bank %s: no date column", id))
		}
	}
	return errors.Join(errs...)
}

// Default returns the format marked default, or the last one.
func (b Banks) Default() (BankFormat, bool) {
	for _, f := range b {
		if f.Detection.Default {
			return f, true
		}
	}
	if len(b) == 0 {
		return BankFormat{}, false
	}
	return b[len(b)-1], true
}

func (b Banks) Find(bank core.BankID) (BankFormat, bool) {
	for _, f := range b {
		if core.BankID(f.Name).Normalize() == bank.Normalize() {
			return f, true
		}
	}
	return BankFormat{}, false
}

// IDs lists the configured banks in file order.
func (b Banks) IDs() []core.BankID {
	out := make([]core.BankID, 0, len(b))
	for _, f := range b {
		out = append(out, core.BankID(f.Name).Normalize())
	}
	return out
}

// Worksheets maps each bank to its ledger worksheet.
func (b Banks) Worksheets() map[core.BankID]string {
	out := make(map[core.BankID]string, len(b))
	for _, f := range b {
		ws := strings.TrimSpace(f.Worksheet)
		if ws == "" {
			ws = strings.ToLower(f.Name) + "_transactions"
		}
		out[core.BankID(f.Name).Normalize()] = ws
	}
	return out
}
