package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"bankrecon/internal/core"
)

func TestDefaultBanks(t *testing.T) {
	banks := DefaultBanks()
	if err := banks.Validate(); err != nil {
		t.Fatalf("built-in formats invalid: %v", err)
	}
	def, ok := banks.Default()
	if !ok || def.Name != "ICICI" {
		t.Fatalf("default = %+v", def)
	}
	if !reflect.DeepEqual(banks.IDs(), []core.BankID{"ICICI", "HDFC"}) {
		t.Fatalf("ids = %v", banks.IDs())
	}
	want := map[core.BankID]string{"ICICI": "icici_transactions", "HDFC": "hdfc_transactions"}
	if !reflect.DeepEqual(banks.Worksheets(), want) {
		t.Fatalf("worksheets = %v", banks.Worksheets())
	}
	if _, ok := banks.Find("hdfc"); !ok {
		t.Fatal("find is case-insensitive")
	}
	if _, ok := banks.Find("SBI"); ok {
		t.Fatal("unknown bank found")
	}
}

func TestLoadBanks_FileMatchesDefaults(t *testing.T) {
	got, err := LoadBanks(filepath.Join("..", "..", "configs", "banks.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, DefaultBanks()) {
		t.Fatalf("configs/banks.yaml drifted from DefaultBanks:\n%+v", got)
	}
}

func TestLoadBanks_EmptyPath(t *testing.T) {
	got, err := LoadBanks("")
	if err != nil || len(got) != 2 {
		t.Fatalf("LoadBanks(\"\") = %v, %v", got, err)
	}
}

func TestParseBanks(t *testing.T) {
	yml := `
banks:
  - name: sbi
    detection:
      text_present: ["SBI"]
    columns:
      - {name: Date, type: date, x_min: 0, x_max: 60}
      - {name: Description, type: text, x_min: 60, x_max: 300}
`
	banks, err := ParseBanks([]byte(yml))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if banks[0].MultilineStrategy != StrategyAppendToPrevious {
		t.Fatalf("strategy default = %q", banks[0].MultilineStrategy)
	}
	def, _ := banks.Default()
	if def.Name != "sbi" {
		t.Fatalf("fallback default should be the last format, got %q", def.Name)
	}
	if ws := banks.Worksheets()["SBI"]; ws != "sbi_transactions" {
		t.Fatalf("worksheet = %q", ws)
	}
}

func TestParseBanks_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want string
	}{
		{"no banks", "banks: []", "defines no banks"},
		{"not yaml", "banks: [", "parse banks config"},
		{"no date column", "banks:\n  - name: X\n    columns:\n      - {name: D, type: text, x_min: 0, x_max: 1}\n", "no date column"},
		{"bad type", "banks:\n  - name: X\n    columns:\n      - {name: D, type: date, x_min: 0, x_max: 1}\n      - {name: A, type: money, x_min: 1, x_max: 2}\n", "unknown type"},
		{"empty range", "banks:\n  - name: X\n    columns:\n      - {name: D, type: date, x_min: 5, x_max: 5}\n", "empty range"},
		{"bad strategy", "banks:\n  - name: X\n    multiline_strategy: guess\n    columns:\n      - {name: D, type: date, x_min: 0, x_max: 1}\n", "unknown multiline strategy"},
		{"duplicate", "banks:\n  - name: X\n    columns:\n      - {name: D, type: date, x_min: 0, x_max: 1}\n  - name: x\n    columns:\n      - {name: D, type: date, x_min: 0, x_max: 1}\n", "defined twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBanks([]byte(tt.yml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoadBanks_MissingFile(t *testing.T) {
	if _, err := LoadBanks(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error")
	}
	path := filepath.Join(t.TempDir(), "banks.yaml")
	_ = os.WriteFile(path, []byte("banks:\n  - name: X\n    columns:\n      - {name: D, type: date, x_min: 0, x_max: 1}\n"), 0o644)
	if _, err := LoadBanks(path); err != nil {
		t.Fatalf("load: %v", err)
	}
}
