package services

import (
	"reflect"
	"testing"

	"bankrecon/internal/core"
)

func TestResolve(t *testing.T) {
	food := core.RawTransaction{Date: "2024-01-05", Description: "Coffee Shop", Withdrawal: "1,234.5"}
	idx := core.CategoryIndex{core.SignatureOf(food): "food"}

	tests := []struct {
		name string
		in   core.RawTransaction
		want string
	}{
		{"prefilled from index", food, "food"},
		{"own category wins", withCategory(food, "travel"), "travel"},
		{"blank own category is prefilled", withCategory(food, "   "), "food"},
		{"unknown signature stays blank", core.RawTransaction{Date: "x", Description: "y"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve([]core.RawTransaction{tt.in}, idx)
			if got[0].Category != tt.want {
				t.Fatalf("category = %q, want %q", got[0].Category, tt.want)
			}
			if got[0].Signature != core.SignatureOf(tt.in) {
				t.Fatalf("signature not attached")
			}
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	rows := []core.RawTransaction{
		{Date: "01/01/2024", Description: "Tea", Withdrawal: "20"},
		{Date: "01/01/2024", Description: "Bus", Withdrawal: "30", Category: "transport"},
	}
	idx := core.CategoryIndex{core.SignatureOf(rows[0]): "food"}
	a := Resolve(rows, idx)
	b := Resolve(rows, idx)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("resolve not idempotent")
	}
	if rows[0].Category != "" {
		t.Fatalf("input mutated")
	}
}

func TestTransactionsOn(t *testing.T) {
	rows := []core.RawTransaction{{Date: "01/01/2024"}, {Date: "02/01/2024"}, {Date: "01/01/2024"}}
	if got := TransactionsOn(rows, "01/01/2024"); len(got) != 2 {
		t.Fatalf("got %d rows", len(got))
	}
}

func withCategory(t core.RawTransaction, c string) core.RawTransaction {
	t.Category = c
	return t
}
