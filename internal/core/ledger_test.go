package core

import "testing"

func TestMergeLedger_ReplacesTargetDatesOnly(t *testing.T) {
	existing := []RawTransaction{
		{Date: "03/01/2024", Description: "Rent", Withdrawal: "15000", Category: "rent"},
		{Date: "01/01/2024", Description: "Tea", Withdrawal: "20", Category: "food"},
		{Date: "01/01/2024", Description: "Old row", Withdrawal: "5", Category: "other"},
	}
	incoming := []RawTransaction{
		{Date: "01/01/2024", Description: "Tea", Withdrawal: "20", Category: "food"},
		{Date: "02/01/2024", Description: "Bus", Withdrawal: "30", Category: "transport"},
		{Date: "09/01/2024", Description: "Ignored", Withdrawal: "1"},
	}
	got := MergeLedger(existing, []string{"01/01/2024", "02/01/2024"}, incoming)

	want := []string{"Tea", "Bus", "Rent"}
	if len(got) != len(want) {
		t.Fatalf("got %d rows: %+v", len(got), got)
	}
	for i, d := range want {
		if got[i].Description != d {
			t.Fatalf("row %d = %q, want %q", i, got[i].Description, d)
		}
	}
}

func TestMergeLedger_Idempotent(t *testing.T) {
	batch := []RawTransaction{
		{Date: "05/02/2024", Description: "Coffee", Withdrawal: "120"},
		{Date: "05/02/2024", Description: "Coffee", Withdrawal: "120"},
	}
	once := MergeLedger(nil, []string{"05/02/2024"}, batch)
	twice := MergeLedger(once, []string{"05/02/2024"}, batch)
	if len(once) != 2 || len(twice) != 2 {
		t.Fatalf("expected 2 rows both times, got %d and %d", len(once), len(twice))
	}
}

func TestMergeLedger_UnparseableDatesFirst(t *testing.T) {
	existing := []RawTransaction{
		{Date: "02/01/2024", Description: "b"},
		{Date: "garbage", Description: "a"},
	}
	got := MergeLedger(existing, nil, nil)
	if got[0].Description != "a" {
		t.Fatalf("unparseable date should sort first: %+v", got)
	}
}

func TestLatestDate(t *testing.T) {
	rows := []RawTransaction{{Date: "31/01/2024"}, {Date: "x"}, {Date: "02/02/2024"}, {Date: "15/01/2024"}}
	got, ok := LatestDate(rows)
	if !ok || got != "02/02/2024" {
		t.Fatalf("got %q,%v", got, ok)
	}
	if _, ok := LatestDate(nil); ok {
		t.Fatalf("expected no date")
	}
}
