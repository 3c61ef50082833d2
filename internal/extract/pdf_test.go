package extract

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ledongthuc/pdf"

	"bankrecon/internal/core"
)

func TestPageWords(t *testing.T) {
	glyphs := []pdf.Text{
		{S: "E", X: 10, W: 5, Y: 680, FontSize: 10},
		{S: "A", X: 10, W: 5, Y: 700, FontSize: 10},
		{S: "B", X: 15, W: 5, Y: 700, FontSize: 10},
		{S: " ", X: 20, W: 3, Y: 700, FontSize: 10},
		{S: "C", X: 23, W: 5, Y: 700, FontSize: 10},
		{S: "D", X: 60, W: 5, Y: 700.2, FontSize: 10},
		{S: "", X: 90, W: 5, Y: 700, FontSize: 10},
	}
	got := pageWords(glyphs, 842)
	want := []Word{
		{Text: "AB", X0: 10, X1: 20, Top: 132},
		{Text: "C", X0: 23, X1: 28, Top: 132},
		{Text: "D", X0: 60, X1: 65, Top: 131.8},
		{Text: "E", X0: 10, X1: 15, Top: 152},
	}
	if len(got) != len(want) {
		t.Fatalf("pageWords = %+v", got)
	}
	for i := range want {
		if got[i].Text != want[i].Text || got[i].X0 != want[i].X0 || got[i].X1 != want[i].X1 {
			t.Errorf("word %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if got[0].Top != 132 || got[3].Top != 152 {
		t.Errorf("tops = %v, %v", got[0].Top, got[3].Top)
	}
}

func TestPageWords_Empty(t *testing.T) {
	if got := pageWords(nil, 842); !reflect.DeepEqual(got, []Word(nil)) {
		t.Fatalf("pageWords(nil) = %+v", got)
	}
}

func TestReadWords_NotAPDF(t *testing.T) {
	_, err := ReadWords(context.Background(), []byte("definitely not a pdf"), "")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, core.ErrPasswordRequired) {
		t.Fatalf("garbage input must not look like a password problem: %v", err)
	}
}
