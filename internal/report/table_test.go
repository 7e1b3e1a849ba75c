package report

import (
	"bytes"
	"testing"

	"github.com/verte-zerg/tabcube/internal/model"
)

func TestLinesAlignsColumns(t *testing.T) {
	res := model.Result{
		Columns: []string{"Region", "Amount"},
		Rows: [][]string{
			{"East", "1,234.50"},
			{"Nordvest", "8.00"},
		},
	}

	lines := Lines(res, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Region      Amount" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "East      1,234.50" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Nordvest      8.00" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestLinesWideRunes(t *testing.T) {
	res := model.Result{
		Columns: []string{"City", "N"},
		Rows:    [][]string{{"東京", "1"}, {"Oslo", "22"}},
	}
	lines := Lines(res, false)
	if lines[1] != "東京   1" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "Oslo  22" {
		t.Fatalf("unexpected row: %q", lines[2])
	}
}

func TestRenderPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, model.Result{Columns: []string{"No data"}}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "No data\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestLooksNumber(t *testing.T) {
	for _, s := range []string{"1", "-1,234.5", "05/01/2024"} {
		want := s != "05/01/2024"
		if got := looksNumber(s); got != want {
			t.Fatalf("looksNumber(%q) = %v, want %v", s, got, want)
		}
	}
	if looksNumber("-") || looksNumber("1-2") {
		t.Fatalf("expected bare sign and inner dash to be rejected")
	}
}
