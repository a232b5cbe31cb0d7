package services

import (
	"testing"

	"github.com/fvictoire59va/ERP-BTP-sub000/internal/models"
)

func chapter(lineNo int, title string, depth int) models.QuoteLine {
	l := models.NewChapterLine(title, depth)
	l.LineNo = lineNo
	return l
}

func work(lineNo int, amount float64) models.QuoteLine {
	return models.QuoteLine{LineNo: lineNo, Kind: models.LineKindWorkItem, Quantity: 1, UnitSalePrice: amount}
}

func subtotalByTitle(report TotalsReport, title string) (float64, bool) {
	for _, c := range report.Chapters {
		if c.Title == title {
			return c.Total, true
		}
	}
	return 0, false
}

func TestChapterTotals_NestedChapters(t *testing.T) {
	s := NewTotalsService()
	lines := []models.QuoteLine{
		chapter(1, "A", 1),
		work(2, 5),
		chapter(3, "A.1", 2),
		work(4, 3),
		chapter(5, "A.2", 2),
		work(6, 2),
	}
	report := s.ComputeChapterTotals(lines)

	tests := []struct {
		title string
		want  float64
	}{
		{"A.1", 3},
		{"A.2", 2},
		{"A", 10}, // 5 + 3 + 2: ancestors absorb everything under sub-chapters
	}
	for _, tt := range tests {
		got, ok := subtotalByTitle(report, tt.title)
		if !ok {
			t.Fatalf("missing subtotal for %s", tt.title)
		}
		if got != tt.want {
			t.Errorf("%s subtotal = %v, want %v", tt.title, got, tt.want)
		}
	}
	if report.GrandTotal != 10 {
		t.Errorf("grand total = %v, want 10", report.GrandTotal)
	}
	// Document order preserved.
	if report.Chapters[0].Title != "A" || report.Chapters[1].Title != "A.1" || report.Chapters[2].Title != "A.2" {
		t.Errorf("chapters out of document order: %+v", report.Chapters)
	}
}

func TestChapterTotals_SiblingClosesSibling(t *testing.T) {
	s := NewTotalsService()
	lines := []models.QuoteLine{
		chapter(1, "X", 2),
		work(2, 4),
		chapter(3, "Y", 2),
		work(4, 6),
	}
	report := s.ComputeChapterTotals(lines)

	if got, _ := subtotalByTitle(report, "X"); got != 4 {
		t.Errorf("X subtotal = %v, want 4", got)
	}
	if got, _ := subtotalByTitle(report, "Y"); got != 6 {
		t.Errorf("Y subtotal = %v, want 6", got)
	}
}

func TestChapterTotals_ShallowerChapterClosesDeeper(t *testing.T) {
	s := NewTotalsService()
	lines := []models.QuoteLine{
		chapter(1, "A", 1),
		chapter(2, "A.1", 3),
		work(3, 7),
		chapter(4, "B", 1), // closes both A.1 and A
		work(5, 2),
	}
	report := s.ComputeChapterTotals(lines)

	if got, _ := subtotalByTitle(report, "A.1"); got != 7 {
		t.Errorf("A.1 subtotal = %v, want 7", got)
	}
	if got, _ := subtotalByTitle(report, "A"); got != 7 {
		t.Errorf("A subtotal = %v, want 7", got)
	}
	if got, _ := subtotalByTitle(report, "B"); got != 2 {
		t.Errorf("B subtotal = %v, want 2", got)
	}
}

func TestChapterTotals_NoChapterFallback(t *testing.T) {
	s := NewTotalsService()
	lines := []models.QuoteLine{work(1, 10), work(2, 20), work(3, 30)}
	report := s.ComputeChapterTotals(lines)

	if len(report.Chapters) != 0 {
		t.Errorf("expected no chapter subtotals, got %+v", report.Chapters)
	}
	if report.GrandTotal != 60 {
		t.Errorf("grand total = %v, want 60", report.GrandTotal)
	}
}

func TestChapterTotals_TextLinesInert(t *testing.T) {
	s := NewTotalsService()
	text := models.NewTextLine("prévoir accès grue", 1)
	text.LineNo = 2
	lines := []models.QuoteLine{
		chapter(1, "A", 1),
		text,
		work(3, 5),
	}
	report := s.ComputeChapterTotals(lines)
	if got, _ := subtotalByTitle(report, "A"); got != 5 {
		t.Errorf("A subtotal = %v, want 5", got)
	}
}

func TestChapterTotals_EmptyList(t *testing.T) {
	s := NewTotalsService()
	report := s.ComputeChapterTotals(nil)
	if report.GrandTotal != 0 || len(report.Chapters) != 0 {
		t.Errorf("unexpected report for empty list: %+v", report)
	}
}
