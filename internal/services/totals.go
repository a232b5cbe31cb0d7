package services

import (
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/models"
)

// ChapterSubtotal is the finalized cumulative total of one chapter line: the
// sum of every work-item amount positioned after the chapter and before the
// next chapter of equal or shallower depth.
type ChapterSubtotal struct {
	LineNo int     `json:"line_no"`
	Title  string  `json:"title"`
	Depth  int     `json:"depth"`
	Total  float64 `json:"total"`
}

// TotalsReport carries the chapter subtotals in document order plus the flat
// grand total of all work-item amounts.
type TotalsReport struct {
	Chapters   []ChapterSubtotal `json:"chapters"`
	GrandTotal float64           `json:"grand_total"`
}

// TotalsService computes hierarchical chapter subtotals over the flat line
// list in a single forward pass with an explicit stack — the data model has
// no real tree, only depth numbers, so no recursion exists here either.
type TotalsService struct{}

func NewTotalsService() *TotalsService { return &TotalsService{} }

// ComputeChapterTotals walks the ordered line list once. A chapter at depth d
// closes every open chapter of depth >= d (sibling-or-shallower outline
// semantics) and opens itself; a work-item credits every open ancestor
// simultaneously, so a depth-2 subtotal already includes everything under its
// depth-3 sub-chapters. Text lines are inert.
func (s *TotalsService) ComputeChapterTotals(lines []models.QuoteLine) TotalsReport {
	report := TotalsReport{Chapters: make([]ChapterSubtotal, 0, 8)}

	// The stack holds indexes into report.Chapters, so subtotals come out in
	// document order no matter when each chapter closes.
	stack := make([]int, 0, models.MaxDepth)

	for i := range lines {
		line := &lines[i]
		switch {
		case line.IsChapter():
			d := models.ClampDepth(line.Depth)
			for len(stack) > 0 && report.Chapters[stack[len(stack)-1]].Depth >= d {
				stack = stack[:len(stack)-1]
			}
			report.Chapters = append(report.Chapters, ChapterSubtotal{
				LineNo: line.LineNo,
				Title:  line.Title,
				Depth:  d,
			})
			stack = append(stack, len(report.Chapters)-1)
		case line.IsWorkItem():
			amount := line.Amount()
			for _, idx := range stack {
				report.Chapters[idx].Total += amount
			}
			report.GrandTotal += amount
		}
	}
	return report
}
