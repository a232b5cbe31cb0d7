package services

import (
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/models"
)

// MoveDirection selects the neighbor a line swaps with.
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

// LineService mutates a quote's flat line list in place. The nesting stays
// implicit (depth numbers on a flat ordered slice), which keeps every edit a
// swap or an append; depths are re-derived after structural changes.
type LineService struct {
	pricing *PricingService
}

func NewLineService(pricing *PricingService) *LineService {
	return &LineService{pricing: pricing}
}

// InsertWorkItem deep-copies the assembly's current components into a new
// work-item line, derives the sale price from the quote's coefficient, and
// appends. Depth is inherited from the nearest preceding chapter (default 1).
func (s *LineService) InsertWorkItem(q *models.Quote, asm *models.Assembly, quantity float64) (*models.QuoteLine, error) {
	if asm == nil {
		return nil, ErrAssemblyNotFound
	}
	asmID := asm.ID
	line := models.QuoteLine{
		Kind:          models.LineKindWorkItem,
		AssemblyID:    &asmID,
		Designation:   asm.Name,
		Quantity:      quantity,
		UnitSalePrice: s.pricing.DeriveUnitSalePrice(asm.CostPerUnit(), q.MarginCoefficient),
		Components:    models.FreezeComponents(asm.Components),
		Depth:         precedingChapterDepth(q.Lines),
	}
	return s.appendLine(q, line), nil
}

// InsertChapter appends a chapter header with an explicit depth.
func (s *LineService) InsertChapter(q *models.Quote, title string, depth int) *models.QuoteLine {
	return s.appendLine(q, models.NewChapterLine(title, depth))
}

// InsertText appends a free-text line with an explicit depth. No price impact.
func (s *LineService) InsertText(q *models.Quote, text string, depth int) *models.QuoteLine {
	return s.appendLine(q, models.NewTextLine(text, depth))
}

func (s *LineService) appendLine(q *models.Quote, line models.QuoteLine) *models.QuoteLine {
	line.QuoteID = q.ID
	line.LineNo = q.AllocateLineNo()
	line.Position = len(q.Lines)
	q.Lines = append(q.Lines, line)
	return &q.Lines[len(q.Lines)-1]
}

// Move swaps the line with its adjacent neighbor, then re-derives work-item
// depths: moving across a chapter boundary changes the effective depth.
func (s *LineService) Move(q *models.Quote, lineNo int, direction MoveDirection) error {
	idx := indexOfLine(q.Lines, lineNo)
	if idx < 0 {
		return ErrLineNotFound
	}
	other := idx - 1
	if direction == MoveDown {
		other = idx + 1
	}
	if other < 0 || other >= len(q.Lines) {
		return nil // already at the edge, not an error
	}
	q.Lines[idx], q.Lines[other] = q.Lines[other], q.Lines[idx]
	s.compactPositions(q)
	s.RederiveDepths(q)
	return nil
}

// Duplicate clones a line (new line number, same depth and content, deep-copied
// components) and inserts it immediately after the source.
func (s *LineService) Duplicate(q *models.Quote, lineNo int) (*models.QuoteLine, error) {
	idx := indexOfLine(q.Lines, lineNo)
	if idx < 0 {
		return nil, ErrLineNotFound
	}
	dup := q.Lines[idx].Clone()
	dup.LineNo = q.AllocateLineNo()
	q.Lines = append(q.Lines, models.QuoteLine{})
	copy(q.Lines[idx+2:], q.Lines[idx+1:])
	q.Lines[idx+1] = dup
	s.compactPositions(q)
	return &q.Lines[idx+1], nil
}

// Remove deletes the line. Surviving line numbers are not renumbered.
func (s *LineService) Remove(q *models.Quote, lineNo int) error {
	idx := indexOfLine(q.Lines, lineNo)
	if idx < 0 {
		return ErrLineNotFound
	}
	q.Lines = append(q.Lines[:idx], q.Lines[idx+1:]...)
	s.compactPositions(q)
	s.RederiveDepths(q)
	return nil
}

// RederiveDepths re-walks the list tracking the current chapter depth
// (starting at 1) and assigns it to every following work-item and text line
// until the next chapter. Invoked after any structural edit.
func (s *LineService) RederiveDepths(q *models.Quote) {
	depth := models.MinDepth
	for i := range q.Lines {
		if q.Lines[i].IsChapter() {
			depth = models.ClampDepth(q.Lines[i].Depth)
			continue
		}
		q.Lines[i].Depth = depth
	}
}

func (s *LineService) compactPositions(q *models.Quote) {
	for i := range q.Lines {
		q.Lines[i].Position = i
	}
}

func indexOfLine(lines []models.QuoteLine, lineNo int) int {
	for i := range lines {
		if lines[i].LineNo == lineNo {
			return i
		}
	}
	return -1
}

func precedingChapterDepth(lines []models.QuoteLine) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].IsChapter() {
			return models.ClampDepth(lines[i].Depth)
		}
	}
	return models.MinDepth
}
