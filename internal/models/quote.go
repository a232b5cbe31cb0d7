package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// QuoteStatus represents the lifecycle state of a quote (devis).
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusAccepted QuoteStatus = "accepted"
)

// LineKind discriminates the three kinds of quote lines.
type LineKind string

const (
	LineKindChapter  LineKind = "chapter" // titre de chapitre, profondeur 1–3
	LineKindText     LineKind = "text"    // ligne de texte libre
	LineKindWorkItem LineKind = "work"    // ouvrage chiffré
)

const (
	MinDepth = 1
	MaxDepth = 3
)

// Quote is the aggregate root: header fields, the ordered line tree, VAT rate
// and totals derived purely from work-item lines.
type Quote struct {
	ID        uint      `gorm:"primaryKey"`
	Number    string    `gorm:"size:50;uniqueIndex"` // DEV-YYYY-NNNN
	IssueDate time.Time `gorm:"not null"`

	ClientRef string `gorm:"size:100;index"` // référence client externe
	Subject   string `gorm:"size:255"`

	Lines []QuoteLine `gorm:"foreignKey:QuoteID" json:"lines,omitempty"`

	// MarginCoefficient is the quote-wide multiplier from cost price to sale
	// price. Reapplied explicitly, never by subscription (see services.Pricing).
	MarginCoefficient float64 `gorm:"not null;default:1"`
	DiscountPct       float64 // informational, not folded into TotalHT
	VATRate           float64 `gorm:"not null;default:20"` // percent, e.g. 20 for 20%
	ValidityDays      int     `gorm:"default:30"`

	Notes string `gorm:"type:text"`
	Terms string `gorm:"type:text"`

	Status QuoteStatus `gorm:"size:20;default:'draft'"`

	// NextLineNo is the per-quote monotonic counter for line identity.
	// Removed lines never free their number.
	NextLineNo int `gorm:"not null;default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanEdit returns true while the line tree may still be mutated.
func (q *Quote) CanEdit() bool {
	return q.Status == QuoteStatusDraft || q.Status == QuoteStatusSent
}

// IsAccepted returns true once the client has accepted the quote.
func (q *Quote) IsAccepted() bool { return q.Status == QuoteStatusAccepted }

// TotalHT is the total before tax: the sum of work-item line amounts.
// Chapter and text lines never contribute.
func (q *Quote) TotalHT() float64 {
	var total float64
	for i := range q.Lines {
		total += q.Lines[i].Amount()
	}
	return total
}

// VATAmount applies the quote's VAT percentage to the total before tax.
func (q *Quote) VATAmount() float64 {
	return q.TotalHT() * sanitize(q.VATRate) / 100
}

// TotalTTC is the total including VAT.
func (q *Quote) TotalTTC() float64 {
	return q.TotalHT() + q.VATAmount()
}

// AllocateLineNo hands out the next per-quote line number.
func (q *Quote) AllocateLineNo() int {
	if q.NextLineNo < 1 {
		// Recover the counter from existing lines (legacy rows predating it).
		max := 0
		for i := range q.Lines {
			if q.Lines[i].LineNo > max {
				max = q.Lines[i].LineNo
			}
		}
		q.NextLineNo = max + 1
	}
	n := q.NextLineNo
	q.NextLineNo++
	return n
}

// QuoteLine is one entry of the flat, ordered line list. Kind discriminates
// chapter, text, and work-item lines; the nesting is implicit via Depth
// (1–3), never via parent/child links, which keeps reordering a slice swap.
type QuoteLine struct {
	ID      uint `gorm:"primaryKey"`
	QuoteID uint `gorm:"index;not null"`

	// LineNo is unique and monotonic within the quote; Position orders the
	// flat list and is compacted on every structural edit.
	LineNo   int `gorm:"not null;index"`
	Position int `gorm:"not null"`

	Kind  LineKind `gorm:"size:10;not null"`
	Depth int      `gorm:"not null;default:1"` // 1–3

	// Chapter title or free text, depending on Kind.
	Title string `gorm:"size:255"`
	Text  string `gorm:"type:text"`

	// Work-item fields. AssemblyID records provenance only; the components
	// below are the authoritative frozen snapshot.
	AssemblyID    *uint   `gorm:"index"`
	Designation   string  `gorm:"size:255"`
	Description   string  `gorm:"type:text"`
	Quantity      float64 // >= 0
	UnitSalePrice float64 // >= 0

	Components []LineComponent `gorm:"foreignKey:LineID" json:"components,omitempty"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewChapterLine builds a chapter header at the given depth (clamped to 1–3).
func NewChapterLine(title string, depth int) QuoteLine {
	return QuoteLine{Kind: LineKindChapter, Title: title, Depth: ClampDepth(depth)}
}

// NewTextLine builds a free-text line at the given depth (clamped to 1–3).
func NewTextLine(text string, depth int) QuoteLine {
	return QuoteLine{Kind: LineKindText, Text: text, Depth: ClampDepth(depth)}
}

// ClampDepth forces a depth into the legal 1–3 range.
func ClampDepth(d int) int {
	if d < MinDepth {
		return MinDepth
	}
	if d > MaxDepth {
		return MaxDepth
	}
	return d
}

func (l *QuoteLine) IsChapter() bool  { return l.Kind == LineKindChapter }
func (l *QuoteLine) IsText() bool     { return l.Kind == LineKindText }
func (l *QuoteLine) IsWorkItem() bool { return l.Kind == LineKindWorkItem }

// Amount is the line's monetary contribution: quantity × unit sale price for
// work items, zero for everything else.
func (l *QuoteLine) Amount() float64 {
	if !l.IsWorkItem() {
		return 0
	}
	return sanitize(l.Quantity) * sanitize(l.UnitSalePrice)
}

// CostPerUnit sums the frozen component snapshot (quantity × unit price).
func (l *QuoteLine) CostPerUnit() float64 {
	var total float64
	for i := range l.Components {
		total += l.Components[i].Cost()
	}
	return total
}

// Clone returns a value copy of the line with identity fields reset, ready to
// be inserted as a new line. Components are deep-copied.
func (l *QuoteLine) Clone() QuoteLine {
	dup := *l
	dup.ID = 0
	dup.CreatedAt = time.Time{}
	dup.UpdatedAt = time.Time{}
	dup.Components = make([]LineComponent, len(l.Components))
	for i, c := range l.Components {
		c.ID = 0
		c.LineID = 0
		c.CreatedAt = time.Time{}
		c.UpdatedAt = time.Time{}
		dup.Components[i] = c
	}
	return dup
}

// LineComponent is a component frozen into a work-item line at insertion time.
// It deliberately does not track later catalog or assembly edits: historical
// quotes keep the prices they were sold at.
type LineComponent struct {
	ID     uint `gorm:"primaryKey"`
	LineID uint `gorm:"index;not null"`

	CatalogItemID uint     `gorm:"index;not null"`
	Designation   string   `gorm:"size:255;not null"`
	Unit          string   `gorm:"size:20"`
	UnitPrice     float64  `gorm:"not null"`
	Type          ItemType `gorm:"size:20;not null"`
	Quantity      float64  `gorm:"not null"` // per unit of work item

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cost is the component's contribution to the line's cost price per unit.
func (c *LineComponent) Cost() float64 {
	return sanitize(c.Quantity) * sanitize(c.UnitPrice)
}

// FreezeComponents deep-copies assembly components into line components.
// This is the only crossing from the live catalog side to the frozen quote
// side; after it the assembly and the work item evolve independently.
func FreezeComponents(src []Component) []LineComponent {
	out := make([]LineComponent, len(src))
	for i, c := range src {
		out[i] = LineComponent{
			CatalogItemID: c.CatalogItemID,
			Designation:   c.Designation,
			Unit:          c.Unit,
			UnitPrice:     c.UnitPrice,
			Type:          c.Type,
			Quantity:      c.Quantity,
		}
	}
	return out
}

// GenerateQuoteNumber generates the next quote number for a year.
// Format: DEV-YYYY-NNNN (e.g. DEV-2026-0001).
func GenerateQuoteNumber(db *gorm.DB, year int) (string, error) {
	var count int64
	err := db.Model(&Quote{}).
		Where("number LIKE ?", fmt.Sprintf("DEV-%d-%%", year)).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DEV-%d-%04d", year, count+1), nil
}
