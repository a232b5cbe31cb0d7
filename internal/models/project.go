package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ProjectStatus represents the lifecycle state of a project (chantier).
type ProjectStatus string

const (
	ProjectStatusPending   ProjectStatus = "pending"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusDone      ProjectStatus = "done"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// ErrLastLinkedQuote rejects detaching the only linked quote of a project.
var ErrLastLinkedQuote = errors.New("project must keep at least one linked quote")

// ErrQuoteNotLinked is returned when detaching a quote the project never linked.
var ErrQuoteNotLinked = errors.New("quote is not linked to this project")

// ErrQuoteAlreadyLinked is returned when attaching a quote twice.
var ErrQuoteAlreadyLinked = errors.New("quote is already linked to this project")

// Project is a real-world job created from an accepted quote and tracked
// against logged actual expenses.
type Project struct {
	ID     uint   `gorm:"primaryKey"`
	Number string `gorm:"size:50;uniqueIndex"` // PROJ-YYYY-NNNN

	ClientRef   string `gorm:"size:100;index"`
	SiteAddress string `gorm:"size:500"` // adresse du chantier

	StartDate time.Time
	EndDate   *time.Time

	Status ProjectStatus `gorm:"size:20;default:'pending'"`

	// LinkedQuotes always holds at least one entry; detaching the last one is
	// rejected before any mutation.
	LinkedQuotes []ProjectQuote  `gorm:"foreignKey:ProjectID" json:"linked_quotes,omitempty"`
	Expenses     []ActualExpense `gorm:"foreignKey:ProjectID" json:"expenses,omitempty"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuoteNumbers lists the linked quote numbers in attach order.
func (p *Project) QuoteNumbers() []string {
	out := make([]string, len(p.LinkedQuotes))
	for i := range p.LinkedQuotes {
		out[i] = p.LinkedQuotes[i].QuoteNumber
	}
	return out
}

// AttachQuote links an additional quote number to the project.
func (p *Project) AttachQuote(number string) error {
	for i := range p.LinkedQuotes {
		if p.LinkedQuotes[i].QuoteNumber == number {
			return ErrQuoteAlreadyLinked
		}
	}
	p.LinkedQuotes = append(p.LinkedQuotes, ProjectQuote{ProjectID: p.ID, QuoteNumber: number})
	return nil
}

// DetachQuote unlinks a quote number. Check-then-act: the linked list is left
// untouched when the invariant would break or the number is unknown.
func (p *Project) DetachQuote(number string) error {
	idx := -1
	for i := range p.LinkedQuotes {
		if p.LinkedQuotes[i].QuoteNumber == number {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrQuoteNotLinked
	}
	if len(p.LinkedQuotes) == 1 {
		return ErrLastLinkedQuote
	}
	p.LinkedQuotes = append(p.LinkedQuotes[:idx], p.LinkedQuotes[idx+1:]...)
	return nil
}

// ProjectQuote links a project to a quote by number. Numbers rather than row
// ids: quotes may be archived or pruned independently of the projects that
// referenced them, and reconciliation degrades gracefully on dangling numbers.
type ProjectQuote struct {
	ID          uint   `gorm:"primaryKey"`
	ProjectID   uint   `gorm:"index;not null"`
	QuoteNumber string `gorm:"size:50;not null;index"`
	CreatedAt   time.Time
}

// ActualExpense is one logged real cost entry (dépense réelle), appended by
// on-site cost entry over the project's lifetime.
type ActualExpense struct {
	ID        uint `gorm:"primaryKey"`
	ProjectID uint `gorm:"index;not null"`

	Type        ItemType `gorm:"size:20;not null;index"`
	Designation string   `gorm:"size:255;not null"`
	Quantity    float64  `gorm:"not null"`
	UnitPrice   float64  `gorm:"not null"`
	Date        time.Time

	// Optional link back to the catalog item this expense realizes.
	CatalogItemID *uint `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Amount is the expense's monetary value.
func (e *ActualExpense) Amount() float64 {
	return sanitize(e.Quantity) * sanitize(e.UnitPrice)
}

// GenerateProjectNumber generates the next project number for a year.
// Format: PROJ-YYYY-NNNN (e.g. PROJ-2026-0001).
func GenerateProjectNumber(db *gorm.DB, year int) (string, error) {
	var count int64
	err := db.Model(&Project{}).
		Where("number LIKE ?", fmt.Sprintf("PROJ-%d-%%", year)).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PROJ-%d-%04d", year, count+1), nil
}
