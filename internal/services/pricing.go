package services

import (
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/models"
)

// PricingService derives work-item sale prices from component cost and a
// margin coefficient. Pure in-memory computation; callers persist.
type PricingService struct{}

func NewPricingService() *PricingService { return &PricingService{} }

// DeriveUnitSalePrice converts a cost price per unit into a sale price.
func (s *PricingService) DeriveUnitSalePrice(costPerUnit, marginCoefficient float64) float64 {
	return costPerUnit * marginCoefficient
}

// ApplyCoefficientToQuote sets the quote-wide margin coefficient and re-derives
// the unit sale price of every work-item line that still carries a frozen
// component snapshot: price = Σ(component qty × unit price) × coefficient.
// Quantities and components are left untouched. This is an explicit
// re-derivation — nothing recomputes automatically when the coefficient field
// changes, callers must invoke it.
func (s *PricingService) ApplyCoefficientToQuote(q *models.Quote, coefficient float64) {
	q.MarginCoefficient = coefficient
	for i := range q.Lines {
		line := &q.Lines[i]
		if !line.IsWorkItem() || len(line.Components) == 0 {
			continue
		}
		line.UnitSalePrice = s.DeriveUnitSalePrice(line.CostPerUnit(), coefficient)
	}
}

// UpdateLineComponent edits one frozen component of a work-item line in place
// and recomputes that line's unit sale price from its own components only.
// The quote-level coefficient is not consulted: the edited line carries its
// raw component sum until ApplyCoefficientToQuote is invoked again, so manual
// component edits take precedence over the last coefficient derivation.
func (s *PricingService) UpdateLineComponent(line *models.QuoteLine, componentID uint, quantity, unitPrice float64) error {
	if !line.IsWorkItem() {
		return ErrNotWorkItem
	}
	for i := range line.Components {
		if line.Components[i].ID != componentID {
			continue
		}
		line.Components[i].Quantity = quantity
		line.Components[i].UnitPrice = unitPrice
		line.UnitSalePrice = line.CostPerUnit()
		return nil
	}
	return ErrComponentNotFound
}
