package models

import "time"

// Assembly (ouvrage) is a reusable bundle of catalog-item quantities producing
// one unit of finished work. Its components carry a copy of the catalog item's
// designation/unit/price captured when the component was added, so later
// catalog edits do not silently reprice existing assemblies.
type Assembly struct {
	ID         uint   `gorm:"primaryKey"`
	Code       string `gorm:"size:40;not null;uniqueIndex"` // référence ouvrage
	Name       string `gorm:"not null"`
	Category   string `gorm:"size:100;index"`
	Unit       string `gorm:"size:20;not null;default:'u'"`
	Components []Component `gorm:"foreignKey:AssemblyID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CostPerUnit is the cost price (déboursé sec) of one unit of the assembly:
// the sum of component quantity × unit price. Negative or NaN inputs count as
// zero so the total stays defined on unvalidated data.
func (a *Assembly) CostPerUnit() float64 {
	var total float64
	for _, c := range a.Components {
		total += sanitize(c.Quantity) * sanitize(c.UnitPrice)
	}
	return total
}

// Component is one catalog-item quantity line inside an assembly.
type Component struct {
	ID         uint `gorm:"primaryKey"`
	AssemblyID uint `gorm:"index;not null"`

	CatalogItemID uint         `gorm:"index;not null"`
	CatalogItem   *CatalogItem `gorm:"foreignKey:CatalogItemID" json:"catalog_item,omitempty"`

	// Snapshot of the catalog item at capture time.
	Designation string   `gorm:"size:255;not null"`
	Unit        string   `gorm:"size:20"`
	UnitPrice   float64  `gorm:"not null"` // >= 0
	Type        ItemType `gorm:"size:20;not null"`

	// Quantity needed per unit of assembly, > 0.
	Quantity float64 `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewComponent captures a catalog item into an assembly component, copying the
// display fields so the component no longer tracks the catalog row.
func NewComponent(item *CatalogItem, quantity float64) Component {
	return Component{
		CatalogItemID: item.ID,
		Designation:   item.Name,
		Unit:          item.Unit,
		UnitPrice:     item.UnitPrice,
		Type:          item.Type,
		Quantity:      quantity,
	}
}

// Cost is the component's contribution to the assembly cost price.
func (c *Component) Cost() float64 {
	return sanitize(c.Quantity) * sanitize(c.UnitPrice)
}

// sanitize maps negative and NaN numeric inputs to zero. Validation happens at
// the data-entry boundary; aggregation still has to stay total on bad rows.
func sanitize(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	return v
}
