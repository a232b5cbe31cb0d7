package models

import (
	"time"

	"gorm.io/gorm"
)

// ItemType classifies catalog items by cost family.
type ItemType string

const (
	ItemTypeMaterial   ItemType = "material"   // matériau
	ItemTypeSupply     ItemType = "supply"     // fourniture
	ItemTypeLabor      ItemType = "labor"      // main d'œuvre
	ItemTypeConsumable ItemType = "consumable" // consommable
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeMaterial, ItemTypeSupply, ItemTypeLabor, ItemTypeConsumable:
		return true
	}
	return false
}

// UnitType references the units of measure offered to data entry (pièce, heure, m², ...).
type UnitType struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;unique"` // ex: pièce, heure, m²
	Symbol    string // ex: pce, h, m²
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CatalogItem is a priced, categorized unit (article de bibliothèque).
// Maintained by the catalog-management side; the pricing/reconciliation core
// only ever reads it.
type CatalogItem struct {
	ID        uint     `gorm:"primaryKey"`
	Code      string   `gorm:"size:40;not null;uniqueIndex"` // référence article
	Name      string   `gorm:"not null"`
	Unit      string   `gorm:"size:20;not null;default:'pce'"`
	UnitPrice float64  `gorm:"not null"` // prix unitaire HT, >= 0
	Type      ItemType `gorm:"size:20;not null;index"`
	Category  string   `gorm:"size:100;index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
