package handlers

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fvictoire59va/ERP-BTP-sub000/internal/models"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/services"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.UnitType{}, &models.CatalogItem{}, &models.Assembly{}, &models.Component{},
		&models.Quote{}, &models.QuoteLine{}, &models.LineComponent{},
		&models.Project{}, &models.ProjectQuote{}, &models.ActualExpense{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seedCatalogFixtures creates two catalog items and an assembly with a cost
// price of 100 per unit (10×1.45 material + 2.25×38 labor = 14.5 + 85.5).
func seedCatalogFixtures(t *testing.T, db *gorm.DB) (material, labor models.CatalogItem, asm models.Assembly) {
	t.Helper()
	material = models.CatalogItem{Code: "MAT-PARP20", Name: "Parpaing 20x20x50", Unit: "pce", UnitPrice: 1.45, Type: models.ItemTypeMaterial, Category: "Gros œuvre"}
	if err := db.Create(&material).Error; err != nil {
		t.Fatalf("material: %v", err)
	}
	labor = models.CatalogItem{Code: "MO-MACON", Name: "Maçon qualifié", Unit: "h", UnitPrice: 38, Type: models.ItemTypeLabor, Category: "Main d'œuvre"}
	if err := db.Create(&labor).Error; err != nil {
		t.Fatalf("labor: %v", err)
	}
	asm = models.Assembly{
		Code: "OUV-MUR20", Name: "Mur parpaing 20cm", Category: "Maçonnerie", Unit: "m²",
		Components: []models.Component{
			models.NewComponent(&material, 10),
			models.NewComponent(&labor, 2.25),
		},
	}
	if err := db.Create(&asm).Error; err != nil {
		t.Fatalf("assembly: %v", err)
	}
	return material, labor, asm
}

func newQuoteHandler(db *gorm.DB) *QuoteHandler {
	pricing := services.NewPricingService()
	return NewQuoteHandler(db, pricing, services.NewLineService(pricing), services.NewTotalsService())
}

func newProjectHandler(db *gorm.DB) *ProjectHandler {
	return NewProjectHandler(db, services.NewReconciliationService(nil))
}
