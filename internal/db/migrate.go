package db

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fvictoire59va/ERP-BTP-sub000/internal/models"
)

func ConnectAndMigrate() (*gorm.DB, error) {
	dsn := GetNormalizedDSN()
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN est vide, vérifiez la configuration de l'environnement")
	}
	var db *gorm.DB
	var err error
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		fmt.Println("Retrying DB connection...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	// Print the masked DSN once for diagnostics, before migrations run.
	masked := dsn
	if strings.Contains(masked, "password=") {
		re := regexp.MustCompile(`(password=)([^\s]+)`)
		masked = re.ReplaceAllString(masked, `${1}***`)
	}
	fmt.Println("[DB] Using DSN:", masked)

	// MIGRATIONS=1 runs SQL migrations via golang-migrate; otherwise
	// AutoMigrate keeps development setups frictionless.
	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		modelsToMigrate := []interface{}{
			&models.UnitType{}, &models.CatalogItem{}, &models.Assembly{}, &models.Component{},
			&models.Quote{}, &models.QuoteLine{}, &models.LineComponent{},
			&models.Project{}, &models.ProjectQuote{}, &models.ActualExpense{},
		}
		for _, m := range modelsToMigrate {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	// sanity check: core tables must exist after either migration path
	for _, table := range []string{"catalog_items", "quotes", "projects"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	// Seeding only when explicitly requested (e.g. development) via DB_SEED=1|true
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		seed(db)
	}
	return db, nil
}

func seed(db *gorm.DB) {
	baseUnitTypes := []models.UnitType{
		{Name: "pièce", Symbol: "pce"},
		{Name: "heure", Symbol: "h"},
		{Name: "mètre carré", Symbol: "m²"},
		{Name: "mètre cube", Symbol: "m³"},
		{Name: "mètre linéaire", Symbol: "ml"},
		{Name: "kilogramme", Symbol: "kg"},
		{Name: "forfait", Symbol: "fft"},
	}
	for _, ut := range baseUnitTypes {
		var existing models.UnitType
		if err := db.Where("name = ?", ut.Name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&ut)
		}
	}
	starterCatalog := []models.CatalogItem{
		{Code: "MO-MACON", Name: "Maçon qualifié", Unit: "h", UnitPrice: 38, Type: models.ItemTypeLabor, Category: "Main d'œuvre"},
		{Code: "MAT-PARP20", Name: "Parpaing 20x20x50", Unit: "pce", UnitPrice: 1.45, Type: models.ItemTypeMaterial, Category: "Gros œuvre"},
		{Code: "MAT-CIM35", Name: "Ciment CEM II 35kg", Unit: "pce", UnitPrice: 8.9, Type: models.ItemTypeMaterial, Category: "Gros œuvre"},
		{Code: "CSO-DISQUE", Name: "Disque diamant 230mm", Unit: "pce", UnitPrice: 24, Type: models.ItemTypeConsumable, Category: "Outillage"},
	}
	for _, item := range starterCatalog {
		var existing models.CatalogItem
		if err := db.Where("code = ?", item.Code).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&item)
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using the golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
