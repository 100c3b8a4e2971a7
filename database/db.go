package database

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"invoice-ocr-backend/models"
)

// Connect opens the GORM/Postgres pool for the given DSN.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate applies the (idempotent) schema for the invoice table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Invoice{}); err != nil {
		return err
	}
	// Listing reads are always newest-first.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_invoices_upload_timestamp ON invoices (upload_timestamp DESC)`).Error; err != nil {
		log.Printf("index migration failed: %v", err)
		return err
	}
	return nil
}
