package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"invoice-ocr-backend/models"
)

// ErrNotFound is returned by GetByID when no row matches the identifier.
var ErrNotFound = errors.New("invoice not found")

// List pagination bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Invoices is the append-only store for processed uploads. Insert is the
// only write; there is deliberately no update or delete.
type Invoices struct {
	db *gorm.DB
}

func NewInvoices(db *gorm.DB) *Invoices {
	return &Invoices{db: db}
}

// Insert writes one row and fills in the generated identifier.
func (s *Invoices) Insert(ctx context.Context, inv *models.Invoice) error {
	return s.db.WithContext(ctx).Create(inv).Error
}

func (s *Invoices) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// List returns rows ordered by upload timestamp, newest first. Limit is
// defaulted to DefaultListLimit and capped at MaxListLimit; negative
// offsets are treated as zero.
func (s *Invoices) List(ctx context.Context, limit, offset int) ([]models.Invoice, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Order("upload_timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// Ping checks storage reachability for the health endpoint.
func (s *Invoices) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
