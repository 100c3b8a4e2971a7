package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Invoice processing outcomes. Exactly one row exists per upload attempt
// that reached the store; rows are never updated or deleted.
const (
	StatusProcessed = "PROCESSED"
	StatusFailed    = "FAILED"
)

// Invoice is one processed (or failed) upload.
type Invoice struct {
	ID              string         `json:"invoice_id" gorm:"primaryKey;size:36"`
	InvoiceNumber   string         `json:"invoice_number"`
	VendorName      string         `json:"vendor_name"`
	FileName        string         `json:"file_name"`
	FileSizeKB      float64        `json:"file_size_kb"`
	ConfidenceScore float64        `json:"confidence_score"`
	Status          string         `json:"status" gorm:"size:20;index"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	RawExtraction   datatypes.JSON `json:"-" gorm:"type:jsonb"`
	UploadTimestamp time.Time      `json:"upload_timestamp" gorm:"index:idx_invoices_upload_timestamp,sort:desc"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (inv *Invoice) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.UploadTimestamp.IsZero() {
		inv.UploadTimestamp = time.Now().UTC()
	}
	return
}
