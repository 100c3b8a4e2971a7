package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"invoice-ocr-backend/config"
	"invoice-ocr-backend/database"
	"invoice-ocr-backend/extraction"
	"invoice-ocr-backend/models"
	"invoice-ocr-backend/utils"
)

// InvoiceStore is the slice of the record store the handlers need.
type InvoiceStore interface {
	Insert(ctx context.Context, inv *models.Invoice) error
	GetByID(ctx context.Context, id string) (*models.Invoice, error)
	List(ctx context.Context, limit, offset int) ([]models.Invoice, error)
	Ping(ctx context.Context) error
}

// Extractor submits a document to the extraction service and blocks until
// a terminal outcome.
type Extractor interface {
	Extract(ctx context.Context, fileName string, data []byte) (*extraction.Result, error)
}

// UploadInvoice accepts one PDF, runs extraction, persists the outcome and
// echoes the extracted fields. Validation failures and token-exchange
// failures leave no record; extraction failures are recorded as FAILED.
func UploadInvoice(store InvoiceStore, extractor Extractor, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "multipart field 'file' is required")
		}

		// Validate before touching the network: type first, then size.
		if strings.ToLower(filepath.Ext(fh.Filename)) != ".pdf" {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid file type. Only PDF files are allowed.")
		}
		if fh.Size > cfg.MaxFileSizeBytes() {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("File size exceeds maximum allowed size of %dMB", cfg.MaxFileSizeMB))
		}

		// Spool to the temp upload dir for the duration of the request;
		// extraction reads from the spooled file.
		tmpPath, err := spoolUpload(c, fh, cfg.UploadDir)
		if err != nil {
			return fmt.Errorf("spool upload: %w", err)
		}
		defer os.Remove(tmpPath)

		data, err := os.ReadFile(tmpPath)
		if err != nil {
			return fmt.Errorf("read upload: %w", err)
		}

		fileSizeKB := utils.Round2(float64(fh.Size) / 1024)

		// c.Context() is canceled when the client goes away; polling stops
		// and no partial record is written.
		ctx := c.Context()
		result, err := extractor.Extract(ctx, fh.Filename, data)
		if err != nil {
			var authErr *extraction.AuthError
			switch {
			case errors.Is(err, context.Canceled) || ctx.Err() != nil:
				return err
			case errors.As(err, &authErr):
				return fiber.NewError(fiber.StatusBadGateway, authErr.Error())
			default:
				// Timeout or service failure: the file was accepted, so the
				// attempt is recorded as FAILED (best effort) and reported.
				failed := &models.Invoice{
					InvoiceNumber: "UNKNOWN",
					VendorName:    "UNKNOWN",
					FileName:      fh.Filename,
					FileSizeKB:    fileSizeKB,
					Status:        models.StatusFailed,
					ErrorMessage:  err.Error(),
				}
				if insErr := store.Insert(ctx, failed); insErr != nil {
					log.Printf("could not record failed upload: %v", insErr)
				}
				return fiber.NewError(fiber.StatusUnprocessableEntity,
					"Failed to process invoice: "+err.Error())
			}
		}

		inv := &models.Invoice{
			InvoiceNumber:   result.InvoiceNumber,
			VendorName:      result.VendorName,
			FileName:        fh.Filename,
			FileSizeKB:      fileSizeKB,
			ConfidenceScore: result.ConfidenceScore,
			Status:          models.StatusProcessed,
			RawExtraction:   datatypes.JSON(result.Raw),
		}
		if err := store.Insert(ctx, inv); err != nil {
			// Extraction succeeded but the row is lost; the caller must see it.
			log.Printf("invoice insert failed: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Could not store invoice record")
		}

		return c.JSON(fiber.Map{
			"invoice_id":       inv.ID,
			"invoice_number":   inv.InvoiceNumber,
			"vendor_name":      inv.VendorName,
			"file_name":        inv.FileName,
			"file_size_kb":     inv.FileSizeKB,
			"confidence_score": inv.ConfidenceScore,
			"status":           inv.Status,
			"message":          "Invoice processed successfully",
			"timestamp":        time.Now().UTC(),
		})
	}
}

// GetInvoice returns one record by identifier.
func GetInvoice(store InvoiceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		inv, err := store.GetByID(c.Context(), id)
		if errors.Is(err, database.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound,
				fmt.Sprintf("Invoice with ID %s not found", id))
		}
		if err != nil {
			return err
		}
		return c.JSON(inv)
	}
}

// ListInvoices returns records newest-first with limit/offset pagination.
func ListInvoices(store InvoiceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// limit=0 means "use the default", matching what the store does.
		limit := utils.ParseIntDefault(c.Query("limit"), database.DefaultListLimit)
		if limit <= 0 {
			limit = database.DefaultListLimit
		}
		if limit > database.MaxListLimit {
			limit = database.MaxListLimit
		}
		offset := utils.ParseIntDefault(c.Query("offset"), 0)

		invoices, err := store.List(c.Context(), limit, offset)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"invoices": invoices,
			"total":    len(invoices),
			"limit":    limit,
			"offset":   offset,
		})
	}
}

// spoolUpload streams the multipart file under dir with a timestamped
// name and returns the path. The caller removes it when done.
func spoolUpload(c *fiber.Ctx, fh *multipart.FileHeader, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, time.Now().UTC().Format("20060102_150405")+"_"+filepath.Base(fh.Filename))
	if err := c.SaveFile(fh, path); err != nil {
		return "", err
	}
	return path, nil
}
