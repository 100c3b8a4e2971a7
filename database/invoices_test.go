package database_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"invoice-ocr-backend/database"
	"invoice-ocr-backend/models"
)

func openStore(t *testing.T) *database.Invoices {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "invoices.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database.NewInvoices(db)
}

// seed inserts n rows with ascending upload timestamps one minute apart,
// so INV-<n-1> is the newest.
func seed(t *testing.T, store *database.Invoices, n int) {
	t.Helper()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		inv := &models.Invoice{
			InvoiceNumber:   fmt.Sprintf("INV-%03d", i),
			VendorName:      "ACME",
			FileName:        fmt.Sprintf("invoice_%03d.pdf", i),
			Status:          models.StatusProcessed,
			UploadTimestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Insert(context.Background(), inv); err != nil {
			t.Fatalf("seed insert %d: %v", i, err)
		}
	}
}

func TestInsertAssignsIdentifier(t *testing.T) {
	store := openStore(t)

	inv := &models.Invoice{
		InvoiceNumber: "INV-1",
		VendorName:    "ACME",
		Status:        models.StatusProcessed,
	}
	if err := store.Insert(context.Background(), inv); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if inv.ID == "" {
		t.Error("ID not assigned on insert")
	}
	if inv.UploadTimestamp.IsZero() {
		t.Error("UploadTimestamp not assigned on insert")
	}
}

func TestGetByID(t *testing.T) {
	store := openStore(t)

	inv := &models.Invoice{
		InvoiceNumber: "INV-42",
		VendorName:    "ACME",
		Status:        models.StatusProcessed,
	}
	if err := store.Insert(context.Background(), inv); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.GetByID(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.InvoiceNumber != "INV-42" {
		t.Errorf("InvoiceNumber = %q, want INV-42", got.InvoiceNumber)
	}

	if _, err := store.GetByID(context.Background(), "does-not-exist"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openStore(t)
	seed(t, store, 3)

	invoices, err := store.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(invoices) != 3 {
		t.Fatalf("len = %d, want 3", len(invoices))
	}
	want := []string{"INV-002", "INV-001", "INV-000"}
	for i, w := range want {
		if invoices[i].InvoiceNumber != w {
			t.Errorf("invoices[%d] = %q, want %q", i, invoices[i].InvoiceNumber, w)
		}
	}
}

func TestListPaginationBounds(t *testing.T) {
	store := openStore(t)
	seed(t, store, 120)

	tests := []struct {
		name      string
		limit     int
		offset    int
		wantLen   int
		wantFirst string
	}{
		{name: "zero limit uses default", limit: 0, offset: 0, wantLen: 50, wantFirst: "INV-119"},
		{name: "negative limit uses default", limit: -1, offset: 0, wantLen: 50, wantFirst: "INV-119"},
		{name: "limit capped at 100", limit: 500, offset: 0, wantLen: 100, wantFirst: "INV-119"},
		{name: "explicit window", limit: 10, offset: 20, wantLen: 10, wantFirst: "INV-099"},
		{name: "negative offset treated as zero", limit: 10, offset: -5, wantLen: 10, wantFirst: "INV-119"},
		{name: "offset near the end", limit: 10, offset: 115, wantLen: 5, wantFirst: "INV-004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoices, err := store.List(context.Background(), tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(invoices) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(invoices), tt.wantLen)
			}
			if invoices[0].InvoiceNumber != tt.wantFirst {
				t.Errorf("first = %q, want %q", invoices[0].InvoiceNumber, tt.wantFirst)
			}
		})
	}
}

func TestPing(t *testing.T) {
	store := openStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
