package routes

import (
	"github.com/gofiber/fiber/v2"

	"invoice-ocr-backend/config"
	"invoice-ocr-backend/controllers"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, store controllers.InvoiceStore, extractor controllers.Extractor, cfg *config.Config) {
	app.Get("/", controllers.Root(cfg))

	api := app.Group("/api/v1")

	api.Post("/invoices/upload", controllers.UploadInvoice(store, extractor, cfg))
	api.Get("/invoices/:id", controllers.GetInvoice(store))
	api.Get("/invoices", controllers.ListInvoices(store))

	api.Get("/health", controllers.Health(store, cfg))
}
