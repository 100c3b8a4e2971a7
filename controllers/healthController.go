package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"invoice-ocr-backend/config"
)

// Health reports storage reachability and extraction configuration.
func Health(store InvoiceStore, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbConnected := store.Ping(c.Context()) == nil
		extractionConfigured := cfg.Extraction.Configured()

		status := "healthy"
		message := "All systems operational"
		if !dbConnected || !extractionConfigured {
			status = "degraded"
			var issues []string
			if !dbConnected {
				issues = append(issues, "database")
			}
			if !extractionConfigured {
				issues = append(issues, "extraction")
			}
			message = "Issues detected: " + strings.Join(issues, ", ")
		}

		return c.JSON(fiber.Map{
			"status":                status,
			"message":               message,
			"database_connected":    dbConnected,
			"extraction_configured": extractionConfigured,
			"timestamp":             time.Now().UTC(),
		})
	}
}

// Root serves basic service metadata.
func Root(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"name":         cfg.AppName,
			"version":      cfg.APIVersion,
			"status":       "running",
			"health_check": "/api/v1/health",
		})
	}
}
