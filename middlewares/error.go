package middlewares

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler centralizes error responses and keeps messages sanitized.
// All error payloads carry a "detail" field.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// Fiber errors keep their status code + message.
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"detail": fe.Message})
	}

	// Everything else is an internal fault; log it, hide the cause.
	log.Printf("internal error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"detail": "internal server error",
	})
}
