package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"invoice-ocr-backend/config"
	"invoice-ocr-backend/database"
	"invoice-ocr-backend/extraction"
	"invoice-ocr-backend/middlewares"
	"invoice-ocr-backend/routes"
)

func main() {
	cfg := config.Load()

	// ---- Database
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("could not migrate database: %v", err)
	}
	store := database.NewInvoices(db)

	// ---- Extraction client
	if err := cfg.Extraction.Validate(); err != nil {
		// Not fatal: /health reports it and uploads fail with a clear error.
		log.Printf("extraction service not configured: %v", err)
	}
	tokens := extraction.NewTokenCache(cfg.Extraction)
	extractor := extraction.NewClient(cfg.Extraction, tokens)

	// ---- Fiber app with global error handler + body limit
	// The multipart envelope adds overhead on top of the PDF itself,
	// so the body limit gets 1MB of slack over the configured max.
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler,
		BodyLimit:    int(cfg.MaxFileSizeBytes()) + 1024*1024,
	})

	app.Use(logger.New())

	// ---- CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// ---- Global rate limiter (tune via env)
	app.Use(limiter.New(limiter.Config{
		Max:        config.RateLimitMax(),
		Expiration: config.RateLimitWindow(),
	}))

	// ---- Routes
	routes.Register(app, store, extractor, cfg)

	// ---- Start
	log.Printf("starting %s v%s on port %s", cfg.AppName, cfg.APIVersion, cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
