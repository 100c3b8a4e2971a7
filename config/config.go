package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Config holds everything the service reads from the environment.
type Config struct {
	AppName    string
	APIVersion string
	Port       string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Uploads
	MaxFileSizeMB  int
	UploadDir      string
	AllowedOrigins string

	Extraction ExtractionConfig
}

// ExtractionConfig is the credential bundle for the external extraction API.
// Loaded from EXTRACTION_* env vars, or from a service key JSON file.
type ExtractionConfig struct {
	TokenURL     string `validate:"required,url"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	BaseURL      string `validate:"required,url"`
	RESTPath     string `validate:"required"`
}

// serviceKey mirrors the JSON service key issued for the extraction service.
type serviceKey struct {
	UAA struct {
		URL          string `json:"url"`
		ClientID     string `json:"clientid"`
		ClientSecret string `json:"clientsecret"`
	} `json:"uaa"`
	URL     string `json:"url"`
	RESTURL string `json:"resturl"`
}

// Load reads configuration from the environment (and .env, if present).
// A missing or invalid extraction credential bundle is not fatal: the
// service still starts and reports it via /health, but uploads will fail.
func Load() *Config {
	// .env is optional outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		AppName:        envStr("APP_NAME", "Invoice OCR Service"),
		APIVersion:     envStr("API_VERSION", "v1"),
		Port:           envStr("PORT", "8080"),
		DBHost:         envStr("DB_HOST", "localhost"),
		DBPort:         envInt("DB_PORT", 5432),
		DBUser:         envStr("DB_USER", "postgres"),
		DBPassword:     envStr("DB_PASSWORD", ""),
		DBName:         envStr("DB_NAME", "invoices"),
		DBSSLMode:      envStr("DB_SSLMODE", "disable"),
		MaxFileSizeMB:  envInt("MAX_FILE_SIZE_MB", 10),
		UploadDir:      envStr("UPLOAD_DIR", os.TempDir()+"/uploads"),
		AllowedOrigins: envStr("ALLOWED_ORIGINS", "*"),
	}
	cfg.Extraction = loadExtraction()
	return cfg
}

// loadExtraction prefers explicit env vars and falls back to the service key
// file referenced by EXTRACTION_SERVICE_KEY.
func loadExtraction() ExtractionConfig {
	ec := ExtractionConfig{
		TokenURL:     os.Getenv("EXTRACTION_TOKEN_URL"),
		ClientID:     os.Getenv("EXTRACTION_CLIENT_ID"),
		ClientSecret: os.Getenv("EXTRACTION_CLIENT_SECRET"),
		BaseURL:      os.Getenv("EXTRACTION_BASE_URL"),
		RESTPath:     os.Getenv("EXTRACTION_REST_PATH"),
	}
	if ec.TokenURL == "" {
		keyPath := envStr("EXTRACTION_SERVICE_KEY", "dox-service-key.json")
		if fromKey, err := extractionFromServiceKey(keyPath); err == nil {
			ec = fromKey
		}
	}
	return ec
}

func extractionFromServiceKey(path string) (ExtractionConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ExtractionConfig{}, err
	}
	var key serviceKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return ExtractionConfig{}, fmt.Errorf("parse service key %s: %w", path, err)
	}
	return ExtractionConfig{
		TokenURL:     strings.TrimRight(key.UAA.URL, "/") + "/oauth/token",
		ClientID:     key.UAA.ClientID,
		ClientSecret: key.UAA.ClientSecret,
		BaseURL:      key.URL,
		RESTPath:     key.RESTURL,
	}, nil
}

// Validate reports whether the extraction credential bundle is complete.
func (ec ExtractionConfig) Validate() error {
	return validate.Struct(ec)
}

// Configured is the health-check view of Validate.
func (ec ExtractionConfig) Configured() bool {
	return ec.Validate() == nil
}

// DSN builds the Postgres connection string for GORM.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// MaxFileSizeBytes is the upload size limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// RateLimitMax is the allowed request count per rate-limit window.
func RateLimitMax() int {
	return envInt("RATE_LIMIT_MAX", 60)
}

// RateLimitWindow is the rate-limit window duration.
func RateLimitWindow() time.Duration {
	return time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
