package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	OCR      OCRConfig
	InfluxDB InfluxDBConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
	Host string
}

// UploadConfig holds upload storage and validation settings
type UploadConfig struct {
	Dir               string
	MaxFileSize       int64
	AllowedExtensions map[string]bool
	MaxFilenameLength int
	RetentionAge      time.Duration
}

// OCRConfig holds engine binaries and worker settings
type OCRConfig struct {
	TesseractCmd string
	PdftoppmCmd  string
	Timeout      time.Duration
	Workers      int
	TaskTTL      time.Duration
}

// InfluxDBConfig holds InfluxDB connection details.
// Telemetry is optional: an empty URL disables it.
type InfluxDBConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Upload: UploadConfig{
			Dir:               getEnv("UPLOAD_DIR", "uploads"),
			MaxFileSize:       getEnvInt64("MAX_FILE_SIZE", 5*1024*1024),
			AllowedExtensions: parseExtensions(getEnv("ALLOWED_EXTENSIONS", "png,jpg,jpeg,tif,tiff,pdf")),
			MaxFilenameLength: getEnvInt("MAX_FILENAME_LENGTH", 128),
			RetentionAge:      getEnvDuration("RETENTION_AGE", time.Hour),
		},
		OCR: OCRConfig{
			TesseractCmd: getEnv("TESSERACT_CMD", "tesseract"),
			PdftoppmCmd:  getEnv("PDFTOPPM_CMD", "pdftoppm"),
			Timeout:      getEnvDuration("OCR_TIMEOUT", 60*time.Second),
			Workers:      getEnvInt("OCR_WORKERS", 4),
			TaskTTL:      getEnvDuration("TASK_TTL", time.Hour),
		},
		InfluxDB: InfluxDBConfig{
			URL:    getEnv("INFLUXDB2_URL", ""),
			Token:  getEnv("INFLUXDB2_TOKEN", ""),
			Org:    getEnv("INFLUXDB2_ORG", ""),
			Bucket: getEnv("INFLUXDB2_BUCKET", ""),
		},
	}

	// Validate required fields
	if cfg.Upload.MaxFileSize <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if len(cfg.Upload.AllowedExtensions) == 0 {
		return nil, fmt.Errorf("ALLOWED_EXTENSIONS must not be empty")
	}
	// Stored names are "<uuid>_<base><ext>"; the 36-char id alone eats most
	// of a shorter limit.
	if cfg.Upload.MaxFilenameLength < 64 {
		return nil, fmt.Errorf("MAX_FILENAME_LENGTH must be at least 64")
	}
	if cfg.OCR.Workers < 1 {
		return nil, fmt.Errorf("OCR_WORKERS must be at least 1")
	}
	if cfg.InfluxDB.URL != "" {
		if cfg.InfluxDB.Token == "" {
			return nil, fmt.Errorf("INFLUXDB2_TOKEN is required when INFLUXDB2_URL is set")
		}
		if cfg.InfluxDB.Org == "" {
			return nil, fmt.Errorf("INFLUXDB2_ORG is required when INFLUXDB2_URL is set")
		}
		if cfg.InfluxDB.Bucket == "" {
			return nil, fmt.Errorf("INFLUXDB2_BUCKET is required when INFLUXDB2_URL is set")
		}
	}

	return cfg, nil
}

// ExtensionAllowed reports whether the file name carries an accepted extension.
func (u UploadConfig) ExtensionAllowed(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	return u.AllowedExtensions[ext]
}

// parseExtensions turns a comma-separated list into a lookup set
func parseExtensions(raw string) map[string]bool {
	set := make(map[string]bool)
	for _, ext := range strings.Split(raw, ",") {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			set[ext] = true
		}
	}
	return set
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("WARNING: invalid integer for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

// getEnvInt64 retrieves a 64-bit integer environment variable or returns a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		log.Printf("WARNING: invalid integer for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable ("90s", "1h") or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("WARNING: invalid duration for %s, using default %s", key, defaultValue)
	}
	return defaultValue
}
