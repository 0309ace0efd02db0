package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int
	LogFilePath  string
	CORSOrigins  string

	// Gateway
	ViewerURL string

	// Viewer
	StoreBackend      string
	DBPath            string
	MigrationsPath    string
	RedisURL          string
	StorageRoot       string
	ThumbnailWidth    int
	ViewportWidth     int
	ViewportHeight    int
	SessionTTLMinutes int
	PDFScale          float64
	PDFToPPMPath      string
	IconPalette       string
	IconSize          int
	BodyLimitMB       int
}

// Load загружает конфигурацию из переменных окружения (и .env, если он есть)
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "3000"),
		Environment:  getEnv("ENV", "development"),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
		LogFilePath:  getEnv("LOG_FILE_PATH", "logs/app.log"),
		CORSOrigins:  getEnv("CORS_ORIGINS", "*"),

		ViewerURL: getEnv("VIEWER_URL", "http://localhost:3003"),

		StoreBackend:      getEnv("STORE_BACKEND", "sqlite"),
		DBPath:            getEnv("VIEWER_DB_PATH", "data/db/viewer.db"),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", "migrations/001_init_annotations.sql"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		StorageRoot:       getEnv("STORAGE_ROOT", "source"),
		ThumbnailWidth:    getEnvAsInt("THUMBNAIL_WIDTH", 240),
		ViewportWidth:     getEnvAsInt("VIEWPORT_WIDTH", 1280),
		ViewportHeight:    getEnvAsInt("VIEWPORT_HEIGHT", 800),
		SessionTTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 120),
		PDFScale:          getEnvAsFloat("PDF_SCALE", 1.5),
		PDFToPPMPath:      getEnv("PDFTOPPM_PATH", "pdftoppm"),
		IconPalette:       getEnv("ICON_PALETTE", "AutroGuard,BSD_1000,MCP"),
		IconSize:          getEnvAsInt("ICON_SIZE", 32),
		BodyLimitMB:       getEnvAsInt("BODY_LIMIT_MB", 64),
	}
}

// IsProduction сообщает, запущен ли сервис в production-окружении.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
