package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings, loaded from the environment with an
// optional .env overlay.
type Config struct {
	ListenAddr string
	GinMode    string
	LogLevel   string

	MongoURI      string
	MongoDatabase string

	Storage StorageConfig
	SMTP    SMTPConfig

	TrashRetention  time.Duration
	CleanupSchedule string
}

// StorageConfig selects and configures the blob backend
type StorageConfig struct {
	Provider  string
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	CDNDomain string
	LocalPath string
}

// SMTPConfig holds mail transport settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		GinMode:    getEnv("GIN_MODE", "release"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "skydrive"),

		Storage: StorageConfig{
			Provider:  getEnv("STORAGE_PROVIDER", "local"),
			Bucket:    getEnv("STORAGE_BUCKET", ""),
			Region:    getEnv("STORAGE_REGION", "us-east-1"),
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			CDNDomain: getEnv("STORAGE_CDN_DOMAIN", ""),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./data/files"),
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@skydrive.local"),
		},

		TrashRetention:  time.Duration(getEnvInt("TRASH_RETENTION_DAYS", 30)) * 24 * time.Hour,
		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "0 3 * * *"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Storage.Provider != "local" && c.Storage.Bucket == "" {
		return fmt.Errorf("STORAGE_BUCKET is required for provider %q", c.Storage.Provider)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
