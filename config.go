package geoplot

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the toolkit configuration: the shapefile cache, the sample
// data store and the feature catalog database.
type Config struct {
	Cache    CacheConfig
	Samples  SamplesConfig
	Database DatabaseConfig
}

// CacheConfig controls the shapefile cache location.
type CacheConfig struct {
	Dir string // empty means the per-user default
}

// SamplesConfig holds S3-compatible sample store settings.
type SamplesConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	Prefix          string
	Dir             string // local download directory
}

// DatabaseConfig holds feature catalog connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// LoadConfig loads configuration from environment variables and a .env
// file. A sibling .env.local takes precedence when present, so local
// development settings can override the checked-in defaults.
func LoadConfig(envPath string) (*Config, error) {
	localEnvPath := strings.TrimSuffix(envPath, ".env") + ".env.local"
	if _, err := os.Stat(localEnvPath); err == nil {
		if err := loadEnvFile(localEnvPath); err != nil {
			return nil, fmt.Errorf("failed to load local env file: %w", err)
		}
	} else if _, err := os.Stat(envPath); err == nil {
		if err := loadEnvFile(envPath); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg := &Config{
		Cache: CacheConfig{
			Dir: getEnv(cacheDirEnv, ""),
		},
		Samples: SamplesConfig{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			Region:          getEnv("S3_REGION", "auto"),
			Bucket:          getEnv("S3_BUCKET", "geoplot-samples"),
			Prefix:          getEnv("S3_PREFIX", "samples"),
			Dir:             getEnv("SAMPLES_DIR", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "geoplot"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from a .env file
func loadEnvFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	lines := strings.Split(string(content), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			os.Setenv(key, value)
		}
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

// getEnvInt gets an environment variable as integer with a default value
func getEnvInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}
