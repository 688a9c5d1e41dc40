package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DB      DBConfig
	JWT     JWTConfig
	Server  ServerConfig
	Uploads UploadConfig
	MinIO   MinIOConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type ServerConfig struct {
	Port string
}

type UploadConfig struct {
	Root          string
	ThumbnailRoot string
	ThumbnailEdge int
	MaxFileBytes  int64
	FSTimeout     time.Duration

	// BestEffortDelete keeps a cascading album delete going past individual
	// photo-file failures instead of aborting the cascade.
	BestEffortDelete bool
}

type MinIOConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "fotodepo"),
			Password: getEnv("DB_PASSWORD", "fotodepo_secret"),
			Name:     getEnv("DB_NAME", "fotodepo"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Uploads: UploadConfig{
			Root:             getEnv("UPLOAD_ROOT", "./uploads"),
			ThumbnailRoot:    getEnv("THUMBNAIL_ROOT", "./cache/thumbnails"),
			ThumbnailEdge:    getEnvAsInt("THUMBNAIL_MAX_EDGE", 320),
			MaxFileBytes:     getEnvAsInt64("MAX_UPLOAD_BYTES", 10*1024*1024),
			FSTimeout:        getEnvAsDuration("UPLOAD_FS_TIMEOUT", 30*time.Second),
			BestEffortDelete: getEnvAsBool("UPLOAD_BEST_EFFORT_DELETE", true),
		},
		MinIO: MinIOConfig{
			Enabled:   getEnvAsBool("MINIO_ENABLED", false),
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "fotodepo"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "fotodepo_secret"),
			Bucket:    getEnv("MINIO_BUCKET", "fotodepo-photos"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
