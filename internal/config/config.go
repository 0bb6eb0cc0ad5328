// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	LogLevel           string
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string

	// Database
	DBDriver     string
	DatabaseURL  string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSchema     string
	SQLiteDBPath string

	// Auth
	JWTSecret  string
	JWTIssuer  string
	JWTTTL     time.Duration
	BcryptCost int

	// Avatars
	AvatarStore    string
	AvatarDir      string
	AvatarMaxBytes int64
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Redis denylist (optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Mail
	MailtrapAPIKey string
	MailtrapAPIURL string
	MailFrom       string
	ResetURLBase   string

	// Sentry
	SentryDSN         string
	SentryEnvironment string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		DBDriver:     getEnv("DB_DRIVER", "sqlite"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		DBHost:       getEnv("BLUEPRINT_DB_HOST", "localhost"),
		DBPort:       getEnv("BLUEPRINT_DB_PORT", "5432"),
		DBUser:       getEnv("BLUEPRINT_DB_USERNAME", ""),
		DBPassword:   getEnv("BLUEPRINT_DB_PASSWORD", ""),
		DBName:       getEnv("BLUEPRINT_DB_DATABASE", ""),
		DBSchema:     getEnv("BLUEPRINT_DB_SCHEMA", "public"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finance.db"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		JWTIssuer:  getEnv("JWT_ISSUER", "finance-service"),
		JWTTTL:     getEnvDuration("JWT_EXPIRES_IN", 30*24*time.Hour),
		BcryptCost: getEnvInt("BCRYPT_COST", 12),

		AvatarStore:    getEnv("AVATAR_STORE", "local"),
		AvatarDir:      getEnv("AVATAR_DIR", "./uploads/avatars"),
		AvatarMaxBytes: int64(getEnvInt("AVATAR_MAX_BYTES", 2<<20)),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET", "avatars"),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MailtrapAPIKey: getEnv("MAILTRAP_API_KEY", ""),
		MailtrapAPIURL: getEnv("MAILTRAP_API_URL", "https://send.api.mailtrap.io/api/send"),
		MailFrom:       getEnv("MAIL_FROM", "noreply@example.com"),
		ResetURLBase:   getEnv("RESET_URL_BASE", "http://localhost:3000/reset-password"),

		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "development"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" && (c.DBUser == "" || c.DBName == "") {
			errors = append(errors, "postgres requires DATABASE_URL or BLUEPRINT_DB_USERNAME and BLUEPRINT_DB_DATABASE")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite driver")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid database driver '%s': must be postgres or sqlite", c.DBDriver))
	}

	if len(c.JWTSecret) < 32 {
		errors = append(errors, "JWT_SECRET must be at least 32 characters")
	}
	if c.JWTTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid JWT_EXPIRES_IN %v: must be at least 1 minute", c.JWTTTL))
	}

	if c.RequestTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 1 second", c.RequestTimeout))
	}

	switch c.AvatarStore {
	case "local":
		if c.AvatarDir == "" {
			errors = append(errors, "AVATAR_DIR cannot be empty when using the local avatar store")
		}
	case "minio":
		if c.MinioEndpoint == "" || c.MinioBucket == "" {
			errors = append(errors, "MINIO_ENDPOINT and MINIO_BUCKET are required when using the minio avatar store")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid avatar store '%s': must be local or minio", c.AvatarStore))
	}
	if c.AvatarMaxBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid AVATAR_MAX_BYTES %d: must be positive", c.AvatarMaxBytes))
	}

	if c.ResetURLBase != "" {
		if u, err := url.Parse(c.ResetURLBase); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid RESET_URL_BASE '%s': must be an absolute URL", c.ResetURLBase))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// DatabaseDSN returns the connection string for the configured driver.
func (c *Config) DatabaseDSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLiteDBPath
	}
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {"disable"}, "search_path": {c.DBSchema}}.Encode(),
	}
	return u.String()
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
