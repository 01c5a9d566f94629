package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                  string
	DatabaseURL           string
	JWTSecret             string
	JWTIssuer             string
	Environment           string
	RunMigrations         bool
	RunSeed               bool
	MaxBodyBytes          int64
	RateLimitPerMinute    int
	MetricsEnabled        bool
	LogLevel              string
	LogPretty             bool
	RedisAddr             string
	ReviewLockTTL         time.Duration
	OperationTimeout      time.Duration
	DirectoryTimeout      time.Duration
	IdentityAdminFallback bool
	CORSAllowedOrigins    []string
}

// Load reads the environment, after merging an optional .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:                  getEnv("APP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		JWTIssuer:             getEnv("JWT_ISSUER", ""),
		Environment:           getEnv("APP_ENV", "development"),
		RunMigrations:         getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:               getEnvBool("RUN_SEED", true),
		MaxBodyBytes:          int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:    getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		MetricsEnabled:        getEnvBool("METRICS_ENABLED", true),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogPretty:             getEnvBool("LOG_PRETTY", false),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		ReviewLockTTL:         getEnvDuration("REVIEW_LOCK_TTL", 10*time.Second),
		OperationTimeout:      getEnvDuration("OPERATION_TIMEOUT", 5*time.Second),
		DirectoryTimeout:      getEnvDuration("DIRECTORY_TIMEOUT", 2*time.Second),
		IdentityAdminFallback: getEnvBool("IDENTITY_ADMIN_FALLBACK", true),
		CORSAllowedOrigins:    getEnvList("CORS_ALLOWED_ORIGINS"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required to verify bearer credentials")
	}
	if c.Environment == "production" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("OPERATION_TIMEOUT must be positive")
	}
	if c.DirectoryTimeout <= 0 {
		return fmt.Errorf("DIRECTORY_TIMEOUT must be positive")
	}
	if c.RedisAddr != "" && c.ReviewLockTTL <= 0 {
		return fmt.Errorf("REVIEW_LOCK_TTL must be positive when REDIS_ADDR is set")
	}
	return nil
}
