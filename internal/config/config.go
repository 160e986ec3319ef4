package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port            string
	SupabaseURL     string
	SupabaseAnonKey string
	MongoDBURI      string
	MongoDBPassword string
	MongoDBName     string
	Environment     string
	LogLevel        string

	// DatabaseURL is the pooled Postgres connection used for transactional writes.
	// DirectURL bypasses the pooler and is only used by cmd/migrate.
	DatabaseURL    string
	DirectURL      string
	MigrationsPath string

	RedisURL        string
	RateLimit       int
	RateLimitWindow time.Duration

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	BusinessEmail  string
	AllowedOrigins []string

	SessionIdleTimeout time.Duration
	SessionMaxAge      time.Duration

	OtelEnabled     bool
	OtelEndpoint    string
	OtelSampleRatio float64
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnvWithDefault("PORT", "8080"),
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey: os.Getenv("SUPABASE_URL_ANON_KEY"),
		MongoDBURI:      os.Getenv("MONGODB_URI"),
		MongoDBPassword: os.Getenv("MONGODB_PASSWORD"),
		MongoDBName:     getEnvWithDefault("MONGODB_NAME", "cleanbook"),
		Environment:     getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		MigrationsPath: getEnvWithDefault("MIGRATIONS_PATH", "file://migrations"),

		RedisURL: os.Getenv("REDIS_URL"),

		CloudinaryName:      os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),

		BusinessEmail:  getEnvWithDefault("BUSINESS_EMAIL", "bookings@example.com"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", "http://localhost:3000"),

		OtelEnabled:  getEnvWithDefault("OTEL_ENABLED", "true") != "false",
		OtelEndpoint: getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	var err error
	if cfg.RateLimit, err = getEnvInt("RATE_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTimeout, err = getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SessionMaxAge, err = getEnvDuration("SESSION_MAX_AGE", 12*time.Hour); err != nil {
		return nil, err
	}
	cfg.OtelSampleRatio = 1
	if v := os.Getenv("OTEL_SAMPLING_RATIO"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return nil, fmt.Errorf("OTEL_SAMPLING_RATIO must be between 0 and 1 (got %q)", v)
		}
		cfg.OtelSampleRatio = f
	}

	// Validate required fields
	if cfg.SupabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL_ANON_KEY is required")
	}
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.MongoDBPassword == "" {
		return nil, fmt.Errorf("MONGODB_PASSWORD is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SessionIdleTimeout > cfg.SessionMaxAge {
		return nil, fmt.Errorf("SESSION_IDLE_TIMEOUT must not exceed SESSION_MAX_AGE")
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer (got %q)", key, v)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration (got %q)", key, v)
	}
	return d, nil
}

func getEnvList(key, fallbackCSV string) []string {
	v := getEnvWithDefault(key, fallbackCSV)
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// MigrationURL prefers the direct connection because the pooler rejects DDL sessions.
func (c *Config) MigrationURL() string {
	if strings.TrimSpace(c.DirectURL) != "" {
		return c.DirectURL
	}
	return c.DatabaseURL
}
