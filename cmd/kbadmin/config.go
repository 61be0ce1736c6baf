package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains application-wide settings sourced from the environment.
type Config struct {
	Addr           string
	DatabaseURL    string
	AllowedOrigins []string

	UpstreamURL     string
	UpstreamToken   string
	UpstreamTimeout time.Duration
	MaxRetries      int
	CacheTTL        time.Duration
	ProbeInterval   time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	FallbackAdminUser     string
	FallbackAdminPassword string

	GeoProvider  string
	GeoBaseURL   string
	GeoUserAgent string

	LogLevel  string
	LogFormat string
}

func loadConfig() (Config, error) {
	_ = godotenv.Load("config/local.env")

	upstream := os.Getenv("KB_SERVER_URL")
	if upstream == "" {
		return Config{}, errors.New("KB_SERVER_URL env var is required")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return Config{}, errors.New("JWT_SECRET env var is required")
	}

	cfg := Config{
		Addr:           fmt.Sprintf(":%s", envOrDefault("PORT", "8080")),
		DatabaseURL:    envOrDefault("DATABASE_URL", "kbadmin.db"),
		AllowedOrigins: splitList(envOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		UpstreamURL:     upstream,
		UpstreamToken:   os.Getenv("KB_SERVER_TOKEN"),
		UpstreamTimeout: envDuration("KB_REQUEST_TIMEOUT", 30*time.Second),
		MaxRetries:      envInt("KB_MAX_RETRIES", 2),
		CacheTTL:        envDuration("KB_CACHE_TTL", 5*time.Minute),
		ProbeInterval:   envDuration("KB_PROBE_INTERVAL", 30*time.Second),

		JWTSecret: secret,
		TokenTTL:  envDuration("TOKEN_TTL", 12*time.Hour),

		FallbackAdminUser:     envOrDefault("FALLBACK_ADMIN_USER", "admin"),
		FallbackAdminPassword: os.Getenv("FALLBACK_ADMIN_PASSWORD"),

		GeoProvider:  envOrDefault("GEO_PROVIDER", "nominatim"),
		GeoBaseURL:   os.Getenv("GEO_BASE_URL"),
		GeoUserAgent: envOrDefault("GEO_USER_AGENT", "kbadmin/1.0"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
