package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	RedisURL    string
	SQLitePath  string

	// Realtime / auth
	JWTSecret        string
	AllowedOrigins   []string // CORS and WebSocket origins; empty allows all
	HistoryLimit     int      // messages replayed on connect
	EphemeralSecret  bool     // true when JWTSecret was generated at startup
	ModerationTerms  []string // disallowed terms, comma-separated in env
	UploadDir        string
	ThemesDir        string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/huddle.db"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		ThemesDir:   getEnv("THEMES_DIR", "themes"),
	}

	cfg.HistoryLimit = 150
	if v := os.Getenv("HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}

	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))
	cfg.ModerationTerms = splitList(os.Getenv("MODERATION_TERMS"))

	// In production, require the external stores and a signing secret. The
	// secret is never defaulted: a missing one in development gets a fresh
	// random value that dies with the process.
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.JWTSecret == "" {
			panic("JWT_SECRET is required in production")
		}
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = randomSecret()
		cfg.EphemeralSecret = true
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList parses a comma-separated env value into trimmed entries.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("failed to generate ephemeral JWT secret: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
