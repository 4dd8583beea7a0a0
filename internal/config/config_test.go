package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 150, cfg.HistoryLimit)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Nil(t, cfg.AllowedOrigins)

	// A dev run without a configured secret gets an ephemeral one.
	assert.True(t, cfg.EphemeralSecret)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("PORT", "9999")
	t.Setenv("JWT_SECRET", "configured-secret")
	t.Setenv("HISTORY_LIMIT", "50")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MODERATION_TERMS", "foo, bar ,")

	cfg := Load()
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "configured-secret", cfg.JWTSecret)
	assert.False(t, cfg.EphemeralSecret)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"foo", "bar"}, cfg.ModerationTerms)
}

func TestLoadProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("JWT_SECRET", "")

	assert.Panics(t, func() { Load() })

	t.Setenv("DATABASE_URL", "postgres://localhost/huddle")
	assert.Panics(t, func() { Load() }, "still missing REDIS_URL")

	t.Setenv("REDIS_URL", "redis://localhost:6379")
	assert.Panics(t, func() { Load() }, "still missing JWT_SECRET")

	t.Setenv("JWT_SECRET", "prod-secret")
	cfg := Load()
	require.False(t, cfg.EphemeralSecret)
	assert.Equal(t, "prod-secret", cfg.JWTSecret)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a"}, splitList("a"))
	assert.Equal(t, []string{"a", "b"}, splitList(" a , b "))
	assert.Nil(t, splitList(" , ,"))
}
