package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef" // 32 chars

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CAPSULE_DATABASE_URL", "postgres://localhost:5432/capsule_test")
	t.Setenv("CAPSULE_AUTH_JWT_SECRET", testSecret)
}

func TestLoad_FromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CAPSULE_SERVER_PORT", "9090")
	t.Setenv("CAPSULE_SERVER_LOG_LEVEL", "debug")
	t.Setenv("CAPSULE_REDIS_ADDR", "localhost:6379")
	t.Setenv("CAPSULE_MEDIA_BUCKET", "capsule-media")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "postgres://localhost:5432/capsule_test", cfg.Database.URL)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "capsule-media", cfg.Media.Bucket)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 60, cfg.Auth.TokenLifetimeMinutes)
	assert.Equal(t, 10080, cfg.Auth.RefreshTokenLifetimeMinutes)
	assert.Equal(t, 1440, cfg.Auth.VerificationTokenLifetimeMinutes)
	assert.Empty(t, cfg.Redis.Addr, "cache is off unless configured")
	assert.Empty(t, cfg.Media.Bucket, "media store is off unless configured")
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("CAPSULE_AUTH_JWT_SECRET", testSecret)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoad_ShortJWTSecret(t *testing.T) {
	t.Setenv("CAPSULE_DATABASE_URL", "postgres://localhost:5432/capsule_test")
	t.Setenv("CAPSULE_AUTH_JWT_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CAPSULE_SERVER_LOG_LEVEL", "verbose")

	_, err := Load()
	require.Error(t, err)
}
