package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "", cfg.DatabaseDSN)
	assert.Equal(t, 10*time.Second, cfg.DBConnectionTimeout)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.NotEmpty(t, cfg.TokenSigningSecretKey)
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", "localhost:9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FILE_STORAGE_PATH", "/tmp/conduit-db.json")
	t.Setenv("TOKEN_TTL", "24h")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, "localhost:9090", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/conduit-db.json", cfg.DBFileName)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
}

func TestNewRejectsUnknownLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestNewRejectsMalformedSecret(t *testing.T) {
	t.Setenv("TOKEN_SIGNING_SECRET_KEY", "not base64!")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestNewRejectsMalformedRunAddr(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", "no-port-here")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}
