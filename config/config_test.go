package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-aykurt/bakici-backend/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost:5432/bakici")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.MigrateOnStart)
	assert.Equal(t, "bakici-backend", cfg.JWTIssuer)
	assert.Equal(t, "bakici-clients", cfg.JWTAudience)
	assert.Equal(t, 12, cfg.BcryptCost)

	assert.Equal(t, time.Hour, cfg.AccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL())
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL())
	assert.Equal(t, 15*time.Minute, cfg.LoginAttemptWindow())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost:5432/bakici")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "15")
	t.Setenv("REFRESH_TOKEN_EXPIRY_DAYS", "30")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "10")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL())
	assert.Equal(t, 10, cfg.LoginMaxAttempts)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	assert.Error(t, err)
}
