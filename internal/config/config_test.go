package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "")
	t.Setenv("LIMITS_MONTHLY", "")
	t.Setenv("LIMITS_DAILY", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, 50, cfg.Limits.Monthly)
	assert.Equal(t, 10, cfg.Limits.Daily)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "@cf/meta/llama-3.1-8b-instruct", cfg.AI.Model)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "24h")
	t.Setenv("ADMIN_EMAILS", "root@example.com, ops@example.com ,")
	t.Setenv("LIMITS_MONTHLY", "100")
	t.Setenv("AI_ACCOUNT_ID", "acct-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, []string{"root@example.com", "ops@example.com"}, cfg.Admin.Emails)
	assert.Equal(t, 100, cfg.Limits.Monthly)
	assert.Equal(t, "acct-123", cfg.AI.AccountID)
}

func TestLoad_ZeroLimitsKept(t *testing.T) {
	t.Setenv("LIMITS_MONTHLY", "0")
	t.Setenv("LIMITS_DAILY", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Limits.Monthly)
	assert.Equal(t, 0, cfg.Limits.Daily)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("AI_TIMEOUT", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "ai timeout")
}
