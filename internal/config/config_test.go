package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://u:p@localhost:5432/futsal")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GATEWAY_SECRET_KEY", "8gBm/:&EnhH.1/q")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 2*time.Hour, cfg.App.BookingCutoff)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, "EPAYTEST", cfg.Gateway.MerchantCode)
	assert.True(t, cfg.Gateway.RequireSignature)
	assert.Equal(t, "http://localhost:8080/v1/payments/gateway/success", cfg.Gateway.SuccessURL)
	assert.Equal(t, "http://localhost:8080/v1/payments/gateway/failure", cfg.Gateway.FailureURL)
	assert.Equal(t, "Asia/Kathmandu", cfg.Location().String())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8081"}, cfg.CORS.DevOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://u:p@localhost:5432/futsal")
	t.Setenv("JWT_SECRET", "unused")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("GATEWAY_SECRET_KEY", "k")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnsignedCallbacksInProduction(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("GATEWAY_REQUIRE_SIGNATURE", "false")

	_, err := Load()
	assert.ErrorContains(t, err, "GATEWAY_REQUIRE_SIGNATURE")
}

func TestLoadExplicitCallbackURLs(t *testing.T) {
	setRequired(t)
	t.Setenv("PUBLIC_BASE_URL", "https://api.example.com/")
	t.Setenv("GATEWAY_FAILURE_URL", "https://pay.example.com/failed")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/payments/gateway/success", cfg.Gateway.SuccessURL)
	assert.Equal(t, "https://pay.example.com/failed", cfg.Gateway.FailureURL)
}

func TestLoadInvalidTimezone(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.ErrorContains(t, err, "APP_TIMEZONE")
}
