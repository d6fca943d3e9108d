package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"LISTEN_ADDR", "ACTIVATION_KEY", "RATE_LIMIT_PER_MINUTE", "ID", "PASSWORD", "BUSINESS_ID",
	"LOGIN_URL", "MANAGEMENT_URL", "BOOKING_LIST_URL", "BROWSER", "HEADLESS", "USER_AGENT",
	"PACE_MIN_MS", "PACE_MAX_MS", "LOCATE_MAX_ADVANCES", "OPERATION_TIMEOUT", "PROXY_URL",
	"LOG_FILE", "LOG_LEVEL", "METRICS_NAMESPACE",
}

// clearEnv blanks every variable Load reads and moves into an empty directory so
// no .env file is picked up.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.ListenAddr)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, DefaultBusinessID, cfg.BusinessID)
	assert.Equal(t, "https://nid.naver.com/nidlogin.login", cfg.LoginURL)
	assert.Equal(t, "https://partner.booking.naver.com/bizes/899762/simple-management", cfg.ManagementURL)
	assert.Equal(t, "https://partner.booking.naver.com/bizes/899762/booking-list-view", cfg.BookingListURL)
	assert.Equal(t, "chromium", cfg.Browser)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 1500*time.Millisecond, cfg.PaceMin)
	assert.Equal(t, 3000*time.Millisecond, cfg.PaceMax)
	assert.Equal(t, 10, cfg.LocateMaxAdvances)
	assert.Equal(t, 10*time.Minute, cfg.OperationTimeout)
	assert.Equal(t, "logs/server.log", cfg.LogFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "smartplace_sync", cfg.MetricsNamespace)

	assert.Error(t, cfg.RequireCredentials())
	assert.Error(t, cfg.RequireActivationKey())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BUSINESS_ID", "123")
	t.Setenv("ID", "owner")
	t.Setenv("PASSWORD", "secret")
	t.Setenv("ACTIVATION_KEY", "key")
	t.Setenv("BROWSER", "Firefox")
	t.Setenv("HEADLESS", "false")
	t.Setenv("PACE_MIN_MS", "0")
	t.Setenv("PACE_MAX_MS", "10")
	t.Setenv("OPERATION_TIMEOUT", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://partner.booking.naver.com/bizes/123/simple-management", cfg.ManagementURL)
	assert.Equal(t, "firefox", cfg.Browser)
	assert.False(t, cfg.Headless)
	assert.Zero(t, cfg.PaceMin)
	assert.Equal(t, 10*time.Millisecond, cfg.PaceMax)
	assert.Equal(t, 90*time.Second, cfg.OperationTimeout)
	assert.NoError(t, cfg.RequireCredentials())
	assert.NoError(t, cfg.RequireActivationKey())
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("LISTEN_ADDR")
	require.NoError(t, os.WriteFile(".env", []byte("LISTEN_ADDR=:7000\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "PACE_MIN_MS", value: "soon"},
		{key: "PACE_MIN_MS", value: "-5"},
		{key: "PACE_MAX_MS", value: "100"},
		{key: "HEADLESS", value: "maybe"},
		{key: "LOCATE_MAX_ADVANCES", value: "0"},
		{key: "OPERATION_TIMEOUT", value: "ten minutes"},
		{key: "RATE_LIMIT_PER_MINUTE", value: "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
