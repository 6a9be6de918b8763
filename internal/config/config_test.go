package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/infraconfig/internal/crypto"
	"github.com/ericfisherdev/infraconfig/internal/domain/model"
)

const testKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// allConfigKeys lists every env var that Load() reads.
var allConfigKeys = []string{
	"LISTEN_ADDR",
	"DATABASE_URL",
	"DATA_ENCRYPTION_KEY",
	"REDIS_URL",
	"RESTART_DELAY",
	"LOG_LEVEL",
}

// isolateConfigEnv saves and unsets the given env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T, keys []string) {
	t.Helper()
	for _, key := range keys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t, allConfigKeys)
	t.Setenv("DATA_ENCRYPTION_KEY", testKeyHex)
	t.Setenv("LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/infraconfig")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RESTART_DELAY", "250ms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "postgres://localhost/infraconfig", cfg.DatabaseURL)
	assert.Len(t, cfg.EncryptionKey, crypto.KeySize)
	assert.True(t, cfg.HasRedis())
	assert.Equal(t, 250*time.Millisecond, cfg.RestartDelay)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t, allConfigKeys)
	t.Setenv("DATA_ENCRYPTION_KEY", testKeyHex)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "infraconfig.db", cfg.DatabaseURL)
	assert.False(t, cfg.HasRedis())
	assert.Equal(t, 5*time.Second, cfg.RestartDelay)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_MissingEncryptionKey(t *testing.T) {
	isolateConfigEnv(t, allConfigKeys)

	_, err := Load()

	assert.ErrorContains(t, err, "DATA_ENCRYPTION_KEY is required")
}

func TestLoad_MalformedEncryptionKey(t *testing.T) {
	isolateConfigEnv(t, allConfigKeys)
	t.Setenv("DATA_ENCRYPTION_KEY", "too-short")

	_, err := Load()

	assert.ErrorIs(t, err, crypto.ErrInvalidKey)
}

func TestLoad_InvalidRestartDelay(t *testing.T) {
	isolateConfigEnv(t, allConfigKeys)
	t.Setenv("DATA_ENCRYPTION_KEY", testKeyHex)
	t.Setenv("RESTART_DELAY", "soon")

	_, err := Load()

	assert.ErrorContains(t, err, "RESTART_DELAY")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	isolateConfigEnv(t, allConfigKeys)
	t.Setenv("DATA_ENCRYPTION_KEY", testKeyHex)
	t.Setenv("LOG_LEVEL", "chatty")

	_, err := Load()

	assert.ErrorContains(t, err, "LOG_LEVEL")
}

func configNameKeys() []string {
	keys := make([]string, len(model.AllConfigNames))
	for i, n := range model.AllConfigNames {
		keys[i] = string(n)
	}
	return keys
}

func TestDefaults_BuiltIn(t *testing.T) {
	isolateConfigEnv(t, configNameKeys())

	values := NewDefaults().Values()

	assert.Len(t, values, len(model.AllConfigNames))
	assert.Equal(t, "false", values[model.ConfigMailerSMTPEnable])
	assert.Equal(t, "true", values[model.ConfigMailerTLSRejectUnauthorized])
	assert.Equal(t, "true", values[model.ConfigIsFirstTimeInfraSetup])
	assert.Equal(t, "EMAIL", values[model.ConfigAllowedAuthProviders])
	assert.Equal(t, "profile,email", values[model.ConfigGoogleScope])
	assert.Equal(t, "common", values[model.ConfigMicrosoftTenant])
	assert.Equal(t, "100", values[model.ConfigRateLimitMax])
	assert.Equal(t, "86400000", values[model.ConfigAccessTokenValidity])
	assert.Empty(t, values[model.ConfigGoogleClientID])
	assert.Empty(t, values[model.ConfigJWTSecret])
	assert.Len(t, values[model.ConfigAnalyticsUserID], 36)
}

func TestDefaults_EnvironmentOverrides(t *testing.T) {
	isolateConfigEnv(t, configNameKeys())
	t.Setenv("RATE_LIMIT_MAX", "500")
	t.Setenv("GOOGLE_CLIENT_ID", "client-123")

	values := NewDefaults().Values()

	assert.Equal(t, "500", values[model.ConfigRateLimitMax])
	assert.Equal(t, "client-123", values[model.ConfigGoogleClientID])
}

func TestDefaults_AnalyticsIDStable(t *testing.T) {
	isolateConfigEnv(t, configNameKeys())

	d := NewDefaults()
	first := d.Values()[model.ConfigAnalyticsUserID]
	assert.Equal(t, first, d.Values()[model.ConfigAnalyticsUserID])
	assert.NotEqual(t, first, NewDefaults().Values()[model.ConfigAnalyticsUserID])
}
