package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "SERVER_HOST", "SERVER_PORT", "CSV_FILE", "CACHE_DIR", "DATE_LAYOUTS",
		"DATASET_LOAD_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT", "SECURITY_ALLOWED_ORIGINS")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8501", cfg.Address())
	assert.Equal(t, "data/raw/amazon_sales_2025_INR.csv", cfg.Dataset.CSVFile)
	assert.Empty(t, cfg.Dataset.CacheDir)
	assert.Nil(t, cfg.Dataset.DateLayouts)
	assert.Equal(t, 30*time.Second, cfg.Dataset.LoadTimeout)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, []string{"http://localhost:8501"}, cfg.Security.AllowedOrigins)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("CSV_FILE", "/data/sales.csv")
	t.Setenv("DATE_LAYOUTS", "2006-01-02, 02/01/2006")
	t.Setenv("DATASET_LOAD_TIMEOUT", "5s")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/data/sales.csv", cfg.Dataset.CSVFile)
	assert.Equal(t, []string{"2006-01-02", "02/01/2006"}, cfg.Dataset.DateLayouts)
	assert.Equal(t, 5*time.Second, cfg.Dataset.LoadTimeout)
	assert.Equal(t, "text", cfg.Logger.Format)
}

func TestLoad_EnvFile(t *testing.T) {
	unsetEnv(t, "CSV_FILE", "CACHE_DIR", "LOG_LEVEL")
	t.Setenv("LOG_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), ".env")
	content := "CSV_FILE=/srv/sales.csv\nCACHE_DIR=/tmp/sales-cache\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/sales.csv", cfg.Dataset.CSVFile)
	assert.Equal(t, "/tmp/sales-cache", cfg.Dataset.CacheDir)
	assert.Equal(t, "warn", cfg.Logger.Level, "process environment wins over the env file")
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"), "")
	assert.NoError(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"negative read timeout", "SERVER_READ_TIMEOUT", "-1s"},
		{"zero load timeout", "DATASET_LOAD_TIMEOUT", "0s"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
		{"unknown log format", "LOG_FORMAT", "xml"},
		{"zero rate limit", "SECURITY_RATE_LIMIT_RPS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			assert.Nil(t, cfg)
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}

func TestGetEnvHelpers_FallBackOnMalformedValues(t *testing.T) {
	t.Setenv("TEST_INT", "ten")
	t.Setenv("TEST_BOOL", "maybe")
	t.Setenv("TEST_DURATION", "soon")

	assert.Equal(t, 10, getEnvInt("TEST_INT", 10))
	assert.True(t, getEnvBool("TEST_BOOL", true))
	assert.Equal(t, time.Minute, getEnvDuration("TEST_DURATION", time.Minute))
}
