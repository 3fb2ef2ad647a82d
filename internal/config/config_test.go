package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL", "GEMINI_TIMEOUT",
		"SCANNER_REQUESTS_PER_MINUTE", "SCANNER_STRICT_VALIDATION",
		"SERVER_HOST", "SERVER_PORT", "STORAGE_DB_PATH", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", cfg.Gemini.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Gemini.Timeout)
	assert.Zero(t, cfg.Scanner.RequestsPerMinute)
	assert.False(t, cfg.Scanner.StrictValidation)
	assert.Equal(t, "0.0.0.0:8011", cfg.Server.Addr())
	assert.Equal(t, "food-scanner.db", cfg.Storage.DBPath)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileWithEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("GEMINI_TIMEOUT", "15s")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
gemini:
  api_key: "from-file"
  model: "gemini-2.0-flash"
  timeout: "30s"
scanner:
  requests_per_minute: 30
  strict_validation: true
server:
  port: 9090
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, 15*time.Second, cfg.Gemini.Timeout)
	assert.InDelta(t, 30, cfg.Scanner.RequestsPerMinute, 0.0001)
	assert.True(t, cfg.Scanner.StrictValidation)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "k")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingAPIKey))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Gemini: GeminiConfig{APIKey: "k", Model: "m", BaseURL: "http://x", Timeout: time.Second},
			Server: ServerConfig{Host: "localhost", Port: 8011},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing key", func(c *Config) { c.Gemini.APIKey = "" }},
		{"missing model", func(c *Config) { c.Gemini.Model = " " }},
		{"missing base url", func(c *Config) { c.Gemini.BaseURL = "" }},
		{"zero timeout", func(c *Config) { c.Gemini.Timeout = 0 }},
		{"negative rate", func(c *Config) { c.Scanner.RequestsPerMinute = -1 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(filepath.Join(dir, "absent.env")))
	})

	t.Run("values are loaded", func(t *testing.T) {
		clearEnv(t)
		os.Unsetenv("GEMINI_MODEL")
		path := filepath.Join(dir, "good.env")
		require.NoError(t, os.WriteFile(path, []byte("GEMINI_MODEL=gemini-from-dotenv\n"), 0o600))

		require.NoError(t, loadEnvFile(path))
		assert.Equal(t, "gemini-from-dotenv", os.Getenv("GEMINI_MODEL"))
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(dir, "bad.env")
		require.NoError(t, os.WriteFile(path, []byte("GEMINI_API_KEY=\"unterminated\n"), 0o600))

		err := loadEnvFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.env")
	})
}
