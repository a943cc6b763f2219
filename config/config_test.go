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
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("DOQQ_DB_PATH", "")
	t.Setenv("DOQQ_MODEL", "")
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultEndpoint, cfg.Ollama.Endpoint)
	assert.Equal(t, DefaultTimeout, cfg.Ollama.Timeout)
	assert.Equal(t, DefaultKeepAlive, cfg.Ollama.KeepAlive)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Empty(t, cfg.DefaultModel)
	assert.False(t, cfg.Prime.SkipHidden)
}

func TestParse_FullFile(t *testing.T) {
	clearEnv(t)

	yaml := `
ollama:
  endpoint: http://10.0.0.5:11434
  timeout: 90s
  keep_alive: 10m
store:
  path: /tmp/doqq/sessions.db
default_model: llama3
prime:
  skip_hidden: true
`
	cfg, err := Parse([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:11434", cfg.Ollama.Endpoint)
	assert.Equal(t, 90*time.Second, cfg.Ollama.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Ollama.KeepAlive)
	assert.Equal(t, "/tmp/doqq/sessions.db", cfg.Store.Path)
	assert.Equal(t, "llama3", cfg.DefaultModel)
	assert.True(t, cfg.Prime.SkipHidden)
}

func TestParse_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_HOST", "127.0.0.1:9999")
	t.Setenv("DOQQ_DB_PATH", "/var/lib/doqq.db")
	t.Setenv("DOQQ_MODEL", "codellama:13b")

	cfg, err := Parse([]byte("default_model: llama3\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9999", cfg.Ollama.Endpoint)
	assert.Equal(t, "/var/lib/doqq.db", cfg.Store.Path)
	assert.Equal(t, "codellama:13b", cfg.DefaultModel)
}

func TestParse_InvalidEndpoint(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name     string
		endpoint string
	}{
		{name: "unsupported scheme", endpoint: "ftp://localhost:11434"},
		{name: "missing host", endpoint: "http://"},
		{name: "relative", endpoint: "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte("ollama:\n  endpoint: " + tt.endpoint + "\n"))
			require.Error(t, err)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, "ollama.endpoint", cfgErr.Field)
			assert.ErrorIs(t, err, ErrInvalidEndpoint)
		})
	}
}

func TestParse_NegativeDurations(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte("ollama:\n  timeout: -1s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama.timeout must not be negative")
}

func TestParse_BadYAML(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte("ollama: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: parse")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, cfg.Ollama.Endpoint)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "doqq.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_model: mistral\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.DefaultModel)
}

func TestParseEndpoint(t *testing.T) {
	u, err := ParseEndpoint(" https://ollama.internal:443 ")
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "ollama.internal:443", u.Host)
}
