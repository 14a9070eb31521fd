package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvProvider(t *testing.T) {
	t.Run("Should be an empty marker source", func(t *testing.T) {
		p := NewEnvProvider()
		data, err := p.Load()
		require.NoError(t, err)
		assert.Empty(t, data)
		assert.Equal(t, SourceEnv, p.Type())
	})
}

func TestCLIProvider_Load(t *testing.T) {
	t.Run("Should map known flags onto configuration paths", func(t *testing.T) {
		p := NewCLIProvider(map[string]any{
			"host":           "cli.example.com",
			"port":           6001,
			"log-level":      "debug",
			"result-backend": "s3://celery-results",
			"unknown-flag":   "ignored",
		})
		data, err := p.Load()
		require.NoError(t, err)
		server, ok := data["server"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "cli.example.com", server["host"])
		assert.Equal(t, 6001, server["port"])
		runtime, ok := data["runtime"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "debug", runtime["log_level"])
		celery, ok := data["celery"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "s3://celery-results", celery["result_backend"])
		assert.NotContains(t, data, "unknown-flag")
		assert.Equal(t, SourceCLI, p.Type())
	})
}

func TestYAMLProvider_Load(t *testing.T) {
	t.Run("Should read nested settings and drop nulls", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "celery:\n  result_backend: redis://localhost:6379/0\n  result_s3_bucket: null\nserver:\n  port: 7001\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		data, err := NewYAMLProvider(path).Load()
		require.NoError(t, err)
		celery, ok := data["celery"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "redis://localhost:6379/0", celery["result_backend"])
		assert.NotContains(t, celery, "result_s3_bucket")
	})

	t.Run("Should treat a missing file as empty", func(t *testing.T) {
		data, err := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml")).Load()
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("Should fail on invalid YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
		_, err := NewYAMLProvider(path).Load()
		assert.Error(t, err)
	})

	t.Run("Should feed the loader", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("celery:\n  max_redis_entries: 50\n"), 0o600))
		cfg, err := NewService().Load(t.Context(), NewYAMLProvider(path))
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.Celery.MaxRedisEntries)
	})
}

func TestDefaultProvider(t *testing.T) {
	t.Run("Should expose defaults as a nested map", func(t *testing.T) {
		data, err := NewDefaultProvider().Load()
		require.NoError(t, err)
		server, ok := data["server"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "/v1.0", server["api_prefix"])
	})
}
