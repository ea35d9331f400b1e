package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tristore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	assert.Error(t, err)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
backend: sqlite
path: /var/lib/tristore/store.db
store: people
log_level: debug
`)
	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, "/var/lib/tristore/store.db", cfg.Path)
	assert.Equal(t, "people", cfg.Store)
	assert.Equal(t, Default().ContextCacheSize, cfg.ContextCacheSize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown backend": "backend: postgres\n",
		"zero cache":      "context_cache_size: 0\n",
		"bad level":       "log_level: loud\n",
		"empty store":     "store: \"\"\n",
		"not yaml":        "backend: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body), true)
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestMarshalRoundTrip(t *testing.T) {
	want := Default()
	want.Backend = "memory"
	data, err := want.Marshal()
	require.NoError(t, err)

	got, err := Load(writeConfig(t, string(data)), true)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
