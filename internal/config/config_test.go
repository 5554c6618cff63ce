package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultDeleteDebounce, cfg.DeleteDebounce)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Server)
	assert.NotEmpty(t, cfg.DBPath)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	content := "db: /tmp/tags.db\nserver: http://localhost:9090/\ndelete_debounce: 50ms\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/tags.db", cfg.DBPath)
	assert.Equal(t, "http://localhost:9090", cfg.Server)
	assert.Equal(t, 50*time.Millisecond, cfg.DeleteDebounce)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("KB_DELETE_DEBOUNCE", "1s")
	t.Setenv("KB_SERVER", "http://remote:8080")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.DeleteDebounce)
	assert.Equal(t, "http://remote:8080", cfg.Server)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsNegativeDebounce(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("KB_DELETE_DEBOUNCE", "-5ms")

	_, err := Load(NewViper(), "")
	assert.Error(t, err)
}
