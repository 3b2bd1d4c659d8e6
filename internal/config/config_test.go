package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromEnv(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ConfigDir())
	assert.Empty(t, cfg.Gateway.Endpoint, "Local core should be the default transport")
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, filepath.Join(dir, "incidentreview.sqlite"), cfg.Workspace.DefaultPath)
	assert.Equal(t, filepath.Join(dir, "session.json"), cfg.Workspace.StatePath)
	assert.Equal(t, 8, cfg.Workspace.MaxRecent)
	assert.Equal(t, "WAL", cfg.Database.JournalMode)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("INCIDENTDECK_CORE_ENDPOINT", "http://localhost:7700")
	t.Setenv("INCIDENTDECK_CORE_TIMEOUT", "5s")
	t.Setenv("INCIDENTDECK_WORKSPACE_MAX_RECENT", "3")
	t.Setenv("INCIDENTDECK_DB_FOREIGN_KEYS", "false")
	t.Setenv("INCIDENTDECK_LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:7700", cfg.Gateway.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 3, cfg.Workspace.MaxRecent)
	assert.False(t, cfg.Database.ForeignKeys)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvBadValuesFallBack(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("INCIDENTDECK_CORE_TIMEOUT", "not-a-duration")
	t.Setenv("INCIDENTDECK_WORKSPACE_MAX_RECENT", "many")

	cfg, err := LoadFromEnv(dir)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 8, cfg.Workspace.MaxRecent)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("anything-else"))
}

func TestGlobalGetSet(t *testing.T) {
	Set(nil)
	_, err := Get()
	assert.Error(t, err)

	cfg := New()
	Set(cfg)
	got, err := Get()
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
