package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("SMENA_TOKEN", "tok123")

	content := `
telegram:
  bot_token: ${SMENA_TOKEN}
database:
  path: ` + filepath.Join(dir, "data", "smena.db") + `
platform:
  base_url: https://api.example.com
  cache_ttl_seconds: 60
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok123", cfg.Telegram.BotToken)
	assert.Equal(t, "https://api.example.com", cfg.Platform.BaseURL)

	// Defaults fill in.
	assert.Equal(t, "09:00", cfg.Schedule.DefaultStart)
	assert.Equal(t, "18:00", cfg.Schedule.DefaultEnd)
	assert.Equal(t, 10.0, cfg.Platform.RequestsPerSecond)

	// The database directory is created.
	_, err = os.Stat(filepath.Join(dir, "data"))
	assert.NoError(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
