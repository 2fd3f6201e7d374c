package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
db:
  connection: "mongodb://localhost:27017"
  database: "court_judgements"
gemini:
  api_keys: ["real-key"]
sites:
  rajasthan:
    enabled: true
    url: "https://example.org/search"
    days_back: 7
    categories:
      - { value: "2", name: "Criminal" }
`

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", cfg.Gemini.Endpoint)
	assert.Equal(t, 10, cfg.Loop.MaxAttempts)
	assert.Equal(t, 5, cfg.Sites.ECourts.ChunkDays)
	assert.Equal(t, "captcha_debug", cfg.Artifacts.Dir)

	assert.Equal(t, 45*time.Second, cfg.OutcomeTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval())
}

func TestLoadConfigRequiresDatabase(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
db:
  connection: "mongodb://localhost:27017"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db.database")
}

func TestLoadConfigRejectsPlaceholderKeys(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
db:
  connection: "mongodb://localhost:27017"
  database: "court_judgements"
gemini:
  api_keys: ["YOUR_GEMINI_API_KEY_1"]
sites:
  rajasthan:
    enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placeholder")
}

func TestLoadConfigKeysOptionalWhenNoSiteEnabled(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
db:
  connection: "mongodb://localhost:27017"
  database: "court_judgements"
landmark:
  enabled: true
  url_template: "https://example.org/?judgment_year=%d"
  year_from: 2016
  year_to: 2025
`))
	require.NoError(t, err)
	assert.True(t, cfg.Landmark.Enabled)
	assert.Empty(t, cfg.Gemini.APIKeys)
}
