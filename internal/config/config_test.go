package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deckhand.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
drive:
  root: https://drive.google.com/drive/folders/abc123
  credentials: creds.json
retry:
  max_attempts: 3
  initial_delay: 2s
  max_delay: 30s
  multiplier: 1.5
rate_limits:
  slides:
    reads_per_minute: 30
    writes_per_minute: 0
batch:
  concurrency: 4
history:
  redis_url: redis://localhost:6379/0
  instance: prod
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/drive/folders/abc123", config.Drive.Root)
	assert.Equal(t, 3, config.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, config.Retry.InitialDelay)
	assert.Equal(t, 30*time.Second, config.Retry.MaxDelay)
	assert.Equal(t, 1.5, config.Retry.Multiplier)
	assert.Equal(t, 30, config.RateLimits.Slides.ReadsPerMinute)
	assert.Equal(t, 0, config.RateLimits.Slides.WritesPerMinute)
	assert.Equal(t, 4, config.Batch.Concurrency)
	assert.True(t, config.History.Enabled())
	assert.Equal(t, "prod", config.History.Instance)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
drive:
  root: abc123
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, config.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, config.Retry.InitialDelay)
	assert.Equal(t, 60*time.Second, config.Retry.MaxDelay)
	assert.Equal(t, 2.0, config.Retry.Multiplier)
	assert.Equal(t, 60, config.RateLimits.Sheets.ReadsPerMinute)
	assert.Equal(t, 600, config.RateLimits.Drive.WritesPerMinute)
	assert.Equal(t, 1, config.Batch.Concurrency)
	assert.False(t, config.History.Enabled())
	assert.Equal(t, "default", config.History.Instance)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/deckhand.yml")
	assert.Nil(t, config)
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
drive:
  - this is invalid
    yaml syntax
`)
	config, err := Load(path)
	assert.Nil(t, config)
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  DeckhandConfig
		wantErr string
	}{
		{
			name:    "wrong version",
			config:  DeckhandConfig{Version: "2.0"},
			wantErr: "unsupported version",
		},
		{
			name:    "negative concurrency",
			config:  DeckhandConfig{Version: "1.0", Batch: &BatchConfig{Concurrency: -1}},
			wantErr: "batch.concurrency must be >= 1",
		},
		{
			name:    "max below initial delay",
			config:  DeckhandConfig{Version: "1.0", Retry: &RetryConfig{InitialDelay: 10 * time.Second, MaxDelay: time.Second}},
			wantErr: "retry.max_delay",
		},
		{
			name:    "shrinking multiplier",
			config:  DeckhandConfig{Version: "1.0", Retry: &RetryConfig{Multiplier: 0.5}},
			wantErr: "retry.multiplier",
		},
		{
			name:    "negative rate",
			config:  DeckhandConfig{Version: "1.0", RateLimits: &RateLimits{Drive: &Rate{ReadsPerMinute: -1}}},
			wantErr: "rate_limits.drive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRequireDrive(t *testing.T) {
	cfg := Default()
	assert.ErrorContains(t, cfg.RequireDrive(), "drive.root is required")

	cfg.Drive.Root = "abc"
	assert.ErrorContains(t, cfg.RequireDrive(), "drive.credentials is required")

	cfg.Drive.Credentials = filepath.Join(t.TempDir(), "missing.json")
	assert.ErrorContains(t, cfg.RequireDrive(), "credentials file not readable")

	creds := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(creds, []byte("{}"), 0600))
	cfg.Drive.Credentials = creds
	assert.NoError(t, cfg.RequireDrive())
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Batch.Concurrency)

	_, err = LoadOrDefault("elsewhere.yml")
	assert.ErrorContains(t, err, "failed to read config")
}
