package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where commands look for configuration when --config is not set.
const DefaultPath = "deckhand.yml"

// DeckhandConfig represents the top-level deckhand.yml configuration
type DeckhandConfig struct {
	Version    string         `yaml:"version"`
	Drive      DriveConfig    `yaml:"drive"`
	Retry      *RetryConfig   `yaml:"retry,omitempty"`
	RateLimits *RateLimits    `yaml:"rate_limits,omitempty"`
	Batch      *BatchConfig   `yaml:"batch,omitempty"`
	History    *HistoryConfig `yaml:"history,omitempty"`
}

// DriveConfig locates the shared folder and the service account key
type DriveConfig struct {
	Root        string `yaml:"root"`        // Folder URL or raw ID
	Credentials string `yaml:"credentials"` // Path to service account JSON
}

// RetryConfig bounds backoff around every API call
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts,omitempty"`
	InitialDelay time.Duration `yaml:"initial_delay,omitempty"`
	MaxDelay     time.Duration `yaml:"max_delay,omitempty"`
	Multiplier   float64       `yaml:"multiplier,omitempty"`
}

// RateLimits holds one leaky bucket per API
type RateLimits struct {
	Drive  *Rate `yaml:"drive,omitempty"`
	Sheets *Rate `yaml:"sheets,omitempty"`
	Slides *Rate `yaml:"slides,omitempty"`
}

// Rate is calls per minute. Zero means unlimited.
type Rate struct {
	ReadsPerMinute  int `yaml:"reads_per_minute"`
	WritesPerMinute int `yaml:"writes_per_minute"`
}

// BatchConfig controls entity fan-out
type BatchConfig struct {
	Concurrency int `yaml:"concurrency,omitempty"` // Default: 1 (sequential)
}

// HistoryConfig enables the Redis run history. Empty redis_url disables it.
type HistoryConfig struct {
	RedisURL string `yaml:"redis_url,omitempty"`
	Instance string `yaml:"instance,omitempty"`
}

// Enabled reports whether run history should be recorded.
func (h *HistoryConfig) Enabled() bool {
	return h != nil && h.RedisURL != ""
}

// Default returns a validated configuration with every default applied.
func Default() *DeckhandConfig {
	cfg := &DeckhandConfig{Version: "1.0"}
	cfg.applyDefaults()
	return cfg
}

func (c *DeckhandConfig) applyDefaults() {
	if c.Retry == nil {
		c.Retry = &RetryConfig{}
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 5
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = 5 * time.Second
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = 60 * time.Second
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = 2
	}

	if c.RateLimits == nil {
		c.RateLimits = &RateLimits{}
	}
	if c.RateLimits.Drive == nil {
		c.RateLimits.Drive = &Rate{ReadsPerMinute: 600, WritesPerMinute: 600}
	}
	if c.RateLimits.Sheets == nil {
		c.RateLimits.Sheets = &Rate{ReadsPerMinute: 60, WritesPerMinute: 60}
	}
	if c.RateLimits.Slides == nil {
		c.RateLimits.Slides = &Rate{ReadsPerMinute: 60, WritesPerMinute: 60}
	}

	if c.Batch == nil {
		c.Batch = &BatchConfig{}
	}
	if c.Batch.Concurrency == 0 {
		c.Batch.Concurrency = 1
	}

	if c.History == nil {
		c.History = &HistoryConfig{}
	}
	if c.History.Instance == "" {
		c.History.Instance = "default"
	}
}

// Validate applies defaults and performs strict validation on the configuration
func (c *DeckhandConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	c.applyDefaults()

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry delays must not be negative")
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay (%s) must be >= retry.initial_delay (%s)", c.Retry.MaxDelay, c.Retry.InitialDelay)
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be >= 1, got %g", c.Retry.Multiplier)
	}

	for name, r := range map[string]*Rate{
		"drive":  c.RateLimits.Drive,
		"sheets": c.RateLimits.Sheets,
		"slides": c.RateLimits.Slides,
	} {
		if r.ReadsPerMinute < 0 || r.WritesPerMinute < 0 {
			return fmt.Errorf("rate_limits.%s must not be negative (0 = unlimited)", name)
		}
	}

	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be >= 1, got %d", c.Batch.Concurrency)
	}

	return nil
}

// RequireDrive checks the fields needed to talk to Google Drive
func (c *DeckhandConfig) RequireDrive() error {
	if c.Drive.Root == "" {
		return fmt.Errorf("drive.root is required (folder URL or ID)")
	}
	if c.Drive.Credentials == "" {
		return fmt.Errorf("drive.credentials is required (service account JSON path)")
	}
	if _, err := os.Stat(c.Drive.Credentials); err != nil {
		return fmt.Errorf("credentials file not readable: %w", err)
	}
	return nil
}

// Load reads and validates deckhand.yml from the specified path
func Load(path string) (*DeckhandConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config DeckhandConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads path if it exists, otherwise returns Default().
// A missing file is only tolerated when path is the default location.
func LoadOrDefault(path string) (*DeckhandConfig, error) {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && path == DefaultPath {
		return Default(), nil
	}
	return Load(path)
}
