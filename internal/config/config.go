// Package config loads and persists the drift client configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the persistent client configuration.
type Config struct {
	// ServerURL is the content server base URL.
	ServerURL string `json:"server_url"`

	// Feed pagination
	PageSize   int      `json:"page_size"`
	Categories []string `json:"categories,omitempty"`

	// Engagement tuning
	Engagement EngagementConfig `json:"engagement"`

	// Gesture tuning
	Gesture GestureConfig `json:"gesture"`
}

// EngagementConfig holds engagement-tracking settings.
type EngagementConfig struct {
	// SignificanceSeconds is the minimum accumulated view time before a
	// duration report is emitted.
	SignificanceSeconds int `json:"significance_seconds"`
	// SampleIntervalMs throttles velocity computation.
	SampleIntervalMs int `json:"sample_interval_ms"`
}

// GestureConfig holds pull-to-refresh gesture settings.
type GestureConfig struct {
	// NearTopBand is how close to the top (rows) the gesture is armed.
	NearTopBand int `json:"near_top_band"`
	// ThresholdRows is the upward distance that triggers a refresh.
	ThresholdRows int `json:"threshold_rows"`
	// KeepCount is how many items survive a gesture refresh.
	KeepCount int `json:"keep_count"`
	// LookaheadRows extends the viewport for the load-more sentinel.
	LookaheadRows int `json:"lookahead_rows"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerURL: "http://localhost:8970",
		PageSize:  20,
		Engagement: EngagementConfig{
			SignificanceSeconds: 2,
			SampleIntervalMs:    100,
		},
		Gesture: GestureConfig{
			NearTopBand:   6,
			ThresholdRows: 18,
			KeepCount:     15,
			LookaheadRows: 12,
		},
	}
}

func configPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".drift", "config.json"), nil
}

// Load reads the config file, falling back to defaults when it is absent
// or unreadable. Missing fields are backfilled with defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := configPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, nil // first run
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), err
	}
	cfg.fillDefaults()
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.ServerURL == "" {
		c.ServerURL = def.ServerURL
	}
	if c.PageSize <= 0 {
		c.PageSize = def.PageSize
	}
	if c.Engagement.SignificanceSeconds <= 0 {
		c.Engagement.SignificanceSeconds = def.Engagement.SignificanceSeconds
	}
	if c.Engagement.SampleIntervalMs <= 0 {
		c.Engagement.SampleIntervalMs = def.Engagement.SampleIntervalMs
	}
	if c.Gesture.NearTopBand <= 0 {
		c.Gesture.NearTopBand = def.Gesture.NearTopBand
	}
	if c.Gesture.ThresholdRows <= 0 {
		c.Gesture.ThresholdRows = def.Gesture.ThresholdRows
	}
	if c.Gesture.KeepCount < 0 {
		c.Gesture.KeepCount = def.Gesture.KeepCount
	}
	if c.Gesture.LookaheadRows <= 0 {
		c.Gesture.LookaheadRows = def.Gesture.LookaheadRows
	}
}
