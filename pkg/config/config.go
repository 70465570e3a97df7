// Package config loads and validates webpilot run configuration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the configuration for a navigation run
type Config struct {
	Browser    BrowserConfig    `yaml:"browser" json:"browser"`
	Wait       WaitConfig       `yaml:"wait" json:"wait"`
	Navigation NavigationConfig `yaml:"navigation" json:"navigation"`
	Planner    PlannerConfig    `yaml:"planner" json:"planner"`
	LLM        LLMConfig        `yaml:"llm" json:"llm"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`

	// ConfigFilePath is the file the configuration was read from, if any
	ConfigFilePath string `yaml:"-" json:"-"`
}

// BrowserConfig controls the browser session
type BrowserConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"` // Default per-operation timeout
}

// WaitConfig controls the disappearance poll loop
type WaitConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval" json:"poll_interval"`
	DefaultTimeout time.Duration `yaml:"default_timeout" json:"default_timeout"`
}

// NavigationConfig restricts where navigate_to_url may go
type NavigationConfig struct {
	// AllowedURLs holds glob patterns; empty allows every URL
	AllowedURLs []string `yaml:"allowed_urls" json:"allowed_urls"`
}

// PlannerConfig bounds the orchestration loop
type PlannerConfig struct {
	MaxSteps          int `yaml:"max_steps" json:"max_steps"`
	ObservationTokens int `yaml:"observation_tokens" json:"observation_tokens"` // 0 disables truncation
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Dir        string `yaml:"dir" json:"dir"`
	Console    bool   `yaml:"console" json:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}

	if c.Browser.Timeout < 0 {
		return fmt.Errorf("browser timeout cannot be negative")
	}

	if c.Wait.PollInterval <= 0 {
		return fmt.Errorf("wait poll_interval must be positive")
	}

	if c.Wait.DefaultTimeout <= 0 {
		return fmt.Errorf("wait default_timeout must be positive")
	}

	if c.Planner.MaxSteps <= 0 {
		return fmt.Errorf("planner max_steps must be positive")
	}

	if c.Planner.ObservationTokens < 0 {
		return fmt.Errorf("planner observation_tokens cannot be negative")
	}

	for _, pattern := range c.Navigation.AllowedURLs {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("navigation allowed_urls cannot contain empty patterns")
		}
	}

	// Set default level if not specified
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level)
	}

	return nil
}

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 800,
			Timeout:        30 * time.Second,
		},
		Wait: WaitConfig{
			PollInterval:   500 * time.Millisecond,
			DefaultTimeout: 30 * time.Second,
		},
		Planner: PlannerConfig{
			MaxSteps:          25,
			ObservationTokens: 4000,
		},
		LLM: LLMConfig{
			Model: "gpt-4o",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}
