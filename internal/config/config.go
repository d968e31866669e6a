// Package config defines the application configuration, loaded from YAML
// with environment variable substitution.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Version   string          `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Poll      PollConfig      `yaml:"poll"`
	Providers ProvidersConfig `yaml:"providers"`
	History   HistoryConfig   `yaml:"history"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	HTTPPort        int           `yaml:"http_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
}

// AuthConfig contains the credential directory settings.
type AuthConfig struct {
	Path         string        `yaml:"path"`
	ScanInterval time.Duration `yaml:"scan_interval"`
}

// PollConfig controls the background fetch cycle.
type PollConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
}

// ProvidersConfig groups provider endpoint overrides.
type ProvidersConfig struct {
	Antigravity AntigravityConfig `yaml:"antigravity"`
	Codex       EndpointConfig    `yaml:"codex"`
	GeminiCLI   EndpointConfig    `yaml:"gemini_cli"`
	Copilot     EndpointConfig    `yaml:"github_copilot"`
}

// AntigravityConfig contains the endpoint fallback list and default
// project id used when sniffing finds none.
type AntigravityConfig struct {
	BaseURLs         []string `yaml:"base_urls"`
	DefaultProjectID string   `yaml:"default_project_id"`
}

// EndpointConfig is a single URL override.
type EndpointConfig struct {
	URL string `yaml:"url"`
}

// HistoryConfig contains the snapshot database settings.
type HistoryConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// TelegramConfig contains exhaustion alert settings.
type TelegramConfig struct {
	Enabled   bool    `yaml:"enabled"`
	BotToken  string  `yaml:"bot_token"`
	ChatID    int64   `yaml:"chat_id"`
	Threshold float64 `yaml:"threshold"`
}

// Validate validates the configuration and fills defaults in place.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Poll.Validate(); err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := c.Telegram.Validate(); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if c.Auth.ScanInterval < 0 {
		return fmt.Errorf("auth: scan_interval must not be negative")
	}
	if c.Auth.ScanInterval == 0 {
		c.Auth.ScanInterval = 5 * time.Minute
	}
	return nil
}

// Validate validates server configuration.
func (s *ServerConfig) Validate() error {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535")
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 30 * time.Second
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	return nil
}

// Validate validates poll configuration.
func (p *PollConfig) Validate() error {
	if p.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	if p.Interval == 0 {
		p.Interval = 5 * time.Minute
	}
	if p.Interval < 10*time.Second {
		p.Interval = 10 * time.Second
	}
	if p.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	if p.Concurrency == 0 {
		p.Concurrency = 4
	}
	return nil
}

// Validate validates history configuration.
func (h *HistoryConfig) Validate() error {
	if !h.Enabled {
		return nil
	}
	if h.Path == "" {
		h.Path = "quotadeck.db"
	}
	if h.Retention < 0 {
		return fmt.Errorf("retention must not be negative")
	}
	if h.Retention == 0 {
		h.Retention = 30 * 24 * time.Hour
	}
	return nil
}

// Validate validates telegram configuration.
func (t *TelegramConfig) Validate() error {
	if !t.Enabled {
		return nil
	}
	if t.BotToken == "" {
		return fmt.Errorf("bot_token is required when telegram is enabled")
	}
	if t.ChatID == 0 {
		return fmt.Errorf("chat_id is required when telegram is enabled")
	}
	if t.Threshold < 0 || t.Threshold > 1 {
		return fmt.Errorf("threshold must be in [0, 1]")
	}
	if t.Threshold == 0 {
		t.Threshold = 0.05
	}
	return nil
}
