// Package config loads the monitor configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the tunable surface of the monitor. Zero values in the file
// keep the defaults, except MinTradeableDiff which is set explicitly.
type Config struct {
	// PlayerName is the monitored player, matched case-insensitively.
	PlayerName string `yaml:"player_name"`

	// SensorEndpoint is the WebSocket URL of the HUD sensor process.
	SensorEndpoint string `yaml:"sensor_endpoint"`

	// PollIntervalMs is the sampling cadence.
	PollIntervalMs int `yaml:"poll_interval_ms"`

	// TradeWindowMs is the time budget for a trade after a death.
	TradeWindowMs int `yaml:"trade_window_ms"`

	// MinTradeableDiff is the lowest differential-at-death still judged
	// for overheat. Deaths below it are treated as non-discretionary.
	MinTradeableDiff int `yaml:"min_tradeable_diff"`

	// ControlAddr is the listen address of the HTTP control API.
	ControlAddr string `yaml:"control_addr"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		PollIntervalMs:   250,
		TradeWindowMs:    3000,
		MinTradeableDiff: -1,
		ControlAddr:      ":8632",
	}
}

// Load reads YAML from path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate performs basic configuration validation.
func (c *Config) Validate() error {
	if c.PlayerName == "" {
		return fmt.Errorf("player_name cannot be empty")
	}
	if c.PollIntervalMs <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive, got %d", c.PollIntervalMs)
	}
	if c.TradeWindowMs <= 0 {
		return fmt.Errorf("trade_window_ms must be positive, got %d", c.TradeWindowMs)
	}
	if c.ControlAddr == "" {
		return fmt.Errorf("control_addr cannot be empty")
	}
	return nil
}

// PollInterval returns the sampling cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// TradeWindow returns the trade window as a duration.
func (c *Config) TradeWindow() time.Duration {
	return time.Duration(c.TradeWindowMs) * time.Millisecond
}
