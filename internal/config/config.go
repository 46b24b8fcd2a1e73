package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"lionchief-bridge/internal/ble"
)

// Config holds all application configuration.
type Config struct {
	MACAddress  string     `yaml:"mac_address"`
	Name        string     `yaml:"name"`
	ServiceUUID string     `yaml:"service_uuid"`
	Listen      string     `yaml:"listen"`
	LogLevel    string     `yaml:"log_level"`
	Link        LinkConfig `yaml:"link"`
}

// LinkConfig holds BLE link tuning.
type LinkConfig struct {
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
	SendAttempts          int `yaml:"send_attempts"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "lionchief-bridge")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values. The MAC address has
// no default; it must come from the config file or a flag.
func Default() *Config {
	return &Config{
		Name:        "Lionel Train",
		ServiceUUID: ble.ServiceUUID,
		Listen:      "127.0.0.1:8776",
		LogLevel:    "info",
		Link: LinkConfig{
			ConnectTimeoutSeconds: 10,
			SendAttempts:          3,
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled with
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.MACAddress == "" {
		return fmt.Errorf("mac_address must not be empty")
	}

	if c.Name == "" {
		return fmt.Errorf("name must not be empty")
	}

	if c.ServiceUUID == "" {
		return fmt.Errorf("service_uuid must not be empty")
	}

	if c.Listen == "" {
		return fmt.Errorf("listen must not be empty")
	}

	if c.Link.ConnectTimeoutSeconds <= 0 {
		return fmt.Errorf("link.connect_timeout_seconds must be > 0")
	}

	if c.Link.SendAttempts <= 0 {
		return fmt.Errorf("link.send_attempts must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ConnectTimeout returns the link connect timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Link.ConnectTimeoutSeconds) * time.Second
}
