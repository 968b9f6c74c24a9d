package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server configuration.
type Config struct {
	ListenAddr    string        `yaml:"listen_addr"`    // TCP bind address (e.g. ":10087")
	WSAddr        string        `yaml:"ws_addr"`        // HTTP bind address for the /ws websocket listener (empty = disabled)
	MetricsAddr   string        `yaml:"metrics_addr"`   // HTTP bind address for /metrics (empty = disabled)
	DBPath        string        `yaml:"db_path"`        // SQLite user database path
	OutboxSize    int           `yaml:"outbox_size"`    // per-session outbound queue capacity
	ShutdownGrace time.Duration `yaml:"shutdown_grace"` // how long to wait for handlers on shutdown
}

// DefaultConfig returns a config with sensible defaults. 10087 is the
// historical Chat Boat port.
func DefaultConfig() Config {
	return Config{
		ListenAddr:    ":10087",
		MetricsAddr:   ":10089",
		DBPath:        "chatboat.db",
		OutboxSize:    32,
		ShutdownGrace: 5 * time.Second,
	}
}

// UnmarshalYAML decodes over the receiver's current values, so a partial
// file only overrides what it names. shutdown_grace takes Go duration
// strings like "5s".
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		ListenAddr    string `yaml:"listen_addr"`
		WSAddr        string `yaml:"ws_addr"`
		MetricsAddr   string `yaml:"metrics_addr"`
		DBPath        string `yaml:"db_path"`
		OutboxSize    int    `yaml:"outbox_size"`
		ShutdownGrace string `yaml:"shutdown_grace"`
	}{
		ListenAddr:    c.ListenAddr,
		WSAddr:        c.WSAddr,
		MetricsAddr:   c.MetricsAddr,
		DBPath:        c.DBPath,
		OutboxSize:    c.OutboxSize,
		ShutdownGrace: c.ShutdownGrace.String(),
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	grace, err := time.ParseDuration(raw.ShutdownGrace)
	if err != nil {
		return fmt.Errorf("server: parse shutdown_grace: %w", err)
	}
	c.ListenAddr = raw.ListenAddr
	c.WSAddr = raw.WSAddr
	c.MetricsAddr = raw.MetricsAddr
	c.DBPath = raw.DBPath
	c.OutboxSize = raw.OutboxSize
	c.ShutdownGrace = grace
	return nil
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI flag
	if err != nil {
		return cfg, fmt.Errorf("server: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("server: parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("server: listen_addr must not be empty")
	}
	if c.OutboxSize <= 0 {
		return fmt.Errorf("server: outbox_size must be positive, got %d", c.OutboxSize)
	}
	if c.ShutdownGrace <= 0 {
		return fmt.Errorf("server: shutdown_grace must be positive, got %v", c.ShutdownGrace)
	}
	return nil
}
