// Package config handles configuration file parsing and hot-reloading.
// The config file is the only persisted state: an ordered connection
// list, key-binding overrides, and a few policies. Malformed entries
// fail fast here, before the TUI starts.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Connection identifies one configured backend target. Immutable once
// loaded.
type Connection struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // mysql, postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Path     string `yaml:"path"` // sqlite file path, may be a glob
	ReadOnly bool   `yaml:"read_only"`
}

// Label is the human-readable name shown in the connection list.
func (c Connection) Label() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Kind == "sqlite" {
		return filepath.Base(c.Path)
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	if c.Database != "" {
		return fmt.Sprintf("%s/%s", host, c.Database)
	}
	return host
}

// RowCountPolicy decides what happens when a table is opened and its
// total row count is wanted: "exact" runs COUNT(*) with the active
// filter, "off" never counts and jump-to-end stays within the buffer.
type RowCountPolicy string

const (
	RowCountExact RowCountPolicy = "exact"
	RowCountOff   RowCountPolicy = "off"
)

// SSHConfig configures the optional SSH serving mode.
type SSHConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Listen         string   `yaml:"listen"`
	HostKeyPath    string   `yaml:"host_key_path"`
	AuthorizedKeys []string `yaml:"authorized_keys"`
	AllowKeyless   bool     `yaml:"allow_keyless"`
}

// Config represents the application configuration.
type Config struct {
	Connections []Connection        `yaml:"connections"`
	Keys        map[string][]string `yaml:"keys"`
	RowCount    RowCountPolicy      `yaml:"row_count"`
	SSH         SSHConfig           `yaml:"ssh"`

	// Internal: path to the config file and its last modified time.
	path    string
	modTime time.Time

	mu sync.RWMutex
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Connections: []Connection{},
		Keys:        map[string][]string{},
		RowCount:    RowCountExact,
		SSH: SSHConfig{
			Enabled:     false,
			Listen:      ":2222",
			HostKeyPath: ".lazydb/host_key",
		},
	}
}

// Load reads, parses and validates a configuration file.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.path = absPath
	if info, err := os.Stat(absPath); err == nil {
		cfg.modTime = info.ModTime()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.RowCount {
	case "", RowCountExact, RowCountOff:
	default:
		return fmt.Errorf("invalid row_count policy %q (want exact or off)", c.RowCount)
	}
	if c.RowCount == "" {
		c.RowCount = RowCountExact
	}

	for i, conn := range c.Connections {
		switch conn.Kind {
		case "mysql", "postgres":
			if conn.Host == "" {
				return fmt.Errorf("connection %q: host is required for %s", conn.Label(), conn.Kind)
			}
		case "sqlite":
			if conn.Path == "" {
				return fmt.Errorf("connection %q: path is required for sqlite", conn.Label())
			}
		case "":
			return fmt.Errorf("connection #%d: kind is required", i+1)
		default:
			return fmt.Errorf("connection %q: unknown kind %q", conn.Label(), conn.Kind)
		}
	}
	return nil
}

// Path returns the path to the config file.
func (c *Config) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// Reload reloads the configuration from disk. On parse or validation
// failure the current configuration stays in effect.
func (c *Config) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	newCfg := DefaultConfig()
	if err := yaml.Unmarshal(data, newCfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := newCfg.validate(); err != nil {
		return err
	}

	c.Connections = newCfg.Connections
	c.Keys = newCfg.Keys
	c.RowCount = newCfg.RowCount
	c.SSH = newCfg.SSH

	if info, err := os.Stat(c.path); err == nil {
		c.modTime = info.ModTime()
	}
	return nil
}

// HasChanged checks if the config file has been modified on disk.
func (c *Config) HasChanged() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, err := os.Stat(c.path)
	if err != nil {
		return false
	}
	return info.ModTime().After(c.modTime)
}

// ConnectionList returns the configured connections with sqlite globs
// expanded, in configuration order.
func (c *Config) ConnectionList() []Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandConnections(c.Connections)
}

// RowCountPolicy returns the active row-count policy. Reload runs on
// the watcher goroutine, so readers go through the lock.
func (c *Config) RowCountPolicy() RowCountPolicy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.RowCount
}

// KeyOverrides returns the configured key-binding overrides. Reload
// swaps the whole map, so the returned reference is a stable snapshot.
func (c *Config) KeyOverrides() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Keys
}

// SSHSettings returns a copy of the SSH section.
func (c *Config) SSHSettings() SSHConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSH
}
