// Package config handles sparkplug-edge configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hollowoak/sparkplug-edge/internal/sparkplug"
)

// searchPathsFunc backs DefaultSearchPaths; overridden in tests so a
// developer machine's real config files don't leak into test results.
var searchPathsFunc = defaultSearchPaths

// DefaultSearchPaths returns the config file search order:
// ./config.yaml, ~/.config/sparkplug-edge/config.yaml,
// /config/config.yaml, /etc/sparkplug-edge/config.yaml.
// An explicit path (from the --config flag) bypasses this list; see
// FindConfig.
func DefaultSearchPaths() []string {
	return searchPathsFunc()
}

func defaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "sparkplug-edge", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/sparkplug-edge/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all sparkplug-edge configuration.
type Config struct {
	Listen   ListenConfig   `yaml:"listen"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Node     NodeConfig     `yaml:"node"`
	Brokers  []BrokerConfig `yaml:"brokers"`
	LogLevel string         `yaml:"log_level"`
}

// ListenConfig defines the node's health-check HTTP server.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// MetricsConfig defines the optional Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// NodeConfig defines the Sparkplug edge node's identity and devices.
type NodeConfig struct {
	GroupID           string         `yaml:"group_id"`
	NodeID            string         `yaml:"node_id"`
	PrimaryHost       string         `yaml:"primary_host"` // empty if not tracking a primary host
	PublishIntervalMs int32          `yaml:"publish_interval_ms"`
	EnabledCommands   []string       `yaml:"enabled_commands"` // rebirth, next_server, reboot
	Devices           []DeviceConfig `yaml:"devices"`
}

// DeviceConfig defines a single Sparkplug device owned by the node.
type DeviceConfig struct {
	Name              string `yaml:"name"`
	PublishIntervalMs int32  `yaml:"publish_interval_ms"` // 0 inherits the node's interval
}

// BrokerConfig defines one MQTT broker a node can publish through.
// Multiple entries enable primary-host failover: the node activates
// whichever adapter's primary host reports itself online.
type BrokerConfig struct {
	Name           string `yaml:"name"`
	URL            string `yaml:"url"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	ClientIDPrefix string `yaml:"client_id_prefix"`
	KeepAliveSec   int    `yaml:"keep_alive_sec"`
	MaxRetries     int    `yaml:"max_retries"`
}

// EnabledCommandBits parses NodeConfig.EnabledCommands into the bitset
// sparkplug.NewNode expects. Unknown names are ignored.
func (n NodeConfig) EnabledCommandBits() sparkplug.EnabledCommands {
	var bits sparkplug.EnabledCommands
	for _, name := range n.EnabledCommands {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "rebirth":
			bits |= sparkplug.CommandRebirth
		case "next_server":
			bits |= sparkplug.CommandNextServer
		case "reboot":
			bits |= sparkplug.CommandReboot
		}
	}
	return bits
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates
// the result. After Load returns successfully, all fields are usable
// without additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${MQTT_PASSWORD}) as a
	// convenience for container deployments.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
// Called automatically by Load. After this, callers can read any field
// without checking for empty strings or zero values.
func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8080
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9100
	}
	if c.Node.PublishIntervalMs == 0 {
		c.Node.PublishIntervalMs = 1000
	}
	for i := range c.Node.Devices {
		if c.Node.Devices[i].PublishIntervalMs == 0 {
			c.Node.Devices[i].PublishIntervalMs = c.Node.PublishIntervalMs
		}
	}
	for i := range c.Brokers {
		if c.Brokers[i].KeepAliveSec == 0 {
			c.Brokers[i].KeepAliveSec = 15
		}
		if c.Brokers[i].MaxRetries == 0 {
			c.Brokers[i].MaxRetries = 5
		}
		if c.Brokers[i].ClientIDPrefix == "" {
			c.Brokers[i].ClientIDPrefix = "sparkplug-"
		}
	}
}

// Validate checks that the configuration is internally consistent.
// It runs after applyDefaults, so it can assume defaults are populated.
// Returns an error describing the first problem found, or nil.
func (c *Config) Validate() error {
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range (1-65535)", c.Listen.Port)
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port %d out of range (1-65535)", c.Metrics.Port)
	}
	if c.Node.GroupID == "" {
		return fmt.Errorf("node.group_id must not be empty")
	}
	if c.Node.NodeID == "" {
		return fmt.Errorf("node.node_id must not be empty")
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("at least one entry under brokers is required")
	}
	for i, b := range c.Brokers {
		if b.URL == "" {
			return fmt.Errorf("brokers[%d].url must not be empty", i)
		}
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a default configuration suitable for local development
// against a broker on localhost. All defaults are already applied.
func Default() *Config {
	cfg := &Config{
		Node: NodeConfig{
			GroupID: "EdgeGroup",
			NodeID:  "EdgeNode1",
		},
		Brokers: []BrokerConfig{
			{Name: "local", URL: "tcp://localhost:1883"},
		},
	}
	cfg.applyDefaults()
	return cfg
}
