package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML configuration file schema. Flags given on the
// command line override file values.
type FileConfig struct {
	// Server is the peer address as host:port.
	Server string `yaml:"server"`

	// Discover is an mDNS instance name to resolve instead of Server.
	Discover string `yaml:"discover"`

	// Name is the client name and PSK identity.
	Name string `yaml:"name"`

	// PSK is the pre-shared key as a hex string.
	PSK string `yaml:"psk"`

	// Passphrase derives the key via PBKDF2 when PSK is not set.
	Passphrase string `yaml:"passphrase"`

	// KeepaliveInterval is the ping interval.
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`

	// SessionLog is the path of the CBOR session log file.
	SessionLog string `yaml:"session_log"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Reconnect enables automatic redial with backoff.
	Reconnect bool `yaml:"reconnect"`
}

// loadFileConfig reads and parses a YAML configuration file.
func loadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// merge overlays file values onto unset flag values.
func (c *clientConfig) merge(file *FileConfig) {
	if c.Server == "" {
		c.Server = file.Server
	}
	if c.Discover == "" {
		c.Discover = file.Discover
	}
	if c.Name == defaultClientName && file.Name != "" {
		c.Name = file.Name
	}
	if c.PSK == "" {
		c.PSK = file.PSK
	}
	if c.Passphrase == "" {
		c.Passphrase = file.Passphrase
	}
	if c.KeepaliveInterval == 0 {
		c.KeepaliveInterval = file.KeepaliveInterval
	}
	if c.SessionLog == "" {
		c.SessionLog = file.SessionLog
	}
	if c.LogLevel == defaultLogLevel && file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	if !c.Reconnect {
		c.Reconnect = file.Reconnect
	}
}
