package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	content := `
server: 10.0.0.5:22445
name: kitchen
passphrase: "correct horse"
keepalive_interval: 2s
session_log: /tmp/session.sdlog
log_level: debug
reconnect: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := loadFileConfig(path)
	if err != nil {
		t.Fatalf("loadFileConfig() failed: %v", err)
	}
	if cfg.Server != "10.0.0.5:22445" {
		t.Errorf("Server = %q, want %q", cfg.Server, "10.0.0.5:22445")
	}
	if cfg.Name != "kitchen" {
		t.Errorf("Name = %q, want %q", cfg.Name, "kitchen")
	}
	if cfg.KeepaliveInterval != 2*time.Second {
		t.Errorf("KeepaliveInterval = %v, want 2s", cfg.KeepaliveInterval)
	}
	if !cfg.Reconnect {
		t.Error("Reconnect should be true")
	}
}

func TestLoadFileConfigErrors(t *testing.T) {
	if _, err := loadFileConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := loadFileConfig(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestConfigMerge(t *testing.T) {
	file := &FileConfig{
		Server:            "10.0.0.5:22445",
		Name:              "kitchen",
		KeepaliveInterval: 2 * time.Second,
		LogLevel:          "debug",
		Reconnect:         true,
	}

	t.Run("file fills unset flags", func(t *testing.T) {
		c := clientConfig{Name: defaultClientName, LogLevel: defaultLogLevel}
		c.merge(file)

		if c.Server != file.Server {
			t.Errorf("Server = %q, want %q", c.Server, file.Server)
		}
		if c.Name != "kitchen" {
			t.Errorf("Name = %q, want %q", c.Name, "kitchen")
		}
		if c.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want %q", c.LogLevel, "debug")
		}
		if !c.Reconnect {
			t.Error("Reconnect should be merged from file")
		}
	})

	t.Run("flags win over file", func(t *testing.T) {
		c := clientConfig{
			Server:            "127.0.0.1:1111",
			Name:              "flagname",
			KeepaliveInterval: 7 * time.Second,
			LogLevel:          "warn",
		}
		c.merge(file)

		if c.Server != "127.0.0.1:1111" {
			t.Errorf("Server = %q, flag value should win", c.Server)
		}
		if c.Name != "flagname" {
			t.Errorf("Name = %q, flag value should win", c.Name)
		}
		if c.KeepaliveInterval != 7*time.Second {
			t.Errorf("KeepaliveInterval = %v, flag value should win", c.KeepaliveInterval)
		}
		if c.LogLevel != "warn" {
			t.Errorf("LogLevel = %q, flag value should win", c.LogLevel)
		}
	})
}
