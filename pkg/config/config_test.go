package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"

store:
  type: "memory"

adapters:
  http:
    enabled: true
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Adapters.HTTP.Address != "127.0.0.1:4221" {
		t.Errorf("Expected default HTTP address 127.0.0.1:4221, got %q", cfg.Adapters.HTTP.Address)
	}
	if cfg.Adapters.HTTP.Workers != 8 {
		t.Errorf("Expected default 8 workers, got %d", cfg.Adapters.HTTP.Workers)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected store type 'memory', got %q", cfg.Store.Type)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// A non-existent explicit path must not fall back to the user's config.
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Store.Type != "filesystem" {
		t.Errorf("Expected default store type 'filesystem', got %q", cfg.Store.Type)
	}
	if !cfg.Adapters.HTTP.Enabled {
		t.Error("Expected HTTP adapter enabled by default")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
store:
  type: "tape"
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown store type, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[store]
type = "filesystem"

[store.filesystem]
path = "/srv/files"

[adapters.http]
enabled = true
address = "0.0.0.0:8080"
workers = 16

[adapters.http.timeouts]
read = "10s"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Store.Filesystem["path"] != "/srv/files" {
		t.Errorf("Expected filesystem path '/srv/files', got %v", cfg.Store.Filesystem["path"])
	}
	if cfg.Adapters.HTTP.Address != "0.0.0.0:8080" {
		t.Errorf("Expected address '0.0.0.0:8080', got %q", cfg.Adapters.HTTP.Address)
	}
	if cfg.Adapters.HTTP.Workers != 16 {
		t.Errorf("Expected 16 workers, got %d", cfg.Adapters.HTTP.Workers)
	}
	if cfg.Adapters.HTTP.Timeouts.Read != 10*time.Second {
		t.Errorf("Expected read timeout 10s, got %v", cfg.Adapters.HTTP.Timeouts.Read)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Store.Type != "filesystem" {
		t.Errorf("Expected default store type 'filesystem', got %q", cfg.Store.Type)
	}
	if cfg.Store.Filesystem["path"] != DefaultFilesystemPath {
		t.Errorf("Expected default filesystem path %q, got %v", DefaultFilesystemPath, cfg.Store.Filesystem["path"])
	}
	if !cfg.Adapters.HTTP.Enabled {
		t.Error("Expected HTTP adapter enabled by default")
	}
	if cfg.Adapters.HTTP.QueueSize != 64 {
		t.Errorf("Expected default queue size 64, got %d", cfg.Adapters.HTTP.QueueSize)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if dir := GetConfigDir(); dir != filepath.Join("/xdg", "dittohttp") {
		t.Errorf("Expected /xdg/dittohttp, got %q", dir)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")
	if dir := GetConfigDir(); dir != filepath.Join("/home/tester", ".config", "dittohttp") {
		t.Errorf("Expected /home/tester/.config/dittohttp, got %q", dir)
	}
}

func TestConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if ConfigExists() {
		t.Fatal("Expected no config in a fresh directory")
	}
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if !ConfigExists() {
		t.Fatal("Expected config to exist after InitConfig")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DITTOHTTP_LOGGING_LEVEL", "ERROR")
	t.Setenv("DITTOHTTP_ADAPTERS_HTTP_WORKERS", "3")
	t.Setenv("DITTOHTTP_ADAPTERS_HTTP_RATE_LIMIT_REQUESTS_PER_SECOND", "50")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"

adapters:
  http:
    enabled: true
    workers: 8
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Environment variables override the file, including keys it omits.
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Adapters.HTTP.Workers != 3 {
		t.Errorf("Expected 3 workers from env var, got %d", cfg.Adapters.HTTP.Workers)
	}
	if cfg.Adapters.HTTP.RateLimit.RequestsPerSecond != 50 {
		t.Errorf("Expected rate 50 from env var, got %v", cfg.Adapters.HTTP.RateLimit.RequestsPerSecond)
	}
}
