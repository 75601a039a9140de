package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Expected valid config, got error: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "InvalidLogLevel",
			mutate:  func(c *Config) { c.Logging.Level = "TRACE" },
			wantErr: "Level",
		},
		{
			name:    "InvalidLogFormat",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "Format",
		},
		{
			name:    "InvalidStoreType",
			mutate:  func(c *Config) { c.Store.Type = "tape" },
			wantErr: "Type",
		},
		{
			name:    "ZeroShutdownTimeout",
			mutate:  func(c *Config) { c.Server.ShutdownTimeout = 0 },
			wantErr: "ShutdownTimeout",
		},
		{
			name:    "NegativeQueueSize",
			mutate:  func(c *Config) { c.Adapters.HTTP.QueueSize = -1 },
			wantErr: "QueueSize",
		},
		{
			name:    "NegativeReadTimeout",
			mutate:  func(c *Config) { c.Adapters.HTTP.Timeouts.Read = -time.Second },
			wantErr: "Read",
		},
		{
			name:    "NegativeRate",
			mutate:  func(c *Config) { c.Adapters.HTTP.RateLimit.RequestsPerSecond = -1 },
			wantErr: "RequestsPerSecond",
		},
		{
			name:    "MetricsPortOutOfRange",
			mutate:  func(c *Config) { c.Metrics.Port = 70000 },
			wantErr: "Port",
		},
		{
			name:    "NoAdaptersEnabled",
			mutate:  func(c *Config) { c.Adapters.HTTP.Enabled = false },
			wantErr: "at least one adapter",
		},
		{
			name:    "AddressWithoutPort",
			mutate:  func(c *Config) { c.Adapters.HTTP.Address = "localhost" },
			wantErr: "adapters.http.address",
		},
		{
			name:    "AddressWithBadPort",
			mutate:  func(c *Config) { c.Adapters.HTTP.Address = "localhost:http" },
			wantErr: "invalid port",
		},
		{
			name:    "ZeroWorkers",
			mutate:  func(c *Config) { c.Adapters.HTTP.Workers = 0 },
			wantErr: "workers",
		},
		{
			name: "MetricsPortConflict",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Port = 4221
			},
			wantErr: "conflicts",
		},
		{
			name:    "S3WithoutBucket",
			mutate:  func(c *Config) { c.Store.Type = "s3" },
			wantErr: "bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_LowercaseLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "debug"
	if err := Validate(cfg); err != nil {
		t.Fatalf("Lowercase level should validate: %v", err)
	}
}

func TestValidate_S3WithBucket(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "s3"
	cfg.Store.S3["bucket"] = "files"
	if err := Validate(cfg); err != nil {
		t.Fatalf("S3 with bucket should validate: %v", err)
	}
}
