package config

import (
	"testing"
	"time"
)

func TestValidate_DefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got error: %v", err)
	}
}

func TestValidate_RedisDisabled_IgnoresRedisFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Redis.Enabled = false
	cfg.Redis.Address = ""
	cfg.Redis.PoolSize = 0
	cfg.Redis.BlockCacheTTL = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when redis disabled, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"server address empty", func(c *Config) { c.Server.Address = "" }},
		{"server read timeout zero", func(c *Config) { c.Server.ReadTimeout = 0 }},
		{"gateway ping interval zero", func(c *Config) { c.Gateway.PingInterval = 0 }},
		{"matchmaking cross tier wait non-positive", func(c *Config) { c.Matchmaking.CrossTierWaitMs = 0 }},
		{"matchmaking starvation offset negative", func(c *Config) { c.Matchmaking.MaxStarvationOffset = -1 }},
		{"monitoring prometheus port zero when enabled", func(c *Config) {
			c.Monitoring.PrometheusEnabled = true
			c.Monitoring.PrometheusPort = 0
		}},
		{"logging level empty", func(c *Config) { c.Logging.Level = "" }},
		{"auth jwt secret empty", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"redis enabled without address", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Address = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Address != ":8080" {
		t.Errorf("unexpected server address: %s", cfg.Server.Address)
	}
	if cfg.Gateway.Address != ":8081" {
		t.Errorf("unexpected gateway address: %s", cfg.Gateway.Address)
	}
	if cfg.Gateway.PingInterval != 30*time.Second {
		t.Errorf("unexpected ping interval: %s", cfg.Gateway.PingInterval)
	}
	if cfg.Matchmaking.CrossTierWaitMs != 10_000 {
		t.Errorf("unexpected cross tier wait: %d", cfg.Matchmaking.CrossTierWaitMs)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("expected default address, got %s", cfg.Server.Address)
	}
}
