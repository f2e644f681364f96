// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package vantage

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Endpoint != "/api/collect" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("SampleRate = %v", cfg.SampleRate)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %d", cfg.BatchSize)
	}
	if cfg.FlushInterval != 5*time.Second {
		t.Errorf("FlushInterval = %v", cfg.FlushInterval)
	}
	if cfg.SessionTimeout != 30*time.Minute {
		t.Errorf("SessionTimeout = %v", cfg.SessionTimeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d", cfg.MaxRetries)
	}
	if !cfg.OfflineStorage {
		t.Error("OfflineStorage should default on")
	}
	if cfg.StateDir == "" {
		t.Error("StateDir should have a default")
	}
}

func TestWithDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{
		ProjectID:     "p",
		Endpoint:      "https://collect.example.com",
		SampleRate:    0.5,
		BatchSize:     25,
		FlushInterval: time.Minute,
	}.withDefaults()

	if cfg.Endpoint != "https://collect.example.com" {
		t.Errorf("Endpoint overridden: %q", cfg.Endpoint)
	}
	if cfg.SampleRate != 0.5 {
		t.Errorf("SampleRate overridden: %v", cfg.SampleRate)
	}
	if cfg.BatchSize != 25 {
		t.Errorf("BatchSize overridden: %d", cfg.BatchSize)
	}
	// Zero stays zero: it means "track nothing", not "use default".
	if got := (Config{SampleRate: 0}).withDefaults().SampleRate; got != 0 {
		t.Errorf("zero SampleRate defaulted to %v", got)
	}
	// Negative is nonsense and falls back.
	if got := (Config{SampleRate: -1}).withDefaults().SampleRate; got != 1.0 {
		t.Errorf("negative SampleRate became %v", got)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{ProjectID: "p"}.withDefaults()
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing project id", func(c *Config) { c.ProjectID = "" }},
		{"sample rate above one", func(c *Config) { c.SampleRate = 1.5 }},
		{"batch size too large", func(c *Config) { c.BatchSize = 5000 }},
		{"retries out of range", func(c *Config) { c.MaxRetries = 500 }},
		{"negative send rate", func(c *Config) { c.SendsPerSecond = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("VANTAGE_PROJECT_ID", "env-project")
	t.Setenv("VANTAGE_ENDPOINT", "https://collect.example.com/api/collect")
	t.Setenv("VANTAGE_BATCH_SIZE", "42")
	t.Setenv("VANTAGE_FLUSH_INTERVAL", "2s")
	t.Setenv("VANTAGE_OFFLINE_STORAGE", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ProjectID != "env-project" {
		t.Errorf("ProjectID = %q", cfg.ProjectID)
	}
	if cfg.Endpoint != "https://collect.example.com/api/collect" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.BatchSize != 42 {
		t.Errorf("BatchSize = %d", cfg.BatchSize)
	}
	if cfg.FlushInterval != 2*time.Second {
		t.Errorf("FlushInterval = %v", cfg.FlushInterval)
	}
	if cfg.OfflineStorage {
		t.Error("OfflineStorage should be off")
	}
	// Untouched fields keep their defaults.
	if cfg.SessionTimeout != 30*time.Minute {
		t.Errorf("SessionTimeout = %v", cfg.SessionTimeout)
	}
}

func TestLoadConfigRequiresProjectID(t *testing.T) {
	if _, err := LoadConfig(); err == nil {
		t.Error("expected error without VANTAGE_PROJECT_ID")
	}
}
