// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

// Package sink is a self-hosted collection endpoint for development and
// on-premise deployments. It accepts the client's batch payloads,
// validates and sanitizes them, and emits them as structured log lines
// for downstream shipping.
package sink

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config controls the sink server.
type Config struct {
	// Listen is the HTTP bind address.
	Listen string `koanf:"listen" validate:"required"`

	// MaxBatchEvents rejects oversized batches with 413.
	MaxBatchEvents int `koanf:"max_batch_events" validate:"gte=1,lte=10000"`

	// MaxEventAge drops events whose timestamp is older than this.
	MaxEventAge time.Duration `koanf:"max_event_age" validate:"gt=0"`

	// RequestsPerMinute is the per-IP rate limit on /api/collect.
	RequestsPerMinute int `koanf:"requests_per_minute" validate:"gte=1"`

	// AllowedOrigins is the CORS allow list. "*" allows any origin.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// RetainEvents caps the in-memory buffer served by /api/events.
	RetainEvents int `koanf:"retain_events" validate:"gte=0"`
}

// DefaultConfig returns the development defaults.
func DefaultConfig() Config {
	return Config{
		Listen:            ":8787",
		MaxBatchEvents:    100,
		MaxEventAge:       7 * 24 * time.Hour,
		RequestsPerMinute: 600,
		AllowedOrigins:    []string{"*"},
		RetainEvents:      1000,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// envPrefix namespaces the sink's environment variables, keeping them
// apart from the client's VANTAGE_ namespace.
const envPrefix = "VANTAGE_SINK_"

// LoadConfig layers defaults, an optional YAML file and VANTAGE_SINK_*
// environment variables, highest priority last.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid sink config: %w", err)
	}
	return cfg, nil
}
