// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package vantage

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the initialization surface accepted by Init.
type Config struct {
	// ProjectID identifies the project at the collection endpoint.
	ProjectID string `koanf:"project_id" validate:"required"`

	// Endpoint is the collection URL.
	Endpoint string `koanf:"endpoint" validate:"required"`

	// Debug enables debug-level logging of internal failures.
	Debug bool `koanf:"debug"`

	// SampleRate is the fraction of instances that track at all. The
	// draw happens once per Init, not per event. The zero value means
	// no instance is sampled in, disabling tracking entirely; start
	// from DefaultConfig, which sets 1.0, to track everything.
	SampleRate float64 `koanf:"sample_rate" validate:"gte=0,lte=1"`

	// RuntimeVitals enables the runtime metrics sampler.
	RuntimeVitals bool `koanf:"runtime_vitals"`

	// ErrorTracking enables the error/panic reporter.
	ErrorTracking bool `koanf:"error_tracking"`

	// OfflineStorage persists the event backlog across restarts.
	OfflineStorage bool `koanf:"offline_storage"`

	// StateDir is where the offline store and state records live.
	StateDir string `koanf:"state_dir"`

	// BatchSize triggers an immediate send when the buffer reaches it.
	BatchSize int `koanf:"batch_size" validate:"gte=1,lte=1000"`

	// FlushInterval is the periodic send cadence.
	FlushInterval time.Duration `koanf:"flush_interval" validate:"gt=0"`

	// SessionTimeout rotates the session after this much inactivity.
	SessionTimeout time.Duration `koanf:"session_timeout" validate:"gt=0"`

	// MaxRetries caps send attempts per entry before it is dropped.
	MaxRetries int `koanf:"max_retries" validate:"gte=0,lte=100"`

	// SendTimeout bounds each network send attempt.
	SendTimeout time.Duration `koanf:"send_timeout" validate:"gt=0"`

	// SendsPerSecond caps the awaited send rate. Zero means unlimited.
	SendsPerSecond float64 `koanf:"sends_per_second" validate:"gte=0"`

	// VitalsInterval is the runtime vitals sampling cadence.
	VitalsInterval time.Duration `koanf:"vitals_interval"`

	// Consent gates initialization. Nil means consent granted.
	Consent func() bool `koanf:"-" json:"-" validate:"-"`

	// HTTPClient optionally overrides the transport's HTTP client.
	HTTPClient *http.Client `koanf:"-" json:"-" validate:"-"`
}

// DefaultConfig returns a config with every optional field at its
// default. ProjectID must still be supplied.
func DefaultConfig() Config {
	return Config{
		Endpoint:       "/api/collect",
		SampleRate:     1.0,
		OfflineStorage: true,
		StateDir:       defaultStateDir(),
		BatchSize:      10,
		FlushInterval:  5 * time.Second,
		SessionTimeout: 30 * time.Minute,
		MaxRetries:     3,
		SendTimeout:    10 * time.Second,
		VitalsInterval: 30 * time.Second,
	}
}

func defaultStateDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "vantage")
}

// withDefaults fills zero-valued optional fields. SampleRate zero is
// meaningful ("track nothing"), so it is only defaulted when negative.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Endpoint == "" {
		c.Endpoint = def.Endpoint
	}
	if c.SampleRate < 0 {
		c.SampleRate = def.SampleRate
	}
	if c.StateDir == "" {
		c.StateDir = def.StateDir
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = def.FlushInterval
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = def.SessionTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = def.SendTimeout
	}
	if c.VitalsInterval <= 0 {
		c.VitalsInterval = def.VitalsInterval
	}
	return c
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config after defaults are applied.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// envPrefix namespaces the environment variables read by LoadConfig.
const envPrefix = "VANTAGE_"

// LoadConfig builds a Config from defaults overridden by VANTAGE_*
// environment variables (VANTAGE_PROJECT_ID, VANTAGE_BATCH_SIZE,
// VANTAGE_OFFLINE_STORAGE, ...), for twelve-factor embedding.
func LoadConfig() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
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

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
