// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

// Command vantage-sink runs a self-hosted collection endpoint for the
// Vantage client. It accepts batch payloads on /api/collect, exposes the
// retained tail on /api/events and Prometheus metrics on /metrics.
//
// Configuration is layered (highest priority last): built-in defaults,
// an optional YAML file (-config), VANTAGE_SINK_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vantagehq/vantage-go/internal/logging"
	"github.com/vantagehq/vantage-go/internal/sink"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	cfg, err := sink.LoadConfig(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      sink.New(cfg).Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Listen).Msg("Sink listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("Server failed")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Shutdown error")
	}
	logging.Info().Msg("Sink stopped gracefully")
}
