// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

// Package transport delivers batched payloads to the collection endpoint.
//
// Two send paths exist, chosen by the caller rather than by the transport:
// Send is the awaited path used by periodic and manual flushes, wrapped in
// a circuit breaker so a dead endpoint stops burning retries; SendBeacon
// is the teardown path, a bounded fire-and-forget attempt whose outcome is
// deliberately ignored.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/vantagehq/vantage-go/internal/logging"
	"github.com/vantagehq/vantage-go/internal/metrics"
	"github.com/vantagehq/vantage-go/internal/models"
)

// beaconTimeout bounds the teardown send so Destroy cannot hang the host.
const beaconTimeout = 2 * time.Second

// Config holds transport configuration.
type Config struct {
	// Endpoint is the collection URL.
	Endpoint string

	// Timeout bounds each send attempt.
	Timeout time.Duration

	// Client optionally overrides the HTTP client. Its own Timeout is
	// left alone; per-attempt timeouts come from Config.Timeout.
	Client *http.Client

	// SendsPerSecond caps the awaited send rate. Zero means unlimited.
	SendsPerSecond float64
}

// Transport posts payloads to the collection endpoint.
type Transport struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[*models.CollectResponse]
	limiter  *rate.Limiter
}

// New creates a transport.
func New(cfg Config) *Transport {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.SendsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SendsPerSecond), 1)
	}

	breaker := gobreaker.NewCircuitBreaker[*models.CollectResponse](gobreaker.Settings{
		Name:        "vantage-collect",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Transport{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		client:   client,
		breaker:  breaker,
		limiter:  limiter,
	}
}

// Send posts one payload and waits for the outcome. Any non-2xx response
// is an error so the caller's retry policy applies uniformly.
func (t *Transport) Send(ctx context.Context, p *models.Payload) error {
	start := time.Now()

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			metrics.ObserveSend(start, err)
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	_, err := t.breaker.Execute(func() (*models.CollectResponse, error) {
		return t.post(ctx, p, t.timeout)
	})
	metrics.ObserveSend(start, err)
	if err != nil {
		return err
	}
	return nil
}

// SendBeacon posts one payload on the teardown path. The attempt is
// bounded by a short timeout and its outcome is ignored; the host may be
// exiting and there is no one left to retry for.
func (t *Transport) SendBeacon(p *models.Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
	defer cancel()

	if _, err := t.post(ctx, p, beaconTimeout); err != nil {
		logging.Debug().Err(err).Int("events", len(p.Events)).Msg("beacon send failed")
	}
}

// BreakerState exposes the circuit breaker state for diagnostics.
func (t *Transport) BreakerState() string {
	return t.breaker.State().String()
}

func (t *Transport) post(ctx context.Context, p *models.Payload, timeout time.Duration) (*models.CollectResponse, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post payload: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("collection endpoint returned %d", resp.StatusCode)
	}

	var out models.CollectResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		// A 2xx with an unreadable body still counts as delivered.
		return &models.CollectResponse{Success: true, Processed: len(p.Events)}, nil
	}
	return &out, nil
}
