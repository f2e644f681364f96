// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package sink

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vantagehq/vantage-go/internal/logging"
	"github.com/vantagehq/vantage-go/internal/metrics"
	"github.com/vantagehq/vantage-go/internal/models"
	"github.com/vantagehq/vantage-go/internal/sanitize"
)

// maxBodyBytes bounds the request body before decoding.
const maxBodyBytes = 1 << 20

// receivedEvent is what the sink retains and logs per event.
type receivedEvent struct {
	ProjectID  string       `json:"projectId"`
	UserID     string       `json:"userId,omitempty"`
	ReceivedAt int64        `json:"receivedAt"`
	Event      models.Event `json:"event"`
}

// Sink serves the collection API.
type Sink struct {
	cfg Config

	mu     sync.Mutex
	recent []receivedEvent
}

// New constructs a sink with the given config.
func New(cfg Config) *Sink {
	return &Sink{cfg: cfg}
}

// Routes assembles the HTTP handler.
func (s *Sink) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.With(httprate.LimitByIP(s.cfg.RequestsPerMinute, time.Minute)).
			Post("/collect", s.handleCollect)
		r.Get("/events", s.handleEvents)
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// handleCollect is the batch intake endpoint the client posts to.
func (s *Sink) handleCollect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var p models.Payload
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&p); err != nil {
		metrics.SinkRequests.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "malformed payload: "+err.Error())
		return
	}

	if msg := validatePayload(&p); msg != "" {
		metrics.SinkRequests.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if len(p.Events) > s.cfg.MaxBatchEvents {
		metrics.SinkRequests.WithLabelValues("too_large").Inc()
		metrics.SinkEventsRejected.WithLabelValues("too_many").Add(float64(len(p.Events)))
		writeError(w, http.StatusRequestEntityTooLarge, "too many events in batch")
		return
	}

	processed := s.ingest(&p)

	metrics.SinkRequests.WithLabelValues("ok").Inc()
	metrics.SinkEventsProcessed.Add(float64(processed))

	writeJSON(w, http.StatusOK, models.CollectResponse{
		Success:        true,
		Processed:      processed,
		ProcessingTime: time.Since(start).Milliseconds(),
	})
}

// ingest filters, sanitizes, retains and logs the batch; it returns the
// number of events accepted.
func (s *Sink) ingest(p *models.Payload) int {
	now := time.Now()
	cutoff := now.Add(-s.cfg.MaxEventAge).UnixMilli()
	log := logging.With().Str("component", "sink").Str("project_id", p.ProjectID).Logger()

	processed := 0
	for _, ev := range p.Events {
		if ev.Timestamp < cutoff {
			metrics.SinkEventsRejected.WithLabelValues("stale").Inc()
			continue
		}
		if ev.Type == "" {
			metrics.SinkEventsRejected.WithLabelValues("validation").Inc()
			continue
		}
		ev.Properties = sanitize.Properties(ev.Properties)

		rec := receivedEvent{
			ProjectID:  p.ProjectID,
			UserID:     p.UserID,
			ReceivedAt: now.UnixMilli(),
			Event:      ev,
		}
		s.retain(rec)
		log.Info().
			Str("type", ev.Type).
			Str("session_id", ev.SessionID).
			Int64("timestamp", ev.Timestamp).
			Msg("event received")
		processed++
	}
	return processed
}

func (s *Sink) retain(rec receivedEvent) {
	if s.cfg.RetainEvents == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, rec)
	if over := len(s.recent) - s.cfg.RetainEvents; over > 0 {
		s.recent = s.recent[over:]
	}
}

// handleEvents returns the retained tail, newest last, for inspection
// during development.
func (s *Sink) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]receivedEvent, len(s.recent))
	copy(out, s.recent)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Sink) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validatePayload returns a message describing the first problem, or ""
// when the payload is acceptable.
func validatePayload(p *models.Payload) string {
	switch {
	case p.ProjectID == "":
		return "projectId is required"
	case p.SessionID == "":
		return "sessionId is required"
	case len(p.Events) == 0:
		return "events must not be empty"
	case p.DeviceInfo.UserAgent == "":
		return "deviceInfo is required"
	case p.Timestamp == 0:
		return "timestamp is required"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.CollectError{Success: false, Error: msg})
}
