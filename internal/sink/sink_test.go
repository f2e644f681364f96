// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package sink

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vantagehq/vantage-go/internal/metrics"
	"github.com/vantagehq/vantage-go/internal/models"
)

func newTestSink(t *testing.T) (*Sink, *httptest.Server) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.MaxBatchEvents = 5
	s := New(cfg)
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return s, srv
}

func testPayload(events ...models.Event) *models.Payload {
	return &models.Payload{
		ProjectID: "test-project",
		SessionID: "sess-1",
		DeviceInfo: models.DeviceInfo{
			UserAgent: "vantage-go/1.0",
			OS:        "linux",
			Arch:      "amd64",
		},
		Events:    events,
		Timestamp: time.Now().UnixMilli(),
	}
}

func testEvent(typ string) models.Event {
	return models.Event{
		Type:      typ,
		Timestamp: time.Now().UnixMilli(),
		SessionID: "sess-1",
	}
}

func postCollect(t *testing.T, url string, p *models.Payload) *http.Response {
	t.Helper()

	body, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url+"/api/collect", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCollectAcceptsBatch(t *testing.T) {
	_, srv := newTestSink(t)

	resp := postCollect(t, srv.URL, testPayload(testEvent("pageview"), testEvent("click")))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out models.CollectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.Success || out.Processed != 2 {
		t.Errorf("response = %+v", out)
	}
}

func TestCollectValidation(t *testing.T) {
	_, srv := newTestSink(t)

	cases := []struct {
		name   string
		mutate func(*models.Payload)
		status int
	}{
		{"missing project", func(p *models.Payload) { p.ProjectID = "" }, http.StatusBadRequest},
		{"missing session", func(p *models.Payload) { p.SessionID = "" }, http.StatusBadRequest},
		{"empty events", func(p *models.Payload) { p.Events = nil }, http.StatusBadRequest},
		{"missing device info", func(p *models.Payload) { p.DeviceInfo = models.DeviceInfo{} }, http.StatusBadRequest},
		{"missing timestamp", func(p *models.Payload) { p.Timestamp = 0 }, http.StatusBadRequest},
		{
			"oversized batch",
			func(p *models.Payload) {
				p.Events = make([]models.Event, 6)
				for i := range p.Events {
					p.Events[i] = testEvent("click")
				}
			},
			http.StatusRequestEntityTooLarge,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testPayload(testEvent("click"))
			tc.mutate(p)
			resp := postCollect(t, srv.URL, p)
			if resp.StatusCode != tc.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			var out models.CollectError
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if out.Success || out.Error == "" {
				t.Errorf("error body = %+v", out)
			}
		})
	}
}

func TestOversizedBatchCountsRejectedEvents(t *testing.T) {
	_, srv := newTestSink(t)

	rejected := metrics.SinkEventsRejected.WithLabelValues("too_many")
	before := testutil.ToFloat64(rejected)

	events := make([]models.Event, 6)
	for i := range events {
		events[i] = testEvent("click")
	}
	resp := postCollect(t, srv.URL, testPayload(events...))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if got := testutil.ToFloat64(rejected) - before; got != 6 {
		t.Errorf("rejected delta = %v, want 6", got)
	}
}

func TestCollectMalformedBody(t *testing.T) {
	_, srv := newTestSink(t)

	resp, err := http.Post(srv.URL+"/api/collect", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestCollectFiltersStaleEvents(t *testing.T) {
	_, srv := newTestSink(t)

	fresh := testEvent("click")
	stale := testEvent("click")
	stale.Timestamp = time.Now().Add(-30 * 24 * time.Hour).UnixMilli()

	resp := postCollect(t, srv.URL, testPayload(fresh, stale))
	var out models.CollectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Processed != 1 {
		t.Errorf("processed = %d, want 1 (stale event filtered)", out.Processed)
	}
}

func TestEventsEndpointReturnsRetainedTail(t *testing.T) {
	_, srv := newTestSink(t)

	postCollect(t, srv.URL, testPayload(testEvent("pageview"), testEvent("click")))

	resp, err := http.Get(srv.URL + "/api/events")
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	defer resp.Body.Close()

	var out []receivedEvent
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("retained = %d, want 2", len(out))
	}
	if out[0].Event.Type != "pageview" || out[1].Event.Type != "click" {
		t.Errorf("order wrong: %q %q", out[0].Event.Type, out[1].Event.Type)
	}
	if out[0].ProjectID != "test-project" {
		t.Errorf("projectId = %q", out[0].ProjectID)
	}
}

func TestRetainBufferIsBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetainEvents = 3
	s := New(cfg)

	for i := 0; i < 10; i++ {
		s.retain(receivedEvent{Event: testEvent("click")})
	}

	s.mu.Lock()
	n := len(s.recent)
	s.mu.Unlock()
	if n != 3 {
		t.Errorf("retained = %d, want 3", n)
	}
}

func TestHealthz(t *testing.T) {
	_, srv := newTestSink(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestLoadConfigLayers(t *testing.T) {
	t.Setenv("VANTAGE_SINK_LISTEN", ":9099")
	t.Setenv("VANTAGE_SINK_MAX_BATCH_EVENTS", "25")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Listen != ":9099" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.MaxBatchEvents != 25 {
		t.Errorf("MaxBatchEvents = %d", cfg.MaxBatchEvents)
	}
	if cfg.RequestsPerMinute != 600 {
		t.Errorf("RequestsPerMinute = %d (default lost)", cfg.RequestsPerMinute)
	}
}
