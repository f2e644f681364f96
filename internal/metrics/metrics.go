// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

// Package metrics provides Prometheus instrumentation for the tracker and
// the development sink. The tracker records them unconditionally; whether
// they are exposed is up to the embedding application (the sink serves
// /metrics itself).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracker metrics

	EventsTracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantage_events_tracked_total",
			Help: "Total number of events accepted by the tracker",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantage_events_dropped_total",
			Help: "Total number of events permanently dropped",
		},
		[]string{"reason"}, // "max_retries", "not_ready", "sampled_out"
	)

	BatchesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vantage_batches_sent_total",
			Help: "Total number of batches delivered to the collection endpoint",
		},
	)

	BatchSendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vantage_batch_send_failures_total",
			Help: "Total number of failed batch send attempts",
		},
	)

	SendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vantage_send_duration_seconds",
			Help:    "Duration of batch send attempts in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vantage_queue_depth",
			Help: "Current number of events buffered in memory",
		},
	)

	SessionsRotated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vantage_sessions_rotated_total",
			Help: "Total number of session rotations after inactivity timeout",
		},
	)

	StorageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantage_storage_failures_total",
			Help: "Total number of durable storage operation failures",
		},
		[]string{"operation"}, // "append", "remove", "attempt", "state"
	)

	// Sink metrics

	SinkRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantage_sink_requests_total",
			Help: "Total number of collection requests by status code",
		},
		[]string{"status"},
	)

	SinkEventsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vantage_sink_events_processed_total",
			Help: "Total number of events accepted by the sink",
		},
	)

	SinkEventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantage_sink_events_rejected_total",
			Help: "Total number of events rejected or filtered by the sink",
		},
		[]string{"reason"}, // "stale", "validation", "too_many"
	)
)

// ObserveSend records the outcome and duration of one batch send attempt.
func ObserveSend(start time.Time, err error) {
	SendDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		BatchSendFailures.Inc()
		return
	}
	BatchesSent.Inc()
}
