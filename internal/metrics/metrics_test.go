// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSendSuccess(t *testing.T) {
	before := testutil.ToFloat64(BatchesSent)
	ObserveSend(time.Now(), nil)
	after := testutil.ToFloat64(BatchesSent)

	if after != before+1 {
		t.Errorf("BatchesSent = %v, want %v", after, before+1)
	}
}

func TestObserveSendFailure(t *testing.T) {
	before := testutil.ToFloat64(BatchSendFailures)
	ObserveSend(time.Now(), errors.New("connection refused"))
	after := testutil.ToFloat64(BatchSendFailures)

	if after != before+1 {
		t.Errorf("BatchSendFailures = %v, want %v", after, before+1)
	}
}

func TestCounterVecLabels(t *testing.T) {
	before := testutil.ToFloat64(EventsTracked.WithLabelValues("view"))
	EventsTracked.WithLabelValues("view").Inc()
	after := testutil.ToFloat64(EventsTracked.WithLabelValues("view"))

	if after != before+1 {
		t.Errorf("EventsTracked{type=view} = %v, want %v", after, before+1)
	}
}

func TestQueueDepthGauge(t *testing.T) {
	QueueDepth.Set(7)
	if got := testutil.ToFloat64(QueueDepth); got != 7 {
		t.Errorf("QueueDepth = %v, want 7", got)
	}
	QueueDepth.Set(0)
}
