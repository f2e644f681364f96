// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

// Package collectors contains the passive, config-gated observers: a
// runtime vitals sampler and an error/panic reporter. Collectors never
// enqueue events themselves; they hand them to the tracker through an
// emit callback and are torn down when the tracker is destroyed.
package collectors

import (
	"runtime"
	"sync"
	"time"

	"github.com/vantagehq/vantage-go/internal/models"
)

// Vital metric names.
const (
	VitalHeapAlloc  = "heap_alloc_bytes"
	VitalGoroutines = "goroutines"
	VitalGCPause    = "gc_pause_ms"
)

// Ratings, mirroring the classification the collection endpoint expects.
const (
	RatingGood             = "good"
	RatingNeedsImprovement = "needs-improvement"
	RatingPoor             = "poor"
)

// RuntimeVitals periodically samples the Go runtime and emits one vital
// event per metric, the host-native analogue of a performance observer.
type RuntimeVitals struct {
	emit     func(models.Event)
	interval time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool

	lastPauseTotal uint64
	lastNumGC      uint32
}

// NewRuntimeVitals creates a sampler. The emit callback receives events
// with Type, Name, Value and Rating set; the tracker stamps the rest.
func NewRuntimeVitals(interval time.Duration, emit func(models.Event)) *RuntimeVitals {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RuntimeVitals{emit: emit, interval: interval}
}

// Start launches the sampling loop. Idempotent.
func (v *RuntimeVitals) Start() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.running {
		return
	}
	v.running = true
	v.stopCh = make(chan struct{})
	v.doneCh = make(chan struct{})

	go v.run(v.stopCh, v.doneCh)
}

// Stop tears the sampling loop down and waits for it to exit. Idempotent.
func (v *RuntimeVitals) Stop() {
	v.mu.Lock()
	if !v.running {
		v.mu.Unlock()
		return
	}
	v.running = false
	close(v.stopCh)
	done := v.doneCh
	v.mu.Unlock()

	<-done
}

func (v *RuntimeVitals) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			v.Sample()
		}
	}
}

// Sample reads the runtime counters once and emits one event per metric.
// Exported so tests (and impatient callers) can sample synchronously.
func (v *RuntimeVitals) Sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	heap := float64(ms.HeapAlloc)
	v.emit(models.Event{
		Type:   models.TypeVital,
		Name:   VitalHeapAlloc,
		Value:  heap,
		Rating: rateHeap(heap),
	})

	goroutines := float64(runtime.NumGoroutine())
	v.emit(models.Event{
		Type:   models.TypeVital,
		Name:   VitalGoroutines,
		Value:  goroutines,
		Rating: rateGoroutines(goroutines),
	})

	v.mu.Lock()
	pauseDelta := ms.PauseTotalNs - v.lastPauseTotal
	gcDelta := ms.NumGC - v.lastNumGC
	v.lastPauseTotal = ms.PauseTotalNs
	v.lastNumGC = ms.NumGC
	v.mu.Unlock()

	if gcDelta > 0 {
		pauseMs := float64(pauseDelta) / float64(gcDelta) / 1e6
		v.emit(models.Event{
			Type:   models.TypeVital,
			Name:   VitalGCPause,
			Value:  pauseMs,
			Rating: rateGCPause(pauseMs),
		})
	}
}

func rateHeap(bytes float64) string {
	switch {
	case bytes < 256<<20:
		return RatingGood
	case bytes < 1<<30:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}

func rateGoroutines(n float64) string {
	switch {
	case n < 500:
		return RatingGood
	case n < 5000:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}

func rateGCPause(ms float64) string {
	switch {
	case ms < 1:
		return RatingGood
	case ms < 10:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}
