// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package vantage

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vantagehq/vantage-go/internal/collectors"
	"github.com/vantagehq/vantage-go/internal/identity"
	"github.com/vantagehq/vantage-go/internal/logging"
	"github.com/vantagehq/vantage-go/internal/metrics"
	"github.com/vantagehq/vantage-go/internal/models"
	"github.com/vantagehq/vantage-go/internal/sanitize"
	"github.com/vantagehq/vantage-go/internal/storage"
	"github.com/vantagehq/vantage-go/internal/throttle"
	"github.com/vantagehq/vantage-go/internal/transport"
)

// Tracker states. Ready is the only state in which tracking calls have
// effect; calls in any other state are silent no-ops.
const (
	stateUninitialized int32 = iota
	stateInitializing
	stateReady
	stateDestroyed
)

// activityPersistWindow throttles LastActivity writes to the offline
// store; rotation decisions tolerate a slightly stale persisted value.
const activityPersistWindow = 10 * time.Second

// queuedEvent pairs a buffered event with its durable entry bookkeeping.
type queuedEvent struct {
	storeID string // "" when the entry could not be persisted
	retries int
	event   models.Event
}

// Tracker collects, batches and ships events. Construct one with New,
// initialize it with Init, and hold the reference for the process
// lifetime. All methods are safe for concurrent use and none of them
// panics; tracking must never crash the host application.
type Tracker struct {
	state atomic.Int32

	// capable is the host capability probe, evaluated once at
	// construction instead of ad hoc environment sniffing.
	capable bool

	// mu guards the fields below.
	mu      sync.Mutex
	cfg     Config
	store   storage.Store
	tr      *transport.Transport
	device  models.DeviceInfo
	session identity.Session
	ident   identity.Identity
	buffer  []queuedEvent

	// flushMu serializes sends so the timer-driven, threshold-driven
	// and manual paths never operate on overlapping snapshots.
	flushMu sync.Mutex
	flushWg sync.WaitGroup

	stopCh   chan struct{}
	loopDone chan struct{}

	vitals   *collectors.RuntimeVitals
	reporter *collectors.ErrorReporter

	persistThrottle *throttle.Limiter

	log zerolog.Logger

	// Injectable for tests.
	now       func() time.Time
	randFloat func() float64
}

// New constructs a tracker in the Uninitialized state.
func New() *Tracker {
	return &Tracker{
		capable:   hostCapable(),
		now:       time.Now,
		randFloat: rand.Float64,
		log:       logging.With().Str("component", "tracker").Logger(),
	}
}

// hostCapable probes the environment once. Setting VANTAGE_DISABLED
// turns every tracker in the process into a no-op, the supported switch
// for build steps and test environments.
func hostCapable() bool {
	switch strings.ToLower(os.Getenv("VANTAGE_DISABLED")) {
	case "1", "true", "yes":
		return false
	}
	return true
}

// Init evaluates the initialization gates and, if all pass, brings the
// tracker to Ready: resolves the session, hydrates the offline backlog,
// starts the configured collectors and emits the implicit initial view
// event. A failed gate is a silent no-op; the tracker stays
// Uninitialized. Init on a tracker that is not Uninitialized is a no-op.
func (t *Tracker) Init(cfg Config) {
	defer t.recovered("init")

	if !t.state.CompareAndSwap(stateUninitialized, stateInitializing) {
		return
	}

	// The three gates run synchronously, once, before any side effect.
	if !t.capable {
		t.abortInit("host not capable")
		return
	}
	if cfg.Consent != nil && !cfg.Consent() {
		t.abortInit("consent denied")
		return
	}
	if t.randFloat() >= cfg.SampleRate {
		t.abortInit("excluded by sampling")
		return
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		t.log.Debug().Err(err).Msg("init aborted")
		t.state.Store(stateUninitialized)
		return
	}

	if cfg.Debug {
		logging.SetLevel(zerolog.DebugLevel)
	}

	t.mu.Lock()
	t.cfg = cfg
	t.store = t.openStore(cfg)
	t.tr = transport.New(transport.Config{
		Endpoint:       cfg.Endpoint,
		Timeout:        cfg.SendTimeout,
		Client:         cfg.HTTPClient,
		SendsPerSecond: cfg.SendsPerSecond,
	})
	t.device = identity.CaptureDevice()
	t.persistThrottle = throttle.New(activityPersistWindow)
	t.resolveSessionLocked()
	t.loadIdentityLocked()
	t.hydrateLocked()
	t.stopCh = make(chan struct{})
	t.loopDone = make(chan struct{})
	t.mu.Unlock()

	t.reporter = nil
	if cfg.RuntimeVitals {
		t.vitals = collectors.NewRuntimeVitals(cfg.VitalsInterval, t.enqueueCollected)
		t.vitals.Start()
	}
	if cfg.ErrorTracking {
		t.reporter = collectors.NewErrorReporter(t.enqueueCollected)
	}

	go t.run(t.stopCh, t.loopDone)

	t.state.Store(stateReady)
	t.log.Debug().Str("session_id", t.SessionID()).Msg("tracker ready")

	// Implicit initial view, the first queued event.
	t.View("", "", nil)
}

func (t *Tracker) abortInit(reason string) {
	t.log.Debug().Str("reason", reason).Msg("init aborted")
	t.state.Store(stateUninitialized)
}

// openStore opens the offline store, degrading to memory-only when
// offline storage is disabled or the directory cannot be opened (for
// example when another instance holds the Badger lock).
func (t *Tracker) openStore(cfg Config) storage.Store {
	if !cfg.OfflineStorage {
		return storage.NewMemoryStore()
	}
	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		t.log.Debug().Err(err).Msg("state dir unavailable, using memory store")
		return storage.NewMemoryStore()
	}
	s, err := storage.Open(filepath.Join(cfg.StateDir, "events"))
	if err != nil {
		t.log.Debug().Err(err).Msg("offline store unavailable, using memory store")
		metrics.StorageFailures.WithLabelValues("open").Inc()
		return storage.NewMemoryStore()
	}
	return s
}

// resolveSessionLocked resumes a persisted session still inside the
// inactivity window, or mints a fresh one.
func (t *Tracker) resolveSessionLocked() {
	now := t.now()
	if s, ok, err := t.store.LoadSession(); err == nil && ok && !s.Expired(now, t.cfg.SessionTimeout) {
		s.LastActivity = now
		t.session = s
		t.saveSessionLocked()
		t.log.Debug().Str("session_id", s.ID).Msg("session resumed")
		return
	}
	t.session = identity.NewSession(now)
	t.saveSessionLocked()
}

func (t *Tracker) loadIdentityLocked() {
	if id, ok, err := t.store.LoadIdentity(); err == nil && ok {
		t.ident = id
	}
}

// hydrateLocked loads the persisted backlog in front of events generated
// during this run, preserving FIFO order.
func (t *Tracker) hydrateLocked() {
	entries, err := t.store.Pending()
	if err != nil {
		t.log.Debug().Err(err).Msg("backlog hydration failed")
		return
	}
	for _, e := range entries {
		var ev models.Event
		if err := e.UnmarshalPayload(&ev); err != nil {
			continue
		}
		t.buffer = append(t.buffer, queuedEvent{storeID: e.ID, retries: e.Retries, event: ev})
	}
	if n := len(entries); n > 0 {
		t.log.Debug().Int("events", n).Msg("backlog hydrated")
	}
	metrics.QueueDepth.Set(float64(len(t.buffer)))
}

func (t *Tracker) saveSessionLocked() {
	if err := t.store.SaveSession(t.session); err != nil {
		metrics.StorageFailures.WithLabelValues("state").Inc()
	}
}

// run is the periodic loop: interval flushes plus idle session checks.
func (t *Tracker) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	t.mu.Lock()
	flushEvery := t.cfg.FlushInterval
	sessionEvery := t.cfg.SessionTimeout / 2
	t.mu.Unlock()
	if sessionEvery <= 0 {
		sessionEvery = time.Minute
	}

	flushTicker := time.NewTicker(flushEvery)
	defer flushTicker.Stop()
	sessionTicker := time.NewTicker(sessionEvery)
	defer sessionTicker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-flushTicker.C:
			if err := t.sendEvents(context.Background()); err != nil {
				t.log.Debug().Err(err).Msg("periodic send failed")
			}
		case <-sessionTicker.C:
			t.mu.Lock()
			t.rotateIfExpiredLocked()
			t.mu.Unlock()
		}
	}
}

// Track constructs and enqueues a custom event. Reaching the batch-size
// threshold triggers an immediate asynchronous send.
func (t *Tracker) Track(eventType string, properties map[string]any) {
	defer t.recovered("track")

	if eventType == "" || !t.ready() {
		return
	}

	t.mu.Lock()
	t.updateActivityLocked()
	ev := t.stampLocked(models.Event{
		Type:       eventType,
		Properties: sanitize.Properties(properties),
	})
	t.enqueueLocked(ev)
	t.mu.Unlock()
}

// View enqueues a view event. An empty url or title defaults to the
// host process identity, and UTM parameters are lifted off the URL into
// a structured sub-object.
func (t *Tracker) View(url, title string, properties map[string]any) {
	defer t.recovered("view")

	if !t.ready() {
		return
	}
	if url == "" {
		url = "app://" + processName()
	}
	if title == "" {
		title = processName()
	}

	t.mu.Lock()
	t.updateActivityLocked()
	ev := t.stampLocked(models.Event{
		Type:       models.TypeView,
		URL:        url,
		Title:      title,
		UTM:        identity.ExtractUTM(url),
		Properties: sanitize.Properties(properties),
	})
	t.enqueueLocked(ev)
	t.mu.Unlock()
}

// Click enqueues a click event for a named interaction target. selector
// identifies the control ("#save-button", "menu/export") and text is its
// user-visible label, both optional.
func (t *Tracker) Click(selector, text string, properties map[string]any) {
	defer t.recovered("click")

	if !t.ready() {
		return
	}

	t.mu.Lock()
	t.updateActivityLocked()
	ev := t.stampLocked(models.Event{
		Type:       models.TypeClick,
		Selector:   selector,
		Text:       text,
		Properties: sanitize.Properties(properties),
	})
	t.enqueueLocked(ev)
	t.mu.Unlock()
}

// Identify sets the user identifier and merges properties into the
// persisted identity.
func (t *Tracker) Identify(userID string, properties map[string]any) {
	defer t.recovered("identify")

	if !t.ready() {
		return
	}

	t.mu.Lock()
	t.updateActivityLocked()
	t.ident.UserID = userID
	t.ident.Merge(sanitize.Properties(properties))
	if err := t.store.SaveIdentity(t.ident); err != nil {
		metrics.StorageFailures.WithLabelValues("state").Inc()
	}
	t.mu.Unlock()
}

// SetUserProperties merges properties into the identity without
// requiring a user identifier.
func (t *Tracker) SetUserProperties(properties map[string]any) {
	defer t.recovered("set_user_properties")

	if !t.ready() || len(properties) == 0 {
		return
	}

	t.mu.Lock()
	t.updateActivityLocked()
	t.ident.Merge(sanitize.Properties(properties))
	if err := t.store.SaveIdentity(t.ident); err != nil {
		metrics.StorageFailures.WithLabelValues("state").Inc()
	}
	t.mu.Unlock()
}

// CaptureError reports an error through the error collector. A no-op
// unless error tracking is enabled.
func (t *Tracker) CaptureError(err error) {
	defer t.recovered("capture_error")

	if !t.ready() || t.reporter == nil {
		return
	}
	t.reporter.CaptureError(err)
}

// Recover is for deferred use at goroutine boundaries; it reports a
// panic through the error collector and re-panics. With error tracking
// disabled it recovers nothing.
func (t *Tracker) Recover() {
	if t.ready() && t.reporter != nil {
		if v := recover(); v != nil {
			t.reporter.CapturePanic(v, nil)
			panic(v)
		}
	}
}

// Flush forces an immediate send attempt of the entire queue regardless
// of batch thresholds and returns after the attempt completes. Failures
// are swallowed; they remain subject to the retry policy.
func (t *Tracker) Flush(ctx context.Context) {
	defer t.recovered("flush")

	if !t.ready() {
		return
	}

	// Let any threshold-triggered send finish first so the snapshot
	// below covers everything still queued.
	t.flushWg.Wait()
	if err := t.sendEvents(ctx); err != nil {
		t.log.Debug().Err(err).Msg("manual flush failed")
	}
}

// Reset clears session, identity and both queues, and returns the
// tracker to Uninitialized: subsequent tracking calls are no-ops until
// the next Init.
func (t *Tracker) Reset() {
	defer t.recovered("reset")

	if !t.state.CompareAndSwap(stateReady, stateDestroyed) {
		return
	}
	t.teardown()

	t.mu.Lock()
	if err := t.store.Clear(); err != nil {
		metrics.StorageFailures.WithLabelValues("clear").Inc()
	}
	if err := t.store.ClearState(); err != nil {
		metrics.StorageFailures.WithLabelValues("state").Inc()
	}
	_ = t.store.Close()
	t.buffer = nil
	t.session = identity.Session{}
	t.ident = identity.Identity{}
	metrics.QueueDepth.Set(0)
	t.mu.Unlock()

	t.state.Store(stateUninitialized)
}

// Destroy cancels the periodic timers, performs a best-effort beacon
// flush of whatever is still queued, detaches the collectors and closes
// the offline store. The tracker cannot be reused afterwards.
func (t *Tracker) Destroy() {
	defer t.recovered("destroy")

	if !t.state.CompareAndSwap(stateReady, stateDestroyed) {
		return
	}
	t.teardown()

	t.mu.Lock()
	remaining := t.buffer
	t.buffer = nil
	tr := t.tr
	payload := t.payloadLocked(remaining)
	t.mu.Unlock()

	if len(remaining) > 0 {
		// Fire-and-forget: delivery is unconfirmed, so durable entries
		// stay put and a later instance may resend them.
		tr.SendBeacon(payload)
	}

	t.mu.Lock()
	_ = t.store.Close()
	metrics.QueueDepth.Set(0)
	t.mu.Unlock()
}

// teardown stops the periodic loop and collectors and waits out any
// in-flight threshold send. Timers stop before the final flush so no
// tick can fire mid-teardown.
func (t *Tracker) teardown() {
	t.mu.Lock()
	stopCh, loopDone := t.stopCh, t.loopDone
	t.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-loopDone
	}
	if t.vitals != nil {
		t.vitals.Stop()
		t.vitals = nil
	}
	t.flushWg.Wait()
}

// SessionID returns the active session identifier, or "" when the
// tracker is not Ready.
func (t *Tracker) SessionID() string {
	if !t.ready() {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.ID
}

// UserID returns the identified user, or "" when unset or not Ready.
func (t *Tracker) UserID() string {
	if !t.ready() {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ident.UserID
}

func (t *Tracker) ready() bool {
	return t.state.Load() == stateReady
}

// updateActivityLocked rotates the session when the inactivity timeout
// has elapsed, otherwise refreshes the activity timestamp. Activity
// writes are throttled; rotations always persist.
func (t *Tracker) updateActivityLocked() {
	if !t.rotateIfExpiredLocked() {
		t.session.LastActivity = t.now()
		if t.persistThrottle.Allow() {
			t.saveSessionLocked()
		}
	}
}

func (t *Tracker) rotateIfExpiredLocked() bool {
	now := t.now()
	if !t.session.Expired(now, t.cfg.SessionTimeout) {
		return false
	}
	old := t.session.ID
	t.session = identity.NewSession(now)
	t.saveSessionLocked()
	metrics.SessionsRotated.Inc()
	t.log.Debug().Str("old", old).Str("new", t.session.ID).Msg("session rotated")
	return true
}

// stampLocked fills the creation-time fields every event carries.
func (t *Tracker) stampLocked(ev models.Event) models.Event {
	if ev.Timestamp == 0 {
		ev.Timestamp = t.now().UnixMilli()
	}
	ev.SessionID = t.session.ID
	ev.UserID = t.ident.UserID
	return ev
}

// enqueueCollected is the emit callback handed to the collectors.
func (t *Tracker) enqueueCollected(ev models.Event) {
	defer t.recovered("collect")

	if !t.ready() {
		return
	}
	t.mu.Lock()
	t.enqueueLocked(t.stampLocked(ev))
	t.mu.Unlock()
}

// enqueueLocked persists the event, appends it to the in-memory buffer
// and triggers a threshold send when the batch size is reached.
func (t *Tracker) enqueueLocked(ev models.Event) {
	q := queuedEvent{event: ev}
	id, err := t.store.Append(&ev)
	if err != nil {
		// Memory-only for this event; tracking continues.
		metrics.StorageFailures.WithLabelValues("append").Inc()
	} else {
		q.storeID = id
	}

	t.buffer = append(t.buffer, q)
	metrics.EventsTracked.WithLabelValues(ev.Type).Inc()
	metrics.QueueDepth.Set(float64(len(t.buffer)))

	if len(t.buffer) >= t.cfg.BatchSize {
		t.flushWg.Add(1)
		go func() {
			defer t.flushWg.Done()
			// Detached context: the batch must be attempted even if
			// the caller that tipped the threshold has moved on.
			ctx, cancel := context.WithTimeout(context.Background(), t.cfg.SendTimeout+time.Second)
			defer cancel()
			if err := t.sendEvents(ctx); err != nil {
				t.log.Debug().Err(err).Msg("threshold send failed")
			}
		}()
	}
}

// sendEvents delivers the current queue as one batch. It is safe under
// concurrent invocation: the queue is snapshotted and cleared before the
// network await, and a failed snapshot merges back in front of anything
// that arrived meanwhile, preserving FIFO order.
func (t *Tracker) sendEvents(ctx context.Context) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	t.mu.Lock()
	if len(t.buffer) == 0 {
		t.mu.Unlock()
		return nil
	}
	batch := t.buffer
	t.buffer = nil
	tr := t.tr
	payload := t.payloadLocked(batch)
	t.mu.Unlock()

	err := tr.Send(ctx, payload)
	if err == nil {
		t.confirmBatch(batch)
		t.mu.Lock()
		metrics.QueueDepth.Set(float64(len(t.buffer)))
		t.mu.Unlock()
		return nil
	}

	survivors := t.failBatch(batch)

	t.mu.Lock()
	t.buffer = append(survivors, t.buffer...)
	metrics.QueueDepth.Set(float64(len(t.buffer)))
	t.mu.Unlock()
	return err
}

// confirmBatch removes delivered entries from the offline store.
func (t *Tracker) confirmBatch(batch []queuedEvent) {
	for _, q := range batch {
		if q.storeID == "" {
			continue
		}
		if err := t.store.Remove(q.storeID); err != nil {
			metrics.StorageFailures.WithLabelValues("remove").Inc()
		}
	}
}

// failBatch increments retry counts and weeds out entries that reached
// the cap. Exhausted entries are dropped permanently and silently.
func (t *Tracker) failBatch(batch []queuedEvent) []queuedEvent {
	survivors := batch[:0]
	for _, q := range batch {
		q.retries++
		if q.storeID != "" {
			if n, err := t.store.MarkAttempt(q.storeID); err == nil {
				q.retries = n
			}
		}
		if q.retries >= t.cfg.MaxRetries {
			if q.storeID != "" {
				if err := t.store.Remove(q.storeID); err != nil {
					metrics.StorageFailures.WithLabelValues("remove").Inc()
				}
			}
			metrics.EventsDropped.WithLabelValues("max_retries").Inc()
			t.log.Debug().Str("type", q.event.Type).Int("retries", q.retries).Msg("event dropped after retry cap")
			continue
		}
		survivors = append(survivors, q)
	}
	return survivors
}

// payloadLocked assembles the wire payload for a batch.
func (t *Tracker) payloadLocked(batch []queuedEvent) *models.Payload {
	events := make([]models.Event, len(batch))
	for i, q := range batch {
		events[i] = q.event
	}
	return &models.Payload{
		ProjectID:      t.cfg.ProjectID,
		SessionID:      t.session.ID,
		UserID:         t.ident.UserID,
		UserProperties: t.ident.UserProperties,
		DeviceInfo:     t.device,
		Events:         events,
		Timestamp:      t.now().UnixMilli(),
	}
}

// recovered is the last-resort guard keeping internal failures from
// escaping public methods.
func (t *Tracker) recovered(op string) {
	if r := recover(); r != nil {
		t.log.Debug().Str("op", op).Any("panic", r).Msg("internal panic recovered")
	}
}

func processName() string {
	if len(os.Args) > 0 {
		return filepath.Base(os.Args[0])
	}
	return "unknown"
}
