// Package syncer coalesces bursts of collection mutations into single
// delayed remote writes. It is a dedicated task receiving events from a
// channel rather than a hook inside a shared dispatch path: collections push
// Events, the syncer owns one debounce timer per (user, collection) pair, and
// on fire it snapshots the collection's current state and writes it through
// the gateway. Last value within the window wins; diffs are never
// accumulated.
package syncer

import (
	"context"
	"log"
	"sync"
	"time"

	"offersync/internal/cache"
	"offersync/internal/events"
	"offersync/internal/gateway"
	"offersync/internal/identity"
)

const defaultDelay = time.Second

// Snapshot produces the remote document fields for a collection's current
// in-memory state. Called at fire time, never at schedule time.
type Snapshot func() map[string]any

type syncKey struct {
	userID     string
	collection string
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithDelay overrides the debounce window.
func WithDelay(d time.Duration) Option {
	return func(s *Syncer) { s.delay = d }
}

// WithAuditSink attaches the audit trail channel. Sends never block; if the
// trail is backlogged the event is dropped.
func WithAuditSink(inbox chan<- events.Event) Option {
	return func(s *Syncer) { s.audit = inbox }
}

// Syncer is the debounced write-through middleware.
type Syncer struct {
	gw    gateway.Store
	idp   identity.Provider
	cache cache.Store
	log   *log.Logger
	delay time.Duration
	audit chan<- events.Event

	snapshots map[string]Snapshot

	inbox chan Event

	mu      sync.Mutex
	pending map[syncKey]*time.Timer

	runCtx context.Context
}

func New(gw gateway.Store, idp identity.Provider, cacheStore cache.Store, log *log.Logger, opts ...Option) *Syncer {
	s := &Syncer{
		gw:        gw,
		idp:       idp,
		cache:     cacheStore,
		log:       log,
		delay:     defaultDelay,
		snapshots: make(map[string]Snapshot),
		inbox:     make(chan Event, 64),
		pending:   make(map[syncKey]*time.Timer),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RegisterCollection binds a gateway collection name to its snapshot source.
// Must be called before Run.
func (s *Syncer) RegisterCollection(collection string, snap Snapshot) {
	s.snapshots[collection] = snap
}

// Notify hands one observed change to the syncer. Safe for concurrent use.
func (s *Syncer) Notify(ev Event) {
	s.inbox <- ev
}

// Notifier adapts a collection's change callback into syncer events for the
// given gateway collection. Unauthenticated mutations are dropped here
// (local-only mode); hydration replays are forwarded as replace events so the
// schedule path can count on complete information.
func (s *Syncer) Notifier(collection string) func(replace bool) {
	return func(replace bool) {
		userID, ok := s.idp.CurrentUserID()
		if !ok {
			return
		}
		kind := KindMutation
		if replace {
			kind = KindReplace
		}
		s.Notify(Event{UserID: userID, Collection: collection, Kind: kind})
	}
}

// Run consumes events until the context ends. Pending timers are cancelled on
// shutdown; writes already in flight are left to finish.
func (s *Syncer) Run(ctx context.Context) error {
	s.runCtx = ctx
	for {
		select {
		case <-ctx.Done():
			s.cancelAll()
			return ctx.Err()
		case ev := <-s.inbox:
			s.schedule(ev)
		}
	}
}

func (s *Syncer) schedule(ev Event) {
	// Hydration replays must never echo back to the remote store.
	if ev.Kind != KindMutation {
		return
	}
	userID, ok := s.idp.CurrentUserID()
	if !ok {
		return
	}
	if _, ok := s.snapshots[ev.Collection]; !ok {
		s.log.Printf("syncer: no snapshot registered for collection %q", ev.Collection)
		return
	}

	key := syncKey{userID: userID, collection: ev.Collection}

	s.mu.Lock()
	if timer, ok := s.pending[key]; ok {
		timer.Stop()
		coalescedTotal.Inc()
	}
	s.pending[key] = time.AfterFunc(s.delay, func() { s.fire(key) })
	s.mu.Unlock()

	scheduledTotal.Inc()
}

// fire runs on the timer goroutine, so writes for different pairs proceed
// concurrently and one failure cannot block another.
func (s *Syncer) fire(key syncKey) {
	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()

	// Auth is re-checked at fire time: a sync landing after sign-out
	// silently no-ops instead of writing another user's leftovers.
	userID, ok := s.idp.CurrentUserID()
	if !ok || userID != key.userID {
		return
	}

	snap := s.snapshots[key.collection]
	fields := snap()

	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	err := s.gw.Set(ctx, key.collection, key.userID, fields, true)
	elapsed := time.Since(start)
	writeDurationMs.Observe(float64(elapsed.Microseconds()) / 1000.0)

	if err != nil {
		// Logged and swallowed: the next mutation reschedules a full write.
		s.log.Printf("syncer: write %s/%s: %v", key.collection, key.userID, err)
		firedTotal.WithLabelValues("error").Inc()
		s.emit(key, events.OutcomeError, err.Error(), elapsed)
		return
	}
	firedTotal.WithLabelValues("ok").Inc()

	if err := s.cache.Invalidate(ctx, cache.Key(key.collection, key.userID)); err != nil {
		s.log.Printf("syncer: invalidate cache for %s/%s: %v", key.collection, key.userID, err)
	}

	s.emit(key, events.OutcomeOK, "", elapsed)
}

func (s *Syncer) emit(key syncKey, outcome, detail string, elapsed time.Duration) {
	if s.audit == nil {
		return
	}
	ev := events.Event{
		UserID:     key.userID,
		Collection: key.collection,
		Outcome:    outcome,
		Detail:     detail,
		DurationMS: elapsed.Milliseconds(),
		At:         time.Now(),
	}
	select {
	case s.audit <- ev:
	default:
		s.log.Printf("syncer: audit trail backlogged, dropping event for %s/%s", key.userID, key.collection)
	}
}

func (s *Syncer) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, timer := range s.pending {
		timer.Stop()
		delete(s.pending, key)
	}
}

// PendingCount reports in-flight debounce timers. Test helper.
func (s *Syncer) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
