// Package engine is the session controller. It owns the tracker, the
// metrics, the operator graph and the persisted counters, and
// serializes every mutation under one lock so phase transitions are
// atomic with respect to Tick, feed merges and snapshots.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HendryAvila/coherence/internal/breath"
	"github.com/HendryAvila/coherence/internal/clock"
	"github.com/HendryAvila/coherence/internal/feed"
	"github.com/HendryAvila/coherence/internal/graph"
	"github.com/HendryAvila/coherence/internal/outcome"
	"github.com/HendryAvila/coherence/internal/store"
)

// ErrClosed is returned by operations on a closed Engine.
var ErrClosed = errors.New("engine: closed")

// Options wires an Engine. Store is required; everything else has a
// usable default.
type Options struct {
	Store  store.SessionStore
	Clock  clock.Clock
	Logger *slog.Logger

	// Feed is the external coherence adapter. nil disables it.
	Feed *feed.Client

	// PushBreath forwards each completed cycle to the feed.
	PushBreath bool

	// ResetFeedOnStart clears the feed's state on StartSession.
	ResetFeedOnStart bool

	// NewSessionID mints session IDs. Defaults to uuid.NewString.
	NewSessionID func() string
}

// Engine is safe for concurrent use.
type Engine struct {
	store        store.SessionStore
	clock        clock.Clock
	logger       *slog.Logger
	feed         *feed.Client
	pushBreath   bool
	resetOnStart bool
	newID        func() string

	mu         sync.Mutex
	tracker    *breath.Tracker
	metrics    *breath.Metrics
	graph      *graph.Graph
	counters   store.Counters
	sessionID  string
	startedAt  time.Time
	epoch      uint64
	lastSave   *outcome.Outcome
	lastFeed   *outcome.Outcome
	violations uint64
	closed     bool

	// Background best-effort calls to the feed.
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// New creates an Engine with no active session and loads the persisted
// counters.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.NewSessionID == nil {
		opts.NewSessionID = uuid.NewString
	}
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}

	e := &Engine{
		store:        opts.Store,
		clock:        opts.Clock,
		logger:       opts.Logger,
		feed:         opts.Feed,
		pushBreath:   opts.PushBreath,
		resetOnStart: opts.ResetFeedOnStart,
		newID:        opts.NewSessionID,
		metrics:      breath.NewMetrics(),
		graph:        graph.New(),
	}
	e.bgCtx, e.bgCancel = context.WithCancel(context.Background())
	e.tracker = breath.NewTracker(opts.Clock, e.onCycle)
	e.counters = opts.Store.Load()
	return e
}

// StartSession begins a new session. A running session is replaced.
func (e *Engine) StartSession() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tracker.Active() {
		e.logger.Info("session replaced", "session", e.sessionID)
	}
	e.resetLocked()
	e.tracker.Start()
	e.sessionID = e.newID()
	e.startedAt = e.clock.Now()

	if e.resetOnStart && e.feed != nil {
		e.goLocked(func(ctx context.Context) {
			if o := e.feed.Reset(ctx); !o.Applied() {
				e.logger.Debug("feed reset", "status", o.Status, "error", o.Error())
			}
		})
	}

	e.logger.Info("session started", "session", e.sessionID)
	return e.snapshotLocked()
}

// EndSession stops the running session and clears its live state.
// The persisted counters are kept.
func (e *Engine) EndSession() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tracker.Active() {
		e.logger.Info("session ended",
			"session", e.sessionID,
			"duration", e.clock.Now().Sub(e.startedAt).Round(time.Second),
			"cycles", len(e.metrics.Recent()))
	}
	e.resetLocked()
	e.tracker.Stop()
	e.sessionID = ""
	e.startedAt = time.Time{}
	return e.snapshotLocked()
}

// resetLocked clears everything ephemeral and moves to a new epoch so
// in-flight feed results from the old session are discarded.
func (e *Engine) resetLocked() {
	e.epoch++
	e.metrics.Reset()
	e.graph.Reset()
	e.lastFeed = nil
}

// BeginInhale starts an inhale, finalizing the previous cycle when an
// exhale was in progress.
func (e *Engine) BeginInhale() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.BeginInhale()
	return e.snapshotLocked()
}

// BeginExhale starts an exhale.
func (e *Engine) BeginExhale() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.BeginExhale()
	return e.snapshotLocked()
}

// BeginHold starts a hold.
func (e *Engine) BeginHold() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.BeginHold()
	return e.snapshotLocked()
}

// Tick refreshes the live phase counters.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.Tick()
}

// State ticks and snapshots in one step.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.Tick()
	return e.snapshotLocked()
}

// Snapshot returns the current state without ticking.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Counters returns the persisted statistics.
func (e *Engine) Counters() store.Counters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters
}

// SetGear records a collaborator-owned gear label (P or D). The empty
// gear clears it.
func (e *Engine) SetGear(g graph.Gear) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.graph.SetGear(g); err != nil {
		return e.snapshotLocked(), err
	}
	e.logger.Debug("gear set", "gear", g)
	return e.snapshotLocked(), nil
}

// Epoch identifies the current session for feed results.
func (e *Engine) Epoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch
}

// ApplyFeed merges an external coherence sample fetched under epoch.
// Samples from an older epoch or arriving outside a session are stale;
// out-of-range samples are discarded with the graph unchanged.
func (e *Engine) ApplyFeed(epoch uint64, s feed.Sample) outcome.Outcome {
	const op = "apply_feed"
	e.mu.Lock()
	defer e.mu.Unlock()

	var o outcome.Outcome
	switch {
	case e.closed:
		o = outcome.Failed(op, outcome.StatusStale, ErrClosed)
	case epoch != e.epoch || !e.tracker.Active():
		o = outcome.Failed(op, outcome.StatusStale, nil)
	default:
		if err := e.graph.MergeFeed(s.ScalarCoherence); err != nil {
			o = outcome.Failed(op, outcome.StatusDiscarded, err)
		} else {
			o = outcome.OK(op)
		}
	}
	if o.Status != outcome.StatusStale {
		e.lastFeed = &o
	}
	return o
}

// Close waits for background feed calls. The engine keeps answering
// reads afterwards but starts no new background work.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.bgCancel()
	e.bg.Wait()
}

// onCycle runs inside Tracker.BeginInhale with e.mu held.
func (e *Engine) onCycle(inhale, exhale time.Duration, at time.Time) {
	res := e.metrics.Record(inhale, exhale, at)
	c := res.Cycle

	err := e.graph.Apply(graph.Input{
		Symmetry:   c.Symmetry,
		PhiSync:    c.PhiSync,
		Sustained:  res.Sustained,
		BloomReady: res.BloomReady,
	})
	if err != nil {
		e.violations++
		e.logger.Warn("operator graph repaired", "session", e.sessionID, "error", err)
	}

	e.counters = e.counters.Observe(c.Symmetry, res.Sustained)
	saved := e.store.Save(e.counters)
	e.lastSave = &saved

	e.logger.Debug("cycle completed",
		"session", e.sessionID,
		"inhale_ms", c.InhaleMs,
		"exhale_ms", c.ExhaleMs,
		"symmetry", c.Symmetry,
		"phi_sync", c.PhiSync,
		"sustained", res.Sustained,
		"gear", e.graph.Gear())
	if res.BloomReady && res.Sustained == breath.BloomCyclesRequired {
		e.logger.Info("bloom reached", "session", e.sessionID, "symmetry", c.Symmetry)
	}

	if e.pushBreath && e.feed != nil {
		in, ex := c.InhaleMs, c.ExhaleMs
		e.goLocked(func(ctx context.Context) {
			e.feed.PushBreath(ctx, in, ex)
		})
	}
}

// goLocked runs fn in the background. Caller holds e.mu.
func (e *Engine) goLocked(fn func(ctx context.Context)) {
	if e.closed {
		return
	}
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		fn(e.bgCtx)
	}()
}
