package breath

import (
	"time"

	"github.com/HendryAvila/coherence/internal/clock"
)

// CycleFunc receives each completed cycle's inhale and exhale durations
// together with the completion time. It runs synchronously inside
// BeginInhale.
type CycleFunc func(inhale, exhale time.Duration, at time.Time)

// Tracker records phase transitions and finalizes cycles.
//
// Tracker is not safe for concurrent use; the session controller
// serializes every call under its own lock so that no transition lands
// in the middle of a Tick.
type Tracker struct {
	clock   clock.Clock
	onCycle CycleFunc

	active     bool
	phase      Phase
	phaseStart time.Time
	hasStart   bool

	// pendingInhale is the inhale half of the cycle waiting for its exhale.
	pendingInhale time.Duration

	liveInhale time.Duration
	liveExhale time.Duration
	liveHold   time.Duration
}

// NewTracker creates an idle tracker. onCycle may be nil.
func NewTracker(clk clock.Clock, onCycle CycleFunc) *Tracker {
	return &Tracker{clock: clk, onCycle: onCycle, phase: PhaseIdle}
}

// Start activates the tracker and resets all ephemeral state.
func (t *Tracker) Start() {
	t.reset()
	t.active = true
}

// Stop deactivates the tracker and resets all ephemeral state.
// Phase events are ignored until the next Start.
func (t *Tracker) Stop() {
	t.reset()
	t.active = false
}

// Active reports whether a session is running.
func (t *Tracker) Active() bool { return t.active }

// Phase returns the current phase.
func (t *Tracker) Phase() Phase { return t.phase }

// BeginInhale finalizes the pending cycle when an exhale is in
// progress, then starts a fresh inhale.
func (t *Tracker) BeginInhale() {
	if !t.active {
		return
	}
	now := t.clock.Now()

	if t.phase == PhaseExhale && t.hasStart {
		exhale := nonNegative(now.Sub(t.phaseStart))
		inhale := t.pendingInhale
		if t.onCycle != nil {
			t.onCycle(inhale, exhale, now)
		}
	}

	t.phase = PhaseInhale
	t.phaseStart = now
	t.hasStart = true
	t.pendingInhale = 0
	t.liveInhale, t.liveExhale, t.liveHold = 0, 0, 0
}

// BeginExhale closes the inhale half and starts the exhale. An inhale
// interrupted by a hold keeps the length measured before the hold; an
// exhale that follows no inhale carries a zero inhale.
func (t *Tracker) BeginExhale() {
	if !t.active {
		return
	}
	now := t.clock.Now()

	var inhale time.Duration
	switch {
	case t.phase == PhaseInhale && t.hasStart:
		inhale = nonNegative(now.Sub(t.phaseStart))
	case t.phase == PhaseHold:
		inhale = t.pendingInhale
	}

	t.phase = PhaseExhale
	t.phaseStart = now
	t.hasStart = true
	t.pendingInhale = inhale
	t.liveInhale = inhale
	t.liveExhale = 0
	t.liveHold = 0
}

// BeginHold starts a breath retention. No cycle is finalized or begun
// and the hold's own length is never scored. A hold after an inhale
// banks the inhale for the following exhale; a hold after an exhale
// leaves nothing pending, so a following BeginInhale starts fresh.
func (t *Tracker) BeginHold() {
	if !t.active {
		return
	}
	now := t.clock.Now()

	switch t.phase {
	case PhaseInhale:
		if t.hasStart {
			t.pendingInhale = nonNegative(now.Sub(t.phaseStart))
			t.liveInhale = t.pendingInhale
		}
	case PhaseExhale:
		t.pendingInhale = 0
	}

	t.phase = PhaseHold
	t.phaseStart = now
	t.hasStart = true
	t.liveHold = 0
}

// Tick refreshes the live elapsed counter of the current phase.
// It never touches committed cycle data.
func (t *Tracker) Tick() {
	if !t.active || !t.hasStart {
		return
	}
	elapsed := nonNegative(t.clock.Now().Sub(t.phaseStart))
	switch t.phase {
	case PhaseInhale:
		t.liveInhale = elapsed
	case PhaseExhale:
		t.liveExhale = elapsed
	case PhaseHold:
		t.liveHold = elapsed
	}
}

// Live returns the current live counters.
func (t *Tracker) Live() Live {
	l := Live{
		Phase:    t.phase,
		InhaleMs: t.liveInhale.Milliseconds(),
		ExhaleMs: t.liveExhale.Milliseconds(),
		HoldMs:   t.liveHold.Milliseconds(),
	}
	if t.hasStart {
		started := t.phaseStart
		l.StartedAt = &started
	}
	return l
}

func (t *Tracker) reset() {
	t.phase = PhaseIdle
	t.phaseStart = time.Time{}
	t.hasStart = false
	t.pendingInhale = 0
	t.liveInhale, t.liveExhale, t.liveHold = 0, 0, 0
}

// nonNegative guards against a clock stepping backwards.
func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
