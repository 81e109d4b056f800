package breath

import "time"

// Symmetry is min/max of the two halves, 0 for a zero-length cycle.
func Symmetry(inhaleMs, exhaleMs int64) float64 {
	lo, hi := inhaleMs, exhaleMs
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi <= 0 || lo < 0 {
		return 0
	}
	return float64(lo) / float64(hi)
}

// PhiSync reports whether both halves reach PhiSyncFloorMs and the
// cycle is symmetric within PhiSyncTolerance.
func PhiSync(inhaleMs, exhaleMs int64) bool {
	if inhaleMs < PhiSyncFloorMs || exhaleMs < PhiSyncFloorMs {
		return false
	}
	return Symmetry(inhaleMs, exhaleMs) >= 1-PhiSyncTolerance
}

// Result is what one Record call produced.
type Result struct {
	Cycle      Cycle
	Sustained  int
	BloomReady bool
}

// Metrics scores completed cycles and keeps the phi-sync streak.
//
// Invariant: sustained resets to 0 on a non-phi-sync cycle and grows by
// exactly one on a phi-sync cycle; bloomReady == sustained >= BloomCyclesRequired.
type Metrics struct {
	sustained  int
	bloomReady bool
	history    *History
}

// NewMetrics creates Metrics with an empty history of HistorySize.
func NewMetrics() *Metrics {
	return &Metrics{history: NewHistory(HistorySize)}
}

// Record scores one completed cycle and updates the streak, bloom flag
// and history.
func (m *Metrics) Record(inhale, exhale time.Duration, at time.Time) Result {
	inMs, exMs := inhale.Milliseconds(), exhale.Milliseconds()
	c := Cycle{
		InhaleMs:    inMs,
		ExhaleMs:    exMs,
		Symmetry:    Symmetry(inMs, exMs),
		PhiSync:     PhiSync(inMs, exMs),
		CompletedAt: at,
	}

	if c.PhiSync {
		m.sustained++
	} else {
		m.sustained = 0
	}
	m.bloomReady = m.sustained >= BloomCyclesRequired
	m.history.Push(c)

	return Result{Cycle: c, Sustained: m.sustained, BloomReady: m.bloomReady}
}

// Sustained returns the current consecutive phi-sync count.
func (m *Metrics) Sustained() int { return m.sustained }

// BloomReady reports whether the streak has reached BloomCyclesRequired.
func (m *Metrics) BloomReady() bool { return m.bloomReady }

// PhiSyncActive reports whether the most recent cycle passed the gate.
func (m *Metrics) PhiSyncActive() bool {
	last, ok := m.history.Last()
	return ok && last.PhiSync
}

// Recent returns the retained cycles, oldest first.
func (m *Metrics) Recent() []Cycle { return m.history.Cycles() }

// Reset clears the streak, bloom flag and history.
func (m *Metrics) Reset() {
	m.sustained = 0
	m.bloomReady = false
	m.history.Clear()
}
