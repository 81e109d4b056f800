// Package breath turns discrete breath-phase events into scored cycles.
//
// It has two halves:
//   - Tracker: records phase transitions against a clock and emits
//     (inhale, exhale) duration pairs when a cycle completes.
//   - Metrics: scores each completed pair (symmetry, phi-sync gate),
//     maintains the sustained phi-sync streak, bloom readiness and a
//     bounded recent-cycle history.
//
// Neither half persists anything or talks to the operator graph; the
// session controller in internal/engine wires them together.
package breath

import "time"

// --- Phase enum ---

// Phase is the breath phase currently in progress.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseInhale Phase = "inhale"
	PhaseExhale Phase = "exhale"
	PhaseHold   Phase = "hold" // voluntary retention, tracked but not scored
)

// --- Thresholds ---

const (
	// PhiSyncFloorMs is the minimum length of both halves of a phi-sync cycle.
	PhiSyncFloorMs int64 = 11000
	// PhiSyncTolerance is the allowed asymmetry; symmetry must reach 1 - tolerance.
	PhiSyncTolerance = 0.15
	// BloomCyclesRequired consecutive phi-sync cycles make the engine bloom-ready.
	BloomCyclesRequired = 3
	// HistorySize bounds the recent-cycle history.
	HistorySize = 10
)

// --- Core data structures ---

// Cycle is one completed inhale/exhale pair. Immutable once created.
type Cycle struct {
	InhaleMs    int64     `json:"inhaleMs"`
	ExhaleMs    int64     `json:"exhaleMs"`
	Symmetry    float64   `json:"symmetry"`
	PhiSync     bool      `json:"phiSync"`
	CompletedAt time.Time `json:"completedAt"`
}

// Live holds the elapsed counters the UI redraws every frame.
type Live struct {
	Phase     Phase      `json:"phase"`
	StartedAt *time.Time `json:"phaseStartedAt,omitempty"`
	InhaleMs  int64      `json:"inhaleMs"`
	ExhaleMs  int64      `json:"exhaleMs"`
	HoldMs    int64      `json:"holdMs"`
}
