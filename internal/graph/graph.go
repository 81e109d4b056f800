// Package graph maintains the operator activation graph driven by
// breath metrics and the external coherence feed.
//
// The graph is a fixed set of named operators, each with a coherence
// score and an activation flag, plus a derived gear label. Only this
// package mutates operator state; callers feed it Inputs and read
// Snapshots.
package graph

import (
	"errors"
	"fmt"
	"math"
)

// --- Operators ---

// Operator names a node in the activation graph.
type Operator string

const (
	Radix    Operator = "radix"
	Vectaris Operator = "vectaris"
	Xi       Operator = "xi"
	PsiLoop  Operator = "psiLoop"
	Sigma    Operator = "sigma"
	Calypso  Operator = "calypso" // damping state between accumulating and bloomed
	Syntara  Operator = "syntara" // terminal operator unlocked by bloom
)

// Operators lists every operator in rule order.
var Operators = []Operator{Radix, Vectaris, Xi, PsiLoop, Sigma, Calypso, Syntara}

// State is one operator's activation and coherence.
type State struct {
	Active    bool    `json:"active"`
	Coherence float64 `json:"coherence"`
}

// --- Rule thresholds ---

const (
	// VectarisSymmetry is the symmetry vectaris must exceed.
	VectarisSymmetry = 0.5
	// SustainedForSigma consecutive phi-sync cycles engage sigma and calypso.
	SustainedForSigma = 2
	// SigmaSaturation is the streak at which sigma coherence reaches 1.
	SigmaSaturation = 3
	// SyntaraSymmetry is the symmetry that, with bloom, releases calypso.
	SyntaraSymmetry = 0.92
)

// ErrOutOfRange is returned for feed coherence values outside [0,1].
var ErrOutOfRange = errors.New("graph: coherence out of range")

// ErrExclusiveOperators reports calypso and syntara both active.
var ErrExclusiveOperators = errors.New("graph: calypso and syntara both active")

// Input is the breath-derived state the rules read.
type Input struct {
	Symmetry   float64
	PhiSync    bool
	Sustained  int
	BloomReady bool
}

// Snapshot is a read-only copy of the graph.
type Snapshot struct {
	Operators map[Operator]State `json:"operators"`
	Gear      Gear               `json:"gear"`
}

// Graph holds operator state. Not safe for concurrent use; the session
// controller serializes access.
type Graph struct {
	states map[Operator]State
	gear   Gear

	// external is a collaborator-set label (P or D) kept while no
	// breath-driven condition applies.
	external Gear

	// released latches calypso off for the rest of a bloom episode.
	// The episode ends when the streak falls back to zero.
	released bool

	// last is the most recent Input, so a label change re-derives the
	// gear against the breath state it was made in.
	last Input
}

// New creates a graph with every operator inactive and gear N.
func New() *Graph {
	g := &Graph{}
	g.Reset()
	return g
}

// Reset deactivates every operator, zeroes coherence and ends any
// bloom episode. A collaborator-set gear label survives.
func (g *Graph) Reset() {
	g.states = make(map[Operator]State, len(Operators))
	for _, op := range Operators {
		g.states[op] = State{}
	}
	g.released = false
	g.last = Input{}
	g.gear = DeriveGear(g.last, g.external)
}

// Apply runs the mutation rules for one metrics update and recomputes
// the gear. It returns ErrExclusiveOperators if the rules ever leave
// calypso and syntara both active; the graph is repaired in favor of
// syntara before returning.
func (g *Graph) Apply(in Input) error {
	sym := clamp01(in.Symmetry)
	bloomRelease := in.BloomReady && sym >= SyntaraSymmetry

	// radix follows the session unconditionally.
	g.states[Radix] = State{Active: true, Coherence: sym}

	if sym > VectarisSymmetry {
		g.states[Vectaris] = State{Active: true, Coherence: sym * 0.9}
	} else {
		g.deactivate(Vectaris)
	}

	if in.PhiSync {
		g.states[Xi] = State{Active: true, Coherence: sym}
		g.states[PsiLoop] = State{Active: true, Coherence: sym * 0.95}
	} else {
		g.deactivate(Xi)
		g.deactivate(PsiLoop)
	}

	if in.Sustained >= SustainedForSigma {
		g.states[Sigma] = State{
			Active:    true,
			Coherence: math.Min(1, float64(in.Sustained)/SigmaSaturation),
		}
	} else {
		g.deactivate(Sigma)
	}

	// Calypso engages on streak length alone but releases only under
	// the bloom conjunction, and stays released until the streak breaks.
	if in.Sustained == 0 {
		g.released = false
	}
	if bloomRelease {
		g.released = true
	}
	switch {
	case g.released:
		g.deactivate(Calypso)
	case in.Sustained >= SustainedForSigma:
		g.states[Calypso] = State{Active: true, Coherence: sym * 0.8}
	default:
		g.deactivate(Calypso)
	}

	switch {
	case bloomRelease:
		g.states[Syntara] = State{Active: true, Coherence: sym}
	case !in.BloomReady:
		g.deactivate(Syntara)
	}

	g.last = in
	g.gear = g.deriveGear(in)

	if err := g.Validate(); err != nil {
		g.deactivate(Calypso)
		return err
	}
	return nil
}

// MergeFeed overwrites the coherence of xi, psiLoop and radix with an
// externally computed value. Activation flags are untouched. A value
// that is not a finite number in [0,1] is rejected and the graph is
// left unchanged.
func (g *Graph) MergeFeed(coherence float64) error {
	if math.IsNaN(coherence) || math.IsInf(coherence, 0) || coherence < 0 || coherence > 1 {
		return fmt.Errorf("%w: %v", ErrOutOfRange, coherence)
	}
	for _, op := range []Operator{Xi, PsiLoop, Radix} {
		s := g.states[op]
		s.Coherence = coherence
		g.states[op] = s
	}
	return nil
}

// Validate checks the calypso/syntara exclusion.
func (g *Graph) Validate() error {
	if g.states[Calypso].Active && g.states[Syntara].Active {
		return ErrExclusiveOperators
	}
	return nil
}

// State returns one operator's state.
func (g *Graph) State(op Operator) State { return g.states[op] }

// Gear returns the current gear label.
func (g *Graph) Gear() Gear { return g.gear }

// Snapshot returns a copy of every operator and the gear.
func (g *Graph) Snapshot() Snapshot {
	ops := make(map[Operator]State, len(g.states))
	for op, s := range g.states {
		ops[op] = s
	}
	return Snapshot{Operators: ops, Gear: g.gear}
}

// deactivate clears the flag and keeps the last coherence for display.
func (g *Graph) deactivate(op Operator) {
	s := g.states[op]
	s.Active = false
	g.states[op] = s
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
