package graph

import "fmt"

// Gear is a single label summarizing engine state.
type Gear string

const (
	GearPark     Gear = "P" // disengaged, set by collaborators
	GearNeutral  Gear = "N"
	GearAccrue   Gear = "A" // phi-sync streak building
	GearDrift    Gear = "D" // exploration mode, set by collaborators
	GearJunction Gear = "J" // bloom
)

// ParseGear maps a label to a Gear.
func ParseGear(s string) (Gear, error) {
	switch g := Gear(s); g {
	case GearPark, GearNeutral, GearAccrue, GearDrift, GearJunction:
		return g, nil
	}
	return "", fmt.Errorf("invalid gear %q: must be one of: P, N, A, D, J", s)
}

// breathGear derives the gear from breath metrics alone. ok is false
// when no breath-driven condition applies.
func breathGear(in Input) (gear Gear, ok bool) {
	switch {
	case in.BloomReady:
		return GearJunction, true
	case in.PhiSync && in.Sustained >= SustainedForSigma:
		return GearAccrue, true
	case in.PhiSync:
		return GearNeutral, true
	}
	return GearNeutral, false
}

// DeriveGear is the pure gear function. external is the collaborator
// label (P, D or empty) kept when no breath condition applies.
func DeriveGear(in Input, external Gear) Gear {
	if g, ok := breathGear(in); ok {
		return g
	}
	if external != "" {
		return external
	}
	return GearNeutral
}

// deriveGear applies DeriveGear and retires the external label once a
// breath-driven condition has taken over.
func (g *Graph) deriveGear(in Input) Gear {
	if _, ok := breathGear(in); ok {
		g.external = ""
	}
	return DeriveGear(in, g.external)
}

// SetGear records a collaborator-owned label. Only P and D are
// accepted; the empty gear clears the label. The gear is re-derived
// from the last metrics update, so a label set while bloom or a
// phi-sync streak holds only shows once no breath condition applies.
func (g *Graph) SetGear(gear Gear) error {
	switch gear {
	case GearPark, GearDrift, "":
	default:
		return fmt.Errorf("gear %q is derived from breath metrics and cannot be set directly", gear)
	}
	g.external = gear
	g.gear = DeriveGear(g.last, g.external)
	return nil
}

// ExternalGear returns the collaborator label, if any.
func (g *Graph) ExternalGear() Gear { return g.external }
