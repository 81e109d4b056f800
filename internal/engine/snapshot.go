package engine

import (
	"time"

	"github.com/HendryAvila/coherence/internal/breath"
	"github.com/HendryAvila/coherence/internal/feed"
	"github.com/HendryAvila/coherence/internal/graph"
	"github.com/HendryAvila/coherence/internal/outcome"
	"github.com/HendryAvila/coherence/internal/store"
)

// Snapshot is a point-in-time copy of the engine, shaped for JSON.
type Snapshot struct {
	SessionID     string                         `json:"sessionId,omitempty"`
	Active        bool                           `json:"active"`
	StartedAt     *time.Time                     `json:"startedAt,omitempty"`
	Live          breath.Live                    `json:"live"`
	PhiSyncActive bool                           `json:"phiSyncActive"`
	Sustained     int                            `json:"sustainedPhiCycles"`
	BloomReady    bool                           `json:"bloomReady"`
	History       []breath.Cycle                 `json:"history"`
	Operators     map[graph.Operator]graph.State `json:"operators"`
	Gear          graph.Gear                     `json:"gear"`
	ExternalGear  graph.Gear                     `json:"externalGear,omitempty"`
	Feed          feed.State                     `json:"feed"`
	Counters      store.Counters                 `json:"counters"`
	LastSave      *outcome.Outcome               `json:"lastSave,omitempty"`
	LastFeed      *outcome.Outcome               `json:"lastFeedMerge,omitempty"`
	Violations    uint64                         `json:"violations,omitempty"`
	TakenAt       time.Time                      `json:"takenAt"`
}

// LastCycle returns the most recent completed cycle.
func (s Snapshot) LastCycle() (breath.Cycle, bool) {
	if len(s.History) == 0 {
		return breath.Cycle{}, false
	}
	return s.History[len(s.History)-1], true
}

func (e *Engine) snapshotLocked() Snapshot {
	g := e.graph.Snapshot()
	s := Snapshot{
		SessionID:     e.sessionID,
		Active:        e.tracker.Active(),
		Live:          e.tracker.Live(),
		PhiSyncActive: e.metrics.PhiSyncActive(),
		Sustained:     e.metrics.Sustained(),
		BloomReady:    e.metrics.BloomReady(),
		History:       e.metrics.Recent(),
		Operators:     g.Operators,
		Gear:          g.Gear,
		ExternalGear:  e.graph.ExternalGear(),
		Counters:      e.counters,
		Violations:    e.violations,
		TakenAt:       e.clock.Now(),
	}
	if s.Active {
		at := e.startedAt
		s.StartedAt = &at
	}
	if e.feed != nil {
		s.Feed = e.feed.State()
	} else {
		s.Feed = feed.State{Status: feed.StatusAbsent}
	}
	if e.lastSave != nil {
		o := *e.lastSave
		s.LastSave = &o
	}
	if e.lastFeed != nil {
		o := *e.lastFeed
		s.LastFeed = &o
	}
	return s
}
