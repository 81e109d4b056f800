// Package store persists the cross-session breath statistics.
//
// The persisted form is a flat JSON record under a fixed key in a
// key/value table. Storage is best effort: reads that fail yield zero
// counters and writes that fail are logged and dropped, because these
// statistics must never block cycle completion.
package store

import (
	"encoding/json"
	"math"
)

// CountersKey is the key the counters record lives under.
const CountersKey = "coherence.session_counters"

// Counters are the aggregate statistics kept across sessions.
type Counters struct {
	TotalCycles          uint64  `json:"totalCycles"`
	BestSymmetry         float64 `json:"bestSymmetry"`
	LongestPhiSyncStreak uint64  `json:"longestPhiSyncStreak"`
}

// Observe folds one completed cycle into the counters.
func (c Counters) Observe(symmetry float64, streak int) Counters {
	c.TotalCycles++
	if symmetry > c.BestSymmetry && symmetry <= 1 {
		c.BestSymmetry = symmetry
	}
	if streak > 0 && uint64(streak) > c.LongestPhiSyncStreak {
		c.LongestPhiSyncStreak = uint64(streak)
	}
	return c
}

// record mirrors Counters with loose numeric types so that values
// written by other clients (plain JSON numbers) still decode.
type record struct {
	TotalCycles          float64 `json:"totalCycles"`
	BestSymmetry         float64 `json:"bestSymmetry"`
	LongestPhiSyncStreak float64 `json:"longestPhiSyncStreak"`
}

// EncodeCounters renders c as the persisted JSON record.
func EncodeCounters(c Counters) ([]byte, error) {
	return json.Marshal(c)
}

// DecodeCounters parses a persisted record. Missing or unknown fields
// are ignored; negative, non-finite or out-of-range values become 0.
// Any parse failure yields zero Counters and ok=false.
func DecodeCounters(data []byte) (c Counters, ok bool) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return Counters{}, false
	}
	return Counters{
		TotalCycles:          toCount(r.TotalCycles),
		BestSymmetry:         toUnit(r.BestSymmetry),
		LongestPhiSyncStreak: toCount(r.LongestPhiSyncStreak),
	}, true
}

func toCount(v float64) uint64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	// float64(math.MaxUint64) rounds up to 2^64, which uint64 cannot hold.
	if v >= float64(math.MaxUint64) {
		return math.MaxUint64
	}
	return uint64(v)
}

func toUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0
	}
	return v
}
