// Package feed pulls scalar coherence readings from an external
// coherence service over MCP.
//
// The service (coherence-glove) exposes a coherence_get_state tool.
// Client wraps one request/response exchange with a bounded timeout and
// keeps a connected/disconnected status; Poller drives Client on a
// fixed interval and hands usable samples to a Sink. Every failure
// degrades silently to "no signal".
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names on the coherence service.
const (
	ToolGetState   = "coherence_get_state"
	ToolPushBreath = "coherence_push_breath"
	ToolReset      = "coherence_reset"
)

// BandOrder names the five band amplitudes in payload order.
var BandOrder = [5]string{"ULTRA", "SLOW", "CORE", "FAST", "RAPID"}

// Consent levels reported by the service.
const (
	ConsentFull       = "FULL_CONSENT"
	ConsentDiminished = "DIMINISHED"
	ConsentSuspended  = "SUSPENDED"
	ConsentEmergency  = "EMERGENCY"
)

var validConsent = map[string]bool{
	ConsentFull:       true,
	ConsentDiminished: true,
	ConsentSuspended:  true,
	ConsentEmergency:  true,
}

// Parse errors. All of them mean the sample is discarded.
var (
	ErrNoContent     = errors.New("feed: result has no text content")
	ErrToolError     = errors.New("feed: tool reported an error")
	ErrMalformed     = errors.New("feed: malformed payload")
	ErrOutOfRange    = errors.New("feed: scalar coherence out of range")
	ErrServiceIdle   = errors.New("feed: service has no coherence state yet")
	ErrMissingScalar = errors.New("feed: payload has no scalarCoherence")
)

// Sample is one validated reading from the coherence service.
type Sample struct {
	ScalarCoherence float64    `json:"scalarCoherence"`
	Intentionality  float64    `json:"intentionality"`
	BreathEntrained bool       `json:"breathEntrained"`
	ConsentLevel    string     `json:"consentLevel"`
	BandAmplitudes  [5]float64 `json:"bandAmplitudes"`
	DominantBand    string     `json:"dominantBand"`
	ReceivedAt      time.Time  `json:"receivedAt"`
}

// statePayload is the wire shape of coherence_get_state. Pointers tell
// missing fields apart from zero values.
type statePayload struct {
	Active          *bool     `json:"active"`
	ScalarCoherence *float64  `json:"scalarCoherence"`
	Intentionality  *float64  `json:"intentionality"`
	BreathEntrained *bool     `json:"breathEntrained"`
	ConsentLevel    *string   `json:"consentLevel"`
	BandAmplitudes  []float64 `json:"bandAmplitudes"`
	DominantBand    *string   `json:"dominantBand"`
	Error           *string   `json:"error"`
}

// ParseState validates a coherence_get_state result.
//
// The scalar must be present and inside [0,1]; anything else discards
// the sample. Auxiliary fields are clamped or defaulted.
func ParseState(res *mcp.CallToolResult, receivedAt time.Time) (Sample, error) {
	text, err := resultText(res)
	if err != nil {
		return Sample{}, err
	}

	var p statePayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.Error != nil {
		return Sample{}, fmt.Errorf("%w: %s", ErrToolError, *p.Error)
	}
	if p.Active != nil && !*p.Active {
		return Sample{}, ErrServiceIdle
	}
	if p.ScalarCoherence == nil {
		return Sample{}, ErrMissingScalar
	}
	scalar := *p.ScalarCoherence
	if math.IsNaN(scalar) || scalar < 0 || scalar > 1 {
		return Sample{}, fmt.Errorf("%w: %v", ErrOutOfRange, scalar)
	}

	s := Sample{
		ScalarCoherence: scalar,
		ConsentLevel:    ConsentSuspended,
		DominantBand:    "CORE",
		ReceivedAt:      receivedAt,
	}
	if p.Intentionality != nil {
		s.Intentionality = clamp01(*p.Intentionality)
	}
	if p.BreathEntrained != nil {
		s.BreathEntrained = *p.BreathEntrained
	}
	if p.ConsentLevel != nil && validConsent[*p.ConsentLevel] {
		s.ConsentLevel = *p.ConsentLevel
	}
	for i := 0; i < len(s.BandAmplitudes) && i < len(p.BandAmplitudes); i++ {
		s.BandAmplitudes[i] = clamp01(p.BandAmplitudes[i])
	}
	if p.DominantBand != nil && isBand(*p.DominantBand) {
		s.DominantBand = *p.DominantBand
	}
	return s, nil
}

// resultText returns the first text block of a tool result.
func resultText(res *mcp.CallToolResult) (string, error) {
	if res == nil {
		return "", ErrNoContent
	}
	for _, c := range res.Content {
		var text string
		switch tc := c.(type) {
		case mcp.TextContent:
			text = tc.Text
		case *mcp.TextContent:
			text = tc.Text
		default:
			continue
		}
		if res.IsError {
			return "", fmt.Errorf("%w: %s", ErrToolError, text)
		}
		return text, nil
	}
	if res.IsError {
		return "", ErrToolError
	}
	return "", ErrNoContent
}

func isBand(name string) bool {
	for _, b := range BandOrder {
		if b == name {
			return true
		}
	}
	return false
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
