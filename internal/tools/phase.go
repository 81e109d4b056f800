package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/coherence/internal/engine"
	"github.com/mark3labs/mcp-go/mcp"
)

// PhaseTool handles one phase-transition tool (breath_inhale,
// breath_exhale or breath_hold).
type PhaseTool struct {
	name        string
	description string
	verb        string
	begin       func() engine.Snapshot
	engine      Engine
}

// NewInhaleTool creates the breath_inhale tool. An inhale that follows
// an exhale completes a cycle.
func NewInhaleTool(e Engine) *PhaseTool {
	return &PhaseTool{
		name:        "breath_inhale",
		description: "Mark the start of an inhale. If an exhale was in progress, the previous inhale/exhale pair is scored as a completed cycle (symmetry, phi-sync, streak) and the operator graph is updated.",
		verb:        "Inhale",
		begin:       e.BeginInhale,
		engine:      e,
	}
}

// NewExhaleTool creates the breath_exhale tool.
func NewExhaleTool(e Engine) *PhaseTool {
	return &PhaseTool{
		name:        "breath_exhale",
		description: "Mark the start of an exhale. The elapsed inhale is carried forward until the next inhale completes the cycle.",
		verb:        "Exhale",
		begin:       e.BeginExhale,
		engine:      e,
	}
}

// NewHoldTool creates the breath_hold tool.
func NewHoldTool(e Engine) *PhaseTool {
	return &PhaseTool{
		name:        "breath_hold",
		description: "Mark the start of a breath retention. No cycle is completed; hold time is not scored as inhale or exhale.",
		verb:        "Hold",
		begin:       e.BeginHold,
		engine:      e,
	}
}

// Definition returns the MCP tool definition.
func (t *PhaseTool) Definition() mcp.Tool {
	return mcp.NewTool(t.name, mcp.WithDescription(t.description))
}

// Handle processes the phase tool call.
func (t *PhaseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	before := t.engine.Counters().TotalCycles
	s := t.begin()
	if !s.Active {
		return mcp.NewToolResultText(noSessionNote), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s started.\n", t.verb))

	if last, ok := s.LastCycle(); ok && s.Counters.TotalCycles > before {
		sb.WriteString(fmt.Sprintf(
			"\nCycle completed: inhale %s, exhale %s, symmetry %.2f, phi-sync %s.\n",
			ms(last.InhaleMs), ms(last.ExhaleMs), last.Symmetry, yesNo(last.PhiSync),
		))
		sb.WriteString(fmt.Sprintf("Streak %d, gear %s", s.Sustained, s.Gear))
		if s.BloomReady {
			sb.WriteString(", bloom ready")
		}
		sb.WriteString(".\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}
