// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations
// and injects them into the tools, prompts and resources that depend
// on abstractions. No business logic lives here, only wiring.
package server

import (
	"github.com/HendryAvila/coherence/internal/prompts"
	"github.com/HendryAvila/coherence/internal/resources"
	"github.com/HendryAvila/coherence/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with every tool, prompt and resource
// registered against rt's engine.
func New(rt *Runtime) *server.MCPServer {
	s := server.NewMCPServer(
		"coherence",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	e := rt.Engine

	// --- Session lifecycle ---

	sessionStart := tools.NewSessionStartTool(e)
	s.AddTool(sessionStart.Definition(), sessionStart.Handle)

	sessionEnd := tools.NewSessionEndTool(e)
	s.AddTool(sessionEnd.Definition(), sessionEnd.Handle)

	// --- Phase events ---

	inhale := tools.NewInhaleTool(e)
	s.AddTool(inhale.Definition(), inhale.Handle)

	exhale := tools.NewExhaleTool(e)
	s.AddTool(exhale.Definition(), exhale.Handle)

	hold := tools.NewHoldTool(e)
	s.AddTool(hold.Definition(), hold.Handle)

	// --- Reads and collaborator controls ---

	state := tools.NewStateTool(e)
	s.AddTool(state.Definition(), state.Handle)

	stats := tools.NewStatsTool(e)
	s.AddTool(stats.Definition(), stats.Handle)

	gear := tools.NewSetGearTool(e)
	s.AddTool(gear.Definition(), gear.Handle)

	// --- Register prompts ---

	practicePrompt := prompts.NewPracticePrompt()
	s.AddPrompt(practicePrompt.Definition(), practicePrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(e)
	s.AddResource(resourceHandler.StateResource(), resourceHandler.HandleState)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)

	return s
}

func serverInstructions() string {
	return `You have access to coherence, a breath-phase coherence engine.

## WHAT IT DOES

The engine scores breathing cycles. You mark phase boundaries with
tools; the engine times each phase, scores every completed
inhale/exhale pair, and drives a small graph of operators from the
result.

## SESSION FLOW

1. breath_session_start
2. breath_inhale, then breath_exhale, alternating
3. Each breath_inhale that follows an exhale completes one cycle
4. breath_hold marks a retention; hold time is never scored
5. breath_session_end when the user stops

Phase events sent without a session are ignored, not errors.

## SCORING

- Symmetry is min(inhale, exhale) / max(inhale, exhale).
- A cycle is phi-sync when both halves last at least 11 seconds and
  symmetry is at least 0.85.
- Consecutive phi-sync cycles build a streak. Three in a row is bloom.
  Any non-phi-sync cycle resets the streak.

## GEAR

- N: neutral (default, or a single phi-sync cycle)
- A: accruing (phi-sync streak of two or more)
- J: junction (bloom)
- P / D: park / drift, set by you with breath_set_gear. They hold
  until a phi-sync cycle or bloom takes over.

## READING STATE

- breath_state: live phase timing, recent cycles, operators, gear, feed
- breath_stats: totals kept across sessions
- Resource coherence://engine/state: the same snapshot as JSON

When pacing a user, call breath_state sparingly; phase tools already
report each completed cycle.`
}
