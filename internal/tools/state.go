package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StateTool handles the breath_state MCP tool. It refreshes the live
// counters before reading, so an idle host still sees elapsed time.
type StateTool struct {
	engine Engine
}

// NewStateTool creates a StateTool.
func NewStateTool(e Engine) *StateTool {
	return &StateTool{engine: e}
}

// Definition returns the MCP tool definition for breath_state.
func (t *StateTool) Definition() mcp.Tool {
	return mcp.NewTool("breath_state",
		mcp.WithDescription(
			"Show the current breath state: phase and live durations, phi-sync, the sustained "+
				"streak, bloom readiness, recent cycles, every operator's activation and "+
				"coherence, the gear, and the external feed status.",
		),
		withFormat(),
	)
}

// Handle processes the breath_state tool call.
func (t *StateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := formatArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s := t.engine.State()
	if format == formatJSON {
		return jsonResult(s), nil
	}
	return mcp.NewToolResultText(RenderSnapshot(s)), nil
}
