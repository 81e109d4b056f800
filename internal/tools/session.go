package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// SessionStartTool handles the breath_session_start MCP tool.
type SessionStartTool struct {
	engine Engine
}

// NewSessionStartTool creates a SessionStartTool.
func NewSessionStartTool(e Engine) *SessionStartTool {
	return &SessionStartTool{engine: e}
}

// Definition returns the MCP tool definition for breath_session_start.
func (t *SessionStartTool) Definition() mcp.Tool {
	return mcp.NewTool("breath_session_start",
		mcp.WithDescription(
			"Start a breath session. Resets live phase state, the phi-sync streak and the "+
				"operator graph. Persisted statistics are kept. A running session is replaced.",
		),
	)
}

// Handle processes the breath_session_start tool call.
func (t *SessionStartTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s := t.engine.StartSession()
	return mcp.NewToolResultText(fmt.Sprintf(
		"Session %s started. Call breath_inhale to begin the first cycle.", s.SessionID,
	)), nil
}

// SessionEndTool handles the breath_session_end MCP tool.
type SessionEndTool struct {
	engine Engine
}

// NewSessionEndTool creates a SessionEndTool.
func NewSessionEndTool(e Engine) *SessionEndTool {
	return &SessionEndTool{engine: e}
}

// Definition returns the MCP tool definition for breath_session_end.
func (t *SessionEndTool) Definition() mcp.Tool {
	return mcp.NewTool("breath_session_end",
		mcp.WithDescription("End the breath session and clear its live state. Persisted statistics are kept."),
	)
}

// Handle processes the breath_session_end tool call.
func (t *SessionEndTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	before := t.engine.State()
	if !before.Active {
		return mcp.NewToolResultText("No active session."), nil
	}
	s := t.engine.EndSession()
	return mcp.NewToolResultText(fmt.Sprintf(
		"Session %s ended after %d cycle(s).\n\n%s",
		before.SessionID, len(before.History), RenderCounters(s.Counters),
	)), nil
}
