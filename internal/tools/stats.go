package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatsTool handles the breath_stats MCP tool.
type StatsTool struct {
	engine Engine
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(e Engine) *StatsTool {
	return &StatsTool{engine: e}
}

// Definition returns the MCP tool definition for breath_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("breath_stats",
		mcp.WithDescription(
			"Show statistics persisted across sessions: total cycles, best symmetry and the longest phi-sync streak.",
		),
		withFormat(),
	)
}

// Handle processes the breath_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := formatArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c := t.engine.Counters()
	if format == formatJSON {
		return jsonResult(c), nil
	}
	return mcp.NewToolResultText(RenderCounters(c)), nil
}
