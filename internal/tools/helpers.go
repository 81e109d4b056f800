// Package tools implements the MCP tool handlers for the breath engine.
//
// Each tool is a struct that receives its dependency through the
// constructor and exposes:
// - Definition() returning the mcp.Tool schema
// - Handle() processing a CallToolRequest
//
// Handlers never return a Go error. Caller mistakes come back as
// mcp.NewToolResultError; everything else is a text result.
package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/coherence/internal/engine"
	"github.com/HendryAvila/coherence/internal/graph"
	"github.com/HendryAvila/coherence/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

// Engine is the session controller surface the tools drive.
// *engine.Engine satisfies it.
type Engine interface {
	StartSession() engine.Snapshot
	EndSession() engine.Snapshot
	BeginInhale() engine.Snapshot
	BeginExhale() engine.Snapshot
	BeginHold() engine.Snapshot
	State() engine.Snapshot
	Counters() store.Counters
	SetGear(g graph.Gear) (engine.Snapshot, error)
}

// Output formats accepted by the read tools.
const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

func withFormat() mcp.ToolOption {
	return mcp.WithString("format",
		mcp.Description("Output format: 'markdown' (default, human readable) or 'json' (full snapshot)."),
		mcp.Enum(formatMarkdown, formatJSON),
	)
}

// formatArg reads the format argument, defaulting to markdown.
func formatArg(req mcp.CallToolRequest) (string, error) {
	f := strings.ToLower(strings.TrimSpace(req.GetString("format", formatMarkdown)))
	switch f {
	case "", formatMarkdown:
		return formatMarkdown, nil
	case formatJSON:
		return formatJSON, nil
	}
	return "", fmt.Errorf("invalid format %q: must be 'markdown' or 'json'", f)
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// noSessionNote is appended when a phase event arrives without a session.
const noSessionNote = "No active session. The event was ignored; call breath_session_start first."
