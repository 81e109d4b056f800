package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/coherence/internal/graph"
	"github.com/mark3labs/mcp-go/mcp"
)

// gearAuto clears the collaborator label.
const gearAuto = "auto"

// SetGearTool handles the breath_set_gear MCP tool.
type SetGearTool struct {
	engine Engine
}

// NewSetGearTool creates a SetGearTool.
func NewSetGearTool(e Engine) *SetGearTool {
	return &SetGearTool{engine: e}
}

// Definition returns the MCP tool definition for breath_set_gear.
func (t *SetGearTool) Definition() mcp.Tool {
	return mcp.NewTool("breath_set_gear",
		mcp.WithDescription(
			"Set a collaborator-owned gear label. 'P' (park) and 'D' (drift) are kept "+
				"while no breath-driven condition applies; phi-sync or bloom takes over. "+
				"'auto' clears the label. N, A and J are derived and cannot be set.",
		),
		mcp.WithString("gear",
			mcp.Required(),
			mcp.Description("Gear label: 'P', 'D' or 'auto'."),
			mcp.Enum(string(graph.GearPark), string(graph.GearDrift), gearAuto),
		),
	)
}

// Handle processes the breath_set_gear tool call.
func (t *SetGearTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := strings.TrimSpace(req.GetString("gear", ""))
	if raw == "" {
		return mcp.NewToolResultError("'gear' is required"), nil
	}

	var g graph.Gear
	if !strings.EqualFold(raw, gearAuto) {
		parsed, err := graph.ParseGear(strings.ToUpper(raw))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		g = parsed
	}

	s, err := t.engine.SetGear(g)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if g == "" {
		return mcp.NewToolResultText(fmt.Sprintf("Gear label cleared. Current gear: %s.", s.Gear)), nil
	}
	if s.Gear != g {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Gear label %s recorded. Current gear %s is breath-driven; %s applies once no breath condition holds.",
			g, s.Gear, g)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Gear set to %s.", s.Gear)), nil
}
