package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the coherence-status MCP prompt.
// It instructs the AI to read and summarize the engine state.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("coherence-status",
		mcp.WithPromptDescription(
			"Summarize the breath engine: current phase, phi-sync streak, "+
				"active operators, gear and the external feed.",
		),
	)
}

// Handle processes the coherence-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Coherence Engine Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `breath_state` (or read `coherence://engine/state`) and `breath_stats`.\n\n" +
						"Then:\n" +
						"1. Tell me whether a session is running and which phase I'm in\n" +
						"2. Show the last few cycles with their symmetry and whether they were phi-sync\n" +
						"3. List the active operators and the gear, and explain what the gear means\n" +
						"4. Tell me how many more phi-sync cycles I need for bloom\n" +
						"5. Mention the external coherence feed only if it is connected",
				),
			},
		},
	}, nil
}
