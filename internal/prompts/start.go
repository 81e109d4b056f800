// Package prompts implements MCP prompt handlers for the breath engine.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
)

// defaultPaceSeconds reaches the phi-sync floor with a little margin.
const defaultPaceSeconds = 12

// PracticePrompt handles the breath-practice MCP prompt.
// It guides the AI through a paced session aimed at bloom.
type PracticePrompt struct{}

// NewPracticePrompt creates a PracticePrompt.
func NewPracticePrompt() *PracticePrompt {
	return &PracticePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *PracticePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("breath-practice",
		mcp.WithPromptDescription(
			"Start a paced breath session. The assistant marks each inhale and exhale "+
				"and reports symmetry, the phi-sync streak and bloom as they happen.",
		),
		mcp.WithArgument("pace_seconds",
			mcp.ArgumentDescription("Seconds per inhale and per exhale. Phi-sync needs at least 11. Default: 12"),
		),
	)
}

// Handle processes the breath-practice prompt request.
func (p *PracticePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	pace := defaultPaceSeconds
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["pace_seconds"]; ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				pace = n
			}
		}
	}

	note := ""
	if pace < 11 {
		note = fmt.Sprintf("\n\nNote: a %ds pace is below the 11s phi-sync floor, so cycles will score symmetry but never phi-sync.", pace)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Paced breath session (%ds per phase)", pace),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to practice paced breathing at %d seconds per phase.\n\n"+
						"Please:\n"+
						"1. Run `breath_session_start`\n"+
						"2. Tell me to breathe in and run `breath_inhale`; after %d seconds tell me to breathe out and run `breath_exhale`\n"+
						"3. Keep alternating. After each `breath_inhale` that completes a cycle, tell me the symmetry and the streak\n"+
						"4. When bloom is reached (three phi-sync cycles in a row), tell me and show `breath_state`\n"+
						"5. When I say stop, run `breath_session_end` and summarize with `breath_stats`%s",
					pace, pace, note,
				)),
			},
		},
	}, nil
}
