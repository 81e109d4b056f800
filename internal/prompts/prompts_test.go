package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, r *mcp.GetPromptResult) string {
	t.Helper()
	if len(r.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(r.Messages))
	}
	tc, ok := r.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want mcp.TextContent", r.Messages[0].Content)
	}
	return tc.Text
}

func TestStatusPrompt(t *testing.T) {
	p := NewStatusPrompt()
	if p.Definition().Name != "coherence-status" {
		t.Errorf("Name = %s", p.Definition().Name)
	}

	r, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := promptText(t, r); !strings.Contains(text, "breath_state") {
		t.Errorf("prompt should point at breath_state: %s", text)
	}
}

func TestPracticePrompt_DefaultPace(t *testing.T) {
	p := NewPracticePrompt()
	if p.Definition().Name != "breath-practice" {
		t.Errorf("Name = %s", p.Definition().Name)
	}

	r, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := promptText(t, r)
	if !strings.Contains(text, "12 seconds per phase") {
		t.Errorf("default pace missing: %s", text)
	}
	if strings.Contains(text, "below the 11s") {
		t.Error("default pace should not warn")
	}
}

func TestPracticePrompt_SlowPaceWarns(t *testing.T) {
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"pace_seconds": "6"}

	r, err := NewPracticePrompt().Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := promptText(t, r)
	if !strings.Contains(text, "6 seconds per phase") || !strings.Contains(text, "below the 11s") {
		t.Errorf("text = %s", text)
	}
}

func TestPracticePrompt_BadPaceFallsBack(t *testing.T) {
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"pace_seconds": "slow"}

	r, _ := NewPracticePrompt().Handle(context.Background(), req)
	if !strings.Contains(promptText(t, r), "12 seconds per phase") {
		t.Error("unparsable pace should fall back to the default")
	}
}
