package chat

import (
	"testing"

	"github.com/suPer8Hu/mirror/internal/ai"
)

func TestBuildContext(t *testing.T) {
	history := []Turn{
		{Role: ai.RoleUser, Content: "prev question"},
		{Role: ai.RoleAssistant, Content: "prev answer"},
	}
	result := BuildContext(history, "You are a mirror.", "new question")

	if len(result) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(result))
	}
	if result[0].Role != ai.RoleSystem || result[0].Content != "You are a mirror." {
		t.Errorf("unexpected system message: %+v", result[0])
	}
	if result[1].Role != ai.RoleUser || result[1].Content != "prev question" {
		t.Errorf("unexpected history[0]: %+v", result[1])
	}
	if result[2].Role != ai.RoleAssistant || result[2].Content != "prev answer" {
		t.Errorf("unexpected history[1]: %+v", result[2])
	}
	if result[3].Role != ai.RoleUser || result[3].Content != "new question" {
		t.Errorf("unexpected user message: %+v", result[3])
	}
}

func TestBuildContext_EmptyHistory(t *testing.T) {
	result := BuildContext(nil, "system", "hello")
	if len(result) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(result))
	}
	if result[0].Role != ai.RoleSystem {
		t.Errorf("expected system role, got %q", result[0].Role)
	}
	if result[1].Role != ai.RoleUser || result[1].Content != "hello" {
		t.Errorf("unexpected user message: %+v", result[1])
	}
}

func TestBuildContext_DropsStraySystemTurns(t *testing.T) {
	history := []Turn{
		{Role: ai.RoleSystem, Content: "old prompt"},
		{Role: ai.RoleUser, Content: "hi"},
	}
	result := BuildContext(history, "fresh prompt", "again")
	if len(result) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(result))
	}
	for _, m := range result[1:] {
		if m.Role == ai.RoleSystem {
			t.Fatalf("system prompt injected twice: %+v", result)
		}
	}
}
