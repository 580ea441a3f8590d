package chat

import "github.com/suPer8Hu/mirror/internal/ai"

// BuildContext orders the turns sent to the model: the system prompt, then the
// stored history, then the new user input. System turns in history are skipped
// so the prompt is never injected twice.
func BuildContext(history []Turn, systemPrompt, userText string) []ai.Message {
	out := make([]ai.Message, 0, len(history)+2)
	out = append(out, ai.Message{Role: ai.RoleSystem, Content: systemPrompt})
	for _, t := range history {
		if t.Role == ai.RoleSystem {
			continue
		}
		out = append(out, ai.Message{Role: t.Role, Content: t.Content})
	}
	return append(out, ai.Message{Role: ai.RoleUser, Content: userText})
}
