// Package prompt builds the system instruction sent ahead of every turn.
package prompt

import (
	"strings"

	"github.com/suPer8Hu/mirror/internal/principles"
)

const (
	ToneDirective = "You are a compassionate, patient, and measured mirror. " +
		"Keep a neutral, reflective tone and ask at most one or two open questions per reply."

	MemoriesHeader   = "Here are some things I know about the user:"
	PrinciplesHeader = "Guiding principles:"
	QuestionsHeader  = "If it helps the reflection, you may invite the user with one of these questions:"
)

// ComposeSystemPrompt renders the system prompt for one turn. The output depends
// only on memories, which are expected newest first; block order is
// tone, memories, principles, questions.
func ComposeSystemPrompt(memories []string) string {
	blocks := make([]string, 0, 4)
	blocks = append(blocks, ToneDirective)

	if mem := bulletBlock(MemoriesHeader, memories); mem != "" {
		blocks = append(blocks, mem)
	}

	ps := principles.Principles()
	if len(ps) > 0 {
		blocks = append(blocks, strings.TrimSpace(ps[0]))
		if rest := bulletBlock(PrinciplesHeader, ps[1:]); rest != "" {
			blocks = append(blocks, rest)
		}
	}

	if qs := bulletBlock(QuestionsHeader, principles.CandidateQuestions()); qs != "" {
		blocks = append(blocks, qs)
	}

	return strings.Join(blocks, "\n\n")
}

func bulletBlock(header string, items []string) string {
	var b strings.Builder
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(header)
		}
		b.WriteString("\n- ")
		b.WriteString(it)
	}
	return b.String()
}
