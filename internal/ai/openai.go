package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIProvider goes through langchaingo's OpenAI client. BaseURL lets it target
// any compatible server (vLLM, Ollama's /v1, LM Studio).
type OpenAIProvider struct {
	llm   llms.Model
	model string
}

func NewOpenAIProvider(baseURL, token, model string) (*OpenAIProvider, error) {
	opts := []openai.Option{openai.WithToken(token)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return &OpenAIProvider{llm: llm, model: model}, nil
}

func langchainRole(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(langchainRole(m.Role), m.Content))
	}

	resp, err := p.llm.GenerateContent(ctx, content)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", errors.New("openai: empty response")
	}
	return resp.Choices[0].Content, nil
}
