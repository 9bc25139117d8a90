package provider

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAIProvider implements Provider for any OpenAI-compatible chat
// completions endpoint (api.openai.com, local gateways, proxies).
type OpenAIProvider struct {
	name        string
	client      *openai.Client
	model       string
	temperature float64
	limiter     *rate.Limiter
}

// NewOpenAI creates a provider against an OpenAI-compatible endpoint.
// An empty endpoint keeps the SDK default base URL.
func NewOpenAI(name, endpoint, apiKey, model string, temperature float64, limiter *rate.Limiter) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		cfg.BaseURL = strings.TrimRight(endpoint, "/")
	}
	return &OpenAIProvider{
		name:        name,
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		limiter:     limiter,
	}
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Chat sends messages and returns the complete response.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: float32(p.temperature),
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// toOpenAIMessages converts provider-agnostic messages to the SDK format.
// The chat completions API requires system messages first, so they are
// collected and merged into a single leading message.
func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	var system strings.Builder
	rest := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, m := range messages {
		if m.Role == RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(m.Content)
			continue
		}
		rest = append(rest, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	result := make([]openai.ChatCompletionMessage, 0, len(rest)+1)
	if system.Len() > 0 {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system.String(),
		})
	}
	return append(result, rest...)
}
