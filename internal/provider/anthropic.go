package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

const (
	anthropicURL     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	anthropicMaxTok  = 1024
)

// AnthropicProvider implements Provider against the Anthropic Messages API.
type AnthropicProvider struct {
	name        string
	apiKey      string
	model       string
	temperature float64
	endpoint    string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewAnthropic creates an Anthropic provider. An empty endpoint uses the
// public API URL.
func NewAnthropic(name, endpoint, apiKey, model string, temperature float64, limiter *rate.Limiter) *AnthropicProvider {
	if endpoint == "" {
		endpoint = anthropicURL
	}
	return &AnthropicProvider{
		name:        name,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		endpoint:    endpoint,
		httpClient:  &http.Client{},
		limiter:     limiter,
	}
}

// Name returns the provider identifier.
func (p *AnthropicProvider) Name() string {
	return p.name
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Chat sends messages and returns the complete response.
// System messages are merged into the request system field; the messages
// list itself carries only user/assistant turns, as the API requires.
func (p *AnthropicProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	var system strings.Builder
	turns := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(m.Content)
			continue
		}
		turns = append(turns, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	if len(turns) == 0 {
		turns = append(turns, anthropicMessage{Role: RoleUser, Content: "Begin."})
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       p.model,
		MaxTokens:   anthropicMaxTok,
		Temperature: p.temperature,
		System:      system.String(),
		Messages:    turns,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Content) == 0 {
		return "", errors.New("empty response")
	}

	return apiResp.Content[0].Text, nil
}
