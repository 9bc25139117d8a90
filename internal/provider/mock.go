package provider

import (
	"context"
	"sync"
)

// MockProvider is a test provider that returns scripted responses.
type MockProvider struct {
	mu        sync.Mutex
	name      string
	responses []string
	next      int
	chatErr   error
	calls     int
	lastMsgs  []Message
}

// NewMock creates a mock provider that always returns response.
func NewMock(name, response string) *MockProvider {
	return &MockProvider{
		name:      name,
		responses: []string{response},
	}
}

// NewMockScript creates a mock provider that returns the given responses
// in order, repeating the last one once the script is exhausted.
func NewMockScript(name string, responses ...string) *MockProvider {
	return &MockProvider{
		name:      name,
		responses: responses,
	}
}

// WithChatError sets an error returned from every Chat call.
func (p *MockProvider) WithChatError(err error) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chatErr = err
	return p
}

// Name returns the provider identifier.
func (p *MockProvider) Name() string {
	return p.name
}

// Chat returns the next scripted response or the configured error.
func (p *MockProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	p.lastMsgs = append([]Message(nil), messages...)
	if p.chatErr != nil {
		return "", p.chatErr
	}
	if len(p.responses) == 0 {
		return "", ErrGeneration
	}

	resp := p.responses[p.next]
	if p.next < len(p.responses)-1 {
		p.next++
	}
	return resp, nil
}

// Calls returns how many Chat calls the mock has received.
func (p *MockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// LastMessages returns a copy of the messages from the most recent call.
func (p *MockProvider) LastMessages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.lastMsgs...)
}
