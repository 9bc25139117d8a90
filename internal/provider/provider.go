// Package provider defines the text-generation interface and implementations.
//
// Every AI-backed step in the simulation goes through a Provider. Providers
// are treated as untrusted, failable collaborators: any transport error,
// timeout or malformed payload is a generation failure, and callers degrade
// to their documented fallbacks instead of propagating it.
package provider

import (
	"context"
	"errors"
)

// ErrProviderNotFound is returned when a requested provider doesn't exist.
var ErrProviderNotFound = errors.New("provider not found")

// ErrGeneration marks any failure of a generation call: unreachable
// backend, timeout, empty or non-parseable output.
var ErrGeneration = errors.New("generation failed")

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string
	Content string
}

// Provider defines the interface for text-generation backends.
type Provider interface {
	// Name returns the provider's identifier.
	Name() string

	// Chat sends messages and returns the complete response text.
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Registry holds available providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
