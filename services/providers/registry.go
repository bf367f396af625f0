package providers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrProviderNotFound          = errors.New("provider not found")
	ErrProviderAlreadyRegistered = errors.New("provider already registered")
)

// Registry maps provider names to providers. Names are matched without
// regard to case or surrounding spaces, so LLM_PROVIDER=Groq finds "groq".
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds p under p.Name()
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return errors.New("provider cannot be nil")
	}
	key := normalizeName(p.Name())
	if key == "" {
		return errors.New("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[key]; exists {
		return fmt.Errorf("%w: %s", ErrProviderAlreadyRegistered, key)
	}
	r.providers[key] = p
	return nil
}

// Remove drops the provider registered under name
func (r *Registry) Remove(name string) error {
	key := normalizeName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[key]; !exists {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, key)
	}
	delete(r.providers, key)
	return nil
}

// Lookup returns the provider registered under name
func (r *Registry) Lookup(name string) (Provider, error) {
	key := normalizeName(name)

	r.mu.RLock()
	p, exists := r.providers[key]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, key)
	}
	return p, nil
}

// Names lists registered provider names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
