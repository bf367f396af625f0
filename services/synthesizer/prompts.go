package synthesizer

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

const defaultSuggestionSystemPrompt = `You are a financial insights assistant. Your job is to convert transaction analysis data into clear, actionable suggestions.

Rules:
1. Generate exactly 3 distinct suggestions
2. Each suggestion should be practical and actionable
3. Make suggestions relevant to personal finance management
4. Keep each suggestion to 1-2 sentences
5. Focus on helping users improve their financial habits`

const defaultQuerySystemPrompt = `You are a financial advisor AI. You analyze transaction data and provide comprehensive, helpful answers.

Rules:
1. Provide one clear, comprehensive answer
2. Base your response on the provided context
3. If the context doesn't fully address the question, say so
4. Give practical, actionable advice when appropriate
5. Be conversational but professional`

// Prompts are the system prompts sent with each model call.
type Prompts struct {
	SuggestionSystem string `yaml:"suggestion_system"`
	QuerySystem      string `yaml:"query_system"`
}

// DefaultPrompts returns the built-in system prompts
func DefaultPrompts() Prompts {
	return Prompts{
		SuggestionSystem: defaultSuggestionSystemPrompt,
		QuerySystem:      defaultQuerySystemPrompt,
	}
}

// LoadPrompts reads a YAML override file. Keys that are missing or blank
// keep their defaults. An empty file is an error so a half-written file
// never resets the prompts.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()

	data, err := os.ReadFile(path)
	if err != nil {
		return prompts, fmt.Errorf("read prompts: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return prompts, fmt.Errorf("prompts file %s is empty", path)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return prompts, fmt.Errorf("parse prompts: %w", err)
	}

	if s := strings.TrimSpace(override.SuggestionSystem); s != "" {
		prompts.SuggestionSystem = s
	}
	if s := strings.TrimSpace(override.QuerySystem); s != "" {
		prompts.QuerySystem = s
	}

	return prompts, nil
}

// PromptStore holds the active prompts and allows swapping them while
// requests are in flight.
type PromptStore struct {
	current atomic.Pointer[Prompts]
}

// NewPromptStore creates a store holding p
func NewPromptStore(p Prompts) *PromptStore {
	s := &PromptStore{}
	s.Set(p)
	return s
}

// Get returns the active prompts
func (s *PromptStore) Get() Prompts {
	return *s.current.Load()
}

// Set replaces the active prompts
func (s *PromptStore) Set(p Prompts) {
	s.current.Store(&p)
}
