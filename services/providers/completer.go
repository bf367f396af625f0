package providers

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when a provider answers without any choices.
var ErrEmptyResponse = errors.New("provider returned no choices")

// CompletionOptions holds the sampling parameters applied to every call.
type CompletionOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Completer turns a Provider into a system+user prompt to text function.
type Completer struct {
	provider Provider
	opts     CompletionOptions
}

// NewCompleter creates a Completer bound to a provider
func NewCompleter(provider Provider, opts CompletionOptions) *Completer {
	return &Completer{provider: provider, opts: opts}
}

// Complete sends one system and one user message and returns the first choice's content.
func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	req := &ChatRequest{
		Model: c.opts.Model,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	}

	resp, err := c.provider.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return strings.TrimSpace(resp.FirstContent()), nil
}

// Name returns the underlying provider name
func (c *Completer) Name() string {
	return c.provider.Name()
}
