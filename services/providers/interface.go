package providers

import (
	"context"
	"errors"
	"time"
)

// Chat roles understood by OpenAI-compatible endpoints
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider is a chat-completion backend. Groq, OpenAI and local servers all
// speak the same wire format and share one adapter.
type Provider interface {
	Name() string
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	IsAvailable(ctx context.Context) bool
}

// ChatRequest is the provider-neutral completion request. Zero values for
// MaxTokens, Temperature and TopP leave the provider default in place.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the provider-neutral completion result
type ChatResponse struct {
	ID       string        `json:"id"`
	Model    string        `json:"model"`
	Provider string        `json:"provider"`
	Choices  []Choice      `json:"choices"`
	Usage    Usage         `json:"usage"`
	Latency  time.Duration `json:"latency"`
	Created  time.Time     `json:"created"`
}

// FirstContent returns the text of the first choice, or "" when there is none
func (r *ChatResponse) FirstContent() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"` // stop, length, content_filter
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ProviderConfig configures one OpenAI-compatible endpoint.
type ProviderConfig struct {
	// Name is the registry key, e.g. "groq"
	Name         string
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration

	// MaxRetries counts attempts after the first; only retryable errors
	// (transport failures, 429, 5xx) are retried.
	MaxRetries int
	RetryDelay time.Duration
	Headers    map[string]string
}

// DefaultProviderConfig matches the LLM defaults in config.New
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout:    60 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Second,
		Headers:    make(map[string]string),
	}
}

// ProviderError is a failed provider call. StatusCode is 0 for transport errors.
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

func NewProviderError(provider, code, message string, statusCode int, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable reports whether err is a ProviderError marked retryable
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return false
}
