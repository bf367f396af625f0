package synthesizer

import (
	"context"

	"go.uber.org/zap"

	"github.com/upb/insight-rag/models"
	"github.com/upb/insight-rag/services"
)

// InsufficientDataAnswer is returned by GenerateAnswer when there is nothing to cite.
const InsufficientDataAnswer = "I don't have enough transaction data to answer your question. Please ensure your database contains relevant financial insights."

// Completer sends a system and a user prompt to a language model
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Synthesizer turns ranked insight records into suggestions or answers.
type Synthesizer struct {
	llm         Completer
	prompts     *PromptStore
	queryFilter func(string) string
	logger      *zap.Logger
}

// New creates a synthesizer. A nil prompt store uses the defaults.
func New(llm Completer, prompts *PromptStore, logger *zap.Logger) *Synthesizer {
	if prompts == nil {
		prompts = NewPromptStore(DefaultPrompts())
	}
	return &Synthesizer{
		llm:     llm,
		prompts: prompts,
		logger:  logger,
	}
}

// Prompts exposes the prompt store so it can be reloaded
func (s *Synthesizer) Prompts() *PromptStore {
	return s.prompts
}

// SetQueryFilter installs a rewrite applied to user queries before they are
// placed in a prompt. Nil disables it.
func (s *Synthesizer) SetQueryFilter(f func(string) string) {
	s.queryFilter = f
}

// GenerateSuggestions returns exactly three suggestions. With no records it
// returns generic advice without calling the model. A model failure is
// returned as a synthesis error and no suggestions.
func (s *Synthesizer) GenerateSuggestions(ctx context.Context, records []models.RankedRecord) ([]models.Suggestion, error) {
	if len(records) == 0 {
		return genericFallback(), nil
	}

	content, err := s.complete(ctx, s.prompts.Get().SuggestionSystem, suggestionUserPrompt(suggestionContext(records)))
	if err != nil {
		return nil, err
	}

	parsed := parseSuggestions(content)
	if len(parsed) != SuggestionCount {
		s.logger.Debug("model returned unexpected suggestion count",
			zap.Int("parsed", len(parsed)))
	}

	return attachConfidence(normalizeSuggestions(parsed), records), nil
}

// GenerateAnswer returns the model's answer to query grounded on records.
func (s *Synthesizer) GenerateAnswer(ctx context.Context, records []models.RankedRecord, query string) (string, error) {
	if len(records) == 0 {
		return InsufficientDataAnswer, nil
	}

	if s.queryFilter != nil {
		query = s.queryFilter(query)
	}
	return s.complete(ctx, s.prompts.Get().QuerySystem, answerUserPrompt(query, answerContext(records)))
}

func (s *Synthesizer) complete(ctx context.Context, system, user string) (string, error) {
	if s.llm == nil {
		return "", services.ErrProviderUnavailable
	}

	content, err := s.llm.Complete(ctx, system, user)
	if err != nil {
		return "", services.WrapSynthesis("language model call failed", err)
	}
	return content, nil
}
