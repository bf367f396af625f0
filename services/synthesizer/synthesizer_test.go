package synthesizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/insight-rag/models"
	"github.com/upb/insight-rag/services"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func sampleRecords() []models.RankedRecord {
	return []models.RankedRecord{
		{ID: 1, Description: "You spend 40% of income on dining out", Rank: 1, Confidence: 0.91},
		{ID: 2, Description: "Subscriptions grew by 3 services this quarter", Rank: 2, Confidence: 0.74},
	}
}

func TestGenerateSuggestions_EmptyRecords(t *testing.T) {
	llm := new(mockCompleter)
	s := New(llm, nil, zap.NewNop())

	got, err := s.GenerateSuggestions(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, genericFallback(), got)

	llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateSuggestions(t *testing.T) {
	llm := new(mockCompleter)
	llm.On("Complete", mock.Anything, defaultSuggestionSystemPrompt, mock.MatchedBy(func(user string) bool {
		return strings.Contains(user, "1. You spend 40% of income on dining out (confidence: 0.91)") &&
			strings.Contains(user, "2. Subscriptions grew by 3 services this quarter (confidence: 0.74)")
	})).Return("1. Cook at home twice a week\n2) Cancel one streaming service", nil)

	s := New(llm, nil, zap.NewNop())

	got, err := s.GenerateSuggestions(context.Background(), sampleRecords())
	require.NoError(t, err)

	assert.Equal(t, []models.Suggestion{
		{Text: "Cook at home twice a week", Confidence: 0.91},
		{Text: "Cancel one streaming service", Confidence: 0.74},
		{Text: fillerSuggestion, Confidence: 0.5},
	}, got)
	for _, sug := range got {
		assert.NoError(t, sug.Validate())
	}

	llm.AssertExpectations(t)
}

func TestGenerateSuggestions_Truncates(t *testing.T) {
	llm := new(mockCompleter)
	llm.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("1. a\n2. b\n3. c\n1. d\n2. e", nil)

	got, err := New(llm, nil, zap.NewNop()).GenerateSuggestions(context.Background(), sampleRecords())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[2].Text)
}

func TestGenerateSuggestions_ModelFailure(t *testing.T) {
	llm := new(mockCompleter)
	llm.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("rate limit exceeded"))

	got, err := New(llm, nil, zap.NewNop()).GenerateSuggestions(context.Background(), sampleRecords())
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, services.IsSynthesisError(err))
	assert.EqualError(t, services.Cause(err), "rate limit exceeded")
}

func TestGenerateSuggestions_NoModel(t *testing.T) {
	_, err := New(nil, nil, zap.NewNop()).GenerateSuggestions(context.Background(), sampleRecords())
	assert.True(t, services.IsExternalError(err))
}

func TestGenerateAnswer_EmptyRecords(t *testing.T) {
	llm := new(mockCompleter)
	got, err := New(llm, nil, zap.NewNop()).GenerateAnswer(context.Background(), []models.RankedRecord{}, "anything")
	require.NoError(t, err)
	assert.Equal(t, InsufficientDataAnswer, got)
	llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateAnswer(t *testing.T) {
	llm := new(mockCompleter)
	llm.On("Complete", mock.Anything, defaultQuerySystemPrompt, mock.MatchedBy(func(user string) bool {
		return strings.HasPrefix(user, "User Question: I spend too much money on dining out\n") &&
			strings.Contains(user, "• You spend 40% of income on dining out (relevance: 0.91)") &&
			strings.Contains(user, "• Subscriptions grew by 3 services this quarter (relevance: 0.74)")
	})).Return("Try cooking at home more often.", nil)

	got, err := New(llm, nil, zap.NewNop()).GenerateAnswer(context.Background(), sampleRecords(), "I spend too much money on dining out")
	require.NoError(t, err)
	assert.Equal(t, "Try cooking at home more often.", got)
	llm.AssertExpectations(t)
}

func TestGenerateAnswer_ModelFailure(t *testing.T) {
	llm := new(mockCompleter)
	llm.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("timeout"))

	_, err := New(llm, nil, zap.NewNop()).GenerateAnswer(context.Background(), sampleRecords(), "q")
	assert.True(t, services.IsSynthesisError(err))
}

func TestGenerate_UsesCurrentPrompts(t *testing.T) {
	store := NewPromptStore(DefaultPrompts())
	llm := new(mockCompleter)
	llm.On("Complete", mock.Anything, "custom answer prompt", mock.Anything).Return("ok", nil)

	s := New(llm, store, zap.NewNop())
	assert.Same(t, store, s.Prompts())

	p := store.Get()
	p.QuerySystem = "custom answer prompt"
	store.Set(p)

	got, err := s.GenerateAnswer(context.Background(), sampleRecords(), "q")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	llm.AssertExpectations(t)
}

func TestGenerateAnswer_QueryFilter(t *testing.T) {
	llm := new(mockCompleter)
	llm.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(user string) bool {
		return strings.HasPrefix(user, "User Question: why is card [masked] charged?\n")
	})).Return("ok", nil)

	s := New(llm, nil, zap.NewNop())
	s.SetQueryFilter(func(q string) string {
		return strings.Replace(q, "4532015112830366", "[masked]", 1)
	})

	_, err := s.GenerateAnswer(context.Background(), sampleRecords(), "why is card 4532015112830366 charged?")
	require.NoError(t, err)
	llm.AssertExpectations(t)
}
