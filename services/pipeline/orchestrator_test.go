package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/upb/insight-rag/internal/observability"
	"github.com/upb/insight-rag/models"
	"github.com/upb/insight-rag/services"
)

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) Initialize(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRetriever) Search(ctx context.Context, vector []float32, topK int) ([]models.RankedRecord, error) {
	args := m.Called(ctx, vector, topK)
	if v := args.Get(0); v != nil {
		return v.([]models.RankedRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRetriever) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRetriever) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockSynthesizer struct {
	mock.Mock
}

func (m *mockSynthesizer) GenerateSuggestions(ctx context.Context, records []models.RankedRecord) ([]models.Suggestion, error) {
	args := m.Called(ctx, records)
	if v := args.Get(0); v != nil {
		return v.([]models.Suggestion), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSynthesizer) GenerateAnswer(ctx context.Context, records []models.RankedRecord, query string) (string, error) {
	args := m.Called(ctx, records, query)
	return args.String(0), args.Error(1)
}

var (
	queryVector = []float32{0.1, 0.2, 0.3}
	diningOut   = []models.RankedRecord{
		{ID: 1, Description: "You spend 40% of income on dining out", Rank: 1, Confidence: 0.91},
	}
)

func newTestOrchestrator() (*Orchestrator, *mockEmbedder, *mockRetriever, *mockSynthesizer) {
	e, r, s := &mockEmbedder{}, &mockRetriever{}, &mockSynthesizer{}
	return New(e, r, s, 0, zap.NewNop()), e, r, s
}

func TestNew_DefaultTopK(t *testing.T) {
	o := New(nil, nil, nil, 0, zap.NewNop())
	assert.Equal(t, DefaultTopK, o.topK)

	o = New(nil, nil, nil, 5, zap.NewNop())
	assert.Equal(t, 5, o.topK)
}

func TestTopSuggestions_EndToEnd(t *testing.T) {
	o, e, r, s := newTestOrchestrator()
	ctx := context.Background()

	e.On("Embed", ctx, "how can I save").Return(queryVector, nil)
	r.On("Search", ctx, queryVector, DefaultTopK).Return(diningOut, nil)
	s.On("GenerateSuggestions", ctx, diningOut).Return([]models.Suggestion{
		{Text: "Cook at home three nights a week", Confidence: 0.91},
		{Text: "Set a monthly dining budget", Confidence: 0.5},
		{Text: "Track restaurant spending weekly", Confidence: 0.5},
	}, nil)

	got := o.TopSuggestions(ctx, "how can I save")

	require.Len(t, got, 3)
	assert.Equal(t, "Cook at home three nights a week", got[0].Text)
	assert.Equal(t, 0.91, got[0].Confidence)
	e.AssertExpectations(t)
	r.AssertExpectations(t)
	s.AssertExpectations(t)
}

func TestTopSuggestions_TruncatesToThree(t *testing.T) {
	o, e, r, s := newTestOrchestrator()
	ctx := context.Background()

	e.On("Embed", ctx, "q").Return(queryVector, nil)
	r.On("Search", ctx, queryVector, DefaultTopK).Return(diningOut, nil)
	s.On("GenerateSuggestions", ctx, diningOut).Return([]models.Suggestion{
		{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}, {Text: "e"},
	}, nil)

	got := o.TopSuggestions(ctx, "q")
	assert.Len(t, got, 3)
	assert.Equal(t, "c", got[2].Text)
}

func TestTopSuggestions_EmptyStore(t *testing.T) {
	o, e, r, s := newTestOrchestrator()
	ctx := context.Background()

	e.On("Embed", ctx, "").Return(queryVector, nil)
	r.On("Search", ctx, queryVector, DefaultTopK).Return([]models.RankedRecord{}, nil)

	got := o.TopSuggestions(ctx, "")

	assert.Equal(t, []models.Suggestion{{Text: NoSuggestionsText, Confidence: 0}}, got)
	s.AssertNotCalled(t, "GenerateSuggestions", mock.Anything, mock.Anything)
}

func TestTopSuggestions_Degrades(t *testing.T) {
	tests := []struct {
		name      string
		embedErr  error
		searchErr error
		synthErr  error
		want      []models.Suggestion
	}{
		{
			name:     "embedding failure",
			embedErr: services.WrapEmbedding("embedding request failed", errors.New("connection refused")),
			want:     []models.Suggestion{{Text: "Error: connection refused", Confidence: 0}},
		},
		{
			name:     "untyped embedder error",
			embedErr: errors.New("model not loaded"),
			want:     []models.Suggestion{{Text: "Error: model not loaded", Confidence: 0}},
		},
		{
			name:      "retrieval failure",
			searchErr: services.WrapRetrieval("vector search failed", errors.New("relation does not exist")),
			want:      []models.Suggestion{{Text: NoSuggestionsText, Confidence: 0}},
		},
		{
			name:      "store not initialized",
			searchErr: services.ErrStoreNotInitialized,
			want:      []models.Suggestion{{Text: NoSuggestionsText, Confidence: 0}},
		},
		{
			name:     "synthesis failure",
			synthErr: services.WrapSynthesis("completion failed", errors.New("rate limited")),
			want: []models.Suggestion{
				{Text: "Error generating suggestions: rate limited", Confidence: 0},
				{Text: "Please try your request again", Confidence: 0},
				{Text: "Contact support if the issue persists", Confidence: 0},
			},
		},
		{
			name:     "untyped synthesizer error",
			synthErr: errors.New("boom"),
			want: []models.Suggestion{
				{Text: "Error generating suggestions: boom", Confidence: 0},
				{Text: "Please try your request again", Confidence: 0},
				{Text: "Contact support if the issue persists", Confidence: 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, e, r, s := newTestOrchestrator()
			ctx := context.Background()

			if tt.embedErr != nil {
				e.On("Embed", ctx, "q").Return(nil, tt.embedErr)
			} else {
				e.On("Embed", ctx, "q").Return(queryVector, nil)
			}
			if tt.searchErr != nil {
				r.On("Search", ctx, queryVector, DefaultTopK).Return(nil, tt.searchErr)
			} else {
				r.On("Search", ctx, queryVector, DefaultTopK).Return(diningOut, nil)
			}
			s.On("GenerateSuggestions", ctx, diningOut).Return(nil, tt.synthErr)

			got := o.TopSuggestions(ctx, "q")
			assert.Equal(t, tt.want, got)
			for _, sg := range got {
				assert.NoError(t, sg.Validate())
			}
		})
	}
}

func TestAnswerQuery_EndToEnd(t *testing.T) {
	o, e, r, s := newTestOrchestrator()
	ctx := context.Background()
	query := "where does my money go?"

	e.On("Embed", ctx, query).Return(queryVector, nil)
	r.On("Search", ctx, queryVector, DefaultTopK).Return(diningOut, nil)
	s.On("GenerateAnswer", ctx, diningOut, query).Return("Mostly dining out.", nil)

	got := o.AnswerQuery(ctx, query)

	assert.Equal(t, "Mostly dining out.", got.Answer)
	assert.Equal(t, []models.Source{
		{ID: 1, Title: "You spend 40% of income on dining out", Confidence: 0.91},
	}, got.Sources)
}

func TestAnswerQuery_EmptyStore(t *testing.T) {
	o, e, r, s := newTestOrchestrator()
	ctx := context.Background()

	e.On("Embed", ctx, "").Return(queryVector, nil)
	r.On("Search", ctx, queryVector, DefaultTopK).Return(nil, nil)

	got := o.AnswerQuery(ctx, "")

	assert.Equal(t, NotEnoughInfoAnswer, got.Answer)
	assert.NotNil(t, got.Sources)
	assert.Empty(t, got.Sources)
	s.AssertNotCalled(t, "GenerateAnswer", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnswerQuery_Degrades(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		o, e, _, _ := newTestOrchestrator()
		ctx := context.Background()
		e.On("Embed", ctx, "q").Return(nil, services.WrapEmbedding("embed", errors.New("timeout")))

		got := o.AnswerQuery(ctx, "q")
		assert.Equal(t, "I encountered an error while processing your question: timeout", got.Answer)
		assert.Empty(t, got.Sources)
	})

	t.Run("retrieval failure", func(t *testing.T) {
		o, e, r, _ := newTestOrchestrator()
		ctx := context.Background()
		e.On("Embed", ctx, "q").Return(queryVector, nil)
		r.On("Search", ctx, queryVector, DefaultTopK).Return(nil, errors.New("connection reset"))

		got := o.AnswerQuery(ctx, "q")
		assert.Equal(t, NotEnoughInfoAnswer, got.Answer)
		assert.Empty(t, got.Sources)
	})

	t.Run("synthesis failure keeps sources", func(t *testing.T) {
		o, e, r, s := newTestOrchestrator()
		ctx := context.Background()
		e.On("Embed", ctx, "q").Return(queryVector, nil)
		r.On("Search", ctx, queryVector, DefaultTopK).Return(diningOut, nil)
		s.On("GenerateAnswer", ctx, diningOut, "q").Return("", services.WrapSynthesis("completion failed", errors.New("503 upstream")))

		got := o.AnswerQuery(ctx, "q")
		assert.Equal(t, "I encountered an error while analyzing your question: 503 upstream. "+
			"Please try rephrasing your question or check if your database contains relevant transaction data.", got.Answer)
		require.Len(t, got.Sources, 1)
		assert.Equal(t, int64(1), got.Sources[0].ID)
	})
}

func TestDegradedLogIncludesRequestID(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e, r, s := &mockEmbedder{}, &mockRetriever{}, &mockSynthesizer{}
	o := New(e, r, s, 3, zap.New(core))

	ctx := observability.WithRequestID(context.Background(), "req-42")
	e.On("Embed", ctx, "q").Return(nil, services.WrapEmbedding("embed", errors.New("down")))

	o.TopSuggestions(ctx, "q")

	entries := logs.FilterMessage("pipeline degraded").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "suggestions", fields["operation"])
	assert.Equal(t, string(services.ErrorTypeEmbedding), fields["error_type"])
}

func TestInitialize(t *testing.T) {
	o, _, r, _ := newTestOrchestrator()
	ctx := context.Background()

	r.On("Initialize", ctx).Return(nil).Once()
	assert.NoError(t, o.Initialize(ctx))

	r.On("Initialize", ctx).Return(services.WrapRetrieval("connect", errors.New("refused"))).Once()
	err := o.Initialize(ctx)
	require.Error(t, err)
	assert.True(t, services.IsRetrievalError(err))
}

func TestCleanup_SwallowsErrors(t *testing.T) {
	o, _, r, _ := newTestOrchestrator()
	ctx := context.Background()

	r.On("Close", ctx).Return(errors.New("close failed")).Once()
	assert.NotPanics(t, func() { o.Cleanup(ctx) })

	r.On("Close", ctx).Return(nil).Once()
	o.Cleanup(ctx)
	r.AssertNumberOfCalls(t, "Close", 2)
}

func TestHealthCheck(t *testing.T) {
	o, _, r, _ := newTestOrchestrator()
	ctx := context.Background()

	r.On("HealthCheck", ctx).Return(services.ErrStoreNotInitialized)
	assert.True(t, services.IsNotInitializedError(o.HealthCheck(ctx)))
}
