package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/upb/insight-rag/internal/observability"
	"github.com/upb/insight-rag/models"
	"github.com/upb/insight-rag/services"
)

// DefaultTopK is how many records each request retrieves
const DefaultTopK = 3

// Embedder converts a query into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever finds records similar to a vector and owns the store connection
type Retriever interface {
	Initialize(ctx context.Context) error
	Search(ctx context.Context, vector []float32, topK int) ([]models.RankedRecord, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// Synthesizer produces user-facing text from ranked records
type Synthesizer interface {
	GenerateSuggestions(ctx context.Context, records []models.RankedRecord) ([]models.Suggestion, error)
	GenerateAnswer(ctx context.Context, records []models.RankedRecord, query string) (string, error)
}

// Orchestrator runs embed, retrieve and synthesize for each request and
// turns any stage failure into a well-formed response.
type Orchestrator struct {
	embedder    Embedder
	retriever   Retriever
	synthesizer Synthesizer
	topK        int
	logger      *zap.Logger
}

// New creates an orchestrator. topK <= 0 uses DefaultTopK.
func New(embedder Embedder, retriever Retriever, synthesizer Synthesizer, topK int, logger *zap.Logger) *Orchestrator {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Orchestrator{
		embedder:    embedder,
		retriever:   retriever,
		synthesizer: synthesizer,
		topK:        topK,
		logger:      logger,
	}
}

// Initialize connects the retriever. A failure here should abort startup.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	if err := o.retriever.Initialize(ctx); err != nil {
		return err
	}
	o.logger.Info("pipeline initialized", zap.Int("top_k", o.topK))
	return nil
}

// Cleanup releases the retriever. Errors are logged and swallowed.
func (o *Orchestrator) Cleanup(ctx context.Context) {
	if err := o.retriever.Close(ctx); err != nil {
		o.logger.Error("pipeline cleanup failed", zap.Error(err))
		return
	}
	o.logger.Info("pipeline cleanup completed")
}

// HealthCheck reports whether the vector store is reachable
func (o *Orchestrator) HealthCheck(ctx context.Context) error {
	return o.retriever.HealthCheck(ctx)
}

// TopSuggestions returns at most three suggestions for query. It never fails.
func (o *Orchestrator) TopSuggestions(ctx context.Context, query string) []models.Suggestion {
	logger := observability.WithRequest(ctx, o.logger)

	records, err := o.retrieve(ctx, query)
	if err != nil {
		o.logDegraded(logger, "suggestions", err)
		return suggestionsFallback(err)
	}
	if len(records) == 0 {
		return noSuggestions()
	}

	suggestions, err := o.synthesizer.GenerateSuggestions(ctx, records)
	if err != nil {
		err = tagStage(err, services.ErrorTypeSynthesis)
		o.logDegraded(logger, "suggestions", err)
		return suggestionsFallback(err)
	}

	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	logger.Debug("suggestions generated", zap.Int("records", len(records)), zap.Int("suggestions", len(suggestions)))
	return suggestions
}

// AnswerQuery returns one answer and the records it is based on. It never fails.
func (o *Orchestrator) AnswerQuery(ctx context.Context, query string) models.AnswerResult {
	logger := observability.WithRequest(ctx, o.logger)

	records, err := o.retrieve(ctx, query)
	if err != nil {
		o.logDegraded(logger, "answer", err)
		return answerFallback(err, nil)
	}
	if len(records) == 0 {
		return models.NewAnswerResult(NotEnoughInfoAnswer, nil)
	}

	answer, err := o.synthesizer.GenerateAnswer(ctx, records, query)
	if err != nil {
		err = tagStage(err, services.ErrorTypeSynthesis)
		o.logDegraded(logger, "answer", err)
		return answerFallback(err, records)
	}

	logger.Debug("answer generated", zap.Int("sources", len(records)))
	return models.NewAnswerResult(answer, sourcesFor(records))
}

// retrieve runs the embedding and retrieval stages
func (o *Orchestrator) retrieve(ctx context.Context, query string) ([]models.RankedRecord, error) {
	vector, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, tagStage(err, services.ErrorTypeEmbedding)
	}

	records, err := o.retriever.Search(ctx, vector, o.topK)
	if err != nil {
		return nil, tagStage(err, services.ErrorTypeRetrieval)
	}
	return records, nil
}

func (o *Orchestrator) logDegraded(logger *zap.Logger, op string, err error) {
	logger.Warn("pipeline degraded",
		zap.String("operation", op),
		zap.String("error_type", string(services.GetErrorType(err))),
		zap.Error(err))
}

// tagStage gives untyped errors the kind of the stage that produced them
func tagStage(err error, stage services.ErrorType) error {
	if services.GetErrorType(err) != "" {
		return err
	}
	return services.WrapError(stage, string(stage), err)
}
