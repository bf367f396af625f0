package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/insight-rag/internal/observability"
	"github.com/upb/insight-rag/models"
	"github.com/upb/insight-rag/utils"
)

// MaxQueryLength is the longest query accepted, in characters
const MaxQueryLength = 4096

// InsightService answers questions from stored transaction insights
type InsightService interface {
	TopSuggestions(ctx context.Context, query string) []models.Suggestion
	AnswerQuery(ctx context.Context, query string) models.AnswerResult
}

// QueryRequest is the body of both insight endpoints. Query must be present
// but may be empty.
type QueryRequest struct {
	Query *string `json:"query" validate:"required,max=4096"`
}

// SuggestionsResponse is the body returned by the suggestions endpoint
type SuggestionsResponse struct {
	Suggestions []models.Suggestion `json:"suggestions"`
}

// InsightHandler handles the suggestion and query endpoints
type InsightHandler struct {
	service InsightService
	logger  *zap.Logger
}

// NewInsightHandler creates a new InsightHandler
func NewInsightHandler(service InsightService, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSuggestions handles POST /suggestions
func (h *InsightHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	query, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}

	suggestions := h.service.TopSuggestions(r.Context(), query)
	if suggestions == nil {
		suggestions = []models.Suggestion{}
	}

	if err := utils.WriteOK(w, SuggestionsResponse{Suggestions: suggestions}); err != nil {
		h.logger.Error("failed to write suggestions response", zap.Error(err))
	}
}

// HandleQuery handles POST /query
func (h *InsightHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	query, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}

	result := h.service.AnswerQuery(r.Context(), query)
	if result.Sources == nil {
		result.Sources = []models.Source{}
	}

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write answer response", zap.Error(err))
	}
}

func (h *InsightHandler) decodeQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	logger := observability.WithRequest(r.Context(), h.logger)

	var req QueryRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		logger.Debug("rejected request body", zap.Error(err))
		HandleValidationError(w, err, logger)
		return "", false
	}

	if err := utils.ValidateStruct(req); err != nil {
		logger.Debug("rejected query", zap.Error(err))
		HandleValidationError(w, err, logger)
		return "", false
	}

	return *req.Query, true
}
