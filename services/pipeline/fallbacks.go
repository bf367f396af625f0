package pipeline

import (
	"fmt"

	"github.com/upb/insight-rag/models"
	"github.com/upb/insight-rag/services"
)

const (
	NoSuggestionsText    = "No relevant suggestions found."
	NotEnoughInfoAnswer  = "I don't have enough information to answer your question."
	retryAdviceText      = "Please try your request again"
	contactSupportText   = "Contact support if the issue persists"
	embedFailureAnswer   = "I encountered an error while processing your question: %s"
	synthesisErrorAnswer = "I encountered an error while analyzing your question: %s. Please try rephrasing your question or check if your database contains relevant transaction data."
)

// noSuggestions is returned when retrieval produced nothing to work with.
func noSuggestions() []models.Suggestion {
	return []models.Suggestion{{Text: NoSuggestionsText, Confidence: 0}}
}

// suggestionsFallback maps a failed stage to the value TopSuggestions returns.
func suggestionsFallback(err error) []models.Suggestion {
	reason := services.Cause(err).Error()

	switch services.GetErrorType(err) {
	case services.ErrorTypeRetrieval, services.ErrorTypeNotInitialized:
		return noSuggestions()
	case services.ErrorTypeSynthesis, services.ErrorTypeExternal:
		return []models.Suggestion{
			{Text: "Error generating suggestions: " + reason, Confidence: 0},
			{Text: retryAdviceText, Confidence: 0},
			{Text: contactSupportText, Confidence: 0},
		}
	default:
		return []models.Suggestion{{Text: "Error: " + reason, Confidence: 0}}
	}
}

// answerFallback maps a failed stage to the value AnswerQuery returns.
// Synthesis failures still cite the records that were retrieved.
func answerFallback(err error, records []models.RankedRecord) models.AnswerResult {
	reason := services.Cause(err).Error()

	switch services.GetErrorType(err) {
	case services.ErrorTypeRetrieval, services.ErrorTypeNotInitialized:
		return models.NewAnswerResult(NotEnoughInfoAnswer, nil)
	case services.ErrorTypeSynthesis, services.ErrorTypeExternal:
		return models.NewAnswerResult(fmt.Sprintf(synthesisErrorAnswer, reason), sourcesFor(records))
	default:
		return models.NewAnswerResult(fmt.Sprintf(embedFailureAnswer, reason), nil)
	}
}

func sourcesFor(records []models.RankedRecord) []models.Source {
	sources := make([]models.Source, len(records))
	for i, rec := range records {
		sources[i] = models.NewSource(rec)
	}
	return sources
}
