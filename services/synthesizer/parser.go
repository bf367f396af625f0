package synthesizer

import (
	"fmt"
	"strings"

	"github.com/upb/insight-rag/models"
)

const (
	// SuggestionCount is the fixed number of suggestions per response
	SuggestionCount = 3

	// DefaultSuggestionConfidence is used when no record backs a position
	DefaultSuggestionConfidence = 0.5

	fillerSuggestion = "Consider reviewing your spending patterns for improvement opportunities"
)

var genericSuggestions = [SuggestionCount]string{
	"Track your daily expenses to understand spending patterns",
	"Set up a monthly budget to better manage your finances",
	"Review your transactions weekly to identify savings opportunities",
}

// parseSuggestions extracts the numbered lines of a model response. Lines
// start with 1-3 followed by "." or ")"; anything else is ignored.
func parseSuggestions(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 2 {
			continue
		}
		if line[0] < '1' || line[0] > '3' || (line[1] != '.' && line[1] != ')') {
			continue
		}
		if text := strings.TrimSpace(line[2:]); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// normalizeSuggestions pads with the filler text and truncates so exactly
// SuggestionCount entries remain.
func normalizeSuggestions(texts []string) []string {
	out := make([]string, 0, SuggestionCount)
	for _, t := range texts {
		if len(out) == SuggestionCount {
			break
		}
		out = append(out, t)
	}
	for len(out) < SuggestionCount {
		out = append(out, fillerSuggestion)
	}
	return out
}

// attachConfidence pairs each text with the confidence of the record at the
// same position, or DefaultSuggestionConfidence when there is none.
func attachConfidence(texts []string, records []models.RankedRecord) []models.Suggestion {
	suggestions := make([]models.Suggestion, len(texts))
	for i, text := range texts {
		confidence := DefaultSuggestionConfidence
		if i < len(records) {
			confidence = records[i].Confidence
		}
		suggestions[i] = models.Suggestion{Text: text, Confidence: models.ClampConfidence(confidence)}
	}
	return suggestions
}

func genericFallback() []models.Suggestion {
	out := make([]models.Suggestion, SuggestionCount)
	for i, text := range genericSuggestions {
		out[i] = models.Suggestion{Text: text, Confidence: DefaultSuggestionConfidence}
	}
	return out
}

// suggestionContext lists at most the first SuggestionCount records
func suggestionContext(records []models.RankedRecord) string {
	lines := make([]string, 0, SuggestionCount)
	for i, rec := range records {
		if i == SuggestionCount {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s (confidence: %.2f)", i+1, rec.Description, rec.Confidence))
	}
	return strings.Join(lines, "\n")
}

// answerContext lists every record with a non-empty description
func answerContext(records []models.RankedRecord) string {
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.Description == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s (relevance: %.2f)", rec.Description, rec.Confidence))
	}
	return strings.Join(lines, "\n")
}

func suggestionUserPrompt(context string) string {
	return "Based on these transaction insights, generate exactly 3 practical financial suggestions:\n\n" +
		context +
		"\n\nFormat your response as exactly 3 numbered suggestions, each on a new line:\n" +
		"1. [First suggestion]\n2. [Second suggestion] \n3. [Third suggestion]"
}

func answerUserPrompt(query, context string) string {
	return "User Question: " + query +
		"\n\nRelevant Transaction Insights:\n" + context +
		"\n\nPlease provide a comprehensive answer based on this financial data. " +
		"If the context doesn't fully address the question, mention what information might be missing."
}
