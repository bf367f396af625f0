package models

import (
	"fmt"
)

// MaxSourceTitleLength is the number of characters kept from a description
// when it is used as a source title.
const MaxSourceTitleLength = 100

// InsightRecord is a row of the transaction_insights table.
// Similarity is computed per query and is not persisted.
type InsightRecord struct {
	ID          int64     `json:"id" db:"id"`
	Description string    `json:"description" db:"description"`
	Embedding   []float32 `json:"-" db:"embedding"`
	Similarity  float64   `json:"similarity" db:"similarity"`
}

// TableName returns the table name for insight records
func (InsightRecord) TableName() string {
	return "transaction_insights"
}

// RankedRecord is a request-scoped projection of an InsightRecord.
type RankedRecord struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Rank        int     `json:"rank"`       // 1-based, store order
	Confidence  float64 `json:"confidence"` // similarity clamped to [0,1]
}

// NewRankedRecords converts store rows into ranked records, preserving order.
func NewRankedRecords(records []InsightRecord) []RankedRecord {
	ranked := make([]RankedRecord, 0, len(records))
	for i, rec := range records {
		ranked = append(ranked, RankedRecord{
			ID:          rec.ID,
			Description: rec.Description,
			Rank:        i + 1,
			Confidence:  ClampConfidence(rec.Similarity),
		})
	}
	return ranked
}

// Validate checks rank and confidence bounds
func (r RankedRecord) Validate() error {
	if r.Rank < 1 {
		return fmt.Errorf("rank must be positive, got %d", r.Rank)
	}
	return validateConfidence(r.Confidence)
}

// Suggestion is a short actionable recommendation.
type Suggestion struct {
	Text       string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// Validate checks the confidence is within [0, 1]
func (s Suggestion) Validate() error {
	return validateConfidence(s.Confidence)
}

// Source cites an insight record used to build an answer.
type Source struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
}

// NewSource projects a ranked record into a source citation
func NewSource(r RankedRecord) Source {
	return Source{
		ID:         r.ID,
		Title:      SourceTitle(r.Description),
		Confidence: r.Confidence,
	}
}

// AnswerResult is the synthesized answer with its cited sources.
type AnswerResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// NewAnswerResult builds an answer result. A nil sources slice becomes empty
// so it always serializes as a JSON array.
func NewAnswerResult(answer string, sources []Source) AnswerResult {
	if sources == nil {
		sources = []Source{}
	}
	return AnswerResult{Answer: answer, Sources: sources}
}

// SourceTitle truncates a description to MaxSourceTitleLength characters,
// appending "..." when anything was cut.
func SourceTitle(description string) string {
	runes := []rune(description)
	if len(runes) <= MaxSourceTitleLength {
		return description
	}
	return string(runes[:MaxSourceTitleLength]) + "..."
}

// ClampConfidence bounds a similarity score to [0,1].
func ClampConfidence(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func validateConfidence(c float64) error {
	if c < 0 || c > 1 || c != c {
		return fmt.Errorf("confidence must be within [0,1], got %v", c)
	}
	return nil
}
