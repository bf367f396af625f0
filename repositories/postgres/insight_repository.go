package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/upb/insight-rag/models"
	"github.com/upb/insight-rag/repositories"
)

const (
	searchSimilarQuery = `
		SELECT id, description, 1 - (embedding <=> $1::vector) AS similarity
		FROM transaction_insights
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector, id
		LIMIT $2
	`

	listMissingEmbeddingsQuery = `
		SELECT id, description
		FROM transaction_insights
		WHERE embedding IS NULL AND id > $1
		ORDER BY id
		LIMIT $2
	`

	countMissingEmbeddingsQuery = `
		SELECT COUNT(*) FROM transaction_insights WHERE embedding IS NULL
	`

	updateEmbeddingQuery = `
		UPDATE transaction_insights SET embedding = $1::vector WHERE id = $2
	`
)

// InsightRepository implements repositories.InsightRepository on pgvector
type InsightRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewInsightRepository creates a new insight repository
func NewInsightRepository(db *DB, logger *zap.Logger) repositories.InsightRepository {
	return &InsightRepository{
		db:     db,
		logger: logger,
	}
}

// SearchSimilar runs a cosine-distance nearest neighbour query
func (r *InsightRepository) SearchSimilar(ctx context.Context, vector []float32, limit int) ([]models.InsightRecord, error) {
	if limit <= 0 {
		return []models.InsightRecord{}, nil
	}

	executor := querierFor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, searchSimilarQuery, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search insights: %w", err)
	}
	defer rows.Close()

	records := make([]models.InsightRecord, 0, limit)
	for rows.Next() {
		var rec models.InsightRecord
		if err := rows.Scan(&rec.ID, &rec.Description, &rec.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating insights: %w", err)
	}

	r.logger.Debug("similarity search completed", zap.Int("limit", limit), zap.Int("results", len(records)))
	return records, nil
}

// ListMissingEmbeddings pages through records without an embedding
func (r *InsightRepository) ListMissingEmbeddings(ctx context.Context, afterID int64, limit int) ([]models.InsightRecord, error) {
	executor := querierFor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, listMissingEmbeddingsQuery, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights without embeddings: %w", err)
	}
	defer rows.Close()

	var records []models.InsightRecord
	for rows.Next() {
		var rec models.InsightRecord
		if err := rows.Scan(&rec.ID, &rec.Description); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating insights: %w", err)
	}

	return records, nil
}

// CountMissingEmbeddings counts records without an embedding
func (r *InsightRepository) CountMissingEmbeddings(ctx context.Context) (int64, error) {
	var count int64
	executor := querierFor(ctx, r.db)
	if err := executor.QueryRowContext(ctx, countMissingEmbeddingsQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count insights without embeddings: %w", err)
	}
	return count, nil
}

// UpdateEmbedding writes the embedding for one record
func (r *InsightRepository) UpdateEmbedding(ctx context.Context, id int64, vector []float32) error {
	executor := querierFor(ctx, r.db)
	result, err := executor.ExecContext(ctx, updateEmbeddingQuery, pgvector.NewVector(vector), id)
	if err != nil {
		return fmt.Errorf("failed to update embedding for insight %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("insight not found: %d", id)
	}

	return nil
}

// HealthCheck delegates to the pool
func (r *InsightRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// Close releases the pool
func (r *InsightRepository) Close() error {
	return r.db.Close()
}
